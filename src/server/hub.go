package server

import (
	"net/http"
	"time"

	"dashboard-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// runHub owns the client set; every mutation goes through its channels.
func (s *APIServer) runHub() {
	defer func() {
		for client := range s.clients {
			delete(s.clients, client)
			close(client.send)
		}
	}()

	for {
		select {
		case <-s.done:
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			client.send <- s.initialMessage()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}

		case message := <-s.broadcast:
			for client := range s.clients {
				if !client.wants(message) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Slow consumers are dropped so the hub never blocks
					delete(s.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues msg for every connected client. It never blocks; when
// the queue is full the message is dropped.
func (s *APIServer) Broadcast(msg *models.MPushMessage) {
	if msg == nil || !s.hubRunning.Load() {
		return
	}
	select {
	case s.broadcast <- msg:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s message", msg.Type)
	}
}

// -----------------------------------------------------------------------------

// initialMessage is the full current state as published. A timeframe the
// client just subscribed to arrives later as an ANALYTICS push.
func (s *APIServer) initialMessage() *models.MPushMessage {
	analytics := s.Service.AnalyticsState()
	realtime := s.Service.RealtimeState()
	return &models.MPushMessage{
		Type:      models.MessageTypeInitial,
		Analytics: &analytics,
		Realtime:  &realtime,
		Timestamp: time.Now().Unix(),
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) connectionCount() int {
	return int(s.connections.Load())
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowLocalOrigin(origin)
	},
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	if !s.hubRunning.Load() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "push hub not running"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		send: make(chan *models.MPushMessage, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}
	s.connections.Add(1)

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage processes {"command":"subscribe","timeframe":"week"}.
// A subscription with a timeframe switches the dashboard timeframe and limits
// the client's analytics pushes to that timeframe.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	var tf models.MTimeframe
	if cmd.Timeframe != "" {
		parsed, err := models.ParseTimeframe(cmd.Timeframe)
		if err != nil {
			s.Logger.Info("Ignoring subscribe with %v", err)
			return
		}
		tf = parsed
	}
	client.setTimeframe(tf)

	response := s.initialMessage()
	select {
	case client.send <- response:
	default:
	}

	if tf != "" {
		// pushes the new state to every client once the run completes
		go s.Service.SetTimeframe(tf)
	}
}
