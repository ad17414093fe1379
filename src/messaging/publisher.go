package messaging

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/rabbitmq/amqp091-go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// channel is the subset of *amqp091.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher forwards dashboard push messages to a topic exchange.
type AMQPPublisher struct {
	Exchange string
	Logger   *logger.Logger

	conn *amqp091.Connection
	ch   channel
	wg   sync.WaitGroup

	// mu guards queue against Broadcast racing Stop's close.
	mu      sync.RWMutex
	queue   chan *models.MPushMessage
	running bool
	dropped atomic.Int64
}

var _ interfaces.IDataExchanger = (*AMQPPublisher)(nil)

// -----------------------------------------------------------------------------

// Dial connects to the broker and opens the publishing channel.
func Dial(url, exchange string, log *logger.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p := newPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, log *logger.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		Exchange: exchange,
		Logger:   log,
		ch:       ch,
		queue:    make(chan *models.MPushMessage, 256),
	}
}

// -----------------------------------------------------------------------------

// RoutingKey maps a push message to analytics.<timeframe> or realtime.
func RoutingKey(msg *models.MPushMessage) string {
	switch msg.Type {
	case models.MessageTypeAnalytics, models.MessageTypeInitial:
		if msg.Analytics != nil && msg.Analytics.Timeframe != "" {
			return "analytics." + string(msg.Analytics.Timeframe)
		}
		return "analytics"
	case models.MessageTypeRealtime:
		return "realtime"
	}
	return "dashboard"
}

// -----------------------------------------------------------------------------

func (p *AMQPPublisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if err := p.ch.ExchangeDeclare(p.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", p.Exchange, err)
	}
	p.running = true

	p.wg.Add(1)
	go p.publishLoop(p.queue)

	p.Logger.Info("Publishing to exchange %s", p.Exchange)
	return nil
}

// -----------------------------------------------------------------------------

func (p *AMQPPublisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()

	if err := p.ch.Close(); err != nil {
		p.Logger.Warning("Closing channel: %v", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// Broadcast never blocks the caller; messages are dropped when the queue is full.
func (p *AMQPPublisher) Broadcast(msg *models.MPushMessage) {
	if msg == nil {
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return
	}

	select {
	case p.queue <- msg:
	default:
		if n := p.dropped.Add(1); n%100 == 1 {
			p.Logger.Warning("Publish queue full, %d messages dropped so far", n)
		}
	}
}

// -----------------------------------------------------------------------------

func (p *AMQPPublisher) publishLoop(queue <-chan *models.MPushMessage) {
	defer p.wg.Done()

	for msg := range queue {
		body, err := json.Marshal(msg)
		if err != nil {
			p.Logger.Error("Failed to encode %s message: %v", msg.Type, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = p.ch.PublishWithContext(ctx, p.Exchange, RoutingKey(msg), false, false, amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient,
			Timestamp:    time.UnixMilli(msg.Timestamp),
			Type:         msg.Type,
			Body:         body,
		})
		cancel()
		if err != nil {
			p.Logger.Warning("Failed to publish %s message: %v", msg.Type, err)
		}
	}
}
