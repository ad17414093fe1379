package grpc_control

import (
	"context"
	"time"

	"dashboard-observer/src/config"
	"dashboard-observer/src/dashboard"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService lets operators inspect and steer the dashboard pipeline.
type ControlService struct {
	Config     *config.Config
	Service    *dashboard.Service
	ConfigPath string // when set, timeframe changes are written back
	Logger     *logger.Logger
}

var _ ControlServer = (*ControlService)(nil)

// NewControlService creates a new instance of ControlService
func NewControlService(cfg *config.Config, svc *dashboard.Service, cfgPath string, log *logger.Logger) *ControlService {
	return &ControlService{
		Config:     cfg,
		Service:    svc,
		ConfigPath: cfgPath,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.statusStruct(s.Service.AnalyticsState())
}

// -----------------------------------------------------------------------------

func (s *ControlService) Refresh(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.Logger.Info("gRPC: Refresh requested")
	return s.statusStruct(s.Service.Refresh(true))
}

// -----------------------------------------------------------------------------

func (s *ControlService) SetTimeframe(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	tf, err := models.ParseTimeframe(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	state := s.Service.SetTimeframe(tf)

	// Persist as the new default
	if s.Config != nil && s.ConfigPath != "" {
		s.Config.Analytics.DefaultTimeframe = string(tf)
		if err := s.Config.Save(s.ConfigPath); err != nil {
			s.Logger.Error("gRPC: Failed to save config: %v", err)
		}
	}

	s.Logger.Info("gRPC: SetTimeframe success (%s)", tf)
	return s.statusStruct(state)
}

// -----------------------------------------------------------------------------

func (s *ControlService) SetLiveMode(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	rt := s.Service.StartRealtimePolling(req.GetValue())
	s.Logger.Info("gRPC: SetLiveMode %v", req.GetValue())
	return s.statusStruct(s.Service.AnalyticsState(), rt)
}

// -----------------------------------------------------------------------------

func (s *ControlService) statusStruct(state models.MAnalyticsState, rt ...models.MRealtimeState) (*structpb.Struct, error) {
	realtime := s.Service.RealtimeState()
	if len(rt) > 0 {
		realtime = rt[0]
	}

	fields := map[string]interface{}{
		"timeframe":  string(state.Timeframe),
		"requested":  string(s.Service.Timeframe()),
		"tier":       string(state.Tier),
		"loading":    state.Loading,
		"generation": float64(state.Generation),
		"runId":      state.RunID,
		"cached":     state.Cached,
		"error":      state.Error,
		"hasRecord":  state.Record != nil,
		"liveMode":   realtime.LiveMode,
		"synthetic":  realtime.Synthetic,
	}
	if !state.UpdatedAt.IsZero() {
		fields["updatedAt"] = state.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if state.Record != nil {
		fields["revenue"] = state.Record.Revenue.Current
		fields["users"] = state.Record.Users.Current
		fields["orders"] = state.Record.Orders.Current
	}
	if realtime.Metrics != nil {
		fields["onlineUsers"] = realtime.Metrics.OnlineUsers
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode status: %v", err)
	}
	return out, nil
}
