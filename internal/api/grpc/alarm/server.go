package alarm

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/engine"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Service abstracts the engine operations the transport layer depends on.
type Service interface {
	CreateAlarm(ctx context.Context, req engine.CreateRequest) (domain.Alarm, error)
	CancelAlarm(ctx context.Context, id string) (domain.Alarm, error)
	GetAlarm(ctx context.Context, id string) (domain.Alarm, error)
	ListAlarms(ctx context.Context) ([]domain.Alarm, error)
}

// Server implements the AlarmService gRPC API.
type Server struct {
	// service provides the alarm operations.
	service Service
}

var _ AlarmServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// CreateAlarm registers a new alarm.
func (s *Server) CreateAlarm(ctx context.Context, req *CreateAlarmRequest) (*AlarmResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if req.TriggerTime.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "trigger_time is required")
	}

	created, err := s.service.CreateAlarm(ctx, engine.CreateRequest{
		TriggerTime: req.TriggerTime,
		Message:     req.Message,
		Actor:       req.Actor.ToDomain(),
	})
	if err != nil {
		return nil, toStatus(ctx, "create alarm", err)
	}

	return &AlarmResponse{Alarm: FromDomain(created)}, nil
}

// CancelAlarm cancels a scheduled alarm; terminal alarms are returned unchanged.
func (s *Server) CancelAlarm(ctx context.Context, req *CancelAlarmRequest) (*AlarmResponse, error) {
	if req == nil || req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	canceled, err := s.service.CancelAlarm(ctx, req.ID)
	if err != nil {
		return nil, toStatus(ctx, "cancel alarm", err)
	}

	return &AlarmResponse{Alarm: FromDomain(canceled)}, nil
}

// GetAlarm returns one alarm in any state.
func (s *Server) GetAlarm(ctx context.Context, req *GetAlarmRequest) (*AlarmResponse, error) {
	if req == nil || req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	found, err := s.service.GetAlarm(ctx, req.ID)
	if err != nil {
		return nil, toStatus(ctx, "get alarm", err)
	}

	return &AlarmResponse{Alarm: FromDomain(found)}, nil
}

// ListAlarms returns scheduled alarms in firing order.
func (s *Server) ListAlarms(ctx context.Context, _ *ListAlarmsRequest) (*ListAlarmsResponse, error) {
	list, err := s.service.ListAlarms(ctx)
	if err != nil {
		return nil, toStatus(ctx, "list alarms", err)
	}

	response := &ListAlarmsResponse{
		Alarms: make([]*Alarm, 0, len(list)),
	}

	for _, a := range list {
		response.Alarms = append(response.Alarms, FromDomain(a))
	}

	return response, nil
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidTime):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		logger.WarnKV(ctx, "Storage unavailable", "op", op, "error", err)

		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		logger.ErrorKV(ctx, "Request failed", "op", op, "error", err)

		return status.Errorf(codes.Internal, "unable to %s", op)
	}
}
