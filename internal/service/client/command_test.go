package client

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/service/common"
)

// TestParseTriggerTime covers both flag forms and their validation.
func TestParseTriggerTime(t *testing.T) {
	t.Parallel()

	location := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2030, time.May, 10, 14, 20, 0, 0, location)

	got, err := ParseTriggerTime("", 90*time.Minute, now)
	require.NoError(t, err)
	require.Equal(t, now.Add(90*time.Minute), got)

	got, err = ParseTriggerTime("07:05", 0, now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2030, time.May, 10, 7, 5, 0, 0, location), got)

	got, err = ParseTriggerTime("2030-05-11T06:00:00Z", 0, now)
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2030, time.May, 11, 6, 0, 0, 0, time.UTC)))

	_, err = ParseTriggerTime("", 0, now)
	require.ErrorIs(t, err, errTriggerRequired)

	_, err = ParseTriggerTime("07:00", time.Minute, now)
	require.ErrorIs(t, err, errTriggerConflict)

	for _, bad := range []string{"7", "24:00", "07:60", "07:5", "aa:bb", "tomorrow"} {
		_, err = ParseTriggerTime(bad, 0, now)
		require.ErrorIs(t, err, errBadClockTime, bad)
	}
}

// memoryServer is a minimal AlarmService backed by a slice.
type memoryServer struct {
	mu     sync.Mutex
	alarms []*api.Alarm
}

func (m *memoryServer) CreateAlarm(_ context.Context, req *api.CreateAlarmRequest) (*api.AlarmResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := &api.Alarm{
		ID:          "alarm-1",
		TriggerTime: req.TriggerTime,
		Message:     req.Message,
		State:       "scheduled",
		CreatedBy:   req.Actor,
	}
	m.alarms = append(m.alarms, created)

	return &api.AlarmResponse{Alarm: created}, nil
}

func (m *memoryServer) CancelAlarm(_ context.Context, req *api.CancelAlarmRequest) (*api.AlarmResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.alarms {
		if a.ID == req.ID {
			a.State = "canceled"

			return &api.AlarmResponse{Alarm: a}, nil
		}
	}

	return nil, status.Error(codes.NotFound, "alarm not found")
}

func (m *memoryServer) GetAlarm(_ context.Context, req *api.GetAlarmRequest) (*api.AlarmResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.alarms {
		if a.ID == req.ID {
			return &api.AlarmResponse{Alarm: a}, nil
		}
	}

	return nil, status.Error(codes.NotFound, "alarm not found")
}

func (m *memoryServer) ListAlarms(context.Context, *api.ListAlarmsRequest) (*api.ListAlarmsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var scheduled []*api.Alarm

	for _, a := range m.alarms {
		if a.State == "scheduled" {
			scheduled = append(scheduled, a)
		}
	}

	return &api.ListAlarmsResponse{Alarms: scheduled}, nil
}

func newOptions(t *testing.T) (*Options, *bytes.Buffer) {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	api.RegisterAlarmServiceServer(server, new(memoryServer))

	go func() { _ = server.Serve(listener) }()

	t.Cleanup(server.Stop)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, &config.Config{Timeout: time.Second}))

	out := new(bytes.Buffer)

	return &Options{
		ConfigPath:    path,
		ServerAddress: "passthrough:///bufnet",
		Out:           out,
		dialOptions: []common.Option{
			common.WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return listener.DialContext(ctx)
			})),
		},
	}, out
}

// TestCommands_Flow runs set, list, get and cancel against an in-memory server.
func TestCommands_Flow(t *testing.T) {
	t.Parallel()

	opts, out := newOptions(t)
	ctx := t.Context()

	require.NoError(t, List(ctx, opts))
	require.Contains(t, out.String(), "No alarms scheduled.")
	out.Reset()

	require.NoError(t, Set(ctx, opts, SetOptions{In: time.Hour, Message: "stand-up"}))
	require.Contains(t, out.String(), "alarm-1")
	require.Contains(t, out.String(), "stand-up")
	out.Reset()

	require.NoError(t, List(ctx, opts))
	require.Contains(t, out.String(), "scheduled")
	out.Reset()

	require.NoError(t, Cancel(ctx, opts, "alarm-1"))
	require.Contains(t, out.String(), "canceled")
	out.Reset()

	require.NoError(t, Get(ctx, opts, "alarm-1"))
	require.Contains(t, out.String(), "canceled")

	err := Cancel(ctx, opts, "missing")
	require.Equal(t, codes.NotFound, status.Code(err))

	require.ErrorIs(t, Set(ctx, opts, SetOptions{}), errTriggerRequired)
}
