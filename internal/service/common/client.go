//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// Client wraps the gRPC AlarmService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alarm server.
	conn *grpc.ClientConn
	// api is the AlarmService client stub.
	api api.AlarmServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// dialOptions are appended to the transport defaults.
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions adds gRPC dial options, e.g. a custom dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errIDRequired is returned when an alarm id is missing.
	errIDRequired = errors.New("alarm id must be provided")
	// errEmptyResponse is returned when the server answers without an alarm.
	errEmptyResponse = errors.New("server returned no alarm")
)

// Dial establishes a gRPC connection to the alarm server.
// Note: this uses insecure transport credentials; the server is meant to
// listen on loopback or a trusted network.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		client.dialOptions...,
	)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial alarm server: %w", err)
	}

	client.conn = conn
	client.api = api.NewAlarmServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// CreateAlarm registers a one-shot alarm at triggerTime.
func (c *Client) CreateAlarm(
	ctx context.Context,
	triggerTime time.Time,
	message string,
	actor *domain.Actor,
) (domain.Alarm, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request := &api.CreateAlarmRequest{
		TriggerTime: triggerTime,
		Message:     message,
		Actor:       api.FromDomainActor(actor),
	}

	response, err := c.api.CreateAlarm(callCtx, request)
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("create alarm: %w", err)
	}

	return alarmFrom(response)
}

// CancelAlarm cancels the alarm with the given id.
func (c *Client) CancelAlarm(ctx context.Context, id string) (domain.Alarm, error) {
	if id == "" {
		return domain.Alarm{}, errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.CancelAlarm(callCtx, &api.CancelAlarmRequest{ID: id})
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("cancel alarm %s: %w", id, err)
	}

	return alarmFrom(response)
}

// GetAlarm fetches one alarm in any state.
func (c *Client) GetAlarm(ctx context.Context, id string) (domain.Alarm, error) {
	if id == "" {
		return domain.Alarm{}, errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.GetAlarm(callCtx, &api.GetAlarmRequest{ID: id})
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("get alarm %s: %w", id, err)
	}

	return alarmFrom(response)
}

// ListAlarms returns scheduled alarms in firing order.
func (c *Client) ListAlarms(ctx context.Context) ([]domain.Alarm, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.ListAlarms(callCtx, new(api.ListAlarmsRequest))
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	list := make([]domain.Alarm, 0, len(response.GetAlarms()))
	for _, a := range response.GetAlarms() {
		list = append(list, a.ToDomain())
	}

	return list, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

func alarmFrom(response *api.AlarmResponse) (domain.Alarm, error) {
	if response.GetAlarm() == nil {
		return domain.Alarm{}, errEmptyResponse
	}

	return response.GetAlarm().ToDomain(), nil
}
