package alarm

import (
	"context"

	"google.golang.org/grpc"
)

// Fully-qualified method names of alarmclock.v1.AlarmService.
const (
	ServiceName = "alarmclock.v1.AlarmService"

	CreateAlarmFullMethodName = "/" + ServiceName + "/CreateAlarm"
	CancelAlarmFullMethodName = "/" + ServiceName + "/CancelAlarm"
	GetAlarmFullMethodName    = "/" + ServiceName + "/GetAlarm"
	ListAlarmsFullMethodName  = "/" + ServiceName + "/ListAlarms"
)

// AlarmServiceServer is the server API for AlarmService.
type AlarmServiceServer interface {
	CreateAlarm(ctx context.Context, req *CreateAlarmRequest) (*AlarmResponse, error)
	CancelAlarm(ctx context.Context, req *CancelAlarmRequest) (*AlarmResponse, error)
	GetAlarm(ctx context.Context, req *GetAlarmRequest) (*AlarmResponse, error)
	ListAlarms(ctx context.Context, req *ListAlarmsRequest) (*ListAlarmsResponse, error)
}

// AlarmServiceClient is the client API for AlarmService.
type AlarmServiceClient interface {
	CreateAlarm(ctx context.Context, req *CreateAlarmRequest, opts ...grpc.CallOption) (*AlarmResponse, error)
	CancelAlarm(ctx context.Context, req *CancelAlarmRequest, opts ...grpc.CallOption) (*AlarmResponse, error)
	GetAlarm(ctx context.Context, req *GetAlarmRequest, opts ...grpc.CallOption) (*AlarmResponse, error)
	ListAlarms(ctx context.Context, req *ListAlarmsRequest, opts ...grpc.CallOption) (*ListAlarmsResponse, error)
}

// AlarmServiceDesc describes AlarmService for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var AlarmServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateAlarm",
			Handler:    unaryHandler(CreateAlarmFullMethodName, AlarmServiceServer.CreateAlarm),
		},
		{
			MethodName: "CancelAlarm",
			Handler:    unaryHandler(CancelAlarmFullMethodName, AlarmServiceServer.CancelAlarm),
		},
		{
			MethodName: "GetAlarm",
			Handler:    unaryHandler(GetAlarmFullMethodName, AlarmServiceServer.GetAlarm),
		},
		{
			MethodName: "ListAlarms",
			Handler:    unaryHandler(ListAlarmsFullMethodName, AlarmServiceServer.ListAlarms),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterAlarmServiceServer registers srv on the provided registrar.
func RegisterAlarmServiceServer(s grpc.ServiceRegistrar, srv AlarmServiceServer) {
	s.RegisterService(&AlarmServiceDesc, srv)
}

// unaryHandler decodes Req, routes it through the interceptor chain and
// invokes the matching server method.
func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(AlarmServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(AlarmServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}

// alarmServiceClient invokes AlarmService over a client connection.
type alarmServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlarmServiceClient returns a client stub that encodes messages with the JSON codec.
func NewAlarmServiceClient(cc grpc.ClientConnInterface) AlarmServiceClient {
	return &alarmServiceClient{cc: cc}
}

func (c *alarmServiceClient) CreateAlarm(
	ctx context.Context,
	req *CreateAlarmRequest,
	opts ...grpc.CallOption,
) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, CreateAlarmFullMethodName, req, opts)
}

func (c *alarmServiceClient) CancelAlarm(
	ctx context.Context,
	req *CancelAlarmRequest,
	opts ...grpc.CallOption,
) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, CancelAlarmFullMethodName, req, opts)
}

func (c *alarmServiceClient) GetAlarm(
	ctx context.Context,
	req *GetAlarmRequest,
	opts ...grpc.CallOption,
) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, GetAlarmFullMethodName, req, opts)
}

func (c *alarmServiceClient) ListAlarms(
	ctx context.Context,
	req *ListAlarmsRequest,
	opts ...grpc.CallOption,
) (*ListAlarmsResponse, error) {
	return invoke[ListAlarmsResponse](ctx, c.cc, ListAlarmsFullMethodName, req, opts)
}

func invoke[Resp any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	req any,
	opts []grpc.CallOption,
) (*Resp, error) {
	out := new(Resp)

	callOptions := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, req, out, callOptions...); err != nil {
		return nil, err
	}

	return out, nil
}
