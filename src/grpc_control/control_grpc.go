package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The control service is described by hand over well-known types, so no
// generated code or .proto toolchain is needed.

const ServiceName = "dashboard.Control"

const (
	methodGetStatus    = "/" + ServiceName + "/GetStatus"
	methodRefresh      = "/" + ServiceName + "/Refresh"
	methodSetTimeframe = "/" + ServiceName + "/SetTimeframe"
	methodSetLiveMode  = "/" + ServiceName + "/SetLiveMode"
)

// ControlServer is the server API for dashboard.Control.
type ControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Refresh(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetTimeframe(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetLiveMode(context.Context, *wrapperspb.BoolValue) (*structpb.Struct, error)
}

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&Control_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func unaryHandler[Req any](method string, call func(ControlServer, context.Context, *Req) (*structpb.Struct, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Control_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: unaryHandler(methodGetStatus, ControlServer.GetStatus)},
		{MethodName: "Refresh", Handler: unaryHandler(methodRefresh, ControlServer.Refresh)},
		{MethodName: "SetTimeframe", Handler: unaryHandler(methodSetTimeframe, ControlServer.SetTimeframe)},
		{MethodName: "SetLiveMode", Handler: unaryHandler(methodSetLiveMode, ControlServer.SetLiveMode)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dashboard/control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetStatus, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) Refresh(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodRefresh, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) SetTimeframe(ctx context.Context, timeframe string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSetTimeframe, wrapperspb.String(timeframe), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) SetLiveMode(ctx context.Context, on bool, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSetLiveMode, wrapperspb.Bool(on), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
