package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service descriptor for datafeed.Control. Messages are protobuf well-known
// types so no generated code is needed on either side.

const ServiceName = "datafeed.Control"

const (
	getStatusMethod        = "/" + ServiceName + "/GetStatus"
	refreshReferenceMethod = "/" + ServiceName + "/RefreshReference"
	unsubscribeMethod      = "/" + ServiceName + "/Unsubscribe"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

type ControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	RefreshReference(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Unsubscribe(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&Control_ServiceDesc, srv)
}

var Control_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "RefreshReference", Handler: refreshReferenceHandler},
		{MethodName: "Unsubscribe", Handler: unsubscribeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "datafeed/control",
}

// -----------------------------------------------------------------------------

func getStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStatusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func refreshReferenceHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).RefreshReference(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: refreshReferenceMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).RefreshReference(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func unsubscribeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Unsubscribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: unsubscribeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).Unsubscribe(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
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
	if err := c.cc.Invoke(ctx, getStatusMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) RefreshReference(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, refreshReferenceMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) Unsubscribe(ctx context.Context, uid string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"uid": uid})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, unsubscribeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
