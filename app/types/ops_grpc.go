package types

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The operator service is small enough to describe by hand over well-known types,
// which keeps the repo free of a protoc step.
const (
	OpsServiceName = "remittance.v1.OpsService"

	OpsServiceHealthMethod     = "/" + OpsServiceName + "/Health"
	OpsServiceReprocessMethod  = "/" + OpsServiceName + "/Reprocess"
	OpsServiceGetSessionMethod = "/" + OpsServiceName + "/GetSession"
)

type OpsServiceServer interface {
	Health(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reprocess(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetSession(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

type UnimplementedOpsServiceServer struct{}

func (UnimplementedOpsServiceServer) Health(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}

func (UnimplementedOpsServiceServer) Reprocess(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Reprocess not implemented")
}

func (UnimplementedOpsServiceServer) GetSession(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSession not implemented")
}

func RegisterOpsServiceServer(s grpc.ServiceRegistrar, srv OpsServiceServer) {
	s.RegisterService(&OpsServiceDesc, srv)
}

var OpsServiceDesc = grpc.ServiceDesc{
	ServiceName: OpsServiceName,
	HandlerType: (*OpsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: opsHealthHandler},
		{MethodName: "Reprocess", Handler: opsReprocessHandler},
		{MethodName: "GetSession", Handler: opsGetSessionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "remittance/v1/ops.proto",
}

func opsHealthHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OpsServiceServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OpsServiceHealthMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OpsServiceServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func opsReprocessHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OpsServiceServer).Reprocess(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OpsServiceReprocessMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OpsServiceServer).Reprocess(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func opsGetSessionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OpsServiceServer).GetSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OpsServiceGetSessionMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OpsServiceServer).GetSession(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type OpsServiceClient interface {
	Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Reprocess(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetSession(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type opsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOpsServiceClient(cc grpc.ClientConnInterface) OpsServiceClient {
	return &opsServiceClient{cc: cc}
}

func (c *opsServiceClient) Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, OpsServiceHealthMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *opsServiceClient) Reprocess(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, OpsServiceReprocessMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *opsServiceClient) GetSession(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, OpsServiceGetSessionMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
