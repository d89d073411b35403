package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Irondb_AreYouOkay_FullMethodName = "/irondb.Irondb/AreYouOkay"
	Irondb_Get_FullMethodName        = "/irondb.Irondb/Get"
	Irondb_Put_FullMethodName        = "/irondb.Irondb/Put"
)

// IrondbClient is the client API for the Irondb service.
type IrondbClient interface {
	AreYouOkay(ctx context.Context, in *AreYouOkayRequest, opts ...grpc.CallOption) (*AreYouOkayReply, error)
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetReply, error)
	Put(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*PutReply, error)
}

type irondbClient struct {
	cc grpc.ClientConnInterface
}

// NewIrondbClient returns a client that sends every call with the irondb codec.
func NewIrondbClient(cc grpc.ClientConnInterface) IrondbClient {
	return &irondbClient{cc}
}

func (c *irondbClient) AreYouOkay(ctx context.Context, in *AreYouOkayRequest, opts ...grpc.CallOption) (*AreYouOkayReply, error) {
	out := new(AreYouOkayReply)
	if err := c.cc.Invoke(ctx, Irondb_AreYouOkay_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *irondbClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetReply, error) {
	out := new(GetReply)
	if err := c.cc.Invoke(ctx, Irondb_Get_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *irondbClient) Put(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*PutReply, error) {
	out := new(PutReply)
	if err := c.cc.Invoke(ctx, Irondb_Put_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

// IrondbServer is the server API for the Irondb service.
type IrondbServer interface {
	AreYouOkay(context.Context, *AreYouOkayRequest) (*AreYouOkayReply, error)
	Get(context.Context, *GetRequest) (*GetReply, error)
	Put(context.Context, *PutRequest) (*PutReply, error)
}

// UnimplementedIrondbServer can be embedded to have forward compatible implementations.
type UnimplementedIrondbServer struct{}

func (UnimplementedIrondbServer) AreYouOkay(context.Context, *AreYouOkayRequest) (*AreYouOkayReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AreYouOkay not implemented")
}

func (UnimplementedIrondbServer) Get(context.Context, *GetRequest) (*GetReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Get not implemented")
}

func (UnimplementedIrondbServer) Put(context.Context, *PutRequest) (*PutReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Put not implemented")
}

// RegisterIrondbServer registers srv on s.
func RegisterIrondbServer(s grpc.ServiceRegistrar, srv IrondbServer) {
	s.RegisterService(&Irondb_ServiceDesc, srv)
}

func _Irondb_AreYouOkay_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AreYouOkayRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IrondbServer).AreYouOkay(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Irondb_AreYouOkay_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IrondbServer).AreYouOkay(ctx, req.(*AreYouOkayRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Irondb_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IrondbServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Irondb_Get_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IrondbServer).Get(ctx, req.(*GetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Irondb_Put_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IrondbServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Irondb_Put_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IrondbServer).Put(ctx, req.(*PutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Irondb_ServiceDesc is the grpc.ServiceDesc for the Irondb service.
var Irondb_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "irondb.Irondb",
	HandlerType: (*IrondbServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AreYouOkay",
			Handler:    _Irondb_AreYouOkay_Handler,
		},
		{
			MethodName: "Get",
			Handler:    _Irondb_Get_Handler,
		},
		{
			MethodName: "Put",
			Handler:    _Irondb_Put_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "irondb.proto",
}
