package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "vnbattle.v1.BattleService"

// Full method names, used by interceptors.
const (
	MethodStartBattle = "/" + ServiceName + "/StartBattle"
	MethodAct         = "/" + ServiceName + "/Act"
	MethodBeginQTE    = "/" + ServiceName + "/BeginQTE"
	MethodGetState    = "/" + ServiceName + "/GetState"
	MethodEndBattle   = "/" + ServiceName + "/EndBattle"
)

// BattleServiceServer is the server API for the battle service. Requests and
// responses are google.protobuf.Struct documents whose fields mirror the
// JSON encoding of the combat package types.
type BattleServiceServer interface {
	StartBattle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Act(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BeginQTE(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndBattle(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(BattleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BattleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BattleServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BattleService_ServiceDesc is the grpc.ServiceDesc for the battle service.
var BattleService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BattleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartBattle", Handler: unaryHandler(MethodStartBattle, BattleServiceServer.StartBattle)},
		{MethodName: "Act", Handler: unaryHandler(MethodAct, BattleServiceServer.Act)},
		{MethodName: "BeginQTE", Handler: unaryHandler(MethodBeginQTE, BattleServiceServer.BeginQTE)},
		{MethodName: "GetState", Handler: unaryHandler(MethodGetState, BattleServiceServer.GetState)},
		{MethodName: "EndBattle", Handler: unaryHandler(MethodEndBattle, BattleServiceServer.EndBattle)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vnbattle/v1/battle.proto",
}

// RegisterBattleServiceServer registers srv on s.
func RegisterBattleServiceServer(s grpc.ServiceRegistrar, srv BattleServiceServer) {
	s.RegisterService(&BattleService_ServiceDesc, srv)
}

// BattleServiceClient is the client API for the battle service.
type BattleServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewBattleServiceClient wraps cc.
func NewBattleServiceClient(cc grpc.ClientConnInterface) *BattleServiceClient {
	return &BattleServiceClient{cc: cc}
}

func (c *BattleServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// StartBattle starts an encounter.
func (c *BattleServiceClient) StartBattle(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodStartBattle, in, opts...)
}

// Act submits a player action.
func (c *BattleServiceClient) Act(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAct, in, opts...)
}

// BeginQTE draws the timing zone for the next attack.
func (c *BattleServiceClient) BeginQTE(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodBeginQTE, in, opts...)
}

// GetState returns an encounter snapshot.
func (c *BattleServiceClient) GetState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetState, in, opts...)
}

// EndBattle abandons an encounter.
func (c *BattleServiceClient) EndBattle(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodEndBattle, in, opts...)
}
