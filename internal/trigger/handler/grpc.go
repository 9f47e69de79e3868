// Package handler exposes trigger.Service over gRPC and HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"otp-ceremony/backend/internal/trigger"
	"otp-ceremony/backend/internal/trigger/bind"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "otpceremony.v1.TriggerService"

// TriggerServer is the gRPC surface of the triggers. Messages are google.protobuf.Struct
// carrying the same JSON shape as the HTTP bodies.
type TriggerServer interface {
	Define(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Create(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Verify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// TriggerServiceDesc describes TriggerService for grpc.ServiceRegistrar.
var TriggerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TriggerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Define", Handler: unaryHandler("Define", TriggerServer.Define)},
		{MethodName: "Create", Handler: unaryHandler("Create", TriggerServer.Create)},
		{MethodName: "Verify", Handler: unaryHandler("Verify", TriggerServer.Verify)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "otpceremony/v1/trigger.proto",
}

// RegisterTriggerServer registers srv with s.
func RegisterTriggerServer(s grpc.ServiceRegistrar, srv TriggerServer) {
	s.RegisterService(&TriggerServiceDesc, srv)
}

type unaryMethod func(TriggerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TriggerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TriggerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCServer implements TriggerServer on top of trigger.Service.
type GRPCServer struct {
	svc *trigger.Service
}

// NewGRPCServer returns a TriggerServer backed by svc.
func NewGRPCServer(svc *trigger.Service) *GRPCServer {
	return &GRPCServer{svc: svc}
}

// Define never fails; an undecodable request is decided as malformed.
func (s *GRPCServer) Define(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := fromStruct[trigger.DefineRequest](in)
	if err != nil {
		req = trigger.DefineRequest{}
	}
	return toStruct(s.svc.Define(ctx, req))
}

// Create issues a challenge. Invalid input is InvalidArgument; store failure is Unavailable.
func (s *GRPCServer) Create(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := fromStruct[trigger.CreateRequest](in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := s.svc.Create(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(resp)
}

// Verify never fails; an undecodable request is an incorrect answer.
func (s *GRPCServer) Verify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := fromStruct[trigger.VerifyRequest](in)
	if err != nil {
		return toStruct(trigger.VerifyResponse{AnswerCorrect: false})
	}
	return toStruct(s.svc.Verify(ctx, req))
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, trigger.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, "invalid request")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	default:
		return status.Error(codes.Unavailable, "challenge service unavailable")
	}
}

func fromStruct[T any](in *structpb.Struct) (T, error) {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		var zero T
		return zero, err
	}
	return bind.Decode[T](raw)
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
