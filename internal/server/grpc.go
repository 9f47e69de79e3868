// Package server builds the gRPC server for the trigger service.
package server

import (
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	healthhandler "otp-ceremony/backend/internal/health/handler"
	"otp-ceremony/backend/internal/logger"
	"otp-ceremony/backend/internal/security"
	"otp-ceremony/backend/internal/server/interceptors"
	triggerhandler "otp-ceremony/backend/internal/trigger/handler"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Deps holds the services registered on the gRPC server.
type Deps struct {
	Trigger triggerhandler.TriggerServer
	// Health registers grpc.health.v1.Health when set.
	Health *healthhandler.Server
	// Validator enables caller authentication. If nil, every RPC is accepted.
	Validator *security.CallerValidator
	Logger    *logger.Logger
}

// publicMethods skip caller authentication.
var publicMethods = map[string]bool{
	healthCheckMethod:              true,
	"/grpc.health.v1.Health/Watch": true,
	"/grpc.health.v1.Health/List":  true,
}

// NewGRPCServer returns a server with the interceptor chain (request id, logging, recovery,
// auth) and OpenTelemetry stats handler, with every service in deps registered.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	log := deps.Logger
	if log == nil {
		log = logger.Named("grpc")
	}
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RequestIDUnary(),
			interceptors.LoggingUnary(log, 500*time.Millisecond, map[string]bool{healthCheckMethod: true}),
			interceptors.RecoveryUnary(log),
			interceptors.AuthUnary(deps.Validator, publicMethods),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{MaxConnectionIdle: 5 * time.Minute}),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the trigger and health services with s.
//
//   - otpceremony.v1.TriggerService → internal/trigger/handler
//   - grpc.health.v1.Health         → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.Trigger != nil {
		triggerhandler.RegisterTriggerServer(s, deps.Trigger)
	}
	if deps.Health != nil {
		deps.Health.Register(s)
	}
}
