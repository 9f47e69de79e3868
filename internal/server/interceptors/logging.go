package interceptors

import (
	"context"
	"net"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"otp-ceremony/backend/internal/logger"
)

const requestIDHeader = "x-request-id"

// RequestIDUnary propagates x-request-id from metadata (or mints one) onto the context and
// echoes it in the response header.
func RequestIDUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		id := strings.TrimSpace(firstMetadata(ctx, requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, id))
		return handler(logger.WithRequestID(ctx, id), req)
	}
}

// LoggingUnary logs every RPC with its status code and elapsed time. skipMethods are not
// logged (e.g. health checks). Requests taking at least slow are logged at warn.
func LoggingUnary(log *logger.Logger, slow time.Duration, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		elapsed := time.Since(start)
		l := logger.C(ctx, log)
		evt := l.Info()
		if slow > 0 && elapsed >= slow {
			evt = l.Warn()
		}
		if err != nil && status.Code(err) == codes.Internal {
			evt = l.Error().Err(err)
		}
		evt.Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("elapsed", elapsed).
			Str("client_ip", ClientIP(ctx)).
			Msg("rpc done")
		return resp, err
	}
}

// RecoveryUnary converts panics into codes.Internal and logs the stack with the request id.
func RecoveryUnary(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if v := recover(); v != nil {
				logger.C(ctx, log).Error().
					Str("method", info.FullMethod).
					Interface("panic", v).
					Msgf("panic recovered\n%s", debug.Stack())
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if s := strings.TrimSpace(firstMetadata(ctx, "x-forwarded-for")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(firstMetadata(ctx, "x-real-ip")); s != "" {
		return s
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
