package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"otp-ceremony/backend/internal/security"
)

const bearerPrefix = "bearer "

// AuthUnary returns a unary server interceptor that validates the Bearer caller token from
// gRPC metadata and sets the caller in context. publicMethods skip the check (e.g. the
// gRPC health check). A nil validator disables authentication.
func AuthUnary(validator *security.CallerValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if validator == nil || publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := ParseBearer(firstMetadata(ctx, "authorization"))
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		claims, err := validator.Validate(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		return handler(WithCaller(ctx, claims.Subject), req)
	}
}

// ParseBearer returns the token from an "Authorization: Bearer <token>" value, or "" if
// missing or malformed. Shared with the HTTP transport.
func ParseBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
