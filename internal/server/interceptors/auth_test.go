package interceptors

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"otp-ceremony/backend/internal/security"
)

const testMethod = "/otpceremony.v1.TriggerService/Create"

func newValidator(t *testing.T) *security.CallerValidator {
	t.Helper()
	v, err := security.NewCallerValidator("test-signing-key", "identity-provider", "otp-ceremony")
	if err != nil {
		t.Fatalf("NewCallerValidator: %v", err)
	}
	return v
}

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	caller, _ := GetCaller(ctx)
	return caller, nil
}

func withAuth(value string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", value))
}

func TestAuthUnary_Disabled(t *testing.T) {
	interceptor := AuthUnary(nil, nil)
	if _, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: testMethod}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
}

func TestAuthUnary_PublicMethod(t *testing.T) {
	interceptor := AuthUnary(newValidator(t), map[string]bool{"/grpc.health.v1.Health/Check": true})
	_, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
}

func TestAuthUnary_MissingOrInvalidToken(t *testing.T) {
	interceptor := AuthUnary(newValidator(t), nil)
	for name, ctx := range map[string]context.Context{
		"no metadata":  context.Background(),
		"no bearer":    withAuth("Basic abc"),
		"empty bearer": withAuth("Bearer "),
		"bad token":    withAuth("Bearer not-a-jwt"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := interceptor(ctx, "req", &grpc.UnaryServerInfo{FullMethod: testMethod}, okHandler)
			if status.Code(err) != codes.Unauthenticated {
				t.Errorf("status code = %v, want %v", status.Code(err), codes.Unauthenticated)
			}
		})
	}
}

func TestAuthUnary_ValidToken(t *testing.T) {
	v := newValidator(t)
	token, err := v.Issue("identity-provider", "", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	interceptor := AuthUnary(v, nil)
	resp, err := interceptor(withAuth("bEaReR "+token), "req", &grpc.UnaryServerInfo{FullMethod: testMethod}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "identity-provider" {
		t.Errorf("caller = %v, want %q", resp, "identity-provider")
	}
}

func TestParseBearer(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"Bearer":         "",
		"Bearer  tok ":   "tok",
		"bearer tok":     "tok",
		"Token tok":      "",
		"  Bearer tok  ": "tok",
	}
	for in, want := range cases {
		if got := ParseBearer(in); got != want {
			t.Errorf("ParseBearer(%q) = %q, want %q", in, got, want)
		}
	}
}
