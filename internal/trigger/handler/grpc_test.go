package handler

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"otp-ceremony/backend/internal/trigger"
)

func dialTrigger(t *testing.T, svc *trigger.Service) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterTriggerServer(srv, NewGRPCServer(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+ServiceName+"/"+method, req, out)
	return out, err
}

func TestGRPC_CreateVerify(t *testing.T) {
	svc, sink := newService(t, nil)
	conn := dialTrigger(t, svc)

	created, err := invoke(t, conn, "Create", map[string]interface{}{"subject": "B@x.com", "session": []interface{}{}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	private := created.Fields["privateChallengeParameters"].GetStructValue()
	if private == nil || private.Fields["digest"].GetStringValue() == "" {
		t.Fatalf("create = %v", created)
	}
	if got := created.Fields["publicChallengeParameters"].GetStructValue().Fields["subject"].GetStringValue(); got != "b@x.com" {
		t.Errorf("public subject = %q", got)
	}

	verified, err := invoke(t, conn, "Verify", map[string]interface{}{
		"subject":                    "b@x.com",
		"challengeAnswer":            sink.get("b@x.com"),
		"privateChallengeParameters": private.AsMap(),
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verified.Fields["answerCorrect"].GetBoolValue() {
		t.Error("correct code rejected")
	}
}

func TestGRPC_Define(t *testing.T) {
	svc, _ := newService(t, nil)
	conn := dialTrigger(t, svc)

	out, err := invoke(t, conn, "Define", map[string]interface{}{"session": []interface{}{
		map[string]interface{}{"challengeName": "SRP_A"},
	}})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if got := out.Fields["decision"].GetStringValue(); got != "NATIVE_VERIFIER" {
		t.Errorf("decision = %q", got)
	}

	out, err = invoke(t, conn, "Define", map[string]interface{}{})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if got := out.Fields["decision"].GetStringValue(); got != "REJECT" {
		t.Errorf("malformed decision = %q", got)
	}
}

func TestGRPC_CreateErrorCodes(t *testing.T) {
	svc, _ := newService(t, nil)
	conn := dialTrigger(t, svc)
	if _, err := invoke(t, conn, "Create", map[string]interface{}{}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing subject: code = %v", status.Code(err))
	}

	down, _ := newService(t, downRepo{})
	conn = dialTrigger(t, down)
	if _, err := invoke(t, conn, "Create", map[string]interface{}{"subject": "a@x.com"}); status.Code(err) != codes.Unavailable {
		t.Errorf("store down: code = %v", status.Code(err))
	}
}

type recordingRegistrar struct{ names []string }

func (r *recordingRegistrar) RegisterService(desc *grpc.ServiceDesc, _ interface{}) {
	r.names = append(r.names, desc.ServiceName)
}

func TestRegisterTriggerServer(t *testing.T) {
	reg := &recordingRegistrar{}
	RegisterTriggerServer(reg, NewGRPCServer(nil))
	if len(reg.names) != 1 || reg.names[0] != ServiceName {
		t.Errorf("registered = %v", reg.names)
	}
}
