package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{" DEBUG ", zerolog.DebugLevel},
		{"nope", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", Service: "otp", Env: "test", Writer: &buf})
	l.Info().Str("k", "v").Msg("hello")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("Unmarshal: %v (%s)", err, buf.String())
	}
	if m["service"] != "otp" || m["env"] != "test" || m["k"] != "v" || m["message"] != "hello" {
		t.Errorf("unexpected fields: %v", m)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Writer: &buf})
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestC_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Writer: &buf})
	ctx := WithRequestID(context.Background(), "req-1")

	C(ctx, &base).Info().Msg("x")
	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Errorf("log line missing request_id: %s", buf.String())
	}
	if RequestID(ctx) != "req-1" {
		t.Errorf("RequestID = %q, want req-1", RequestID(ctx))
	}
	if WithRequestID(context.Background(), "") != context.Background() {
		t.Error("empty request id should not wrap ctx")
	}
}

func TestSubjectHash(t *testing.T) {
	a := SubjectHash("a@x.com")
	if len(a) != 12 || a != SubjectHash("a@x.com") || a == SubjectHash("b@x.com") {
		t.Errorf("SubjectHash = %q", a)
	}
}
