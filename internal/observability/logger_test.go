package observability

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// observe installs an in-memory logger for the duration of the test.
func observe(t *testing.T, redactOn bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core), Options{Redact: redactOn, HashSalt: "pepper"})
	t.Cleanup(func() { SetLogger(zap.NewNop(), Options{Redact: true}) })
	return logs
}

func TestRedactsAndHashesLoggedFields(t *testing.T) {
	logs := observe(t, true)

	Logger().Infow("saved",
		"api_key", "sk-123",
		"user_id", "u1",
		"entry", "I had a rough day",
		"entry_id", "e-1",
		"persona", "sol",
	)

	fields := logs.All()[0].ContextMap()
	if fields["api_key"] != "[REDACTED]" {
		t.Fatalf("api key not redacted: %v", fields["api_key"])
	}
	if s, _ := fields["user_id"].(string); !strings.HasPrefix(s, "hash:") || s == "hash:" {
		t.Fatalf("user id not hashed: %v", fields["user_id"])
	}
	if fields["entry"] != "[REDACTED]" {
		t.Fatalf("journal text not redacted: %v", fields["entry"])
	}
	if fields["entry_id"] != "e-1" || fields["persona"] != "sol" {
		t.Fatalf("plain fields changed: %v", fields)
	}
}

type userID string

func TestRedactsFieldsAddedWith(t *testing.T) {
	logs := observe(t, true)

	ctx := WithRequestID(context.Background(), "req-1")
	LoggerFromContext(ctx).With("session_id", "s1", "user_id", userID("u1")).Infow("step")

	fields := logs.All()[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Fatalf("request id missing: %v", fields)
	}
	for _, key := range []string{"session_id", "user_id"} {
		if s, _ := fields[key].(string); !strings.HasPrefix(s, "hash:") {
			t.Fatalf("%s not hashed: %v", key, fields[key])
		}
	}
	if fields["user_id"] != hashValue("u1") {
		t.Fatalf("typed id hashed differently: %v vs %v", fields["user_id"], hashValue("u1"))
	}
}

func TestRedactionCanBeDisabled(t *testing.T) {
	logs := observe(t, false)

	WithFields("user_id", "u1").Infow("plain", "entry", "text")

	fields := logs.All()[0].ContextMap()
	if fields["user_id"] != "u1" || fields["entry"] != "text" {
		t.Fatalf("fields changed with redaction off: %v", fields)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("got %q", got)
	}
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("nil logger")
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatalf("expected empty id")
	}
}

func TestInitRejectsBadLevel(t *testing.T) {
	if err := Init(Options{Mode: "dev", Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
