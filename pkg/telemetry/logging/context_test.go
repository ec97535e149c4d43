package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID() on empty context = %q", got)
	}
	if got := GetPolicyVersion(ctx); got != "" {
		t.Errorf("GetPolicyVersion() on empty context = %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithPolicyVersion(ctx, "v-1")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}
	if got := GetPolicyVersion(ctx); got != "v-1" {
		t.Errorf("GetPolicyVersion() = %q, want %q", got, "v-1")
	}
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON log output %q: %v", buf.String(), err)
	}
	return record
}

func TestFromContext(t *testing.T) {
	t.Run("attaches request fields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		base := slog.New(slog.NewJSONHandler(buf, nil))

		ctx := WithRequestID(context.Background(), "req-9")
		FromContext(ctx, base).Info("handled")

		record := decodeRecord(t, buf)
		if record["request_id"] != "req-9" {
			t.Errorf("request_id = %v", record["request_id"])
		}
		if _, ok := record["trace_id"]; ok {
			t.Error("trace_id set without a span")
		}
	})

	t.Run("prefers stored logger", func(t *testing.T) {
		stored, fallback := &bytes.Buffer{}, &bytes.Buffer{}
		ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(stored, nil)))

		FromContext(ctx, slog.New(slog.NewJSONHandler(fallback, nil))).Info("handled")

		if stored.Len() == 0 || fallback.Len() != 0 {
			t.Errorf("stored = %q, fallback = %q", stored.String(), fallback.String())
		}
	})

	t.Run("attaches span context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		base := slog.New(slog.NewJSONHandler(buf, nil))

		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{1, 2, 3},
			SpanID:     trace.SpanID{4, 5, 6},
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)
		FromContext(ctx, base).Info("handled")

		record := decodeRecord(t, buf)
		if record["trace_id"] != sc.TraceID().String() || record["span_id"] != sc.SpanID().String() {
			t.Errorf("record = %v", record)
		}
	})

	t.Run("nil fallback uses default", func(t *testing.T) {
		if FromContext(context.Background(), nil) == nil {
			t.Error("FromContext() returned nil")
		}
	})
}
