package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentInsight, Output: &buf})
	l.Info("hello", FieldCount, 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentInsight {
		t.Fatalf("expected component %q, got %v", ComponentInsight, rec[FieldComponent])
	}
	if rec[FieldCount] != float64(3) {
		t.Fatalf("expected count 3, got %v", rec[FieldCount])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFieldsToSliceSorted(t *testing.T) {
	got := NewFields().WithOperation(OpList).WithError(errors.New("boom")).ToSlice()
	want := []any{FieldError, "boom", FieldOperation, OpList}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
	if s := NewFields().WithError(nil).ToSlice(); len(s) != 0 {
		t.Fatalf("nil error should be skipped, got %v", s)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "text", Output: &buf})

	h := RequestIDMiddleware(base, func(*http.Request) string { return "req_abc" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Fatalf("expected request id in log line, got %q", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != ComponentApp {
		t.Fatalf("expected default app logger, got %+v", l)
	}
}
