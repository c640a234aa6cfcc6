package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "kasir/internal/log"
	"kasir/internal/metrics"
)

func TestMiddleware_RequestIDAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Component: "test", Output: &buf})
	m := metrics.New()

	var seenID string
	var seenLogger *applog.Logger
	h := NewMiddleware(logger, m, func(*http.Request) string { return "203.0.113.5" }, func(*http.Request) string { return "/api/cash" }).
		Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = GetRequestID(r.Context())
			seenLogger = applog.FromContext(r.Context())
			w.WriteHeader(http.StatusCreated)
			w.WriteHeader(http.StatusInternalServerError)
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cash", nil))

	if !strings.HasPrefix(seenID, "req_") || len(seenID) != 20 {
		t.Fatalf("unexpected generated id %q", seenID)
	}
	if rec.Header().Get(HeaderRequestID) != seenID {
		t.Fatalf("response header %q, handler saw %q", rec.Header().Get(HeaderRequestID), seenID)
	}
	if seenLogger == nil || seenLogger.Component() != applog.ComponentHTTP {
		t.Fatal("handler should receive the request-scoped logger")
	}

	out := buf.String()
	for _, want := range []string{`"request_id":"` + seenID, `"status_code":201`, `"client_ip":"203.0.113.5"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestMiddleware_InboundRequestID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"accepted", "mobile-42", true},
		{"too long", strings.Repeat("x", 65), false},
		{"control characters", "bad\tid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMiddleware(nil, nil, nil, nil).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(HeaderRequestID, tt.inbound)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			got := rec.Header().Get(HeaderRequestID)
			if (got == tt.inbound) != tt.keep {
				t.Fatalf("inbound %q, response id %q, keep=%v", tt.inbound, got, tt.keep)
			}
		})
	}
}

func TestResponseWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	var _ http.Flusher = rw
	rw.Flush()
	if !rec.Flushed {
		t.Fatal("Flush should reach the underlying writer")
	}
}
