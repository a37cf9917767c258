package logger

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAccessMiddlewareRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	var seen string
	h := AccessMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"propagated", "req-123"},
		{"generated", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			r := httptest.NewRequest(http.MethodGet, "/api/parse", nil)
			if tt.header != "" {
				r.Header.Set("X-Request-Id", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if seen == "" || w.Header().Get("X-Request-Id") != seen {
				t.Fatalf("request id: ctx %q, header %q", seen, w.Header().Get("X-Request-Id"))
			}
			if tt.header != "" && seen != tt.header {
				t.Errorf("request id = %q, want %q", seen, tt.header)
			}
			line := buf.String()
			for _, want := range []string{"http_access", "status=418", "bytes=15", "request_id=" + seen} {
				if !strings.Contains(line, want) {
					t.Errorf("access log %q missing %q", line, want)
				}
			}
		})
	}
}

func TestRequestIDEmpty(t *testing.T) {
	if got := RequestID(WithRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "")); got != "" {
		t.Errorf("RequestID = %q", got)
	}
}
