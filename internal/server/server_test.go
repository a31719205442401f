package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lernia/lernia/internal/log"
)

func newTestServer() *Server {
	return NewServer(nil, &mockRetriever{}, &mockAnswerer{fragments: []string{"ok"}},
		&mockIngestor{}, &mockBackfiller{}, &mockCorpus{}, log.NewNop())
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer()
	handler := srv.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"liveness", http.MethodGet, "/health", http.StatusOK},
		{"readiness without pool", http.MethodGet, "/ready", http.StatusServiceUnavailable},
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound},
		{"ask wrong method", http.MethodGet, "/api/ask", http.StatusMethodNotAllowed},
		{"structure", http.MethodGet, "/api/structure", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := chain(panicking, recoveryMiddleware(log.NewNop()), loggingMiddleware(log.NewNop()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 after panic", w.Code)
	}
}
