package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

func TestRequestLoggerCapturesStatusAndBytes(t *testing.T) {
	rec := &responseRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error": "slot is taken"}`))
	})
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/companies/co-1/appointments", nil))

	if rec.status != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.status, http.StatusConflict)
	}
	if rec.bytes == 0 {
		t.Error("expected written bytes to be counted")
	}
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	handler := RequestLogger(logging.NewText("error"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
