package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRouter_HealthWithoutDB(t *testing.T) {
	server := newTestServer(t, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	server := newTestServer(t, time.Hour)

	// メトリクスを1件記録してから/metricsを確認する
	server.do(t, http.MethodPost, "/signup", "", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "authgate_signup_total") {
		t.Error("expected authgate_signup_total in metrics output")
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	server := newTestServer(t, time.Hour)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	server.handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected Access-Control-Allow-Origin: %s", got)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	server := newTestServer(t, time.Hour)

	w := server.do(t, http.MethodGet, "/hello", "", nil)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("unexpected X-Content-Type-Options: %s", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("unexpected X-Frame-Options: %s", got)
	}
}

func TestRouter_HelloAcceptsGetAndPost(t *testing.T) {
	server := newTestServer(t, time.Hour)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := server.do(t, method, "/hello", "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s /hello: expected status 200, got %d", method, w.Code)
		}
	}
}

func TestRouter_UnknownRouteReturns404(t *testing.T) {
	server := newTestServer(t, time.Hour)

	w := server.do(t, http.MethodGet, "/no/such/route", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}
