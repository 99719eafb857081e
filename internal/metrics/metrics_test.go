package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil collector")
	}

	c.RecordSignup()
	c.RecordLoginSuccess()
	c.RecordLoginFailure("INVALID_CREDENTIALS")
	c.RecordTokenValidation("valid")
	c.RecordHTTPStatus(200)
	c.RecordRequestDuration(10 * time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"authgate_signup_total",
		"authgate_login_success_total",
		"authgate_login_fail_total",
		"authgate_token_validation_total",
		"authgate_http_status_total",
		"authgate_request_duration_seconds",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("expected metric %q to be registered", name)
		}
	}
}

func TestCollector_CounterValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignup()
	c.RecordSignup()
	c.RecordLoginFailure("INVALID_CREDENTIALS")
	c.RecordLoginFailure("INVALID_CREDENTIALS")
	c.RecordLoginFailure("ACCOUNT_INACTIVE")

	if got := testutil.ToFloat64(c.signups); got != 2 {
		t.Errorf("signup count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.loginFail.WithLabelValues("INVALID_CREDENTIALS")); got != 2 {
		t.Errorf("login fail (invalid credentials) = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.loginFail.WithLabelValues("ACCOUNT_INACTIVE")); got != 1 {
		t.Errorf("login fail (inactive) = %v, want 1", got)
	}
}

func TestSetupMetricsRoute_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordSignup()

	handler := SetupMetricsRoute(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "authgate_signup_total") {
		t.Error("expected metrics output to contain authgate_signup_total")
	}
}

func TestHTTPMiddleware_RecordsStatusAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	mw := NewHTTPMiddleware(c)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("401")); got != 1 {
		t.Errorf("http status 401 count = %v, want 1", got)
	}
}
