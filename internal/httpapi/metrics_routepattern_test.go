package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK { t.Fatalf("/metrics status=%d", w.Code) }
	return w.Body.String()
}

func TestMetricsLabelByRoutePattern(t *testing.T) {
	h := NewMux(&mockService{})
	_ = do(t, h, http.MethodDelete, "/sessions/m_8080_1", "")
	_ = do(t, h, http.MethodGet, "/no/such/route", "")

	body := scrape(t)
	if !strings.Contains(body, `route="/sessions/{id}"`) { t.Fatalf("route pattern missing:\n%s", body) }
	if strings.Contains(body, "m_8080_1") || strings.Contains(body, "/no/such/route") {
		t.Fatalf("raw paths leaked into metric labels")
	}
}

func TestObserveDefaultsStatus(t *testing.T) {
	observe("/healthz", http.MethodHead, 0, 0)
	if !strings.Contains(scrape(t), `modelctl_http_requests_total{code="200",method="HEAD",route="/healthz"}`) {
		t.Fatalf("implicit 200 not recorded")
	}
}
