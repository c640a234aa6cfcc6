package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	return rec.Body.String()
}

func TestObserveCashPost(t *testing.T) {
	m := New()
	m.ObserveCashPost("buying", 150000, nil)
	m.ObserveCashPost("buying", 0, errors.New("boom"))

	body := scrape(t, m)
	for _, want := range []string{
		`kasir_cash_posts_total{category="buying",result="ok"} 1`,
		`kasir_cash_posts_total{category="buying",result="error"} 1`,
		`kasir_cash_balance_rupiah 150000`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	m.ObserveCheckout("cash", nil)
	m.ObservePublish("cash.posted", nil)
	m.ObserveCashPost("selling", 1, nil)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveCheckout("qris", nil)
	m.ObserveHTTP("GET", "/api/cash", 200, 10*time.Millisecond)

	body := scrape(t, m)
	if !strings.Contains(body, `kasir_checkouts_total{payment_method="qris",result="ok"} 1`) {
		t.Fatalf("checkout counter missing from exposition")
	}
	if !strings.Contains(body, `kasir_http_requests_total{method="GET",path="/api/cash",status="200"} 1`) {
		t.Fatalf("http counter missing from exposition")
	}
}
