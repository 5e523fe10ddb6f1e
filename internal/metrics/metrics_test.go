package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Exposed(t *testing.T) {
	m := New()
	m.CoinsCredited.WithLabelValues(SourceAd).Add(3)
	m.OperationErrors.WithLabelValues("claim_daily", "already_claimed").Inc()

	if got := testutil.ToFloat64(m.CoinsCredited.WithLabelValues(SourceAd)); got != 3 {
		t.Fatalf("coins credited = %v, want 3", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), `rewards_coins_credited_total{source="ad"} 3`) {
		t.Fatalf("metrics output missing credited counter:\n%s", body)
	}
	if !strings.Contains(string(body), `rewards_operation_errors_total{operation="claim_daily",reason="already_claimed"} 1`) {
		t.Fatalf("metrics output missing error counter:\n%s", body)
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.AdsWatched.Inc()

	if got := testutil.ToFloat64(b.AdsWatched); got != 0 {
		t.Fatalf("registries must be independent, got %v", got)
	}
}
