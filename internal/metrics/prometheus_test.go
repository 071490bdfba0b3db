package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func counterValue(t *testing.T, c Counter) float64 {
	t.Helper()
	pc, ok := c.(promCounter)
	if !ok {
		t.Fatalf("counter %T is not prometheus-backed", c)
	}
	return testutil.ToFloat64(pc.counter)
}

func TestPrometheusCounters(t *testing.T) {
	p := NewPrometheus()
	m := p.Metrics

	m.PositionsOpened.Inc()
	m.PositionsOpened.Inc()
	m.LegsFailed.Inc()

	if got := counterValue(t, m.PositionsOpened); got != 2 {
		t.Fatalf("positions opened = %v, want 2", got)
	}
	if got := counterValue(t, m.LegsFailed); got != 1 {
		t.Fatalf("legs failed = %v, want 1", got)
	}
	if got := counterValue(t, m.PositionsClosed); got != 0 {
		t.Fatalf("positions closed = %v, want 0", got)
	}
}

func TestPrometheusHandler(t *testing.T) {
	p := NewPrometheus()
	p.Metrics.CycleErrors.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "funding_arb_bot_cycle_errors_total 1") {
		t.Fatalf("exposition missing counter:\n%s", body)
	}
}

func TestNoopMetricsAreSafe(t *testing.T) {
	m := NewNoop()
	// Every counter must be wired; a nil field would panic here.
	for _, c := range []Counter{
		m.PositionsOpened, m.PositionsClosed, m.LegsExecuted, m.LegsFailed,
		m.PartialOpens, m.LedgerAppendFailures, m.PairsSkipped, m.CycleErrors,
	} {
		c.Inc()
	}
}
