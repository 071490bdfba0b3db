package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "funding_arb_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	newCounter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)
		return c
	}

	m := &Metrics{
		PositionsOpened:      promCounter{newCounter("positions_opened_total", "Total hedge positions opened.")},
		PositionsClosed:      promCounter{newCounter("positions_closed_total", "Total hedge positions closed.")},
		LegsExecuted:         promCounter{newCounter("legs_executed_total", "Total execution legs completed.")},
		LegsFailed:           promCounter{newCounter("legs_failed_total", "Total execution legs that failed.")},
		PartialOpens:         promCounter{newCounter("partial_opens_total", "Total open attempts where only one leg succeeded.")},
		LedgerAppendFailures: promCounter{newCounter("ledger_append_failures_total", "Total failed ledger appends.")},
		PairsSkipped:         promCounter{newCounter("pairs_skipped_total", "Total pair evaluations skipped for missing data or exposure caps.")},
		CycleErrors:          promCounter{newCounter("cycle_errors_total", "Total trading cycles that ended with an error.")},
	}

	return &Prometheus{Metrics: m, registry: registry}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
