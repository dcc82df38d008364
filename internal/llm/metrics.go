package llm

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce  sync.Once
	callsTotal   *prometheus.CounterVec
	callFailures *prometheus.CounterVec
)

// initMetrics registers the prometheus collectors once to avoid duplicate
// registration panics when multiple clients are constructed.
func initMetrics() {
	metricsOnce.Do(func() {
		callsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffline_llm_calls_total",
				Help: "Total model completion calls by provider",
			},
			[]string{"provider"},
		)
		callFailures = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffline_llm_call_failures_total",
				Help: "Failed model completion calls by provider and failure kind",
			},
			[]string{"provider", "kind"},
		)
	})
}

// observeCall records a completed (or failed) provider call.
func observeCall(provider string, err error) {
	initMetrics()
	callsTotal.WithLabelValues(provider).Inc()
	if err != nil {
		callFailures.WithLabelValues(provider, string(KindOf(err))).Inc()
	}
}
