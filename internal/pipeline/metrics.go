package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce      sync.Once
	generationsTotal *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		generationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffline_plan_generations_total",
				Help: "Plan generation runs by approach and outcome",
			},
			[]string{"approach", "outcome"},
		)
	})
}

func observeGeneration(approach string, ok bool) {
	initMetrics()
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	generationsTotal.WithLabelValues(approach, outcome).Inc()
}
