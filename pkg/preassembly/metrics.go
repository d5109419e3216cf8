package preassembly

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statementsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preassembly_statements_total",
		Help: "Total statements received by preassembly runs",
	})

	statementsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preassembly_statements_rejected_total",
		Help: "Total statements skipped because they failed validation",
	})

	groupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preassembly_groups_total",
		Help: "Total deduplicated statement groups",
	})

	refinementComparisons = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preassembly_refinement_comparisons_total",
		Help: "Total candidate pairs checked for refinement",
	})

	refinementsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preassembly_refinements_total",
		Help: "Total refinement edges kept",
	})

	refinementCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preassembly_refinement_cycles_total",
		Help: "Total refinement cycles excluded from results",
	})

	contradictionsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preassembly_contradictions_total",
		Help: "Total contradicting group pairs",
	})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "preassembly_stage_duration_seconds",
		Help:    "Duration of preassembly stages in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
	}, []string{"stage"})
)
