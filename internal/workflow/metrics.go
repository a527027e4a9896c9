package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversion_workflow_settlements_total",
		Help: "Settlements driven by the runner, by final result",
	}, []string{"result"})

	LegAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversion_workflow_leg_attempts_total",
		Help: "Leg request attempts, by leg and terminal poll status",
	}, []string{"leg", "status"})

	LegDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conversion_workflow_leg_duration_seconds",
		Help:    "Time from first request to terminal status for a leg",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"leg"})
)
