package climb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ampclimb_climb_steps_total",
		Help: "Climb steps executed by strategy",
	}, []string{"strategy"})

	acceptedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ampclimb_climb_accepted_steps_total",
		Help: "Climb steps that improved the score, by strategy",
	}, []string{"strategy"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ampclimb_climb_runs_total",
		Help: "Finished optimize calls by strategy and final state",
	}, []string{"strategy", "state"})
)
