package oracle

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	oracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ampclimb_oracle_calls_total",
		Help: "Oracle calls by oracle name and result",
	}, []string{"oracle", "result"})

	oracleSequences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ampclimb_oracle_sequences_total",
		Help: "Sequences submitted to the oracle",
	}, []string{"oracle"})

	oracleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ampclimb_oracle_call_duration_seconds",
		Help:    "Oracle call latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"oracle"})
)

// Instrumented records call counts and latency for Inner.
type Instrumented struct {
	Inner Oracle
	Name  string
}

func (o Instrumented) ScoreMany(ctx context.Context, sequences []string) ([]float64, error) {
	start := time.Now()
	scores, err := o.Inner.ScoreMany(ctx, sequences)
	oracleDuration.WithLabelValues(o.Name).Observe(time.Since(start).Seconds())
	oracleSequences.WithLabelValues(o.Name).Add(float64(len(sequences)))
	if err != nil {
		oracleCalls.WithLabelValues(o.Name, "error").Inc()
		return nil, err
	}
	oracleCalls.WithLabelValues(o.Name, "ok").Inc()
	return scores, nil
}
