package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(genTokensIn, genTokensOut, genTokensTotal, genLatencyMs)
}

var (
	genTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_generation_tokens_in",
			Help: "Sum of prompt (input) tokens per provider.",
		},
		[]string{"provider"},
	)

	genTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_generation_tokens_out",
			Help: "Sum of completion (output) tokens per provider.",
		},
		[]string{"provider"},
	)

	genTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_generation_tokens_total",
			Help: "Sum of total tokens per provider.",
		},
		[]string{"provider"},
	)

	genLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "course_generation_latency_ms",
			Help:    "Course generation call latency distribution in milliseconds.",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000},
		},
		[]string{"provider", "success"},
	)
)

// ObserveGeneration records one generator call.
func ObserveGeneration(provider string, tokensIn, tokensOut, tokensTotal int, latencyMs int, success bool) {
	p := norm(provider)
	genTokensIn.WithLabelValues(p).Add(float64(tokensIn))
	genTokensOut.WithLabelValues(p).Add(float64(tokensOut))
	genTokensTotal.WithLabelValues(p).Add(float64(tokensTotal))
	genLatencyMs.WithLabelValues(p, strconv.FormatBool(success)).Observe(float64(latencyMs))
}
