package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(genRequestsTotal, genJobsResolvedTotal, genJobsClaimedTotal,
		genJobsRetriedTotal, genJobsSweptTotal)
}

var genRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_requests_total",
		Help: "Generation requests by outcome (exists/queued/created/rate_limited/invalid).",
	},
	[]string{"outcome"},
)

var genJobsResolvedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_jobs_resolved_total",
		Help: "Generation jobs resolved to a terminal status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var genJobsClaimedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "generation_jobs_claimed_total",
		Help: "Pending jobs claimed for processing.",
	},
)

var genJobsRetriedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "generation_jobs_retried_total",
		Help: "Jobs re-queued after a transient worker failure.",
	},
)

var genJobsSweptTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "generation_jobs_swept_total",
		Help: "Jobs recovered from a stuck processing state by the sweeper.",
	},
)

func IncGenerationRequest(outcome string) {
	genRequestsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncJobResolved(status string) {
	genJobsResolvedTotal.WithLabelValues(norm(status)).Inc()
}

func AddJobsClaimed(n int) {
	genJobsClaimedTotal.Add(float64(n))
}

func IncJobRetried() { genJobsRetriedTotal.Inc() }

func IncJobSwept() { genJobsSweptTotal.Inc() }
