package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notifFanoutTotal, housekeepingDeleted) }

var notifFanoutTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_fanout_total",
		Help: "Notifications written to watchers on job resolution, by type.",
	},
	[]string{"type"}, // 'success', 'error'
)

var housekeepingDeleted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "housekeeping_deleted_total",
		Help: "Rows removed by periodic cleanup, by entity.",
	},
	[]string{"entity"}, // 'notifications', 'jobs'
)

func AddNotificationsFanout(kind string, n int) {
	notifFanoutTotal.WithLabelValues(norm(kind)).Add(float64(n))
}

func AddHousekeepingDeleted(entity string, n int) {
	housekeepingDeleted.WithLabelValues(norm(entity)).Add(float64(n))
}
