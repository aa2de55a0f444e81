package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Commands executed by the dispatch loop.",
		},
		[]string{"verb", "outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bridgectl",
			Subsystem: "dispatch",
			Name:      "command_duration_seconds",
			Help:      "Command execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"verb", "outcome"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bridgectl",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Commands waiting in the dispatch queue.",
		},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bridgectl",
			Subsystem: "transport",
			Name:      "active_connections",
			Help:      "Open controller connections.",
		},
	)
	droppedReplies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "transport",
			Name:      "dropped_replies_total",
			Help:      "Replies dropped because the origin connection had closed.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsExecuted, commandDuration, queueDepth, activeConnections, droppedReplies)
	})
}

func RecordCommand(verb, outcome string, duration time.Duration) {
	RegisterMetrics()
	commandsExecuted.WithLabelValues(verb, outcome).Inc()
	commandDuration.WithLabelValues(verb, outcome).Observe(duration.Seconds())
}

func SetQueueDepth(depth int) {
	RegisterMetrics()
	queueDepth.Set(float64(depth))
}

func SetActiveConnections(active int64) {
	RegisterMetrics()
	activeConnections.Set(float64(active))
}

func RecordDroppedReply() {
	RegisterMetrics()
	droppedReplies.Inc()
}
