package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navigator_sessions_active",
		Help: "Navigation sessions currently held in memory",
	})

	sessionsEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_sessions_ended_total",
		Help: "Navigation sessions that ended, by reason",
	}, []string{"reason"})

	fixesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_fixes_total",
		Help: "Position fixes received, by result",
	}, []string{"result"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_events_total",
		Help: "Navigation events emitted, by kind",
	}, []string{"kind"})

	fixProcessingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "navigator_fix_processing_seconds",
		Help:    "Time spent applying one accepted fix, publishing included",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	publishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_publish_failures_total",
		Help: "Events that could not be delivered, by sink",
	}, []string{"sink"})
)

const (
	endReasonCompleted = "completed"
	endReasonCancelled = "cancelled"
	endReasonExpired   = "expired"
)

// fixResult labels a fix outcome for metrics.
func fixResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case isStale(err):
		return "stale"
	case isInaccurate(err):
		return "inaccurate"
	case isBelowDisplacement(err):
		return "below_displacement"
	default:
		return "rejected"
	}
}
