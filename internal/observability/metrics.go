package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	logPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "skincycle",
		Subsystem: "persistence",
		Name:      "last_log_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent daily log write.",
	})
	transitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skincycle",
		Subsystem: "adherence",
		Name:      "transitions_total",
		Help:      "Routine completion transitions, labeled by period and direction.",
	}, []string{"period", "transition"})
	rescueCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skincycle",
		Subsystem: "rescue",
		Name:      "toggles_total",
		Help:      "Rescue mode activations and deactivations.",
	}, []string{"action"})
	rescueSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "skincycle",
		Subsystem: "rescue",
		Name:      "active_sessions",
		Help:      "Sessions currently displaying the rescue routine.",
	})
)

func init() {
	prometheus.MustRegister(logPersistGauge, transitionCounter, rescueCounter, rescueSessionsGauge)
}

// RecordLogPersisted updates the persistence watermark gauge.
func RecordLogPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	logPersistGauge.Set(float64(ts.Unix()))
}

// RecordTransition counts a completed or reopened period.
func RecordTransition(period, transition string) {
	transitionCounter.WithLabelValues(period, transition).Inc()
}

// RecordRescueToggle counts a rescue activation ("activate") or deactivation ("deactivate")
// and publishes the number of sessions currently in rescue mode.
func RecordRescueToggle(action string, activeSessions int) {
	rescueCounter.WithLabelValues(action).Inc()
	rescueSessionsGauge.Set(float64(activeSessions))
}
