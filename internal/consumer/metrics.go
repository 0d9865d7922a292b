package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skincycle",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Kafka messages successfully handled.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skincycle",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Handler errors grouped by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skincycle",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Decode failures per topic.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "skincycle",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent processed message per topic.",
	}, []string{"topic"})

	projectedStreak = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skincycle",
		Subsystem: "consumer",
		Name:      "projected_streak_days",
		Help:      "Streak lengths written to adherence snapshots.",
		Buckets:   []float64{0, 1, 3, 7, 14, 30, 60, 120, 365},
	})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastMessageGauge, projectedStreak)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

func recordStreak(days int) {
	projectedStreak.Observe(float64(days))
}
