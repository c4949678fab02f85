package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coaching_pipeline",
		Subsystem: "audit_consumer",
		Name:      "messages_processed_total",
		Help:      "Number of audit records persisted from Kafka.",
	}, []string{"topic", "record_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coaching_pipeline",
		Subsystem: "audit_consumer",
		Name:      "handler_errors_total",
		Help:      "Number of failed persistence attempts grouped by topic and record type.",
	}, []string{"topic", "record_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coaching_pipeline",
		Subsystem: "audit_consumer",
		Name:      "decode_errors_total",
		Help:      "Number of decode failures per topic.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "coaching_pipeline",
		Subsystem: "audit_consumer",
		Name:      "last_record_timestamp_seconds",
		Help:      "Unix timestamp of the most recent persisted audit record per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastMessageGauge)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, string(msg.Record.Type)).Inc()
	if !msg.Record.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Record.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, string(msg.Record.Type)).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
