package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes records to the audit topic. The message key is the record's storage key so
// that redelivered records land on the same partition and collapse on insert downstream.
type KafkaSink struct {
	writer Writer
}

var _ Sink = (*KafkaSink)(nil)

// NewKafkaSink creates a synchronous, fully acknowledged writer for topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	})
}

// NewKafkaSinkWithWriter wraps an existing writer.
func NewKafkaSinkWithWriter(w Writer) *KafkaSink {
	return &KafkaSink{writer: w}
}

// Append publishes rec.
func (k *KafkaSink) Append(ctx context.Context, rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Key()),
		Value: value,
		Time:  rec.Timestamp,
		Headers: []kafka.Header{
			{Key: "record_type", Value: []byte(rec.Type)},
		},
	})
}

// Close releases the writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
