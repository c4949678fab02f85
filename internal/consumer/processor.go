// Package consumer reads audit records off Kafka and hands them to durable storage.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/activeaging/internal/audit"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a decoded audit record together with its position in the topic.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Record    audit.Record
}

const (
	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRetryBackoff sets the initial delay between handler retries. It doubles up to 30s.
func WithRetryBackoff(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.backoff = d
		}
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler. A message is
// committed only after the handler accepted it, so a failing store stalls the partition instead
// of skipping records.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *zap.Logger
	backoff time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  zap.NewNop(),
		backoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Warn("fetch error", zap.Error(err))
			continue
		}

		decoded, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Error("decode error",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(decodeErr),
			)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Warn("commit error after decode failure", zap.Error(commitErr))
			}
			continue
		}

		if err := p.handle(ctx, decoded); err != nil {
			return err
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Warn("commit error", zap.Error(commitErr))
		} else {
			recordProcessed(decoded)
		}
	}
}

// handle retries until the handler succeeds or ctx ends.
func (p *Processor) handle(ctx context.Context, msg Message) error {
	delay := p.backoff
	for {
		err := p.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		recordHandlerError(msg)
		p.logger.Warn("handler error",
			zap.String("record_type", string(msg.Record.Type)),
			zap.String("record_id", msg.Record.ID),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryBackoff)
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) == 0 {
		return Message{}, errors.New("empty payload")
	}

	var rec audit.Record
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return Message{}, fmt.Errorf("decode audit record: %w", err)
	}
	if !rec.Type.Valid() {
		return Message{}, fmt.Errorf("unknown record type %q", rec.Type)
	}
	if strings.TrimSpace(rec.ID) == "" {
		return Message{}, errors.New("missing record id")
	}
	if header, ok := headerValue(msg, "record_type"); ok && string(header) != string(rec.Type) {
		return Message{}, fmt.Errorf("record_type header %q does not match payload type %q", header, rec.Type)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = msg.Time
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Record:    rec,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
