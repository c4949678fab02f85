package consumer

import (
	"context"

	"example.com/activeaging/internal/audit"
)

// SinkHandler writes consumed records into an audit sink, normally the Postgres audit store.
// Redelivered records are absorbed by the sink's {type, id} idempotency.
type SinkHandler struct {
	sink audit.Sink
}

// NewSinkHandler constructs a handler backed by sink.
func NewSinkHandler(sink audit.Sink) *SinkHandler {
	return &SinkHandler{sink: sink}
}

// Handle appends the record.
func (h *SinkHandler) Handle(ctx context.Context, msg Message) error {
	return h.sink.Append(ctx, msg.Record)
}
