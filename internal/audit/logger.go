package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/activeaging/internal/observability"
)

// DefaultWriteTimeout bounds a single background write.
const DefaultWriteTimeout = 5 * time.Second

// Option configures a Logger.
type Option func(*Logger)

// WithLogger sets the operational logger that receives write failures.
func WithLogger(l *zap.Logger) Option {
	return func(a *Logger) {
		if l != nil {
			a.log = l
		}
	}
}

// WithWriteTimeout bounds each background write.
func WithWriteTimeout(d time.Duration) Option {
	return func(a *Logger) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Logger) { a.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(fn func() string) Option {
	return func(a *Logger) { a.newID = fn }
}

// Logger writes records to a Sink on tracked background goroutines.
//
// Audit writes are best effort: a failed write is logged and counted, then dropped. The user's
// response never waits on or fails because of the audit trail. Close drains writes still in
// flight so a clean shutdown loses nothing.
type Logger struct {
	sink    Sink
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
	newID   func() string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ Recorder = (*Logger)(nil)

// NewLogger constructs a Logger over sink.
func NewLogger(sink Sink, opts ...Option) *Logger {
	l := &Logger{
		sink:    sink,
		log:     zap.NewNop(),
		timeout: DefaultWriteTimeout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogRecommendation records content shown to the user.
func (l *Logger) LogRecommendation(ctx context.Context, userID string, p Recommendation) {
	l.emit(ctx, TypeRecommendation, userID, p)
}

// LogEngineCall records a planning-engine invocation.
func (l *Logger) LogEngineCall(ctx context.Context, userID string, p EngineCall) {
	l.emit(ctx, TypeEngineCall, userID, p)
}

// LogLLMInteraction records a model call.
func (l *Logger) LogLLMInteraction(ctx context.Context, userID string, p LLMInteraction) {
	l.emit(ctx, TypeLLMInteraction, userID, p)
}

// LogSafetyIntervention records a safety verdict.
func (l *Logger) LogSafetyIntervention(ctx context.Context, userID string, p SafetyIntervention) {
	l.emit(ctx, TypeSafetyIntervention, userID, p)
}

func (l *Logger) emit(ctx context.Context, typ Type, userID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		l.log.Error("audit payload encoding failed", zap.String("type", string(typ)), zap.Error(err))
		observability.RecordAuditWrite(string(typ), "error", time.Time{})
		return
	}
	rec := Record{
		ID:        l.newID(),
		Type:      typ,
		Timestamp: l.now().UTC(),
		UserID:    userID,
		Payload:   body,
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.log.Warn("audit logger closed, dropping record", zap.String("type", string(typ)), zap.String("id", rec.ID))
		observability.RecordAuditWrite(string(typ), "dropped", time.Time{})
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()

	// The write outlives the request: cancellation of ctx must not abort it.
	wctx := context.WithoutCancel(ctx)
	go func() {
		defer l.wg.Done()
		l.write(wctx, rec)
	}()
}

func (l *Logger) write(ctx context.Context, rec Record) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("audit sink panicked", zap.String("type", string(rec.Type)), zap.String("id", rec.ID), zap.Any("panic", r))
			observability.RecordAuditWrite(string(rec.Type), "error", time.Time{})
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.sink.Append(ctx, rec); err != nil {
		l.log.Error("audit write failed",
			zap.String("type", string(rec.Type)),
			zap.String("id", rec.ID),
			zap.String("user_id", rec.UserID),
			zap.Error(err),
		)
		observability.RecordAuditWrite(string(rec.Type), "error", time.Time{})
		return
	}
	observability.RecordAuditWrite(string(rec.Type), "ok", rec.Timestamp)
}

// Close stops accepting records and waits for in-flight writes or ctx expiry.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit drain interrupted: %w", ctx.Err())
	}
}
