package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/roach88/keepsake/internal/notify"
	"github.com/roach88/keepsake/internal/payload"
	"github.com/roach88/keepsake/internal/store"
)

// DefaultRetentionDays is how long a trashed goal stays restorable.
const DefaultRetentionDays = 30

const instrumentationName = "github.com/roach88/keepsake/internal/engine"

// Engine runs export, import and trash operations against one store.
//
// Thread-safety model:
//   - Mutating operations take the write lock and never interleave.
//   - Export and ListTrash take the read lock and may run concurrently with
//     each other, but never alongside a mutation.
type Engine struct {
	mu        sync.RWMutex
	store     *store.Store
	scheduler notify.Scheduler
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger
	tracer    trace.Tracer
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithScheduler sets the notification scheduler. Default: notify.Nop.
func WithScheduler(s notify.Scheduler) EngineOption {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithClock sets the wall clock. Default: SystemClock.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the trash item id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTracer sets the tracer. Default: the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     s,
		scheduler: notify.Nop{},
		clock:     SystemClock{},
		ids:       UUIDv7Generator{},
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.tracer == nil {
		e.tracer = otel.Tracer(instrumentationName)
	}
	return e
}

// mutate runs fn as one store transaction under the write lock.
//
// The transaction context is detached from ctx so a cancelled caller cannot
// abort a transaction that has already begun.
func (e *Engine) mutate(ctx context.Context, op string, fn func(ctx context.Context, tx *store.Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	txCtx := context.WithoutCancel(ctx)
	err := e.store.WithTx(txCtx, func(tx *store.Tx) error {
		return fn(txCtx, tx)
	})
	if err != nil {
		return classify(op, err)
	}
	return nil
}

// read runs fn as one store transaction under the read lock.
func (e *Engine) read(ctx context.Context, op string, fn func(ctx context.Context, tx *store.Tx) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		return fn(ctx, tx)
	})
	if err != nil {
		return classify(op, err)
	}
	return nil
}

// classify passes typed engine and payload errors through unchanged and
// wraps everything else as a rolled-back store failure.
func classify(op string, err error) error {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return err
	}
	if payload.IsMalformed(err) || payload.IsUnsupportedVersion(err) {
		return err
	}
	return NewStoreError(op, err)
}

// fail records err on span and returns it.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// notBefore returns t, or floor if t is earlier. Used to keep a goal's
// updatedAt from falling before its createdAt when the clock is behind.
func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

// scheduleGoals asks the scheduler to (re)install reminders for every active
// goal. Failures are logged and counted; they never undo a committed write.
func (e *Engine) scheduleGoals(ctx context.Context, goals []payload.Goal) int {
	failures := 0
	for _, g := range goals {
		if !g.IsActive {
			continue
		}
		if err := e.scheduler.Schedule(ctx, g); err != nil {
			failures++
			e.logger.Warn("failed to schedule notifications",
				zap.String("goal_id", g.ID),
				zap.Error(err),
			)
		}
	}
	return failures
}

// cancelGoals asks the scheduler to remove reminders for every goal id.
func (e *Engine) cancelGoals(ctx context.Context, goalIDs []string) int {
	failures := 0
	for _, id := range goalIDs {
		if err := e.scheduler.Cancel(ctx, id); err != nil {
			failures++
			e.logger.Warn("failed to cancel notifications",
				zap.String("goal_id", id),
				zap.Error(err),
			)
		}
	}
	return failures
}
