package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/roach88/keepsake/internal/payload"
	"github.com/roach88/keepsake/internal/store"
)

// Export reads every live goal with its full subtree in one consistent read
// and returns them as a current-version payload, oldest goal first.
//
// Export has no side effects. It fails only when the store read fails.
func (e *Engine) Export(ctx context.Context) (*payload.Payload, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Export")
	defer span.End()

	var goals []payload.Goal
	err := e.read(ctx, "export", func(ctx context.Context, tx *store.Tx) error {
		var err error
		goals, err = tx.ListGoals(ctx)
		return err
	})
	if err != nil {
		return nil, fail(span, err)
	}

	p := payload.New(e.clock.Now())
	p.Goals = goals

	span.SetAttributes(
		attribute.Int("keepsake.goals", len(p.Goals)),
		attribute.Int("keepsake.data_points", p.DataPointCount()),
	)
	e.logger.Debug("exported store",
		zap.Int("goals", len(p.Goals)),
		zap.Int("data_points", p.DataPointCount()),
	)
	return p, nil
}
