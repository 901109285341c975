package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/roach88/keepsake/internal/payload"
	"github.com/roach88/keepsake/internal/store"
)

// ImportSummary reports what an import committed.
type ImportSummary struct {
	GoalsImported      int `json:"goalsImported"`
	DataPointsImported int `json:"dataPointsImported"`

	// NotificationFailures counts scheduler calls that failed after commit.
	// The import itself succeeded regardless.
	NotificationFailures int `json:"notificationFailures"`
}

// Import commits p to the store as one atomic transaction.
//
// The payload version and invariants are checked before the transaction
// opens; a failure there returns the payload package's typed error and
// mutates nothing.
//
// With replaceExisting, every live goal is deleted first (trash is kept).
// Without it, a payload goal whose id is already live fails the whole import
// with a GoalAlreadyExists error. Any failure rolls the store back to its
// pre-import state.
//
// After commit, active imported goals are scheduled and reminders of goals
// the import replaced are cancelled. Those calls are best-effort.
func (e *Engine) Import(ctx context.Context, p *payload.Payload, replaceExisting bool) (ImportSummary, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Import")
	defer span.End()

	if p == nil {
		return ImportSummary{}, fail(span, &payload.MalformedError{Reason: "nil payload"})
	}
	span.SetAttributes(
		attribute.Int("keepsake.payload_version", p.Version),
		attribute.Int("keepsake.goals", len(p.Goals)),
		attribute.Bool("keepsake.replace_existing", replaceExisting),
	)

	if err := payload.Validate(p); err != nil {
		return ImportSummary{}, fail(span, err)
	}

	var replaced []string
	err := e.mutate(ctx, "import", func(ctx context.Context, tx *store.Tx) error {
		if replaceExisting {
			ids, err := tx.ListGoalIDs(ctx)
			if err != nil {
				return err
			}
			replaced = ids
			if _, err := tx.DeleteAllGoals(ctx); err != nil {
				return err
			}
		}

		for _, g := range p.Goals {
			if !replaceExisting {
				exists, err := tx.GoalExists(ctx, g.ID)
				if err != nil {
					return err
				}
				if exists {
					return NewGoalAlreadyExistsError(g.ID)
				}
			}
			if err := tx.InsertGoal(ctx, g); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		e.logger.Error("import rolled back", zap.Error(err))
		return ImportSummary{}, fail(span, err)
	}

	summary := ImportSummary{
		GoalsImported:      len(p.Goals),
		DataPointsImported: p.DataPointCount(),
	}
	e.logger.Info("import committed",
		zap.Int("goals", summary.GoalsImported),
		zap.Int("data_points", summary.DataPointsImported),
		zap.Bool("replace_existing", replaceExisting),
	)

	summary.NotificationFailures += e.cancelGoals(ctx, removedIDs(replaced, p.GoalIDs()))
	summary.NotificationFailures += e.scheduleGoals(ctx, p.Goals)
	span.SetAttributes(attribute.Int("keepsake.notification_failures", summary.NotificationFailures))
	return summary, nil
}

// removedIDs returns the ids in before that are not in after.
func removedIDs(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, id := range after {
		keep[id] = true
	}
	var removed []string
	for _, id := range before {
		if !keep[id] {
			removed = append(removed, id)
		}
	}
	return removed
}
