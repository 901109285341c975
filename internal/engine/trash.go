package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/roach88/keepsake/internal/payload"
	"github.com/roach88/keepsake/internal/store"
)

// MoveToTrash snapshots a live goal into a new trash item and deletes the
// goal, as one transaction.
//
// The goal's updatedAt is bumped to now, the goal subtree is serialized into
// the snapshot, the trash item is stored, the goal's notifications are
// cancelled and the goal is deleted. Failure at any step rolls everything
// back, including (best-effort) re-scheduling the goal's reminders if they
// had already been cancelled.
func (e *Engine) MoveToTrash(ctx context.Context, goalID, note string) (payload.TrashItem, error) {
	ctx, span := e.tracer.Start(ctx, "engine.MoveToTrash")
	defer span.End()
	span.SetAttributes(attribute.String("keepsake.goal_id", goalID))

	now := e.clock.Now()
	var (
		item      payload.TrashItem
		goal      payload.Goal
		cancelled bool
	)
	err := e.mutate(ctx, "move to trash", func(ctx context.Context, tx *store.Tx) error {
		g, err := tx.GetGoal(ctx, goalID)
		if errors.Is(err, sql.ErrNoRows) {
			return NewNotFoundError("goal", goalID)
		}
		if err != nil {
			return err
		}
		g.UpdatedAt = notBefore(now, g.CreatedAt)
		goal = g

		snapshot, err := payload.MarshalGoal(g)
		if err != nil {
			return err
		}
		hash, err := payload.SnapshotHash(snapshot)
		if err != nil {
			return err
		}

		item = payload.TrashItem{
			ID:              e.ids.Generate(),
			OriginalGoalID:  g.ID,
			Snapshot:        snapshot,
			SnapshotVersion: payload.SnapshotVersion,
			SnapshotHash:    hash,
			Title:           g.Title,
			DeletedAt:       now,
			Note:            note,
		}
		if err := tx.InsertTrashItem(ctx, item); err != nil {
			return err
		}

		if err := e.scheduler.Cancel(ctx, g.ID); err != nil {
			return fmt.Errorf("cancel notifications for %s: %w", g.ID, err)
		}
		cancelled = true

		if _, err := tx.DeleteGoal(ctx, g.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if cancelled && goal.IsActive {
			// Best-effort: the goal is still live, so its reminders should be too.
			if serr := e.scheduler.Schedule(ctx, goal); serr != nil {
				e.logger.Warn("failed to restore notifications after rollback",
					zap.String("goal_id", goalID),
					zap.Error(serr),
				)
			}
		}
		return payload.TrashItem{}, fail(span, err)
	}

	e.logger.Info("goal moved to trash",
		zap.String("goal_id", goalID),
		zap.String("trash_id", item.ID),
	)
	span.SetAttributes(attribute.String("keepsake.trash_id", item.ID))
	return item, nil
}

// RestoreFromTrash reconstitutes a trashed goal under its original
// identifiers and removes the trash item, as one transaction.
//
// Fails with GoalAlreadyExists, mutating nothing, if a live goal already has
// the item's original goal id. The restored goal is active when reactivate is
// set or when it was active at deletion; its updatedAt is the restore time.
// Active goals are re-scheduled after commit (best-effort).
func (e *Engine) RestoreFromTrash(ctx context.Context, trashID string, reactivate bool) (payload.Goal, error) {
	ctx, span := e.tracer.Start(ctx, "engine.RestoreFromTrash")
	defer span.End()
	span.SetAttributes(
		attribute.String("keepsake.trash_id", trashID),
		attribute.Bool("keepsake.reactivate", reactivate),
	)

	now := e.clock.Now()
	var goal payload.Goal
	err := e.mutate(ctx, "restore from trash", func(ctx context.Context, tx *store.Tx) error {
		item, err := tx.GetTrashItem(ctx, trashID)
		if errors.Is(err, sql.ErrNoRows) {
			return NewNotFoundError("trash item", trashID)
		}
		if err != nil {
			return err
		}

		g, err := openSnapshot(item)
		if err != nil {
			return err
		}

		exists, err := tx.GoalExists(ctx, g.ID)
		if err != nil {
			return err
		}
		if exists {
			return NewGoalAlreadyExistsError(g.ID)
		}

		g.IsActive = reactivate || g.IsActive
		g.UpdatedAt = notBefore(now, g.CreatedAt)
		if err := tx.InsertGoal(ctx, g); err != nil {
			return err
		}
		if _, err := tx.DeleteTrashItem(ctx, item.ID); err != nil {
			return err
		}
		goal = g
		return nil
	})
	if err != nil {
		return payload.Goal{}, fail(span, err)
	}

	e.logger.Info("goal restored from trash",
		zap.String("goal_id", goal.ID),
		zap.String("trash_id", trashID),
		zap.Bool("active", goal.IsActive),
	)
	e.scheduleGoals(ctx, []payload.Goal{goal})
	return goal, nil
}

// openSnapshot decodes and verifies a trash item's snapshot.
func openSnapshot(item payload.TrashItem) (payload.Goal, error) {
	if item.SnapshotVersion > payload.SnapshotVersion {
		return payload.Goal{}, &payload.UnsupportedVersionError{
			Version:   item.SnapshotVersion,
			Supported: payload.SnapshotVersion,
		}
	}
	// Items written before snapshots were hashed carry an empty hash.
	if item.SnapshotHash != "" {
		hash, err := payload.SnapshotHash(item.Snapshot)
		if err != nil {
			return payload.Goal{}, &payload.MalformedError{Reason: "trash snapshot", Err: err}
		}
		if hash != item.SnapshotHash {
			return payload.Goal{}, &payload.MalformedError{Reason: fmt.Sprintf("trash item %s: snapshot hash mismatch", item.ID)}
		}
	}

	g, err := payload.UnmarshalGoal(item.Snapshot)
	if err != nil {
		return payload.Goal{}, err
	}
	if g.ID != item.OriginalGoalID {
		return payload.Goal{}, &payload.MalformedError{
			Reason: fmt.Sprintf("trash item %s: snapshot holds goal %s, want %s", item.ID, g.ID, item.OriginalGoalID),
		}
	}
	return g, nil
}

// PermanentlyDelete removes a trash item outright. Irreversible.
func (e *Engine) PermanentlyDelete(ctx context.Context, trashID string) error {
	ctx, span := e.tracer.Start(ctx, "engine.PermanentlyDelete")
	defer span.End()
	span.SetAttributes(attribute.String("keepsake.trash_id", trashID))

	err := e.mutate(ctx, "permanently delete", func(ctx context.Context, tx *store.Tx) error {
		deleted, err := tx.DeleteTrashItem(ctx, trashID)
		if err != nil {
			return err
		}
		if !deleted {
			return NewNotFoundError("trash item", trashID)
		}
		return nil
	})
	if err != nil {
		return fail(span, err)
	}

	e.logger.Info("trash item permanently deleted", zap.String("trash_id", trashID))
	return nil
}

// PurgeOldTrashItems deletes every trash item deleted strictly before
// now - olderThanDays days and returns how many were removed. An item exactly
// at the boundary is kept. Running it again is a no-op.
func (e *Engine) PurgeOldTrashItems(ctx context.Context, olderThanDays int) (int, error) {
	ctx, span := e.tracer.Start(ctx, "engine.PurgeOldTrashItems")
	defer span.End()
	span.SetAttributes(attribute.Int("keepsake.older_than_days", olderThanDays))

	if olderThanDays < 0 {
		return 0, fail(span, fmt.Errorf("olderThanDays must not be negative, got %d", olderThanDays))
	}

	cutoff := e.clock.Now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
	var purged int64
	err := e.mutate(ctx, "purge trash", func(ctx context.Context, tx *store.Tx) error {
		var err error
		purged, err = tx.PurgeTrashBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, fail(span, err)
	}

	if purged > 0 {
		e.logger.Info("purged trash",
			zap.Int64("items", purged),
			zap.Time("cutoff", cutoff),
		)
	}
	span.SetAttributes(attribute.Int64("keepsake.purged", purged))
	return int(purged), nil
}

// ListTrash returns every trash item, most recently deleted first.
func (e *Engine) ListTrash(ctx context.Context) ([]payload.TrashItem, error) {
	ctx, span := e.tracer.Start(ctx, "engine.ListTrash")
	defer span.End()

	var items []payload.TrashItem
	err := e.read(ctx, "list trash", func(ctx context.Context, tx *store.Tx) error {
		var err error
		items, err = tx.ListTrashItems(ctx)
		return err
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return items, nil
}
