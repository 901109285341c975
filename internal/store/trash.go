package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/keepsake/internal/payload"
)

// InsertTrashItem stores a trash item. Fails on a duplicate item id.
func (t *Tx) InsertTrashItem(ctx context.Context, item payload.TrashItem) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO trash_items
		(id, original_goal_id, snapshot, snapshot_version, snapshot_hash, title, deleted_at, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		item.OriginalGoalID,
		item.Snapshot,
		item.SnapshotVersion,
		item.SnapshotHash,
		item.Title,
		formatTime(item.DeletedAt),
		item.Note,
	)
	if err != nil {
		return fmt.Errorf("insert trash item %s: %w", item.ID, err)
	}
	return nil
}

// GetTrashItem returns one trash item.
// Returns an error wrapping sql.ErrNoRows if the item does not exist.
func (t *Tx) GetTrashItem(ctx context.Context, id string) (payload.TrashItem, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, original_goal_id, snapshot, snapshot_version, snapshot_hash, title, deleted_at, note
		FROM trash_items
		WHERE id = ?
	`, id)
	item, err := scanTrashItem(row)
	if err != nil {
		return payload.TrashItem{}, fmt.Errorf("get trash item %s: %w", id, err)
	}
	return item, nil
}

// ListTrashItems returns every trash item, most recently deleted first.
// Returns an empty (non-nil) slice when the trash is empty.
func (t *Tx) ListTrashItems(ctx context.Context) ([]payload.TrashItem, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, original_goal_id, snapshot, snapshot_version, snapshot_hash, title, deleted_at, note
		FROM trash_items
		ORDER BY deleted_at DESC, seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list trash items: %w", err)
	}
	defer rows.Close()

	items := []payload.TrashItem{}
	for rows.Next() {
		item, err := scanTrashItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list trash items: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trash items: %w", err)
	}
	return items, nil
}

// DeleteTrashItem removes a trash item. Reports whether an item was deleted.
func (t *Tx) DeleteTrashItem(ctx context.Context, id string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM trash_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete trash item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete trash item %s: %w", id, err)
	}
	return n > 0, nil
}

// PurgeTrashBefore deletes every trash item deleted strictly before cutoff.
// An item deleted exactly at cutoff is kept. Returns the number removed.
func (t *Tx) PurgeTrashBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM trash_items WHERE deleted_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge trash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge trash: %w", err)
	}
	return n, nil
}

func scanTrashItem(row rowScanner) (payload.TrashItem, error) {
	var (
		item      payload.TrashItem
		deletedAt string
	)
	if err := row.Scan(&item.ID, &item.OriginalGoalID, &item.Snapshot, &item.SnapshotVersion,
		&item.SnapshotHash, &item.Title, &deletedAt, &item.Note); err != nil {
		return payload.TrashItem{}, err
	}
	var err error
	if item.DeletedAt, err = parseTime(deletedAt); err != nil {
		return payload.TrashItem{}, err
	}
	return item, nil
}
