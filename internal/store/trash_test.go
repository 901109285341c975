package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/roach88/keepsake/internal/payload"
	"github.com/roach88/keepsake/internal/testutil"
)

func trashItem(id, goalID string, deletedAt time.Time) payload.TrashItem {
	return payload.TrashItem{
		ID:              id,
		OriginalGoalID:  goalID,
		Snapshot:        []byte(`{"id":"` + goalID + `"}`),
		SnapshotVersion: payload.SnapshotVersion,
		SnapshotHash:    "hash-" + id,
		Title:           "Title " + id,
		DeletedAt:       deletedAt,
		Note:            "note " + id,
	}
}

func insertTrash(t *testing.T, s *Store, items ...payload.TrashItem) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		for _, item := range items {
			if err := tx.InsertTrashItem(context.Background(), item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert trash failed: %v", err)
	}
}

func TestTrashItem_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	want := trashItem("t1", "g1", testutil.Time("2024-03-01T12:30:00Z"))
	insertTrash(t, s, want)

	var got payload.TrashItem
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		got, err = tx.GetTrashItem(context.Background(), "t1")
		return err
	})
	if err != nil {
		t.Fatalf("GetTrashItem() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetTrashItem() = %+v, want %+v", got, want)
	}
}

func TestGetTrashItem_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.GetTrashItem(context.Background(), "missing")
		return err
	})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetTrashItem() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListTrashItems_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	insertTrash(t, s,
		trashItem("t-mid", "g1", testutil.Time("2024-03-02T00:00:00Z")),
		trashItem("t-old", "g2", testutil.Time("2024-03-01T00:00:00Z")),
		trashItem("t-new", "g3", testutil.Time("2024-03-03T00:00:00Z")),
	)

	var items []payload.TrashItem
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		items, err = tx.ListTrashItems(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("ListTrashItems() failed: %v", err)
	}

	var ids []string
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	want := []string{"t-new", "t-mid", "t-old"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ListTrashItems() order = %v, want %v", ids, want)
	}
}

func TestPurgeTrashBefore_StrictCutoff(t *testing.T) {
	s := createTestStore(t)
	cutoff := testutil.Time("2024-03-10T00:00:00Z")
	insertTrash(t, s,
		trashItem("t-before", "g1", cutoff.Add(-time.Nanosecond)),
		trashItem("t-at", "g2", cutoff),
		trashItem("t-after", "g3", cutoff.Add(time.Hour)),
	)

	var n int64
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		n, err = tx.PurgeTrashBefore(context.Background(), cutoff)
		return err
	})
	if err != nil {
		t.Fatalf("PurgeTrashBefore() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeTrashBefore() = %d, want 1", n)
	}
	if c := countRows(t, s, "trash_items"); c != 2 {
		t.Errorf("trash_items = %d after purge, want 2", c)
	}
}

func TestPurgeTrashBefore_ComparesInstantsAcrossZones(t *testing.T) {
	s := createTestStore(t)
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation() failed: %v", err)
	}

	// 00:30 in Berlin is 23:30 UTC the day before.
	insertTrash(t, s, trashItem("t1", "g1", time.Date(2024, 3, 10, 0, 30, 0, 0, berlin)))

	err = s.WithTx(context.Background(), func(tx *Tx) error {
		n, err := tx.PurgeTrashBefore(context.Background(), testutil.Time("2024-03-10T00:00:00Z"))
		if n != 1 {
			t.Errorf("PurgeTrashBefore() = %d, want 1", n)
		}
		return err
	})
	if err != nil {
		t.Fatalf("PurgeTrashBefore() failed: %v", err)
	}
}

func TestDeleteTrashItem(t *testing.T) {
	s := createTestStore(t)
	insertTrash(t, s, trashItem("t1", "g1", testutil.Time("2024-03-01T00:00:00Z")))

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		first, err := tx.DeleteTrashItem(context.Background(), "t1")
		if err != nil {
			return err
		}
		second, err := tx.DeleteTrashItem(context.Background(), "t1")
		if err != nil {
			return err
		}
		if !first || second {
			t.Errorf("DeleteTrashItem() = %v then %v, want true then false", first, second)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("DeleteTrashItem() failed: %v", err)
	}
}
