package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/keepsake/internal/payload"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustInsert inserts goals in one transaction, failing the test on error.
func mustInsert(t *testing.T, s *Store, goals ...payload.Goal) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		for _, g := range goals {
			if err := tx.InsertGoal(context.Background(), g); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

// listGoals reads every live goal, failing the test on error.
func listGoals(t *testing.T, s *Store) []payload.Goal {
	t.Helper()
	var goals []payload.Goal
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		goals, err = tx.ListGoals(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("ListGoals() failed: %v", err)
	}
	return goals
}

// countRows returns the row count of a table.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}
