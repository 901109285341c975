package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/keepsake/internal/payload"
	"github.com/roach88/keepsake/internal/testutil"
)

func TestInsertGoal_RoundTripsEveryField(t *testing.T) {
	s := createTestStore(t)
	want := testutil.RichGoal("goal-rich", testutil.Time("2024-03-01T09:00:00Z"))
	mustInsert(t, s, want)

	var got payload.Goal
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		got, err = tx.GetGoal(context.Background(), "goal-rich")
		return err
	})
	if err != nil {
		t.Fatalf("GetGoal() failed: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetGoal() mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestListGoals_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	goals := listGoals(t, s)
	if goals == nil {
		t.Fatal("ListGoals() returned nil, want empty slice")
	}
	if len(goals) != 0 {
		t.Errorf("ListGoals() returned %d goals, want 0", len(goals))
	}
}

func TestListGoals_OrderedByCreation(t *testing.T) {
	s := createTestStore(t)

	// Inserted out of creation order; two goals share a createdAt.
	mustInsert(t, s,
		testutil.Goal("g-late", "Late", testutil.Time("2024-03-03T00:00:00Z")),
		testutil.Goal("g-early", "Early", testutil.Time("2024-03-01T00:00:00Z")),
		testutil.Goal("g-tie-b", "Tie B", testutil.Time("2024-03-02T00:00:00Z")),
		testutil.Goal("g-tie-a", "Tie A", testutil.Time("2024-03-02T00:00:00Z")),
	)

	goals := listGoals(t, s)
	var ids []string
	for _, g := range goals {
		ids = append(ids, g.ID)
	}

	want := []string{"g-early", "g-tie-b", "g-tie-a", "g-late"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ListGoals() order = %v, want %v", ids, want)
	}
}

func TestListGoals_DataPointsByTimestamp(t *testing.T) {
	s := createTestStore(t)
	at := testutil.Time("2024-03-01T00:00:00Z")
	g := testutil.Goal("g", "G", at)
	g.DataPoints = []payload.DataPoint{
		testutil.DataPoint("g", "dp-b", "g-q", testutil.Time("2024-03-05T00:00:00Z"), payload.NumericValue{Value: 2}),
		testutil.DataPoint("g", "dp-a", "g-q", testutil.Time("2024-03-04T00:00:00Z"), payload.NumericValue{Value: 1}),
	}
	mustInsert(t, s, g)

	got := listGoals(t, s)[0].DataPoints
	if got[0].ID != "dp-a" || got[1].ID != "dp-b" {
		t.Errorf("data points order = [%s %s], want [dp-a dp-b]", got[0].ID, got[1].ID)
	}
}

func TestGetGoal_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.GetGoal(context.Background(), "missing")
		return err
	})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetGoal() error = %v, want sql.ErrNoRows", err)
	}
}

func TestInsertGoal_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	at := testutil.Time("2024-03-01T00:00:00Z")
	mustInsert(t, s, testutil.Goal("g", "G", at))

	other := testutil.Goal("g", "Again", at)
	other.Questions[0].ID = "other-q"
	other.DataPoints = nil
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.InsertGoal(context.Background(), other)
	})
	if err == nil {
		t.Fatal("InsertGoal() with duplicate id succeeded, want error")
	}

	if n := countRows(t, s, "goals"); n != 1 {
		t.Errorf("goals = %d after failed insert, want 1", n)
	}
	if n := countRows(t, s, "questions"); n != 1 {
		t.Errorf("questions = %d after failed insert, want 1", n)
	}
}

func TestInsertGoal_RejectsCreatedAfterUpdated(t *testing.T) {
	s := createTestStore(t)
	g := testutil.Goal("g", "G", testutil.Time("2024-03-02T00:00:00Z"))
	g.UpdatedAt = testutil.Time("2024-03-01T00:00:00Z")

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.InsertGoal(context.Background(), g)
	})
	if err == nil {
		t.Fatal("InsertGoal() with createdAt > updatedAt succeeded, want CHECK failure")
	}
}

func TestInsertGoal_RejectsQuestionOfAnotherGoal(t *testing.T) {
	s := createTestStore(t)
	at := testutil.Time("2024-03-01T00:00:00Z")
	mustInsert(t, s, testutil.Goal("g1", "One", at))

	g2 := testutil.Goal("g2", "Two", at)
	g2.DataPoints[0].QuestionID = "g1-q"

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.InsertGoal(context.Background(), g2)
	})
	if err == nil {
		t.Fatal("InsertGoal() referencing a foreign question succeeded, want FK failure")
	}
	if n := countRows(t, s, "goals"); n != 1 {
		t.Errorf("goals = %d after rollback, want 1", n)
	}
}

func TestDeleteGoal_Cascades(t *testing.T) {
	s := createTestStore(t)
	at := testutil.Time("2024-03-01T00:00:00Z")
	mustInsert(t, s, testutil.RichGoal("g1", at), testutil.Goal("g2", "Two", at))

	var deleted bool
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		deleted, err = tx.DeleteGoal(context.Background(), "g1")
		return err
	})
	if err != nil {
		t.Fatalf("DeleteGoal() failed: %v", err)
	}
	if !deleted {
		t.Error("DeleteGoal() reported nothing deleted")
	}

	for table, want := range map[string]int{"goals": 1, "schedules": 1, "questions": 1, "data_points": 1} {
		if n := countRows(t, s, table); n != want {
			t.Errorf("%s = %d after cascade, want %d", table, n, want)
		}
	}
}

func TestDeleteGoal_Missing(t *testing.T) {
	s := createTestStore(t)

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		deleted, err := tx.DeleteGoal(context.Background(), "missing")
		if deleted {
			t.Error("DeleteGoal() reported a deletion for a missing goal")
		}
		return err
	})
	if err != nil {
		t.Fatalf("DeleteGoal() failed: %v", err)
	}
}

func TestDeleteAllGoals_KeepsTrash(t *testing.T) {
	s := createTestStore(t)
	at := testutil.Time("2024-03-01T00:00:00Z")
	mustInsert(t, s, testutil.Goal("g1", "One", at), testutil.Goal("g2", "Two", at))
	insertTrash(t, s, trashItem("t1", "g-gone", at))

	var n int64
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		n, err = tx.DeleteAllGoals(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("DeleteAllGoals() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteAllGoals() = %d, want 2", n)
	}
	if c := countRows(t, s, "data_points"); c != 0 {
		t.Errorf("data_points = %d, want 0", c)
	}
	if c := countRows(t, s, "trash_items"); c != 1 {
		t.Errorf("trash_items = %d, want 1", c)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	at := testutil.Time("2024-03-01T00:00:00Z")
	boom := errors.New("boom")

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		if err := tx.InsertGoal(context.Background(), testutil.Goal("g", "G", at)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want %v", err, boom)
	}
	if n := countRows(t, s, "goals"); n != 0 {
		t.Errorf("goals = %d after rollback, want 0", n)
	}
}

func TestGoalExists(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, testutil.Goal("g", "G", testutil.Time("2024-03-01T00:00:00Z")))

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		for id, want := range map[string]bool{"g": true, "nope": false} {
			got, err := tx.GoalExists(context.Background(), id)
			if err != nil {
				return err
			}
			if got != want {
				t.Errorf("GoalExists(%q) = %v, want %v", id, got, want)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("GoalExists() failed: %v", err)
	}
}

func TestListGoalIDs(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s,
		testutil.Goal("g2", "Two", testutil.Time("2024-03-02T00:00:00Z")),
		testutil.Goal("g1", "One", testutil.Time("2024-03-01T00:00:00Z")),
	)

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		ids, err := tx.ListGoalIDs(context.Background())
		if err != nil {
			return err
		}
		if want := []string{"g1", "g2"}; !reflect.DeepEqual(ids, want) {
			t.Errorf("ListGoalIDs() = %v, want %v", ids, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ListGoalIDs() failed: %v", err)
	}
}
