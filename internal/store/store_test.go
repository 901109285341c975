package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"goals", "schedules", "questions", "data_points", "trash_items"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
		"user_version": "1",
	}
	for name, want := range checks {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestOpen_MigratesLegacyTrashTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Shape of trash_items before snapshots carried a hash.
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	_, err = raw.Exec(`
		CREATE TABLE trash_items (
			seq              INTEGER PRIMARY KEY AUTOINCREMENT,
			id               TEXT    NOT NULL UNIQUE,
			original_goal_id TEXT    NOT NULL,
			snapshot         BLOB    NOT NULL,
			snapshot_version INTEGER NOT NULL,
			title            TEXT    NOT NULL,
			deleted_at       TEXT    NOT NULL,
			note             TEXT    NOT NULL DEFAULT ''
		);
		INSERT INTO trash_items (id, original_goal_id, snapshot, snapshot_version, title, deleted_at)
		VALUES ('t-old', 'g-old', '{}', 1, 'Old', '2024-01-01T00:00:00.000000000Z');
	`)
	if err != nil {
		t.Fatalf("seed legacy schema failed: %v", err)
	}
	raw.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() on legacy database failed: %v", err)
	}
	defer s.Close()

	exists, err := hasColumn(s.db, "trash_items", "snapshot_hash")
	if err != nil {
		t.Fatalf("hasColumn() failed: %v", err)
	}
	if !exists {
		t.Fatal("snapshot_hash column was not added")
	}

	var hash string
	if err := s.db.QueryRow(`SELECT snapshot_hash FROM trash_items WHERE id = 't-old'`).Scan(&hash); err != nil {
		t.Fatalf("read migrated row failed: %v", err)
	}
	if hash != "" {
		t.Errorf("migrated snapshot_hash = %q, want empty", hash)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestClose_Nil(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on zero Store = %v, want nil", err)
	}
}
