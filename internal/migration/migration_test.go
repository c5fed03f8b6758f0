package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func migrationFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count); err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return count == 1
}

func TestGetCurrentVersion(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(setupTestDB(t), migrationFS(map[string]string{
		"001_test.sql": "CREATE TABLE test (id INTEGER);",
	}), SQLite)

	version, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}

	if err := runner.SetVersion(ctx, 5); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	version, err = runner.GetCurrentVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}
}

func TestReadMigrationFiles(t *testing.T) {
	runner := NewRunner(setupTestDB(t), migrationFS(map[string]string{
		"003_another.sql": "CREATE TABLE test2 (id INTEGER);",
		"001_init.sql":    "CREATE TABLE test1 (id INTEGER);",
		"002_update.sql":  "ALTER TABLE test1 ADD COLUMN name TEXT;",
		"README.md":       "not a migration",
	}), SQLite)

	migrations, err := runner.ReadMigrationFiles()
	if err != nil {
		t.Fatalf("ReadMigrationFiles failed: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	for i, want := range []string{"init", "update", "another"} {
		if migrations[i].Version != i+1 || migrations[i].Name != want {
			t.Errorf("migration %d = (%d, %s), want (%d, %s)", i, migrations[i].Version, migrations[i].Name, i+1, want)
		}
	}
}

func TestReadMigrationFilesRejectsBadNames(t *testing.T) {
	tests := map[string]map[string]string{
		"no separator":      {"001.sql": "SELECT 1;"},
		"non-numeric":       {"abc_init.sql": "SELECT 1;"},
		"version zero":      {"000_init.sql": "SELECT 1;"},
		"duplicate version": {"001_a.sql": "SELECT 1;", "1_b.sql": "SELECT 1;"},
	}
	for name, files := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewRunner(setupTestDB(t), migrationFS(files), SQLite).ReadMigrationFiles(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyMigrations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	files := map[string]string{
		"001_init.sql":  "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);",
		"002_posts.sql": "CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, content TEXT);",
	}
	runner := NewRunner(db, migrationFS(files), SQLite)

	var logs []string
	count, err := runner.ApplyMigrations(ctx, func(s string) { logs = append(logs, s) })
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 migrations applied, got %d", count)
	}
	if version, _ := runner.GetCurrentVersion(ctx); version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
	if !tableExists(t, db, "users") || !tableExists(t, db, "posts") {
		t.Error("tables were not created")
	}
	if !strings.Contains(strings.Join(logs, "\n"), "Applying 2 migration(s)") {
		t.Errorf("unexpected log output: %v", logs)
	}

	// Running again is a no-op.
	count, err = runner.ApplyMigrations(ctx, nil)
	if err != nil || count != 0 {
		t.Errorf("second ApplyMigrations = %d, %v; want 0, nil", count, err)
	}

	// A new file is picked up incrementally.
	files["003_tags.sql"] = "CREATE TABLE tags (name TEXT);"
	runner = NewRunner(db, migrationFS(files), SQLite)
	count, err = runner.ApplyMigrations(ctx, nil)
	if err != nil || count != 1 {
		t.Errorf("incremental ApplyMigrations = %d, %v; want 1, nil", count, err)
	}
}

func TestApplyMigrationsRollsBackFailure(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, migrationFS(map[string]string{
		"001_init.sql":   "CREATE TABLE ok (id INTEGER);",
		"002_broken.sql": "CREATE TABLE broken (id INTEGER); THIS IS NOT SQL;",
	}), SQLite)

	count, err := runner.ApplyMigrations(ctx, nil)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied before the failure, got %d", count)
	}
	if version, _ := runner.GetCurrentVersion(ctx); version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	if tableExists(t, db, "broken") {
		t.Error("failed migration should be rolled back")
	}
}

func TestValidateVersion(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(setupTestDB(t), migrationFS(map[string]string{
		"001_init.sql": "CREATE TABLE t (id INTEGER);",
	}), SQLite)

	if err := runner.ValidateVersion(ctx); err != nil {
		t.Errorf("fresh database should validate: %v", err)
	}
	if err := runner.SetVersion(ctx, 9); err != nil {
		t.Fatal(err)
	}
	if err := runner.ValidateVersion(ctx); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("error = %v, want ErrSchemaTooNew", err)
	}
	if _, err := runner.ApplyMigrations(ctx, nil); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("ApplyMigrations error = %v, want ErrSchemaTooNew", err)
	}
}

func TestPlaceholder(t *testing.T) {
	if got := SQLite.placeholder(1); got != "?" {
		t.Errorf("sqlite placeholder = %q", got)
	}
	if got := Postgres.placeholder(2); got != "$2" {
		t.Errorf("postgres placeholder = %q", got)
	}
}
