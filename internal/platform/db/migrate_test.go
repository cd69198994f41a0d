package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrationFile(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadMigrations_SortedByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFile(t, dir, "003_rooms.sql", "CREATE TABLE c (id int);")
	writeMigrationFile(t, dir, "001_core.sql", "CREATE TABLE a (id int);")
	writeMigrationFile(t, dir, "002_visits.sql", "CREATE TABLE b (id int);")

	m := NewMigrator(nil, dir)
	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}

	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	for i, want := range []int{1, 2, 3} {
		if migs[i].Version != want {
			t.Errorf("migration %d: expected version %d, got %d", i, want, migs[i].Version)
		}
	}
	if migs[0].Name != "001_core.sql" {
		t.Errorf("expected 001_core.sql first, got %s", migs[0].Name)
	}
}

func TestLoadMigrations_SkipsNonNumericAndNonSQL(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFile(t, dir, "001_core.sql", "SELECT 1;")
	writeMigrationFile(t, dir, "README.md", "not a migration")
	writeMigrationFile(t, dir, "notes_001.sql", "SELECT 2;")
	writeMigrationFile(t, dir, "seed.sql", "SELECT 3;")

	m := NewMigrator(nil, dir)
	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migs))
	}
	if migs[0].Version != 1 {
		t.Errorf("expected version 1, got %d", migs[0].Version)
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.LoadMigrations(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
