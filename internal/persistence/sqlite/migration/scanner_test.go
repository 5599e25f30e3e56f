package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestFSScanner_ScanMigrations(t *testing.T) {
	t.Run("orders by numeric version and reads descriptions", func(t *testing.T) {
		files := fstest.MapFS{
			"010_add_index.sql":      {Data: []byte("CREATE INDEX idx ON t(a);")},
			"002_second.sql":         {Data: []byte("-- Description: add column\nALTER TABLE t ADD COLUMN b TEXT;")},
			"001_initial_schema.sql": {Data: []byte("CREATE TABLE t (a TEXT);")},
			"README.md":              {Data: []byte("ignored")},
		}

		migrations, err := NewFSScanner(files).ScanMigrations()
		if err != nil {
			t.Fatalf("ScanMigrations returned error: %v", err)
		}
		if len(migrations) != 3 {
			t.Fatalf("expected 3 migrations, got %d", len(migrations))
		}
		if migrations[0].Version != "001" || migrations[1].Version != "002" || migrations[2].Version != "010" {
			t.Fatalf("unexpected order: %s, %s, %s", migrations[0].Version, migrations[1].Version, migrations[2].Version)
		}
		if migrations[0].Description != "initial schema" {
			t.Fatalf("expected description from file name, got %q", migrations[0].Description)
		}
		if migrations[1].Description != "add column" {
			t.Fatalf("expected description from comment, got %q", migrations[1].Description)
		}
		if migrations[0].Checksum == "" {
			t.Fatalf("expected checksum to be computed")
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		files := fstest.MapFS{
			"001_a.sql": {Data: []byte("CREATE TABLE a (x TEXT);")},
			"001_b.sql": {Data: []byte("CREATE TABLE b (x TEXT);")},
		}

		_, err := NewFSScanner(files).ScanMigrations()
		if !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})

	t.Run("rejects malformed names and empty files", func(t *testing.T) {
		if _, err := NewFSScanner(fstest.MapFS{"initial.sql": {Data: []byte("SELECT 1;")}}).ScanMigrations(); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile for bad name, got %v", err)
		}
		if _, err := NewFSScanner(fstest.MapFS{"001_empty.sql": {Data: []byte("-- nothing here\n")}}).ScanMigrations(); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile for empty file, got %v", err)
		}
	})
}

func TestSplitStatements(t *testing.T) {
	content := "-- header\nCREATE TABLE a (x TEXT);\n\n-- comment\nCREATE INDEX i ON a(x);\n"
	statements := splitStatements(content)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[0] != "CREATE TABLE a (x TEXT)" {
		t.Fatalf("unexpected first statement %q", statements[0])
	}
}
