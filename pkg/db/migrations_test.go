package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

const migrationsTestPrefix = "db:migrations_test"

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0003_index.sql":   {Data: []byte("THIRD")},
		"0001_create.sql":  {Data: []byte("FIRST")},
		"0002_column.sql":  {Data: []byte("SECOND")},
		"README.md":        {Data: []byte("# notes")},
		"subdir.sql/x.sql": {Data: []byte("nested")},
	}
	got, err := readMigrations(fsys)
	if err != nil {
		t.Fatalf("%s - readMigrations: %v", migrationsTestPrefix, err)
	}
	want := []Migration{
		{Version: "0001", Name: "0001_create.sql", SQL: "FIRST"},
		{Version: "0002", Name: "0002_column.sql", SQL: "SECOND"},
		{Version: "0003", Name: "0003_index.sql", SQL: "THIRD"},
	}
	if len(got) != len(want) {
		t.Fatalf("%s - got %d migrations, want %d: %+v", migrationsTestPrefix, len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s - migration %d = %+v, want %+v", migrationsTestPrefix, i, got[i], want[i])
		}
	}
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("A")},
		"0001_b.sql": {Data: []byte("B")},
	}
	if _, err := readMigrations(fsys); err == nil {
		t.Fatalf("%s - expected duplicate version error", migrationsTestPrefix)
	}
}

func TestLoadMigrations_Dir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0001_cache.sql"), []byte("CREATE TABLE x ();"), 0o644); err != nil {
		t.Fatalf("%s - write: %v", migrationsTestPrefix, err)
	}
	got, err := LoadMigrations(dir)
	if err != nil || len(got) != 1 || got[0].Version != "0001" {
		t.Fatalf("%s - LoadMigrations = %+v, %v", migrationsTestPrefix, got, err)
	}

	empty, err := LoadMigrations(t.TempDir())
	if err != nil || len(empty) != 0 {
		t.Errorf("%s - empty dir = %+v, %v", migrationsTestPrefix, empty, err)
	}
	if _, err := LoadMigrations(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("%s - expected error for missing dir", migrationsTestPrefix)
	}
}

func TestLoadMigrations_Embedded(t *testing.T) {
	got, err := LoadMigrations("")
	if err != nil {
		t.Fatalf("%s - LoadMigrations: %v", migrationsTestPrefix, err)
	}
	if len(got) == 0 || got[0].Version != "0001" {
		t.Fatalf("%s - embedded = %+v", migrationsTestPrefix, got)
	}
	if !strings.Contains(got[0].SQL, "http_cache_entries") {
		t.Errorf("%s - first embedded migration should create http_cache_entries", migrationsTestPrefix)
	}
}
