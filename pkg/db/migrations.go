package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationsLogPrefix = "db:migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const createVersionTable = `CREATE TABLE IF NOT EXISTS cache_schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migration is one SQL file. Version is the file name up to the first
// underscore, e.g. "0001" for 0001_http_cache.sql.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// MigrationState reports whether a migration has been applied.
type MigrationState struct {
	Migration
	AppliedAt *time.Time
}

// LoadMigrations reads the .sql files in dir ordered by version. An empty
// dir loads the migrations compiled into the binary.
func LoadMigrations(dir string) ([]Migration, error) {
	if dir == "" {
		sub, err := fs.Sub(embeddedMigrations, "migrations")
		if err != nil {
			return nil, fmt.Errorf("%s - embedded migrations: %w", migrationsLogPrefix, err)
		}
		return readMigrations(sub)
	}
	return readMigrations(os.DirFS(dir))
}

func readMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%s - read migration dir: %w", migrationsLogPrefix, err)
	}
	var out []Migration
	seen := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		version, _, _ := strings.Cut(strings.TrimSuffix(e.Name(), ".sql"), "_")
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("%s - %s and %s share version %s", migrationsLogPrefix, prev, e.Name(), version)
		}
		seen[version] = e.Name()

		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("%s - read %s: %w", migrationsLogPrefix, e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: e.Name(), SQL: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies every migration not yet recorded in cache_schema_migrations,
// each in its own transaction. It returns the number applied.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) (int, error) {
	if _, err := pool.Exec(ctx, createVersionTable); err != nil {
		return 0, fmt.Errorf("%s - create version table: %w", migrationsLogPrefix, err)
	}
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO cache_schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return n, fmt.Errorf("%s - apply %s: %w", migrationsLogPrefix, m.Name, err)
		}
		slog.Info(fmt.Sprintf("%s - Applied %s", migrationsLogPrefix, m.Name))
		n++
	}
	slog.Info(fmt.Sprintf("%s - %d applied, %d already present", migrationsLogPrefix, n, len(migrations)-n))
	return n, nil
}

// Status pairs each migration with the time it was applied, if it was.
func Status(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) ([]MigrationState, error) {
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationState, len(migrations))
	for i, m := range migrations {
		out[i] = MigrationState{Migration: m}
		if at, ok := applied[m.Version]; ok {
			out[i].AppliedAt = &at
		}
	}
	return out, nil
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[string]time.Time, error) {
	rows, err := pool.Query(ctx, `SELECT version, applied_at FROM cache_schema_migrations`)
	if err != nil {
		if undefinedTable(err) {
			return map[string]time.Time{}, nil
		}
		return nil, fmt.Errorf("%s - read applied versions: %w", migrationsLogPrefix, err)
	}
	applied := map[string]time.Time{}
	var (
		version string
		at      time.Time
	)
	_, err = pgx.ForEachRow(rows, []any{&version, &at}, func() error {
		applied[version] = at
		return nil
	})
	if undefinedTable(err) {
		return map[string]time.Time{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan applied versions: %w", migrationsLogPrefix, err)
	}
	return applied, nil
}

func undefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
