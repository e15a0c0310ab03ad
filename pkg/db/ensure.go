package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

const ensureLogPrefix = "db:ensure"

var databaseName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnsureDatabase creates the database named in databaseURL unless it exists.
// It connects through the "postgres" maintenance database on the same server.
func EnsureDatabase(ctx context.Context, databaseURL string) error {
	adminURL, name, err := splitTarget(databaseURL)
	if err != nil {
		return err
	}

	conn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return fmt.Errorf("%s - connect maintenance database: %w", ensureLogPrefix, err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return fmt.Errorf("%s - look up %s: %w", ensureLogPrefix, name, err)
	}
	if exists {
		slog.Info(fmt.Sprintf("%s - Database %s exists", ensureLogPrefix, name))
		return nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("%s - create %s: %w", ensureLogPrefix, name, err)
	}
	slog.Info(fmt.Sprintf("%s - Created database %s", ensureLogPrefix, name))
	return nil
}

// splitTarget returns the maintenance URL and the database name of databaseURL.
func splitTarget(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("%s - parse database URL: %w", ensureLogPrefix, err)
	}
	name := strings.Trim(u.Path, "/ ")
	switch {
	case name == "":
		return "", "", fmt.Errorf("%s - database URL names no database", ensureLogPrefix)
	case !databaseName.MatchString(name):
		return "", "", fmt.Errorf("%s - database name %q is not a plain identifier", ensureLogPrefix, name)
	}
	admin := *u
	admin.Path = "/postgres"
	return admin.String(), name, nil
}
