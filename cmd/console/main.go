// Package main is the entrypoint for the inventory console.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/kenchiwar/fe-invetory/internal/config"
	"github.com/kenchiwar/fe-invetory/internal/console"
	"github.com/kenchiwar/fe-invetory/internal/logging"
	"github.com/kenchiwar/fe-invetory/pkg/db"
	"github.com/kenchiwar/fe-invetory/pkg/inventory"
	"github.com/kenchiwar/fe-invetory/pkg/query"
)

const usage = `Usage: console [command]
       console serve                 Start the console HTTP server.
       console brands list [search]  List brands.
       console brands get <id>       Show one brand.
       console brands save <json>    Create or update a brand, e.g. '{"brandCode":"AC","brandName":"Acme"}'.
       console brands delete <id>    Delete a brand.
       console stock list [search]   List current stock.
       console stock get <id>        Show one stock record.
       console migrate up            Create the postgres cache table.
       console migrate status        Show migration status.
       console ensure-db [name]      Create database if missing (default name: inventory_cache).
       console cache clear           Drop every cached response.

Commands:
  serve           (default) Start the console on HTTP_PORT.
  brands, stock   Call the inventory API through the data-access layer.
  migrate up      Run database migrations only.
  migrate status  Show current migration status.
  ensure-db       Create database on same host as DATABASE_URL.
  cache clear     Empty the configured response cache.

Environment: API_BASE_URL, CACHE_BACKEND, DATABASE_URL (postgres cache), COMMS_URL (nats), EVENTS_BACKEND, HTTP_PORT. A .env file is loaded when present.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		fmt.Print(usage)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("console: %v", err)
	}

	switch cmd {
	case "brands", "stock":
		if err := runEntity(cfg, cmd, args[1:], os.Stdout); err != nil {
			log.Fatalf("console %s: %v", cmd, err)
		}
		return
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("console migrate: require subcommand (up, status)")
		}
		switch sub := args[1]; sub {
		case "up":
			if err := runMigrateUp(cfg); err != nil {
				log.Fatalf("console migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(cfg); err != nil {
				log.Fatalf("console migrate status: %v", err)
			}
		default:
			log.Fatalf("console migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "ensure-db":
		dbName := "inventory_cache"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(cfg, dbName); err != nil {
			log.Fatalf("console ensure-db: %v", err)
		}
		return
	case "cache":
		if len(args) < 2 || args[1] != "clear" {
			log.Fatalf("console cache: require subcommand (clear)")
		}
		if err := runCacheClear(cfg); err != nil {
			log.Fatalf("console cache clear: %v", err)
		}
		return
	case "serve", "":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := console.Run(cfg); err != nil {
		log.Fatalf("console: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Setup(os.Stderr, logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg, nil
}

// runEntity runs a brands or stock subcommand and prints the result as JSON.
func runEntity(cfg *config.Config, entity string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("require subcommand (list, get, save, delete)")
	}
	ctx := context.Background()
	app, err := console.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := entityCommand(ctx, app, entity, args)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func entityCommand(ctx context.Context, app *console.App, entity string, args []string) (any, error) {
	sub, rest := args[0], args[1:]
	arg := func() (string, error) {
		if len(rest) == 0 || rest[0] == "" {
			return "", fmt.Errorf("%s %s: missing argument", entity, sub)
		}
		return rest[0], nil
	}
	id := func() (int64, error) {
		raw, err := arg()
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s %s: invalid id %q", entity, sub, raw)
		}
		return n, nil
	}
	listQuery := func() *query.Builder {
		b := query.New().SortBy("id", query.Asc)
		if len(rest) > 0 {
			b.Search(rest[0])
		}
		return b
	}

	switch entity + " " + sub {
	case "brands list":
		return result(app.Brands.Query(ctx, listQuery()))
	case "brands get":
		n, err := id()
		if err != nil {
			return nil, err
		}
		return result(app.Brands.GetByID(ctx, n))
	case "brands save":
		raw, err := arg()
		if err != nil {
			return nil, err
		}
		var dto inventory.BrandDto
		if err := json.Unmarshal([]byte(raw), &dto); err != nil {
			return nil, fmt.Errorf("brands save: invalid JSON: %w", err)
		}
		return result(app.Brands.SaveValid(ctx, dto))
	case "brands delete":
		n, err := id()
		if err != nil {
			return nil, err
		}
		if err := app.Brands.Delete(ctx, n); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": n}, nil
	case "stock list":
		return result(app.Stocks.Query(ctx, listQuery()))
	case "stock get":
		n, err := id()
		if err != nil {
			return nil, err
		}
		return result(app.Stocks.GetByID(ctx, n))
	default:
		return nil, fmt.Errorf("unknown subcommand %q", sub)
	}
}

func result[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

func runMigrateUp(cfg *config.Config) error {
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	n, err := db.Migrate(ctx, pool, migrations)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	fmt.Printf("Applied %d of %d migrations.\n", n, len(migrations))
	return nil
}

func runMigrateStatus(cfg *config.Config) error {
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	states, err := db.Status(ctx, pool, migrations)
	if err != nil {
		return err
	}
	for _, st := range states {
		applied := "pending"
		if st.AppliedAt != nil {
			applied = st.AppliedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-32s %s\n", st.Version, st.Name, applied)
	}
	return nil
}

func runEnsureDB(cfg *config.Config, dbName string) error {
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	if err := db.EnsureDatabase(context.Background(), u.String()); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

// runCacheClear truncates the postgres table directly; other backends are
// cleared through the cache layer.
func runCacheClear(cfg *config.Config) error {
	ctx := context.Background()
	if cfg.CacheBackend == config.CachePostgres {
		if err := cfg.ValidateForDB(); err != nil {
			return err
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		n, err := db.NewRepository(pool).Truncate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d cached responses.\n", n)
		return nil
	}

	app, err := console.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	n, err := app.ClearCache(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Cleared %d cached responses.\n", n)
	return nil
}
