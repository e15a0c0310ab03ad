// Package console wires the data-access layer to its backends and serves the
// inventory console pages.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kenchiwar/fe-invetory/internal/config"
	"github.com/kenchiwar/fe-invetory/pkg/apiversion"
	"github.com/kenchiwar/fe-invetory/pkg/cache"
	"github.com/kenchiwar/fe-invetory/pkg/commsutil"
	"github.com/kenchiwar/fe-invetory/pkg/db"
	"github.com/kenchiwar/fe-invetory/pkg/dispatcher"
	"github.com/kenchiwar/fe-invetory/pkg/events"
	"github.com/kenchiwar/fe-invetory/pkg/inventory"
	"github.com/kenchiwar/fe-invetory/pkg/metrics"
	"github.com/kenchiwar/fe-invetory/pkg/service"
	"github.com/kenchiwar/fe-invetory/pkg/transport"
)

const logPrefix = "console:app"

// App is the assembled data-access layer of one console process.
type App struct {
	Brands   *inventory.Brands
	Stocks   *inventory.CurrentStocks
	Cache    *cache.Layer
	Registry *prometheus.Registry

	cacheBackend string
	source       string
	collector    *metrics.Collector
	nc           *comms.Conn
	pool         *pgxpool.Pool
	repo         *db.Repository

	mu      sync.Mutex
	closers []func() error
	bgCtx   context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Parts are the pre-built pieces NewApp assembles. Nil Cache disables caching;
// nil Publisher disables change events.
type Parts struct {
	Sender    dispatcher.Sender
	Cache     *cache.Layer
	Publisher events.Publisher
	Registry  *prometheus.Registry
	Source    string
}

// NewApp assembles an App from already-built parts.
func NewApp(p Parts) *App {
	reg := p.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	source := p.Source
	if source == "" {
		source = "console-" + uuid.NewString()
	}
	collector := metrics.NewCollector(reg)

	opts := []dispatcher.Option{dispatcher.WithMetrics(collector)}
	if p.Cache != nil {
		opts = append(opts, dispatcher.WithCache(p.Cache))
	}
	d := dispatcher.New(p.Sender, opts...)

	var svcOpts []service.Option
	if p.Publisher != nil {
		svcOpts = append(svcOpts, service.WithPublisher(p.Publisher))
	}
	bgCtx, cancel := context.WithCancel(context.Background())
	return &App{
		bgCtx:     bgCtx,
		cancel:    cancel,
		Brands:    inventory.NewBrands(d, svcOpts...),
		Stocks:    inventory.NewCurrentStocks(d, svcOpts...),
		Cache:     p.Cache,
		Registry:  reg,
		source:    source,
		collector: collector,
	}
}

// Build connects every backend selected by cfg and assembles the App. The
// returned App must be closed.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	host, _ := os.Hostname()
	source := fmt.Sprintf("%s-%s-%s", cfg.COMMSName, host, uuid.NewString()[:8])

	var (
		closers []func() error
		nc      *comms.Conn
		pool    *pgxpool.Pool
	)
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	if cfg.NeedsComms() {
		var err error
		nc, err = commsutil.Connect(commsutil.ConnectOpts{URL: cfg.COMMSURL, Name: source})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error { return nc.Drain() })
	}

	client, err := newTransport(cfg)
	if err != nil {
		return fail(err)
	}

	sh, err := openStore(ctx, cfg, nc)
	if err != nil {
		return fail(err)
	}
	if sh.close != nil {
		closers = append(closers, sh.close)
	}
	pool = sh.pool

	var layer *cache.Layer
	if sh.store != nil {
		layer = cache.New(sh.store, cache.Options{
			Prefix:        cfg.CachePrefix,
			TTL:           cfg.CacheTTL,
			IgnoreHeaders: !cfg.CacheInterpretHeader,
		})
	}

	var publisher events.Publisher
	switch cfg.EventsBackend {
	case config.EventsNATS:
		publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{Source: source})
	case config.EventsKafka:
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, source)
		closers = append(closers, kp.Close)
		publisher = kp
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := NewApp(Parts{
		Sender:    client,
		Cache:     layer,
		Publisher: publisher,
		Registry:  reg,
		Source:    source,
	})
	app.cacheBackend = cfg.CacheBackend
	app.nc = nc
	app.pool = pool
	app.repo = sh.repo
	app.closers = closers

	if err := app.subscribe(cfg); err != nil {
		_ = app.Close()
		return nil, err
	}
	if sh.purge != nil {
		app.startJanitor(app.bgCtx, sh.purge, cfg.CacheTTL)
	}
	slog.Info(fmt.Sprintf("%s - Console ready (cache=%s events=%s source=%s)", logPrefix, cfg.CacheBackend, cfg.EventsBackend, source))
	return app, nil
}

func newTransport(cfg *config.Config) (*transport.Client, error) {
	opts := []transport.Option{transport.WithRequestIDs()}
	if cfg.APITokenSecret != "" {
		opts = append(opts, transport.WithTokenSigner(transport.NewTokenSigner(cfg.APITokenSecret, cfg.APIClientID, 0)))
	}
	if cfg.APIVersionConstraint != "" {
		c, err := apiversion.NewConstraint(cfg.APIVersionConstraint)
		if err != nil {
			return nil, fmt.Errorf("%s - API_VERSION_CONSTRAINT: %w", logPrefix, err)
		}
		opts = append(opts, transport.WithVersionCheck(c))
	}
	if cfg.WrapRequestBody {
		opts = append(opts, transport.WithRequestHook(transport.WrapBody(cfg.APIUser, cfg.APIClientID)))
	}
	return transport.New(transport.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout}, opts...), nil
}

// storeHandle is an opened cache store plus what the App needs to manage it.
type storeHandle struct {
	store cache.Store
	close func() error
	pool  *pgxpool.Pool
	repo  *db.Repository
	// purge drops expired rows of persistent stores.
	purge func(ctx context.Context, now time.Time) (int, error)
}

func openStore(ctx context.Context, cfg *config.Config, nc *comms.Conn) (storeHandle, error) {
	switch cfg.CacheBackend {
	case config.CacheNone:
		return storeHandle{}, nil
	case config.CacheNATS:
		kv, err := cache.NewKVStore(ctx, nc, cache.KVStoreOpts{Bucket: cfg.COMMSKVBucket, MaxAge: cfg.CacheTTL})
		if err != nil {
			return storeHandle{}, err
		}
		return storeHandle{store: kv}, nil
	case config.CachePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return storeHandle{}, err
		}
		migrations, err := db.LoadMigrations(cfg.MigrationPath)
		if err == nil {
			_, err = db.Migrate(ctx, pool, migrations)
		}
		if err != nil {
			pool.Close()
			return storeHandle{}, err
		}
		repo := db.NewRepository(pool)
		return storeHandle{
			store: cache.NewPostgresStore(repo),
			close: func() error { pool.Close(); return nil },
			pool:  pool,
			repo:  repo,
			purge: repo.PurgeExpired,
		}, nil
	case config.CacheSQLite:
		s, err := cache.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return storeHandle{}, err
		}
		return storeHandle{store: s, close: s.Close, purge: s.PurgeExpired}, nil
	default:
		return storeHandle{store: cache.NewMemoryStore()}, nil
	}
}

// startJanitor purges expired rows every interval until the App is closed.
func (a *App) startJanitor(ctx context.Context, purge func(context.Context, time.Time) (int, error), interval time.Duration) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := purge(ctx, now)
				if err != nil {
					slog.Warn(fmt.Sprintf("%s - Purging expired cache rows failed: %v", logPrefix, err))
					continue
				}
				if n > 0 {
					slog.Debug(fmt.Sprintf("%s - Purged %d expired cache rows", logPrefix, n))
				}
			}
		}
	}()
}

// subscribe starts the change listener for the configured event backend.
func (a *App) subscribe(cfg *config.Config) error {
	if a.Cache == nil {
		return nil
	}
	ctx := a.bgCtx

	switch cfg.EventsBackend {
	case config.EventsNATS:
		sub, err := events.SubscribeComms(a.nc, a.HandleChange)
		if err != nil {
			return err
		}
		a.addCloser(sub.Unsubscribe)
	case config.EventsKafka:
		ks := events.NewKafkaSubscriber(cfg.KafkaBrokers, a.source, cfg.KafkaTopic)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := ks.Run(ctx, a.HandleChange); err != nil {
				slog.Error(fmt.Sprintf("%s - Kafka subscriber stopped: %v", logPrefix, err))
			}
		}()
		a.addCloser(ks.Close)
	}
	return nil
}

// HandleChange drops cached reads of the changed endpoint. Events this process
// published itself are skipped.
func (a *App) HandleChange(ctx context.Context, e *events.EntityChanged) {
	if e == nil || a.Cache == nil || e.Endpoint == "" {
		return
	}
	if e.Source != "" && e.Source == a.source {
		return
	}
	n, err := a.Cache.Invalidate(ctx, e.Endpoint)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - Invalidating %s after remote %s failed: %v", logPrefix, e.Endpoint, e.Action, err))
		return
	}
	a.collector.RecordInvalidation(e.Endpoint)
	slog.Debug(fmt.Sprintf("%s - Remote %s of %s id=%d dropped %d cached reads", logPrefix, e.Action, e.Endpoint, e.ID, n))
}

// ClearCache empties the response cache and returns the number of dropped entries.
func (a *App) ClearCache(ctx context.Context) (int, error) {
	if a.Cache == nil {
		return 0, nil
	}
	return a.Cache.Clear(ctx)
}

// Health reports the state of each connected backend.
type Health struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health checks the COMMS connection and database pool when they are in use.
func (a *App) Health(ctx context.Context) *Health {
	h := &Health{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{"cache": a.cacheLabel()},
	}
	if a.nc != nil {
		if a.nc.IsConnected() {
			h.Checks["comms"] = "connected"
		} else {
			h.Checks["comms"] = a.nc.Status().String()
			h.Status = "unhealthy"
		}
	}
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			h.Checks["database"] = err.Error()
			h.Status = "unhealthy"
		} else {
			h.Checks["database"] = "ok"
		}
		if a.repo != nil {
			if n, err := a.repo.CountCacheEntries(ctx); err == nil {
				h.Checks["cached_rows"] = strconv.Itoa(n)
			}
		}
	}
	return h
}

func (a *App) cacheLabel() string {
	switch {
	case a.Cache == nil:
		return "disabled"
	case a.cacheBackend == "":
		return "enabled"
	default:
		return a.cacheBackend
	}
}

func (a *App) addCloser(f func() error) {
	a.mu.Lock()
	a.closers = append(a.closers, f)
	a.mu.Unlock()
}

// Close stops subscribers and releases every connection in reverse order.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.wg.Wait()
	return errors.Join(errs...)
}
