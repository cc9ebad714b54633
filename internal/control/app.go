package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vietddude/tourdesk/internal/auth"
	"github.com/vietddude/tourdesk/internal/cascade"
	"github.com/vietddude/tourdesk/internal/core/config"
	"github.com/vietddude/tourdesk/internal/core/worker"
	"github.com/vietddude/tourdesk/internal/health"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/backend/memory"
	"github.com/vietddude/tourdesk/internal/infra/backend/objectstore"
	"github.com/vietddude/tourdesk/internal/infra/backend/postgres"
	redisclient "github.com/vietddude/tourdesk/internal/infra/redis"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
	"github.com/vietddude/tourdesk/internal/trips"
	"github.com/vietddude/tourdesk/internal/upload"
)

// Options tweak how an App is assembled.
type Options struct {
	// Token is the persisted session token, empty when signed out.
	Token string
	// Migrate applies pending database migrations during startup.
	Migrate bool
	Log     *slog.Logger
}

// App holds every component of a running tourdesk process.
type App struct {
	Config   *config.AppConfig
	Exec     *resilience.Executor
	Auth     *auth.Client
	Roles    *auth.RoleResolver
	Records  backend.Collections
	Objects  backend.ObjectStore
	Uploads  *upload.Pipeline
	Cascade  *cascade.Orchestrator
	Trips    *trips.Service
	Health   *health.Monitor
	Sessions auth.SessionStore
	Orphans  *worker.Orphans
	Pruner   *worker.Pruner

	healthServer *health.Server
	pool         *pgxpool.Pool
	redisClient  *redisclient.Client
	closers      []func() error
	log          *slog.Logger
}

// NewApp creates an App with all dependencies initialized. Backends that are
// not configured fall back to the in-process memory implementation.
func NewApp(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Health: health.NewMonitor(), log: log}

	var mem *memory.Storage
	memStorage := func() *memory.Storage {
		if mem == nil {
			mem = memory.NewStorage()
		}
		return mem
	}

	// 1. Record collections
	if cfg.Database.URL != "" {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		if opts.Migrate {
			if err := migrate(ctx, cfg.Database); err != nil {
				a.Close()
				return nil, err
			}
		}

		a.Records = postgres.NewCollections(pool)
		a.Health.Register("database", pool.Ping, true)
		log.Info("Using PostgreSQL storage")
	} else {
		a.Records = memory.NewCollections(memStorage())
		log.Info("Using Memory storage")
	}

	// 2. Sessions
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redisClient = client
		a.closers = append(a.closers, client.Close)
		a.Sessions = redisclient.NewSessionStore(client)
		a.Health.Register("redis", client.Health, false)
	} else {
		a.Sessions = memory.NewSessions()
		log.Warn("Redis not configured, sessions are kept in memory")
	}

	// 3. Object store
	objects, err := a.openObjectStore(ctx, cfg.ObjectStore, memStorage)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Objects = objects

	// 4. Auth and executor
	tokens, err := auth.NewTokens(cfg.Auth)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}
	a.Auth = auth.NewClient(tokens, a.Sessions, opts.Token, log)

	a.Exec = resilience.NewExecutor(
		resilience.WithBackoff(cfg.Backoff()),
		resilience.WithDefaults(cfg.Resilience.MaxAttempts, cfg.Resilience.Timeout),
		resilience.WithSessionInvalidator(a.Auth),
		resilience.WithLogger(log),
	)

	// 5. Domain services
	a.Roles = auth.NewRoleResolver(a.Auth, a.Records, a.Exec)
	a.Orphans = worker.NewOrphans(a.Records, a.Exec, log)
	a.Uploads = upload.NewPipeline(a.Objects, a.Exec, cfg.UploadRules(),
		upload.WithOrphanRecorder(a.Orphans),
		upload.WithLogger(log),
	)
	a.Pruner = worker.NewPruner(a.Orphans, a.Uploads, cfg.Maintenance.PruneInterval, log)
	a.Cascade = cascade.NewOrchestrator(a.Records, a.Roles, a.Exec, log)
	a.Trips = trips.NewService(a.Records, a.Exec, a.Uploads, a.Cascade, log)

	a.healthServer = health.NewServer(a.Health, cfg.Server.Port)
	return a, nil
}

func (a *App) openObjectStore(ctx context.Context, cfg objectstore.Config, mem func() *memory.Storage) (backend.ObjectStore, error) {
	switch cfg.Driver {
	case objectstore.DriverMinIO:
		store, err := objectstore.NewMinIO(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBuckets(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to ensure buckets: %w", err)
		}
		a.Health.Register("object_store", func(ctx context.Context) error { return store.Health(ctx, cfg) }, true)
		a.log.Info("Using MinIO object store", "endpoint", cfg.Endpoint)
		return store, nil
	case objectstore.DriverGCS:
		store, err := objectstore.NewGCS(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.Health.Register("object_store", func(ctx context.Context) error { return store.Health(ctx, cfg) }, true)
		a.log.Info("Using GCS object store")
		return store, nil
	default:
		a.log.Info("Using Memory object store")
		return memory.NewObjectStore(mem()), nil
	}
}

// Start serves health and metrics until ctx is done.
func (a *App) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.healthServer.Start()
	}()

	if a.pool != nil {
		postgres.StartMetricsCollector(ctx, a.pool)
	}
	go a.Pruner.Start(ctx)
	a.log.Info("tourdesk started", "port", a.Config.Server.Port, "checks", a.Health.Names())

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	}
}

// Stop shuts the HTTP server down.
func (a *App) Stop(ctx context.Context) error {
	return a.healthServer.Stop(ctx)
}

// Close releases every backend connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func migrate(ctx context.Context, cfg postgres.Config) error {
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.Migrate(ctx, db)
}
