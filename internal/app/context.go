package app

import (
	"context"
	"errors"
	"fmt"

	"upkeep/internal/config"
	"upkeep/internal/db"
	"upkeep/internal/engine"
	"upkeep/internal/migrate"
	"upkeep/internal/observability"
	"upkeep/internal/ports"
	"upkeep/internal/repo"
	"upkeep/internal/store/memory"
	"upkeep/internal/store/postgres"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Options select the workspace and persistence backend.
type Options struct {
	Workspace   string
	Store       string
	PostgresDSN string
	// LogLevel overrides config.log.level when set.
	LogLevel string
}

// App is an engine bound to an open store.
type App struct {
	Engine engine.Engine
	Config *config.Config
	close  func() error
}

// Open loads the workspace config, opens and migrates the configured store
// and builds the engine on top of it.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if err := observability.SetLevel(level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	store, closer, err := openStore(ctx, opts)
	if err != nil {
		return nil, err
	}
	eng := engine.New(store, cfg)
	observability.InitMetrics()
	return &App{Engine: eng, Config: cfg, close: closer}, nil
}

func openStore(ctx context.Context, opts Options) (ports.Store, func() error, error) {
	switch opts.Store {
	case "", StoreSQLite:
		conn, err := db.Open(db.Config{Workspace: opts.Workspace})
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.Migrate(conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return repo.Repo{DB: conn}, conn.Close, nil
	case StorePostgres:
		if opts.PostgresDSN == "" {
			return nil, nil, errors.New("postgres store requires a DSN; set --postgres-dsn or UPKEEP_POSTGRES_DSN")
		}
		s, err := postgres.Connect(ctx, postgres.Config{DSN: opts.PostgresDSN, MaxOpenConns: 10, MaxIdleConns: 5})
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return s, s.Close, nil
	case StoreMemory:
		return memory.New(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q; use sqlite, postgres or memory", opts.Store)
	}
}

// Close releases the store.
func (a *App) Close() error {
	if a == nil || a.close == nil {
		return nil
	}
	return a.close()
}
