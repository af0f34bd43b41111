// Package bootstrap wires the validation engine together: logger, config,
// module stores, rule registry, pipeline, and the HTTP surface.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"veritas/api"
	"veritas/config"
	"veritas/core"
	"veritas/gateway"
	"veritas/modules"
	"veritas/validate"
)

// App holds every component of a running veritas instance.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Store    *modules.Store
	Redis    *redis.Client
	Registry *core.RuleRegistry
	Engine   *validate.Engine
	Gateway  *gateway.Validator
	API      *api.Server

	serviceWg  *sync.WaitGroup
	shutdownCh chan struct{}
}

// NewApp creates an application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{
		serviceWg:  &sync.WaitGroup{},
		shutdownCh: make(chan struct{}),
	}

	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("veritas validation engine starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	if err := os.MkdirAll(filepath.Dir(cfg.Stores.SQLitePath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := modules.OpenStore(cfg.Stores.SQLitePath, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to open module store: %w", err)
	}
	app.Store = store

	var inventory core.InventoryReader = store
	if cfg.Redis.Enabled {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := app.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			sugar.Warnw("Redis unreachable, running without inventory cache", "addr", cfg.Redis.Addr, "error", err)
			app.Redis.Close()
			app.Redis = nil
		} else {
			inventory = modules.NewCachedInventoryReader(store, app.Redis,
				time.Duration(cfg.Redis.TTL)*time.Second, sugar)
			sugar.Infow("Inventory cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	seed := validate.DefaultSeedRules()
	if cfg.Rules.SeedFile != "" {
		fileRules, err := validate.LoadRuleFile(cfg.Rules.SeedFile, sugar)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed rules: %w", err)
		}
		seed = append(seed, fileRules...)
	}
	app.Registry = core.NewRuleRegistry(seed, sugar)
	sugar.Infow("Rule registry seeded", "rules", app.Registry.Count())

	checker := validate.NewChecker(app.Registry, validate.Collaborators{
		Inventory:  inventory,
		Customers:  store,
		References: store.ReferenceReaders(),
	}, sugar,
		validate.WithMaxParallel(cfg.CrossModule.MaxParallelChecks),
		validate.WithReferenceCache(cfg.CrossModule.ReferenceCacheSize,
			time.Duration(cfg.CrossModule.ReferenceCacheTTL)*time.Second),
	)

	scanner := validate.NewIntegrityScanner(validate.ScannerConfig{
		MaxStringLength:      cfg.Integrity.MaxStringLength,
		MaxDepth:             cfg.Integrity.MaxDepth,
		PreviewLength:        cfg.Integrity.PreviewLength,
		AllowedParentIDField: cfg.Integrity.AllowedParentField,
	}, sugar)

	app.Engine = validate.NewEngine(
		validate.NewSchemaRegistry(),
		checker,
		validate.NewEvaluator(sugar),
		scanner,
		sugar,
	)
	app.Gateway = gateway.NewValidator()
	app.API = api.NewServer(cfg, app.Engine, app.Registry, app.Gateway, sugar)

	return app, nil
}

// Start launches the API server.
func (a *App) Start(ctx context.Context) error {
	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		if err := a.API.Start(ctx); err != nil {
			a.Sugar.Errorw("API server stopped with error", "error", err)
		}
	}()
	return nil
}

// WaitForShutdown blocks until SIGINT or SIGTERM.
func (a *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	a.Sugar.Infow("Shutdown signal received", "signal", sig)
}

// Shutdown stops services in dependency order and closes resources.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	if a.API != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.API.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
		cancel()
	}

	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Sugar.Errorw("Failed to close redis client", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Sugar.Errorw("Failed to close module store", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
