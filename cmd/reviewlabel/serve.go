package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/reviewlabel/internal/api"
	"github.com/kiranshivaraju/reviewlabel/internal/api/handler"
	mw "github.com/kiranshivaraju/reviewlabel/internal/api/middleware"
	"github.com/kiranshivaraju/reviewlabel/internal/cache"
	"github.com/kiranshivaraju/reviewlabel/internal/config"
	"github.com/kiranshivaraju/reviewlabel/internal/observability"
	"github.com/kiranshivaraju/reviewlabel/internal/store"
)

const shutdownTimeout = 30 * time.Second

type serveFlags struct {
	addr          string
	migrationsDir string
	rateLimit     int
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP server (health, metrics, stored runs)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (default :$REVIEWLABEL_PORT)")
	cmd.Flags().StringVar(&f.migrationsDir, "migrations", "migrations", "directory holding SQL migrations")
	cmd.Flags().IntVar(&f.rateLimit, "rate-limit", 60, "requests per minute per client on run routes (needs REDIS_URL)")
	return cmd
}

func runServe(ctx context.Context, f *serveFlags) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Env)

	ctx, stop := signalContext(ctx)
	defer stop()

	deps, cleanup, err := connectBackends(ctx, cfg, f.migrationsDir)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := f.addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Server.Port)
	}
	router := newOpsRouter(observability.InitRegistry(), deps.store, deps.cache, f.rateLimit)
	return serveHTTP(ctx, addr, router)
}

// backends are the optional Postgres store and Redis cache. Either may be nil.
type backends struct {
	store store.Store
	cache cache.Cache
}

// connectBackends opens the store and cache named in cfg. A configured
// database that cannot be reached is an error; an unreachable cache is
// logged and skipped.
func connectBackends(ctx context.Context, cfg *config.Config, migrationsDir string) (backends, func(), error) {
	var b backends
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return b, cleanup, fmt.Errorf("connect database: %w", err)
		}
		closers = append(closers, pool.Close)
		slog.Info("database connected")

		if err := store.RunMigrations(cfg.Database.URL, migrationsDir); err != nil {
			cleanup()
			return b, func() {}, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		b.store = store.NewPostgresStore(pool)
	}

	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			cleanup()
			return b, func() {}, fmt.Errorf("create redis cache: %w", err)
		}
		if err := rc.Ping(ctx); err != nil {
			slog.Warn("redis unreachable, continuing without cache", "error", err)
			rc.Close()
		} else {
			closers = append(closers, func() { rc.Close() })
			slog.Info("redis connected")
			b.cache = rc
		}
	}
	return b, cleanup, nil
}

// newOpsRouter wires the ops API. Run routes need a store; rate limiting and
// live progress need a cache.
func newOpsRouter(reg *prometheus.Registry, st store.Store, c cache.Cache, perMinute int) http.Handler {
	pingers := map[string]handler.Pinger{"database": nil, "cache": nil}
	deps := api.Dependencies{
		MetricsHandler: observability.MetricsHandler(reg),
	}
	if st != nil {
		pingers["database"] = st
		deps.GetRunHandler = handler.NewGetRunHandler(st, c)
		deps.ListResultsHandler = handler.NewListResultsHandler(st)
	}
	if c != nil {
		pingers["cache"] = c
		deps.RateLimit = mw.NewRateLimit(c, perMinute)
	}
	deps.HealthHandler = handler.NewHealthHandler(pingers)
	return api.NewRouter(deps)
}

// serveHTTP runs an http.Server on addr until ctx is done, then drains it.
func serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("ops server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down ops server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
