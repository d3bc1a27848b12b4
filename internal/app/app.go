package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/lightning-rounds/internal/config"
	"github.com/gokatarajesh/lightning-rounds/internal/db"
	"github.com/gokatarajesh/lightning-rounds/internal/live"
	"github.com/gokatarajesh/lightning-rounds/internal/logging"
	"github.com/gokatarajesh/lightning-rounds/internal/metrics"
	"github.com/gokatarajesh/lightning-rounds/internal/question"
	"github.com/gokatarajesh/lightning-rounds/internal/question/local"
	"github.com/gokatarajesh/lightning-rounds/internal/question/postgres"
	"github.com/gokatarajesh/lightning-rounds/internal/question/postgrest"
	"github.com/gokatarajesh/lightning-rounds/internal/server"
	ws "github.com/gokatarajesh/lightning-rounds/pkg/http/ws"
)

// Application aggregates shared infrastructure (store, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	store question.Store
	mode  string
	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	broadcaster *live.Broadcaster
	poller      *live.SummaryPoller
	bgCancels   []context.CancelFunc
}

// New bootstraps the logger, picks the question backend and wires the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	a := &Application{
		cfg:       cfg,
		logger:    logger,
		bgCancels: make([]context.CancelFunc, 0, 2),
	}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	if err := a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}
	logger.Info().Str("mode", a.mode).Msg("question backend selected")

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	hub := ws.NewHub(logger)
	var notifier question.Notifier
	if a.redis != nil {
		notifier = live.NewRedisNotifier(a.redis, cfg.Redis.Channel)
		a.broadcaster = live.NewBroadcaster(a.redis, hub, cfg.Redis.Channel, logger)
	} else {
		notifier = live.NewHubNotifier(hub)
	}

	aggregator := question.NewAggregator(a.store)
	if interval := cfg.Live.PollInterval; interval > 0 {
		a.poller = live.NewSummaryPoller(aggregator, live.NewHubNotifier(hub), interval, logger)
	}
	selector := question.NewSelector(a.store, nil)
	state := question.NewStateService(a.store, aggregator, notifier, logger)
	questionHTTP := question.NewHTTPHandler(selector, aggregator, state, a.mode, m, logger)

	a.http = server.NewHTTPServer(cfg, logger, server.Handlers{
		Questions: questionHTTP,
		Live:      live.NewHandler(hub, aggregator, cfg.CORS.AllowedOrigins, logger),
		Ready:     a.ready,
		Metrics:   m,
		Mode:      a.mode,
	})

	return a, nil
}

// openStore chooses the backend once, from which credentials are configured.
func (a *Application) openStore(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Backend() {
	case question.ModePostgres:
		pool, err := db.NewPool(ctx, cfg.Postgres.URL, db.PoolConfig{
			MaxConns:        cfg.Postgres.MaxConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		a.store = postgres.NewStore(pool)
		a.mode = question.ModePostgres

	case question.ModeSupabase:
		a.store = postgrest.NewStore(postgrest.Config{
			BaseURL:    cfg.Supabase.URL,
			ServiceKey: cfg.Supabase.ServiceKey,
			Table:      cfg.Supabase.Table,
			Timeout:    cfg.Supabase.Timeout,
		}, nil)
		a.mode = question.ModeSupabase

	default:
		var persister local.Persister
		switch cfg.Bank.Persist {
		case local.PersistFile:
			persister = local.NewFilePersister(cfg.Bank.StatePath, cfg.Bank.Path)
		case local.PersistRedis:
			persister = local.NewRedisPersister(a.redis, cfg.Redis.AskedKey())
		}
		a.store = local.NewStore(cfg.Bank.Path, persister, a.logger)
		a.mode = question.ModeLocal
	}
	return nil
}

func (a *Application) ready(ctx context.Context) error {
	if p, ok := a.store.(question.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Str("mode", a.mode).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.close()
	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.broadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.broadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("summary broadcaster stopped")
			}
		}()
	}

	if a.poller != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.poller.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("summary poller stopped")
			}
		}()
	}
}

func (a *Application) close() {
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Error().Err(err).Msg("question store close error")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
}
