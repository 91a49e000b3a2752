package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/gridwatt/energymarket/config"
	"github.com/gridwatt/energymarket/internal/api"
	"github.com/gridwatt/energymarket/internal/audit"
	"github.com/gridwatt/energymarket/internal/ledger"
	"github.com/gridwatt/energymarket/internal/market"
	"github.com/gridwatt/energymarket/internal/matching"
	"github.com/gridwatt/energymarket/internal/settlement"
	"github.com/gridwatt/energymarket/internal/stats"
	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/storage/memory"
	"github.com/gridwatt/energymarket/internal/storage/postgres"
	"github.com/gridwatt/energymarket/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logger)
	log.Info().Msg("starting energy market API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := buildBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("storage backend init failed")
	}
	defer backend.Close()

	notifiers := audit.Multi{audit.NewLogNotifier(log)}
	var tape *redis.Tape
	if cfg.Redis.Enabled {
		tape, err = redis.NewTape(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxTrades:    cfg.Redis.MaxTrades,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without trade tape")
			tape = nil
		} else {
			defer tape.Close()
			notifiers = append(notifiers, audit.NewTapeNotifier(tape, log))
			log.Info().Str("host", cfg.Redis.Host).Int("port", cfg.Redis.Port).Msg("redis trade tape connected")
		}
	}

	ledgerSvc := ledger.NewService(backend, notifiers, log)
	marketSvc := market.NewService(backend, backend, log)
	aggregator := stats.NewAggregator(backend, cfg.Fee.Rate)

	coordinator := settlement.NewCoordinator(backend, backend, notifiers, settlement.Config{
		Rate:      cfg.Fee.Rate,
		Collector: cfg.Fee.Collector,
	}, log)
	engine := matching.NewEngine(backend, matching.Policy{
		BatchLimit:     cfg.Matching.BatchLimit,
		AllowSelfTrade: cfg.Matching.AllowSelfTrade,
		MinFill:        cfg.Matching.MinFill,
	}, log)
	runner := matching.NewRunner(engine, coordinator, cfg.Matching.Interval, log)
	go runner.Start(ctx)

	var recent api.RecentTrades
	if tape != nil {
		recent = tape
	}
	apiServer := api.NewServer(marketSvc, ledgerSvc, backend, aggregator, recent, cfg.API, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shut down")
		os.Exit(1)
	}
	log.Info().Msg("server exited")
}

func newLogger(cfg config.LoggerConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out)
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// buildBackend selects the storage backend. PostgreSQL wins when enabled;
// the in-memory store is the default for local runs and tests.
func buildBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Backend, error) {
	if cfg.Database.Enabled {
		store, err := postgres.NewStore(ctx, postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Database:        cfg.Database.Name,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			MaxConns:        int32(cfg.Database.MaxConns),
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			SSLMode:         cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.Name).Msg("postgres backend connected")
		return store, nil
	}

	log.Info().Msg("in-memory backend enabled")
	return memory.NewStore(), nil
}
