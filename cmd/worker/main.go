package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cbb_model/ingestion/internal/aggregate"
	"cbb_model/ingestion/internal/cache"
	"cbb_model/ingestion/internal/client"
	"cbb_model/ingestion/internal/config"
	"cbb_model/ingestion/internal/metrics"
	"cbb_model/ingestion/internal/process"
	"cbb_model/ingestion/internal/repository"
	"cbb_model/ingestion/internal/scheduler"
	syncer "cbb_model/ingestion/internal/sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting college basketball ingestion worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize scoreboard client
	scoreboard := client.New(
		cfg.ScoreboardBaseURL,
		cfg.FetchTimeout,
		cfg.PaceMinInterval,
		cfg.PaceJitter,
	)
	log.Info().Str("base_url", cfg.ScoreboardBaseURL).Msg("Scoreboard client initialized")

	// Initialize database connection
	dbConfig := repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}

	db, err := repository.NewDatabase(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize Redis; averages still land in Postgres when it is down
	var redisCache *cache.Cache
	if cfg.RedisEnabled {
		redisCache, err = cache.New(ctx, cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info().Msg("Redis cache connected")
		}
	}

	// Wire the pipeline components
	synchronizer := syncer.New(scoreboard, db.Teams, db.Games, cfg.SeasonOverride)
	rollups := aggregate.NewRollups(db.GameStats, db.Rollups)

	var averagesCache aggregate.AveragesCache
	if redisCache != nil {
		averagesCache = redisCache
	}
	averages := aggregate.NewAveragesBuilder(db.Rollups, db.Averages, averagesCache)

	acquireLock := func(ctx context.Context) (func(context.Context), bool, error) {
		lock, ok, err := db.TryRunLock(ctx, repository.LockProcessGames)
		if err != nil || !ok {
			return nil, ok, err
		}
		return lock.Release, true, nil
	}
	processor := process.New(scoreboard, db.Games, db.Teams, db.GameStats, rollups, acquireLock)

	// Create and start scheduler
	sched := scheduler.NewScheduler(cfg, synchronizer, processor, averages)

	// Start metrics HTTP server
	go startMetricsServer(strconv.Itoa(cfg.MetricsPort), db, sched)

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Keep the ingestion totals gauges current
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				updateIngestionGauges(ctx, db)
			case <-ctx.Done():
				return
			}
		}
	}()

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Kick off the season backfill in the background
	if cfg.InitialSyncEnabled {
		log.Info().Msg("Starting initial season sync...")
		sched.StartSeasonSync(ctx, time.Now().UTC())
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

func updateIngestionGauges(ctx context.Context, db *repository.Database) {
	teams, err := db.Teams.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count teams")
		return
	}
	games, err := db.Games.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count games")
		return
	}
	metrics.UpdateIngestionStats(int64(teams), int64(games))
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port string, db *repository.Database, sched *scheduler.Scheduler) {
	http.Handle("/metrics", promhttp.Handler())

	// Health check endpoint, includes the bootstrap sync state
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if err := db.Health(r.Context()); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"bootstrap": sched.Bootstrap(),
		})
	})

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
