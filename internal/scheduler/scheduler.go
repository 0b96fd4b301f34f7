// Package scheduler drives the background ingestion cadence: a daily
// schedule sync, a periodic processing pass, and a nightly rebuild of
// national averages.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cbb_model/ingestion/internal/aggregate"
	"cbb_model/ingestion/internal/config"
	"cbb_model/ingestion/internal/process"
	"cbb_model/ingestion/internal/season"
	syncer "cbb_model/ingestion/internal/sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler manages the recurring ingestion tasks.
type Scheduler struct {
	cfg          *config.Config
	synchronizer *syncer.Synchronizer
	processor    *process.Processor
	averages     *aggregate.AveragesBuilder
	cron         *cron.Cron
	ticker       *time.Ticker
	stopChan     chan struct{}

	bootstrap BootstrapStatus
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, synchronizer *syncer.Synchronizer, processor *process.Processor, averages *aggregate.AveragesBuilder) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		synchronizer: synchronizer,
		processor:    processor,
		averages:     averages,
		cron:         cron.New(),
		stopChan:     make(chan struct{}),
	}
}

// Start registers the cron jobs and the processing ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.DailySyncCron, func() {
		log.Info().Msg("Running daily schedule sync...")
		if err := s.runDailySync(ctx); err != nil {
			log.Error().Err(err).Msg("Daily schedule sync failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule daily sync: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.AveragesCron, func() {
		log.Info().Msg("Running national averages rebuild...")
		if err := s.runAverages(ctx); err != nil {
			log.Error().Err(err).Msg("National averages rebuild failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule averages rebuild: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("daily_sync", s.cfg.DailySyncCron).
		Str("averages", s.cfg.AveragesCron).
		Msg("Cron jobs scheduled")

	s.ticker = time.NewTicker(s.cfg.ProcessInterval)
	log.Info().
		Dur("interval", s.cfg.ProcessInterval).
		Msg("Game processing ticker started")

	go s.pollCompletedGames(ctx)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

// pollCompletedGames runs a processing pass on every tick.
func (s *Scheduler) pollCompletedGames(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping game processing")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping game processing")
			return
		case <-s.ticker.C:
			result, err := s.processor.ProcessCompletedGames(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Processing pass failed")
				continue
			}
			if result.AlreadyRunning || result.GamesFound == 0 {
				continue
			}
			log.Info().
				Int("processed", result.GamesProcessed).
				Int("skipped", result.GamesSkipped).
				Int("errors", len(result.Errors)).
				Msg("Processing pass complete")
		}
	}
}

// runDailySync re-syncs the recent schedule window and processes whatever
// finished since the last pass.
func (s *Scheduler) runDailySync(ctx context.Context) error {
	start := time.Now()

	result, err := s.synchronizer.SyncDays(ctx, s.cfg.SyncLookbackDays)
	if err != nil {
		return fmt.Errorf("schedule sync failed: %w", err)
	}

	if _, err := s.processor.ProcessCompletedGames(ctx); err != nil {
		return fmt.Errorf("post-sync processing failed: %w", err)
	}

	log.Info().
		Int("lookback_days", s.cfg.SyncLookbackDays).
		Int("errors", result.TotalErrors()).
		Dur("duration", time.Since(start)).
		Msg("Daily schedule sync complete")
	return nil
}

// runAverages rebuilds national averages for the season in effect.
func (s *Scheduler) runAverages(ctx context.Context) error {
	seasonLabel := s.cfg.SeasonOverride
	if seasonLabel == "" {
		seasonLabel = season.CurrentSeason(time.Now().UTC())
	}

	result, err := s.averages.BuildAverages(ctx, seasonLabel)
	if err != nil {
		return err
	}

	log.Info().
		Str("season", seasonLabel).
		Bool("mens", result.Mens != nil).
		Bool("womens", result.Womens != nil).
		Msg("National averages rebuild complete")
	return nil
}

// BootstrapState is the lifecycle of the initial season sync.
type BootstrapState string

const (
	BootstrapIdle    BootstrapState = "idle"
	BootstrapRunning BootstrapState = "running"
	BootstrapSuccess BootstrapState = "success"
	BootstrapError   BootstrapState = "error"
)

// BootstrapStatus records the progress of the initial season sync. It is
// read from the health endpoint while the sync runs in the background.
type BootstrapStatus struct {
	mu sync.Mutex

	state       BootstrapState
	startedAt   time.Time
	finishedAt  time.Time
	lastError   string
	syncErrors  int
	gamesSynced int
}

// Snapshot is a point-in-time copy of the bootstrap status.
type Snapshot struct {
	State       BootstrapState `json:"state"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
	LastError   string         `json:"last_error,omitempty"`
	SyncErrors  int            `json:"sync_errors"`
	GamesSynced int            `json:"games_synced"`
}

// Bootstrap returns a snapshot of the initial sync status.
func (s *Scheduler) Bootstrap() Snapshot {
	s.bootstrap.mu.Lock()
	defer s.bootstrap.mu.Unlock()

	snap := Snapshot{
		State:       s.bootstrap.state,
		LastError:   s.bootstrap.lastError,
		SyncErrors:  s.bootstrap.syncErrors,
		GamesSynced: s.bootstrap.gamesSynced,
	}
	if snap.State == "" {
		snap.State = BootstrapIdle
	}
	if !s.bootstrap.startedAt.IsZero() {
		t := s.bootstrap.startedAt
		snap.StartedAt = &t
	}
	if !s.bootstrap.finishedAt.IsZero() {
		t := s.bootstrap.finishedAt
		snap.FinishedAt = &t
	}
	return snap
}

// StartSeasonSync launches the full season-window sync in the background and
// returns immediately. The worker stays responsive while the backfill runs.
func (s *Scheduler) StartSeasonSync(ctx context.Context, reference time.Time) {
	s.bootstrap.mu.Lock()
	if s.bootstrap.state == BootstrapRunning {
		s.bootstrap.mu.Unlock()
		log.Warn().Msg("Season sync already running, not starting another")
		return
	}
	s.bootstrap.state = BootstrapRunning
	s.bootstrap.startedAt = time.Now()
	s.bootstrap.finishedAt = time.Time{}
	s.bootstrap.lastError = ""
	s.bootstrap.mu.Unlock()

	seasonLabel := s.cfg.SeasonOverride
	if seasonLabel == "" {
		seasonLabel = season.CurrentSeason(reference)
	}

	go func() {
		start, end, err := season.Window(seasonLabel)
		if err != nil {
			s.bootstrap.mu.Lock()
			s.bootstrap.state = BootstrapError
			s.bootstrap.lastError = err.Error()
			s.bootstrap.finishedAt = time.Now()
			s.bootstrap.mu.Unlock()
			log.Error().Err(err).Str("season", seasonLabel).Msg("Season backfill sync failed")
			return
		}
		now := time.Now().UTC()
		if end.After(now) {
			end = now
		}
		if end.Before(start) {
			// Off-season start: the season window has not opened yet.
			s.bootstrap.mu.Lock()
			s.bootstrap.state = BootstrapSuccess
			s.bootstrap.finishedAt = time.Now()
			s.bootstrap.mu.Unlock()
			log.Info().Str("season", seasonLabel).Msg("Season has not started, nothing to backfill")
			return
		}

		log.Info().
			Str("start", start.Format("2006-01-02")).
			Str("end", end.Format("2006-01-02")).
			Msg("Season backfill sync starting")

		result, err := s.synchronizer.SyncRangeAll(ctx, start, end)

		games := 0
		errCount := 0
		if result != nil {
			for _, lg := range result.Leagues {
				games += lg.GamesInserted + lg.GamesUpdated
			}
			errCount = result.TotalErrors()
		}

		if err == nil {
			_, err = s.processor.ProcessCompletedGames(ctx)
		}
		if err == nil {
			err = s.runAverages(ctx)
		}

		s.bootstrap.mu.Lock()
		s.bootstrap.finishedAt = time.Now()
		s.bootstrap.gamesSynced = games
		s.bootstrap.syncErrors = errCount
		if err != nil {
			s.bootstrap.state = BootstrapError
			s.bootstrap.lastError = err.Error()
		} else {
			s.bootstrap.state = BootstrapSuccess
		}
		s.bootstrap.mu.Unlock()

		if err != nil {
			log.Error().Err(err).Msg("Season backfill sync failed")
			return
		}
		log.Info().
			Int("games", games).
			Int("errors", errCount).
			Msg("Season backfill sync complete")
	}()
}
