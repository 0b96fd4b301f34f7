// Package sync pulls daily schedules from the scoreboard provider and
// reconciles them into the teams and games tables.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cbb_model/ingestion/internal/client"
	"cbb_model/ingestion/internal/metrics"
	"cbb_model/ingestion/internal/models"
	"cbb_model/ingestion/internal/season"

	"github.com/rs/zerolog/log"
)

// EventsFetcher provides daily schedule events.
type EventsFetcher interface {
	FetchDailyEvents(ctx context.Context, league models.League, date time.Time) ([]client.EventRecord, error)
}

// TeamStore persists teams.
type TeamStore interface {
	Upsert(ctx context.Context, team *models.Team) (bool, error)
}

// GameStore persists games.
type GameStore interface {
	Upsert(ctx context.Context, game *models.Game) (bool, error)
}

// Synchronizer reconciles provider schedule data into storage. Every sync is
// an upsert pass, so re-running the same date range is harmless.
type Synchronizer struct {
	fetcher EventsFetcher
	teams   TeamStore
	games   GameStore

	// seasonOverride, when non-empty, pins every synced row to one season
	// label instead of deriving it from each event's date.
	seasonOverride string
}

// New creates a Synchronizer. seasonOverride may be empty.
func New(fetcher EventsFetcher, teams TeamStore, games GameStore, seasonOverride string) *Synchronizer {
	return &Synchronizer{
		fetcher:        fetcher,
		teams:          teams,
		games:          games,
		seasonOverride: seasonOverride,
	}
}

// LeagueSyncResult summarizes one league's sync pass.
type LeagueSyncResult struct {
	League        models.League
	DaysFetched   int
	TeamsInserted int
	TeamsUpdated  int
	GamesInserted int
	GamesUpdated  int
	Errors        []string
}

// SyncResult holds the per-league results of a full sync pass.
type SyncResult struct {
	Leagues []*LeagueSyncResult
}

// TotalErrors counts errors across all leagues.
func (r *SyncResult) TotalErrors() int {
	n := 0
	for _, lg := range r.Leagues {
		n += len(lg.Errors)
	}
	return n
}

// Provider status names mapped to internal game statuses. Names outside the
// table fall through to substring matching, then to SCHEDULED.
var statusNames = map[string]models.GameStatus{
	"STATUS_SCHEDULED":   models.StatusScheduled,
	"STATUS_IN_PROGRESS": models.StatusInProgress,
	"STATUS_HALFTIME":    models.StatusInProgress,
	"STATUS_END_PERIOD":  models.StatusInProgress,
	"STATUS_FINAL":       models.StatusFinal,
	"STATUS_POSTPONED":   models.StatusPostponed,
	"STATUS_CANCELED":    models.StatusCancelled,
	"STATUS_CANCELLED":   models.StatusCancelled,
}

// mapStatus resolves a provider status into an internal one. The completed
// flag wins over an unrecognized or missing name.
func mapStatus(name string, completed bool) models.GameStatus {
	upper := strings.ToUpper(name)
	if status, ok := statusNames[upper]; ok {
		return status
	}
	switch {
	case strings.Contains(upper, "POSTPON"):
		return models.StatusPostponed
	case strings.Contains(upper, "CANCEL"):
		return models.StatusCancelled
	case strings.Contains(upper, "FINAL") || completed:
		return models.StatusFinal
	case strings.Contains(upper, "PROGRESS") || strings.Contains(upper, "HALF"):
		return models.StatusInProgress
	default:
		return models.StatusScheduled
	}
}

// SyncRange syncs one league's schedule for every day in [start, end],
// inclusive. Per-day and per-event failures are collected into the result
// instead of aborting the range; an inverted range is an error.
func (s *Synchronizer) SyncRange(ctx context.Context, league models.League, start, end time.Time) (*LeagueSyncResult, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid date range: end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	started := time.Now()
	result := &LeagueSyncResult{League: league}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		events, err := s.fetcher.FetchDailyEvents(ctx, league, day)
		if err != nil {
			metrics.RecordError("sync")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", day.Format("2006-01-02"), err))
			log.Error().Err(err).
				Str("league", string(league)).
				Str("date", day.Format("2006-01-02")).
				Msg("Failed to fetch daily events")
			continue
		}
		result.DaysFetched++

		for _, ev := range events {
			if err := s.syncEvent(ctx, league, ev, result); err != nil {
				metrics.RecordError("sync")
				result.Errors = append(result.Errors, fmt.Sprintf("event %s: %v", ev.ProviderGameID, err))
				log.Error().Err(err).
					Str("league", string(league)).
					Str("provider_game_id", ev.ProviderGameID).
					Msg("Failed to sync event")
			}
		}
	}

	status := "success"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	metrics.RecordSync(string(league), status, time.Since(started).Seconds())

	log.Info().
		Str("league", string(league)).
		Int("days", result.DaysFetched).
		Int("teams_inserted", result.TeamsInserted).
		Int("games_inserted", result.GamesInserted).
		Int("games_updated", result.GamesUpdated).
		Int("errors", len(result.Errors)).
		Msg("League sync completed")

	return result, nil
}

// SyncRangeAll syncs both leagues over the same date range.
func (s *Synchronizer) SyncRangeAll(ctx context.Context, start, end time.Time) (*SyncResult, error) {
	result := &SyncResult{}
	for _, league := range models.Leagues() {
		lg, err := s.SyncRange(ctx, league, start, end)
		if err != nil {
			return result, err
		}
		result.Leagues = append(result.Leagues, lg)
	}
	return result, nil
}

// SyncDays syncs both leagues for the past n days up to and including today.
func (s *Synchronizer) SyncDays(ctx context.Context, n int) (*SyncResult, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid lookback: %d days", n)
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -n)
	return s.SyncRangeAll(ctx, start, end)
}

// syncEvent upserts one event's two teams and the game row.
func (s *Synchronizer) syncEvent(ctx context.Context, league models.League, ev client.EventRecord, result *LeagueSyncResult) error {
	seasonLabel := s.seasonOverride
	if seasonLabel == "" {
		seasonLabel = season.CurrentSeason(ev.Date)
	}

	if !ev.RoleMatched {
		log.Warn().
			Str("provider_game_id", ev.ProviderGameID).
			Msg("Event home/away resolved positionally, not by declared role")
	}

	homeTeam, err := s.upsertTeam(ctx, league, seasonLabel, ev.Home, result)
	if err != nil {
		return fmt.Errorf("home team: %w", err)
	}
	awayTeam, err := s.upsertTeam(ctx, league, seasonLabel, ev.Away, result)
	if err != nil {
		return fmt.Errorf("away team: %w", err)
	}

	game := &models.Game{
		League:         league,
		Season:         seasonLabel,
		ProviderGameID: ev.ProviderGameID,
		HomeTeamID:     homeTeam.ID,
		AwayTeamID:     awayTeam.ID,
		GameDate:       ev.Date,
		NeutralSite:    ev.NeutralSite,
		Status:         mapStatus(ev.StatusName, ev.Completed),
		HomeScore:      nullScore(ev.HomeScore),
		AwayScore:      nullScore(ev.AwayScore),
	}

	inserted, err := s.games.Upsert(ctx, game)
	if err != nil {
		return err
	}
	if inserted {
		result.GamesInserted++
	} else {
		result.GamesUpdated++
	}
	return nil
}

func (s *Synchronizer) upsertTeam(ctx context.Context, league models.League, seasonLabel string, et client.EventTeam, result *LeagueSyncResult) (*models.Team, error) {
	team := &models.Team{
		League:         league,
		Season:         seasonLabel,
		ProviderTeamID: et.ProviderTeamID,
		Name:           et.Name,
		Conference:     nullString(et.Conference),
	}
	inserted, err := s.teams.Upsert(ctx, team)
	if err != nil {
		return nil, err
	}
	if inserted {
		result.TeamsInserted++
	} else {
		result.TeamsUpdated++
	}
	return team, nil
}

func nullScore(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
