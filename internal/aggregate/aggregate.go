// Package aggregate maintains the derived season views: per-team rollups and
// games-played-weighted national averages.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"cbb_model/ingestion/internal/metrics"
	"cbb_model/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// StatsLister reads a team's per-game stat rows.
type StatsLister interface {
	ListByTeam(ctx context.Context, teamID int) ([]*models.TeamGameStats, error)
}

// RollupStore persists and reads season rollups.
type RollupStore interface {
	Upsert(ctx context.Context, rollup *models.TeamSeasonRollup) error
	ListWithGames(ctx context.Context, league models.League, season string) ([]*models.TeamSeasonRollup, error)
}

// AveragesStore persists national average rows.
type AveragesStore interface {
	Upsert(ctx context.Context, avg *models.NationalAverages) error
}

// AveragesCache publishes recomputed averages for downstream readers. A nil
// cache disables publishing.
type AveragesCache interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Rollups rebuilds per-team season rollups from stat rows.
type Rollups struct {
	stats   StatsLister
	rollups RollupStore
}

// NewRollups creates a rollup aggregator.
func NewRollups(stats StatsLister, rollups RollupStore) *Rollups {
	return &Rollups{stats: stats, rollups: rollups}
}

// RecomputeRollup rebuilds one team's rollup from scratch and overwrites the
// stored row. Rebuilding instead of incrementing keeps the rollup correct
// even when a stat row was re-upserted with corrected figures.
func (a *Rollups) RecomputeRollup(ctx context.Context, teamID int) error {
	rows, err := a.stats.ListByTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to list stats for team %d: %w", teamID, err)
	}

	rollup := &models.TeamSeasonRollup{TeamID: teamID}
	for _, row := range rows {
		rollup.Add(row)
	}

	if err := a.rollups.Upsert(ctx, rollup); err != nil {
		return fmt.Errorf("failed to upsert rollup for team %d: %w", teamID, err)
	}

	metrics.RecordRollupRecompute()
	log.Debug().
		Int("team_id", teamID).
		Int("games_played", rollup.GamesPlayed).
		Msg("Rollup recomputed")
	return nil
}

const averagesCacheTTL = 26 * time.Hour

// AveragesBuilder computes national per-game averages across a league season.
type AveragesBuilder struct {
	rollups  RollupStore
	averages AveragesStore
	cache    AveragesCache
}

// NewAveragesBuilder creates an averages builder. cache may be nil.
func NewAveragesBuilder(rollups RollupStore, averages AveragesStore, cache AveragesCache) *AveragesBuilder {
	return &AveragesBuilder{rollups: rollups, averages: averages, cache: cache}
}

// Result holds the averages built in one pass, nil for a league that had no
// played games.
type Result struct {
	Mens   *models.NationalAverages
	Womens *models.NationalAverages
}

// BuildAverages recomputes both leagues' national averages for one season.
// A league with no played games keeps its previous stored row untouched.
func (b *AveragesBuilder) BuildAverages(ctx context.Context, season string) (*Result, error) {
	result := &Result{}
	for _, league := range models.Leagues() {
		avg, err := b.buildLeague(ctx, league, season)
		if err != nil {
			return result, err
		}
		switch league {
		case models.LeagueMens:
			result.Mens = avg
		case models.LeagueWomens:
			result.Womens = avg
		}
	}
	return result, nil
}

// buildLeague computes one league's games-played-weighted averages. Weighting
// by games played means every game counts equally, regardless of how many a
// given team has played.
func (b *AveragesBuilder) buildLeague(ctx context.Context, league models.League, season string) (*models.NationalAverages, error) {
	rollups, err := b.rollups.ListWithGames(ctx, league, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollups for %s %s: %w", league, season, err)
	}
	if len(rollups) == 0 {
		log.Info().
			Str("league", string(league)).
			Str("season", season).
			Msg("No played games, skipping national averages")
		return nil, nil
	}

	var games int
	var total models.TeamSeasonRollup
	for _, r := range rollups {
		games += r.GamesPlayed
		total.TwoPointMade += r.TwoPointMade
		total.TwoPointAttempted += r.TwoPointAttempted
		total.ThreePointMade += r.ThreePointMade
		total.ThreePointAttempted += r.ThreePointAttempted
		total.FreeThrowMade += r.FreeThrowMade
		total.FreeThrowAttempted += r.FreeThrowAttempted
		total.TwoPointMadeAllowed += r.TwoPointMadeAllowed
		total.TwoPointAttemptedAllowed += r.TwoPointAttemptedAllowed
		total.ThreePointMadeAllowed += r.ThreePointMadeAllowed
		total.ThreePointAttemptedAllowed += r.ThreePointAttemptedAllowed
		total.FreeThrowMadeAllowed += r.FreeThrowMadeAllowed
		total.FreeThrowAttemptedAllowed += r.FreeThrowAttemptedAllowed
	}

	n := float64(games)
	avg := &models.NationalAverages{
		League: league,
		Season: season,

		TwoPointMade:        float64(total.TwoPointMade) / n,
		TwoPointAttempted:   float64(total.TwoPointAttempted) / n,
		ThreePointMade:      float64(total.ThreePointMade) / n,
		ThreePointAttempted: float64(total.ThreePointAttempted) / n,
		FreeThrowMade:       float64(total.FreeThrowMade) / n,
		FreeThrowAttempted:  float64(total.FreeThrowAttempted) / n,

		TwoPointMadeAllowed:        float64(total.TwoPointMadeAllowed) / n,
		TwoPointAttemptedAllowed:   float64(total.TwoPointAttemptedAllowed) / n,
		ThreePointMadeAllowed:      float64(total.ThreePointMadeAllowed) / n,
		ThreePointAttemptedAllowed: float64(total.ThreePointAttemptedAllowed) / n,
		FreeThrowMadeAllowed:       float64(total.FreeThrowMadeAllowed) / n,
		FreeThrowAttemptedAllowed:  float64(total.FreeThrowAttemptedAllowed) / n,
	}
	avg.PointsPerTeamPerGame = 2*avg.TwoPointMade + 3*avg.ThreePointMade + avg.FreeThrowMade

	if err := b.averages.Upsert(ctx, avg); err != nil {
		return nil, fmt.Errorf("failed to upsert averages for %s %s: %w", league, season, err)
	}

	if b.cache != nil {
		key := fmt.Sprintf("national_averages:%s:%s", league, season)
		if err := b.cache.SetJSON(ctx, key, avg, averagesCacheTTL); err != nil {
			// Cache publish failure is non-fatal; the database row is current.
			metrics.RecordError("cache")
			log.Warn().Err(err).Str("key", key).Msg("Failed to publish averages to cache")
		}
	}

	log.Info().
		Str("league", string(league)).
		Str("season", season).
		Int("teams", len(rollups)).
		Int("games", games).
		Float64("points_per_team_per_game", avg.PointsPerTeamPerGame).
		Msg("National averages rebuilt")

	return avg, nil
}
