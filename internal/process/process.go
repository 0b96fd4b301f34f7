// Package process turns completed games into per-team shooting stat rows and
// keeps the season rollups of the affected teams current.
package process

import (
	"context"
	"database/sql"
	"fmt"

	"cbb_model/ingestion/internal/client"
	"cbb_model/ingestion/internal/metrics"
	"cbb_model/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// BoxscoreFetcher provides per-game boxscores.
type BoxscoreFetcher interface {
	FetchBoxscore(ctx context.Context, league models.League, eventID string) (*client.BoxscoreRecord, error)
}

// GameStore lists and finalizes games.
type GameStore interface {
	ListUnprocessedFinal(ctx context.Context) ([]*models.Game, error)
	MarkProcessed(ctx context.Context, gameID int, homeScore, awayScore sql.NullInt32) error
}

// TeamStore resolves team rows.
type TeamStore interface {
	GetByID(ctx context.Context, id int) (*models.Team, error)
}

// StatsStore persists per-game stat rows.
type StatsStore interface {
	Upsert(ctx context.Context, stats *models.TeamGameStats) error
}

// RollupRecomputer rebuilds one team's season rollup from its stat rows.
type RollupRecomputer interface {
	RecomputeRollup(ctx context.Context, teamID int) error
}

// AcquireLock attempts to take the processing run lock without blocking. On
// success it returns a release func; acquired=false means another run holds
// the lock.
type AcquireLock func(ctx context.Context) (release func(context.Context), acquired bool, err error)

// Processor derives shooting stats for completed games. Each game is
// processed exactly once: games are selected while unprocessed and flipped to
// processed only after both stat rows and both rollups are written.
type Processor struct {
	fetcher     BoxscoreFetcher
	games       GameStore
	teams       TeamStore
	stats       StatsStore
	rollups     RollupRecomputer
	acquireLock AcquireLock
}

// New creates a Processor.
func New(fetcher BoxscoreFetcher, games GameStore, teams TeamStore, stats StatsStore, rollups RollupRecomputer, acquireLock AcquireLock) *Processor {
	return &Processor{
		fetcher:     fetcher,
		games:       games,
		teams:       teams,
		stats:       stats,
		rollups:     rollups,
		acquireLock: acquireLock,
	}
}

// Result summarizes one processing run.
type Result struct {
	AlreadyRunning bool
	GamesFound     int
	GamesProcessed int
	GamesSkipped   int
	Errors         []string
}

// ProcessCompletedGames processes every FINAL game whose stats have not been
// derived yet. Games whose boxscore is unavailable or incomplete are skipped
// and stay eligible for the next run. Concurrent runs are excluded by the
// run lock; the loser reports AlreadyRunning instead of failing.
func (p *Processor) ProcessCompletedGames(ctx context.Context) (*Result, error) {
	result := &Result{}

	release, acquired, err := p.acquireLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire processing lock: %w", err)
	}
	if !acquired {
		log.Info().Msg("Processing run already in progress, skipping")
		result.AlreadyRunning = true
		return result, nil
	}
	defer release(ctx)

	games, err := p.games.ListUnprocessedFinal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed games: %w", err)
	}
	result.GamesFound = len(games)

	for _, game := range games {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		processed, err := p.processGame(ctx, game)
		if err != nil {
			metrics.RecordError("process")
			result.Errors = append(result.Errors, fmt.Sprintf("game %d (%s): %v", game.ID, game.ProviderGameID, err))
			log.Error().Err(err).
				Int("game_id", game.ID).
				Str("provider_game_id", game.ProviderGameID).
				Msg("Failed to process game")
			continue
		}
		if processed {
			result.GamesProcessed++
		} else {
			result.GamesSkipped++
		}
	}

	metrics.RecordProcessing(result.GamesProcessed, result.GamesSkipped)

	log.Info().
		Int("found", result.GamesFound).
		Int("processed", result.GamesProcessed).
		Int("skipped", result.GamesSkipped).
		Int("errors", len(result.Errors)).
		Msg("Processing run completed")

	return result, nil
}

// processGame derives and persists both teams' stat rows for one game. A
// false return with nil error means the game was skipped because its
// boxscore is not usable yet.
func (p *Processor) processGame(ctx context.Context, game *models.Game) (bool, error) {
	homeTeam, err := p.teams.GetByID(ctx, game.HomeTeamID)
	if err != nil {
		return false, fmt.Errorf("home team: %w", err)
	}
	awayTeam, err := p.teams.GetByID(ctx, game.AwayTeamID)
	if err != nil {
		return false, fmt.Errorf("away team: %w", err)
	}

	box, err := p.fetcher.FetchBoxscore(ctx, game.League, game.ProviderGameID)
	if err != nil {
		return false, fmt.Errorf("fetch boxscore: %w", err)
	}
	if box == nil {
		log.Debug().
			Int("game_id", game.ID).
			Str("provider_game_id", game.ProviderGameID).
			Msg("Boxscore not available yet, skipping")
		return false, nil
	}

	homeBox := matchBoxTeam(box, homeTeam.ProviderTeamID, "home")
	awayBox := matchBoxTeam(box, awayTeam.ProviderTeamID, "away")
	if homeBox == nil || awayBox == nil || homeBox == awayBox {
		log.Warn().
			Int("game_id", game.ID).
			Str("provider_game_id", game.ProviderGameID).
			Msg("Boxscore teams could not be matched, skipping")
		return false, nil
	}
	if !homeBox.HasStats || !awayBox.HasStats {
		log.Debug().
			Int("game_id", game.ID).
			Str("provider_game_id", game.ProviderGameID).
			Msg("Boxscore has no statistics yet, skipping")
		return false, nil
	}

	homeStats := buildStats(game.ID, homeTeam.ID, homeBox.Line, awayBox.Line)
	awayStats := buildStats(game.ID, awayTeam.ID, awayBox.Line, homeBox.Line)

	if err := p.stats.Upsert(ctx, homeStats); err != nil {
		return false, fmt.Errorf("home stats: %w", err)
	}
	if err := p.stats.Upsert(ctx, awayStats); err != nil {
		return false, fmt.Errorf("away stats: %w", err)
	}

	if err := p.rollups.RecomputeRollup(ctx, homeTeam.ID); err != nil {
		return false, fmt.Errorf("home rollup: %w", err)
	}
	if err := p.rollups.RecomputeRollup(ctx, awayTeam.ID); err != nil {
		return false, fmt.Errorf("away rollup: %w", err)
	}

	// Scores derived from the shooting line backfill games synced before the
	// provider published a final score.
	homeScore := sql.NullInt32{Int32: int32(homeStats.Points()), Valid: true}
	awayScore := sql.NullInt32{Int32: int32(awayStats.Points()), Valid: true}
	if err := p.games.MarkProcessed(ctx, game.ID, homeScore, awayScore); err != nil {
		return false, fmt.Errorf("mark processed: %w", err)
	}

	return true, nil
}

// matchBoxTeam resolves one side of the boxscore, by provider team id first,
// by declared homeAway role second.
func matchBoxTeam(box *client.BoxscoreRecord, providerTeamID, role string) *client.BoxTeam {
	if team := box.TeamByProviderID(providerTeamID); team != nil {
		return team
	}
	return box.TeamByRole(role)
}

// buildStats assembles one team's stat row from its own offensive line and
// the opponent's line as the allowed mirror.
func buildStats(gameID, teamID int, own, opp client.ShootingLine) *models.TeamGameStats {
	ownTwoMade, ownTwoAtt := own.TwoPoint()
	oppTwoMade, oppTwoAtt := opp.TwoPoint()

	return &models.TeamGameStats{
		GameID: gameID,
		TeamID: teamID,

		TwoPointMade:        ownTwoMade,
		TwoPointAttempted:   ownTwoAtt,
		ThreePointMade:      own.ThreePointMade,
		ThreePointAttempted: own.ThreePointAttempted,
		FreeThrowMade:       own.FreeThrowsMade,
		FreeThrowAttempted:  own.FreeThrowsAttempted,

		TwoPointMadeAllowed:        oppTwoMade,
		TwoPointAttemptedAllowed:   oppTwoAtt,
		ThreePointMadeAllowed:      opp.ThreePointMade,
		ThreePointAttemptedAllowed: opp.ThreePointAttempted,
		FreeThrowMadeAllowed:       opp.FreeThrowsMade,
		FreeThrowAttemptedAllowed:  opp.FreeThrowsAttempted,
	}
}
