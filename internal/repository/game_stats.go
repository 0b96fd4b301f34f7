package repository

import (
	"context"
	"fmt"

	"cbb_model/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// GameStatsRepository handles per-game shooting stat rows
type GameStatsRepository struct {
	db *Database
}

const gameStatsColumns = `
	id, game_id, team_id,
	two_point_made, two_point_attempted,
	three_point_made, three_point_attempted,
	free_throw_made, free_throw_attempted,
	two_point_made_allowed, two_point_attempted_allowed,
	three_point_made_allowed, three_point_attempted_allowed,
	free_throw_made_allowed, free_throw_attempted_allowed,
	created_at, updated_at
`

// Upsert inserts or updates a stat row keyed by (game_id, team_id). The
// unique key makes concurrent processing runs converge on a single row per
// side instead of double-writing.
func (r *GameStatsRepository) Upsert(ctx context.Context, stats *models.TeamGameStats) error {
	query := `
		INSERT INTO team_game_stats (
			game_id, team_id,
			two_point_made, two_point_attempted,
			three_point_made, three_point_attempted,
			free_throw_made, free_throw_attempted,
			two_point_made_allowed, two_point_attempted_allowed,
			three_point_made_allowed, three_point_attempted_allowed,
			free_throw_made_allowed, free_throw_attempted_allowed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (game_id, team_id) DO UPDATE SET
			two_point_made = EXCLUDED.two_point_made,
			two_point_attempted = EXCLUDED.two_point_attempted,
			three_point_made = EXCLUDED.three_point_made,
			three_point_attempted = EXCLUDED.three_point_attempted,
			free_throw_made = EXCLUDED.free_throw_made,
			free_throw_attempted = EXCLUDED.free_throw_attempted,
			two_point_made_allowed = EXCLUDED.two_point_made_allowed,
			two_point_attempted_allowed = EXCLUDED.two_point_attempted_allowed,
			three_point_made_allowed = EXCLUDED.three_point_made_allowed,
			three_point_attempted_allowed = EXCLUDED.three_point_attempted_allowed,
			free_throw_made_allowed = EXCLUDED.free_throw_made_allowed,
			free_throw_attempted_allowed = EXCLUDED.free_throw_attempted_allowed,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		stats.GameID, stats.TeamID,
		stats.TwoPointMade, stats.TwoPointAttempted,
		stats.ThreePointMade, stats.ThreePointAttempted,
		stats.FreeThrowMade, stats.FreeThrowAttempted,
		stats.TwoPointMadeAllowed, stats.TwoPointAttemptedAllowed,
		stats.ThreePointMadeAllowed, stats.ThreePointAttemptedAllowed,
		stats.FreeThrowMadeAllowed, stats.FreeThrowAttemptedAllowed,
	).Scan(&stats.ID, &stats.CreatedAt, &stats.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert game stats: %w", err)
	}

	log.Debug().
		Int("game_id", stats.GameID).
		Int("team_id", stats.TeamID).
		Msg("Game stats upserted")

	return nil
}

// ListByTeam retrieves every stat row for one team, oldest game first.
func (r *GameStatsRepository) ListByTeam(ctx context.Context, teamID int) ([]*models.TeamGameStats, error) {
	query := `
		SELECT ` + gameStatsColumns + `
		FROM team_game_stats
		WHERE team_id = $1
		ORDER BY game_id
	`

	rows, err := r.db.Pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list game stats: %w", err)
	}
	defer rows.Close()

	var statsList []*models.TeamGameStats
	for rows.Next() {
		var stats models.TeamGameStats
		err := rows.Scan(
			&stats.ID, &stats.GameID, &stats.TeamID,
			&stats.TwoPointMade, &stats.TwoPointAttempted,
			&stats.ThreePointMade, &stats.ThreePointAttempted,
			&stats.FreeThrowMade, &stats.FreeThrowAttempted,
			&stats.TwoPointMadeAllowed, &stats.TwoPointAttemptedAllowed,
			&stats.ThreePointMadeAllowed, &stats.ThreePointAttemptedAllowed,
			&stats.FreeThrowMadeAllowed, &stats.FreeThrowAttemptedAllowed,
			&stats.CreatedAt, &stats.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game stats: %w", err)
		}
		statsList = append(statsList, &stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game stats: %w", err)
	}

	return statsList, nil
}

// CountByTeam returns the number of stat rows for one team.
func (r *GameStatsRepository) CountByTeam(ctx context.Context, teamID int) (int, error) {
	query := `SELECT COUNT(*) FROM team_game_stats WHERE team_id = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, teamID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count game stats: %w", err)
	}

	return count, nil
}
