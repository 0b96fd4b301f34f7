package repository

import (
	"context"
	"fmt"

	"cbb_model/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// RollupRepository handles materialized team season rollups
type RollupRepository struct {
	db *Database
}

const rollupColumns = `
	id, team_id, games_played,
	two_point_made, two_point_attempted,
	three_point_made, three_point_attempted,
	free_throw_made, free_throw_attempted,
	two_point_made_allowed, two_point_attempted_allowed,
	three_point_made_allowed, three_point_attempted_allowed,
	free_throw_made_allowed, free_throw_attempted_allowed,
	updated_at
`

// Upsert fully overwrites a team's rollup. Rollups are a derived view of
// team_game_stats, never incremented in place.
func (r *RollupRepository) Upsert(ctx context.Context, rollup *models.TeamSeasonRollup) error {
	query := `
		INSERT INTO team_season_rollups (
			team_id, games_played,
			two_point_made, two_point_attempted,
			three_point_made, three_point_attempted,
			free_throw_made, free_throw_attempted,
			two_point_made_allowed, two_point_attempted_allowed,
			three_point_made_allowed, three_point_attempted_allowed,
			free_throw_made_allowed, free_throw_attempted_allowed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (team_id) DO UPDATE SET
			games_played = EXCLUDED.games_played,
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
		RETURNING id, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		rollup.TeamID, rollup.GamesPlayed,
		rollup.TwoPointMade, rollup.TwoPointAttempted,
		rollup.ThreePointMade, rollup.ThreePointAttempted,
		rollup.FreeThrowMade, rollup.FreeThrowAttempted,
		rollup.TwoPointMadeAllowed, rollup.TwoPointAttemptedAllowed,
		rollup.ThreePointMadeAllowed, rollup.ThreePointAttemptedAllowed,
		rollup.FreeThrowMadeAllowed, rollup.FreeThrowAttemptedAllowed,
	).Scan(&rollup.ID, &rollup.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert rollup: %w", err)
	}

	return nil
}

// GetByTeam retrieves a team's rollup.
func (r *RollupRepository) GetByTeam(ctx context.Context, teamID int) (*models.TeamSeasonRollup, error) {
	query := `SELECT ` + rollupColumns + ` FROM team_season_rollups WHERE team_id = $1`

	var rollup models.TeamSeasonRollup
	err := r.db.Pool.QueryRow(ctx, query, teamID).Scan(
		&rollup.ID, &rollup.TeamID, &rollup.GamesPlayed,
		&rollup.TwoPointMade, &rollup.TwoPointAttempted,
		&rollup.ThreePointMade, &rollup.ThreePointAttempted,
		&rollup.FreeThrowMade, &rollup.FreeThrowAttempted,
		&rollup.TwoPointMadeAllowed, &rollup.TwoPointAttemptedAllowed,
		&rollup.ThreePointMadeAllowed, &rollup.ThreePointAttemptedAllowed,
		&rollup.FreeThrowMadeAllowed, &rollup.FreeThrowAttemptedAllowed,
		&rollup.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("rollup not found: team_id=%d", teamID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rollup: %w", err)
	}

	return &rollup, nil
}

// ListWithGames retrieves every rollup with at least one game played for the
// given league and season.
func (r *RollupRepository) ListWithGames(ctx context.Context, league models.League, season string) ([]*models.TeamSeasonRollup, error) {
	query := `
		SELECT
			r.id, r.team_id, r.games_played,
			r.two_point_made, r.two_point_attempted,
			r.three_point_made, r.three_point_attempted,
			r.free_throw_made, r.free_throw_attempted,
			r.two_point_made_allowed, r.two_point_attempted_allowed,
			r.three_point_made_allowed, r.three_point_attempted_allowed,
			r.free_throw_made_allowed, r.free_throw_attempted_allowed,
			r.updated_at
		FROM team_season_rollups r
		JOIN teams t ON t.id = r.team_id
		WHERE t.league = $1 AND t.season = $2 AND r.games_played > 0
		ORDER BY r.team_id
	`

	rows, err := r.db.Pool.Query(ctx, query, league, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollups: %w", err)
	}
	defer rows.Close()

	var rollups []*models.TeamSeasonRollup
	for rows.Next() {
		var rollup models.TeamSeasonRollup
		err := rows.Scan(
			&rollup.ID, &rollup.TeamID, &rollup.GamesPlayed,
			&rollup.TwoPointMade, &rollup.TwoPointAttempted,
			&rollup.ThreePointMade, &rollup.ThreePointAttempted,
			&rollup.FreeThrowMade, &rollup.FreeThrowAttempted,
			&rollup.TwoPointMadeAllowed, &rollup.TwoPointAttemptedAllowed,
			&rollup.ThreePointMadeAllowed, &rollup.ThreePointAttemptedAllowed,
			&rollup.FreeThrowMadeAllowed, &rollup.FreeThrowAttemptedAllowed,
			&rollup.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rollup: %w", err)
		}
		rollups = append(rollups, &rollup)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rollups: %w", err)
	}

	return rollups, nil
}
