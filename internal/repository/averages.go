package repository

import (
	"context"
	"fmt"

	"cbb_model/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// AveragesRepository handles national average rows, one per (league, season)
type AveragesRepository struct {
	db *Database
}

// Upsert fully overwrites the national averages for one league season.
func (r *AveragesRepository) Upsert(ctx context.Context, avg *models.NationalAverages) error {
	query := `
		INSERT INTO national_averages (
			league, season,
			two_point_made, two_point_attempted,
			three_point_made, three_point_attempted,
			free_throw_made, free_throw_attempted,
			two_point_made_allowed, two_point_attempted_allowed,
			three_point_made_allowed, three_point_attempted_allowed,
			free_throw_made_allowed, free_throw_attempted_allowed,
			points_per_team_per_game
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (league, season) DO UPDATE SET
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
			points_per_team_per_game = EXCLUDED.points_per_team_per_game,
			updated_at = NOW()
		RETURNING id, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		avg.League, avg.Season,
		avg.TwoPointMade, avg.TwoPointAttempted,
		avg.ThreePointMade, avg.ThreePointAttempted,
		avg.FreeThrowMade, avg.FreeThrowAttempted,
		avg.TwoPointMadeAllowed, avg.TwoPointAttemptedAllowed,
		avg.ThreePointMadeAllowed, avg.ThreePointAttemptedAllowed,
		avg.FreeThrowMadeAllowed, avg.FreeThrowAttemptedAllowed,
		avg.PointsPerTeamPerGame,
	).Scan(&avg.ID, &avg.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert national averages: %w", err)
	}

	log.Debug().
		Str("league", string(avg.League)).
		Str("season", avg.Season).
		Float64("points_per_team_per_game", avg.PointsPerTeamPerGame).
		Msg("National averages upserted")

	return nil
}

// Get retrieves the national averages for one league season.
func (r *AveragesRepository) Get(ctx context.Context, league models.League, season string) (*models.NationalAverages, error) {
	query := `
		SELECT
			id, league, season,
			two_point_made, two_point_attempted,
			three_point_made, three_point_attempted,
			free_throw_made, free_throw_attempted,
			two_point_made_allowed, two_point_attempted_allowed,
			three_point_made_allowed, three_point_attempted_allowed,
			free_throw_made_allowed, free_throw_attempted_allowed,
			points_per_team_per_game, updated_at
		FROM national_averages
		WHERE league = $1 AND season = $2
	`

	var avg models.NationalAverages
	err := r.db.Pool.QueryRow(ctx, query, league, season).Scan(
		&avg.ID, &avg.League, &avg.Season,
		&avg.TwoPointMade, &avg.TwoPointAttempted,
		&avg.ThreePointMade, &avg.ThreePointAttempted,
		&avg.FreeThrowMade, &avg.FreeThrowAttempted,
		&avg.TwoPointMadeAllowed, &avg.TwoPointAttemptedAllowed,
		&avg.ThreePointMadeAllowed, &avg.ThreePointAttemptedAllowed,
		&avg.FreeThrowMadeAllowed, &avg.FreeThrowAttemptedAllowed,
		&avg.PointsPerTeamPerGame, &avg.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("national averages not found: league=%s season=%s", league, season)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get national averages: %w", err)
	}

	return &avg, nil
}
