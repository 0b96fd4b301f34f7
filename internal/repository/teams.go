package repository

import (
	"context"
	"fmt"

	"cbb_model/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// TeamRepository handles team database operations
type TeamRepository struct {
	db *Database
}

// Upsert inserts or updates a team keyed by (league, season, provider_team_id).
// Only the mutable attributes (name, conference) are updated on conflict.
// The returned flag is true when the row was newly inserted.
func (r *TeamRepository) Upsert(ctx context.Context, team *models.Team) (bool, error) {
	query := `
		INSERT INTO teams (league, season, provider_team_id, name, conference)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (league, season, provider_team_id) DO UPDATE SET
			name = EXCLUDED.name,
			conference = COALESCE(EXCLUDED.conference, teams.conference),
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.Pool.QueryRow(
		ctx, query,
		team.League, team.Season, team.ProviderTeamID, team.Name, team.Conference,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt, &inserted)

	if err != nil {
		return false, fmt.Errorf("failed to upsert team: %w", err)
	}

	log.Debug().
		Int("id", team.ID).
		Str("league", string(team.League)).
		Str("provider_team_id", team.ProviderTeamID).
		Str("name", team.Name).
		Bool("inserted", inserted).
		Msg("Team upserted")

	return inserted, nil
}

// GetByID retrieves a team by its database ID
func (r *TeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `
		SELECT id, league, season, provider_team_id, name, conference, created_at, updated_at
		FROM teams
		WHERE id = $1
	`

	var team models.Team
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&team.ID, &team.League, &team.Season, &team.ProviderTeamID,
		&team.Name, &team.Conference, &team.CreatedAt, &team.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("team not found: id=%d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &team, nil
}

// GetByProviderID retrieves a team by its natural identity
func (r *TeamRepository) GetByProviderID(ctx context.Context, league models.League, season, providerTeamID string) (*models.Team, error) {
	query := `
		SELECT id, league, season, provider_team_id, name, conference, created_at, updated_at
		FROM teams
		WHERE league = $1 AND season = $2 AND provider_team_id = $3
	`

	var team models.Team
	err := r.db.Pool.QueryRow(ctx, query, league, season, providerTeamID).Scan(
		&team.ID, &team.League, &team.Season, &team.ProviderTeamID,
		&team.Name, &team.Conference, &team.CreatedAt, &team.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("team not found: league=%s season=%s provider_team_id=%s", league, season, providerTeamID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &team, nil
}

// ListBySeason retrieves all teams in a league season
func (r *TeamRepository) ListBySeason(ctx context.Context, league models.League, season string) ([]*models.Team, error) {
	query := `
		SELECT id, league, season, provider_team_id, name, conference, created_at, updated_at
		FROM teams
		WHERE league = $1 AND season = $2
		ORDER BY name
	`

	rows, err := r.db.Pool.Query(ctx, query, league, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		var team models.Team
		err := rows.Scan(
			&team.ID, &team.League, &team.Season, &team.ProviderTeamID,
			&team.Name, &team.Conference, &team.CreatedAt, &team.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, &team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// Count returns the total number of teams
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM teams`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}

	return count, nil
}
