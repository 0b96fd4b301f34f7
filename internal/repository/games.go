package repository

import (
	"context"
	"database/sql"
	"fmt"

	"cbb_model/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

const gameColumns = `
	id, league, season, provider_game_id, home_team_id, away_team_id,
	game_date, neutral_site, status, home_score, away_score,
	stats_processed, last_synced_at, created_at, updated_at
`

// Upsert inserts or updates a game keyed by (league, season, provider_game_id).
// Mutable fields are refreshed; identity fields and stats_processed are left
// untouched, so a re-sync of an already-processed FINAL game never reopens it.
// Scores are only overwritten with non-null values. The returned flag is true
// when the row was newly inserted.
func (r *GameRepository) Upsert(ctx context.Context, game *models.Game) (bool, error) {
	query := `
		INSERT INTO games (
			league, season, provider_game_id, home_team_id, away_team_id,
			game_date, neutral_site, status, home_score, away_score, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (league, season, provider_game_id) DO UPDATE SET
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			game_date = EXCLUDED.game_date,
			neutral_site = EXCLUDED.neutral_site,
			status = EXCLUDED.status,
			home_score = COALESCE(EXCLUDED.home_score, games.home_score),
			away_score = COALESCE(EXCLUDED.away_score, games.away_score),
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING id, stats_processed, last_synced_at, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.Pool.QueryRow(
		ctx, query,
		game.League, game.Season, game.ProviderGameID, game.HomeTeamID, game.AwayTeamID,
		game.GameDate, game.NeutralSite, game.Status, game.HomeScore, game.AwayScore,
	).Scan(&game.ID, &game.StatsProcessed, &game.LastSyncedAt, &game.CreatedAt, &game.UpdatedAt, &inserted)

	if err != nil {
		return false, fmt.Errorf("failed to upsert game: %w", err)
	}

	log.Debug().
		Int("id", game.ID).
		Str("provider_game_id", game.ProviderGameID).
		Str("status", string(game.Status)).
		Bool("inserted", inserted).
		Msg("Game upserted")

	return inserted, nil
}

// GetByID retrieves a game by its database ID
func (r *GameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	var game models.Game
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&game.ID, &game.League, &game.Season, &game.ProviderGameID,
		&game.HomeTeamID, &game.AwayTeamID, &game.GameDate, &game.NeutralSite,
		&game.Status, &game.HomeScore, &game.AwayScore,
		&game.StatsProcessed, &game.LastSyncedAt, &game.CreatedAt, &game.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("game not found: id=%d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return &game, nil
}

// GetByProviderID retrieves a game by its natural identity
func (r *GameRepository) GetByProviderID(ctx context.Context, league models.League, season, providerGameID string) (*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE league = $1 AND season = $2 AND provider_game_id = $3
	`

	var game models.Game
	err := r.db.Pool.QueryRow(ctx, query, league, season, providerGameID).Scan(
		&game.ID, &game.League, &game.Season, &game.ProviderGameID,
		&game.HomeTeamID, &game.AwayTeamID, &game.GameDate, &game.NeutralSite,
		&game.Status, &game.HomeScore, &game.AwayScore,
		&game.StatsProcessed, &game.LastSyncedAt, &game.CreatedAt, &game.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("game not found: league=%s season=%s provider_game_id=%s", league, season, providerGameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return &game, nil
}

// ListUnprocessedFinal retrieves all FINAL games whose stats have not been
// derived yet, oldest scheduled time first. The ordering keeps processing
// deterministic, so a crash mid-run resumes from the oldest game.
func (r *GameRepository) ListUnprocessedFinal(ctx context.Context) ([]*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE status = 'FINAL' AND stats_processed = FALSE
		ORDER BY game_date ASC, id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		var game models.Game
		err := rows.Scan(
			&game.ID, &game.League, &game.Season, &game.ProviderGameID,
			&game.HomeTeamID, &game.AwayTeamID, &game.GameDate, &game.NeutralSite,
			&game.Status, &game.HomeScore, &game.AwayScore,
			&game.StatsProcessed, &game.LastSyncedAt, &game.CreatedAt, &game.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, &game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	log.Debug().Int("count", len(games)).Msg("Retrieved unprocessed final games")
	return games, nil
}

// MarkProcessed flips stats_processed for a FINAL game and backfills scores
// that were still null. The guard clauses make the transition one-way: a
// second call for the same game affects zero rows.
func (r *GameRepository) MarkProcessed(ctx context.Context, gameID int, homeScore, awayScore sql.NullInt32) error {
	query := `
		UPDATE games
		SET stats_processed = TRUE,
		    home_score = COALESCE(home_score, $2),
		    away_score = COALESCE(away_score, $3),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'FINAL' AND stats_processed = FALSE
	`

	result, err := r.db.Pool.Exec(ctx, query, gameID, homeScore, awayScore)
	if err != nil {
		return fmt.Errorf("failed to mark game processed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("game not markable: id=%d (not final or already processed)", gameID)
	}

	return nil
}

// Count returns the total number of games
func (r *GameRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM games`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}

	return count, nil
}
