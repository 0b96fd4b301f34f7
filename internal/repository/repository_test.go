package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"cbb_model/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to the database named by TEST_DATABASE_* or skips the
// test. These tests mutate data and expect a throwaway database.
func setupTestDB(t *testing.T) *Database {
	t.Helper()

	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set, skipping integration test")
	}

	cfg := Config{
		Host:     host,
		Port:     envOr("TEST_DATABASE_PORT", "5432"),
		User:     envOr("TEST_DATABASE_USER", "cbb_user"),
		Password: os.Getenv("TEST_DATABASE_PASSWORD"),
		Database: envOr("TEST_DATABASE_NAME", "cbb_model_test"),
		SSLMode:  envOr("TEST_DATABASE_SSL_MODE", "disable"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewDatabase(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func uniqueID(t *testing.T) string {
	return fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
}

func insertTeam(t *testing.T, db *Database, providerID string) *models.Team {
	t.Helper()
	team := &models.Team{
		League:         models.LeagueMens,
		Season:         "2025-26",
		ProviderTeamID: providerID,
		Name:           "Test Team " + providerID,
	}
	_, err := db.Teams.Upsert(context.Background(), team)
	require.NoError(t, err)
	return team
}

func TestTeamUpsertInsertThenUpdate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	providerID := uniqueID(t)

	team := &models.Team{
		League:         models.LeagueMens,
		Season:         "2025-26",
		ProviderTeamID: providerID,
		Name:           "Original Name",
	}
	inserted, err := db.Teams.Upsert(ctx, team)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, team.ID)

	renamed := &models.Team{
		League:         models.LeagueMens,
		Season:         "2025-26",
		ProviderTeamID: providerID,
		Name:           "Renamed",
		Conference:     sql.NullString{String: "7", Valid: true},
	}
	inserted, err = db.Teams.Upsert(ctx, renamed)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, team.ID, renamed.ID)

	got, err := db.Teams.GetByProviderID(ctx, models.LeagueMens, "2025-26", providerID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "7", got.Conference.String)
}

func TestTeamUpsertKeepsConferenceWhenAbsent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	providerID := uniqueID(t)

	withConf := &models.Team{
		League:         models.LeagueWomens,
		Season:         "2025-26",
		ProviderTeamID: providerID,
		Name:           "Conf Team",
		Conference:     sql.NullString{String: "12", Valid: true},
	}
	_, err := db.Teams.Upsert(ctx, withConf)
	require.NoError(t, err)

	withoutConf := &models.Team{
		League:         models.LeagueWomens,
		Season:         "2025-26",
		ProviderTeamID: providerID,
		Name:           "Conf Team",
	}
	_, err = db.Teams.Upsert(ctx, withoutConf)
	require.NoError(t, err)

	got, err := db.Teams.GetByProviderID(ctx, models.LeagueWomens, "2025-26", providerID)
	require.NoError(t, err)
	assert.Equal(t, "12", got.Conference.String)
}

func TestGameUpsertDoesNotReopenProcessed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	home := insertTeam(t, db, uniqueID(t)+"-h")
	away := insertTeam(t, db, uniqueID(t)+"-a")
	providerGameID := uniqueID(t)

	game := &models.Game{
		League:         models.LeagueMens,
		Season:         "2025-26",
		ProviderGameID: providerGameID,
		HomeTeamID:     home.ID,
		AwayTeamID:     away.ID,
		GameDate:       time.Date(2026, time.January, 10, 19, 0, 0, 0, time.UTC),
		Status:         models.StatusFinal,
	}
	inserted, err := db.Games.Upsert(ctx, game)
	require.NoError(t, err)
	assert.True(t, inserted)

	err = db.Games.MarkProcessed(ctx, game.ID,
		sql.NullInt32{Int32: 78, Valid: true},
		sql.NullInt32{Int32: 67, Valid: true},
	)
	require.NoError(t, err)

	// A re-sync of the same game must not clear stats_processed or the
	// backfilled scores.
	resync := &models.Game{
		League:         models.LeagueMens,
		Season:         "2025-26",
		ProviderGameID: providerGameID,
		HomeTeamID:     home.ID,
		AwayTeamID:     away.ID,
		GameDate:       game.GameDate,
		Status:         models.StatusFinal,
	}
	inserted, err = db.Games.Upsert(ctx, resync)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.True(t, resync.StatsProcessed)

	got, err := db.Games.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.True(t, got.StatsProcessed)
	assert.Equal(t, int32(78), got.HomeScore.Int32)
}

func TestMarkProcessedIsOneWay(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	home := insertTeam(t, db, uniqueID(t)+"-h")
	away := insertTeam(t, db, uniqueID(t)+"-a")

	game := &models.Game{
		League:         models.LeagueMens,
		Season:         "2025-26",
		ProviderGameID: uniqueID(t),
		HomeTeamID:     home.ID,
		AwayTeamID:     away.ID,
		GameDate:       time.Now().UTC(),
		Status:         models.StatusFinal,
	}
	_, err := db.Games.Upsert(ctx, game)
	require.NoError(t, err)

	score := sql.NullInt32{Int32: 70, Valid: true}
	require.NoError(t, db.Games.MarkProcessed(ctx, game.ID, score, score))

	err = db.Games.MarkProcessed(ctx, game.ID, score, score)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not markable")
}

func TestMarkProcessedRejectsNonFinal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	home := insertTeam(t, db, uniqueID(t)+"-h")
	away := insertTeam(t, db, uniqueID(t)+"-a")

	game := &models.Game{
		League:         models.LeagueMens,
		Season:         "2025-26",
		ProviderGameID: uniqueID(t),
		HomeTeamID:     home.ID,
		AwayTeamID:     away.ID,
		GameDate:       time.Now().UTC(),
		Status:         models.StatusScheduled,
	}
	_, err := db.Games.Upsert(ctx, game)
	require.NoError(t, err)

	err = db.Games.MarkProcessed(ctx, game.ID, sql.NullInt32{}, sql.NullInt32{})
	require.Error(t, err)
}

func TestGameStatsUpsertConvergesPerTeam(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	home := insertTeam(t, db, uniqueID(t)+"-h")
	away := insertTeam(t, db, uniqueID(t)+"-a")

	game := &models.Game{
		League:         models.LeagueMens,
		Season:         "2025-26",
		ProviderGameID: uniqueID(t),
		HomeTeamID:     home.ID,
		AwayTeamID:     away.ID,
		GameDate:       time.Now().UTC(),
		Status:         models.StatusFinal,
	}
	_, err := db.Games.Upsert(ctx, game)
	require.NoError(t, err)

	stats := &models.TeamGameStats{
		GameID:              game.ID,
		TeamID:              home.ID,
		TwoPointMade:        20,
		TwoPointAttempted:   38,
		ThreePointMade:      8,
		ThreePointAttempted: 22,
		FreeThrowMade:       14,
		FreeThrowAttempted:  18,
	}
	require.NoError(t, db.GameStats.Upsert(ctx, stats))
	firstID := stats.ID

	stats.TwoPointMade = 21
	require.NoError(t, db.GameStats.Upsert(ctx, stats))
	assert.Equal(t, firstID, stats.ID)

	count, err := db.GameStats.CountByTeam(ctx, home.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rows, err := db.GameStats.ListByTeam(ctx, home.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 21, rows[0].TwoPointMade)
}

func TestRollupUpsertOverwrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	team := insertTeam(t, db, uniqueID(t))

	rollup := &models.TeamSeasonRollup{
		TeamID:       team.ID,
		GamesPlayed:  3,
		TwoPointMade: 60,
	}
	require.NoError(t, db.Rollups.Upsert(ctx, rollup))

	rollup.GamesPlayed = 4
	rollup.TwoPointMade = 81
	require.NoError(t, db.Rollups.Upsert(ctx, rollup))

	got, err := db.Rollups.GetByTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.GamesPlayed)
	assert.Equal(t, 81, got.TwoPointMade)
}

func TestAveragesUpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	avg := &models.NationalAverages{
		League:               models.LeagueMens,
		Season:               "1997-98",
		TwoPointMade:         20.5,
		ThreePointMade:       7.2,
		FreeThrowMade:        13.9,
		PointsPerTeamPerGame: 76.5,
	}
	require.NoError(t, db.Averages.Upsert(ctx, avg))

	avg.PointsPerTeamPerGame = 77.1
	require.NoError(t, db.Averages.Upsert(ctx, avg))

	got, err := db.Averages.Get(ctx, models.LeagueMens, "1997-98")
	require.NoError(t, err)
	assert.InDelta(t, 77.1, got.PointsPerTeamPerGame, 1e-9)

	_, err = db.Averages.Get(ctx, models.LeagueWomens, "1897-98")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestTryRunLockMutualExclusion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	lock, acquired, err := db.TryRunLock(ctx, LockProcessGames)
	require.NoError(t, err)
	require.True(t, acquired)

	_, again, err := db.TryRunLock(ctx, LockProcessGames)
	require.NoError(t, err)
	assert.False(t, again)

	lock.Release(ctx)

	relock, acquired, err := db.TryRunLock(ctx, LockProcessGames)
	require.NoError(t, err)
	assert.True(t, acquired)
	relock.Release(ctx)
}
