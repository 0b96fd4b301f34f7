package models

import (
	"database/sql"
	"time"
)

// GameStatus is the normalized game state.
type GameStatus string

const (
	StatusScheduled  GameStatus = "SCHEDULED"
	StatusInProgress GameStatus = "IN_PROGRESS"
	StatusFinal      GameStatus = "FINAL"
	StatusPostponed  GameStatus = "POSTPONED"
	StatusCancelled  GameStatus = "CANCELLED"
)

// Game represents a scheduled or completed game.
// Identity is (league, season, provider_game_id).
//
// StatsProcessed transitions false -> true exactly once, only by the game
// processor and only while the game is FINAL. Schedule re-syncs update the
// mutable fields but must never reset the flag.
type Game struct {
	ID             int           `db:"id"`
	League         League        `db:"league"`
	Season         string        `db:"season"`
	ProviderGameID string        `db:"provider_game_id"`
	HomeTeamID     int           `db:"home_team_id"`
	AwayTeamID     int           `db:"away_team_id"`
	GameDate       time.Time     `db:"game_date"`
	NeutralSite    bool          `db:"neutral_site"`
	Status         GameStatus    `db:"status"`
	HomeScore      sql.NullInt32 `db:"home_score"`
	AwayScore      sql.NullInt32 `db:"away_score"`
	StatsProcessed bool          `db:"stats_processed"`
	LastSyncedAt   time.Time     `db:"last_synced_at"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

// IsFinal returns true if the game is completed.
func (g *Game) IsFinal() bool {
	return g.Status == StatusFinal
}

// NeedsProcessing returns true if the game is final but its shooting stats
// have not been derived yet.
func (g *Game) NeedsProcessing() bool {
	return g.IsFinal() && !g.StatsProcessed
}
