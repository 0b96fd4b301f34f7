package models

import "time"

// TeamGameStats holds one team's shooting splits for one completed game,
// plus the mirrored "allowed" line copied from the opponent's offense.
// Identity is (game_id, team_id). Rows are only ever written for games
// where both sides' boxscore statistics were available.
type TeamGameStats struct {
	ID     int `db:"id"`
	GameID int `db:"game_id"`
	TeamID int `db:"team_id"`

	// Offense
	TwoPointMade        int `db:"two_point_made"`
	TwoPointAttempted   int `db:"two_point_attempted"`
	ThreePointMade      int `db:"three_point_made"`
	ThreePointAttempted int `db:"three_point_attempted"`
	FreeThrowMade       int `db:"free_throw_made"`
	FreeThrowAttempted  int `db:"free_throw_attempted"`

	// Defense (opponent's offensive line)
	TwoPointMadeAllowed        int `db:"two_point_made_allowed"`
	TwoPointAttemptedAllowed   int `db:"two_point_attempted_allowed"`
	ThreePointMadeAllowed      int `db:"three_point_made_allowed"`
	ThreePointAttemptedAllowed int `db:"three_point_attempted_allowed"`
	FreeThrowMadeAllowed       int `db:"free_throw_made_allowed"`
	FreeThrowAttemptedAllowed  int `db:"free_throw_attempted_allowed"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Points returns the score implied by the offensive shooting line.
func (s *TeamGameStats) Points() int {
	return 2*s.TwoPointMade + 3*s.ThreePointMade + s.FreeThrowMade
}

// TeamSeasonRollup is a materialized season-to-date aggregate of a team's
// TeamGameStats rows. Totals, not per-game averages. It is fully overwritten
// on every recompute, so it is always safe to rebuild from the stat rows.
type TeamSeasonRollup struct {
	ID          int `db:"id"`
	TeamID      int `db:"team_id"`
	GamesPlayed int `db:"games_played"`

	TwoPointMade        int `db:"two_point_made"`
	TwoPointAttempted   int `db:"two_point_attempted"`
	ThreePointMade      int `db:"three_point_made"`
	ThreePointAttempted int `db:"three_point_attempted"`
	FreeThrowMade       int `db:"free_throw_made"`
	FreeThrowAttempted  int `db:"free_throw_attempted"`

	TwoPointMadeAllowed        int `db:"two_point_made_allowed"`
	TwoPointAttemptedAllowed   int `db:"two_point_attempted_allowed"`
	ThreePointMadeAllowed      int `db:"three_point_made_allowed"`
	ThreePointAttemptedAllowed int `db:"three_point_attempted_allowed"`
	FreeThrowMadeAllowed       int `db:"free_throw_made_allowed"`
	FreeThrowAttemptedAllowed  int `db:"free_throw_attempted_allowed"`

	UpdatedAt time.Time `db:"updated_at"`
}

// Add accumulates one game's stat row into the rollup totals.
func (r *TeamSeasonRollup) Add(s *TeamGameStats) {
	r.GamesPlayed++
	r.TwoPointMade += s.TwoPointMade
	r.TwoPointAttempted += s.TwoPointAttempted
	r.ThreePointMade += s.ThreePointMade
	r.ThreePointAttempted += s.ThreePointAttempted
	r.FreeThrowMade += s.FreeThrowMade
	r.FreeThrowAttempted += s.FreeThrowAttempted
	r.TwoPointMadeAllowed += s.TwoPointMadeAllowed
	r.TwoPointAttemptedAllowed += s.TwoPointAttemptedAllowed
	r.ThreePointMadeAllowed += s.ThreePointMadeAllowed
	r.ThreePointAttemptedAllowed += s.ThreePointAttemptedAllowed
	r.FreeThrowMadeAllowed += s.FreeThrowMadeAllowed
	r.FreeThrowAttemptedAllowed += s.FreeThrowAttemptedAllowed
}

// NationalAverages holds games-played-weighted per-game league averages for
// one (league, season). Fully overwritten on every recompute. A row is only
// present once at least one team in the league has a game played.
type NationalAverages struct {
	ID     int    `db:"id"`
	League League `db:"league"`
	Season string `db:"season"`

	TwoPointMade        float64 `db:"two_point_made"`
	TwoPointAttempted   float64 `db:"two_point_attempted"`
	ThreePointMade      float64 `db:"three_point_made"`
	ThreePointAttempted float64 `db:"three_point_attempted"`
	FreeThrowMade       float64 `db:"free_throw_made"`
	FreeThrowAttempted  float64 `db:"free_throw_attempted"`

	TwoPointMadeAllowed        float64 `db:"two_point_made_allowed"`
	TwoPointAttemptedAllowed   float64 `db:"two_point_attempted_allowed"`
	ThreePointMadeAllowed      float64 `db:"three_point_made_allowed"`
	ThreePointAttemptedAllowed float64 `db:"three_point_attempted_allowed"`
	FreeThrowMadeAllowed       float64 `db:"free_throw_made_allowed"`
	FreeThrowAttemptedAllowed  float64 `db:"free_throw_attempted_allowed"`

	PointsPerTeamPerGame float64 `db:"points_per_team_per_game"`

	UpdatedAt time.Time `db:"updated_at"`
}
