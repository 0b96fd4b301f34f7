package models

import (
	"database/sql"
	"time"
)

// Team represents a college basketball team within one league and season.
// Identity is (league, season, provider_team_id); the same school appearing
// in two seasons is two rows.
type Team struct {
	ID             int            `db:"id"`
	League         League         `db:"league"`
	Season         string         `db:"season"`
	ProviderTeamID string         `db:"provider_team_id"`
	Name           string         `db:"name"`
	Conference     sql.NullString `db:"conference"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}
