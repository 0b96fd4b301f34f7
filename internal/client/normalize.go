package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventRecord is the normalized form of one scoreboard event.
type EventRecord struct {
	ProviderGameID string
	Date           time.Time
	NeutralSite    bool
	StatusName     string
	Completed      bool
	Home           EventTeam
	Away           EventTeam
	HomeScore      *int
	AwayScore      *int

	// RoleMatched is true when home/away were resolved from the provider's
	// declared homeAway roles, false when the positional fallback (first
	// competitor = home) had to be used.
	RoleMatched bool
}

// EventTeam identifies one side of an event.
type EventTeam struct {
	ProviderTeamID string
	Name           string
	Conference     string
}

// ShootingLine holds one team's raw shooting figures from a boxscore.
// All-zero with HasStats=false on the owning BoxTeam means "no stats
// available"; a genuine 0-for-0 game cannot be told apart upstream.
type ShootingLine struct {
	FieldGoalsMade      int
	FieldGoalsAttempted int
	ThreePointMade      int
	ThreePointAttempted int
	FreeThrowsMade      int
	FreeThrowsAttempted int
}

// TwoPoint derives the 2-point line as field goals minus 3-pointers.
func (l ShootingLine) TwoPoint() (made, attempted int) {
	return l.FieldGoalsMade - l.ThreePointMade, l.FieldGoalsAttempted - l.ThreePointAttempted
}

// BoxTeam is one team's normalized boxscore entry.
type BoxTeam struct {
	ProviderTeamID string
	HomeAway       string
	HasStats       bool
	Line           ShootingLine
}

// BoxscoreRecord is the normalized form of one game's boxscore.
type BoxscoreRecord struct {
	ProviderGameID string
	Teams          []BoxTeam
}

// TeamByProviderID returns the entry for the given provider team id.
func (b *BoxscoreRecord) TeamByProviderID(id string) *BoxTeam {
	for i := range b.Teams {
		if b.Teams[i].ProviderTeamID == id {
			return &b.Teams[i]
		}
	}
	return nil
}

// TeamByRole returns the entry whose declared homeAway role matches.
func (b *BoxscoreRecord) TeamByRole(role string) *BoxTeam {
	for i := range b.Teams {
		if strings.EqualFold(b.Teams[i].HomeAway, role) {
			return &b.Teams[i]
		}
	}
	return nil
}

// Raw provider shapes. Only the fields we consume are declared; everything
// else in the payload is ignored.

type scoreboardResponse struct {
	Events []scoreboardEvent `json:"events"`
}

type scoreboardEvent struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Status       *statusBlock  `json:"status"`
	Competitions []competition `json:"competitions"`
}

type competition struct {
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	NeutralSite bool         `json:"neutralSite"`
	Status      *statusBlock `json:"status"`
	Competitors []competitor `json:"competitors"`
}

type competitor struct {
	HomeAway string    `json:"homeAway"`
	Score    string    `json:"score"`
	Team     teamBlock `json:"team"`
}

type teamBlock struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ShortDisplayName string `json:"shortDisplayName"`
	Name             string `json:"name"`
	ConferenceID     string `json:"conferenceId"`
}

type statusBlock struct {
	Type struct {
		Name      string `json:"name"`
		Completed bool   `json:"completed"`
	} `json:"type"`
}

type summaryResponse struct {
	Boxscore struct {
		Teams []summaryTeam `json:"teams"`
	} `json:"boxscore"`
}

type summaryTeam struct {
	Team       teamBlock   `json:"team"`
	HomeAway   string      `json:"homeAway"`
	Statistics []statEntry `json:"statistics"`
}

type statEntry struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	DisplayValue string `json:"displayValue"`
}

// Provider timestamps come with and without seconds.
var dateLayouts = []string{
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
}

func parseEventDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable event date %q", s)
}

// normalizeEvent applies the ordered fallback rules that turn a raw event
// into a strict record:
//
//  1. game id: event id, else competition id
//  2. date: competition date, else event date
//  3. status: competition status, else event status, else empty
//  4. home/away: competitors matched on declared homeAway role; if either
//     role is missing, fall back to positional order (first = home) and
//     clear RoleMatched
//  5. team name: displayName, else shortDisplayName, else name
func normalizeEvent(raw scoreboardEvent) (EventRecord, error) {
	var record EventRecord

	var comp competition
	if len(raw.Competitions) > 0 {
		comp = raw.Competitions[0]
	}

	record.ProviderGameID = raw.ID
	if record.ProviderGameID == "" {
		record.ProviderGameID = comp.ID
	}
	if record.ProviderGameID == "" {
		return record, fmt.Errorf("event has no id")
	}

	dateStr := comp.Date
	if dateStr == "" {
		dateStr = raw.Date
	}
	date, err := parseEventDate(dateStr)
	if err != nil {
		return record, fmt.Errorf("event %s: %w", record.ProviderGameID, err)
	}
	record.Date = date
	record.NeutralSite = comp.NeutralSite

	status := comp.Status
	if status == nil {
		status = raw.Status
	}
	if status != nil {
		record.StatusName = status.Type.Name
		record.Completed = status.Type.Completed
	}

	if len(comp.Competitors) < 2 {
		return record, fmt.Errorf("event %s: expected 2 competitors, got %d", record.ProviderGameID, len(comp.Competitors))
	}

	var home, away *competitor
	for i := range comp.Competitors {
		switch strings.ToLower(comp.Competitors[i].HomeAway) {
		case "home":
			home = &comp.Competitors[i]
		case "away":
			away = &comp.Competitors[i]
		}
	}
	if home != nil && away != nil {
		record.RoleMatched = true
	} else {
		// The provider's ordering is not guaranteed, but with no declared
		// roles this is the best available interpretation.
		home = &comp.Competitors[0]
		away = &comp.Competitors[1]
		record.RoleMatched = false
	}

	record.Home = normalizeTeam(home.Team)
	record.Away = normalizeTeam(away.Team)
	record.HomeScore = parseScore(home.Score)
	record.AwayScore = parseScore(away.Score)

	if record.Home.ProviderTeamID == "" || record.Away.ProviderTeamID == "" {
		return record, fmt.Errorf("event %s: competitor missing team id", record.ProviderGameID)
	}

	return record, nil
}

func normalizeTeam(raw teamBlock) EventTeam {
	name := raw.DisplayName
	if name == "" {
		name = raw.ShortDisplayName
	}
	if name == "" {
		name = raw.Name
	}
	return EventTeam{
		ProviderTeamID: raw.ID,
		Name:           name,
		Conference:     raw.ConferenceID,
	}
}

func parseScore(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

// Combined made-attempted stat names and their short labels, in fallback
// order: full name first, then label.
var shootingStats = []struct {
	name  string
	label string
	apply func(*ShootingLine, int, int)
}{
	{
		name:  "fieldGoalsMade-fieldGoalsAttempted",
		label: "FG",
		apply: func(l *ShootingLine, m, a int) { l.FieldGoalsMade, l.FieldGoalsAttempted = m, a },
	},
	{
		name:  "threePointFieldGoalsMade-threePointFieldGoalsAttempted",
		label: "3PT",
		apply: func(l *ShootingLine, m, a int) { l.ThreePointMade, l.ThreePointAttempted = m, a },
	},
	{
		name:  "freeThrowsMade-freeThrowsAttempted",
		label: "FT",
		apply: func(l *ShootingLine, m, a int) { l.FreeThrowsMade, l.FreeThrowsAttempted = m, a },
	},
}

func normalizeBoxscore(eventID string, resp summaryResponse) *BoxscoreRecord {
	record := &BoxscoreRecord{ProviderGameID: eventID}
	for _, raw := range resp.Boxscore.Teams {
		team := BoxTeam{
			ProviderTeamID: raw.Team.ID,
			HomeAway:       strings.ToLower(raw.HomeAway),
		}
		team.Line, team.HasStats = parseShootingLine(raw.Statistics)
		record.Teams = append(record.Teams, team)
	}
	return record
}

// parseShootingLine extracts the three shooting categories from a team's
// statistics block. Each category tries the combined "M-A" stat by name,
// then by label. A line where no category parsed is reported as no stats.
func parseShootingLine(stats []statEntry) (ShootingLine, bool) {
	var line ShootingLine
	parsedAny := false
	for _, category := range shootingStats {
		entry := findStat(stats, category.name, category.label)
		if entry == nil {
			continue
		}
		made, attempted, ok := parseMadeAttempted(entry.DisplayValue)
		if !ok {
			continue
		}
		category.apply(&line, made, attempted)
		parsedAny = true
	}
	return line, parsedAny
}

func findStat(stats []statEntry, name, label string) *statEntry {
	for i := range stats {
		if stats[i].Name == name {
			return &stats[i]
		}
	}
	for i := range stats {
		if strings.EqualFold(stats[i].Label, label) {
			return &stats[i]
		}
	}
	return nil
}

// parseMadeAttempted parses a combined "made-attempted" value like "26-61".
func parseMadeAttempted(s string) (made, attempted int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	made, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	attempted, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return made, attempted, true
}
