package process

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"cbb_model/ingestion/internal/client"
	"cbb_model/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBoxFetcher struct {
	boxes map[string]*client.BoxscoreRecord
	errs  map[string]error
	calls int
}

func (f *fakeBoxFetcher) FetchBoxscore(_ context.Context, _ models.League, eventID string) (*client.BoxscoreRecord, error) {
	f.calls++
	if err := f.errs[eventID]; err != nil {
		return nil, err
	}
	return f.boxes[eventID], nil
}

type fakeGameStore struct {
	games []*models.Game
	marks map[int][2]sql.NullInt32
}

func newFakeGameStore(games ...*models.Game) *fakeGameStore {
	return &fakeGameStore{games: games, marks: make(map[int][2]sql.NullInt32)}
}

func (s *fakeGameStore) ListUnprocessedFinal(_ context.Context) ([]*models.Game, error) {
	var out []*models.Game
	for _, g := range s.games {
		if g.NeedsProcessing() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *fakeGameStore) MarkProcessed(_ context.Context, gameID int, homeScore, awayScore sql.NullInt32) error {
	for _, g := range s.games {
		if g.ID != gameID {
			continue
		}
		if g.Status != models.StatusFinal || g.StatsProcessed {
			return fmt.Errorf("game not markable: id=%d", gameID)
		}
		g.StatsProcessed = true
		s.marks[gameID] = [2]sql.NullInt32{homeScore, awayScore}
		return nil
	}
	return fmt.Errorf("game not found: id=%d", gameID)
}

type fakeTeamStore struct {
	teams map[int]*models.Team
}

func (s *fakeTeamStore) GetByID(_ context.Context, id int) (*models.Team, error) {
	team, ok := s.teams[id]
	if !ok {
		return nil, fmt.Errorf("team not found: id=%d", id)
	}
	return team, nil
}

type fakeStatsStore struct {
	rows map[string]*models.TeamGameStats // keyed game/team
}

func newFakeStatsStore() *fakeStatsStore {
	return &fakeStatsStore{rows: make(map[string]*models.TeamGameStats)}
}

func (s *fakeStatsStore) Upsert(_ context.Context, stats *models.TeamGameStats) error {
	copied := *stats
	s.rows[fmt.Sprintf("%d/%d", stats.GameID, stats.TeamID)] = &copied
	return nil
}

type fakeRollups struct {
	recomputed []int
}

func (r *fakeRollups) RecomputeRollup(_ context.Context, teamID int) error {
	r.recomputed = append(r.recomputed, teamID)
	return nil
}

func alwaysLock(_ context.Context) (func(context.Context), bool, error) {
	return func(context.Context) {}, true, nil
}

func neverLock(_ context.Context) (func(context.Context), bool, error) {
	return nil, false, nil
}

func finalGame(id int, providerID string, homeTeamID, awayTeamID int) *models.Game {
	return &models.Game{
		ID:             id,
		League:         models.LeagueMens,
		Season:         "2025-26",
		ProviderGameID: providerID,
		HomeTeamID:     homeTeamID,
		AwayTeamID:     awayTeamID,
		GameDate:       time.Date(2026, time.January, 10, 19, 0, 0, 0, time.UTC),
		Status:         models.StatusFinal,
	}
}

func teamStore() *fakeTeamStore {
	return &fakeTeamStore{teams: map[int]*models.Team{
		1: {ID: 1, ProviderTeamID: "52", Name: "Duke Blue Devils"},
		2: {ID: 2, ProviderTeamID: "153", Name: "North Carolina Tar Heels"},
	}}
}

// 28 FG (8 threes) and 14 FT: 20 twos -> 40 + 24 + 14 = 78 points.
func homeLine() client.ShootingLine {
	return client.ShootingLine{
		FieldGoalsMade: 28, FieldGoalsAttempted: 60,
		ThreePointMade: 8, ThreePointAttempted: 22,
		FreeThrowsMade: 14, FreeThrowsAttempted: 18,
	}
}

// 25 FG (5 threes) and 12 FT: 20 twos -> 40 + 15 + 12 = 67 points.
func awayLine() client.ShootingLine {
	return client.ShootingLine{
		FieldGoalsMade: 25, FieldGoalsAttempted: 58,
		ThreePointMade: 5, ThreePointAttempted: 19,
		FreeThrowsMade: 12, FreeThrowsAttempted: 15,
	}
}

func fullBox(eventID string) *client.BoxscoreRecord {
	return &client.BoxscoreRecord{
		ProviderGameID: eventID,
		Teams: []client.BoxTeam{
			{ProviderTeamID: "52", HomeAway: "home", HasStats: true, Line: homeLine()},
			{ProviderTeamID: "153", HomeAway: "away", HasStats: true, Line: awayLine()},
		},
	}
}

func TestProcessCompletedGamesWritesMirroredStats(t *testing.T) {
	games := newFakeGameStore(finalGame(10, "401700001", 1, 2))
	stats := newFakeStatsStore()
	rollups := &fakeRollups{}
	fetcher := &fakeBoxFetcher{boxes: map[string]*client.BoxscoreRecord{
		"401700001": fullBox("401700001"),
	}}
	p := New(fetcher, games, teamStore(), stats, rollups, alwaysLock)

	result, err := p.ProcessCompletedGames(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.GamesFound)
	assert.Equal(t, 1, result.GamesProcessed)
	assert.Equal(t, 0, result.GamesSkipped)
	assert.Empty(t, result.Errors)

	home := stats.rows["10/1"]
	away := stats.rows["10/2"]
	require.NotNil(t, home)
	require.NotNil(t, away)

	// 2pt derived as FG minus threes.
	assert.Equal(t, 20, home.TwoPointMade)
	assert.Equal(t, 38, home.TwoPointAttempted)
	assert.Equal(t, 8, home.ThreePointMade)
	assert.Equal(t, 14, home.FreeThrowMade)

	// Each side's allowed line is the opponent's offense.
	assert.Equal(t, away.TwoPointMade, home.TwoPointMadeAllowed)
	assert.Equal(t, away.ThreePointAttempted, home.ThreePointAttemptedAllowed)
	assert.Equal(t, home.FreeThrowMade, away.FreeThrowMadeAllowed)

	assert.ElementsMatch(t, []int{1, 2}, rollups.recomputed)

	mark := games.marks[10]
	require.True(t, mark[0].Valid)
	assert.Equal(t, int32(78), mark[0].Int32)
	assert.Equal(t, int32(67), mark[1].Int32)
}

func TestProcessCompletedGamesExactlyOnce(t *testing.T) {
	games := newFakeGameStore(finalGame(10, "401700001", 1, 2))
	stats := newFakeStatsStore()
	fetcher := &fakeBoxFetcher{boxes: map[string]*client.BoxscoreRecord{
		"401700001": fullBox("401700001"),
	}}
	p := New(fetcher, games, teamStore(), stats, &fakeRollups{}, alwaysLock)

	first, err := p.ProcessCompletedGames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.GamesProcessed)

	second, err := p.ProcessCompletedGames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.GamesFound)
	assert.Equal(t, 0, second.GamesProcessed)
	assert.Len(t, stats.rows, 2)
}

func TestProcessSkipsMissingBoxscore(t *testing.T) {
	game := finalGame(10, "401700001", 1, 2)
	games := newFakeGameStore(game)
	fetcher := &fakeBoxFetcher{boxes: map[string]*client.BoxscoreRecord{}}
	p := New(fetcher, games, teamStore(), newFakeStatsStore(), &fakeRollups{}, alwaysLock)

	result, err := p.ProcessCompletedGames(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.GamesSkipped)
	assert.Equal(t, 0, result.GamesProcessed)
	// The game stays eligible for the next run.
	assert.False(t, game.StatsProcessed)
}

func TestProcessSkipsWhenEitherSideHasNoStats(t *testing.T) {
	box := fullBox("401700001")
	box.Teams[1].HasStats = false
	box.Teams[1].Line = client.ShootingLine{}

	game := finalGame(10, "401700001", 1, 2)
	games := newFakeGameStore(game)
	stats := newFakeStatsStore()
	fetcher := &fakeBoxFetcher{boxes: map[string]*client.BoxscoreRecord{"401700001": box}}
	p := New(fetcher, games, teamStore(), stats, &fakeRollups{}, alwaysLock)

	result, err := p.ProcessCompletedGames(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.GamesSkipped)
	assert.Empty(t, stats.rows)
	assert.False(t, game.StatsProcessed)
}

func TestProcessMatchesByRoleWhenProviderIDsDiffer(t *testing.T) {
	box := fullBox("401700001")
	box.Teams[0].ProviderTeamID = "9990"
	box.Teams[1].ProviderTeamID = "9991"

	games := newFakeGameStore(finalGame(10, "401700001", 1, 2))
	stats := newFakeStatsStore()
	fetcher := &fakeBoxFetcher{boxes: map[string]*client.BoxscoreRecord{"401700001": box}}
	p := New(fetcher, games, teamStore(), stats, &fakeRollups{}, alwaysLock)

	result, err := p.ProcessCompletedGames(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.GamesProcessed)
	require.NotNil(t, stats.rows["10/1"])
	assert.Equal(t, 8, stats.rows["10/1"].ThreePointMade)
}

func TestProcessCollectsFetchErrors(t *testing.T) {
	games := newFakeGameStore(
		finalGame(10, "401700001", 1, 2),
		finalGame(11, "401700002", 2, 1),
	)
	fetcher := &fakeBoxFetcher{
		boxes: map[string]*client.BoxscoreRecord{"401700002": fullBox("401700002")},
		errs:  map[string]error{"401700001": fmt.Errorf("upstream unavailable")},
	}
	p := New(fetcher, games, teamStore(), newFakeStatsStore(), &fakeRollups{}, alwaysLock)

	result, err := p.ProcessCompletedGames(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.GamesFound)
	assert.Equal(t, 1, result.GamesProcessed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "401700001")
}

func TestProcessReportsAlreadyRunning(t *testing.T) {
	fetcher := &fakeBoxFetcher{}
	p := New(fetcher, newFakeGameStore(finalGame(10, "401700001", 1, 2)), teamStore(), newFakeStatsStore(), &fakeRollups{}, neverLock)

	result, err := p.ProcessCompletedGames(context.Background())
	require.NoError(t, err)

	assert.True(t, result.AlreadyRunning)
	assert.Equal(t, 0, result.GamesFound)
	assert.Equal(t, 0, fetcher.calls)
}
