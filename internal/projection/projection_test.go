package projection

import (
	"testing"

	"cbb_model/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseline() Baseline {
	return Baseline{
		Offense: ShootingProfile{
			TwoPoint:   CategoryLine{Made: 20, Attempted: 40},
			ThreePoint: CategoryLine{Made: 8, Attempted: 22},
			FreeThrow:  CategoryLine{Made: 14, Attempted: 19},
		},
		Defense: ShootingProfile{
			TwoPoint:   CategoryLine{Made: 20, Attempted: 40},
			ThreePoint: CategoryLine{Made: 8, Attempted: 22},
			FreeThrow:  CategoryLine{Made: 14, Attempted: 19},
		},
		Points: 78,
	}
}

// averageProfile mirrors the baseline exactly on both sides of the ball.
func averageProfile() Profile {
	b := baseline()
	return Profile{GamesPlayed: 10, Offense: b.Offense, Defense: b.Defense}
}

func TestAverageTeamsProjectToBaseline(t *testing.T) {
	home := averageProfile()
	away := averageProfile()

	p := ProjectGame(home, away, baseline())

	assert.InDelta(t, 78, p.HomePoints, 1e-9)
	assert.InDelta(t, 78, p.AwayPoints, 1e-9)
	assert.InDelta(t, 156, p.Total, 1e-9)
	assert.InDelta(t, 0, p.HomeBreakdown.Sum(), 1e-9)
}

func TestProjectionIsSymmetric(t *testing.T) {
	strong := averageProfile()
	strong.Offense.ThreePoint = CategoryLine{Made: 12, Attempted: 30}

	weak := averageProfile()
	weak.Defense.TwoPoint = CategoryLine{Made: 24, Attempted: 46}

	forward := ProjectGame(strong, weak, baseline())
	reversed := ProjectGame(weak, strong, baseline())

	assert.InDelta(t, forward.HomePoints, reversed.AwayPoints, 1e-9)
	assert.InDelta(t, forward.AwayPoints, reversed.HomePoints, 1e-9)
	assert.InDelta(t, forward.Total, reversed.Total, 1e-9)
}

func TestCategoryWeighting(t *testing.T) {
	// Offensive volume 10 over baseline in every category, against an average
	// defense: mean differential is 5 per category, so the adjustments land
	// at 5, 7.5, and 2.5 under the 1.0/1.5/0.5 weights.
	team := averageProfile()
	team.Offense.TwoPoint.Made += 10
	team.Offense.ThreePoint.Attempted += 10
	team.Offense.FreeThrow.Made += 4
	team.Offense.FreeThrow.Attempted += 6

	adj := Adjustments(team, averageProfile(), baseline())

	assert.InDelta(t, 5.0, adj.TwoPoint, 1e-9)
	assert.InDelta(t, 7.5, adj.ThreePoint, 1e-9)
	assert.InDelta(t, 2.5, adj.FreeThrow, 1e-9)
	assert.InDelta(t, 78+15, ExpectedPoints(team, averageProfile(), baseline()), 1e-9)
}

func TestOpponentDefenseMovesProjection(t *testing.T) {
	leakyDefense := averageProfile()
	leakyDefense.Defense.TwoPoint.Made += 6
	leakyDefense.Defense.TwoPoint.Attempted += 6

	got := ExpectedPoints(averageProfile(), leakyDefense, baseline())

	// Average offense against a defense allowing 12 extra two-point volume:
	// adjustment is 1.0 * (0 + 12) / 2.
	assert.InDelta(t, 78+6, got, 1e-9)
}

func TestFromRollupPerGameRates(t *testing.T) {
	rollup := &models.TeamSeasonRollup{
		TeamID:      7,
		GamesPlayed: 4,

		TwoPointMade: 80, TwoPointAttempted: 160,
		ThreePointMade: 32, ThreePointAttempted: 88,
		FreeThrowMade: 56, FreeThrowAttempted: 76,

		TwoPointMadeAllowed: 72, TwoPointAttemptedAllowed: 152,
		ThreePointMadeAllowed: 28, ThreePointAttemptedAllowed: 80,
		FreeThrowMadeAllowed: 48, FreeThrowAttemptedAllowed: 64,
	}

	profile, err := FromRollup(rollup)
	require.NoError(t, err)

	assert.Equal(t, 4, profile.GamesPlayed)
	assert.InDelta(t, 20, profile.Offense.TwoPoint.Made, 1e-9)
	assert.InDelta(t, 40, profile.Offense.TwoPoint.Attempted, 1e-9)
	assert.InDelta(t, 22, profile.Offense.ThreePoint.Attempted, 1e-9)
	assert.InDelta(t, 18, profile.Defense.TwoPoint.Made, 1e-9)
	assert.InDelta(t, 16, profile.Defense.FreeThrow.Attempted, 1e-9)
}

func TestFromRollupRejectsNoGames(t *testing.T) {
	_, err := FromRollup(&models.TeamSeasonRollup{TeamID: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no games played")
}

func TestFromAverages(t *testing.T) {
	avg := &models.NationalAverages{
		League: models.LeagueMens,
		Season: "2025-26",

		TwoPointMade: 20, TwoPointAttempted: 40,
		ThreePointMade: 8, ThreePointAttempted: 22,
		FreeThrowMade: 14, FreeThrowAttempted: 19,

		TwoPointMadeAllowed: 20, TwoPointAttemptedAllowed: 40,
		ThreePointMadeAllowed: 8, ThreePointAttemptedAllowed: 22,
		FreeThrowMadeAllowed: 14, FreeThrowAttemptedAllowed: 19,

		PointsPerTeamPerGame: 78,
	}

	base := FromAverages(avg)

	assert.InDelta(t, 78, base.Points, 1e-9)
	assert.InDelta(t, 60, base.Offense.TwoPoint.Volume(), 1e-9)
	assert.InDelta(t, 30, base.Defense.ThreePoint.Volume(), 1e-9)
}

func TestBetProfit(t *testing.T) {
	tests := []struct {
		name    string
		stake   float64
		odds    int
		outcome Outcome
		want    float64
	}{
		{"favorite win", 100, -110, OutcomeWin, 90.9090909090909},
		{"underdog win", 100, 150, OutcomeWin, 150},
		{"even win", 100, 100, OutcomeWin, 100},
		{"loss", 100, -110, OutcomeLoss, -100},
		{"underdog loss", 50, 200, OutcomeLoss, -50},
		{"push", 100, -110, OutcomePush, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BetProfit(tt.stake, tt.odds, tt.outcome), 1e-9)
		})
	}
}
