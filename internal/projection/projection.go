// Package projection turns season rollups and national averages into
// projected game scores. All functions are pure; storage and transport stay
// in the callers.
package projection

import (
	"fmt"

	"cbb_model/ingestion/internal/models"
)

// Category weights applied to volume differentials. Three-point volume moves
// scores harder than two-point volume, free throws softer.
const (
	weightTwoPoint   = 1.0
	weightThreePoint = 1.5
	weightFreeThrow  = 0.5
)

// CategoryLine is one shooting category expressed per game.
type CategoryLine struct {
	Made      float64
	Attempted float64
}

// Volume is the combined made-plus-attempted rate used for differentials.
// Makes and attempts both carry signal: a team that shoots more threes tilts
// a game's scoring profile even at an average conversion rate.
func (c CategoryLine) Volume() float64 {
	return c.Made + c.Attempted
}

// ShootingProfile holds the three category lines for one side of the ball.
type ShootingProfile struct {
	TwoPoint   CategoryLine
	ThreePoint CategoryLine
	FreeThrow  CategoryLine
}

// Profile is a team's per-game offensive and defensive shooting profile.
type Profile struct {
	GamesPlayed int
	Offense     ShootingProfile
	Defense     ShootingProfile
}

// FromRollup converts a season rollup's totals into a per-game profile. A
// rollup with no games played has no rates to project from.
func FromRollup(r *models.TeamSeasonRollup) (Profile, error) {
	if r.GamesPlayed <= 0 {
		return Profile{}, fmt.Errorf("team %d has no games played", r.TeamID)
	}
	n := float64(r.GamesPlayed)
	return Profile{
		GamesPlayed: r.GamesPlayed,
		Offense: ShootingProfile{
			TwoPoint:   CategoryLine{Made: float64(r.TwoPointMade) / n, Attempted: float64(r.TwoPointAttempted) / n},
			ThreePoint: CategoryLine{Made: float64(r.ThreePointMade) / n, Attempted: float64(r.ThreePointAttempted) / n},
			FreeThrow:  CategoryLine{Made: float64(r.FreeThrowMade) / n, Attempted: float64(r.FreeThrowAttempted) / n},
		},
		Defense: ShootingProfile{
			TwoPoint:   CategoryLine{Made: float64(r.TwoPointMadeAllowed) / n, Attempted: float64(r.TwoPointAttemptedAllowed) / n},
			ThreePoint: CategoryLine{Made: float64(r.ThreePointMadeAllowed) / n, Attempted: float64(r.ThreePointAttemptedAllowed) / n},
			FreeThrow:  CategoryLine{Made: float64(r.FreeThrowMadeAllowed) / n, Attempted: float64(r.FreeThrowAttemptedAllowed) / n},
		},
	}, nil
}

// Baseline is the league-wide per-game shooting environment.
type Baseline struct {
	Offense ShootingProfile
	Defense ShootingProfile
	Points  float64
}

// FromAverages converts stored national averages into a projection baseline.
func FromAverages(a *models.NationalAverages) Baseline {
	return Baseline{
		Offense: ShootingProfile{
			TwoPoint:   CategoryLine{Made: a.TwoPointMade, Attempted: a.TwoPointAttempted},
			ThreePoint: CategoryLine{Made: a.ThreePointMade, Attempted: a.ThreePointAttempted},
			FreeThrow:  CategoryLine{Made: a.FreeThrowMade, Attempted: a.FreeThrowAttempted},
		},
		Defense: ShootingProfile{
			TwoPoint:   CategoryLine{Made: a.TwoPointMadeAllowed, Attempted: a.TwoPointAttemptedAllowed},
			ThreePoint: CategoryLine{Made: a.ThreePointMadeAllowed, Attempted: a.ThreePointAttemptedAllowed},
			FreeThrow:  CategoryLine{Made: a.FreeThrowMadeAllowed, Attempted: a.FreeThrowAttemptedAllowed},
		},
		Points: a.PointsPerTeamPerGame,
	}
}

// Breakdown is the per-category point adjustment applied to the baseline.
type Breakdown struct {
	TwoPoint   float64
	ThreePoint float64
	FreeThrow  float64
}

// Sum is the total adjustment over the baseline.
func (b Breakdown) Sum() float64 {
	return b.TwoPoint + b.ThreePoint + b.FreeThrow
}

// Adjustments computes how far a team's scoring should deviate from the
// baseline against a given opponent. Each category averages the team's
// offensive volume differential with the opponent's defensive one, then
// scales by the category weight. A team and opponent both at the national
// average adjust by zero everywhere.
func Adjustments(team, opponent Profile, base Baseline) Breakdown {
	adjust := func(weight float64, off, def, baseOff, baseDef CategoryLine) float64 {
		offDiff := off.Volume() - baseOff.Volume()
		defDiff := def.Volume() - baseDef.Volume()
		return weight * (offDiff + defDiff) / 2
	}
	return Breakdown{
		TwoPoint:   adjust(weightTwoPoint, team.Offense.TwoPoint, opponent.Defense.TwoPoint, base.Offense.TwoPoint, base.Defense.TwoPoint),
		ThreePoint: adjust(weightThreePoint, team.Offense.ThreePoint, opponent.Defense.ThreePoint, base.Offense.ThreePoint, base.Defense.ThreePoint),
		FreeThrow:  adjust(weightFreeThrow, team.Offense.FreeThrow, opponent.Defense.FreeThrow, base.Offense.FreeThrow, base.Defense.FreeThrow),
	}
}

// ExpectedPoints projects one team's score against a given opponent.
func ExpectedPoints(team, opponent Profile, base Baseline) float64 {
	return base.Points + Adjustments(team, opponent, base).Sum()
}

// GameProjection is a full projected score for one matchup.
type GameProjection struct {
	HomePoints    float64
	AwayPoints    float64
	Total         float64
	HomeBreakdown Breakdown
	AwayBreakdown Breakdown
}

// ProjectGame projects both sides of a matchup. The computation is symmetric:
// swapping home and away swaps the projected scores.
func ProjectGame(home, away Profile, base Baseline) GameProjection {
	homeAdj := Adjustments(home, away, base)
	awayAdj := Adjustments(away, home, base)
	p := GameProjection{
		HomePoints:    base.Points + homeAdj.Sum(),
		AwayPoints:    base.Points + awayAdj.Sum(),
		HomeBreakdown: homeAdj,
		AwayBreakdown: awayAdj,
	}
	p.Total = p.HomePoints + p.AwayPoints
	return p
}

// Outcome is the settled result of a bet.
type Outcome int

const (
	OutcomeLoss Outcome = iota
	OutcomeWin
	OutcomePush
)

// BetProfit returns the profit of a settled bet at American odds. A push
// returns the stake, so profit is zero; a loss forfeits the stake.
func BetProfit(stake float64, americanOdds int, outcome Outcome) float64 {
	switch outcome {
	case OutcomePush:
		return 0
	case OutcomeLoss:
		return -stake
	}
	if americanOdds >= 0 {
		return stake * float64(americanOdds) / 100
	}
	return stake * 100 / float64(-americanOdds)
}
