// Command manualfetch runs individual pipeline stages from the command line:
// a schedule sync over an explicit date range, a processing pass, a national
// averages rebuild, or a score projection for one matchup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"cbb_model/ingestion/internal/aggregate"
	"cbb_model/ingestion/internal/client"
	"cbb_model/ingestion/internal/config"
	"cbb_model/ingestion/internal/models"
	"cbb_model/ingestion/internal/process"
	"cbb_model/ingestion/internal/projection"
	"cbb_model/ingestion/internal/repository"
	"cbb_model/ingestion/internal/season"
	syncer "cbb_model/ingestion/internal/sync"

	"github.com/rs/zerolog/log"
)

func main() {
	mode := flag.String("mode", "", "one of: sync, process, averages, project")
	league := flag.String("league", "mens", "league: mens or womens")
	startDate := flag.String("start", "", "sync start date (YYYY-MM-DD)")
	endDate := flag.String("end", "", "sync end date (YYYY-MM-DD)")
	seasonLabel := flag.String("season", "", "season label (YYYY-YY), defaults to the current season")
	homeTeamID := flag.Int("home", 0, "home team database id (project mode)")
	awayTeamID := flag.Int("away", 0, "away team database id (project mode)")
	flag.Parse()

	ctx := context.Background()
	cfg := config.MustLoad()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	switch *mode {
	case "sync":
		runSync(ctx, cfg, db, *league, *startDate, *endDate, *seasonLabel)
	case "process":
		runProcess(ctx, cfg, db)
	case "averages":
		runAverages(ctx, db, *seasonLabel)
	case "project":
		runProject(ctx, db, *league, *seasonLabel, *homeTeamID, *awayTeamID)
	default:
		fmt.Fprintln(os.Stderr, "usage: manualfetch -mode {sync|process|averages|project} [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}
}

func parseLeague(s string) models.League {
	lg := models.League(s)
	if !lg.Valid() {
		log.Fatal().Str("league", s).Msg("Invalid league, want mens or womens")
	}
	return lg
}

func parseDate(name, s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatal().Err(err).Str(name, s).Msg("Invalid date, want YYYY-MM-DD")
	}
	return t
}

func resolveSeason(label string) string {
	if label == "" {
		return season.CurrentSeason(time.Now().UTC())
	}
	if _, err := season.StartYear(label); err != nil {
		log.Fatal().Err(err).Msg("Invalid season label")
	}
	return label
}

func newScoreboard(cfg *config.Config) *client.Client {
	return client.New(cfg.ScoreboardBaseURL, cfg.FetchTimeout, cfg.PaceMinInterval, cfg.PaceJitter)
}

func runSync(ctx context.Context, cfg *config.Config, db *repository.Database, league, startDate, endDate, seasonLabel string) {
	if startDate == "" || endDate == "" {
		log.Fatal().Msg("sync mode requires -start and -end")
	}
	start := parseDate("start", startDate)
	end := parseDate("end", endDate)

	override := cfg.SeasonOverride
	if seasonLabel != "" {
		override = resolveSeason(seasonLabel)
	}

	s := syncer.New(newScoreboard(cfg), db.Teams, db.Games, override)
	result, err := s.SyncRange(ctx, parseLeague(league), start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	log.Info().
		Int("days", result.DaysFetched).
		Int("teams_inserted", result.TeamsInserted).
		Int("teams_updated", result.TeamsUpdated).
		Int("games_inserted", result.GamesInserted).
		Int("games_updated", result.GamesUpdated).
		Int("errors", len(result.Errors)).
		Msg("Sync complete")
	for _, e := range result.Errors {
		log.Warn().Str("error", e).Msg("Sync error")
	}
}

func runProcess(ctx context.Context, cfg *config.Config, db *repository.Database) {
	rollups := aggregate.NewRollups(db.GameStats, db.Rollups)
	acquireLock := func(ctx context.Context) (func(context.Context), bool, error) {
		lock, ok, err := db.TryRunLock(ctx, repository.LockProcessGames)
		if err != nil || !ok {
			return nil, ok, err
		}
		return lock.Release, true, nil
	}
	p := process.New(newScoreboard(cfg), db.Games, db.Teams, db.GameStats, rollups, acquireLock)

	result, err := p.ProcessCompletedGames(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Processing failed")
	}
	if result.AlreadyRunning {
		log.Warn().Msg("Another processing run is already in progress")
		return
	}

	log.Info().
		Int("found", result.GamesFound).
		Int("processed", result.GamesProcessed).
		Int("skipped", result.GamesSkipped).
		Int("errors", len(result.Errors)).
		Msg("Processing complete")
	for _, e := range result.Errors {
		log.Warn().Str("error", e).Msg("Processing error")
	}
}

func runAverages(ctx context.Context, db *repository.Database, seasonLabel string) {
	b := aggregate.NewAveragesBuilder(db.Rollups, db.Averages, nil)
	result, err := b.BuildAverages(ctx, resolveSeason(seasonLabel))
	if err != nil {
		log.Fatal().Err(err).Msg("Averages rebuild failed")
	}

	log.Info().
		Bool("mens", result.Mens != nil).
		Bool("womens", result.Womens != nil).
		Msg("Averages rebuild complete")
}

func runProject(ctx context.Context, db *repository.Database, league, seasonLabel string, homeTeamID, awayTeamID int) {
	if homeTeamID == 0 || awayTeamID == 0 {
		log.Fatal().Msg("project mode requires -home and -away team ids")
	}
	lg := parseLeague(league)
	label := resolveSeason(seasonLabel)

	avg, err := db.Averages.Get(ctx, lg, label)
	if err != nil {
		log.Fatal().Err(err).Msg("No national averages for season, run -mode averages first")
	}

	home := loadProfile(ctx, db, homeTeamID)
	away := loadProfile(ctx, db, awayTeamID)

	p := projection.ProjectGame(home, away, projection.FromAverages(avg))

	log.Info().
		Int("home_team_id", homeTeamID).
		Int("away_team_id", awayTeamID).
		Float64("home_points", p.HomePoints).
		Float64("away_points", p.AwayPoints).
		Float64("total", p.Total).
		Msg("Projection")
	fmt.Printf("home %d: %.1f\naway %d: %.1f\ntotal: %.1f\n",
		homeTeamID, p.HomePoints, awayTeamID, p.AwayPoints, p.Total)
}

func loadProfile(ctx context.Context, db *repository.Database, teamID int) projection.Profile {
	rollup, err := db.Rollups.GetByTeam(ctx, teamID)
	if err != nil {
		log.Fatal().Err(err).Int("team_id", teamID).Msg("Failed to load rollup")
	}
	profile, err := projection.FromRollup(rollup)
	if err != nil {
		log.Fatal().Err(err).Int("team_id", teamID).Msg("Team has no processed games")
	}
	return profile
}
