package config

import (
	"fmt"
	"os"
	"time"

	"cbb_model/ingestion/internal/season"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Scoreboard provider
	ScoreboardBaseURL string        `envconfig:"SCOREBOARD_BASE_URL" default:"https://site.api.espn.com/apis/site/v2/sports/basketball"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	PaceMinInterval   time.Duration `envconfig:"PACE_MIN_INTERVAL" default:"250ms"`
	PaceJitter        time.Duration `envconfig:"PACE_JITTER" default:"300ms"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"cbb_model"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"cbb_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler    bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool          `envconfig:"INITIAL_SYNC_ENABLED" default:"true"`
	DailySyncCron      string        `envconfig:"DAILY_SYNC_CRON" default:"0 6 * * *"`
	AveragesCron       string        `envconfig:"AVERAGES_CRON" default:"30 6 * * *"`
	ProcessInterval    time.Duration `envconfig:"PROCESS_INTERVAL" default:"15m"`
	SyncLookbackDays   int           `envconfig:"SYNC_LOOKBACK_DAYS" default:"3"`

	// Season handling. Empty means derive the season from each game's date.
	SeasonOverride string `envconfig:"SEASON_OVERRIDE" default:""`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.ScoreboardBaseURL == "" {
		return fmt.Errorf("SCOREBOARD_BASE_URL is required")
	}

	if c.SyncLookbackDays < 0 {
		return fmt.Errorf("SYNC_LOOKBACK_DAYS must not be negative")
	}

	if c.SeasonOverride != "" {
		if _, err := season.StartYear(c.SeasonOverride); err != nil {
			return fmt.Errorf("SEASON_OVERRIDE: %w", err)
		}
	}

	return nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
