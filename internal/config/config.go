// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults; Load layers overrides on top.
// - Durations accept Go duration strings ("750ms", "10s") from YAML and env.
// - Errors returned from this package wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"time"
)

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Source kinds.
const (
	SourceHTTP     = "http"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Leader policies for events whose leaders are not listed as participants.
const (
	LeaderPolicyRepair = "repair"
	LeaderPolicySkip   = "skip"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// LogFile, when set, sends logs to a rotated file instead of stdout.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Source selects where backblasts and PAX come from: http, file or postgres.
	Source string `koanf:"source"`

	EventsURL string `koanf:"events_url"`
	PeopleURL string `koanf:"people_url"`
	// EventsPath and PeoplePath are gjson paths to the record arrays when the
	// upstream wraps them in an envelope, e.g. "data.backblasts".
	EventsPath string `koanf:"events_path"`
	PeoplePath string `koanf:"people_path"`

	EventsFile string `koanf:"events_file"`
	PeopleFile string `koanf:"people_file"`

	PostgresDSN string `koanf:"postgres_dsn"`

	FetchTimeout  time.Duration `koanf:"fetch_timeout"`
	FetchAttempts int           `koanf:"fetch_attempts"`
	FetchBackoff  time.Duration `koanf:"fetch_backoff"`

	// Store selects where the active snapshot is kept: memory or redis.
	Store         string `koanf:"store"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// Regions maps a region name to the AO names it covers.
	Regions map[string][]string `koanf:"regions"`

	// Timezone is used to decide what "today" is for windows and Kotter.
	Timezone string `koanf:"timezone"`

	KotterThresholdDays int `koanf:"kotter_threshold_days"`
	// KotterMaxDays drops people gone longer than this; 0 keeps everyone.
	KotterMaxDays   int `koanf:"kotter_max_days"`
	BuddyWindowDays int `koanf:"buddy_window_days"`
	MilestoneStep   int `koanf:"milestone_step"`

	LeaderPolicy string `koanf:"leader_policy"`

	// DedupeSize bounds the event ID set used at ingestion; 0 is unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	RefreshQueueSize int `koanf:"refresh_queue_size"`
	RefreshWorkers   int `koanf:"refresh_workers"`

	// Metrics settings; names are <namespace>_<subsystem>_[<prefix>_]<metric>.
	MetricsEnabled         bool              `koanf:"metrics_enabled"`
	MetricsNamespace       string            `koanf:"metrics_namespace"`
	MetricsSubsystem       string            `koanf:"metrics_subsystem"`
	MetricsPrefix          string            `koanf:"metrics_prefix"`
	MetricsLabels          map[string]string `koanf:"metrics_labels"`
	MetricsRefreshInterval time.Duration     `koanf:"metrics_refresh_interval"`

	RateLimitRPS   float64  `koanf:"rate_limit_rps"`
	RateLimitBurst int      `koanf:"rate_limit_burst"`
	CORSOrigins    []string `koanf:"cors_origins"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		Source:                 SourceFile,
		EventsFile:             "data/backblasts.json",
		PeopleFile:             "data/pax.json",
		FetchTimeout:           15 * time.Second,
		FetchAttempts:          4,
		FetchBackoff:           250 * time.Millisecond,
		Store:                  StoreMemory,
		RedisAddr:              "localhost:6379",
		RedisPrefix:            "paxstats",
		Regions:                map[string][]string{},
		Timezone:               "UTC",
		KotterThresholdDays:    14,
		BuddyWindowDays:        183,
		MilestoneStep:          100,
		LeaderPolicy:           LeaderPolicyRepair,
		DedupeSize:             0,
		MaxLeaderboardLimit:    500,
		RefreshQueueSize:       16,
		RefreshWorkers:         max(1, runtime.NumCPU()/4),
		MetricsEnabled:         true,
		MetricsNamespace:       "paxstats",
		MetricsSubsystem:       "engine",
		MetricsLabels:          map[string]string{},
		MetricsRefreshInterval: 10 * time.Second,
		RateLimitRPS:           20,
		RateLimitBurst:         40,
		CORSOrigins:            []string{"*"},
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}

	switch c.Source {
	case SourceHTTP:
		if c.EventsURL == "" || c.PeopleURL == "" {
			return fmt.Errorf("%w: events_url and people_url are required for the http source", ErrInvalidConfig)
		}
	case SourceFile:
		if c.EventsFile == "" {
			return fmt.Errorf("%w: events_file is required for the file source", ErrInvalidConfig)
		}
	case SourcePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres source", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}

	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	switch c.LeaderPolicy {
	case LeaderPolicyRepair, LeaderPolicySkip:
	default:
		return fmt.Errorf("%w: unknown leader_policy %q", ErrInvalidConfig, c.LeaderPolicy)
	}

	if c.KotterThresholdDays <= 0 || c.BuddyWindowDays <= 0 || c.MilestoneStep <= 0 {
		return fmt.Errorf("%w: kotter_threshold_days, buddy_window_days and milestone_step must be positive", ErrInvalidConfig)
	}
	if c.KotterMaxDays < 0 {
		return fmt.Errorf("%w: kotter_max_days must not be negative", ErrInvalidConfig)
	}
	if c.FetchAttempts < 1 {
		return fmt.Errorf("%w: fetch_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit < 1 || c.RefreshQueueSize < 1 || c.RefreshWorkers < 1 {
		return fmt.Errorf("%w: max_leaderboard_limit, refresh_queue_size and refresh_workers must be positive", ErrInvalidConfig)
	}

	if !metricName.MatchString(c.MetricsNamespace) || !metricName.MatchString(c.MetricsSubsystem) {
		return fmt.Errorf("%w: metrics_namespace and metrics_subsystem must be valid metric name parts", ErrInvalidConfig)
	}
	if c.MetricsRefreshInterval <= 0 {
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}

	for region, aos := range c.Regions {
		if len(aos) == 0 {
			return fmt.Errorf("%w: region %q has no locations", ErrInvalidConfig, region)
		}
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
