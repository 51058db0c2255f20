package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Folio server.
type Config struct {
	DBPath        string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	ShutdownGrace time.Duration

	DefaultLocale  string
	FallbackLocale string
	SlugMaxLength  int
	WorkflowPolicy string

	RevisionKeep          int
	PublishSweepSchedule  string
	RevisionPruneSchedule string
	JobTimeout            time.Duration

	RedisAddr     string
	RedisPassword string
	JWTSecret     string

	RateLimitRPS   float64
	RateLimitBurst int
	RateLimitTTL   time.Duration
}

const (
	defaultDBPath                = "./data/folio.db"
	defaultServerPort            = 8080
	defaultLogLevel              = "info"
	defaultEnvironment           = "development"
	defaultShutdownGrace         = 10 * time.Second
	defaultLocale                = "en"
	defaultSlugMaxLength         = 190
	defaultWorkflowPolicy        = "strict"
	defaultRevisionKeep          = 50
	defaultPublishSweepSchedule  = "@every 1m"
	defaultRevisionPruneSchedule = "@daily"
	defaultJobTimeout            = 5 * time.Minute
	defaultRateLimitRPS          = 10
	defaultRateLimitBurst        = 20
	defaultRateLimitTTL          = 10 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:                getEnv("DB_PATH", defaultDBPath),
		LogLevel:              getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:             os.Getenv("SENTRY_DSN"),
		Environment:           getEnv("ENV", defaultEnvironment),
		ShutdownGrace:         defaultShutdownGrace,
		DefaultLocale:         strings.ToLower(getEnv("DEFAULT_LOCALE", defaultLocale)),
		WorkflowPolicy:        strings.ToLower(getEnv("WORKFLOW_POLICY", defaultWorkflowPolicy)),
		PublishSweepSchedule:  getEnv("PUBLISH_SWEEP_SCHEDULE", defaultPublishSweepSchedule),
		RevisionPruneSchedule: getEnv("REVISION_PRUNE_SCHEDULE", defaultRevisionPruneSchedule),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
	}
	cfg.FallbackLocale = strings.ToLower(getEnv("FALLBACK_LOCALE", cfg.DefaultLocale))

	var err error
	if cfg.ServerPort, err = getInt("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.SlugMaxLength, err = getInt("SLUG_MAX_LENGTH", defaultSlugMaxLength); err != nil {
		return nil, err
	}
	if cfg.RevisionKeep, err = getInt("REVISION_KEEP", defaultRevisionKeep); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = getDuration("SHUTDOWN_GRACE", defaultShutdownGrace); err != nil {
		return nil, err
	}
	if cfg.JobTimeout, err = getDuration("JOB_TIMEOUT", defaultJobTimeout); err != nil {
		return nil, err
	}
	if cfg.RateLimitTTL, err = getDuration("RATE_LIMIT_TTL", defaultRateLimitTTL); err != nil {
		return nil, err
	}

	rpsValue := getEnv("RATE_LIMIT_RPS", strconv.Itoa(defaultRateLimitRPS))
	cfg.RateLimitRPS, err = strconv.ParseFloat(rpsValue, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_RPS value: %s", rpsValue)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SlugMaxLength <= 0 {
		return eris.Errorf("SLUG_MAX_LENGTH must be positive, got %d", c.SlugMaxLength)
	}
	if c.RevisionKeep <= 0 {
		return eris.Errorf("REVISION_KEEP must be positive, got %d", c.RevisionKeep)
	}
	if c.WorkflowPolicy != "strict" && c.WorkflowPolicy != "permissive" {
		return eris.Errorf("WORKFLOW_POLICY must be strict or permissive, got %q", c.WorkflowPolicy)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value := getEnv(key, strconv.Itoa(fallback))
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, value)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, fallback.String())
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, value)
	}
	return parsed, nil
}
