package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	AuthModeJWT = "jwt"
	AuthModeDev = "dev"

	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendPostgREST = "postgrest"
)

// Config is the process configuration for cmd/api.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	AuthMode   string `env:"AUTH_MODE"   envDefault:"jwt"`
	DevSubject string `env:"DEV_SUBJECT" envDefault:"dev|local"`
	DevIssuer  string `env:"DEV_ISSUER"  envDefault:"dev"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DBMaxConns     int32  `env:"DB_MAX_CONNS"    envDefault:"10"`
	AutoMigrate    bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	EligibilityBackend string        `env:"ELIGIBILITY_BACKEND" envDefault:"memory"`
	EligibilityTimeout time.Duration `env:"ELIGIBILITY_TIMEOUT" envDefault:"5s"`
	PostgRESTURL       string        `env:"POSTGREST_URL"`
	PostgRESTAPIKey    string        `env:"POSTGREST_API_KEY"`

	RosterPath string `env:"ROSTER_PATH" envDefault:"data/students.json"`
	// AllowlistPath seeds the memory and postgres registries. Empty allows the whole roster
	// in memory mode and leaves the postgres allow-list untouched.
	AllowlistPath string `env:"ALLOWLIST_PATH"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.AuthMode = strings.ToLower(strings.TrimSpace(c.AuthMode))
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	c.EligibilityBackend = strings.ToLower(strings.TrimSpace(c.EligibilityBackend))
	c.PostgRESTURL = strings.TrimRight(strings.TrimSpace(c.PostgRESTURL), "/")
}

func (c Config) Validate() error {
	var errs []error

	switch c.AuthMode {
	case AuthModeJWT, AuthModeDev:
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE must be jwt or dev, got %q", c.AuthMode))
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", c.StorageBackend))
	}

	switch c.EligibilityBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.StorageBackend != BackendPostgres {
			errs = append(errs, errors.New("ELIGIBILITY_BACKEND=postgres requires STORAGE_BACKEND=postgres"))
		}
	case BackendPostgREST:
		if c.PostgRESTURL == "" {
			errs = append(errs, errors.New("POSTGREST_URL is required when ELIGIBILITY_BACKEND=postgrest"))
		}
	default:
		errs = append(errs, fmt.Errorf("ELIGIBILITY_BACKEND must be memory, postgres or postgrest, got %q", c.EligibilityBackend))
	}

	if c.EligibilityTimeout <= 0 {
		errs = append(errs, errors.New("ELIGIBILITY_TIMEOUT must be positive"))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}
	if strings.TrimSpace(c.RosterPath) == "" {
		errs = append(errs, errors.New("ROSTER_PATH is required"))
	}
	return errors.Join(errs...)
}
