package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JWTConfig configures verification of HS256 access tokens issued by the hosted auth backend.
type JWTConfig struct {
	Secret    string        `env:"JWT_SECRET"`
	Issuer    string        `env:"JWT_ISSUER"`
	Audience  string        `env:"JWT_AUDIENCE"   envDefault:"authenticated"`
	ClockSkew time.Duration `env:"JWT_CLOCK_SKEW" envDefault:"30s"`
}

// minSecretLength matches the HS256 key size.
const minSecretLength = 32

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	var cfg JWTConfig
	if err := ParseEnv(&cfg); err != nil {
		return JWTConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return JWTConfig{}, err
	}
	return cfg, nil
}

func (c JWTConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Secret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(c.Issuer) == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	if strings.TrimSpace(c.Audience) == "" {
		missing = append(missing, "JWT_AUDIENCE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if len(c.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.ClockSkew < 0 {
		return errors.New("JWT_CLOCK_SKEW must not be negative")
	}
	return nil
}
