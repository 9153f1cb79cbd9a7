package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "AUTH_MODE", "STORAGE_BACKEND", "DATABASE_URL", "ELIGIBILITY_BACKEND",
		"ELIGIBILITY_TIMEOUT", "POSTGREST_URL", "ROSTER_PATH", "ALLOWLIST_PATH", "IDEMPOTENCY_TTL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.Port != "8080" || cfg.AuthMode != AuthModeJWT || cfg.StorageBackend != BackendMemory {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.EligibilityTimeout != 5*time.Second {
		t.Fatalf("EligibilityTimeout=%v, want 5s", cfg.EligibilityTimeout)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("IdempotencyTTL=%v, want 24h", cfg.IdempotencyTTL)
	}
}

func TestLoad_NormalizesAndValidates(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AUTH_MODE", " DEV ")
	t.Setenv("ELIGIBILITY_BACKEND", "PostgREST")
	t.Setenv("POSTGREST_URL", "https://registry.example.test/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.AuthMode != AuthModeDev || cfg.EligibilityBackend != BackendPostgREST {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.PostgRESTURL != "https://registry.example.test" {
		t.Fatalf("PostgRESTURL=%q", cfg.PostgRESTURL)
	}
}

func TestLoad_InvalidCombinations(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad auth mode", map[string]string{"AUTH_MODE": "oauth"}, "AUTH_MODE"},
		{"postgres without url", map[string]string{"STORAGE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"unknown storage", map[string]string{"STORAGE_BACKEND": "sqlite"}, "STORAGE_BACKEND"},
		{"postgres eligibility on memory storage", map[string]string{"ELIGIBILITY_BACKEND": "postgres"}, "requires STORAGE_BACKEND"},
		{"postgrest without url", map[string]string{"ELIGIBILITY_BACKEND": "postgrest"}, "POSTGREST_URL"},
		{"zero timeout", map[string]string{"ELIGIBILITY_TIMEOUT": "0s"}, "ELIGIBILITY_TIMEOUT"},
		{"bad duration", map[string]string{"IDEMPOTENCY_TTL": "forever"}, "parse env:"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("Load() err=nil, want error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load() err=%v, want %q", err, tc.want)
			}
		})
	}
}

func TestLoadJWTConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("JWT_ISSUER", "https://auth.example.test/auth/v1")
	t.Setenv("JWT_AUDIENCE", "")
	t.Setenv("JWT_CLOCK_SKEW", "")
	os.Unsetenv("JWT_AUDIENCE")
	os.Unsetenv("JWT_CLOCK_SKEW")

	cfg, err := LoadJWTConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadJWTConfigFromEnv() err=%v", err)
	}
	if cfg.Audience != "authenticated" || cfg.ClockSkew != 30*time.Second {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestJWTConfigValidate(t *testing.T) {
	t.Parallel()

	good := JWTConfig{Secret: strings.Repeat("s", 32), Issuer: "iss", Audience: "aud"}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	missing := JWTConfig{Audience: "aud"}
	err := missing.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET, JWT_ISSUER") {
		t.Fatalf("Validate() err=%v, want missing vars", err)
	}

	short := good
	short.Secret = "short"
	if err := short.Validate(); err == nil {
		t.Fatalf("Validate() err=nil for short secret")
	}

	skew := good
	skew.ClockSkew = -time.Second
	if err := skew.Validate(); err == nil {
		t.Fatalf("Validate() err=nil for negative skew")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PREDICTIONS_TEST_DOTENV=from-file\nPREDICTIONS_TEST_PRESET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PREDICTIONS_TEST_PRESET", "from-env")
	t.Setenv("PREDICTIONS_TEST_DOTENV", "")
	os.Unsetenv("PREDICTIONS_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() err=%v", err)
	}
	if got := os.Getenv("PREDICTIONS_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("PREDICTIONS_TEST_DOTENV=%q", got)
	}
	if got := os.Getenv("PREDICTIONS_TEST_PRESET"); got != "from-env" {
		t.Fatalf("PREDICTIONS_TEST_PRESET=%q, want existing value kept", got)
	}
}

type envTestConfig struct {
	Port int `env:"PREDICTIONS_TEST_PORT" envDefault:"123"`
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("PREDICTIONS_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("ParseEnv() err=%v, want parse env prefix", err)
	}
}
