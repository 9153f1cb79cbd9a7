package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/promo-vote/predictions-api/internal/platform/auth/tokenmint"
	"github.com/promo-vote/predictions-api/internal/platform/config"
)

// Dev-only token issuer. Tokens are signed with the same HS256 secret the API verifies
// with, so a local stack can run with AUTH_MODE=jwt.

type devConfig struct {
	Port string        `env:"DEVTOKEN_PORT" envDefault:"5556"`
	TTL  time.Duration `env:"DEVTOKEN_TTL"  envDefault:"30m"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Error("load .env", "error", err)
		os.Exit(1)
	}
	var cfg devConfig
	if err := config.ParseEnv(&cfg); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	jwtCfg, err := config.LoadJWTConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Mint a token:
	//   GET /token?sub=dev|alice&email=alice@example.com
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}

		now := time.Now().UTC()
		token, err := tokenmint.Mint(tokenmint.Options{
			Secret:    []byte(jwtCfg.Secret),
			Issuer:    jwtCfg.Issuer,
			Audience:  jwtCfg.Audience,
			Subject:   sub,
			Email:     strings.TrimSpace(r.URL.Query().Get("email")),
			IssuedAt:  now,
			NotBefore: now.Add(-5 * time.Second),
			TTL:       cfg.TTL,
		})
		if err != nil {
			logger.Error("mint token", "error", err)
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"sub":   sub,
			"iss":   jwtCfg.Issuer,
			"aud":   jwtCfg.Audience,
			"exp":   now.Add(cfg.TTL).Unix(),
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("devtoken listening", "addr", srv.Addr, "iss", jwtCfg.Issuer, "aud", jwtCfg.Audience, "ttl", cfg.TTL)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("listen", "error", err)
		os.Exit(1)
	}
}
