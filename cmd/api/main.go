package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promo-vote/predictions-api/internal/adapters/httpapi"
	memidempotency "github.com/promo-vote/predictions-api/internal/adapters/memory/idempotency"
	mempredictionrepo "github.com/promo-vote/predictions-api/internal/adapters/memory/predictionrepo"
	memprofilerepo "github.com/promo-vote/predictions-api/internal/adapters/memory/profilerepo"
	memregistry "github.com/promo-vote/predictions-api/internal/adapters/memory/registry"
	memsettingsrepo "github.com/promo-vote/predictions-api/internal/adapters/memory/settingsrepo"
	postgres "github.com/promo-vote/predictions-api/internal/adapters/postgres"
	pgidempotency "github.com/promo-vote/predictions-api/internal/adapters/postgres/idempotency"
	pgpredictionrepo "github.com/promo-vote/predictions-api/internal/adapters/postgres/predictionrepo"
	pgprofilerepo "github.com/promo-vote/predictions-api/internal/adapters/postgres/profilerepo"
	pgregistry "github.com/promo-vote/predictions-api/internal/adapters/postgres/registry"
	pgsettingsrepo "github.com/promo-vote/predictions-api/internal/adapters/postgres/settingsrepo"
	"github.com/promo-vote/predictions-api/internal/adapters/postgrest"
	"github.com/promo-vote/predictions-api/internal/adapters/rosterfile"
	"github.com/promo-vote/predictions-api/internal/app/predictions"
	"github.com/promo-vote/predictions-api/internal/app/profiles"
	"github.com/promo-vote/predictions-api/internal/app/roster"
	"github.com/promo-vote/predictions-api/internal/app/settings"
	"github.com/promo-vote/predictions-api/internal/app/signup"
	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/promo-vote/predictions-api/internal/platform/clock"
	"github.com/promo-vote/predictions-api/internal/platform/config"
	"github.com/promo-vote/predictions-api/internal/platform/logging"
	idempotencyport "github.com/promo-vote/predictions-api/internal/ports/out/idempotency"
	predictionrepoport "github.com/promo-vote/predictions-api/internal/ports/out/predictionrepo"
	profilerepoport "github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
	registryport "github.com/promo-vote/predictions-api/internal/ports/out/registry"
	settingsrepoport "github.com/promo-vote/predictions-api/internal/ports/out/settingsrepo"
)

const pruneInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is a local convenience; real deployments set the environment directly.
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Auth configuration:
	// - Production: require JWT_* env vars and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass JWT verification and use X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	var authIssuer string
	switch cfg.AuthMode {
	case config.AuthModeDev:
		logger.Warn("dev auth enabled; requests are trusted via X-Debug-Subject")
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
		authIssuer = cfg.DevIssuer
	default:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			return fmt.Errorf("invalid auth config: %w", err)
		}
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(jwtCfg))
		authIssuer = jwtCfg.Issuer
	}

	students, err := rosterfile.Load(cfg.RosterPath)
	if err != nil {
		return err
	}
	matcher := roster.New(students)
	logger.Info("roster loaded", "path", cfg.RosterPath, "students", matcher.Len())

	allowed := students
	if cfg.AllowlistPath != "" {
		if allowed, err = rosterfile.Load(cfg.AllowlistPath); err != nil {
			return err
		}
	}

	clk := platformclock.NewSystemClock()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		profileRepo    profilerepoport.Repository
		predictionRepo predictionrepoport.Repository
		settingsRepo   settingsrepoport.Repository
		idemStore      idempotencyport.Store
		pool           *pgxpool.Pool
	)

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			return fmt.Errorf("invalid postgres config: %w", err)
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
		}

		profileRepo = pgprofilerepo.NewRepo(pool, authIssuer)
		predictionRepo = pgpredictionrepo.NewRepo(pool)
		settingsRepo = pgsettingsrepo.NewRepo(pool)
		pgIdem := pgidempotency.NewStore(pool, authIssuer, clk, cfg.IdempotencyTTL)
		idemStore = pgIdem
		go pruneIdempotency(ctx, logger, pgIdem)
	default:
		profileRepo = memprofilerepo.NewRepo()
		predictionRepo = mempredictionrepo.NewRepo()
		settingsRepo = memsettingsrepo.NewRepo(settings.Defaults())
		memIdem := memidempotency.NewStore(clk, cfg.IdempotencyTTL)
		idemStore = memIdem
		go pruneIdempotency(ctx, logger, memIdem)
	}

	reg, err := newRegistry(ctx, cfg, pool, profileRepo, allowed)
	if err != nil {
		return err
	}

	settingsSvc := settings.NewService(settingsRepo, clk)
	signupSvc := signup.NewService(matcher, reg, profileRepo, clk)
	signupSvc.EligibilityTimeout = cfg.EligibilityTimeout

	api := httpapi.NewServer(httpapi.Services{
		Signup:      signupSvc,
		Profiles:    profiles.NewService(profileRepo, clk),
		Predictions: predictions.NewService(predictionRepo, profileRepo, settingsSvc, clk),
		Settings:    settingsSvc,
	}, idemStore, clk)

	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api listening",
			"addr", srv.Addr,
			"auth_mode", cfg.AuthMode,
			"storage", cfg.StorageBackend,
			"eligibility", cfg.EligibilityBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRegistry(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, profiles profilerepoport.Repository, allowed []domain.RosterEntry) (registryport.Registry, error) {
	switch cfg.EligibilityBackend {
	case config.BackendPostgREST:
		reg, err := postgrest.NewRegistry(postgrest.Options{BaseURL: cfg.PostgRESTURL, APIKey: cfg.PostgRESTAPIKey})
		if err != nil {
			return nil, err
		}
		return reg, nil
	case config.BackendPostgres:
		reg := pgregistry.NewRegistry(pool)
		if cfg.AllowlistPath != "" {
			if err := reg.Allow(ctx, allowed...); err != nil {
				return nil, err
			}
		}
		return reg, nil
	default:
		ids := make([]domain.RegistrationID, 0, len(allowed))
		for _, e := range allowed {
			ids = append(ids, e.RegistrationID)
		}
		return memregistry.NewRegistry(profiles, ids...), nil
	}
}

type pruner interface {
	Prune(ctx context.Context) (int64, error)
}

func pruneIdempotency(ctx context.Context, logger *slog.Logger, store pruner) {
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := store.Prune(ctx)
			if err != nil {
				logger.Warn("idempotency prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("idempotency records pruned", "deleted", n)
			}
		}
	}
}
