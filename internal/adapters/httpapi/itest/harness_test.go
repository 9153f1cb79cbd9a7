package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/promo-vote/predictions-api/internal/adapters/httpapi"
	memclock "github.com/promo-vote/predictions-api/internal/adapters/memory/clock"
	memidempotency "github.com/promo-vote/predictions-api/internal/adapters/memory/idempotency"
	mempredictionrepo "github.com/promo-vote/predictions-api/internal/adapters/memory/predictionrepo"
	memprofilerepo "github.com/promo-vote/predictions-api/internal/adapters/memory/profilerepo"
	memregistry "github.com/promo-vote/predictions-api/internal/adapters/memory/registry"
	memsettingsrepo "github.com/promo-vote/predictions-api/internal/adapters/memory/settingsrepo"
	pgidempotency "github.com/promo-vote/predictions-api/internal/adapters/postgres/idempotency"
	pgpredictionrepo "github.com/promo-vote/predictions-api/internal/adapters/postgres/predictionrepo"
	pgprofilerepo "github.com/promo-vote/predictions-api/internal/adapters/postgres/profilerepo"
	pgregistry "github.com/promo-vote/predictions-api/internal/adapters/postgres/registry"
	pgsettingsrepo "github.com/promo-vote/predictions-api/internal/adapters/postgres/settingsrepo"
	postgres_testutil "github.com/promo-vote/predictions-api/internal/adapters/postgres/testutil"
	"github.com/promo-vote/predictions-api/internal/app/predictions"
	"github.com/promo-vote/predictions-api/internal/app/profiles"
	"github.com/promo-vote/predictions-api/internal/app/roster"
	"github.com/promo-vote/predictions-api/internal/app/settings"
	"github.com/promo-vote/predictions-api/internal/app/signup"
	"github.com/promo-vote/predictions-api/internal/domain"
	idempotencyport "github.com/promo-vote/predictions-api/internal/ports/out/idempotency"
	predictionrepoport "github.com/promo-vote/predictions-api/internal/ports/out/predictionrepo"
	profilerepoport "github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
	registryport "github.com/promo-vote/predictions-api/internal/ports/out/registry"
	settingsrepoport "github.com/promo-vote/predictions-api/internal/ports/out/settingsrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

// itestRoster is the static roster every backend starts from. The last entry is
// deliberately left off the allow-list.
var itestRoster = []domain.RosterEntry{
	{FullName: "Alice Martin", RegistrationID: "20210001", Group: "G1", Subgroup: "G1A"},
	{FullName: "Bob Durand", RegistrationID: "20210002", Group: "G1", Subgroup: "G1B"},
	{FullName: "Chloé Lefèvre", RegistrationID: "20210003", Group: "G2"},
	{FullName: "Denis Martin", RegistrationID: "20210004", Group: "G2"},
	{FullName: "Eve Intruse", RegistrationID: "20219999"},
}

type testServer struct {
	baseURL  string
	client   *http.Client
	profiles profilerepoport.Repository
	clk      *memclock.ManualClock
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	const issuer = "itest-issuer"
	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	allowed := itestRoster[:len(itestRoster)-1]

	var (
		profileRepo    profilerepoport.Repository
		predictionRepo predictionrepoport.Repository
		settingsRepo   settingsrepoport.Repository
		reg            registryport.Registry
		idemStore      idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		profileRepo = pgprofilerepo.NewRepo(pool, issuer)
		predictionRepo = pgpredictionrepo.NewRepo(pool)
		settingsRepo = pgsettingsrepo.NewRepo(pool)
		pgReg := pgregistry.NewRegistry(pool)
		if err := pgReg.Allow(context.Background(), allowed...); err != nil {
			t.Fatalf("allow roster: %v", err)
		}
		reg = pgReg
		idemStore = pgidempotency.NewStore(pool, issuer, clk, idempotencyport.DefaultTTL)
	case backendMemory:
		memProfiles := memprofilerepo.NewRepo()
		profileRepo = memProfiles
		predictionRepo = mempredictionrepo.NewRepo()
		settingsRepo = memsettingsrepo.NewRepo(settings.Defaults())
		ids := make([]domain.RegistrationID, 0, len(allowed))
		for _, e := range allowed {
			ids = append(ids, e.RegistrationID)
		}
		reg = memregistry.NewRegistry(memProfiles, ids...)
		idemStore = memidempotency.NewStore(clk, idempotencyport.DefaultTTL)
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	settingsSvc := settings.NewService(settingsRepo, clk)
	api := httpapi.NewServer(httpapi.Services{
		Signup:      signup.NewService(roster.New(itestRoster), reg, profileRepo, clk),
		Profiles:    profiles.NewService(profileRepo, clk),
		Predictions: predictions.NewService(predictionRepo, profileRepo, settingsSvc, clk),
		Settings:    settingsSvc,
	}, idemStore, clk)

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// An empty default subject forces requests to provide X-Debug-Subject.
	authMW := httpapi.NewDevAuthMiddleware("")
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: authMW})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL:  srv.URL,
		client:   srv.Client(),
		profiles: profileRepo,
		clk:      clk,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

// seedAdmin stores an active admin profile for subject; admins are promoted out of band.
func (s *testServer) seedAdmin(t *testing.T, subject string) {
	t.Helper()
	now := s.clk.Now()
	if err := s.profiles.Create(context.Background(), profilerepoport.Profile{
		ID:             domain.ProfileID(uuid.NewString()),
		Subject:        domain.SubjectID(subject),
		FullName:       "Admin Principal",
		RegistrationID: domain.RegistrationID("ADMIN-" + subject),
		Email:          "admin@example.com",
		Role:           domain.RoleAdmin,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

type errorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
