package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	memclock "github.com/promo-vote/predictions-api/internal/adapters/memory/clock"
	memidempotency "github.com/promo-vote/predictions-api/internal/adapters/memory/idempotency"
	mempredictionrepo "github.com/promo-vote/predictions-api/internal/adapters/memory/predictionrepo"
	memprofilerepo "github.com/promo-vote/predictions-api/internal/adapters/memory/profilerepo"
	memregistry "github.com/promo-vote/predictions-api/internal/adapters/memory/registry"
	memsettingsrepo "github.com/promo-vote/predictions-api/internal/adapters/memory/settingsrepo"
	"github.com/promo-vote/predictions-api/internal/app/predictions"
	"github.com/promo-vote/predictions-api/internal/app/profiles"
	"github.com/promo-vote/predictions-api/internal/app/roster"
	"github.com/promo-vote/predictions-api/internal/app/settings"
	"github.com/promo-vote/predictions-api/internal/app/signup"
	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/platform/auth/jwtverifier"
	"github.com/promo-vote/predictions-api/internal/platform/auth/tokenmint"
	"github.com/promo-vote/predictions-api/internal/platform/config"
	idempotencyport "github.com/promo-vote/predictions-api/internal/ports/out/idempotency"
	"github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testTokenTime = time.Unix(1700000000, 0)

var testJWT = config.JWTConfig{
	Secret:   strings.Repeat("t", 32),
	Issuer:   "test-iss",
	Audience: "authenticated",
}

var testRoster = []domain.RosterEntry{
	{FullName: "Alice Martin", RegistrationID: "M001", Group: "G1", Subgroup: "G1A"},
	{FullName: "Bob Durand", RegistrationID: "M002", Group: "G1", Subgroup: "G1B"},
	{FullName: "Carol Petit", RegistrationID: "M003", Group: "G2"},
	{FullName: "Paul Martin", RegistrationID: "M004", Group: "G2"},
	{FullName: "Dan Leroy", RegistrationID: "M005"},
}

type testEnv struct {
	h        http.Handler
	profiles *memprofilerepo.Repo
	clk      *memclock.ManualClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	profileRepo := memprofilerepo.NewRepo()
	reg := memregistry.NewRegistry(profileRepo, "M001", "M002", "M003", "M004")
	settingsRepo := memsettingsrepo.NewRepo(settings.Defaults())

	settingsSvc := settings.NewService(settingsRepo, clk)
	svcs := Services{
		Signup:      signup.NewService(roster.New(testRoster), reg, profileRepo, clk),
		Profiles:    profiles.NewService(profileRepo, clk),
		Predictions: predictions.NewService(mempredictionrepo.NewRepo(), profileRepo, settingsSvc, clk),
		Settings:    settingsSvc,
	}
	api := NewServer(svcs, memidempotency.NewStore(clk, idempotencyport.DefaultTTL), clk)

	v := jwtverifier.NewWithOptions(testJWT, fixedClock{t: testTokenTime})
	h := NewRouterWithOptions(api, RouterOptions{AuthMiddleware: NewAuthMiddleware(v)})
	return &testEnv{h: h, profiles: profileRepo, clk: clk}
}

func mintFor(t *testing.T, sub string) string {
	t.Helper()
	tok, err := tokenmint.Mint(tokenmint.Options{
		Secret:   []byte(testJWT.Secret),
		Issuer:   testJWT.Issuer,
		Audience: testJWT.Audience,
		Subject:  sub,
		IssuedAt: testTokenTime,
		TTL:      10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return tok
}

// do sends a request as sub; an empty sub sends no Authorization header.
func (e *testEnv) do(t *testing.T, method, path, sub string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sub != "" {
		req.Header.Set("Authorization", "Bearer "+mintFor(t, sub))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

// register provisions a profile for sub through the API and returns its id.
func (e *testEnv) register(t *testing.T, sub, name, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/profiles", sub, map[string]any{"name": name, "email": email})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s status=%d body=%s", name, rec.Code, rec.Body.String())
	}
	return decode[profileResponse](t, rec).Profile.ID
}

// seedAdmin stores an admin profile directly; admins are promoted out of band.
func (e *testEnv) seedAdmin(t *testing.T, sub string) {
	t.Helper()
	now := e.clk.Now()
	if err := e.profiles.Create(context.Background(), profilerepo.Profile{
		ID:             domain.ProfileID("admin-" + sub),
		Subject:        domain.SubjectID(sub),
		FullName:       "Zoe Admin",
		RegistrationID: domain.RegistrationID("ADM-" + sub),
		Email:          "admin@example.com",
		Role:           domain.RoleAdmin,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	return out
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", rec.Code, wantStatus, rec.Body.String())
	}
	var er struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	if er.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", er.Error.Code, wantCode, rec.Body.String())
	}
	if er.Error.RequestID == "" {
		t.Fatalf("error.requestId missing body=%s", rec.Body.String())
	}
}
