package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/promo-vote/predictions-api/internal/domain"
	idempotencyport "github.com/promo-vote/predictions-api/internal/ports/out/idempotency"
	predictionrepoport "github.com/promo-vote/predictions-api/internal/ports/out/predictionrepo"
	profilerepoport "github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
	settingsrepoport "github.com/promo-vote/predictions-api/internal/ports/out/settingsrepo"
)

type CleanupFunc = func()

type ProfileRepoFactory func(t *testing.T) (profilerepoport.Repository, CleanupFunc)
type PredictionRepoFactory func(t *testing.T) (predictionrepoport.Repository, CleanupFunc)
type SettingsRepoFactory func(t *testing.T) (settingsrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/predictions",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}
	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"p1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"id":"p1"}` || got.ContentType != "application/json" || got.StatusCode != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"id":"p2"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"id":"p2"}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// A different subject never sees another subject's record.
	other := fp
	other.Subject = "sub-2"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other subject: ok=%v err=%v", ok, err)
	}
}

func seedProfile(t *testing.T, repo profilerepoport.Repository, sub, name, regID string, active bool) profilerepoport.Profile {
	t.Helper()
	now := time.Unix(1000, 0).UTC()
	p := profilerepoport.Profile{
		ID:             domain.ProfileID(uuid.NewString()),
		Subject:        domain.SubjectID(sub),
		FullName:       name,
		RegistrationID: domain.RegistrationID(regID),
		Email:          sub + "@example.com",
		Role:           domain.RoleStudent,
		Active:         active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("seed profile %q: %v", name, err)
	}
	return p
}

func RunProfileRepo(t *testing.T, newRepo ProfileRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	group := "G1"
	now := time.Unix(1000, 0).UTC()
	a := profilerepoport.Profile{
		ID:             domain.ProfileID(uuid.NewString()),
		Subject:        domain.SubjectID("sub-a"),
		FullName:       "MOUTTALI BILAL",
		RegistrationID: domain.RegistrationID("R-A"),
		Email:          "bilal@example.com",
		Group:          &group,
		Role:           domain.RoleStudent,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FullName != a.FullName || got.Group == nil || *got.Group != "G1" || got.Subgroup != nil {
		t.Fatalf("unexpected profile: %#v", got)
	}
	if _, err := repo.GetBySubject(ctx, a.Subject); err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}
	if got, err := repo.GetByRegistrationID(ctx, "R-A"); err != nil || got.ID != a.ID {
		t.Fatalf("GetByRegistrationID: id=%q err=%v", got.ID, err)
	}
	if _, err := repo.GetByID(ctx, domain.ProfileID(uuid.NewString())); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want ErrNotFound", err)
	}

	// Subject uniqueness.
	dupSub := a
	dupSub.ID = domain.ProfileID(uuid.NewString())
	dupSub.RegistrationID = "R-OTHER"
	if err := repo.Create(ctx, dupSub); !errors.Is(err, profilerepoport.ErrSubjectAlreadyBound) {
		t.Fatalf("Create dup subject err=%v, want ErrSubjectAlreadyBound", err)
	}

	// Registration id uniqueness.
	dupReg := a
	dupReg.ID = domain.ProfileID(uuid.NewString())
	dupReg.Subject = "sub-other"
	if err := repo.Create(ctx, dupReg); !errors.Is(err, profilerepoport.ErrRegistrationClaimed) {
		t.Fatalf("Create dup registration err=%v, want ErrRegistrationClaimed", err)
	}

	// Deterministic list ordering by full name (case-insensitive), inactive filtered.
	b := seedProfile(t, repo, "sub-b", "alami sara", "R-B", true)
	seedProfile(t, repo, "sub-c", "ZOUBIR ADAM", "R-C", false)

	active, err := repo.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 2 || active[0].ID != b.ID || active[1].ID != a.ID {
		t.Fatalf("unexpected active ordering: %#v", active)
	}
	all, err := repo.List(ctx, true)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 || all[2].FullName != "ZOUBIR ADAM" {
		t.Fatalf("unexpected full listing: %#v", all)
	}

	// Update role/active.
	a.Role = domain.RoleAdmin
	a.Active = false
	a.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = repo.GetByID(ctx, a.ID)
	if err != nil || got.Role != domain.RoleAdmin || got.Active {
		t.Fatalf("after Update: %#v err=%v", got, err)
	}
	missing := a
	missing.ID = domain.ProfileID(uuid.NewString())
	if err := repo.Update(ctx, missing); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("Update missing err=%v, want ErrNotFound", err)
	}
}

// RunPredictionRepo exercises prediction storage; voters and targets are seeded through the
// profile repository since some backends enforce referential integrity.
func RunPredictionRepo(t *testing.T, newProfileRepo ProfileRepoFactory, newPredictionRepo PredictionRepoFactory) {
	t.Helper()
	ctx := context.Background()

	profiles, pCleanup := newProfileRepo(t)
	if pCleanup != nil {
		t.Cleanup(pCleanup)
	}
	preds, cleanup := newPredictionRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	voter := seedProfile(t, profiles, "sub-voter", "VOTER ONE", "R-V", true)
	t1 := seedProfile(t, profiles, "sub-t1", "TARGET ONE", "R-T1", true)
	t2 := seedProfile(t, profiles, "sub-t2", "TARGET TWO", "R-T2", true)

	base := time.Unix(2000, 0).UTC()
	first := predictionrepoport.Prediction{
		ID:        domain.PredictionID(uuid.NewString()),
		VoterID:   voter.ID,
		TargetID:  t1.ID,
		Validated: 1,
		Retakes:   1,
		Votes: map[string]domain.Verdict{
			"Analyse":      domain.VerdictValidated,
			"Informatique": domain.VerdictRetake,
		},
		CreatedAt: base.Add(time.Minute),
	}
	second := predictionrepoport.Prediction{
		ID:        domain.PredictionID(uuid.NewString()),
		VoterID:   voter.ID,
		TargetID:  t2.ID,
		Validated: 7,
		Retakes:   2,
		CreatedAt: base,
	}
	if err := preds.Create(ctx, first); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if err := preds.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	// One prediction per (voter, target).
	dup := first
	dup.ID = domain.PredictionID(uuid.NewString())
	if err := preds.Create(ctx, dup); !errors.Is(err, predictionrepoport.ErrAlreadyVoted) {
		t.Fatalf("Create dup pair err=%v, want ErrAlreadyVoted", err)
	}

	got, err := preds.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Validated != 1 || got.Retakes != 1 || got.Votes["Informatique"] != domain.VerdictRetake {
		t.Fatalf("unexpected prediction: %#v", got)
	}
	if got, err := preds.GetByPair(ctx, voter.ID, t2.ID); err != nil || got.ID != second.ID || got.Votes != nil {
		t.Fatalf("GetByPair: %#v err=%v", got, err)
	}

	mine, err := preds.ListByVoter(ctx, voter.ID)
	if err != nil {
		t.Fatalf("ListByVoter: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != second.ID || mine[1].ID != first.ID {
		t.Fatalf("unexpected ListByVoter ordering: %#v", mine)
	}
	received, err := preds.ListByTarget(ctx, t1.ID)
	if err != nil || len(received) != 1 || received[0].ID != first.ID {
		t.Fatalf("ListByTarget: %#v err=%v", received, err)
	}

	// Only the voter may delete.
	if err := preds.Delete(ctx, first.ID, t1.ID); !errors.Is(err, predictionrepoport.ErrNotFound) {
		t.Fatalf("Delete by non-owner err=%v, want ErrNotFound", err)
	}
	if err := preds.Delete(ctx, first.ID, voter.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := preds.Get(ctx, first.ID); !errors.Is(err, predictionrepoport.ErrNotFound) {
		t.Fatalf("Get after delete err=%v, want ErrNotFound", err)
	}
	// The pair is free again.
	if err := preds.Create(ctx, dup); err != nil {
		t.Fatalf("Create after delete: %v", err)
	}

	n, err := preds.DeleteAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("DeleteAll: n=%d err=%v", n, err)
	}
	all, err := preds.ListAll(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("ListAll after DeleteAll: %#v err=%v", all, err)
	}
}

func RunSettingsRepo(t *testing.T, newRepo SettingsRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, err := repo.Get(ctx, "contract_missing"); !errors.Is(err, settingsrepoport.ErrNotFound) {
		t.Fatalf("Get missing err=%v, want ErrNotFound", err)
	}
	now := time.Unix(3000, 0).UTC()
	if err := repo.Set(ctx, "contract_flag", "true", now); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "contract_flag", "false", now.Add(time.Second)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, err := repo.Get(ctx, "contract_flag")
	if err != nil || v != "false" {
		t.Fatalf("Get: v=%q err=%v", v, err)
	}
	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if all["contract_flag"] != "false" {
		t.Fatalf("All()[contract_flag]=%q, want false", all["contract_flag"])
	}
}
