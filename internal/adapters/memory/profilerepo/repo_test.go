package profilerepo

import (
	"context"
	"testing"
	"time"

	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
)

func TestRepo_CreateAndGet(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	now := time.Unix(100, 0).UTC()

	p := profilerepo.Profile{
		ID:             domain.ProfileID("p1"),
		Subject:        domain.SubjectID("sub-1"),
		FullName:       "MOUTTALI BILAL",
		RegistrationID: domain.RegistrationID("X1"),
		Email:          "bilal@example.com",
		Role:           domain.RoleStudent,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := r.Create(context.Background(), p); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	gotByID, err := r.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if gotByID.ID != p.ID || gotByID.Subject != p.Subject || gotByID.FullName != p.FullName {
		t.Fatalf("GetByID()=%+v, want %+v", gotByID, p)
	}

	gotByReg, err := r.GetByRegistrationID(context.Background(), "X1")
	if err != nil {
		t.Fatalf("GetByRegistrationID() err=%v", err)
	}
	if gotByReg.ID != p.ID {
		t.Fatalf("GetByRegistrationID().ID=%q, want %q", gotByReg.ID, p.ID)
	}
}

func TestRepo_CreateRejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	p1 := profilerepo.Profile{ID: "p1", Subject: "sub-1", FullName: "A", RegistrationID: "X1", Active: true}
	if err := r.Create(context.Background(), p1); err != nil {
		t.Fatalf("Create(p1) err=%v", err)
	}

	tests := []struct {
		name string
		p    profilerepo.Profile
		want error
	}{
		{name: "id", p: profilerepo.Profile{ID: "p1", Subject: "sub-2", RegistrationID: "X2"}, want: profilerepo.ErrAlreadyExists},
		{name: "subject", p: profilerepo.Profile{ID: "p2", Subject: "sub-1", RegistrationID: "X2"}, want: profilerepo.ErrSubjectAlreadyBound},
		{name: "registration", p: profilerepo.Profile{ID: "p3", Subject: "sub-3", RegistrationID: "X1"}, want: profilerepo.ErrRegistrationClaimed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Create(context.Background(), tt.p); err != tt.want {
				t.Fatalf("Create() err=%v, want %v", err, tt.want)
			}
		})
	}

	// Failed creates must not leave partial index entries behind.
	if _, err := r.GetBySubject(context.Background(), "sub-3"); err != profilerepo.ErrNotFound {
		t.Fatalf("GetBySubject(sub-3) err=%v, want %v", err, profilerepo.ErrNotFound)
	}
}

func TestRepo_UpdateKeepsBindingsImmutable(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	p := profilerepo.Profile{ID: "p1", Subject: "sub-1", FullName: "A", RegistrationID: "X1", Role: domain.RoleStudent, Active: true}
	if err := r.Create(context.Background(), p); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	if err := r.Update(context.Background(), profilerepo.Profile{ID: "missing"}); err != profilerepo.ErrNotFound {
		t.Fatalf("Update(missing) err=%v, want %v", err, profilerepo.ErrNotFound)
	}
	moved := p
	moved.Subject = "sub-2"
	if err := r.Update(context.Background(), moved); err != profilerepo.ErrSubjectAlreadyBound {
		t.Fatalf("Update(subject change) err=%v, want %v", err, profilerepo.ErrSubjectAlreadyBound)
	}
	reclaimed := p
	reclaimed.RegistrationID = "X2"
	if err := r.Update(context.Background(), reclaimed); err != profilerepo.ErrRegistrationClaimed {
		t.Fatalf("Update(registration change) err=%v, want %v", err, profilerepo.ErrRegistrationClaimed)
	}

	p.Role = domain.RoleAdmin
	if err := r.Update(context.Background(), p); err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	got, _ := r.GetByID(context.Background(), "p1")
	if got.Role != domain.RoleAdmin {
		t.Fatalf("Role=%q, want admin", got.Role)
	}
}

func TestRepo_ReturnsCopies(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	g := "G1"
	if err := r.Create(context.Background(), profilerepo.Profile{ID: "p1", Subject: "s", RegistrationID: "X1", Group: &g}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	g = "mutated"

	got, _ := r.GetByID(context.Background(), "p1")
	*got.Group = "also mutated"

	again, _ := r.GetByID(context.Background(), "p1")
	if again.Group == nil || *again.Group != "G1" {
		t.Fatalf("Group=%v, want G1", again.Group)
	}
}
