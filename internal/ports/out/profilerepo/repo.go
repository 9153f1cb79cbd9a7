package profilerepo

import (
	"context"
	"time"

	"github.com/promo-vote/predictions-api/internal/domain"
)

// Profile is the persistence shape used by the profile repository.
// It's used as an internal record, not an HTTP DTO.
type Profile struct {
	ID      domain.ProfileID
	Subject domain.SubjectID

	FullName       string
	RegistrationID domain.RegistrationID
	// Email is the contact address given at signup; it is not exposed in directory listings.
	Email string
	// Group and Subgroup are copied from the roster at signup; nil means unset.
	Group    *string
	Subgroup *string

	Role   domain.Role
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted profiles.
//
// Result ordering expectations:
// - List returns results ordered by FullName ascending (case-insensitive), ties broken by ID.
type Repository interface {
	Create(ctx context.Context, p Profile) error
	Update(ctx context.Context, p Profile) error

	GetByID(ctx context.Context, id domain.ProfileID) (Profile, error)
	GetBySubject(ctx context.Context, subject domain.SubjectID) (Profile, error)
	GetByRegistrationID(ctx context.Context, id domain.RegistrationID) (Profile, error)

	List(ctx context.Context, includeInactive bool) ([]Profile, error)
}
