package domain

import "time"

// Role controls access to the admin surface.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Profile is the domain representation of a provisioned student account.
type Profile struct {
	ID      ProfileID
	Subject SubjectID

	FullName       string
	RegistrationID RegistrationID
	Email          string
	Group          *string
	Subgroup       *string

	Role   Role
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the profile may use the admin surface.
func (p Profile) IsAdmin() bool {
	return p.Active && p.Role == RoleAdmin
}
