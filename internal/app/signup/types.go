package signup

import "github.com/promo-vote/predictions-api/internal/domain"

// Code classifies a failed Resolution.
type Code string

const (
	CodeNone                Code = ""
	CodeNameRequired        Code = "NAME_REQUIRED"
	CodeStudentNotFound     Code = "STUDENT_NOT_FOUND"
	CodeAmbiguousName       Code = "AMBIGUOUS_NAME"
	CodeRegistryUnavailable Code = "REGISTRY_UNAVAILABLE"
	CodeNotAllowlisted      Code = "NOT_ALLOWLISTED"
	CodeAccountExists       Code = "ACCOUNT_EXISTS"
)

// Resolution is the structured answer to "can this name sign up?".
//
// Available implies Valid. Student is set whenever the name matched locally and the
// registry did not reject it, even when signup is not permitted.
type Resolution struct {
	Valid     bool
	Available bool
	Code      Code
	Error     string
	Student   *domain.RosterEntry
	// Candidates lists sample roster names when the name was ambiguous.
	Candidates []string
}

// OK reports whether signup may proceed.
func (r Resolution) OK() bool {
	return r.Valid && r.Available && r.Code == CodeNone
}

type RegisterInput struct {
	Name  string
	Email string
}
