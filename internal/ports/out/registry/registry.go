package registry

import (
	"context"

	"github.com/promo-vote/predictions-api/internal/domain"
)

// Eligibility is the authoritative answer for one registration id.
// Available implies Valid; implementations must never report Available without Valid.
type Eligibility struct {
	// Valid reports membership of the server-side allow-list.
	Valid bool
	// Available reports that no account claims the registration id yet.
	Available bool
}

// Normalize enforces the Available => Valid invariant.
func (e Eligibility) Normalize() Eligibility {
	if !e.Valid {
		e.Available = false
	}
	return e
}

// Registry answers eligibility questions from the source of truth (the hosted backend).
// Calls are remote and can fail transiently.
type Registry interface {
	CheckEligibility(ctx context.Context, id domain.RegistrationID) (Eligibility, error)
}
