package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
	"github.com/promo-vote/predictions-api/internal/ports/out/registry"
)

// Registry is an in-memory eligibility registry for local development and tests.
//
// A registration id is valid when it is on the allow-list and available when no profile
// in the profile repository claims it.
type Registry struct {
	mu       sync.RWMutex
	allowed  map[domain.RegistrationID]struct{}
	profiles profilerepo.Repository
}

func NewRegistry(profiles profilerepo.Repository, allowed ...domain.RegistrationID) *Registry {
	r := &Registry{
		allowed:  make(map[domain.RegistrationID]struct{}, len(allowed)),
		profiles: profiles,
	}
	for _, id := range allowed {
		r.allowed[id] = struct{}{}
	}
	return r
}

// Allow adds registration ids to the allow-list.
func (r *Registry) Allow(ids ...domain.RegistrationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.allowed[id] = struct{}{}
	}
}

// Revoke removes a registration id from the allow-list.
func (r *Registry) Revoke(id domain.RegistrationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.allowed, id)
}

func (r *Registry) CheckEligibility(ctx context.Context, id domain.RegistrationID) (registry.Eligibility, error) {
	if err := ctx.Err(); err != nil {
		return registry.Eligibility{}, err
	}
	r.mu.RLock()
	_, ok := r.allowed[id]
	r.mu.RUnlock()
	if !ok {
		return registry.Eligibility{}, nil
	}
	if r.profiles == nil {
		return registry.Eligibility{Valid: true, Available: true}, nil
	}
	_, err := r.profiles.GetByRegistrationID(ctx, id)
	switch {
	case err == nil:
		return registry.Eligibility{Valid: true}, nil
	case errors.Is(err, profilerepo.ErrNotFound):
		return registry.Eligibility{Valid: true, Available: true}, nil
	default:
		return registry.Eligibility{}, err
	}
}
