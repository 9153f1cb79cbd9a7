package profilerepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
)

// Repo is an in-memory implementation of profilerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID    map[domain.ProfileID]profilerepo.Profile
	idBySub map[domain.SubjectID]domain.ProfileID
	idByReg map[domain.RegistrationID]domain.ProfileID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.ProfileID]profilerepo.Profile),
		idBySub: make(map[domain.SubjectID]domain.ProfileID),
		idByReg: make(map[domain.RegistrationID]domain.ProfileID),
	}
}

func (r *Repo) Create(ctx context.Context, p profilerepo.Profile) error {
	_ = ctx
	if p.ID == "" {
		return profilerepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; ok {
		return profilerepo.ErrAlreadyExists
	}
	if _, ok := r.idBySub[p.Subject]; ok {
		return profilerepo.ErrSubjectAlreadyBound
	}
	if p.RegistrationID != "" {
		if _, ok := r.idByReg[p.RegistrationID]; ok {
			return profilerepo.ErrRegistrationClaimed
		}
		r.idByReg[p.RegistrationID] = p.ID
	}

	r.byID[p.ID] = cloneProfile(p)
	r.idBySub[p.Subject] = p.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, p profilerepo.Profile) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[p.ID]
	if !ok {
		return profilerepo.ErrNotFound
	}
	// Subject and registration bindings are immutable.
	if existing.Subject != p.Subject {
		return profilerepo.ErrSubjectAlreadyBound
	}
	if existing.RegistrationID != p.RegistrationID {
		return profilerepo.ErrRegistrationClaimed
	}

	r.byID[p.ID] = cloneProfile(p)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ProfileID) (profilerepo.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (profilerepo.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(r.idBySub[subject])
}

func (r *Repo) GetByRegistrationID(ctx context.Context, id domain.RegistrationID) (profilerepo.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(r.idByReg[id])
}

func (r *Repo) List(ctx context.Context, includeInactive bool) ([]profilerepo.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]profilerepo.Profile, 0, len(r.byID))
	for _, p := range r.byID {
		if !includeInactive && !p.Active {
			continue
		}
		out = append(out, cloneProfile(p))
	}
	sortProfilesByName(out)
	return out, nil
}

func (r *Repo) lookupLocked(id domain.ProfileID) (profilerepo.Profile, error) {
	if id == "" {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	p, ok := r.byID[id]
	if !ok {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	return cloneProfile(p), nil
}

func cloneProfile(p profilerepo.Profile) profilerepo.Profile {
	out := p
	out.Group = cloneStringPtr(p.Group)
	out.Subgroup = cloneStringPtr(p.Subgroup)
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortProfilesByName(ps []profilerepo.Profile) {
	sort.Slice(ps, func(i, j int) bool {
		ni := strings.ToLower(ps[i].FullName)
		nj := strings.ToLower(ps[j].FullName)
		if ni == nj {
			return string(ps[i].ID) < string(ps[j].ID)
		}
		return ni < nj
	})
}
