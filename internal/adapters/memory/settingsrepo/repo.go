package settingsrepo

import (
	"context"
	"sync"
	"time"

	"github.com/promo-vote/predictions-api/internal/ports/out/settingsrepo"
)

// Repo is an in-memory implementation of settingsrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewRepo returns a repository pre-populated with seed values.
func NewRepo(seed map[string]string) *Repo {
	m := make(map[string]string, len(seed))
	for k, v := range seed {
		m[k] = v
	}
	return &Repo{m: m}
}

func (r *Repo) Get(ctx context.Context, key string) (string, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[key]
	if !ok {
		return "", settingsrepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) All(ctx context.Context) (map[string]string, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.m))
	for k, v := range r.m {
		out[k] = v
	}
	return out, nil
}

func (r *Repo) Set(ctx context.Context, key, value string, updatedAt time.Time) error {
	_, _ = ctx, updatedAt
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[key] = value
	return nil
}
