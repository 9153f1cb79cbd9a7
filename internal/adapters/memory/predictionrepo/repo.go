package predictionrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/ports/out/predictionrepo"
)

type pairKey struct {
	voterID  domain.ProfileID
	targetID domain.ProfileID
}

// Repo is an in-memory implementation of predictionrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu     sync.RWMutex
	byID   map[domain.PredictionID]predictionrepo.Prediction
	byPair map[pairKey]domain.PredictionID
}

func NewRepo() *Repo {
	return &Repo{
		byID:   make(map[domain.PredictionID]predictionrepo.Prediction),
		byPair: make(map[pairKey]domain.PredictionID),
	}
}

func (r *Repo) Create(ctx context.Context, p predictionrepo.Prediction) error {
	_ = ctx
	if p.ID == "" {
		return predictionrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; ok {
		return predictionrepo.ErrAlreadyExists
	}
	k := pairKey{voterID: p.VoterID, targetID: p.TargetID}
	if _, ok := r.byPair[k]; ok {
		return predictionrepo.ErrAlreadyVoted
	}
	r.byID[p.ID] = clonePrediction(p)
	r.byPair[k] = p.ID
	return nil
}

func (r *Repo) Get(ctx context.Context, id domain.PredictionID) (predictionrepo.Prediction, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return predictionrepo.Prediction{}, predictionrepo.ErrNotFound
	}
	return clonePrediction(p), nil
}

func (r *Repo) GetByPair(ctx context.Context, voterID, targetID domain.ProfileID) (predictionrepo.Prediction, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[pairKey{voterID: voterID, targetID: targetID}]
	if !ok {
		return predictionrepo.Prediction{}, predictionrepo.ErrNotFound
	}
	return clonePrediction(r.byID[id]), nil
}

func (r *Repo) ListByVoter(ctx context.Context, voterID domain.ProfileID) ([]predictionrepo.Prediction, error) {
	return r.list(ctx, func(p predictionrepo.Prediction) bool { return p.VoterID == voterID })
}

func (r *Repo) ListByTarget(ctx context.Context, targetID domain.ProfileID) ([]predictionrepo.Prediction, error) {
	return r.list(ctx, func(p predictionrepo.Prediction) bool { return p.TargetID == targetID })
}

func (r *Repo) ListAll(ctx context.Context) ([]predictionrepo.Prediction, error) {
	return r.list(ctx, func(predictionrepo.Prediction) bool { return true })
}

func (r *Repo) Delete(ctx context.Context, id domain.PredictionID, voterID domain.ProfileID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.VoterID != voterID {
		return predictionrepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byPair, pairKey{voterID: p.VoterID, targetID: p.TargetID})
	return nil
}

func (r *Repo) DeleteAll(ctx context.Context) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.byID)
	r.byID = make(map[domain.PredictionID]predictionrepo.Prediction)
	r.byPair = make(map[pairKey]domain.PredictionID)
	return n, nil
}

func (r *Repo) list(ctx context.Context, keep func(predictionrepo.Prediction) bool) ([]predictionrepo.Prediction, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]predictionrepo.Prediction, 0)
	for _, p := range r.byID {
		if keep(p) {
			out = append(out, clonePrediction(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return string(out[i].ID) < string(out[j].ID)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func clonePrediction(p predictionrepo.Prediction) predictionrepo.Prediction {
	out := p
	if p.Votes != nil {
		out.Votes = make(map[string]domain.Verdict, len(p.Votes))
		for k, v := range p.Votes {
			out.Votes[k] = v
		}
	}
	return out
}
