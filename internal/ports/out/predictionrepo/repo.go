package predictionrepo

import (
	"context"
	"time"

	"github.com/promo-vote/predictions-api/internal/domain"
)

type Prediction struct {
	ID       domain.PredictionID
	VoterID  domain.ProfileID
	TargetID domain.ProfileID

	Validated int
	Retakes   int
	// Votes is the optional per-module breakdown; nil when absent.
	Votes map[string]domain.Verdict

	CreatedAt time.Time
}

// Repository provides access to persisted predictions.
//
// List methods return results ordered by CreatedAt ascending, ties broken by ID.
type Repository interface {
	// Create stores a new prediction. At most one prediction may exist per (voter, target);
	// a second one yields ErrAlreadyVoted.
	Create(ctx context.Context, p Prediction) error

	Get(ctx context.Context, id domain.PredictionID) (Prediction, error)
	GetByPair(ctx context.Context, voterID, targetID domain.ProfileID) (Prediction, error)

	ListByVoter(ctx context.Context, voterID domain.ProfileID) ([]Prediction, error)
	ListByTarget(ctx context.Context, targetID domain.ProfileID) ([]Prediction, error)
	ListAll(ctx context.Context) ([]Prediction, error)

	// Delete removes a prediction owned by voterID. Missing or foreign predictions yield ErrNotFound.
	Delete(ctx context.Context, id domain.PredictionID, voterID domain.ProfileID) error

	// DeleteAll removes every prediction and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)
}
