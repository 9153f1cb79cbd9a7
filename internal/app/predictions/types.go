package predictions

import (
	"context"

	"github.com/promo-vote/predictions-api/internal/domain"
)

// MaxCount bounds the validated and retake counts of a prediction.
const MaxCount = 20

type SubmitInput struct {
	TargetID  domain.ProfileID
	Validated int
	Retakes   int
	// Votes is the optional per-module breakdown. When present, the counts are derived
	// from it and the explicit Validated/Retakes values are ignored.
	Votes map[string]domain.Verdict
}

// Settings is the slice of the settings service predictions depend on.
type Settings interface {
	Flags(ctx context.Context) (domain.Flags, error)
	Modules(ctx context.Context) ([]string, error)
}
