package httpapi

import (
	"context"

	"github.com/promo-vote/predictions-api/internal/domain"
)

type ctxKey int

const subjectCtxKey ctxKey = iota

// WithSubject attaches the authenticated subject to ctx.
func WithSubject(ctx context.Context, sub domain.SubjectID) context.Context {
	return context.WithValue(ctx, subjectCtxKey, sub)
}

// SubjectFromContext reports the subject set by the auth middleware. An empty subject
// counts as absent.
func SubjectFromContext(ctx context.Context) (domain.SubjectID, bool) {
	sub, _ := ctx.Value(subjectCtxKey).(domain.SubjectID)
	return sub, sub != ""
}
