package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/promo-vote/predictions-api/internal/domain"
)

// TokenVerifier validates a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

const debugSubjectHeader = "X-Debug-Subject"

// NewAuthMiddleware requires a verified bearer token and stores its subject in the
// request context.
func NewAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r)
			if problem != "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", problem, nil)
				return
			}
			sub, err := v.Verify(r.Context(), token)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), domain.SubjectID(sub))))
		})
	}
}

// bearerToken extracts the token from an Authorization header. The scheme is matched
// case-insensitively. problem is empty on success.
func bearerToken(r *http.Request) (token, problem string) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", "missing Authorization header"
	}
	scheme, rest, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "malformed Authorization header"
	}
	token = strings.TrimSpace(rest)
	if token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

// NewDevAuthMiddleware trusts the X-Debug-Subject header, falling back to
// defaultSubject. Local development only.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	fallback := domain.SubjectID(strings.TrimSpace(defaultSubject))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := domain.SubjectID(strings.TrimSpace(r.Header.Get(debugSubjectHeader)))
			if sub == "" {
				sub = fallback
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject (set X-Debug-Subject)", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}
