package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/promo-vote/predictions-api/internal/app/predictions"
	"github.com/promo-vote/predictions-api/internal/app/profiles"
	"github.com/promo-vote/predictions-api/internal/app/settings"
	"github.com/promo-vote/predictions-api/internal/app/signup"
	"github.com/promo-vote/predictions-api/internal/domain"
	clockport "github.com/promo-vote/predictions-api/internal/ports/out/clock"
	"github.com/promo-vote/predictions-api/internal/ports/out/idempotency"
)

// Services groups the application services the HTTP adapter delegates to.
type Services struct {
	Signup      *signup.Service
	Profiles    *profiles.Service
	Predictions *predictions.Service
	Settings    *settings.Service
}

// Server holds the HTTP handlers. Handlers translate between JSON and the app layer
// and never carry business rules of their own.
type Server struct {
	Signup      *signup.Service
	Profiles    *profiles.Service
	Predictions *predictions.Service
	Settings    *settings.Service
	Idem        idempotency.Store

	clk clockport.Clock
}

func NewServer(svcs Services, idem idempotency.Store, clk clockport.Clock) *Server {
	return &Server{
		Signup:      svcs.Signup,
		Profiles:    svcs.Profiles,
		Predictions: svcs.Predictions,
		Settings:    svcs.Settings,
		Idem:        idem,
		clk:         clk,
	}
}

// subject returns the authenticated subject or writes a 401.
func subject(w http.ResponseWriter, r *http.Request) (domain.SubjectID, bool) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return "", false
	}
	return sub, true
}

// RequireAdmin rejects callers without an active admin profile.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := subject(w, r)
		if !ok {
			return
		}
		if _, err := s.Profiles.RequireAdmin(r.Context(), sub); err != nil {
			writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
