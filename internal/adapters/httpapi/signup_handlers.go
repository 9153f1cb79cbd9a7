package httpapi

import (
	"net/http"
	"strings"

	"github.com/promo-vote/predictions-api/internal/app/signup"
)

// CheckSignup answers whether a free-text name may sign up. Every outcome is a 200;
// the body carries the structured resolution.
func (s *Server) CheckSignup(w http.ResponseWriter, r *http.Request) {
	if _, ok := subject(w, r); !ok {
		return
	}
	var body checkSignupRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	res := s.Signup.ValidateAndResolve(r.Context(), body.Name)
	writeJSON(w, http.StatusOK, checkSignupFromResolution(res))
}

func (s *Server) RegisterProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	var body registerProfileRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := s.Signup.Register(r.Context(), sub, signup.RegisterInput{
		Name:  body.Name,
		Email: strings.TrimSpace(string(body.Email)),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profileResponse{Profile: profileFromDomain(p)})
}
