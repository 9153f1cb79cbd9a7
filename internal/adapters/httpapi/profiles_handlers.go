package httpapi

import (
	"net/http"

	"github.com/promo-vote/predictions-api/internal/domain"
)

func (s *Server) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	p, err := s.Profiles.GetMyProfile(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: profileFromDomain(p)})
}

func (s *Server) ListVotableProfiles(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	ps, err := s.Profiles.ListVotable(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": votableFromDomain(ps)})
}

func (s *Server) GetProfileStats(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	id := domain.ProfileID(pathParam(r, "profileId"))
	st, err := s.Predictions.UserStats(r.Context(), sub, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": statsJSON{
		TotalVotes:   st.TotalVotes,
		AvgValidated: st.AvgValidated,
		AvgRetakes:   st.AvgRetakes,
	}})
}
