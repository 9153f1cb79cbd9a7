package httpapi

import (
	"net/http"

	"github.com/promo-vote/predictions-api/internal/domain"
)

// Admin handlers run behind RequireAdmin.

func (s *Server) AdminListProfiles(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Profiles.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profilesFromDomain(ps)})
}

func (s *Server) AdminUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body updateProfileRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	id := domain.ProfileID(pathParam(r, "profileId"))
	p, err := s.Profiles.UpdateProfile(r.Context(), id, updateProfileInputFromRequest(body))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: profileFromDomain(p)})
}

func (s *Server) AdminUpdateSetting(w http.ResponseWriter, r *http.Request) {
	var body updateSettingRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.Settings.Update(r.Context(), pathParam(r, "key"), body.Value); err != nil {
		writeServiceError(w, r, err)
		return
	}
	all, err := s.Settings.All(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": all})
}

func (s *Server) AdminAddModule(w http.ResponseWriter, r *http.Request) {
	var body moduleRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	modules, err := s.Settings.AddModule(r.Context(), body.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, modulesResponse{Modules: modules})
}

func (s *Server) AdminRenameModule(w http.ResponseWriter, r *http.Request) {
	var body moduleRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	modules, err := s.Settings.RenameModule(r.Context(), pathParam(r, "name"), body.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modulesResponse{Modules: modules})
}

func (s *Server) AdminDeleteModule(w http.ResponseWriter, r *http.Request) {
	modules, err := s.Settings.DeleteModule(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modulesResponse{Modules: modules})
}

func (s *Server) AdminListPredictions(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Predictions.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictionsFromDomain(ps))
}

func (s *Server) AdminResetPredictions(w http.ResponseWriter, r *http.Request) {
	n, err := s.Predictions.ResetAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (s *Server) AdminGlobalStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Predictions.GlobalStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": globalStatsFromDomain(st)})
}
