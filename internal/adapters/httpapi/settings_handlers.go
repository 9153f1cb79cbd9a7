package httpapi

import (
	"net/http"
)

// GetSettings exposes the feature flags and module list every signed-in student needs.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := subject(w, r); !ok {
		return
	}
	flags, err := s.Settings.Flags(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	modules, err := s.Settings.Modules(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		VotingEnabled:  flags.VotingEnabled,
		ShowResults:    flags.ShowResults,
		AnonymousVotes: flags.AnonymousVotes,
		Modules:        modules,
	})
}

func (s *Server) ListModules(w http.ResponseWriter, r *http.Request) {
	if _, ok := subject(w, r); !ok {
		return
	}
	modules, err := s.Settings.Modules(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modulesResponse{Modules: modules})
}
