package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	// AuthMiddleware authenticates every route except /healthz. Required.
	AuthMiddleware func(http.Handler) http.Handler
	// Logger receives one line per request; nil uses slog.Default().
	Logger *slog.Logger
}

// NewRouterWithOptions constructs the API HTTP router.
func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		r.Post("/signup/check", s.CheckSignup)

		r.Post("/profiles", s.RegisterProfile)
		r.Get("/profiles/me", s.GetMyProfile)
		r.Get("/profiles/votable", s.ListVotableProfiles)
		r.Get("/profiles/{profileId}/stats", s.GetProfileStats)

		r.Get("/settings", s.GetSettings)
		r.Get("/modules", s.ListModules)

		r.Post("/predictions", s.SubmitPrediction)
		r.Get("/predictions/mine", s.ListMyPredictions)
		r.Get("/predictions/received", s.ListReceivedPredictions)
		r.Delete("/predictions/{predictionId}", s.DeletePrediction)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.RequireAdmin)

			r.Get("/profiles", s.AdminListProfiles)
			r.Patch("/profiles/{profileId}", s.AdminUpdateProfile)

			r.Put("/settings/{key}", s.AdminUpdateSetting)

			r.Post("/modules", s.AdminAddModule)
			r.Put("/modules/{name}", s.AdminRenameModule)
			r.Delete("/modules/{name}", s.AdminDeleteModule)

			r.Get("/predictions", s.AdminListPredictions)
			r.Delete("/predictions", s.AdminResetPredictions)
			r.Get("/stats", s.AdminGlobalStats)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}
