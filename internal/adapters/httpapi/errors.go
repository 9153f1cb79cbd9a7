package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/promo-vote/predictions-api/internal/app/predictions"
	"github.com/promo-vote/predictions-api/internal/app/profiles"
	"github.com/promo-vote/predictions-api/internal/app/settings"
	"github.com/promo-vote/predictions-api/internal/app/signup"
	"github.com/promo-vote/predictions-api/internal/platform/submitlock"
)

type errorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er errorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

// writeServiceError maps application errors onto the error envelope. Anything
// unrecognized is logged and reported as a 500 without leaking its text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		se  *signup.Error
		pe  *profiles.Error
		pre *predictions.Error
		ste *settings.Error
	)
	switch {
	case errors.Is(err, submitlock.ErrInProgress):
		writeError(w, r, http.StatusConflict, "SUBMISSION_IN_PROGRESS", "a previous submission is still being processed", nil)
	case errors.As(err, &se):
		writeError(w, r, se.Status, se.Code, se.Message, se.Details)
	case errors.As(err, &pe):
		writeError(w, r, pe.Status, pe.Code, pe.Message, pe.Details)
	case errors.As(err, &pre):
		writeError(w, r, pre.Status, pre.Code, pre.Message, pre.Details)
	case errors.As(err, &ste):
		writeError(w, r, ste.Status, ste.Code, ste.Message, ste.Details)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}
