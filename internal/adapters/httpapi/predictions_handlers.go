package httpapi

import (
	"net/http"
	"strings"

	"github.com/promo-vote/predictions-api/internal/app/predictions"
	"github.com/promo-vote/predictions-api/internal/domain"
)

const routeSubmitPrediction = "/predictions"

// SubmitPrediction records a prediction. When an Idempotency-Key header is sent, a retry
// with the same body replays the stored 201 and a different body is rejected.
func (s *Server) SubmitPrediction(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	var body submitPredictionRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.TargetID = strings.TrimSpace(body.TargetID)

	idem, done := s.beginIdempotent(w, r, sub, http.MethodPost, routeSubmitPrediction, body)
	if done {
		return
	}

	in := predictions.SubmitInput{
		TargetID:  domain.ProfileID(body.TargetID),
		Validated: body.Validated,
		Retakes:   body.Retakes,
	}
	if body.Votes != nil {
		in.Votes = make(map[string]domain.Verdict, len(body.Votes))
		for k, v := range body.Votes {
			in.Votes[k] = domain.Verdict(v)
		}
	}
	p, err := s.Predictions.Submit(r.Context(), sub, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := predictionResponse{Prediction: predictionFromDomain(p)}
	idem.store(r.Context(), http.StatusCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) ListMyPredictions(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	ps, err := s.Predictions.ListMine(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictionsFromDomain(ps))
}

func (s *Server) ListReceivedPredictions(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	ps, err := s.Predictions.ListReceived(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictionsFromDomain(ps))
}

func (s *Server) DeletePrediction(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	id := domain.PredictionID(pathParam(r, "predictionId"))
	if err := s.Predictions.Delete(r.Context(), sub, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
