package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/ports/out/idempotency"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 255
)

// idempotentRequest tracks one request that carried an Idempotency-Key. The zero value
// is inert.
type idempotentRequest struct {
	s  *Server
	fp idempotency.Fingerprint
}

// beginIdempotent handles the replay half of idempotency:
//   - same actor+key+route+body: replay the stored response
//   - same actor+key+route, different body: 409 IDEMPOTENCY_KEY_REUSE
//
// It returns done=true when a response has already been written.
func (s *Server) beginIdempotent(w http.ResponseWriter, r *http.Request, sub domain.SubjectID, method, route string, body any) (idempotentRequest, bool) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" || s.Idem == nil {
		return idempotentRequest{}, false
	}
	if len(key) > maxIdempotencyKey {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid Idempotency-Key", map[string]any{
			idempotencyHeader: "must be at most 255 characters",
		})
		return idempotentRequest{}, true
	}
	ctx := r.Context()

	bodyHash, err := hashBody(body)
	if err != nil {
		writeServiceError(w, r, err)
		return idempotentRequest{}, true
	}
	claimFP := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: sub,
		Method:  method,
		Route:   route,
	}.Claim()
	claim, ok, err := s.Idem.Get(ctx, claimFP)
	if err != nil {
		writeServiceError(w, r, err)
		return idempotentRequest{}, true
	}
	if ok {
		if string(claim.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return idempotentRequest{}, true
		}
	} else if err := s.Idem.Put(ctx, claimFP, idempotency.Record{
		ContentType: "text/plain",
		Body:        []byte(bodyHash),
		CreatedAt:   s.clk.Now().UTC(),
	}); err != nil {
		writeServiceError(w, r, err)
		return idempotentRequest{}, true
	}

	respFP := claimFP.ForPayload(bodyHash)
	rec, ok, err := s.Idem.Get(ctx, respFP)
	if err != nil {
		writeServiceError(w, r, err)
		return idempotentRequest{}, true
	}
	if ok && rec.Replayable() {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return idempotentRequest{}, true
	}
	return idempotentRequest{s: s, fp: respFP}, false
}

// store saves a successful response for replay. Failures only cost the replay.
func (ir idempotentRequest) store(ctx context.Context, status int, payload any) {
	if ir.s == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	// Match writeJSON's encoder output byte for byte.
	b = append(b, '\n')
	if err := ir.s.Idem.Put(ctx, ir.fp, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   ir.s.clk.Now().UTC(),
	}); err != nil {
		slog.WarnContext(ctx, "idempotency record not stored", "error", err)
	}
}

func hashBody(body any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
