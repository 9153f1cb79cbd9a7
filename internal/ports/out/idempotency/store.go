package idempotency

import (
	"context"
	"strings"
	"time"

	"github.com/promo-vote/predictions-api/internal/domain"
)

// DefaultTTL is how long a stored response stays replayable.
const DefaultTTL = 24 * time.Hour

// Key is the Idempotency-Key header value.
type Key string

// Fingerprint scopes a stored record to one caller and one route.
//
// A fingerprint with an empty BodyHash is the claim on the key; its record body holds the
// hash of the first payload sent with that key. Fingerprints carrying a hash address the
// response stored for that payload.
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Claim returns the key-level fingerprint.
func (fp Fingerprint) Claim() Fingerprint {
	fp.BodyHash = ""
	return fp
}

// ForPayload returns the fingerprint of the response stored for bodyHash.
func (fp Fingerprint) ForPayload(bodyHash string) Fingerprint {
	fp.BodyHash = bodyHash
	return fp
}

type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Replayable reports whether the record holds a finished JSON response.
func (r Record) Replayable() bool {
	return r.StatusCode != 0 && strings.HasPrefix(r.ContentType, "application/json")
}

// Store persists idempotency records. Records older than the store's retention window
// read as absent.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
