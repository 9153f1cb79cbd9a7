package idempotency

import (
	"context"
	"sync"
	"time"

	clockport "github.com/promo-vote/predictions-api/internal/ports/out/clock"
	"github.com/promo-vote/predictions-api/internal/ports/out/idempotency"
)

// Store is an in-memory idempotency.Store, safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	records map[idempotency.Fingerprint]idempotency.Record
	clk     clockport.Clock
	ttl     time.Duration
}

// NewStore returns a store whose records expire after ttl; zero disables expiry.
func NewStore(clk clockport.Clock, ttl time.Duration) *Store {
	return &Store{
		records: make(map[idempotency.Fingerprint]idempotency.Record),
		clk:     clk,
		ttl:     ttl,
	}
}

func (s *Store) expired(rec idempotency.Record) bool {
	return s.ttl > 0 && s.clk != nil && s.clk.Now().Sub(rec.CreatedAt) > s.ttl
}

func (s *Store) Get(_ context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[fp]
	if !ok || s.expired(rec) {
		return idempotency.Record{}, false, nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(_ context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if rec.CreatedAt.IsZero() && s.clk != nil {
		rec.CreatedAt = s.clk.Now()
	}
	rec.Body = append([]byte(nil), rec.Body...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[fp] = rec
	return nil
}

// Prune drops expired records and returns how many were removed.
func (s *Store) Prune(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for fp, rec := range s.records {
		if s.expired(rec) {
			delete(s.records, fp)
			n++
		}
	}
	return n, nil
}
