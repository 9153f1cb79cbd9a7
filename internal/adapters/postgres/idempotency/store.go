package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	clockport "github.com/promo-vote/predictions-api/internal/ports/out/clock"
	"github.com/promo-vote/predictions-api/internal/ports/out/idempotency"
)

// Store keeps idempotency records in the idempotency_keys table, scoped by token issuer
// so subjects from different issuers never collide. Expired rows read as absent until
// Prune removes them.
type Store struct {
	pool   *pgxpool.Pool
	issuer string
	clk    clockport.Clock
	ttl    time.Duration
}

// NewStore returns a store whose records expire after ttl; zero disables expiry.
func NewStore(pool *pgxpool.Pool, jwtIssuer string, clk clockport.Clock, ttl time.Duration) *Store {
	return &Store{pool: pool, issuer: jwtIssuer, clk: clk, ttl: ttl}
}

var errNilPool = errors.New("nil postgres pool")

type recordRow struct {
	StatusCode  int       `db:"status_code"`
	ContentType string    `db:"content_type"`
	Body        []byte    `db:"body"`
	CreatedAt   time.Time `db:"created_at"`
}

func (s *Store) cutoff() time.Time {
	if s.ttl <= 0 || s.clk == nil {
		return time.Time{}
	}
	return s.clk.Now().Add(-s.ttl).UTC()
}

func (s *Store) args(fp idempotency.Fingerprint) pgx.NamedArgs {
	return pgx.NamedArgs{
		"key":       string(fp.Key),
		"iss":       s.issuer,
		"sub":       string(fp.Subject),
		"method":    fp.Method,
		"route":     fp.Route,
		"body_hash": fp.BodyHash,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errNilPool
	}
	args := s.args(fp)
	args["cutoff"] = s.cutoff()

	rows, err := s.pool.Query(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = @key
		  AND subject_iss = @iss
		  AND subject_sub = @sub
		  AND method = @method
		  AND route = @route
		  AND body_hash = @body_hash
		  AND created_at >= @cutoff
	`, args)
	if err != nil {
		return idempotency.Record{}, false, err
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[recordRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, err
	}
	return idempotency.Record{
		StatusCode:  row.StatusCode,
		ContentType: row.ContentType,
		Body:        row.Body,
		CreatedAt:   row.CreatedAt.UTC(),
	}, true, nil
}

// Put upserts the record; a later Put for the same fingerprint replaces the response.
func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errNilPool
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() && s.clk != nil {
		createdAt = s.clk.Now()
	}
	args := s.args(fp)
	args["status_code"] = rec.StatusCode
	args["content_type"] = rec.ContentType
	args["body"] = rec.Body
	args["created_at"] = createdAt.UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key, subject_iss, subject_sub, method, route, body_hash,
			status_code, content_type, body, created_at
		) VALUES (
			@key, @iss, @sub, @method, @route, @body_hash,
			@status_code, @content_type, @body, @created_at
		)
		ON CONFLICT (idempotency_key, subject_iss, subject_sub, method, route, body_hash)
		DO UPDATE SET
			status_code  = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body         = EXCLUDED.body,
			created_at   = EXCLUDED.created_at
	`, args)
	return err
}

// Prune deletes expired records and returns how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, errNilPool
	}
	cutoff := s.cutoff()
	if cutoff.IsZero() {
		return 0, nil
	}
	ct, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < @cutoff`, pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
