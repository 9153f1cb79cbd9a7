package registry

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/ports/out/registry"
)

// Registry answers eligibility through the check_student_eligibility SQL function.
type Registry struct {
	pool *pgxpool.Pool
}

func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool}
}

func (r *Registry) CheckEligibility(ctx context.Context, id domain.RegistrationID) (registry.Eligibility, error) {
	if r.pool == nil {
		return registry.Eligibility{}, errors.New("nil postgres pool")
	}
	var e registry.Eligibility
	err := r.pool.QueryRow(ctx,
		`SELECT is_valid, is_available FROM check_student_eligibility($1)`,
		string(id),
	).Scan(&e.Valid, &e.Available)
	if err != nil {
		// No row means the id is not on the allow-list.
		if errors.Is(err, pgx.ErrNoRows) {
			return registry.Eligibility{}, nil
		}
		return registry.Eligibility{}, err
	}
	return e.Normalize(), nil
}

// Allow adds registration ids to the allow-list.
func (r *Registry) Allow(ctx context.Context, entries ...domain.RosterEntry) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(ctx, `
				INSERT INTO allowed_users (registration_id, full_name)
				VALUES ($1, $2)
				ON CONFLICT (registration_id) DO UPDATE SET full_name = EXCLUDED.full_name
			`, string(e.RegistrationID), e.FullName); err != nil {
				return err
			}
		}
		return nil
	})
}
