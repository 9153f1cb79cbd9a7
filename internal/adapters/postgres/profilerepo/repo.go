package profilerepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/promo-vote/predictions-api/internal/adapters/postgres"
	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
)

const selectProfile = `
	SELECT
		p.external_id,
		p.subject_sub,
		p.full_name,
		p.registration_id,
		p.email,
		p.group_name,
		p.subgroup_name,
		p.role,
		p.is_active,
		p.created_at,
		p.updated_at
	FROM profiles p
`

// Repo is a Postgres implementation of profilerepo.Repository.
// Subjects are scoped to the token issuer.
type Repo struct {
	pool   *pgxpool.Pool
	issuer string
}

func NewRepo(pool *pgxpool.Pool, jwtIssuer string) *Repo {
	return &Repo{pool: pool, issuer: jwtIssuer}
}

func (r *Repo) Create(ctx context.Context, p profilerepo.Profile) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO profiles (
			external_id,
			subject_iss,
			subject_sub,
			full_name,
			registration_id,
			email,
			group_name,
			subgroup_name,
			role,
			is_active,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		id,
		r.issuer,
		string(p.Subject),
		p.FullName,
		nullableRegistrationID(p.RegistrationID),
		p.Email,
		p.Group,
		p.Subgroup,
		string(roleOrDefault(p.Role)),
		p.Active,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			// Determine which unique constraint was violated.
			switch pe.ConstraintName {
			case "profiles_subject_unique":
				return profilerepo.ErrSubjectAlreadyBound
			case "profiles_registration_unique":
				return profilerepo.ErrRegistrationClaimed
			case "profiles_external_id_unique":
				return profilerepo.ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p profilerepo.Profile) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return profilerepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := scanProfile(tx.QueryRow(ctx, selectProfile+`WHERE p.external_id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		// Subject and registration bindings are immutable.
		if existing.Subject != p.Subject {
			return profilerepo.ErrSubjectAlreadyBound
		}
		if existing.RegistrationID != p.RegistrationID {
			return profilerepo.ErrRegistrationClaimed
		}

		ct, err := tx.Exec(ctx, `
			UPDATE profiles
			SET full_name = $2,
			    email = $3,
			    group_name = $4,
			    subgroup_name = $5,
			    role = $6,
			    is_active = $7,
			    updated_at = $8
			WHERE external_id = $1
		`,
			id,
			p.FullName,
			p.Email,
			p.Group,
			p.Subgroup,
			string(roleOrDefault(p.Role)),
			p.Active,
			p.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return profilerepo.ErrNotFound
		}
		return nil
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.ProfileID) (profilerepo.Profile, error) {
	if r.pool == nil {
		return profilerepo.Profile{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	return scanProfile(r.pool.QueryRow(ctx, selectProfile+`WHERE p.external_id = $1`, uid))
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (profilerepo.Profile, error) {
	if r.pool == nil {
		return profilerepo.Profile{}, errors.New("nil postgres pool")
	}
	return scanProfile(r.pool.QueryRow(ctx,
		selectProfile+`WHERE p.subject_iss = $1 AND p.subject_sub = $2`,
		r.issuer, string(subject),
	))
}

func (r *Repo) GetByRegistrationID(ctx context.Context, id domain.RegistrationID) (profilerepo.Profile, error) {
	if r.pool == nil {
		return profilerepo.Profile{}, errors.New("nil postgres pool")
	}
	if id == "" {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	return scanProfile(r.pool.QueryRow(ctx, selectProfile+`WHERE p.registration_id = $1`, string(id)))
}

func (r *Repo) List(ctx context.Context, includeInactive bool) ([]profilerepo.Profile, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	where := ""
	if !includeInactive {
		where = "WHERE p.is_active = true"
	}
	rows, err := r.pool.Query(ctx, selectProfile+where+`
		ORDER BY lower(p.full_name) ASC, p.external_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]profilerepo.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanProfile(row pgx.Row) (profilerepo.Profile, error) {
	var (
		externalID     uuid.UUID
		sub            string
		fullName       string
		registrationID *string
		email          string
		group          *string
		subgroup       *string
		role           string
		isActive       bool
		createdAt      time.Time
		updatedAt      time.Time
	)
	if err := row.Scan(
		&externalID,
		&sub,
		&fullName,
		&registrationID,
		&email,
		&group,
		&subgroup,
		&role,
		&isActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profilerepo.Profile{}, profilerepo.ErrNotFound
		}
		return profilerepo.Profile{}, err
	}
	p := profilerepo.Profile{
		ID:        domain.ProfileID(externalID.String()),
		Subject:   domain.SubjectID(sub),
		FullName:  fullName,
		Email:     email,
		Group:     group,
		Subgroup:  subgroup,
		Role:      domain.Role(role),
		Active:    isActive,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}
	if registrationID != nil {
		p.RegistrationID = domain.RegistrationID(*registrationID)
	}
	return p, nil
}

func nullableRegistrationID(id domain.RegistrationID) *string {
	if id == "" {
		return nil
	}
	s := string(id)
	return &s
}

func roleOrDefault(r domain.Role) domain.Role {
	if r == "" {
		return domain.RoleStudent
	}
	return r
}
