package predictionrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/promo-vote/predictions-api/internal/adapters/postgres"
	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/ports/out/predictionrepo"
)

const selectPrediction = `
	SELECT
		pr.external_id,
		v.external_id,
		t.external_id,
		pr.validated,
		pr.retakes,
		pr.votes,
		pr.created_at
	FROM predictions pr
	JOIN profiles v ON v.id = pr.voter_id
	JOIN profiles t ON t.id = pr.target_id
`

const orderPredictions = ` ORDER BY pr.created_at ASC, pr.external_id ASC`

// Repo is a Postgres implementation of predictionrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p predictionrepo.Prediction) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid prediction id: %w", err)
	}
	voterID, err := uuid.Parse(string(p.VoterID))
	if err != nil {
		return fmt.Errorf("invalid voter id: %w", err)
	}
	targetID, err := uuid.Parse(string(p.TargetID))
	if err != nil {
		return fmt.Errorf("invalid target id: %w", err)
	}
	var votes any
	if p.Votes != nil {
		b, err := json.Marshal(p.Votes)
		if err != nil {
			return fmt.Errorf("encode votes: %w", err)
		}
		votes = string(b)
	}

	ct, err := r.pool.Exec(ctx, `
		INSERT INTO predictions (external_id, voter_id, target_id, validated, retakes, votes, created_at)
		SELECT $1, v.id, t.id, $4, $5, $6::jsonb, $7
		FROM profiles v, profiles t
		WHERE v.external_id = $2 AND t.external_id = $3
	`,
		id,
		voterID,
		targetID,
		p.Validated,
		p.Retakes,
		votes,
		p.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "predictions_pair_unique":
				return predictionrepo.ErrAlreadyVoted
			case "predictions_external_id_unique":
				return predictionrepo.ErrAlreadyExists
			}
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("unknown voter or target profile")
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id domain.PredictionID) (predictionrepo.Prediction, error) {
	if r.pool == nil {
		return predictionrepo.Prediction{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return predictionrepo.Prediction{}, predictionrepo.ErrNotFound
	}
	return scanPrediction(r.pool.QueryRow(ctx, selectPrediction+`WHERE pr.external_id = $1`, uid))
}

func (r *Repo) GetByPair(ctx context.Context, voterID, targetID domain.ProfileID) (predictionrepo.Prediction, error) {
	if r.pool == nil {
		return predictionrepo.Prediction{}, errors.New("nil postgres pool")
	}
	vid, err := uuid.Parse(string(voterID))
	if err != nil {
		return predictionrepo.Prediction{}, predictionrepo.ErrNotFound
	}
	tid, err := uuid.Parse(string(targetID))
	if err != nil {
		return predictionrepo.Prediction{}, predictionrepo.ErrNotFound
	}
	return scanPrediction(r.pool.QueryRow(ctx,
		selectPrediction+`WHERE v.external_id = $1 AND t.external_id = $2`,
		vid, tid,
	))
}

func (r *Repo) ListByVoter(ctx context.Context, voterID domain.ProfileID) ([]predictionrepo.Prediction, error) {
	vid, err := uuid.Parse(string(voterID))
	if err != nil {
		return []predictionrepo.Prediction{}, nil
	}
	return r.list(ctx, selectPrediction+`WHERE v.external_id = $1`+orderPredictions, vid)
}

func (r *Repo) ListByTarget(ctx context.Context, targetID domain.ProfileID) ([]predictionrepo.Prediction, error) {
	tid, err := uuid.Parse(string(targetID))
	if err != nil {
		return []predictionrepo.Prediction{}, nil
	}
	return r.list(ctx, selectPrediction+`WHERE t.external_id = $1`+orderPredictions, tid)
}

func (r *Repo) ListAll(ctx context.Context) ([]predictionrepo.Prediction, error) {
	return r.list(ctx, selectPrediction+orderPredictions)
}

func (r *Repo) Delete(ctx context.Context, id domain.PredictionID, voterID domain.ProfileID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return predictionrepo.ErrNotFound
	}
	vid, err := uuid.Parse(string(voterID))
	if err != nil {
		return predictionrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM predictions pr
		USING profiles v
		WHERE v.id = pr.voter_id
		  AND pr.external_id = $1
		  AND v.external_id = $2
	`, uid, vid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return predictionrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteAll(ctx context.Context) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM predictions`)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (r *Repo) list(ctx context.Context, query string, args ...any) ([]predictionrepo.Prediction, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]predictionrepo.Prediction, 0)
	for rows.Next() {
		p, err := scanPrediction(rows)
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

func scanPrediction(row pgx.Row) (predictionrepo.Prediction, error) {
	var (
		externalID uuid.UUID
		voterID    uuid.UUID
		targetID   uuid.UUID
		validated  int
		retakes    int
		votes      []byte
		createdAt  time.Time
	)
	if err := row.Scan(&externalID, &voterID, &targetID, &validated, &retakes, &votes, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return predictionrepo.Prediction{}, predictionrepo.ErrNotFound
		}
		return predictionrepo.Prediction{}, err
	}
	p := predictionrepo.Prediction{
		ID:        domain.PredictionID(externalID.String()),
		VoterID:   domain.ProfileID(voterID.String()),
		TargetID:  domain.ProfileID(targetID.String()),
		Validated: validated,
		Retakes:   retakes,
		CreatedAt: createdAt.UTC(),
	}
	if len(votes) > 0 {
		if err := json.Unmarshal(votes, &p.Votes); err != nil {
			return predictionrepo.Prediction{}, fmt.Errorf("decode votes: %w", err)
		}
	}
	return p, nil
}
