package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// ChangeRequestRepository encapsulates change request persistence.
type ChangeRequestRepository interface {
	Create(ctx context.Context, change *domain.ChangeRequest) error
	ListByProblem(ctx context.Context, problemID string) ([]domain.ChangeRequest, error)
}

type changeRequestRepository struct {
	pool *pgxpool.Pool
}

// NewChangeRequestRepository instantiates the repository.
func NewChangeRequestRepository(pool *pgxpool.Pool) ChangeRequestRepository {
	return &changeRequestRepository{pool: pool}
}

func (r *changeRequestRepository) Create(ctx context.Context, change *domain.ChangeRequest) error {
	const query = `
        INSERT INTO change_requests (problem_id, requester_id, title, description, risk_level,
            status, scheduled_start, scheduled_end)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		change.ProblemID,
		change.RequesterID,
		change.Title,
		change.Description,
		change.RiskLevel,
		change.Status,
		change.ScheduledStart,
		change.ScheduledEnd,
	).Scan(&change.ID, &change.CreatedAt)
}

func (r *changeRequestRepository) ListByProblem(ctx context.Context, problemID string) ([]domain.ChangeRequest, error) {
	const query = `
        SELECT id, problem_id, requester_id, title, description, risk_level, status,
               scheduled_start, scheduled_end, created_at
        FROM change_requests WHERE problem_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChangeRequest
	for rows.Next() {
		var change domain.ChangeRequest
		if err := rows.Scan(
			&change.ID,
			&change.ProblemID,
			&change.RequesterID,
			&change.Title,
			&change.Description,
			&change.RiskLevel,
			&change.Status,
			&change.ScheduledStart,
			&change.ScheduledEnd,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
