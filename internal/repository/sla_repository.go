package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// SLARepository encapsulates SLA policy persistence.
type SLARepository interface {
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
	List(ctx context.Context) ([]domain.SLAPolicy, error)
	GetByPriority(ctx context.Context, priority domain.IncidentPriority) (*domain.SLAPolicy, error)
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository instantiates the repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

func (r *slaRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (name, priority, response_time_minutes, resolution_time_minutes)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		policy.Name,
		policy.Priority,
		policy.ResponseTimeMinutes,
		policy.ResolutionTimeMinutes,
	).Scan(&policy.ID)
}

func (r *slaRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        UPDATE sla_policies SET name=$1, priority=$2, response_time_minutes=$3, resolution_time_minutes=$4
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		policy.Name,
		policy.Priority,
		policy.ResponseTimeMinutes,
		policy.ResolutionTimeMinutes,
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT id, name, priority, response_time_minutes, resolution_time_minutes
        FROM sla_policies ORDER BY priority`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.Name,
			&policy.Priority,
			&policy.ResponseTimeMinutes,
			&policy.ResolutionTimeMinutes,
		); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}

func (r *slaRepository) GetByPriority(ctx context.Context, priority domain.IncidentPriority) (*domain.SLAPolicy, error) {
	const query = `
        SELECT id, name, priority, response_time_minutes, resolution_time_minutes
        FROM sla_policies WHERE priority=$1`
	var policy domain.SLAPolicy
	if err := r.pool.QueryRow(ctx, query, priority).Scan(
		&policy.ID,
		&policy.Name,
		&policy.Priority,
		&policy.ResponseTimeMinutes,
		&policy.ResolutionTimeMinutes,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}
