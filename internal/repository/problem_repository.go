package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// ProblemRepository encapsulates problem persistence.
type ProblemRepository interface {
	Create(ctx context.Context, problem *domain.Problem) error
	Update(ctx context.Context, problem *domain.Problem) error
	GetByID(ctx context.Context, id string) (*domain.Problem, error)
	List(ctx context.Context, status *domain.ProblemStatus) ([]domain.Problem, error)
}

type problemRepository struct {
	pool *pgxpool.Pool
}

// NewProblemRepository instantiates the repository.
func NewProblemRepository(pool *pgxpool.Pool) ProblemRepository {
	return &problemRepository{pool: pool}
}

const problemColumns = `id, title, description, function_failure, failure_mode, five_whys,
       rcfa_analysis, root_cause, countermeasure, status, creator_id, created_at, resolved_at`

func (r *problemRepository) Create(ctx context.Context, problem *domain.Problem) error {
	const query = `
        INSERT INTO problems (title, description, function_failure, failure_mode, five_whys,
            rcfa_analysis, root_cause, countermeasure, status, creator_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		problem.Title,
		problem.Description,
		problem.FunctionFailure,
		problem.FailureMode,
		problem.FiveWhys,
		problem.RCFAAnalysis,
		problem.RootCause,
		problem.Countermeasure,
		problem.Status,
		problem.CreatorID,
	).Scan(&problem.ID, &problem.CreatedAt)
}

func (r *problemRepository) Update(ctx context.Context, problem *domain.Problem) error {
	const query = `
        UPDATE problems SET title=$1, description=$2, function_failure=$3, failure_mode=$4,
            five_whys=$5, rcfa_analysis=$6, root_cause=$7, countermeasure=$8, status=$9, resolved_at=$10
        WHERE id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		problem.Title,
		problem.Description,
		problem.FunctionFailure,
		problem.FailureMode,
		problem.FiveWhys,
		problem.RCFAAnalysis,
		problem.RootCause,
		problem.Countermeasure,
		problem.Status,
		problem.ResolvedAt,
		problem.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *problemRepository) GetByID(ctx context.Context, id string) (*domain.Problem, error) {
	query := fmt.Sprintf(`SELECT %s FROM problems WHERE id=$1`, problemColumns)
	var problem domain.Problem
	if err := scanProblem(r.pool.QueryRow(ctx, query, id), &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}

func (r *problemRepository) List(ctx context.Context, status *domain.ProblemStatus) ([]domain.Problem, error) {
	base := fmt.Sprintf(`SELECT %s FROM problems`, problemColumns)
	clauses := []string{}
	args := []any{}
	if status != nil {
		args = append(args, *status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Problem
	for rows.Next() {
		var problem domain.Problem
		if err := scanProblem(rows, &problem); err != nil {
			return nil, err
		}
		result = append(result, problem)
	}
	return result, rows.Err()
}

func scanProblem(row pgx.Row, problem *domain.Problem) error {
	return row.Scan(
		&problem.ID,
		&problem.Title,
		&problem.Description,
		&problem.FunctionFailure,
		&problem.FailureMode,
		&problem.FiveWhys,
		&problem.RCFAAnalysis,
		&problem.RootCause,
		&problem.Countermeasure,
		&problem.Status,
		&problem.CreatorID,
		&problem.CreatedAt,
		&problem.ResolvedAt,
	)
}
