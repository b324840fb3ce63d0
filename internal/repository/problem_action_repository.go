package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// ProblemActionFilter narrows the global action listing.
type ProblemActionFilter struct {
	AssigneeID *string
	Status     *domain.ProblemActionStatus
}

// ProblemActionRepository encapsulates countermeasure action persistence.
type ProblemActionRepository interface {
	Create(ctx context.Context, action *domain.ProblemAction) error
	Update(ctx context.Context, action *domain.ProblemAction) error
	GetByID(ctx context.Context, problemID, id string) (*domain.ProblemAction, error)
	ListByProblem(ctx context.Context, problemID string) ([]domain.ProblemAction, error)
	List(ctx context.Context, filter ProblemActionFilter) ([]domain.ProblemAction, error)
}

type problemActionRepository struct {
	pool *pgxpool.Pool
}

// NewProblemActionRepository instantiates the repository.
func NewProblemActionRepository(pool *pgxpool.Pool) ProblemActionRepository {
	return &problemActionRepository{pool: pool}
}

// Actions are selected with the assignee's display name joined in because
// every read path shows it.
const actionSelect = `
        SELECT a.id, a.problem_id, a.description, a.assignee_id,
               COALESCE(NULLIF(u.full_name, ''), u.email, 'Unknown'),
               a.due_date, a.status, a.created_at
        FROM problem_actions a
        LEFT JOIN users u ON u.id = a.assignee_id`

func (r *problemActionRepository) Create(ctx context.Context, action *domain.ProblemAction) error {
	const query = `
        INSERT INTO problem_actions (problem_id, description, assignee_id, due_date, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		action.ProblemID,
		action.Description,
		action.AssigneeID,
		action.DueDate,
		action.Status,
	).Scan(&action.ID, &action.CreatedAt)
}

func (r *problemActionRepository) Update(ctx context.Context, action *domain.ProblemAction) error {
	const query = `
        UPDATE problem_actions SET description=$1, assignee_id=$2, due_date=$3, status=$4
        WHERE id=$5 AND problem_id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		action.Description,
		action.AssigneeID,
		action.DueDate,
		action.Status,
		action.ID,
		action.ProblemID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *problemActionRepository) GetByID(ctx context.Context, problemID, id string) (*domain.ProblemAction, error) {
	query := actionSelect + ` WHERE a.id=$1 AND a.problem_id=$2`
	var action domain.ProblemAction
	if err := scanAction(r.pool.QueryRow(ctx, query, id, problemID), &action); err != nil {
		return nil, err
	}
	return &action, nil
}

func (r *problemActionRepository) ListByProblem(ctx context.Context, problemID string) ([]domain.ProblemAction, error) {
	query := actionSelect + ` WHERE a.problem_id=$1 ORDER BY a.due_date ASC NULLS LAST`
	rows, err := r.pool.Query(ctx, query, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActions(rows)
}

func (r *problemActionRepository) List(ctx context.Context, filter ProblemActionFilter) ([]domain.ProblemAction, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("a.assignee_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("a.status=$%d", len(args)))
	}
	query := fmt.Sprintf("%s WHERE %s ORDER BY a.due_date ASC NULLS LAST", actionSelect, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActions(rows)
}

func scanAction(row pgx.Row, action *domain.ProblemAction) error {
	return row.Scan(
		&action.ID,
		&action.ProblemID,
		&action.Description,
		&action.AssigneeID,
		&action.AssigneeName,
		&action.DueDate,
		&action.Status,
		&action.CreatedAt,
	)
}

func scanActions(rows pgx.Rows) ([]domain.ProblemAction, error) {
	var result []domain.ProblemAction
	for rows.Next() {
		var action domain.ProblemAction
		if err := scanAction(rows, &action); err != nil {
			return nil, err
		}
		result = append(result, action)
	}
	return result, rows.Err()
}
