package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// CommentRepository stores incident comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByIncident(ctx context.Context, incidentID string, includeInternal bool) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds the repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func insertComment(ctx context.Context, q rowQuerier, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (incident_id, author_id, content, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		comment.IncidentID,
		comment.AuthorID,
		comment.Content,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	return insertComment(ctx, r.pool, comment)
}

func (r *commentRepository) ListByIncident(ctx context.Context, incidentID string, includeInternal bool) ([]domain.Comment, error) {
	query := `
        SELECT id, incident_id, author_id, content, is_internal, created_at
        FROM comments WHERE incident_id=$1`
	if !includeInternal {
		query += ` AND is_internal = FALSE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.IncidentID,
			&comment.AuthorID,
			&comment.Content,
			&comment.IsInternal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
