package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// ServiceItemRepository encapsulates service catalog persistence.
type ServiceItemRepository interface {
	Create(ctx context.Context, item *domain.ServiceItem) error
	GetByID(ctx context.Context, id string) (*domain.ServiceItem, error)
	List(ctx context.Context, categoryID *string) ([]domain.ServiceItem, error)
}

type serviceItemRepository struct {
	pool *pgxpool.Pool
}

// NewServiceItemRepository instantiates the repository.
func NewServiceItemRepository(pool *pgxpool.Pool) ServiceItemRepository {
	return &serviceItemRepository{pool: pool}
}

func (r *serviceItemRepository) Create(ctx context.Context, item *domain.ServiceItem) error {
	const query = `
        INSERT INTO service_items (name, description, icon, base_priority, category_id, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		item.Name,
		item.Description,
		item.Icon,
		item.BasePriority,
		item.CategoryID,
		item.IsActive,
	).Scan(&item.ID)
}

func (r *serviceItemRepository) GetByID(ctx context.Context, id string) (*domain.ServiceItem, error) {
	const query = `
        SELECT id, name, description, icon, base_priority, category_id, is_active
        FROM service_items WHERE id=$1`
	var item domain.ServiceItem
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Icon,
		&item.BasePriority,
		&item.CategoryID,
		&item.IsActive,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *serviceItemRepository) List(ctx context.Context, categoryID *string) ([]domain.ServiceItem, error) {
	clauses := []string{"is_active"}
	args := []any{}
	if categoryID != nil {
		args = append(args, *categoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	query := fmt.Sprintf(`
        SELECT id, name, description, icon, base_priority, category_id, is_active
        FROM service_items WHERE %s ORDER BY name`, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceItem
	for rows.Next() {
		var item domain.ServiceItem
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Description,
			&item.Icon,
			&item.BasePriority,
			&item.CategoryID,
			&item.IsActive,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
