package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// CategoryRepository encapsulates category and subcategory persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error
	GetSubcategoryByID(ctx context.Context, id string) (*domain.Subcategory, error)
	ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository instantiates the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, description, is_active)
        VALUES ($1,$2,$3)
        RETURNING id`
	return r.pool.QueryRow(ctx, query, category.Name, category.Description, category.IsActive).
		Scan(&category.ID)
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `SELECT id, name, description, is_active FROM categories WHERE id=$1`
	var category domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.IsActive,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	query := `SELECT id, name, description, is_active FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description, &category.IsActive); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error {
	const query = `
        INSERT INTO subcategories (category_id, name, description, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.pool.QueryRow(ctx, query, sub.CategoryID, sub.Name, sub.Description, sub.IsActive).
		Scan(&sub.ID)
}

func (r *categoryRepository) GetSubcategoryByID(ctx context.Context, id string) (*domain.Subcategory, error) {
	const query = `SELECT id, category_id, name, description, is_active FROM subcategories WHERE id=$1`
	var sub domain.Subcategory
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.CategoryID,
		&sub.Name,
		&sub.Description,
		&sub.IsActive,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *categoryRepository) ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	const query = `SELECT id, category_id, name, description, is_active FROM subcategories WHERE category_id=$1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Subcategory
	for rows.Next() {
		var sub domain.Subcategory
		if err := rows.Scan(&sub.ID, &sub.CategoryID, &sub.Name, &sub.Description, &sub.IsActive); err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}
