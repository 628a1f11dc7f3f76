package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/query"
)

var (
	ErrBrandNotFound      = errors.New("brand not found")
	ErrBrandAlreadyExists = errors.New("brand with this name already exists")
	ErrBrandInUse         = errors.New("brand is referenced by products")
)

var brandColumns = query.Columns{
	Search:    "name",
	CreatedAt: "created_at",
	ID:        "id",
}

// BrandRepository defines the interface for brand data access
type BrandRepository interface {
	Create(ctx context.Context, brand *domain.Brand) error
	Update(ctx context.Context, brand *domain.Brand) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Brand, error)
	List(ctx context.Context, plan query.Plan) ([]*domain.Brand, int, error)
}

type brandRepository struct {
	db *sql.DB
}

// NewBrandRepository creates a new instance of BrandRepository
func NewBrandRepository(db *sql.DB) BrandRepository {
	return &brandRepository{db: db}
}

func (r *brandRepository) Create(ctx context.Context, brand *domain.Brand) error {
	query := `
		INSERT INTO brands (id, name, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, brand.ID, brand.Name, brand.ImageURL, brand.CreatedAt, brand.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrBrandAlreadyExists
		}
		return fmt.Errorf("failed to create brand: %w", err)
	}

	return nil
}

func (r *brandRepository) Update(ctx context.Context, brand *domain.Brand) error {
	query := `UPDATE brands SET name = $2, image_url = $3, updated_at = $4 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, brand.ID, brand.Name, brand.ImageURL, brand.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrBrandAlreadyExists
		}
		return fmt.Errorf("failed to update brand: %w", err)
	}

	return expectOneRow(result, ErrBrandNotFound)
}

func (r *brandRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrBrandInUse
		}
		return fmt.Errorf("failed to delete brand: %w", err)
	}

	return expectOneRow(result, ErrBrandNotFound)
}

func (r *brandRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	query := `SELECT id, name, image_url, created_at, updated_at FROM brands WHERE id = $1`

	brand := &domain.Brand{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&brand.ID,
		&brand.Name,
		&brand.ImageURL,
		&brand.CreatedAt,
		&brand.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBrandNotFound
		}
		return nil, fmt.Errorf("failed to find brand by ID: %w", err)
	}

	return brand, nil
}

func (r *brandRepository) List(ctx context.Context, plan query.Plan) ([]*domain.Brand, int, error) {
	clause := plan.Clause(brandColumns)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM brands %s", clause.Where)
	if err := r.db.QueryRowContext(ctx, countQuery, clause.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count brands: %w", err)
	}

	limit, args := plan.LimitOffset(clause)
	listQuery := fmt.Sprintf(`
		SELECT id, name, image_url, created_at, updated_at
		FROM brands
		%s
		%s
		%s
	`, clause.Where, clause.OrderBy, limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	brands := []*domain.Brand{}
	for rows.Next() {
		brand := &domain.Brand{}
		if err := rows.Scan(&brand.ID, &brand.Name, &brand.ImageURL, &brand.CreatedAt, &brand.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, brand)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating brands: %w", err)
	}

	return brands, total, nil
}
