package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/query"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrUnknownTag      = errors.New("product references an unknown brand or category")
)

var productColumns = query.Columns{
	Search:    "name",
	Category:  "category",
	Brand:     "brand",
	Price:     "price",
	CreatedAt: "created_at",
	ID:        "id",
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, plan query.Plan) ([]*domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productSelect = `
	SELECT id, name, description, brand, category, images, price, stock, created_at, updated_at
	FROM products
`

// Create inserts a product and its variants in one transaction
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	images, err := json.Marshal(imagesOrEmpty(product.Images))
	if err != nil {
		return fmt.Errorf("failed to encode product images: %w", err)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, name, description, brand, category, images, price, stock, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			product.ID,
			product.Name,
			product.Description,
			product.Brand,
			product.Category,
			images,
			product.Price,
			product.Stock,
			product.CreatedAt,
			product.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUnknownTag
			}
			return fmt.Errorf("failed to create product: %w", err)
		}

		return insertVariants(ctx, tx, product.ID, product.Variants)
	})
}

// Update replaces the product row and its full variant list
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	images, err := json.Marshal(imagesOrEmpty(product.Images))
	if err != nil {
		return fmt.Errorf("failed to encode product images: %w", err)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET name = $2, description = $3, brand = $4, category = $5,
			    images = $6, price = $7, stock = $8, updated_at = $9
			WHERE id = $1
		`,
			product.ID,
			product.Name,
			product.Description,
			product.Brand,
			product.Category,
			images,
			product.Price,
			product.Stock,
			product.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUnknownTag
			}
			return fmt.Errorf("failed to update product: %w", err)
		}
		if err := expectOneRow(result, ErrProductNotFound); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM product_variants WHERE product_id = $1`, product.ID); err != nil {
			return fmt.Errorf("failed to clear product variants: %w", err)
		}
		return insertVariants(ctx, tx, product.ID, product.Variants)
	})
}

// Delete removes a product; variants go with it through ON DELETE CASCADE
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

// FindByID retrieves a product with its variants
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	if err := r.attachVariants(ctx, []*domain.Product{product}); err != nil {
		return nil, err
	}

	return product, nil
}

// List retrieves one page of products matching the plan, with variants
func (r *productRepository) List(ctx context.Context, plan query.Plan) ([]*domain.Product, int, error) {
	clause := plan.Clause(productColumns)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", clause.Where)
	if err := r.db.QueryRowContext(ctx, countQuery, clause.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	limit, args := plan.LimitOffset(clause)
	listQuery := strings.Join([]string{productSelect, clause.Where, clause.OrderBy, limit}, "\n")

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	if err := r.attachVariants(ctx, products); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) attachVariants(ctx context.Context, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, 0, len(products))
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		ids = append(ids, p.ID.String())
		byID[p.ID] = p
		p.Variants = []domain.Variant{}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, variant_id, sku, label, color, price, promotional_price,
		       effective_price, stock_total, image_url, visible, weight
		FROM product_variants
		WHERE product_id = ANY($1::uuid[])
		ORDER BY product_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load product variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID uuid.UUID
		var v domain.Variant
		if err := rows.Scan(
			&productID,
			&v.VariantID,
			&v.SKU,
			&v.Label,
			&v.Color,
			&v.Price,
			&v.PromotionalPrice,
			&v.EffectivePrice,
			&v.StockTotal,
			&v.ImageURL,
			&v.Visible,
			&v.Weight,
		); err != nil {
			return fmt.Errorf("failed to scan product variant: %w", err)
		}
		if p, ok := byID[productID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating product variants: %w", err)
	}
	return nil
}

func insertVariants(ctx context.Context, tx *sql.Tx, productID uuid.UUID, variants []domain.Variant) error {
	for position, v := range variants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_variants (
				product_id, position, variant_id, sku, label, color, price, promotional_price,
				effective_price, stock_total, image_url, visible, weight
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			productID,
			position,
			v.VariantID,
			v.SKU,
			v.Label,
			v.Color,
			v.Price,
			v.PromotionalPrice,
			v.EffectivePrice,
			v.StockTotal,
			v.ImageURL,
			v.Visible,
			v.Weight,
		)
		if err != nil {
			return fmt.Errorf("failed to insert product variant: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var images []byte
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Brand,
		&product.Category,
		&images,
		&product.Price,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(images, &product.Images); err != nil {
		return nil, fmt.Errorf("failed to decode product images: %w", err)
	}
	product.Images = imagesOrEmpty(product.Images)
	return product, nil
}

func imagesOrEmpty(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
