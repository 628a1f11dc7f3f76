package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/query"
	"storefront/internal/repository"
)

var (
	ErrProductNotFound = domain.NewNotFoundError("product not found")
	ErrUnknownTag      = domain.NewValidationError(domain.CodeInvalidProduct, "brand or category does not exist")
)

// ProductInput is a validated product submission. Derived fields are always recomputed.
type ProductInput struct {
	Name        string
	Description string
	Brand       string
	Category    string
	Images      []string
	BasePrice   decimal.Decimal
	Variants    []domain.Variant
}

// ProductService manages the catalog
type ProductService interface {
	Create(ctx context.Context, in ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filters query.Filters) ([]*domain.Product, query.Page, error)
}

type productService struct {
	products repository.ProductRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository, logger *zap.Logger) ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &productService{
		products: products,
		logger:   logger.Named("products"),
		now:      time.Now,
	}
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	product := &domain.Product{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyProductInput(product, in)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, mapProductError(err, "failed to create product")
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.Int("variants", len(product.Variants)),
	)
	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, mapProductError(err, "failed to find product")
	}

	applyProductInput(product, in)
	product.UpdatedAt = s.now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, mapProductError(err, "failed to update product")
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return mapProductError(err, "failed to delete product")
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, mapProductError(err, "failed to get product")
	}
	return product, nil
}

func (s *productService) List(ctx context.Context, filters query.Filters) ([]*domain.Product, query.Page, error) {
	plan := query.Build(filters)
	products, total, err := s.products.List(ctx, plan)
	if err != nil {
		return nil, query.Page{}, fmt.Errorf("failed to list products: %w", err)
	}
	return products, query.NewPage(plan, total), nil
}

// applyProductInput copies the submission onto p and recomputes every derived price and stock value.
func applyProductInput(p *domain.Product, in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Brand = strings.TrimSpace(in.Brand)
	p.Category = strings.TrimSpace(in.Category)
	p.Images = nonEmptyStrings(in.Images)
	p.Price = in.BasePrice
	p.Variants = append([]domain.Variant(nil), in.Variants...)
	pricing.ApplyToProduct(p)
}

func validateProductInput(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidationError(domain.CodeInvalidProduct, "product name is required")
	}
	if strings.TrimSpace(in.Brand) == "" || strings.TrimSpace(in.Category) == "" {
		return domain.NewValidationError(domain.CodeInvalidProduct, "brand and category are required")
	}
	if in.BasePrice.IsNegative() {
		return domain.NewValidationError(domain.CodeInvalidProduct, "price must not be negative")
	}

	seen := make(map[int64]bool, len(in.Variants))
	for i, v := range in.Variants {
		if v.Price.IsNegative() || v.PromotionalPrice.IsNegative() || v.Weight.IsNegative() {
			return domain.NewValidationError(domain.CodeInvalidProduct,
				fmt.Sprintf("variant %d has a negative price or weight", i+1))
		}
		if v.StockTotal < 0 {
			return domain.NewValidationError(domain.CodeInvalidProduct,
				fmt.Sprintf("variant %d has negative stock", i+1))
		}
		if v.VariantID > 0 {
			if seen[v.VariantID] {
				return domain.NewValidationError(domain.CodeInvalidProduct,
					fmt.Sprintf("variant id %d is repeated", v.VariantID))
			}
			seen[v.VariantID] = true
		}
	}
	return nil
}

func mapProductError(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return ErrProductNotFound
	case errors.Is(err, repository.ErrUnknownTag):
		return ErrUnknownTag
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}

func nonEmptyStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
