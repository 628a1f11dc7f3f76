package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/query"
	"storefront/internal/repository"
)

var (
	ErrCategoryNotFound = domain.NewNotFoundError("category not found")
	ErrCategoryExists   = domain.NewConflictError(domain.CodeAlreadyExists, "a category with this name already exists")
	ErrCategoryInUse    = domain.NewConflictError(domain.CodeTagInUse, "category is used by products")
	ErrBrandNotFound    = domain.NewNotFoundError("brand not found")
	ErrBrandExists      = domain.NewConflictError(domain.CodeAlreadyExists, "a brand with this name already exists")
	ErrBrandInUse       = domain.NewConflictError(domain.CodeTagInUse, "brand is used by products")

	errTagNameRequired = domain.NewValidationError(domain.CodeMissingInput, "name is required")
)

// TagService manages categories and brands
type TagService interface {
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context, filters query.Filters) ([]*domain.Category, query.Page, error)

	CreateBrand(ctx context.Context, name, imageURL string) (*domain.Brand, error)
	UpdateBrand(ctx context.Context, id uuid.UUID, name, imageURL string) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, id uuid.UUID) error
	ListBrands(ctx context.Context, filters query.Filters) ([]*domain.Brand, query.Page, error)
}

type tagService struct {
	categories repository.CategoryRepository
	brands     repository.BrandRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewTagService creates a new instance of TagService
func NewTagService(categories repository.CategoryRepository, brands repository.BrandRepository, logger *zap.Logger) TagService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &tagService{
		categories: categories,
		brands:     brands,
		logger:     logger.Named("tags"),
		now:        time.Now,
	}
}

func (s *tagService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errTagNameRequired
	}

	now := s.now().UTC()
	category := &domain.Category{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, mapCategoryError(err, "failed to create category")
	}
	return category, nil
}

func (s *tagService) UpdateCategory(ctx context.Context, id uuid.UUID, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errTagNameRequired
	}

	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, mapCategoryError(err, "failed to find category")
	}

	category.Name = name
	category.UpdatedAt = s.now().UTC()
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, mapCategoryError(err, "failed to update category")
	}
	return category, nil
}

func (s *tagService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return mapCategoryError(err, "failed to delete category")
	}
	s.logger.Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

func (s *tagService) ListCategories(ctx context.Context, filters query.Filters) ([]*domain.Category, query.Page, error) {
	plan := query.Build(filters)
	categories, total, err := s.categories.List(ctx, plan)
	if err != nil {
		return nil, query.Page{}, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, query.NewPage(plan, total), nil
}

func (s *tagService) CreateBrand(ctx context.Context, name, imageURL string) (*domain.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errTagNameRequired
	}

	now := s.now().UTC()
	brand := &domain.Brand{
		ID:        uuid.New(),
		Name:      name,
		ImageURL:  strings.TrimSpace(imageURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.brands.Create(ctx, brand); err != nil {
		return nil, mapBrandError(err, "failed to create brand")
	}
	return brand, nil
}

func (s *tagService) UpdateBrand(ctx context.Context, id uuid.UUID, name, imageURL string) (*domain.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errTagNameRequired
	}

	brand, err := s.brands.FindByID(ctx, id)
	if err != nil {
		return nil, mapBrandError(err, "failed to find brand")
	}

	brand.Name = name
	brand.ImageURL = strings.TrimSpace(imageURL)
	brand.UpdatedAt = s.now().UTC()
	if err := s.brands.Update(ctx, brand); err != nil {
		return nil, mapBrandError(err, "failed to update brand")
	}
	return brand, nil
}

func (s *tagService) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	if err := s.brands.Delete(ctx, id); err != nil {
		return mapBrandError(err, "failed to delete brand")
	}
	s.logger.Info("Brand deleted", zap.String("brand_id", id.String()))
	return nil
}

func (s *tagService) ListBrands(ctx context.Context, filters query.Filters) ([]*domain.Brand, query.Page, error) {
	plan := query.Build(filters)
	brands, total, err := s.brands.List(ctx, plan)
	if err != nil {
		return nil, query.Page{}, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, query.NewPage(plan, total), nil
}

func mapCategoryError(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrCategoryNotFound):
		return ErrCategoryNotFound
	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		return ErrCategoryExists
	case errors.Is(err, repository.ErrCategoryInUse):
		return ErrCategoryInUse
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}

func mapBrandError(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrBrandNotFound):
		return ErrBrandNotFound
	case errors.Is(err, repository.ErrBrandAlreadyExists):
		return ErrBrandExists
	case errors.Is(err, repository.ErrBrandInUse):
		return ErrBrandInUse
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
