package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/query"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func productInput(variants ...domain.Variant) ProductInput {
	return ProductInput{
		Name:      "  Remera ",
		Brand:     "Acme",
		Category:  "Ropa",
		Images:    []string{"https://img/1.png", " ", "https://img/2.png"},
		BasePrice: dec(999),
		Variants:  variants,
	}
}

func TestProductCreateDerivesPriceAndStock(t *testing.T) {
	repo := newMockProductRepository("Acme", "Ropa")
	svc := NewProductService(repo, nil)

	product, err := svc.Create(context.Background(), productInput(
		domain.Variant{Label: "S", Price: dec(100), StockTotal: 3, EffectivePrice: dec(1)},
		domain.Variant{Label: "M", Price: dec(100), PromotionalPrice: dec(80), StockTotal: 0},
	))
	require.NoError(t, err)

	assert.Equal(t, "Remera", product.Name)
	assert.Equal(t, []string{"https://img/1.png", "https://img/2.png"}, product.Images)
	assert.Equal(t, 3, product.Stock)
	assert.True(t, dec(80).Equal(product.Price))
	assert.True(t, dec(100).Equal(product.Variants[0].EffectivePrice), "client-sent effective price must be recomputed")
	assert.Equal(t, int64(1), product.Variants[0].VariantID)
	assert.Equal(t, int64(2), product.Variants[1].VariantID)

	stored, err := svc.Get(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Stock, stored.Stock)
}

func TestProductCreateWithoutVariantsGetsPlaceholder(t *testing.T) {
	svc := NewProductService(newMockProductRepository("Acme", "Ropa"), nil)

	product, err := svc.Create(context.Background(), productInput())
	require.NoError(t, err)
	require.Len(t, product.Variants, 1)
	assert.Equal(t, pricing.PlaceholderLabel, product.Variants[0].Label)
	assert.True(t, dec(999).Equal(product.Price))
	assert.Equal(t, 0, product.Stock)
}

func TestProductValidation(t *testing.T) {
	svc := NewProductService(newMockProductRepository("Acme", "Ropa"), nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*ProductInput)
	}{
		{"missing name", func(in *ProductInput) { in.Name = " " }},
		{"missing brand", func(in *ProductInput) { in.Brand = "" }},
		{"negative base price", func(in *ProductInput) { in.BasePrice = dec(-1) }},
		{"negative variant price", func(in *ProductInput) {
			in.Variants = []domain.Variant{{Price: dec(-5)}}
		}},
		{"negative promo", func(in *ProductInput) {
			in.Variants = []domain.Variant{{Price: dec(5), PromotionalPrice: dec(-5)}}
		}},
		{"negative stock", func(in *ProductInput) {
			in.Variants = []domain.Variant{{Price: dec(5), StockTotal: -1}}
		}},
		{"repeated variant id", func(in *ProductInput) {
			in.Variants = []domain.Variant{{VariantID: 2, Price: dec(5)}, {VariantID: 2, Price: dec(6)}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := productInput()
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			derr, ok := domain.AsError(err)
			require.True(t, ok, "expected a domain error, got %v", err)
			assert.Equal(t, domain.KindValidation, derr.Kind)
			assert.Equal(t, domain.CodeInvalidProduct, derr.Code)
		})
	}
}

func TestProductUnknownTagAndMissingProduct(t *testing.T) {
	svc := NewProductService(newMockProductRepository("Acme"), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, productInput())
	assert.ErrorIs(t, err, ErrUnknownTag)

	_, err = svc.Update(ctx, uuid.New(), productInput())
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, uuid.New()), ErrProductNotFound)
}

func TestProductUpdateRecomputesAggregates(t *testing.T) {
	svc := NewProductService(newMockProductRepository("Acme", "Ropa"), nil)
	ctx := context.Background()

	product, err := svc.Create(ctx, productInput(domain.Variant{Price: dec(100), StockTotal: 1}))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, product.ID, productInput(
		domain.Variant{VariantID: 1, Price: dec(100), PromotionalPrice: dec(60), StockTotal: 4},
		domain.Variant{Price: dec(70), StockTotal: 2},
	))
	require.NoError(t, err)
	assert.True(t, dec(60).Equal(updated.Price))
	assert.Equal(t, 6, updated.Stock)
	assert.Equal(t, product.CreatedAt, updated.CreatedAt)
}

func TestProductListReturnsPageMeta(t *testing.T) {
	svc := NewProductService(newMockProductRepository("Acme", "Ropa"), nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, productInput())
		require.NoError(t, err)
	}

	products, page, err := svc.List(ctx, query.Filters{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, products, 3)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)
}

func TestTagServiceMapsRepositoryErrors(t *testing.T) {
	categories := newMockCategoryRepository()
	brands := newMockBrandRepository()
	svc := NewTagService(categories, brands, nil)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, "  ")
	assert.ErrorIs(t, err, errTagNameRequired)

	category, err := svc.CreateCategory(ctx, " Ropa ")
	require.NoError(t, err)
	assert.Equal(t, "Ropa", category.Name)

	_, err = svc.CreateCategory(ctx, "Ropa")
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = svc.UpdateCategory(ctx, uuid.New(), "Calzado")
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	categories.inUse["Ropa"] = true
	err = svc.DeleteCategory(ctx, category.ID)
	assert.ErrorIs(t, err, ErrCategoryInUse)
	derr, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindConflict, derr.Kind)

	brand, err := svc.CreateBrand(ctx, "Acme", " https://img/acme.png ")
	require.NoError(t, err)
	assert.Equal(t, "https://img/acme.png", brand.ImageURL)

	_, err = svc.CreateBrand(ctx, "Acme", "")
	assert.ErrorIs(t, err, ErrBrandExists)

	renamed, err := svc.UpdateBrand(ctx, brand.ID, "Acme SA", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme SA", renamed.Name)

	require.NoError(t, svc.DeleteBrand(ctx, brand.ID))
	assert.ErrorIs(t, svc.DeleteBrand(ctx, brand.ID), ErrBrandNotFound)
}

func TestTagServiceListsWithPageMeta(t *testing.T) {
	svc := NewTagService(newMockCategoryRepository(), newMockBrandRepository(), nil)
	ctx := context.Background()
	for _, name := range []string{"Ropa", "Calzado", "Ropa interior"} {
		_, err := svc.CreateCategory(ctx, name)
		require.NoError(t, err)
	}

	categories, page, err := svc.ListCategories(ctx, query.Filters{Search: "ropa"})
	require.NoError(t, err)
	assert.Len(t, categories, 2)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, query.DefaultLimit, page.Limit)
	assert.Equal(t, 1, page.TotalPages)
}
