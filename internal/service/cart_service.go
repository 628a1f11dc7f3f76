package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/repository"
)

var ErrVariantNotFound = domain.NewNotFoundError("variant not found")

// CartService keeps shopper carts. Line prices are snapshots of the variant's effective price at add time.
type CartService interface {
	Get(ctx context.Context, cartID string) (cart.Cart, error)
	AddItem(ctx context.Context, cartID string, productID uuid.UUID, variantID int64, quantity int) (cart.Cart, error)
	UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (cart.Cart, error)
	RemoveItem(ctx context.Context, cartID, itemID string) (cart.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

type cartService struct {
	carts    cart.Store
	products repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(carts cart.Store, products repository.ProductRepository) CartService {
	return &cartService{carts: carts, products: products}
}

func (s *cartService) Get(ctx context.Context, cartID string) (cart.Cart, error) {
	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("failed to load cart: %w", err)
	}
	return c, nil
}

func (s *cartService) AddItem(ctx context.Context, cartID string, productID uuid.UUID, variantID int64, quantity int) (cart.Cart, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return cart.Cart{}, mapProductError(err, "failed to find product")
	}

	variant, ok := product.FindVariant(variantID)
	if !ok || !variant.Visible {
		return cart.Cart{}, ErrVariantNotFound
	}

	item := cart.LineItem{
		ProductID:  product.ID,
		VariantID:  variant.VariantID,
		Name:       lineName(product, variant),
		UnitPrice:  pricing.DeriveEffectivePrice(variant.Price, variant.PromotionalPrice),
		Image:      variant.ImageURL,
		Quantity:   quantity,
		StockLimit: variant.StockTotal,
	}
	if item.Image == "" {
		item.Image = product.PrimaryImage()
	}

	return s.mutate(ctx, cartID, func(c cart.Cart) (cart.Cart, error) {
		return c.AddItem(item)
	})
}

func (s *cartService) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (cart.Cart, error) {
	return s.mutate(ctx, cartID, func(c cart.Cart) (cart.Cart, error) {
		return c.UpdateQuantity(itemID, quantity)
	})
}

func (s *cartService) RemoveItem(ctx context.Context, cartID, itemID string) (cart.Cart, error) {
	return s.mutate(ctx, cartID, func(c cart.Cart) (cart.Cart, error) {
		return c.RemoveItem(itemID), nil
	})
}

func (s *cartService) Clear(ctx context.Context, cartID string) error {
	if err := s.carts.Delete(ctx, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *cartService) mutate(ctx context.Context, cartID string, apply func(cart.Cart) (cart.Cart, error)) (cart.Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return cart.Cart{}, err
	}

	c, err = apply(c)
	if err != nil {
		return cart.Cart{}, err
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return cart.Cart{}, fmt.Errorf("failed to save cart: %w", err)
	}
	return c, nil
}

// lineName shows the variant label and color unless the variant is the placeholder.
func lineName(product *domain.Product, variant *domain.Variant) string {
	var parts []string
	if variant.Label != "" && variant.Label != pricing.PlaceholderLabel {
		parts = append(parts, variant.Label)
	}
	if variant.Color != "" {
		parts = append(parts, variant.Color)
	}
	if len(parts) == 0 {
		return product.Name
	}
	return fmt.Sprintf("%s (%s)", product.Name, strings.Join(parts, ", "))
}
