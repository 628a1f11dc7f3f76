// Package pricing derives variant effective prices and product-level aggregates.
// Every function is pure: inputs are coerced rather than rejected so the result is always defined.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// PlaceholderLabel names the variant synthesized for products saved without any.
const PlaceholderLabel = "Default"

// Summary is the product-level roll-up of its variants.
type Summary struct {
	MinEffectivePrice decimal.Decimal
	TotalStock        int
}

// DeriveEffectivePrice returns promo when it is positive, otherwise price.
// Negative inputs are treated as zero.
func DeriveEffectivePrice(price, promo decimal.Decimal) decimal.Decimal {
	price = nonNegative(price)
	promo = nonNegative(promo)
	if promo.IsPositive() {
		return promo
	}
	return price
}

// Aggregate sums stock and finds the cheapest effective price.
// An empty slice falls back to basePrice.
func Aggregate(variants []domain.Variant, basePrice decimal.Decimal) Summary {
	if len(variants) == 0 {
		return Summary{MinEffectivePrice: nonNegative(basePrice)}
	}

	var summary Summary
	for i, v := range variants {
		effective := DeriveEffectivePrice(v.Price, v.PromotionalPrice)
		if i == 0 || effective.LessThan(summary.MinEffectivePrice) {
			summary.MinEffectivePrice = effective
		}
		if v.StockTotal > 0 {
			summary.TotalStock += v.StockTotal
		}
	}
	return summary
}

// NormalizeVariants returns a copy of variants with recomputed effective prices,
// clamped stock and assigned ids. An empty input yields a single placeholder variant.
func NormalizeVariants(variants []domain.Variant, basePrice decimal.Decimal) []domain.Variant {
	if len(variants) == 0 {
		base := nonNegative(basePrice)
		return []domain.Variant{{
			VariantID:      1,
			Label:          PlaceholderLabel,
			Price:          base,
			EffectivePrice: base,
			Visible:        true,
		}}
	}

	var maxID int64
	for _, v := range variants {
		if v.VariantID > maxID {
			maxID = v.VariantID
		}
	}

	out := make([]domain.Variant, len(variants))
	seen := make(map[int64]bool, len(variants))
	for i, v := range variants {
		if v.VariantID <= 0 || seen[v.VariantID] {
			maxID++
			v.VariantID = maxID
		}
		seen[v.VariantID] = true

		v.Price = nonNegative(v.Price)
		v.PromotionalPrice = nonNegative(v.PromotionalPrice)
		v.EffectivePrice = DeriveEffectivePrice(v.Price, v.PromotionalPrice)
		v.Weight = nonNegative(v.Weight)
		if v.StockTotal < 0 {
			v.StockTotal = 0
		}
		out[i] = v
	}
	return out
}

// ApplyToProduct normalizes the product's variants and refreshes its derived price and stock.
func ApplyToProduct(p *domain.Product) {
	p.Variants = NormalizeVariants(p.Variants, p.Price)
	summary := Aggregate(p.Variants, p.Price)
	p.Price = summary.MinEffectivePrice
	p.Stock = summary.TotalStock
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
