package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant is a purchasable configuration of a product. EffectivePrice is derived, never client-owned.
type Variant struct {
	VariantID        int64           `json:"variant_id" db:"variant_id"`
	SKU              string          `json:"sku" db:"sku"`
	Label            string          `json:"label" db:"label"`
	Color            string          `json:"color" db:"color"`
	Price            decimal.Decimal `json:"price" db:"price"`
	PromotionalPrice decimal.Decimal `json:"promotional_price" db:"promotional_price"`
	EffectivePrice   decimal.Decimal `json:"effective_price" db:"effective_price"`
	StockTotal       int             `json:"stock_total" db:"stock_total"`
	ImageURL         string          `json:"image_url" db:"image_url"`
	Visible          bool            `json:"visible" db:"visible"`
	Weight           decimal.Decimal `json:"weight" db:"weight"`
}

// Product represents a product in the catalog. Price and Stock are aggregates of Variants.
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Brand       string          `json:"brand" db:"brand"`
	Category    string          `json:"category" db:"category"`
	Images      []string        `json:"images" db:"images"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	Variants    []Variant       `json:"variants"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// FindVariant returns the variant with the given id.
func (p *Product) FindVariant(variantID int64) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].VariantID == variantID {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// PrimaryImage is the first product image, or empty.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
