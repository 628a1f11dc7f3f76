// Package cart models the shopper cart as a value with pure transitions.
package cart

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// ErrItemNotFound is returned when a line id is not in the cart.
var ErrItemNotFound = domain.NewNotFoundError("cart item not found")

// MaxQuantity is the largest quantity a single request may ask for.
const MaxQuantity = 999

// LineItem is one product variant in the cart. UnitPrice is a snapshot taken when the item was added.
type LineItem struct {
	ID         string          `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	VariantID  int64           `json:"variant_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Image      string          `json:"image,omitempty"`
	Quantity   int             `json:"quantity"`
	StockLimit int             `json:"stock_limit"`
}

// Subtotal is unit price times quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a serializable shopper cart. Every line satisfies 1 <= Quantity <= StockLimit.
type Cart struct {
	ID        string     `json:"id"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LineID builds the composite line id for a product variant.
func LineID(productID uuid.UUID, variantID int64) string {
	return fmt.Sprintf("%s-%d", productID, variantID)
}

// New returns an empty cart.
func New(id string) Cart {
	return Cart{ID: id, Items: []LineItem{}}
}

// AddItem adds item or increases the quantity of the matching line, clamped to the stock limit.
func (c Cart) AddItem(item LineItem) (Cart, error) {
	if item.StockLimit <= 0 {
		return c, domain.ErrOutOfStock
	}
	if item.Quantity < 1 || item.Quantity > MaxQuantity {
		return c, domain.ErrInvalidQuantity
	}
	if item.ID == "" {
		item.ID = LineID(item.ProductID, item.VariantID)
	}

	items := c.copyItems()
	for i := range items {
		if items[i].ID != item.ID {
			continue
		}
		items[i].StockLimit = item.StockLimit
		items[i].Quantity = clamp(items[i].Quantity+item.Quantity, item.StockLimit)
		c.Items = items
		return c, nil
	}

	item.Quantity = clamp(item.Quantity, item.StockLimit)
	c.Items = append(items, item)
	return c, nil
}

// UpdateQuantity sets the quantity of a line, clamped to its stock limit.
func (c Cart) UpdateQuantity(id string, quantity int) (Cart, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return c, domain.ErrInvalidQuantity
	}

	items := c.copyItems()
	for i := range items {
		if items[i].ID == id {
			items[i].Quantity = clamp(quantity, items[i].StockLimit)
			c.Items = items
			return c, nil
		}
	}
	return c, ErrItemNotFound
}

// RemoveItem drops a line. Removing an unknown line is a no-op.
func (c Cart) RemoveItem(id string) Cart {
	items := make([]LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ID != id {
			items = append(items, item)
		}
	}
	c.Items = items
	return c
}

// Clear empties the cart.
func (c Cart) Clear() Cart {
	c.Items = []LineItem{}
	return c
}

// Total is the sum of line subtotals.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count is the number of units in the cart.
func (c Cart) Count() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) copyItems() []LineItem {
	items := make([]LineItem, len(c.Items), len(c.Items)+1)
	copy(items, c.Items)
	return items
}

func clamp(quantity, limit int) int {
	if quantity > limit {
		return limit
	}
	if quantity < 1 {
		return 1
	}
	return quantity
}
