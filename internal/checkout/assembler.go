// Package checkout validates a cart submission and hands it off to the external order-intake flow.
package checkout

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/cart"
	"storefront/internal/domain"
)

const dniLength = 8

// Customer is the checkout form as submitted.
type Customer struct {
	Name           string `json:"name"`
	DNI            string `json:"dni"`
	DeliveryMethod string `json:"delivery_method"`
	Address        string `json:"address"`
	PostalCode     string `json:"postal_code"`
	Province       string `json:"province"`
	City           string `json:"city"`
	Branch         string `json:"branch"`
}

// PickupDirectory resolves pickup branches to their canonical spelling.
type PickupDirectory interface {
	Canonical(province, city, branch string) ([3]string, bool)
}

// Draft is a validated, normalized order that has not been handed off yet.
type Draft struct {
	Items          []cart.LineItem
	Name           string
	DNI            string
	DeliveryMethod domain.DeliveryMethod
	Address        string
	PostalCode     string
	Pickup         *domain.PickupData
	Total          decimal.Decimal
}

// BuildOrder validates the submission and fails on the first violated rule.
func BuildOrder(items []cart.LineItem, customer Customer, locations PickupDirectory) (*Draft, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	for _, item := range items {
		if item.Quantity < 1 || item.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidLineItem
		}
	}

	method, ok := domain.ParseDeliveryMethod(customer.DeliveryMethod)
	if !ok {
		return nil, domain.ErrDeliveryMethodRequired
	}

	name := strings.TrimSpace(customer.Name)
	if name == "" || strings.TrimSpace(customer.DNI) == "" {
		return nil, domain.ErrCustomerInfoRequired
	}

	dni, err := NormalizeDNI(customer.DNI)
	if err != nil {
		return nil, err
	}

	draft := &Draft{
		Items:          items,
		Name:           name,
		DNI:            dni,
		DeliveryMethod: method,
	}

	switch method {
	case domain.DeliveryShipping:
		draft.Address = strings.TrimSpace(customer.Address)
		draft.PostalCode = strings.TrimSpace(customer.PostalCode)
		if draft.Address == "" || draft.PostalCode == "" {
			return nil, domain.ErrShippingInfoRequired
		}
	case domain.DeliveryPickup:
		if locations == nil {
			return nil, domain.ErrPickupInfoRequired
		}
		canonical, ok := locations.Canonical(customer.Province, customer.City, customer.Branch)
		if !ok {
			return nil, domain.ErrPickupInfoRequired
		}
		draft.Pickup = &domain.PickupData{Province: canonical[0], City: canonical[1], Branch: canonical[2]}
	}

	draft.Total = decimal.Zero
	for _, item := range items {
		draft.Total = draft.Total.Add(item.Subtotal())
	}

	return draft, nil
}

// NormalizeDNI strips dots, dashes and spaces and requires exactly eight digits.
// Any other character makes the value invalid.
func NormalizeDNI(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == ' ':
		default:
			return "", domain.ErrInvalidDNI
		}
	}

	if b.Len() != dniLength {
		return "", domain.ErrInvalidDNI
	}
	return b.String(), nil
}

// PayloadItem is one line of the webhook body.
type PayloadItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
}

type FormData struct {
	Name       string `json:"name"`
	DNI        string `json:"dni"`
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Payload is the order-intake webhook body.
type Payload struct {
	Items          []PayloadItem      `json:"items"`
	TotalPrice     float64            `json:"totalPrice"`
	FormData       FormData           `json:"formData"`
	DeliveryMethod string             `json:"deliveryMethod"`
	PickupData     *domain.PickupData `json:"pickupData"`
}

// Payload renders the draft for the webhook.
func (d *Draft) Payload() Payload {
	items := make([]PayloadItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, PayloadItem{
			ID:        item.ID,
			Title:     item.Name,
			UnitPrice: item.UnitPrice.InexactFloat64(),
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}

	return Payload{
		Items:      items,
		TotalPrice: d.Total.InexactFloat64(),
		FormData: FormData{
			Name:       d.Name,
			DNI:        d.DNI,
			Address:    d.Address,
			PostalCode: d.PostalCode,
		},
		DeliveryMethod: d.DeliveryMethod.WireValue(),
		PickupData:     d.Pickup,
	}
}

// Order converts the draft into the record stored after the webhook accepts it.
func (d *Draft) Order(orderID, phone string, now time.Time) *domain.Order {
	products := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		products = append(products, domain.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
			Image:    item.Image,
		})
	}

	return &domain.Order{
		OrderID:        orderID,
		CustomerName:   d.Name,
		CustomerPhone:  phone,
		CustomerDNI:    d.DNI,
		DeliveryMethod: d.DeliveryMethod,
		Address:        d.Address,
		PostalCode:     d.PostalCode,
		PickupData:     d.Pickup,
		Products:       products,
		Status:         domain.OrderStatusInProcess,
		Total:          d.Total,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
