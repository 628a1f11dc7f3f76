package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus values are stored and returned exactly as shown to admins.
type OrderStatus string

const (
	OrderStatusInProcess OrderStatus = "En Proceso"
	OrderStatusPaid      OrderStatus = "Pagado"
	OrderStatusCompleted OrderStatus = "Completado"
	OrderStatusCancelled OrderStatus = "Cancelado"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusInProcess,
	OrderStatusPaid,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusInProcess: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusCompleted, OrderStatusCancelled},
}

// ParseOrderStatus accepts a status label, ignoring surrounding whitespace and case.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	trimmed := strings.TrimSpace(raw)
	for _, status := range AllOrderStatuses {
		if strings.EqualFold(string(status), trimmed) {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

func (s OrderStatus) Valid() bool {
	for _, status := range AllOrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DeliveryMethod is how the shopper receives the order.
type DeliveryMethod string

const (
	DeliveryShipping DeliveryMethod = "shipping"
	DeliveryPickup   DeliveryMethod = "pickup"
)

// ParseDeliveryMethod accepts the English names and the Spanish wire values.
func ParseDeliveryMethod(raw string) (DeliveryMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "shipping", "envio", "envío":
		return DeliveryShipping, true
	case "pickup", "retiro":
		return DeliveryPickup, true
	default:
		return "", false
	}
}

// WireValue is the value the order-intake webhook expects.
func (m DeliveryMethod) WireValue() string {
	if m == DeliveryPickup {
		return "retiro"
	}
	return "envio"
}

type PickupData struct {
	Province string `json:"province"`
	City     string `json:"city"`
	Branch   string `json:"branch"`
}

type OrderItem struct {
	Name     string          `json:"name" db:"name"`
	Quantity int             `json:"quantity" db:"quantity"`
	Price    decimal.Decimal `json:"price" db:"price"`
	Image    string          `json:"image,omitempty" db:"image"`
}

// Subtotal is price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a submitted purchase. Exactly one of the shipping fields or PickupData is set.
type Order struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	OrderID            string          `json:"order_id" db:"order_id"`
	CustomerName       string          `json:"customer_name" db:"customer_name"`
	CustomerPhone      string          `json:"customer_phone" db:"customer_phone"`
	CustomerDNI        string          `json:"customer_dni" db:"customer_dni"`
	DeliveryMethod     DeliveryMethod  `json:"delivery_method" db:"delivery_method"`
	Address            string          `json:"address,omitempty" db:"address"`
	PostalCode         string          `json:"postal_code,omitempty" db:"postal_code"`
	PickupData         *PickupData     `json:"pickup_data,omitempty"`
	Products           []OrderItem     `json:"products"`
	Status             OrderStatus     `json:"status" db:"status"`
	Total              decimal.Decimal `json:"total" db:"total"`
	ExternalPaymentRef string          `json:"external_payment_ref,omitempty" db:"external_payment_ref"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// TransitionTo moves the order to next following the forward-only lifecycle.
// It returns false when next equals the current status and nothing changed.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) (bool, error) {
	if !next.Valid() {
		return false, ErrInvalidStatus
	}
	if o.Status == next {
		return false, nil
	}
	if !o.Status.CanTransitionTo(next) {
		return false, ErrIllegalTransition
	}

	o.Status = next
	o.UpdatedAt = now
	return true, nil
}
