package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

// OrderStore is the part of the order repository checkout needs.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
}

// Request is one checkout submission.
type Request struct {
	CartID         string
	TokenID        string
	IdempotencyKey string
	Customer       Customer
}

// Result is returned once the webhook has accepted the order.
type Result struct {
	OrderID     string          `json:"order_id"`
	Total       decimal.Decimal `json:"total"`
	RedirectURL string          `json:"redirect_url"`
	Duplicate   bool            `json:"duplicate"`
}

// Deps are the collaborators of Service.
type Deps struct {
	Carts       cart.Store
	Orders      OrderStore
	Tokens      TokenSource
	Webhook     Webhook
	Locations   PickupDirectory
	Publisher   events.Publisher
	Metrics     *metrics.Metrics
	RedirectURL string
	Logger      *zap.Logger
}

// Service runs the token-gated hand-off.
type Service struct {
	carts       cart.Store
	orders      OrderStore
	tokens      TokenSource
	webhook     Webhook
	locations   PickupDirectory
	publisher   events.Publisher
	metrics     *metrics.Metrics
	redirectURL string
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(deps Deps) *Service {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.Noop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		carts:       deps.Carts,
		orders:      deps.Orders,
		tokens:      deps.Tokens,
		webhook:     deps.Webhook,
		locations:   deps.Locations,
		publisher:   publisher,
		metrics:     deps.Metrics,
		redirectURL: deps.RedirectURL,
		logger:      logger.Named("checkout"),
		now:         time.Now,
	}
}

// Checkout validates the cart, obtains a token, submits to the webhook and,
// only after acceptance, stores the order and clears the cart.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	start := s.now()
	result, outcome, err := s.checkout(ctx, req)
	s.metrics.CheckoutFinished(outcome, s.now().Sub(start))
	return result, err
}

func (s *Service) checkout(ctx context.Context, req Request) (*Result, string, error) {
	c, err := s.carts.Get(ctx, req.CartID)
	if err != nil {
		return nil, metrics.CheckoutError, fmt.Errorf("failed to load cart: %w", err)
	}
	if c.IsEmpty() {
		return nil, metrics.CheckoutInvalid, domain.ErrEmptyCart
	}

	draft, err := BuildOrder(c.Items, req.Customer, s.locations)
	if err != nil {
		return nil, metrics.CheckoutInvalid, err
	}

	if req.TokenID == "" {
		return nil, metrics.CheckoutTokenless, domain.ErrUnauthorizedHandoff
	}
	token, err := s.tokens.Token(ctx, req.TokenID)
	if err != nil {
		s.logger.Warn("Checkout token unavailable",
			zap.String("cart_id", req.CartID),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrUnauthorizedHandoff) {
			return nil, metrics.CheckoutTokenless, err
		}
		return nil, metrics.CheckoutError, fmt.Errorf("failed to get checkout token: %w", err)
	}

	if req.IdempotencyKey != "" {
		existing, err := s.orders.FindByOrderID(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			if !sameSubmission(existing, req.TokenID, draft) {
				s.logger.Warn("Idempotency key reused for a different order",
					zap.String("order_id", existing.OrderID),
					zap.String("cart_id", req.CartID),
				)
				return nil, metrics.CheckoutInvalid, domain.ErrIdempotencyKeyReused
			}
			s.logger.Info("Checkout already submitted",
				zap.String("order_id", existing.OrderID),
			)
			s.clearCart(context.WithoutCancel(ctx), req.CartID)
			return s.result(existing, true), metrics.CheckoutDuplicate, nil
		case !errors.Is(err, repository.ErrOrderNotFound):
			return nil, metrics.CheckoutError, fmt.Errorf("failed to check existing order: %w", err)
		}
	}

	orderID := req.IdempotencyKey
	if orderID == "" {
		orderID = uuid.NewString()
	}

	if err := s.webhook.Submit(ctx, token, orderID, draft.Payload()); err != nil {
		s.logger.Error("Order hand-off failed",
			zap.String("cart_id", req.CartID),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrHandoffFailed) {
			return nil, metrics.CheckoutRejected, err
		}
		return nil, metrics.CheckoutError, fmt.Errorf("failed to submit order: %w", err)
	}

	// Accepted downstream: finish even if the shopper goes away now.
	after := context.WithoutCancel(ctx)
	order := draft.Order(orderID, req.TokenID, s.now().UTC())

	if err := s.orders.Create(after, order); err != nil {
		s.metrics.OrderPersistFailed()
		s.logger.Error("Failed to store accepted order",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}

	s.clearCart(after, req.CartID)

	if err := s.publisher.Publish(after, events.NewOrderCreated(order, s.now())); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}

	s.logger.Info("Order handed off",
		zap.String("order_id", orderID),
		zap.String("delivery_method", string(order.DeliveryMethod)),
		zap.String("total", order.Total.String()),
	)

	return s.result(order, false), metrics.CheckoutAccepted, nil
}

// sameSubmission reports whether existing was handed off by the same shopper with the same cart contents.
func sameSubmission(existing *domain.Order, tokenID string, draft *Draft) bool {
	if existing.CustomerPhone != tokenID || !existing.Total.Equal(draft.Total) || len(existing.Products) != len(draft.Items) {
		return false
	}
	for i, item := range draft.Items {
		line := existing.Products[i]
		if line.Quantity != item.Quantity || !line.Price.Equal(item.UnitPrice) {
			return false
		}
	}
	return true
}

func (s *Service) clearCart(ctx context.Context, cartID string) {
	if err := s.carts.Delete(ctx, cartID); err != nil {
		s.logger.Warn("Failed to clear cart after checkout",
			zap.String("cart_id", cartID),
			zap.Error(err),
		)
	}
}

func (s *Service) result(order *domain.Order, duplicate bool) *Result {
	return &Result{
		OrderID:     order.OrderID,
		Total:       order.Total,
		RedirectURL: s.redirectURL,
		Duplicate:   duplicate,
	}
}
