package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/metrics"
	"storefront/internal/query"
	"storefront/internal/repository"
)

var ErrOrderNotFound = domain.NewNotFoundError("order not found")

// StatusUpdate is an admin request to move an order to another status.
type StatusUpdate struct {
	Status             string
	ExternalPaymentRef string
}

// OrderService is the admin view of orders
type OrderService interface {
	List(ctx context.Context, filters query.Filters) ([]*domain.Order, query.Page, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, update StatusUpdate) (*domain.Order, error)
}

type orderService struct {
	orders    repository.OrderRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orders repository.OrderRepository, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) OrderService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orderService{
		orders:    orders,
		publisher: publisher,
		metrics:   m,
		logger:    logger.Named("orders"),
		now:       time.Now,
	}
}

func (s *orderService) List(ctx context.Context, filters query.Filters) ([]*domain.Order, query.Page, error) {
	// Unknown statuses degrade to no filter.
	status, err := domain.ParseOrderStatus(filters.Status)
	filters.Status = ""
	if err == nil {
		filters.Status = string(status)
	}

	plan := query.Build(filters)
	orders, total, err := s.orders.List(ctx, plan)
	if err != nil {
		return nil, query.Page{}, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, query.NewPage(plan, total), nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// UpdateStatus applies a status transition. Requesting the current status is a no-op.
func (s *orderService) UpdateStatus(ctx context.Context, orderID string, update StatusUpdate) (*domain.Order, error) {
	next, err := domain.ParseOrderStatus(update.Status)
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	changed, err := order.TransitionTo(next, s.now().UTC())
	if err != nil {
		s.logger.Info("Rejected order status change",
			zap.String("order_id", orderID),
			zap.String("from", string(previous)),
			zap.String("to", string(next)),
		)
		return nil, err
	}
	if !changed {
		return order, nil
	}

	if ref := strings.TrimSpace(update.ExternalPaymentRef); ref != "" {
		order.ExternalPaymentRef = ref
	}

	if err := s.orders.UpdateStatus(ctx, order, previous); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		if errors.Is(err, repository.ErrOrderStatusStale) {
			s.logger.Info("Order status changed concurrently",
				zap.String("order_id", orderID),
				zap.String("from", string(previous)),
				zap.String("to", string(order.Status)),
			)
			return nil, domain.ErrStaleStatus
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.metrics.StatusTransition(string(previous), string(order.Status))
	if err := s.publisher.Publish(ctx, events.NewOrderStatusChanged(order, previous, s.now())); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)),
	)
	return order, nil
}
