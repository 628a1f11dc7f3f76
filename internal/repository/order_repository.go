package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/query"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order with this order id already exists")
	ErrOrderStatusStale   = errors.New("order status changed since it was read")
)

var orderColumns = query.Columns{
	Search:    "customer_name",
	Status:    "status",
	CreatedAt: "created_at",
	ID:        "id",
}

// OrderRepository defines the interface for order data access. Orders are never deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	List(ctx context.Context, plan query.Plan) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderSelect = `
	SELECT id, order_id, customer_name, customer_phone, customer_dni, delivery_method,
	       address, postal_code, pickup_province, pickup_city, pickup_branch,
	       status, total, external_payment_ref, created_at, updated_at
	FROM orders
`

// Create inserts the order and its line items in one transaction
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	var pickup domain.PickupData
	if order.PickupData != nil {
		pickup = *order.PickupData
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (
				id, order_id, customer_name, customer_phone, customer_dni, delivery_method,
				address, postal_code, pickup_province, pickup_city, pickup_branch,
				status, total, external_payment_ref, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`,
			order.ID,
			order.OrderID,
			order.CustomerName,
			order.CustomerPhone,
			order.CustomerDNI,
			string(order.DeliveryMethod),
			order.Address,
			order.PostalCode,
			pickup.Province,
			pickup.City,
			pickup.Branch,
			string(order.Status),
			order.Total,
			order.ExternalPaymentRef,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrOrderAlreadyExists
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		for position, item := range order.Products {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, position, name, quantity, price, image)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, order.ID, position, item.Name, item.Quantity, item.Price, item.Image)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}
		return nil
	})
}

// FindByOrderID retrieves an order by its public order id
func (r *orderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+` WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns one page of orders. Search matches the customer name.
func (r *orderRepository) List(ctx context.Context, plan query.Plan) ([]*domain.Order, int, error) {
	clause := plan.Clause(orderColumns)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", clause.Where)
	if err := r.db.QueryRowContext(ctx, countQuery, clause.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	limit, args := plan.LimitOffset(clause)
	listQuery := strings.Join([]string{orderSelect, clause.Where, clause.OrderBy, limit}, "\n")

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus writes status, payment reference and updated_at only while the stored
// status still equals previous. Products and total never change.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, external_payment_ref = $3, updated_at = $4
		WHERE order_id = $1 AND status = $5
	`, order.OrderID, string(order.Status), order.ExternalPaymentRef, order.UpdatedAt, string(previous))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE order_id = $1)`, order.OrderID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return ErrOrderNotFound
	}
	return ErrOrderStatusStale
}

func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID.String())
		byID[o.ID] = o
		o.Products = []domain.OrderItem{}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, name, quantity, price, image
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.Name, &item.Quantity, &item.Price, &item.Image); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Products = append(o.Products, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}
	return nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var (
		deliveryMethod string
		status         string
		pickup         domain.PickupData
	)
	err := row.Scan(
		&order.ID,
		&order.OrderID,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.CustomerDNI,
		&deliveryMethod,
		&order.Address,
		&order.PostalCode,
		&pickup.Province,
		&pickup.City,
		&pickup.Branch,
		&status,
		&order.Total,
		&order.ExternalPaymentRef,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.DeliveryMethod = domain.DeliveryMethod(deliveryMethod)
	order.Status = domain.OrderStatus(status)
	if order.DeliveryMethod == domain.DeliveryPickup {
		order.PickupData = &pickup
	}
	return order, nil
}
