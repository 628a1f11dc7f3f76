package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repository"
)

type memoryOrders struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	failErr error
}

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{orders: make(map[string]*domain.Order)}
}

func (m *memoryOrders) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.orders[order.OrderID] = order
	return nil
}

func (m *memoryOrders) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	service      *Service
	carts        cart.Store
	orders       *memoryOrders
	publisher    *recordingPublisher
	webhookCalls *int32
	lastPayload  *Payload
	webhookCode  *int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "5493811111111" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	}))
	t.Cleanup(tokenServer.Close)

	f := &fixture{
		carts:        cart.NewRedisStore(client, time.Hour),
		orders:       newMemoryOrders(),
		publisher:    &recordingPublisher{},
		webhookCalls: new(int32),
		lastPayload:  &Payload{},
		webhookCode:  new(int32),
	}
	atomic.StoreInt32(f.webhookCode, http.StatusOK)

	webhookServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(f.webhookCalls, 1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(f.lastPayload)
		w.WriteHeader(int(atomic.LoadInt32(f.webhookCode)))
	}))
	t.Cleanup(webhookServer.Close)

	f.service = NewService(Deps{
		Carts:       f.carts,
		Orders:      f.orders,
		Tokens:      NewTokenSource(tokenServer.Client(), tokenServer.URL),
		Webhook:     NewWebhook(webhookServer.Client(), webhookServer.URL),
		Locations:   testDirectory(t),
		Publisher:   f.publisher,
		RedirectURL: "https://wa.me/+5493816592823",
		Logger:      zap.NewNop(),
	})
	return f
}

func (f *fixture) seedCart(t *testing.T, id string) {
	t.Helper()

	c := cart.New(id)
	var err error
	c, err = c.AddItem(cart.LineItem{ProductID: uuid.New(), VariantID: 1, Name: "Remera", UnitPrice: decimal.NewFromInt(1000), Quantity: 2, StockLimit: 10})
	require.NoError(t, err)
	c, err = c.AddItem(cart.LineItem{ProductID: uuid.New(), VariantID: 1, Name: "Gorra", UnitPrice: decimal.NewFromInt(500), Quantity: 1, StockLimit: 10})
	require.NoError(t, err)
	require.NoError(t, f.carts.Save(context.Background(), c))
}

func (f *fixture) cartItems(t *testing.T, id string) int {
	t.Helper()
	c, err := f.carts.Get(context.Background(), id)
	require.NoError(t, err)
	return len(c.Items)
}

func TestCheckoutEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.seedCart(t, "cart-1")

	result, err := f.service.Checkout(context.Background(), Request{
		CartID:   "cart-1",
		TokenID:  "5493811111111",
		Customer: shippingCustomer(),
	})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(2500).Equal(result.Total))
	assert.Equal(t, "https://wa.me/+5493816592823", result.RedirectURL)
	assert.False(t, result.Duplicate)

	assert.Len(t, f.lastPayload.Items, 2)
	assert.Equal(t, "12345678", f.lastPayload.FormData.DNI)
	assert.Equal(t, 2500.0, f.lastPayload.TotalPrice)

	assert.Equal(t, 0, f.cartItems(t, "cart-1"), "cart is cleared after acceptance")

	stored, err := f.orders.FindByOrderID(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusInProcess, stored.Status)
	assert.Equal(t, "5493811111111", stored.CustomerPhone)
	assert.Equal(t, "12345678", stored.CustomerDNI)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.EventTypeOrderCreated, f.publisher.events[0].EventType)
}

func TestCheckoutTokenlessKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.seedCart(t, "cart-1")

	_, err := f.service.Checkout(context.Background(), Request{
		CartID:   "cart-1",
		TokenID:  "5490000000000",
		Customer: shippingCustomer(),
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedHandoff)
	assert.Equal(t, int32(0), atomic.LoadInt32(f.webhookCalls))
	assert.Equal(t, 2, f.cartItems(t, "cart-1"))

	_, err = f.service.Checkout(context.Background(), Request{CartID: "cart-1", Customer: shippingCustomer()})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedHandoff)
}

func TestCheckoutWebhookFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.seedCart(t, "cart-1")
	atomic.StoreInt32(f.webhookCode, http.StatusBadGateway)

	_, err := f.service.Checkout(context.Background(), Request{
		CartID:   "cart-1",
		TokenID:  "5493811111111",
		Customer: shippingCustomer(),
	})
	assert.ErrorIs(t, err, domain.ErrHandoffFailed)
	assert.Equal(t, 2, f.cartItems(t, "cart-1"))
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.publisher.events)
}

func TestCheckoutValidationFailsBeforeHandoff(t *testing.T) {
	f := newFixture(t)
	f.seedCart(t, "cart-1")

	customer := shippingCustomer()
	customer.DNI = "abcd1234"

	_, err := f.service.Checkout(context.Background(), Request{CartID: "cart-1", TokenID: "5493811111111", Customer: customer})
	assert.ErrorIs(t, err, domain.ErrInvalidDNI)
	assert.Equal(t, int32(0), atomic.LoadInt32(f.webhookCalls))
	assert.Equal(t, 2, f.cartItems(t, "cart-1"))
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Checkout(context.Background(), Request{CartID: "nobody", TokenID: "5493811111111", Customer: shippingCustomer()})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckoutIdempotencyKeyDeduplicates(t *testing.T) {
	f := newFixture(t)
	f.seedCart(t, "cart-1")

	req := Request{
		CartID:         "cart-1",
		TokenID:        "5493811111111",
		IdempotencyKey: "key-1",
		Customer:       shippingCustomer(),
	}

	first, err := f.service.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "key-1", first.OrderID)

	f.seedCart(t, "cart-1")
	second, err := f.service.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, int32(1), atomic.LoadInt32(f.webhookCalls))
	assert.Len(t, f.orders.orders, 1)
}

func TestCheckoutReusedKeyDoesNotTouchOtherCarts(t *testing.T) {
	f := newFixture(t)
	f.seedCart(t, "cart-a")

	_, err := f.service.Checkout(context.Background(), Request{
		CartID:         "cart-a",
		TokenID:        "5493811111111",
		IdempotencyKey: "k",
		Customer:       shippingCustomer(),
	})
	require.NoError(t, err)

	f.seedCart(t, "cart-b")

	// No token and no customer data: rejected before the key is looked up.
	_, err = f.service.Checkout(context.Background(), Request{CartID: "cart-b", IdempotencyKey: "k"})
	require.Error(t, err)
	assert.Equal(t, 2, f.cartItems(t, "cart-b"))

	_, err = f.service.Checkout(context.Background(), Request{CartID: "cart-b", IdempotencyKey: "k", Customer: shippingCustomer()})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedHandoff)
	assert.Equal(t, 2, f.cartItems(t, "cart-b"))

	// Same shopper, different cart contents under the same key.
	c := cart.New("cart-c")
	c, err = c.AddItem(cart.LineItem{ProductID: uuid.New(), VariantID: 1, Name: "Buzo", UnitPrice: decimal.NewFromInt(9000), Quantity: 1, StockLimit: 5})
	require.NoError(t, err)
	require.NoError(t, f.carts.Save(context.Background(), c))

	_, err = f.service.Checkout(context.Background(), Request{
		CartID:         "cart-c",
		TokenID:        "5493811111111",
		IdempotencyKey: "k",
		Customer:       shippingCustomer(),
	})
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
	assert.Equal(t, 1, f.cartItems(t, "cart-c"))
	assert.Equal(t, int32(1), atomic.LoadInt32(f.webhookCalls))
	assert.Len(t, f.orders.orders, 1)
}

func TestCheckoutPersistFailureIsNotSurfaced(t *testing.T) {
	f := newFixture(t)
	f.seedCart(t, "cart-1")
	f.orders.failErr = errors.New("database unavailable")

	result, err := f.service.Checkout(context.Background(), Request{
		CartID:   "cart-1",
		TokenID:  "5493811111111",
		Customer: shippingCustomer(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, 0, f.cartItems(t, "cart-1"))
}
