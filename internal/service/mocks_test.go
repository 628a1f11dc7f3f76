package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/query"
	"storefront/internal/repository"
)

var errStoreDown = errors.New("connection refused")

// Mock repositories for testing
type mockUserRepository struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	updates int
	failing bool
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, exists := m.users[email]; exists {
		return repository.ErrUserAlreadyExists
	}
	user.Email = email
	m.users[email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errStoreDown
	}
	user, exists := m.users[strings.ToLower(strings.TrimSpace(email))]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdateLoginState(ctx context.Context, id uuid.UUID, failedLogins int, lockedUntil *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			m.updates++
			user.FailedLogins = failedLogins
			user.LockedUntil = lockedUntil
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) get(email string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[email]
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
	tags     map[string]bool
}

func newMockProductRepository(tags ...string) *mockProductRepository {
	known := make(map[string]bool, len(tags))
	for _, t := range tags {
		known[t] = true
	}
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product), tags: known}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if !m.tags[product.Brand] || !m.tags[product.Category] {
		return repository.ErrUnknownTag
	}
	clone := *product
	m.products[product.ID] = &clone
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	return m.Create(ctx, product)
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	clone := *product
	clone.Variants = append([]domain.Variant(nil), product.Variants...)
	return &clone, nil
}

func (m *mockProductRepository) List(ctx context.Context, plan query.Plan) ([]*domain.Product, int, error) {
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

type mockCategoryRepository struct {
	byID  map[uuid.UUID]*domain.Category
	inUse map[string]bool
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{byID: make(map[uuid.UUID]*domain.Category), inUse: make(map[string]bool)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range m.byID {
		if c.Name == category.Name && c.ID != category.ID {
			return repository.ErrCategoryAlreadyExists
		}
	}
	clone := *category
	m.byID[category.ID] = &clone
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.byID[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	return m.Create(ctx, category)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	c, ok := m.byID[id]
	if !ok {
		return repository.ErrCategoryNotFound
	}
	if m.inUse[c.Name] {
		return repository.ErrCategoryInUse
	}
	delete(m.byID, id)
	return nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *mockCategoryRepository) List(ctx context.Context, plan query.Plan) ([]*domain.Category, int, error) {
	out := []*domain.Category{}
	for _, c := range m.byID {
		if plan.Search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(plan.Search)) {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

type mockBrandRepository struct {
	byID map[uuid.UUID]*domain.Brand
}

func newMockBrandRepository() *mockBrandRepository {
	return &mockBrandRepository{byID: make(map[uuid.UUID]*domain.Brand)}
}

func (m *mockBrandRepository) Create(ctx context.Context, brand *domain.Brand) error {
	for _, b := range m.byID {
		if b.Name == brand.Name && b.ID != brand.ID {
			return repository.ErrBrandAlreadyExists
		}
	}
	clone := *brand
	m.byID[brand.ID] = &clone
	return nil
}

func (m *mockBrandRepository) Update(ctx context.Context, brand *domain.Brand) error {
	if _, ok := m.byID[brand.ID]; !ok {
		return repository.ErrBrandNotFound
	}
	return m.Create(ctx, brand)
}

func (m *mockBrandRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrBrandNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockBrandRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrBrandNotFound
	}
	clone := *b
	return &clone, nil
}

func (m *mockBrandRepository) List(ctx context.Context, plan query.Plan) ([]*domain.Brand, int, error) {
	out := []*domain.Brand{}
	for _, b := range m.byID {
		out = append(out, b)
	}
	return out, len(out), nil
}

type mockOrderRepository struct {
	orders     map[string]*domain.Order
	lastPlan   query.Plan
	updateCall int
	// beforeUpdate runs ahead of the compare-and-set, simulating a concurrent writer.
	beforeUpdate func()
}

func newMockOrderRepository(orders ...*domain.Order) *mockOrderRepository {
	m := &mockOrderRepository{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		m.orders[o.OrderID] = o
	}
	return m
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if _, ok := m.orders[order.OrderID]; ok {
		return repository.ErrOrderAlreadyExists
	}
	clone := *order
	m.orders[order.OrderID] = &clone
	return nil
}

func (m *mockOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *mockOrderRepository) List(ctx context.Context, plan query.Plan) ([]*domain.Order, int, error) {
	m.lastPlan = plan
	out := []*domain.Order{}
	for _, o := range m.orders {
		if plan.Status == "" || string(o.Status) == plan.Status {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	stored, ok := m.orders[order.OrderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	m.updateCall++
	if stored.Status != previous {
		return repository.ErrOrderStatusStale
	}
	stored.Status = order.Status
	stored.ExternalPaymentRef = order.ExternalPaymentRef
	stored.UpdatedAt = order.UpdatedAt
	return nil
}

type recordingPublisher struct {
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.OrderEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
