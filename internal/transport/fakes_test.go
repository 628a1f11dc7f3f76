package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/query"
	"storefront/internal/service"
)

const testSecret = "transport-test-secret"

func passthrough(next http.Handler) http.Handler { return next }

func doRequest(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func signToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newRouter() chi.Router {
	return chi.NewRouter()
}

type fakeAuthService struct {
	user  *domain.User
	token string
	err   error
}

func (f *fakeAuthService) Authenticate(ctx context.Context, email, password string) (*service.AuthResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.AuthResult{ID: f.user.ID, Email: f.user.Email, Name: f.user.Name, Role: f.user.Role}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, *service.AuthResult, error) {
	result, err := f.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	return f.token, result, nil
}

func (f *fakeAuthService) ValidateToken(tokenString string) (*service.Claims, error) {
	return nil, service.ErrInvalidToken
}

func (f *fakeAuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if f.user == nil || f.user.ID != userID {
		return nil, domain.NewNotFoundError("user not found")
	}
	return f.user, nil
}

type fakeProductService struct {
	products    map[uuid.UUID]*domain.Product
	lastInput   service.ProductInput
	lastFilters query.Filters
	err         error
}

func newFakeProductService() *fakeProductService {
	return &fakeProductService{products: make(map[uuid.UUID]*domain.Product)}
}

func (f *fakeProductService) Create(ctx context.Context, in service.ProductInput) (*domain.Product, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	p := &domain.Product{ID: uuid.New(), Name: in.Name, Brand: in.Brand, Category: in.Category, Price: in.BasePrice, Variants: in.Variants}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductService) Update(ctx context.Context, id uuid.UUID, in service.ProductInput) (*domain.Product, error) {
	f.lastInput = in
	p, ok := f.products[id]
	if !ok {
		return nil, service.ErrProductNotFound
	}
	p.Name = in.Name
	return p, nil
}

func (f *fakeProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.products[id]; !ok {
		return service.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProductService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, service.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductService) List(ctx context.Context, filters query.Filters) ([]*domain.Product, query.Page, error) {
	f.lastFilters = filters
	if f.err != nil {
		return nil, query.Page{}, f.err
	}
	out := make([]*domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	plan := query.Build(filters)
	return out, query.NewPage(plan, len(out)), nil
}

type fakeTagService struct {
	categories  map[uuid.UUID]*domain.Category
	lastFilters query.Filters
	deleteErr   error
}

func newFakeTagService() *fakeTagService {
	return &fakeTagService{categories: make(map[uuid.UUID]*domain.Category)}
}

func (f *fakeTagService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, name) {
			return nil, service.ErrCategoryExists
		}
	}
	c := &domain.Category{ID: uuid.New(), Name: name}
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeTagService) UpdateCategory(ctx context.Context, id uuid.UUID, name string) (*domain.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, service.ErrCategoryNotFound
	}
	c.Name = name
	return c, nil
}

func (f *fakeTagService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeTagService) ListCategories(ctx context.Context, filters query.Filters) ([]*domain.Category, query.Page, error) {
	f.lastFilters = filters
	out := make([]*domain.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	return out, query.NewPage(query.Build(filters), len(out)), nil
}

func (f *fakeTagService) CreateBrand(ctx context.Context, name, imageURL string) (*domain.Brand, error) {
	return &domain.Brand{ID: uuid.New(), Name: name, ImageURL: imageURL}, nil
}

func (f *fakeTagService) UpdateBrand(ctx context.Context, id uuid.UUID, name, imageURL string) (*domain.Brand, error) {
	return nil, service.ErrBrandNotFound
}

func (f *fakeTagService) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	return service.ErrBrandInUse
}

func (f *fakeTagService) ListBrands(ctx context.Context, filters query.Filters) ([]*domain.Brand, query.Page, error) {
	f.lastFilters = filters
	return []*domain.Brand{}, query.NewPage(query.Build(filters), 0), nil
}

type fakeOrderService struct {
	orders      map[string]*domain.Order
	lastFilters query.Filters
	lastUpdate  service.StatusUpdate
}

func newFakeOrderService(orders ...*domain.Order) *fakeOrderService {
	f := &fakeOrderService{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		f.orders[o.OrderID] = o
	}
	return f
}

func (f *fakeOrderService) List(ctx context.Context, filters query.Filters) ([]*domain.Order, query.Page, error) {
	f.lastFilters = filters
	out := make([]*domain.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, query.NewPage(query.Build(filters), len(out)), nil
}

func (f *fakeOrderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, service.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderService) UpdateStatus(ctx context.Context, orderID string, update service.StatusUpdate) (*domain.Order, error) {
	f.lastUpdate = update
	o, ok := f.orders[orderID]
	if !ok {
		return nil, service.ErrOrderNotFound
	}
	next, err := domain.ParseOrderStatus(update.Status)
	if err != nil {
		return nil, err
	}
	if _, err := o.TransitionTo(next, time.Now()); err != nil {
		return nil, err
	}
	return o, nil
}

type fakeCartService struct {
	carts map[string]cart.Cart
	err   error
}

func newFakeCartService() *fakeCartService {
	return &fakeCartService{carts: make(map[string]cart.Cart)}
}

func (f *fakeCartService) Get(ctx context.Context, cartID string) (cart.Cart, error) {
	if c, ok := f.carts[cartID]; ok {
		return c, nil
	}
	return cart.New(cartID), nil
}

func (f *fakeCartService) AddItem(ctx context.Context, cartID string, productID uuid.UUID, variantID int64, quantity int) (cart.Cart, error) {
	if f.err != nil {
		return cart.Cart{}, f.err
	}
	c, _ := f.Get(ctx, cartID)
	c, err := c.AddItem(cart.LineItem{
		ID:         cart.LineID(productID, variantID),
		ProductID:  productID,
		VariantID:  variantID,
		Name:       "Item",
		UnitPrice:  dec("10.50"),
		Quantity:   quantity,
		StockLimit: 10,
	})
	if err != nil {
		return cart.Cart{}, err
	}
	f.carts[cartID] = c
	return c, nil
}

func (f *fakeCartService) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (cart.Cart, error) {
	c, _ := f.Get(ctx, cartID)
	c, err := c.UpdateQuantity(itemID, quantity)
	if err != nil {
		return cart.Cart{}, err
	}
	f.carts[cartID] = c
	return c, nil
}

func (f *fakeCartService) RemoveItem(ctx context.Context, cartID, itemID string) (cart.Cart, error) {
	c, _ := f.Get(ctx, cartID)
	c = c.RemoveItem(itemID)
	f.carts[cartID] = c
	return c, nil
}

func (f *fakeCartService) Clear(ctx context.Context, cartID string) error {
	delete(f.carts, cartID)
	return nil
}

type fakeCheckoutService struct {
	last   checkout.Request
	result *checkout.Result
	err    error
}

func (f *fakeCheckoutService) Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
