package transport

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/middleware"
	"storefront/internal/service"
)

const maxCartIDLength = 128

// AddItemRequest adds a product variant to a cart
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID int64  `json:"variant_id" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"lte=999"`
}

// UpdateItemRequest sets the quantity of a cart line
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"lte=999"`
}

// CartResponse is a cart with its derived totals
type CartResponse struct {
	ID    string          `json:"id"`
	Items []cart.LineItem `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

func newCartResponse(c cart.Cart) CartResponse {
	items := c.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return CartResponse{
		ID:    c.ID,
		Items: items,
		Total: c.Total(),
		Count: c.Count(),
	}
}

// CartHandler serves shopper carts
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers the cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart/{cartID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{itemID}", h.UpdateItem)
		r.Delete("/items/{itemID}", h.RemoveItem)
	})
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	c, err := h.cartService.Get(r.Context(), cartID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to load cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	if err := h.cartService.Clear(r.Context(), cartID); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product_id")
		return
	}

	c, err := h.cartService.AddItem(r.Context(), cartID, productID, req.VariantID, req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to add item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	c, err := h.cartService.UpdateQuantity(r.Context(), cartID, chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to update item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}

	c, err := h.cartService.RemoveItem(r.Context(), cartID, chi.URLParam(r, "itemID"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to remove item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(c))
}

// cartIDParam accepts any client-chosen id up to maxCartIDLength.
func cartIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	cartID := strings.TrimSpace(chi.URLParam(r, "cartID"))
	if cartID == "" || len(cartID) > maxCartIDLength {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart id")
		return "", false
	}
	return cartID, true
}
