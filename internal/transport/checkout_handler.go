package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/checkout"
	"storefront/internal/middleware"
)

const maxIdempotencyKeyLength = 100

// CheckoutService submits carts as orders
type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// CustomerRequest is the shopper form. Rule checks happen in the assembler so the first violation wins.
type CustomerRequest struct {
	Name           string `json:"name" validate:"max=255"`
	DNI            string `json:"dni" validate:"max=20"`
	DeliveryMethod string `json:"delivery_method" validate:"max=20"`
	Address        string `json:"address" validate:"max=255"`
	PostalCode     string `json:"postal_code" validate:"max=20"`
	Province       string `json:"province" validate:"max=100"`
	City           string `json:"city" validate:"max=100"`
	Branch         string `json:"branch" validate:"max=255"`
}

// CheckoutRequest represents the checkout payload
type CheckoutRequest struct {
	CartID   string          `json:"cart_id" validate:"required,max=128"`
	TokenID  string          `json:"token_id" validate:"max=255"`
	Customer CustomerRequest `json:"customer"`
}

// CheckoutHandler serves the checkout endpoint
type CheckoutHandler struct {
	checkoutService CheckoutService
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers the checkout route behind limiter
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.With(limiter).Post("/api/checkout", h.Checkout)
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(idempotencyKey) > maxIdempotencyKeyLength {
		middleware.RespondWithError(w, http.StatusBadRequest, "Idempotency-Key too long")
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	tokenID := strings.TrimSpace(req.TokenID)
	if tokenID == "" {
		tokenID = strings.TrimSpace(r.Header.Get("X-Checkout-Token"))
	}

	c := req.Customer
	result, err := h.checkoutService.Checkout(r.Context(), checkout.Request{
		CartID:         strings.TrimSpace(req.CartID),
		TokenID:        tokenID,
		IdempotencyKey: idempotencyKey,
		Customer: checkout.Customer{
			Name:           c.Name,
			DNI:            c.DNI,
			DeliveryMethod: c.DeliveryMethod,
			Address:        c.Address,
			PostalCode:     c.PostalCode,
			Province:       c.Province,
			City:           c.City,
			Branch:         c.Branch,
		},
	})
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to submit order")
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	middleware.RespondWithJSON(w, status, result)
}
