package transport

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/query"
	"storefront/internal/service"
)

// StatusUpdateRequest moves an order to another status
type StatusUpdateRequest struct {
	Status             string `json:"status" validate:"required,max=20"`
	ExternalPaymentRef string `json:"external_payment_ref" validate:"max=255"`
}

type OrderListResponse struct {
	Orders     []*domain.Order `json:"orders"`
	Pagination query.Page      `json:"pagination"`
}

// OrderHandler serves the admin order views
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers the admin order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Route("/api/admin/orders", func(r chi.Router) {
		r.Use(adminOnly)
		r.Get("/", h.List)
		r.Get("/{orderID}", h.Get)
		r.Patch("/{orderID}/status", h.UpdateStatus)
	})
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	f := query.ParseFilters(r.URL.Query(), query.DefaultLimit)
	filters := query.Filters{Search: f.Search, Status: f.Status, Page: f.Page, Limit: f.Limit}

	orders, page, err := h.orderService.List(r.Context(), filters)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, OrderListResponse{Orders: orders, Pagination: page})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.Get(r.Context(), orderID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to get order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, service.StatusUpdate{
		Status:             req.Status,
		ExternalPaymentRef: req.ExternalPaymentRef,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to update order status")
		return
	}

	actor, _ := middleware.GetUserID(r.Context())
	h.logger.Info("Order status updated",
		zap.String("order_id", order.OrderID),
		zap.String("status", string(order.Status)),
		zap.String("actor", actor),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" || len(orderID) > 100 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return "", false
	}
	return orderID, true
}
