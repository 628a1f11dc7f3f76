package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/query"
	"storefront/internal/service"
)

// ProductPageSize is the default catalog page size.
const ProductPageSize = 14

// VariantRequest is one variant in a product payload. Money fields accept JSON numbers or numeric strings.
type VariantRequest struct {
	VariantID        int64           `json:"variant_id" validate:"gte=0"`
	SKU              string          `json:"sku" validate:"max=100"`
	Label            string          `json:"label" validate:"max=100"`
	Color            string          `json:"color" validate:"max=100"`
	Price            decimal.Decimal `json:"price"`
	PromotionalPrice decimal.Decimal `json:"promotional_price"`
	StockTotal       int             `json:"stock_total" validate:"gte=0"`
	ImageURL         string          `json:"image_url" validate:"omitempty,url"`
	Visible          *bool           `json:"visible"`
	Weight           decimal.Decimal `json:"weight"`
}

// ProductRequest represents the product create/update payload
type ProductRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description" validate:"max=5000"`
	Brand       string           `json:"brand" validate:"required,max=100"`
	Category    string           `json:"category" validate:"required,max=100"`
	Images      []string         `json:"images" validate:"dive,url"`
	Price       decimal.Decimal  `json:"price"`
	Variants    []VariantRequest `json:"variants" validate:"dive"`
}

// ProductListResponse is one catalog page
type ProductListResponse struct {
	Products   []*domain.Product `json:"products"`
	Pagination query.Page        `json:"pagination"`
}

func (req ProductRequest) toInput() service.ProductInput {
	variants := make([]domain.Variant, 0, len(req.Variants))
	for _, v := range req.Variants {
		visible := true
		if v.Visible != nil {
			visible = *v.Visible
		}
		variants = append(variants, domain.Variant{
			VariantID:        v.VariantID,
			SKU:              v.SKU,
			Label:            v.Label,
			Color:            v.Color,
			Price:            v.Price,
			PromotionalPrice: v.PromotionalPrice,
			StockTotal:       v.StockTotal,
			ImageURL:         v.ImageURL,
			Visible:          visible,
			Weight:           v.Weight,
		})
	}

	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Brand:       req.Brand,
		Category:    req.Category,
		Images:      req.Images,
		BasePrice:   req.Price,
		Variants:    variants,
	}
}

// ProductHandler handles catalog requests
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers public catalog routes and admin product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})

	r.Route("/api/admin/products", func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := query.ParseFilters(r.URL.Query(), ProductPageSize)
	filters.Status = ""

	products, page, err := h.productService.List(r.Context(), filters)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{Products: products, Pagination: page})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to get product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.productService.Create(r.Context(), req.toInput())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to create product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.productService.Update(r.Context(), id, req.toInput())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to update product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
