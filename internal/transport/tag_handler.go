package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/query"
	"storefront/internal/service"
)

// CategoryRequest represents the category payload
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// BrandRequest represents the brand payload
type BrandRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

type CategoryListResponse struct {
	Categories []*domain.Category `json:"categories"`
	Pagination query.Page         `json:"pagination"`
}

type BrandListResponse struct {
	Brands     []*domain.Brand `json:"brands"`
	Pagination query.Page      `json:"pagination"`
}

// TagHandler handles category and brand requests
type TagHandler struct {
	tagService service.TagService
	logger     *zap.Logger
}

// NewTagHandler creates a new TagHandler
func NewTagHandler(tagService service.TagService, logger *zap.Logger) *TagHandler {
	return &TagHandler{
		tagService: tagService,
		logger:     logger,
	}
}

// RegisterRoutes registers public listings and admin tag management
func (h *TagHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Get("/api/categories", h.ListCategories)
	r.Get("/api/brands", h.ListBrands)

	r.Route("/api/admin/categories", func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/", h.CreateCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})

	r.Route("/api/admin/brands", func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/", h.CreateBrand)
		r.Put("/{id}", h.UpdateBrand)
		r.Delete("/{id}", h.DeleteBrand)
	})
}

func (h *TagHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, page, err := h.tagService.ListCategories(r.Context(), tagFilters(r))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to list categories")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, CategoryListResponse{Categories: categories, Pagination: page})
}

func (h *TagHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.tagService.CreateCategory(r.Context(), req.Name)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to create category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *TagHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.tagService.UpdateCategory(r.Context(), id, req.Name)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to update category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *TagHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.tagService.DeleteCategory(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TagHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, page, err := h.tagService.ListBrands(r.Context(), tagFilters(r))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to list brands")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, BrandListResponse{Brands: brands, Pagination: page})
}

func (h *TagHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var req BrandRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	brand, err := h.tagService.CreateBrand(r.Context(), req.Name, req.ImageURL)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to create brand")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, brand)
}

func (h *TagHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req BrandRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	brand, err := h.tagService.UpdateBrand(r.Context(), id, req.Name, req.ImageURL)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to update brand")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, brand)
}

func (h *TagHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.tagService.DeleteBrand(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to delete brand")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tagFilters keeps only search and pagination; tags have no price, status or tag filters.
func tagFilters(r *http.Request) query.Filters {
	f := query.ParseFilters(r.URL.Query(), query.DefaultLimit)
	return query.Filters{Search: f.Search, Page: f.Page, Limit: f.Limit}
}
