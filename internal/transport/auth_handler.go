package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/service"
)

// LoginRequest represents the login request payload. Emptiness is checked by the service.
type LoginRequest struct {
	Email    string `json:"email" validate:"max=320"`
	Password string `json:"password" validate:"max=256"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	User        UserProfile `json:"user"`
}

// UserProfile represents user profile data
type UserProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AuthHandler handles login and session lookups
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth routes. loginLimiter guards the login endpoint.
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware, loginLimiter func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.With(loginLimiter).Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/me", h.Me)
		})
	})
}

// Login handles credential verification and returns a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	accessToken, result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to login")
		return
	}

	h.logger.Info("User logged in", zap.String("user_id", result.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken: accessToken,
		User: UserProfile{
			ID:    result.ID.String(),
			Email: result.Email,
			Name:  result.Name,
			Role:  result.Role,
		},
	})
}

// Me returns the profile of the session user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	rawID, _ := middleware.GetUserID(r.Context())
	userID, err := uuid.Parse(rawID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err, "failed to get profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, UserProfile{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	})
}
