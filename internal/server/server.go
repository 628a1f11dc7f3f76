package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/location"
	"storefront/internal/metrics"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        database.Service
	redis     *redis.Client
	publisher events.Publisher
}

// NewRedisClient connects to the cart and rate limit store.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewPublisher returns a Kafka publisher, or a no-op one when no brokers are configured.
func NewPublisher(cfg config.KafkaConfig, logger *zap.Logger) events.Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("Kafka brokers not configured, order events are disabled")
		return events.Noop{}
	}

	publisher, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic, logger)
	if err != nil {
		logger.Error("Failed to connect to Kafka, order events are disabled", zap.Error(err))
		return events.Noop{}
	}
	return publisher
}

func loadLocations(cfg config.CheckoutConfig) (*location.Directory, error) {
	if cfg.LocationsFile != "" {
		return location.Load(cfg.LocationsFile)
	}
	return location.Default()
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client, publisher events.Publisher) (*Server, error) {
	if publisher == nil {
		publisher = events.Noop{}
	}

	locations, err := loadLocations(cfg.Checkout)
	if err != nil {
		return nil, fmt.Errorf("failed to load pickup locations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegisterer(registry)

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", healthHandler(db, redisClient))
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Initialize repositories
	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	brandRepo := repository.NewBrandRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)
	cartStore := cart.NewRedisStore(redisClient, cfg.Checkout.CartTTL)

	// Initialize services
	authService := service.NewAuthService(userRepo, service.AuthOptions{
		JWTSecret:       cfg.JWT.Secret,
		Pepper:          cfg.Auth.Pepper,
		SessionTTL:      cfg.SessionTTL(),
		MaxFailedLogins: cfg.Auth.MaxFailedLogins,
		LockoutDuration: cfg.LockoutDuration(),
	}, m, logger)
	productService := service.NewProductService(productRepo, logger)
	tagService := service.NewTagService(categoryRepo, brandRepo, logger)
	orderService := service.NewOrderService(orderRepo, publisher, m, logger)
	cartService := service.NewCartService(cartStore, productRepo)

	httpClient := &http.Client{Timeout: cfg.Checkout.Timeout}
	checkoutService := checkout.NewService(checkout.Deps{
		Carts:       cartStore,
		Orders:      orderRepo,
		Tokens:      checkout.NewTokenSource(httpClient, cfg.Checkout.TokenURL),
		Webhook:     checkout.NewWebhook(httpClient, cfg.Checkout.WebhookURL),
		Locations:   locations,
		Publisher:   publisher,
		Metrics:     m,
		RedirectURL: cfg.Checkout.RedirectURL,
		Logger:      logger,
	})

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	requireAdmin := custommiddleware.RequireAdmin(logger)
	adminOnly := func(next http.Handler) http.Handler {
		return authMiddleware(requireAdmin(next))
	}

	loginLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.LoginRequests,
		Window:            cfg.RateLimit.LoginWindow,
		KeyPrefix:         "ratelimit:login",
	}, logger)
	checkoutLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.CheckoutRequests,
		Window:            cfg.RateLimit.CheckoutWindow,
		KeyPrefix:         "ratelimit:checkout",
	}, logger)

	// Register routes
	transport.NewAuthHandler(authService, logger).RegisterRoutes(router, authMiddleware, loginLimiter)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router, adminOnly)
	transport.NewTagHandler(tagService, logger).RegisterRoutes(router, adminOnly)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, adminOnly)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router)
	transport.NewCheckoutHandler(checkoutService, logger).RegisterRoutes(router, checkoutLimiter)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		publisher: publisher,
	}

	return server, nil
}

func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbHealth := db.Health(ctx)
		redisStatus := "up"
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}

		status := http.StatusOK
		overall := "ok"
		if dbHealth["status"] != "up" || redisStatus != "up" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}

		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"status":   overall,
			"database": dbHealth,
			"redis":    redisStatus,
		})
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.publisher.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
