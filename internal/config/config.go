package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Checkout  CheckoutConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	SessionExpiry int // in hours
}

// AuthConfig drives the login throttling policy.
type AuthConfig struct {
	Pepper          string
	MaxFailedLogins int
	LockoutMinutes  int
}

type CheckoutConfig struct {
	TokenURL      string
	WebhookURL    string
	RedirectURL   string
	Timeout       time.Duration
	CartTTL       time.Duration
	LocationsFile string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RateLimitConfig struct {
	LoginRequests    int
	LoginWindow      time.Duration
	CheckoutRequests int
	CheckoutWindow   time.Duration
}

func Load() *Config {
	// .env values land in the process environment so viper.AutomaticEnv sees them too.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return fromViper()
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_SESSION_EXPIRY", 24)
	viper.SetDefault("AUTH_MAX_FAILED_LOGINS", 5)
	viper.SetDefault("AUTH_LOCKOUT_MINUTES", 30)
	viper.SetDefault("CHECKOUT_TOKEN_URL", "http://localhost:3000/token")
	viper.SetDefault("CHECKOUT_REDIRECT_URL", "https://wa.me/+5493816592823")
	viper.SetDefault("CHECKOUT_TIMEOUT", "10s")
	viper.SetDefault("CHECKOUT_CART_TTL", "24h")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "storefront.order.events")
	viper.SetDefault("RATE_LIMIT_LOGIN_REQUESTS", 10)
	viper.SetDefault("RATE_LIMIT_LOGIN_WINDOW", "1m")
	viper.SetDefault("RATE_LIMIT_CHECKOUT_REQUESTS", 20)
	viper.SetDefault("RATE_LIMIT_CHECKOUT_WINDOW", "1m")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			SessionExpiry: viper.GetInt("JWT_SESSION_EXPIRY"),
		},
		Auth: AuthConfig{
			Pepper:          viper.GetString("AUTH_PASSWORD_PEPPER"),
			MaxFailedLogins: viper.GetInt("AUTH_MAX_FAILED_LOGINS"),
			LockoutMinutes:  viper.GetInt("AUTH_LOCKOUT_MINUTES"),
		},
		Checkout: CheckoutConfig{
			TokenURL:      viper.GetString("CHECKOUT_TOKEN_URL"),
			WebhookURL:    viper.GetString("CHECKOUT_WEBHOOK_URL"),
			RedirectURL:   viper.GetString("CHECKOUT_REDIRECT_URL"),
			Timeout:       viper.GetDuration("CHECKOUT_TIMEOUT"),
			CartTTL:       viper.GetDuration("CHECKOUT_CART_TTL"),
			LocationsFile: viper.GetString("CHECKOUT_LOCATIONS_FILE"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		RateLimit: RateLimitConfig{
			LoginRequests:    viper.GetInt("RATE_LIMIT_LOGIN_REQUESTS"),
			LoginWindow:      viper.GetDuration("RATE_LIMIT_LOGIN_WINDOW"),
			CheckoutRequests: viper.GetInt("RATE_LIMIT_CHECKOUT_REQUESTS"),
			CheckoutWindow:   viper.GetDuration("RATE_LIMIT_CHECKOUT_WINDOW"),
		},
	}
}

// IsDevelopment reports whether the server runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

// SessionTTL returns the lifetime of issued session tokens.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.JWT.SessionExpiry) * time.Hour
}

// LockoutDuration returns how long an account stays locked after too many failures.
func (c *Config) LockoutDuration() time.Duration {
	return time.Duration(c.Auth.LockoutMinutes) * time.Minute
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.SessionExpiry <= 0 {
		errs = append(errs, errors.New("JWT_SESSION_EXPIRY must be positive"))
	}
	if c.Auth.MaxFailedLogins <= 0 {
		errs = append(errs, errors.New("AUTH_MAX_FAILED_LOGINS must be positive"))
	}
	if c.Auth.LockoutMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_LOCKOUT_MINUTES must be positive"))
	}
	if c.Checkout.WebhookURL == "" {
		errs = append(errs, errors.New("CHECKOUT_WEBHOOK_URL is required"))
	}
	if c.Checkout.TokenURL == "" {
		errs = append(errs, errors.New("CHECKOUT_TOKEN_URL is required"))
	}
	if c.Checkout.Timeout <= 0 {
		errs = append(errs, errors.New("CHECKOUT_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
