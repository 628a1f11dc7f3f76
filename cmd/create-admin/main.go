package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/service"
)

func main() {
	email := flag.String("email", "", "admin email")
	name := flag.String("name", "Admin", "display name")
	password := flag.String("password", "", "admin password (or ADMIN_PASSWORD)")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -email admin@example.com -password secret [-name Admin]")
		os.Exit(2)
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	user, err := createAdmin(ctx, repository.NewUserRepository(dbService.DB()), *email, *name, *password, cfg.Auth.Pepper)
	if err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			log.Error("Admin already exists", zap.String("email", *email))
			os.Exit(1)
		}
		log.Fatal("Failed to create admin", zap.Error(err))
	}

	log.Info("Admin created", zap.String("id", user.ID.String()), zap.String("email", user.Email))
}

func createAdmin(ctx context.Context, users repository.UserRepository, email, name, password, pepper string) (*domain.User, error) {
	hash, err := service.HashPassword(password, pepper)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        strings.TrimSpace(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
