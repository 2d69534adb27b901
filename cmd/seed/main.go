// seed creates an admin account, or promotes an existing one. The HTTP API
// only ever creates standard users.
// Run: ADMIN_EMAIL=root@example.com ADMIN_PASSWORD=... go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ErlanBelekov/auth-service/internal/domain"
	"github.com/ErlanBelekov/auth-service/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/auth-service/internal/password"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type seedConfig struct {
	DatabaseURL   string `env:"DATABASE_URL,required" validate:"required"`
	AdminName     string `env:"ADMIN_NAME"            envDefault:"Administrator" validate:"required"`
	AdminEmail    string `env:"ADMIN_EMAIL,required"  validate:"required,email"`
	AdminPassword string `env:"ADMIN_PASSWORD,required" validate:"required,min=6,max=64"`
	BcryptCost    int    `env:"BCRYPT_COST"           envDefault:"10" validate:"min=4,max=31"`
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		log.Fatalf("invalid seed config: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool)

	user, err := repo.FindByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		fmt.Printf("User %s already exists, promoting\n", user.Email)
	case errors.Is(err, domain.ErrUserNotFound):
		digest, err := password.NewHasher(cfg.BcryptCost).Hash(cfg.AdminPassword)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		user, err = repo.Create(ctx, &domain.User{
			Name:         cfg.AdminName,
			Email:        cfg.AdminEmail,
			PasswordHash: digest,
			Role:         domain.RoleUser,
		})
		if err != nil {
			log.Fatalf("create admin: %v", err)
		}
		fmt.Printf("Created user %s\n", user.Email)
	default:
		log.Fatalf("find admin: %v", err)
	}

	if err := repo.SetRole(ctx, user.ID, domain.RoleAdmin); err != nil {
		log.Fatalf("promote admin: %v", err)
	}

	fmt.Println()
	fmt.Printf("  Admin ID:    %s\n", user.ID)
	fmt.Printf("  Admin email: %s\n", user.Email)
	fmt.Println()
	fmt.Println("Log in with:")
	fmt.Println()
	fmt.Printf("  curl -s -X POST http://localhost:8000/api/auth/login \\\n")
	fmt.Printf("    -H 'Content-Type: application/json' \\\n")
	fmt.Printf("    -d '{\"email\":\"%s\",\"password\":\"...\"}'\n", user.Email)
}
