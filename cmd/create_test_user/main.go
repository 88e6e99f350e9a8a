package main

import (
	"context"
	"errors"
	"log"
	"os"

	"finance_ledger/internal/db"
	"finance_ledger/internal/repository"
	"finance_ledger/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	// expects DATABASE_URL and JWT_SECRET env vars
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	service.InitJWT()

	users := repository.NewUserRepository(pool)
	auth := service.NewAuthService(users)
	ctx := context.Background()

	email := "test@example.com"
	password := "test-password"

	u, token, err := auth.Register(ctx, email, "Tester", password)
	if errors.Is(err, repository.ErrEmailTaken) {
		u, token, err = auth.Login(ctx, email, password)
		if err != nil {
			log.Fatalf("login existing user failed: %v", err)
		}
		log.Printf("user already exists id=%d\n", u.ID)
	} else if err != nil {
		log.Fatalf("create user failed: %v", err)
	} else {
		log.Printf("user created id=%d\n", u.ID)
	}

	// verify read
	u2, err := users.GetByID(ctx, u.ID)
	if err != nil {
		log.Fatalf("get by id failed: %v", err)
	}
	log.Printf("fetched user id=%d email=%s balance=%d created_at=%v\n", u2.ID, u2.Email, u2.Balance, u2.CreatedAt)

	log.Printf("token=%s\n", token)
}
