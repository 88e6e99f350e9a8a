package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"finance_ledger/internal/db"
	"finance_ledger/internal/repository"
	"finance_ledger/internal/service"
)

// End-to-end smoke: register a user, subscribe to change events over
// the WebSocket, create a transaction through the API and expect the
// "transaction created" notification. Needs a running server.
func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	service.InitJWT()

	users := repository.NewUserRepository(pool)
	auth := service.NewAuthService(users)
	ctx := context.Background()

	email := "smoke@example.com"
	password := "smoke-password"

	_, token, err := auth.Register(ctx, email, "Smoke", password)
	if errors.Is(err, repository.ErrEmailTaken) {
		_, token, err = auth.Login(ctx, email, password)
	}
	if err != nil {
		log.Fatalf("prepare user: %v", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	wsURL := fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	body, _ := json.Marshal(map[string]any{
		"amount":      1500,
		"type":        "income",
		"category":    "salary",
		"description": "smoke test income",
	})
	req, _ := http.NewRequest(http.MethodPost,
		fmt.Sprintf("http://127.0.0.1:%s/api/v1/transactions", port), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("create transaction: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("create transaction: unexpected status %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		log.Fatalf("read event: %v", err)
	}

	var evt map[string]any
	_ = json.Unmarshal(msg, &evt)
	if evt["event"] != "transaction created" {
		log.Fatalf("unexpected event: %s", string(msg))
	}

	log.Printf("got: %s", string(msg))
	log.Println("smoke test finished")
}
