package handlers

import (
	"finance_ledger/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	DB     *pgxpool.Pool
	Ledger *service.LedgerService
	Auth   *service.AuthService
}

func NewHandler(db *pgxpool.Pool, ledger *service.LedgerService, auth *service.AuthService) *Handler {
	return &Handler{
		DB:     db,
		Ledger: ledger,
		Auth:   auth,
	}
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c interface{ Get(any) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	uid, ok := uidVal.(int64)
	return uid, ok
}
