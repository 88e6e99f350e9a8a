package domain

import "time"

// User holds the cached derived balance. Balance is not authoritative:
// it is reconstructible from the transaction set at any time.
// LedgerSeq is bumped inside every transaction mutation and orders
// incremental updates against full recomputations.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Balance      int64     `db:"balance" json:"balance"`
	LedgerSeq    int64     `db:"ledger_seq" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
