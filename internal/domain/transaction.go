package domain

import "time"

// TransactionType - направление движения средств
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is a single ledger record. Amount is stored in minor
// units and is always non-negative; the sign of the balance effect is
// carried by Type.
type Transaction struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	Amount      int64           `db:"amount" json:"amount"`
	Type        TransactionType `db:"type" json:"type"`
	Category    string          `db:"category" json:"category"`
	Description string          `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// TransactionFilter narrows a listing; zero values mean "no constraint".
// Predicates combine with AND, always scoped to one user.
type TransactionFilter struct {
	Type     TransactionType
	Category string
	From     *time.Time
	To       *time.Time
}

// Summary is the per-user aggregate over the full transaction set.
type Summary struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}
