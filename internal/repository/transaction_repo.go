package repository

import (
	"context"
	"errors"
	"strconv"

	"finance_ledger/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("transaction not found")

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const txnColumns = `id, user_id, amount, type, category, COALESCE(description, ''), created_at, updated_at`

func scanTxn(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Amount,
		&t.Type,
		&t.Category,
		&t.Description,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetByID returns a transaction scoped to its owner. Ownership is part
// of the lookup itself, so a foreign transaction is indistinguishable
// from a missing one.
func (r *TransactionRepository) GetByID(ctx context.Context, id, userID int64) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return scanTxn(row)
}

// Insert writes the transaction and applies the inline balance delta in
// one database transaction, bumping the owner's ledger sequence.
func (r *TransactionRepository) Insert(ctx context.Context, t *domain.Transaction, delta int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (user_id, amount, type, category, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		t.UserID, t.Amount, t.Type, t.Category, t.Description,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}

	if err := applyBalanceDelta(ctx, tx, t.UserID, delta); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update rewrites the row and applies the balance delta atomically.
func (r *TransactionRepository) Update(ctx context.Context, t *domain.Transaction, delta int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`UPDATE transactions
		 SET amount = $1, type = $2, category = $3, description = $4, updated_at = now()
		 WHERE id = $5 AND user_id = $6
		 RETURNING updated_at`,
		t.Amount, t.Type, t.Category, t.Description, t.ID, t.UserID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if err := applyBalanceDelta(ctx, tx, t.UserID, delta); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes the row and applies the balance delta atomically.
func (r *TransactionRepository) Delete(ctx context.Context, id, userID int64, delta int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := tx.Exec(ctx,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := applyBalanceDelta(ctx, tx, userID, delta); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// applyBalanceDelta is the only inline mutation of the cached balance:
// an atomic increment on the row, never a read-modify-write. The ledger
// sequence bump invalidates any in-flight recomputation result.
func applyBalanceDelta(ctx context.Context, tx pgx.Tx, userID, delta int64) error {
	res, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance + $1, ledger_seq = ledger_seq + 1 WHERE id = $2`,
		delta, userID,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListByUser returns one page of the user's transactions, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, page, limit int) ([]*domain.Transaction, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit

	rows, err := r.db.Query(ctx,
		`SELECT `+txnColumns+`
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTxns(rows)
}

// Filter applies the optional predicates with AND semantics, scoped to
// the user, newest first.
func (r *TransactionRepository) Filter(ctx context.Context, userID int64, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}

	if f.Type != "" {
		args = append(args, f.Type)
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTxns(rows)
}

// ListAllByUser returns the complete transaction set for a user,
// the input to a full balance recomputation.
func (r *TransactionRepository) ListAllByUser(ctx context.Context, userID int64) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTxns(rows)
}

// SumByType returns the grouped amount sums for a user.
func (r *TransactionRepository) SumByType(ctx context.Context, userID int64) (domain.Summary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT type, COALESCE(SUM(amount), 0)
		 FROM transactions
		 WHERE user_id = $1
		 GROUP BY type`,
		userID,
	)
	if err != nil {
		return domain.Summary{}, err
	}
	defer rows.Close()

	var s domain.Summary
	for rows.Next() {
		var (
			typ domain.TransactionType
			sum int64
		)
		if err := rows.Scan(&typ, &sum); err != nil {
			return domain.Summary{}, err
		}
		switch typ {
		case domain.TypeIncome:
			s.Income = sum
		case domain.TypeExpense:
			s.Expense = sum
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Summary{}, err
	}

	s.Balance = s.Income - s.Expense
	return s, nil
}

func collectTxns(rows pgx.Rows) ([]*domain.Transaction, error) {
	var result []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Amount,
			&t.Type,
			&t.Category,
			&t.Description,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}
