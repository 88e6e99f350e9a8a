package repository

import (
	"context"
	"errors"

	"finance_ledger/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id, created_at`,
		u.Email, u.Name, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, email, name, password_hash, balance, ledger_seq, created_at
		 FROM users
		 WHERE email = $1`,
		email,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, email, name, password_hash, balance, ledger_seq, created_at
		 FROM users
		 WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

// LedgerSeq returns the user's current mutation sequence token.
func (r *UserRepository) LedgerSeq(ctx context.Context, userID int64) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `SELECT ledger_seq FROM users WHERE id = $1`, userID).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return seq, err
}

// OverwriteBalanceIfSeq writes a recomputed balance, guarded by the
// ledger sequence the recomputation was derived from. Returns false
// when a mutation landed in between; that mutation's own queued job
// carries the fresher value, so losing the race is safe.
func (r *UserRepository) OverwriteBalanceIfSeq(ctx context.Context, userID, value, seq int64) (bool, error) {
	res, err := r.db.Exec(ctx,
		`UPDATE users SET balance = $1 WHERE id = $2 AND ledger_seq = $3`,
		value, userID, seq,
	)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Balance,
		&u.LedgerSeq,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
