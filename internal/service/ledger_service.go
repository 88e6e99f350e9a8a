package service

import (
	"context"
	"errors"

	"finance_ledger/internal/balance"
	"finance_ledger/internal/domain"
	"finance_ledger/internal/logger"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
)

// Change notification event names, as delivered to WebSocket listeners.
const (
	EventCreated = "transaction created"
	EventUpdated = "transaction updated"
	EventRemoved = "transaction removed"
)

// Store is the transaction side of the ledger store. Mutations apply
// the row write and the inline balance delta atomically.
type Store interface {
	GetByID(ctx context.Context, id, userID int64) (*domain.Transaction, error)
	Insert(ctx context.Context, t *domain.Transaction, delta int64) error
	Update(ctx context.Context, t *domain.Transaction, delta int64) error
	Delete(ctx context.Context, id, userID int64, delta int64) error
	ListByUser(ctx context.Context, userID int64, page, limit int) ([]*domain.Transaction, error)
	Filter(ctx context.Context, userID int64, f domain.TransactionFilter) ([]*domain.Transaction, error)
	SumByType(ctx context.Context, userID int64) (domain.Summary, error)
}

// Cache fronts the paged listing reads.
type Cache interface {
	GetPage(ctx context.Context, userID int64, page, limit int) ([]*domain.Transaction, bool)
	SetPage(ctx context.Context, userID int64, page, limit int, txns []*domain.Transaction)
	InvalidateUser(ctx context.Context, userID int64)
}

// Enqueuer is the producer side of the recalculation queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID int64) error
}

// Notifier broadcasts change events, best effort.
type Notifier interface {
	Broadcast(event string, payload any)
}

// LedgerService owns the balance consistency contract. Every mutation,
// in order: persist the row together with the inline balance delta in
// one store transaction (read-your-write consistency), invalidate the
// user's cached listing pages, enqueue a full recalculation as the
// drift backstop, then broadcast the change event. The recalculation,
// being derived from the authoritative transaction set, always wins
// over the incremental value when the two race (sequence-guarded
// overwrite in the store).
type LedgerService struct {
	store    Store
	cache    Cache
	queue    Enqueuer
	notifier Notifier
}

func NewLedgerService(store Store, cache Cache, queue Enqueuer, notifier Notifier) *LedgerService {
	return &LedgerService{
		store:    store,
		cache:    cache,
		queue:    queue,
		notifier: notifier,
	}
}

type CreateInput struct {
	Amount      int64                  `json:"amount"`
	Type        domain.TransactionType `json:"type"`
	Category    string                 `json:"category"`
	Description string                 `json:"description"`
}

// UpdateInput carries the fields of a partial update; nil means keep.
type UpdateInput struct {
	Amount      *int64                  `json:"amount"`
	Type        *domain.TransactionType `json:"type"`
	Category    *string                 `json:"category"`
	Description *string                 `json:"description"`
}

func (s *LedgerService) Create(ctx context.Context, userID int64, in CreateInput) (*domain.Transaction, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidType
	}
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	t := &domain.Transaction{
		UserID:      userID,
		Amount:      in.Amount,
		Type:        in.Type,
		Category:    in.Category,
		Description: in.Description,
	}

	if err := s.store.Insert(ctx, t, balance.Delta(nil, t)); err != nil {
		return nil, err
	}

	s.finishMutation(ctx, userID, EventCreated, t)
	return t, nil
}

func (s *LedgerService) Update(ctx context.Context, userID, id int64, in UpdateInput) (*domain.Transaction, error) {
	before, err := s.store.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	after := *before
	if in.Amount != nil {
		after.Amount = *in.Amount
	}
	if in.Type != nil {
		after.Type = *in.Type
	}
	if in.Category != nil {
		after.Category = *in.Category
	}
	if in.Description != nil {
		after.Description = *in.Description
	}

	if !after.Type.Valid() {
		return nil, ErrInvalidType
	}
	if after.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if err := s.store.Update(ctx, &after, balance.Delta(before, &after)); err != nil {
		return nil, err
	}

	s.finishMutation(ctx, userID, EventUpdated, &after)
	return &after, nil
}

func (s *LedgerService) Delete(ctx context.Context, userID, id int64) (*domain.Transaction, error) {
	before, err := s.store.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, id, userID, balance.Delta(before, nil)); err != nil {
		return nil, err
	}

	s.finishMutation(ctx, userID, EventRemoved, before)
	return before, nil
}

// finishMutation runs the post-commit steps. None of them may fail the
// mutation: the row and the inline delta are already durable.
func (s *LedgerService) finishMutation(ctx context.Context, userID int64, event string, t *domain.Transaction) {
	s.cache.InvalidateUser(ctx, userID)

	if err := s.queue.Enqueue(ctx, userID); err != nil {
		// The inline delta is applied, but the self-healing backstop
		// for this mutation is lost until the user's next mutation.
		logger.Error("recalculation enqueue failed, drift correction postponed",
			"user_id", userID, "transaction_id", t.ID, "error", err)
	}

	s.notifier.Broadcast(event, t)
}

func (s *LedgerService) Get(ctx context.Context, userID, id int64) (*domain.Transaction, error) {
	return s.store.GetByID(ctx, id, userID)
}

// List returns one page of the user's transactions, newest first,
// served from cache when possible.
func (s *LedgerService) List(ctx context.Context, userID int64, page, limit int) ([]*domain.Transaction, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	if txns, ok := s.cache.GetPage(ctx, userID, page, limit); ok {
		return txns, nil
	}

	txns, err := s.store.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	s.cache.SetPage(ctx, userID, page, limit, txns)
	return txns, nil
}

func (s *LedgerService) Filter(ctx context.Context, userID int64, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, ErrInvalidType
	}
	return s.store.Filter(ctx, userID, f)
}

// Summary reports the grouped sums and derived balance straight from
// the transaction set, bypassing the cached balance field.
func (s *LedgerService) Summary(ctx context.Context, userID int64) (domain.Summary, error) {
	return s.store.SumByType(ctx, userID)
}
