package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finance_ledger/internal/domain"
	"finance_ledger/internal/repository"
	"finance_ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type memStore struct {
	txns    map[int64]*domain.Transaction
	balance int64
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{txns: map[int64]*domain.Transaction{}}
}

func (m *memStore) GetByID(ctx context.Context, id, userID int64) (*domain.Transaction, error) {
	t, ok := m.txns[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) Insert(ctx context.Context, t *domain.Transaction, delta int64) error {
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.txns[t.ID] = &cp
	m.balance += delta
	return nil
}

func (m *memStore) Update(ctx context.Context, t *domain.Transaction, delta int64) error {
	if _, ok := m.txns[t.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *t
	m.txns[t.ID] = &cp
	m.balance += delta
	return nil
}

func (m *memStore) Delete(ctx context.Context, id, userID int64, delta int64) error {
	if _, ok := m.txns[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.txns, id)
	m.balance += delta
	return nil
}

func (m *memStore) ListByUser(ctx context.Context, userID int64, page, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range m.txns {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) Filter(ctx context.Context, userID int64, _ domain.TransactionFilter) ([]*domain.Transaction, error) {
	return m.ListByUser(ctx, userID, 0, 0)
}

func (m *memStore) SumByType(ctx context.Context, userID int64) (domain.Summary, error) {
	var s domain.Summary
	for _, t := range m.txns {
		if t.UserID != userID {
			continue
		}
		if t.Type == domain.TypeIncome {
			s.Income += t.Amount
		} else {
			s.Expense += t.Amount
		}
	}
	s.Balance = s.Income - s.Expense
	return s, nil
}

type noopCache struct{}

func (noopCache) GetPage(context.Context, int64, int, int) ([]*domain.Transaction, bool) {
	return nil, false
}
func (noopCache) SetPage(context.Context, int64, int, int, []*domain.Transaction) {}
func (noopCache) InvalidateUser(context.Context, int64)                           {}

type noopQueue struct{}

func (noopQueue) Enqueue(context.Context, int64) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Broadcast(string, any) {}

// testRouter wires the transaction routes like RegisterRoutes does but
// stamps a fixed user_id instead of running the JWT middleware.
func testRouter(t *testing.T, userID int64) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	ledger := service.NewLedgerService(store, noopCache{}, noopQueue{}, noopNotifier{})
	h := NewHandler(nil, ledger, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.GET("/transactions", h.ListTransactions)
	r.POST("/transactions", h.CreateTransaction)
	r.GET("/transactions/summary", h.Summary)
	r.GET("/transactions/:id", h.GetTransaction)
	r.PATCH("/transactions/:id", h.UpdateTransaction)
	r.DELETE("/transactions/:id", h.DeleteTransaction)

	return r, store
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTransaction(t *testing.T) {
	r, store := testRouter(t, 7)

	w := doJSON(r, http.MethodPost, "/transactions",
		`{"amount": 1500, "type": "income", "category": "salary"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got domain.Transaction
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID == 0 || got.Amount != 1500 || got.Type != domain.TypeIncome {
		t.Fatalf("unexpected transaction: %+v", got)
	}
	if store.balance != 1500 {
		t.Fatalf("balance = %d, want 1500", store.balance)
	}
}

func TestCreateTransactionRejectsBadInput(t *testing.T) {
	r, store := testRouter(t, 7)

	cases := []struct {
		name string
		body string
	}{
		{"bad type", `{"amount": 100, "type": "transfer"}`},
		{"zero amount", `{"amount": 0, "type": "income"}`},
		{"negative amount", `{"amount": -5, "type": "expense"}`},
		{"not json", `amount=100`},
	}
	for _, tc := range cases {
		w := doJSON(r, http.MethodPost, "/transactions", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, w.Code)
		}
	}
	if store.balance != 0 {
		t.Fatalf("rejected inputs moved the balance: %d", store.balance)
	}
}

func TestUpdateTransactionAdjustsBalance(t *testing.T) {
	r, store := testRouter(t, 7)

	doJSON(r, http.MethodPost, "/transactions", `{"amount": 1000, "type": "income"}`)
	doJSON(r, http.MethodPost, "/transactions", `{"amount": 400, "type": "expense"}`)
	if store.balance != 600 {
		t.Fatalf("balance after setup = %d, want 600", store.balance)
	}

	// reclassify the expense as income
	w := doJSON(r, http.MethodPatch, "/transactions/2", `{"type": "income"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if store.balance != 1400 {
		t.Fatalf("balance = %d, want 1400", store.balance)
	}

	w = doJSON(r, http.MethodDelete, "/transactions/2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if store.balance != 1000 {
		t.Fatalf("balance after delete = %d, want 1000", store.balance)
	}
}

func TestMutateMissingTransaction(t *testing.T) {
	r, _ := testRouter(t, 7)

	w := doJSON(r, http.MethodPatch, "/transactions/99", `{"amount": 5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("patch status = %d, want 400", w.Code)
	}
	w = doJSON(r, http.MethodDelete, "/transactions/99", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("delete status = %d, want 400", w.Code)
	}
	w = doJSON(r, http.MethodPatch, "/transactions/abc", `{"amount": 5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", w.Code)
	}
}

func TestListReturnsEmptyArrayNotNull(t *testing.T) {
	r, _ := testRouter(t, 7)

	w := doJSON(r, http.MethodGet, "/transactions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Fatalf("body = %q, want []", body)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	r, _ := testRouter(t, 7)

	doJSON(r, http.MethodPost, "/transactions", `{"amount": 1250, "type": "income"}`)
	doJSON(r, http.MethodPost, "/transactions", `{"amount": 400, "type": "expense"}`)

	w := doJSON(r, http.MethodGet, "/transactions/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var s domain.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Income != 1250 || s.Expense != 400 || s.Balance != 850 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestRequestsWithoutUserID(t *testing.T) {
	r, _ := testRouter(t, 0)

	w := doJSON(r, http.MethodGet, "/transactions", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
