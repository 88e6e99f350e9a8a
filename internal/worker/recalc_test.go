package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finance_ledger/internal/balance"
	"finance_ledger/internal/domain"
	"finance_ledger/internal/queue"
	"finance_ledger/internal/repository"
)

// fakeLedger is an in-memory stand-in for the user and transaction
// repositories, with the same seq-guarded overwrite semantics.
type fakeLedger struct {
	mu      sync.Mutex
	txns    []*domain.Transaction
	balance int64
	seq     int64
	missing bool

	listErr error
	// invoked between the seq read and the overwrite, emulating a
	// mutation racing the recomputation
	onList func(f *fakeLedger)
}

func (f *fakeLedger) ListAllByUser(ctx context.Context, userID int64) ([]*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := append([]*domain.Transaction(nil), f.txns...)
	if f.onList != nil {
		hook := f.onList
		f.onList = nil
		hook(f)
	}
	return out, nil
}

func (f *fakeLedger) LedgerSeq(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing {
		return 0, repository.ErrUserNotFound
	}
	return f.seq, nil
}

func (f *fakeLedger) OverwriteBalanceIfSeq(ctx context.Context, userID, value, seq int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seq != seq {
		return false, nil
	}
	f.balance = value
	return true, nil
}

// mutate applies a creation the way the inline path does: append row,
// atomic increment, seq bump.
func (f *fakeLedger) mutate(t *domain.Transaction) {
	f.txns = append(f.txns, t)
	f.balance += balance.Delta(nil, t)
	f.seq++
}

func newRecalculator(f *fakeLedger) *Recalculator {
	return &Recalculator{
		Txns:         f,
		Users:        f,
		Workers:      1,
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
	}
}

func TestProcessOverwritesDrift(t *testing.T) {
	f := &fakeLedger{
		txns: []*domain.Transaction{
			{ID: 1, Type: domain.TypeIncome, Amount: 1000},
			{ID: 2, Type: domain.TypeExpense, Amount: 400},
		},
		balance: 999999, // drifted
		seq:     7,
	}

	if err := newRecalculator(f).Process(context.Background(), 1); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if f.balance != 600 {
		t.Fatalf("balance = %d; want 600", f.balance)
	}
}

func TestProcessIdempotent(t *testing.T) {
	f := &fakeLedger{
		txns: []*domain.Transaction{
			{ID: 1, Type: domain.TypeIncome, Amount: 1400},
			{ID: 2, Type: domain.TypeExpense, Amount: 250},
		},
		seq: 2,
	}
	r := newRecalculator(f)

	for i := 0; i < 2; i++ {
		if err := r.Process(context.Background(), 1); err != nil {
			t.Fatalf("Process run %d: %v", i+1, err)
		}
	}
	if f.balance != 1150 {
		t.Fatalf("balance after double run = %d; want 1150", f.balance)
	}
}

// A mutation landing mid-recomputation bumps the seq; the stale write
// must be rejected and the retry must converge on the newer set.
func TestProcessRetriesOnSeqConflict(t *testing.T) {
	f := &fakeLedger{
		txns: []*domain.Transaction{{ID: 1, Type: domain.TypeIncome, Amount: 1000}},
		seq:  1,
	}
	f.onList = func(f *fakeLedger) {
		f.mutate(&domain.Transaction{ID: 2, Type: domain.TypeExpense, Amount: 400})
	}

	if err := newRecalculator(f).Process(context.Background(), 1); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if f.balance != 600 {
		t.Fatalf("balance = %d; want 600 (post-mutation set)", f.balance)
	}
}

// Two jobs for the same user racing after a third mutation has landed:
// whichever write wins, the result is the full-set sum.
func TestConcurrentJobsConverge(t *testing.T) {
	f := &fakeLedger{seq: 3}
	f.txns = []*domain.Transaction{
		{ID: 1, Type: domain.TypeIncome, Amount: 1000},
		{ID: 2, Type: domain.TypeExpense, Amount: 400},
		{ID: 3, Type: domain.TypeIncome, Amount: 250},
	}
	r := newRecalculator(f)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Process(context.Background(), 1); err != nil {
				t.Errorf("Process: %v", err)
			}
		}()
	}
	wg.Wait()

	if f.balance != 850 {
		t.Fatalf("balance = %d; want 850", f.balance)
	}
}

func TestProcessDropsMissingUser(t *testing.T) {
	f := &fakeLedger{missing: true}
	if err := newRecalculator(f).Process(context.Background(), 42); err != nil {
		t.Fatalf("Process for missing user should drop, got error: %v", err)
	}
}

type fakeJobs struct {
	requeued []queue.Job
	dead     []queue.Job
}

func (j *fakeJobs) Pop(ctx context.Context) (*queue.Job, error)     { return nil, nil }
func (j *fakeJobs) Requeue(ctx context.Context, job queue.Job) error {
	j.requeued = append(j.requeued, job)
	return nil
}
func (j *fakeJobs) DeadLetter(ctx context.Context, job queue.Job) error {
	j.dead = append(j.dead, job)
	return nil
}

func TestHandleRetriesThenDeadLetters(t *testing.T) {
	f := &fakeLedger{listErr: errors.New("store timeout")}
	jobs := &fakeJobs{}
	r := newRecalculator(f)
	r.Jobs = jobs

	job := queue.Job{ID: "j1", UserID: 1}
	for i := 0; i < r.MaxAttempts; i++ {
		r.handle(context.Background(), job)
		if len(jobs.requeued) > 0 {
			job = jobs.requeued[len(jobs.requeued)-1]
		}
	}

	if len(jobs.requeued) != r.MaxAttempts-1 {
		t.Fatalf("requeued %d times; want %d", len(jobs.requeued), r.MaxAttempts-1)
	}
	if len(jobs.dead) != 1 {
		t.Fatalf("dead-lettered %d jobs; want 1", len(jobs.dead))
	}
	if jobs.dead[0].Attempts != r.MaxAttempts {
		t.Fatalf("dead job attempts = %d; want %d", jobs.dead[0].Attempts, r.MaxAttempts)
	}
}
