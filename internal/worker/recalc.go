// Package worker drains the balance recalculation queue. Each job
// re-derives the user's balance from the full transaction set and
// overwrites the cached value, cancelling out any drift accumulated by
// the inline incremental path.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"finance_ledger/internal/balance"
	"finance_ledger/internal/domain"
	"finance_ledger/internal/logger"
	"finance_ledger/internal/queue"
	"finance_ledger/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recalc_jobs_processed_total",
		Help: "Recalculation jobs completed",
	})
	jobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recalc_jobs_failed_total",
		Help: "Recalculation job attempts that failed and were requeued",
	})
	jobsDeadLettered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recalc_jobs_dead_lettered_total",
		Help: "Recalculation jobs that exhausted their retry budget",
	})
)

func init() {
	prometheus.MustRegister(jobsProcessed)
	prometheus.MustRegister(jobsFailed)
	prometheus.MustRegister(jobsDeadLettered)
}

// TransactionSource supplies the full per-user transaction set.
type TransactionSource interface {
	ListAllByUser(ctx context.Context, userID int64) ([]*domain.Transaction, error)
}

// BalanceWriter exposes the sequence-guarded overwrite of the cached
// balance.
type BalanceWriter interface {
	LedgerSeq(ctx context.Context, userID int64) (int64, error)
	OverwriteBalanceIfSeq(ctx context.Context, userID, value, seq int64) (bool, error)
}

// JobSource is the consumer side of the recalculation queue.
type JobSource interface {
	Pop(ctx context.Context) (*queue.Job, error)
	Requeue(ctx context.Context, job queue.Job) error
	DeadLetter(ctx context.Context, job queue.Job) error
}

type Recalculator struct {
	Txns  TransactionSource
	Users BalanceWriter
	Jobs  JobSource

	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// write conflicts with concurrent mutations are re-derived this many
// times before the job yields to the mutation's own queued follow-up
const casAttempts = 3

// Start launches the consumer pool and blocks until ctx is cancelled
// and all workers have drained.
func (r *Recalculator) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.consume(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (r *Recalculator) consume(ctx context.Context, id int) {
	logger.Info("recalculation worker started", "worker", id)
	for {
		select {
		case <-ctx.Done():
			logger.Info("recalculation worker stopping", "worker", id)
			return
		default:
		}

		job, err := r.Jobs.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("queue pop failed", "worker", id, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.RetryBackoff):
			}
			continue
		}
		if job == nil {
			continue
		}

		r.handle(ctx, *job)
	}
}

func (r *Recalculator) handle(ctx context.Context, job queue.Job) {
	err := r.Process(ctx, job.UserID)
	if err == nil {
		jobsProcessed.Inc()
		return
	}

	jobsFailed.Inc()
	job.Attempts++
	logger.Warn("recalculation failed",
		"job_id", job.ID, "user_id", job.UserID, "attempt", job.Attempts, "error", err)

	if job.Attempts >= r.MaxAttempts {
		jobsDeadLettered.Inc()
		logger.Error("recalculation job dead-lettered",
			"job_id", job.ID, "user_id", job.UserID, "attempts", job.Attempts)
		if dlErr := r.Jobs.DeadLetter(ctx, job); dlErr != nil {
			logger.Error("dead-letter push failed", "job_id", job.ID, "error", dlErr)
		}
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(job.Attempts) * r.RetryBackoff):
	}
	if rqErr := r.Jobs.Requeue(ctx, job); rqErr != nil {
		logger.Error("requeue failed, job lost until next mutation",
			"job_id", job.ID, "user_id", job.UserID, "error", rqErr)
	}
}

// Process recomputes the user's balance from scratch and overwrites
// the cached value. Idempotent: any number of runs, in any order,
// converge to the sum over the live transaction set. The ledger
// sequence read before the fetch guards the write, so a recomputation
// derived from older state never clobbers a newer mutation.
func (r *Recalculator) Process(ctx context.Context, userID int64) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		seq, err := r.Users.LedgerSeq(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				logger.Warn("recalculation for missing user dropped", "user_id", userID)
				return nil
			}
			return err
		}

		txns, err := r.Txns.ListAllByUser(ctx, userID)
		if err != nil {
			return err
		}

		ok, err := r.Users.OverwriteBalanceIfSeq(ctx, userID, balance.Full(txns), seq)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		// A mutation landed between read and write; its own queued job
		// will recompute, but try again with the fresher sequence.
	}

	logger.Debug("recalculation yielded to concurrent mutations", "user_id", userID)
	return nil
}
