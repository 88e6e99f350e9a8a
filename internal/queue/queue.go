// Package queue is a Redis-list job queue with at-least-once delivery.
// Producers LPUSH JSON jobs; consumers BRPOP them. Consumers must be
// idempotent. Jobs that exhaust their retry budget land on a
// dead-letter list instead of being dropped.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"finance_ledger/internal/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
)

const (
	RecalculateQueue = "balance:recalculate"

	deadSuffix = ":dead"
	popTimeout = 2 * time.Second
)

var ErrUnavailable = errors.New("queue unavailable")

var (
	jobsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_enqueued_total",
			Help: "Jobs pushed onto a queue",
		},
		[]string{"queue"},
	)
	enqueueFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_enqueue_failures_total",
			Help: "Enqueue attempts that failed after retry; a dropped recalculation job is a correctness risk",
		},
		[]string{"queue"},
	)
)

func init() {
	prometheus.MustRegister(jobsEnqueued)
	prometheus.MustRegister(enqueueFailures)
}

// Job is the unit of work for the recalculation worker. Re-running a
// job for the same user is always safe: the handler recomputes from the
// live transaction set, not from enqueue-time state.
type Job struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Queue struct {
	rdb  *redis.Client
	name string
}

// New returns a queue bound to a shared Redis client. A nil client
// yields a disabled queue whose Enqueue reports ErrUnavailable.
func New(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Enqueue pushes a recalculation job for the user. One immediate retry
// on transient failure; a final failure is returned to the caller to
// log loudly, never to fail the surrounding mutation.
func (q *Queue) Enqueue(ctx context.Context, userID int64) error {
	if q.rdb == nil {
		enqueueFailures.WithLabelValues(q.name).Inc()
		return ErrUnavailable
	}

	job := Job{
		ID:         uuid.NewString(),
		UserID:     userID,
		EnqueuedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = q.rdb.LPush(ctx, q.name, raw).Err()
	if err != nil {
		// one retry before declaring the backstop lost
		err = q.rdb.LPush(ctx, q.name, raw).Err()
	}
	if err != nil {
		enqueueFailures.WithLabelValues(q.name).Inc()
		return err
	}

	jobsEnqueued.WithLabelValues(q.name).Inc()
	return nil
}

// Requeue pushes a failed job back with its attempt count carried over.
func (q *Queue) Requeue(ctx context.Context, job Job) error {
	if q.rdb == nil {
		return ErrUnavailable
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.name, raw).Err()
}

// DeadLetter parks a job that exhausted its retry budget.
func (q *Queue) DeadLetter(ctx context.Context, job Job) error {
	if q.rdb == nil {
		return ErrUnavailable
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.name+deadSuffix, raw).Err()
}

// Pop blocks for up to popTimeout waiting for a job. A nil job with a
// nil error means the wait timed out; callers loop.
func (q *Queue) Pop(ctx context.Context) (*Job, error) {
	if q.rdb == nil {
		return nil, ErrUnavailable
	}

	res, err := q.rdb.BRPop(ctx, popTimeout, q.name).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(res) != 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		logger.Error("discarding malformed job", "queue", q.name, "payload", res[1], "error", err)
		return nil, nil
	}
	return &job, nil
}
