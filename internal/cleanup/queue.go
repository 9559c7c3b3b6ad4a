// Package cleanup runs best-effort session cleanup off the request path.
//
// Tasks are queued without blocking. A full queue drops the task and counts
// it; a failing task is counted and reported to the OnError hook. Nothing is
// retried: the next validation of the same stale cookie schedules it again,
// and TTL expiry reclaims whatever is left.
package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/internal/worker"
)

var (
	// ErrQueueFull is returned by Schedule when the buffer has no room.
	ErrQueueFull = errors.New("cleanup queue full")
	// ErrQueueClosed is returned by Schedule after Close, and by a nil *Queue.
	ErrQueueClosed = errors.New("cleanup queue closed")
)

// Task identifies a stale session to remove.
type Task struct {
	UserID    string
	SessionID string
	Reason    string
}

// Func performs one cleanup task.
type Func func(ctx context.Context, task Task) error

// Config controls worker count, buffering and per-task deadline.
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	// OnError is called from a worker goroutine for every failed task.
	OnError func(task Task, err error)
}

// Queue runs tasks on a bounded worker pool. A nil *Queue rejects everything,
// which lets callers disable cleanup without branching.
type Queue struct {
	cfg  Config
	fn   Func
	pool *worker.Pool[Task]

	dropped   atomic.Uint64
	failed    atomic.Uint64
	completed atomic.Uint64
}

func New(cfg Config, fn Func) *Queue {
	if fn == nil {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	q := &Queue{cfg: cfg, fn: fn}
	q.pool = worker.New(cfg.Workers, cfg.QueueSize, q.exec)
	return q
}

func (q *Queue) exec(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.Timeout)
	defer cancel()

	if err := q.fn(ctx, task); err != nil {
		q.failed.Add(1)
		if q.cfg.OnError != nil {
			q.cfg.OnError(task, err)
		}
		return
	}
	q.completed.Add(1)
}

// Schedule enqueues task without blocking. An accepted task always runs
// before Close returns.
func (q *Queue) Schedule(task Task) error {
	if q == nil {
		return ErrQueueClosed
	}

	switch q.pool.TryPush(task) {
	case worker.Accepted:
		return nil
	case worker.Full:
		q.dropped.Add(1)
		return ErrQueueFull
	default:
		return ErrQueueClosed
	}
}

// Close stops accepting tasks, drains the buffer and waits for the workers.
func (q *Queue) Close() {
	if q == nil {
		return
	}
	q.pool.Close()
}

func (q *Queue) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}

func (q *Queue) Failed() uint64 {
	if q == nil {
		return 0
	}
	return q.failed.Load()
}

func (q *Queue) Completed() uint64 {
	if q == nil {
		return 0
	}
	return q.completed.Load()
}
