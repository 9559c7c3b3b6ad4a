package cleanup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsTasks(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	q := New(Config{Workers: 2, QueueSize: 16}, func(_ context.Context, task Task) error {
		mu.Lock()
		seen = append(seen, task.SessionID)
		mu.Unlock()
		return nil
	})

	for _, sid := range []string{"a", "b", "c"} {
		if err := q.Schedule(Task{UserID: "u", SessionID: sid}); err != nil {
			t.Fatalf("schedule %s rejected: %v", sid, err)
		}
	}
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 tasks to run before Close returns, got %v", seen)
	}
	if q.Completed() != 3 {
		t.Fatalf("expected completed=3, got %d", q.Completed())
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	q := New(Config{Workers: 1, QueueSize: 1}, func(ctx context.Context, _ Task) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	if err := q.Schedule(Task{SessionID: "running"}); err != nil {
		t.Fatal("first task rejected")
	}
	<-started
	if err := q.Schedule(Task{SessionID: "buffered"}); err != nil {
		t.Fatal("buffered task rejected")
	}
	if err := q.Schedule(Task{SessionID: "dropped"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected full queue to drop, got %v", err)
	}
	if q.Dropped() != 1 {
		t.Fatalf("expected dropped=1, got %d", q.Dropped())
	}

	close(release)
	q.Close()
}

func TestQueueReportsFailures(t *testing.T) {
	var hookCalls atomic.Int32
	q := New(Config{
		Workers:   1,
		QueueSize: 4,
		OnError: func(task Task, err error) {
			if task.SessionID != "x" || err == nil {
				t.Errorf("unexpected hook args %+v %v", task, err)
			}
			hookCalls.Add(1)
		},
	}, func(context.Context, Task) error {
		return errors.New("redis down")
	})

	q.Schedule(Task{SessionID: "x"})
	q.Close()

	if q.Failed() != 1 || hookCalls.Load() != 1 {
		t.Fatalf("expected one failure, got failed=%d hook=%d", q.Failed(), hookCalls.Load())
	}
}

func TestQueueAppliesTimeout(t *testing.T) {
	var deadline atomic.Bool
	q := New(Config{Workers: 1, QueueSize: 1, Timeout: 20 * time.Millisecond}, func(ctx context.Context, _ Task) error {
		<-ctx.Done()
		deadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	})

	q.Schedule(Task{SessionID: "slow"})
	q.Close()

	if !deadline.Load() {
		t.Fatal("expected task context to hit its deadline")
	}
}

func TestNilQueueIsSafe(t *testing.T) {
	var q *Queue
	if err := q.Schedule(Task{}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("nil queue must reject tasks as closed, got %v", err)
	}
	q.Close()
	if q.Dropped() != 0 || q.Failed() != 0 || q.Completed() != 0 {
		t.Fatal("nil queue counters must be zero")
	}
	if New(Config{}, nil) != nil {
		t.Fatal("expected nil queue without a func")
	}
}

func TestScheduleAfterCloseIsRejected(t *testing.T) {
	q := New(Config{}, func(context.Context, Task) error { return nil })
	q.Close()
	q.Close()
	if err := q.Schedule(Task{SessionID: "late"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	if q.Dropped() != 0 {
		t.Fatal("a closed queue must not count drops")
	}
}

func TestScheduleRacingCloseNeverLosesAcceptedTasks(t *testing.T) {
	for round := 0; round < 50; round++ {
		var ran atomic.Int64
		q := New(Config{Workers: 2, QueueSize: 4}, func(context.Context, Task) error {
			ran.Add(1)
			return nil
		})

		var accepted atomic.Int64
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					if q.Schedule(Task{SessionID: "s"}) == nil {
						accepted.Add(1)
					}
				}
			}()
		}
		q.Close()
		wg.Wait()

		if ran.Load() != accepted.Load() {
			t.Fatalf("round %d: accepted %d tasks but ran %d", round, accepted.Load(), ran.Load())
		}
	}
}
