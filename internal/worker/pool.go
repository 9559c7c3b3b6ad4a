// Package worker runs a bounded, drain-on-close goroutine pool. The audit
// dispatcher and the cleanup queue are both built on it.
package worker

import (
	"context"
	"sync"
)

// Outcome reports what happened to a pushed item.
type Outcome uint8

const (
	Accepted Outcome = iota
	Full
	Closed
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Full:
		return "full"
	case Closed:
		return "closed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Pool feeds items from a buffered channel to a fixed set of goroutines.
// Every Accepted item is handled before Close returns. A nil *Pool reports
// Closed for every push.
type Pool[T any] struct {
	handle func(T)
	ch     chan T
	wg     sync.WaitGroup

	// senders hold the read lock across the send so Close never closes ch
	// under them.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// New starts workers goroutines calling handle. Non-positive sizes are
// raised to 1.
func New[T any](workers, size int, handle func(T)) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}

	p := &Pool[T]{
		handle: handle,
		ch:     make(chan T, size),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool[T]) run() {
	defer p.wg.Done()
	for item := range p.ch {
		p.handle(item)
	}
}

// TryPush enqueues item without blocking.
func (p *Pool[T]) TryPush(item T) Outcome {
	if p == nil {
		return Closed
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return Closed
	}

	select {
	case p.ch <- item:
		return Accepted
	default:
		return Full
	}
}

// Push waits for buffer space or for ctx.
func (p *Pool[T]) Push(ctx context.Context, item T) Outcome {
	if p == nil {
		return Closed
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return Closed
	}

	select {
	case p.ch <- item:
		return Accepted
	case <-ctx.Done():
		return Canceled
	}
}

// Close rejects further pushes, lets the workers drain the buffer and waits
// for them. It is safe to call more than once.
func (p *Pool[T]) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.ch)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
