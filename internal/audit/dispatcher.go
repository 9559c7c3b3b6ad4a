package audit

import (
	"context"
	"sync/atomic"

	"github.com/MrEthical07/goSession/internal/worker"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// OnDrop is called on the emitting goroutine for every event lost to a
	// full buffer.
	OnDrop func(Event)
}

// Dispatcher forwards audit events to a sink from a single worker, so the
// sink sees events in emission order.
type Dispatcher struct {
	cfg     Config
	pool    *worker.Pool[Event]
	dropped atomic.Uint64
}

// NewDispatcher starts the delivery goroutine. It returns nil when auditing is
// disabled; every method is safe on a nil *Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	return &Dispatcher{
		cfg: cfg,
		pool: worker.New(1, cfg.BufferSize, func(event Event) {
			sink.Emit(context.Background(), event)
		}),
	}
}

// Emit queues event. With DropIfFull a full buffer drops and counts the event,
// otherwise Emit waits for room or for ctx. Events emitted after Close are
// ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var out worker.Outcome
	if d.cfg.DropIfFull {
		out = d.pool.TryPush(event)
	} else {
		out = d.pool.Push(ctx, event)
	}

	if out == worker.Full {
		d.dropped.Add(1)
		if d.cfg.OnDrop != nil {
			d.cfg.OnDrop(event)
		}
	}
}

// Close drains buffered events into the sink and stops the dispatcher.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.pool.Close()
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
