package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Config controls buffering. With DropIfFull the caller never waits on a full
// buffer; otherwise Emit waits for room or for its context.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Logger     *slog.Logger
}

// Dispatcher relays events to a Sink from one background goroutine, so the
// sink sees events in Emit order. A nil *Dispatcher accepts and ignores
// every call.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	logger     *slog.Logger

	events chan Event
	stop   chan struct{}
	done   chan struct{}

	stopped   atomic.Bool
	stopOnce  sync.Once
	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger:     cfg.Logger,
		events:     make(chan Event, cfg.BufferSize),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case e := <-d.events:
			d.deliver(e)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain flushes whatever was buffered before Close.
func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.events:
			d.deliver(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked", "event_type", e.EventType, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), e)
	d.delivered.Add(1)
}

// Emit queues e. It is a no-op after Close.
func (d *Dispatcher) Emit(ctx context.Context, e Event) {
	if d == nil || d.stopped.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.events <- e:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- e:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close stops accepting events and waits until the buffered ones reached the
// sink. It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stop)
	})
	<-d.done
}

// Dropped counts events discarded on a full buffer or a cancelled Emit.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
