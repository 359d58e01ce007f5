// Package dispatcher routes plugin commands to handlers, optionally through
// a per-command queue drained by its own goroutine.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrClosed         = errors.New("dispatcher closed")
	ErrQueueFull      = errors.New("queue full")
)

// queuedResult is what a queued command answers with.
const queuedResult = "queued"

// Event is a single command line received from the host plugin.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is the logging surface the dispatcher needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*settings)

type settings struct {
	queueSize int
	blocking  bool
	logged    bool
}

// Buffered queues events for the handler, up to size pending. Dispatch
// returns "queued" without waiting for the handler.
func Buffered(size int) Option {
	return func(s *settings) { s.queueSize = size }
}

// Blocking makes Dispatch wait for room in a full queue instead of failing.
func Blocking() Option {
	return func(s *settings) { s.blocking = true }
}

// Logged logs every call with its duration, and failures at error level.
func Logged() Option {
	return func(s *settings) { s.logged = true }
}

type route struct {
	handle HandlerFunc
	queue  chan Event // nil for synchronous commands
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	log     Logger
	metrics *instruments

	mu     sync.RWMutex
	routes map[string]*route
	closed bool

	workers sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter provider,
// which is a no-op until one is installed.
func New(log Logger) (*Dispatcher, error) {
	d := &Dispatcher{log: log, routes: make(map[string]*route)}
	m, err := newInstruments(d.queueDepths)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

// Register installs h for command, replacing any earlier handler.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	r := &route{handle: h}
	if s.queueSize > 0 {
		r.queue = make(chan Event, s.queueSize)
		d.workers.Add(1)
		go d.drain(command, h, r.queue)
		r.handle = d.enqueue(command, r.queue, s.blocking)
	}
	if s.logged {
		r.handle = d.logged(command, r.handle)
	}

	d.mu.Lock()
	d.routes[command] = r
	d.mu.Unlock()
}

// Dispatch runs the handler registered for e.Command. A zero Timestamp is
// set to now.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	r, ok := d.routes[e.Command]
	closed := d.closed
	d.mu.RUnlock()

	switch {
	case closed:
		return nil, ErrClosed
	case !ok:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return r.handle(e)
}

func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Commands lists the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.routes))
	for name := range d.routes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close rejects further events and waits until every queue is drained or
// ctx expires. Calling it again is a no-op.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain runs h for every queued event until the queue is closed.
func (d *Dispatcher) drain(command string, h HandlerFunc, queue <-chan Event) {
	defer d.workers.Done()
	for e := range queue {
		if _, err := h(e); err != nil {
			d.log.Error("queued command failed", "command", command, "error", err)
		}
		d.metrics.processed(command)
	}
}

// enqueue holds the read lock while sending so Close cannot close the queue
// under it.
func (d *Dispatcher) enqueue(command string, queue chan Event, blocking bool) HandlerFunc {
	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}
		if blocking {
			queue <- e
			return queuedResult, nil
		}
		select {
		case queue <- e:
			return queuedResult, nil
		default:
			d.metrics.dropped(command)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.log.Debug("dispatching", "command", command, "args", len(e.Args))
		res, err := h(e)
		if err != nil {
			d.log.Error("command failed", "command", command, "took", time.Since(start), "error", err)
			return res, err
		}
		d.log.Debug("command done", "command", command, "took", time.Since(start))
		return res, nil
	}
}

// queueDepths reports the pending events of every queued command.
func (d *Dispatcher) queueDepths(observe func(command string, depth int)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for name, r := range d.routes {
		if r.queue != nil {
			observe(name, len(r.queue))
		}
	}
}
