// Package bus implements the command bus between the presentation layer and
// the single backend owner of the archive.
//
// Any number of callers may post commands. They are forwarded in posting
// order through one bounded channel to exactly one Receiver, and each one
// resolves exactly once: with the owner's response, or with BusClosed when
// the owner is gone.
package bus

import (
	"sync"
	"sync/atomic"
	"time"

	"packedit/internal/errors"
	"packedit/internal/log"
)

// Bus is an explicitly constructed command channel. Create it at startup,
// hand it to the backend owner and the presentation layer, Close it on
// shutdown.
type Bus struct {
	requests chan *Request
	seq      atomic.Uint64
	watchdog time.Duration

	mu       sync.Mutex
	outbox   []*Request
	pending  map[uint64]*Request
	attached bool
	isClosed bool

	wake   chan struct{}
	closed chan struct{}
}

// Option configures a Bus
type Option func(*Bus)

// WithWatchdog logs a warning every d while a Wait has no response yet
func WithWatchdog(d time.Duration) Option {
	return func(b *Bus) {
		b.watchdog = d
	}
}

// New creates a bus whose request channel holds at most queueSize commands
func New(queueSize int, opts ...Option) *Bus {
	if queueSize < 1 {
		queueSize = 1
	}
	b := &Bus{
		requests: make(chan *Request, queueSize),
		pending:  make(map[uint64]*Request),
		wake:     make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.pump()
	return b
}

// Post queues cmd without blocking and returns a handle on its response
func (b *Bus) Post(cmd Command) *Pending {
	b.mu.Lock()
	req := newRequest(b, b.seq.Add(1), cmd)
	if b.isClosed {
		b.mu.Unlock()
		req.abandon(closedError())
		return &Pending{req: req, watchdog: b.watchdog}
	}
	b.pending[req.seq] = req
	b.outbox = append(b.outbox, req)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return &Pending{req: req, watchdog: b.watchdog}
}

// Send posts cmd and waits for its response. It blocks the calling
// goroutine, so presentation code uses Post and resumes on completion.
func (b *Bus) Send(cmd Command) (Response, error) {
	return b.Post(cmd).Wait()
}

// Receiver attaches the single receiving end. A second call fails.
func (b *Bus) Receiver() (*Receiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClosed {
		return nil, closedError()
	}
	if b.attached {
		return nil, errors.NewKind(errors.InvalidState, "command bus already has a receiver")
	}
	b.attached = true
	return &Receiver{bus: b}, nil
}

// Close shuts the bus down. Commands not yet taken by the owner resolve
// with BusClosed; the one being handled still gets its response.
func (b *Bus) Close() {
	b.shutdown(false)
}

// Closed is closed once the bus has shut down
func (b *Bus) Closed() <-chan struct{} {
	return b.closed
}

// Outstanding returns how many commands have not resolved yet
func (b *Bus) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func closedError() error {
	return errors.NewKind(errors.BusClosed, "command bus closed: backend owner terminated")
}

// shutdown abandons queued requests. With force it also abandons requests
// the owner took but never answered, which only happens once the owner
// itself has stopped.
func (b *Bus) shutdown(force bool) {
	b.mu.Lock()
	if !b.isClosed {
		b.isClosed = true
		b.outbox = nil
		close(b.closed)
	}
	outstanding := make([]*Request, 0, len(b.pending))
	for _, req := range b.pending {
		outstanding = append(outstanding, req)
	}
	b.mu.Unlock()

	err := closedError()
	for _, req := range outstanding {
		if force {
			req.fail(err)
		} else {
			req.abandon(err)
		}
	}
	if len(outstanding) > 0 {
		log.LogWithFields(log.F("abandoned", len(outstanding))).Warn("Command bus closed with commands in flight")
	}
}

func (b *Bus) forget(req *Request) {
	b.mu.Lock()
	delete(b.pending, req.seq)
	b.mu.Unlock()
}

// pump forwards the outbox into the bounded channel in posting order
func (b *Bus) pump() {
	for {
		req, ok := b.next()
		if !ok {
			return
		}
		select {
		case b.requests <- req:
		case <-b.closed:
			return
		}
	}
}

func (b *Bus) next() (*Request, bool) {
	for {
		b.mu.Lock()
		if b.isClosed {
			b.mu.Unlock()
			return nil, false
		}
		if len(b.outbox) > 0 {
			req := b.outbox[0]
			b.outbox[0] = nil
			b.outbox = b.outbox[1:]
			b.mu.Unlock()
			return req, true
		}
		b.mu.Unlock()

		select {
		case <-b.wake:
		case <-b.closed:
		}
	}
}
