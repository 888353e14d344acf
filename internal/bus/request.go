package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"packedit/internal/log"
)

type requestState int

const (
	queued requestState = iota
	taken
	resolved
)

// Request is a command in flight as seen by the owner
type Request struct {
	bus    *Bus
	seq    uint64
	cmd    Command
	posted time.Time

	mu    sync.Mutex
	state requestState
	resp  Response
	done  chan struct{}
}

func newRequest(b *Bus, seq uint64, cmd Command) *Request {
	return &Request{
		bus:    b,
		seq:    seq,
		cmd:    cmd,
		posted: time.Now(),
		done:   make(chan struct{}),
	}
}

// Command returns the posted command
func (r *Request) Command() Command {
	return r.cmd
}

// Seq is the posting order of the request on its bus, starting at 1
func (r *Request) Seq() uint64 {
	return r.seq
}

// Reply delivers the response. It must be called exactly once for every
// request returned by Receiver.Next.
func (r *Request) Reply(resp Response) {
	r.mu.Lock()
	if r.state != taken {
		r.mu.Unlock()
		panic(fmt.Sprintf("bus: reply to %s #%d which is not being handled", r.cmd.Name(), r.seq))
	}
	r.state = resolved
	r.resp = resp
	close(r.done)
	r.mu.Unlock()
	r.bus.forget(r)
}

func (r *Request) take() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != queued {
		return false
	}
	r.state = taken
	return true
}

// abandon resolves a request the owner never took
func (r *Request) abandon(err error) {
	r.mu.Lock()
	if r.state != queued {
		r.mu.Unlock()
		return
	}
	r.resolveLocked(err)
}

// fail resolves a request whatever its state, unless already resolved
func (r *Request) fail(err error) {
	r.mu.Lock()
	if r.state == resolved {
		r.mu.Unlock()
		return
	}
	r.resolveLocked(err)
}

func (r *Request) resolveLocked(err error) {
	r.state = resolved
	r.resp = Failed(err)
	close(r.done)
	r.mu.Unlock()
	r.bus.forget(r)
}

// Pending is the sender's handle on a posted command
type Pending struct {
	req      *Request
	watchdog time.Duration
}

// Done is closed when the response is available
func (p *Pending) Done() <-chan struct{} {
	return p.req.done
}

// Seq is the posting order of the command
func (p *Pending) Seq() uint64 {
	return p.req.seq
}

// Command returns the posted command
func (p *Pending) Command() Command {
	return p.req.cmd
}

// Response returns the response if it has landed
func (p *Pending) Response() (Response, bool) {
	select {
	case <-p.req.done:
		return p.req.resp, true
	default:
		return Response{}, false
	}
}

// Wait blocks until the command resolves. The returned error is the
// response's Err: a handler failure, or BusClosed.
func (p *Pending) Wait() (Response, error) {
	if p.watchdog > 0 {
		ticker := time.NewTicker(p.watchdog)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-p.req.done:
				break loop
			case <-ticker.C:
				log.LogWithFields(
					log.F("command", p.req.cmd.Name()),
					log.F("seq", p.req.seq),
					log.F("waiting", time.Since(p.req.posted).Round(time.Millisecond).String()),
				).Warn("Backend owner has not answered yet")
			}
		}
	} else {
		<-p.req.done
	}
	return p.req.resp, p.req.resp.Err
}

// Receiver is the owner's end of the bus
type Receiver struct {
	bus  *Bus
	once sync.Once
}

// Next returns the next request to handle in posting order. It returns false
// once the bus is closed or ctx is done.
func (r *Receiver) Next(ctx context.Context) (*Request, bool) {
	for {
		select {
		case <-r.bus.closed:
			return nil, false
		case <-ctx.Done():
			return nil, false
		default:
		}

		select {
		case req := <-r.bus.requests:
			if req.take() {
				return req, true
			}
		case <-r.bus.closed:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Close reports that the owner has stopped. Every unresolved command, and
// every command posted afterwards, fails with BusClosed.
func (r *Receiver) Close() {
	r.once.Do(func() {
		r.bus.shutdown(true)
	})
}
