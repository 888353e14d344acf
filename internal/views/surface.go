// Package views keeps the presentation side state of every open entry. All
// of it, including the toolkit surfaces, is confined to the presentation
// thread: methods must only be called from there, and bus responses come
// back through a Scheduler.
package views

import (
	"context"
	"sync"

	"packedit/internal/packedfile"
	"packedit/pkg/types"
)

// Surface is a toolkit owned display element
type Surface interface {
	// SetOnChanged registers the callback run when the user edits the surface
	SetOnChanged(fn func())
}

// TextSurface displays an editable string
type TextSurface interface {
	Surface
	ReadText() (string, error)
	WriteText(s string) error
}

// TableSurface displays an editable grid with a header row
type TableSurface interface {
	Surface
	ReadTable() (columns []string, rows [][]string, err error)
	WriteTable(columns []string, rows [][]string) error
}

// ImageSurface displays a decoded image
type ImageSurface interface {
	Surface
	ShowImage(img *packedfile.Image) error
}

// Releaser is implemented by surfaces that hold toolkit resources
type Releaser interface {
	Release()
}

// Toolkit creates surfaces. It is only called on the presentation thread.
type Toolkit interface {
	NewTextSurface() TextSurface
	NewTableSurface() TableSurface
	NewImageSurface() ImageSurface
	// NewPlaceholder shows why p cannot be edited
	NewPlaceholder(p types.Path, reason error) Surface
}

// Scheduler runs fn on the presentation thread during a later turn of its
// event loop. Do may be called from any goroutine and must not block.
type Scheduler interface {
	Do(fn func())
}

// Queue is a Scheduler pumped by hand, for hosts without an event loop of
// their own.
type Queue struct {
	mu    sync.Mutex
	fns   []func()
	ready chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Do queues fn
func (q *Queue) Do(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Drain runs queued functions, including those queued meanwhile, on the
// calling goroutine and returns how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.fns) == 0 {
			q.mu.Unlock()
			return n
		}
		fn := q.fns[0]
		q.fns = q.fns[1:]
		q.mu.Unlock()
		fn()
		n++
	}
}

// RunOne waits until something is queued and drains the queue
func (q *Queue) RunOne(ctx context.Context) error {
	for {
		if q.Drain() > 0 {
			return nil
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Len returns the number of queued functions
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}
