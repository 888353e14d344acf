package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// resumeMsg wakes Update to run scheduled functions
type resumeMsg struct{}

// scheduler implements views.Scheduler on top of the bubbletea loop. Do
// queues fn; a waiting Cmd turns the queue into a resumeMsg, and Update runs
// the queued functions inside its own turn.
type scheduler struct {
	mu    sync.Mutex
	fns   []func()
	ready chan struct{}
}

func newScheduler() *scheduler {
	return &scheduler{ready: make(chan struct{}, 1)}
}

func (s *scheduler) Do(fn func()) {
	s.mu.Lock()
	s.fns = append(s.fns, fn)
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// wait blocks a Cmd goroutine until something is queued
func (s *scheduler) wait() tea.Cmd {
	return func() tea.Msg {
		<-s.ready
		return resumeMsg{}
	}
}

// run executes everything queued so far, including functions queued by
// the ones it runs.
func (s *scheduler) run() int {
	n := 0
	for {
		s.mu.Lock()
		fns := s.fns
		s.fns = nil
		s.mu.Unlock()
		if len(fns) == 0 {
			return n
		}
		for _, fn := range fns {
			fn()
		}
		n += len(fns)
	}
}
