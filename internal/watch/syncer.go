package watch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"packedit/internal/bus"
	"packedit/internal/errors"
	"packedit/internal/log"
	"packedit/pkg/types"
)

// Sender delivers a command to the backend owner and waits for its answer
type Sender interface {
	Send(cmd bus.Command) (bus.Response, error)
}

// Status is a snapshot of the syncer
type Status struct {
	Running      bool
	Root         string
	LastActivity time.Time
	Imported     int
	Deleted      int
	Failed       int
}

// Syncer keeps the archive in step with its folder on disk: changed files
// are imported, removed files are deleted.
type Syncer struct {
	watcher *Watcher
	bus     Sender

	// callback runs on the syncer goroutine after every applied change
	callback func(types.Path, error)

	mutex  sync.RWMutex
	status Status
}

// NewSyncer watches root and forwards its changes to b
func NewSyncer(root string, b Sender) (*Syncer, error) {
	w, err := New(root)
	if err != nil {
		return nil, err
	}
	return &Syncer{
		watcher: w,
		bus:     b,
		status:  Status{Root: root},
	}, nil
}

// SetCallback registers fn to be told about each change
func (s *Syncer) SetCallback(fn func(types.Path, error)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.callback = fn
}

// Status returns the current counters
func (s *Syncer) Status() Status {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.status
}

// Run applies changes until ctx is done. Failed imports are logged; only a
// closed bus ends the run early.
func (s *Syncer) Run(ctx context.Context) error {
	if err := s.watcher.AddTree(); err != nil {
		return fmt.Errorf("watch %s: %w", s.watcher.Root(), err)
	}
	if err := s.watcher.Start(); err != nil {
		return err
	}
	defer s.watcher.Stop()

	s.mutex.Lock()
	s.status.Running = true
	s.mutex.Unlock()
	defer func() {
		s.mutex.Lock()
		s.status.Running = false
		s.mutex.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-s.watcher.Changes():
			if !ok {
				return nil
			}
			err := s.apply(change)
			if errors.IsBusClosed(err) {
				return err
			}
		}
	}
}

func (s *Syncer) apply(change Change) error {
	var err error
	if change.Removed() {
		_, err = s.bus.Send(bus.Delete{Path: change.Entry})
		// a folder or a file we never imported
		if errors.IsNotFound(err) {
			err = nil
		}
	} else {
		var data []byte
		data, err = os.ReadFile(change.Path)
		if err != nil {
			err = errors.NewEntryError("cannot read changed file", change.Entry.String(), errors.FileOperationFailed, err)
		} else {
			_, err = s.bus.Send(bus.Import{Path: change.Entry, Data: data})
		}
	}

	s.mutex.Lock()
	s.status.LastActivity = change.Timestamp
	switch {
	case err != nil:
		s.status.Failed++
	case change.Removed():
		s.status.Deleted++
	default:
		s.status.Imported++
	}
	callback := s.callback
	s.mutex.Unlock()

	entry := log.LogWithFields(log.F("path", change.Entry.String()), log.F("op", change.Op.String()))
	if err != nil {
		entry.WithError(err).Warn("Could not sync change")
	} else {
		entry.Debug("Synced change")
	}
	if callback != nil {
		callback(change.Entry, err)
	}
	return err
}
