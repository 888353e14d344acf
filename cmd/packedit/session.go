package main

import (
	"context"
	"fmt"

	"packedit/internal/archive"
	"packedit/internal/backend"
	"packedit/internal/bus"
	"packedit/internal/config"
	"packedit/internal/log"
	"packedit/internal/packedfile"
	"packedit/internal/watch"

	"golang.org/x/sync/errgroup"
)

// session is one loaded folder with its backend owner and, optionally, the
// watcher feeding folder changes into it
type session struct {
	folder string
	bus    *bus.Bus
	syncer *watch.Syncer

	cancel context.CancelFunc
	group  *errgroup.Group
}

// openSession loads folder and starts the owner. With watchFolder the
// folder is also watched and changes are imported.
func openSession(ctx context.Context, cfg *config.Config, folder string, watchFolder bool) (*session, error) {
	detector, err := packedfile.NewDetector(cfg.Types)
	if err != nil {
		return nil, fmt.Errorf("invalid type rules: %w", err)
	}
	a, err := archive.LoadDir(folder, detector)
	if err != nil {
		return nil, err
	}

	var syncer *watch.Syncer
	b := bus.New(cfg.Bus.QueueSize, bus.WithWatchdog(cfg.Watchdog()))
	if watchFolder {
		if syncer, err = watch.NewSyncer(folder, b); err != nil {
			b.Close()
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	owner := backend.New(a, b, packedfile.DefaultCodec{}, detector)
	g.Go(func() error { return owner.Run(gctx) })
	if syncer != nil {
		g.Go(func() error { return syncer.Run(gctx) })
	}

	log.LogWithFields(log.F("folder", folder), log.F("watch", watchFolder)).Debug("Session started")
	return &session{folder: folder, bus: b, syncer: syncer, cancel: cancel, group: g}, nil
}

// Close stops the watcher and the owner and waits for both
func (s *session) Close() error {
	s.cancel()
	err := s.group.Wait()
	s.bus.Close()
	if s.syncer != nil {
		st := s.syncer.Status()
		log.LogWithFields(log.F("imported", st.Imported), log.F("deleted", st.Deleted), log.F("failed", st.Failed)).Info("Watcher stopped")
	}
	return err
}

// send posts cmd and waits for its answer
func (s *session) send(cmd bus.Command) (bus.Response, error) {
	return s.bus.Send(cmd)
}
