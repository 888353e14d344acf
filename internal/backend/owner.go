// Package backend runs the single owner of the archive. Every read and every
// mutation of the archive happens on the owner's goroutine, one command at a
// time, so the archive is never observed mid-mutation.
package backend

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"packedit/internal/archive"
	"packedit/internal/bus"
	"packedit/internal/errors"
	"packedit/internal/log"
	"packedit/internal/packedfile"
	"packedit/pkg/types"
)

// Detector classifies entries by path, then by content
type Detector interface {
	DetectContent(p types.Path, data []byte) types.PackedFileType
}

// Stats counts handled commands
type Stats struct {
	Handled int
	Failed  int
}

// Owner holds the authoritative archive
type Owner struct {
	archive  *archive.Archive
	bus      *bus.Bus
	codec    packedfile.Codec
	detector Detector

	stats Stats
}

// New creates an owner for a. It does nothing until Run is called.
func New(a *archive.Archive, b *bus.Bus, codec packedfile.Codec, detector Detector) *Owner {
	if codec == nil {
		codec = packedfile.DefaultCodec{}
	}
	if detector == nil {
		detector = packedfile.DefaultDetector()
	}
	return &Owner{
		archive:  a,
		bus:      b,
		codec:    codec,
		detector: detector,
	}
}

// Run attaches to the bus and handles commands until ctx is done or the bus
// is closed. When Run returns the receiver is closed, so every further send
// fails with BusClosed.
func (o *Owner) Run(ctx context.Context) error {
	rx, err := o.bus.Receiver()
	if err != nil {
		return fmt.Errorf("attach backend owner: %w", err)
	}
	defer rx.Close()

	log.LogWithFields(log.F("archive", o.archive.Name()), log.F("entries", o.archive.Len())).Info("Backend owner started")
	for {
		req, ok := rx.Next(ctx)
		if !ok {
			break
		}
		o.serve(req)
	}
	log.LogWithFields(log.F("handled", o.stats.Handled), log.F("failed", o.stats.Failed)).Info("Backend owner stopped")
	return nil
}

// Start runs the owner on its own goroutine and returns a function that
// stops it and waits for it to finish.
func (o *Owner) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := o.Run(ctx); err != nil {
			log.LogError(err, "Backend owner failed")
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// serve handles one request and replies exactly once
func (o *Owner) serve(req *bus.Request) {
	cmd := req.Command()
	start := time.Now()
	resp := o.handle(cmd)

	o.stats.Handled++
	entry := log.LogWithFields(
		log.F("command", cmd.Name()),
		log.F("seq", req.Seq()),
		log.F("path", cmd.Target().String()),
		log.F("took", time.Since(start).String()),
	)
	if resp.Err != nil {
		o.stats.Failed++
		entry.WithError(resp.Err).Debug("Command failed")
	} else {
		entry.Debug("Command handled")
	}
	req.Reply(resp)
}

// handle turns a panicking handler into an error response
func (o *Owner) handle(cmd bus.Command) (resp bus.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.LogWithFields(log.F("command", cmd.Name()), log.F("panic", r)).
				Errorf("Command handler panicked\n%s", debug.Stack())
			resp = bus.Failed(errors.NewEntryError(
				fmt.Sprintf("%s handler failed", cmd.Name()),
				cmd.Target().String(), errors.Unknown, fmt.Errorf("panic: %v", r)))
		}
	}()

	switch c := cmd.(type) {
	case bus.Fetch:
		return o.fetch(c)
	case bus.Commit:
		return o.commit(c)
	case bus.List:
		return bus.Response{Entries: o.archive.List()}
	case bus.Import:
		return o.importEntry(c)
	case bus.Delete:
		return o.delete(c)
	case bus.Extract:
		return o.extract(c)
	}
	return bus.Failed(errors.NewKind(errors.UnsupportedType, "unsupported command %s", cmd.Name()))
}

func (o *Owner) fetch(c bus.Fetch) bus.Response {
	e, ok := o.archive.Get(c.Path)
	if !ok {
		return bus.Failed(errors.NewEntryError("entry not found", c.Path.String(), errors.NotFound, nil))
	}
	file, err := o.codec.Decode(e.Data, e.Type)
	if err != nil {
		return bus.Failed(errors.NewEntryError("fetch failed", c.Path.String(), errors.KindOf(err), err))
	}
	return bus.Response{File: file}
}

// commit replaces the entry payload only after encoding fully succeeded
func (o *Owner) commit(c bus.Commit) bus.Response {
	e, ok := o.archive.Get(c.Path)
	if !ok {
		return bus.Failed(errors.NewEntryError("entry not found", c.Path.String(), errors.NotFound, nil))
	}
	if c.File == nil || c.File.Type() == types.Unknown {
		return bus.Failed(errors.NewEntryError("cannot commit undecoded data", c.Path.String(), errors.UnsupportedType, nil))
	}
	if c.File.Type() != e.Type {
		return bus.Failed(errors.NewEntryError("commit failed", c.Path.String(), errors.EncodeError,
			fmt.Errorf("entry is %s, got %s", e.Type, c.File.Type())))
	}

	data, err := o.codec.Encode(c.File)
	if err != nil {
		return bus.Failed(errors.NewEntryError("commit failed", c.Path.String(), errors.KindOf(err), err))
	}
	if err := o.archive.Replace(c.Path, data); err != nil {
		return bus.Failed(err)
	}
	return bus.Response{Ack: &bus.Ack{Path: c.Path.Clone(), Type: e.Type, Size: int64(len(data))}}
}

func (o *Owner) importEntry(c bus.Import) bus.Response {
	typ := o.detector.DetectContent(c.Path, c.Data)
	e, err := o.archive.Put(c.Path, typ, c.Data)
	if err != nil {
		return bus.Failed(err)
	}
	return bus.Response{Ack: &bus.Ack{Path: e.Path.Clone(), Type: e.Type, Size: int64(len(e.Data))}}
}

func (o *Owner) delete(c bus.Delete) bus.Response {
	e, ok := o.archive.Get(c.Path)
	if !ok {
		return bus.Failed(errors.NewEntryError("entry not found", c.Path.String(), errors.NotFound, nil))
	}
	ack := &bus.Ack{Path: e.Path.Clone(), Type: e.Type, Size: int64(len(e.Data))}
	if err := o.archive.Delete(c.Path); err != nil {
		return bus.Failed(err)
	}
	return bus.Response{Ack: ack}
}

func (o *Owner) extract(c bus.Extract) bus.Response {
	written, err := o.archive.Extract(c.Dir, c.Paths)
	if err != nil {
		log.LogWithFields(log.F("dir", c.Dir), log.F("written", len(written))).WithError(err).Warn("Extraction stopped")
		return bus.Failed(err)
	}
	return bus.Response{Entries: written}
}
