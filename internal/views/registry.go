package views

import (
	"packedit/internal/bus"
	"packedit/internal/errors"
	"packedit/internal/log"
	"packedit/pkg/types"
)

// Poster is the presentation side of the command bus
type Poster interface {
	Post(cmd bus.Command) *bus.Pending
}

// OpenFunc receives the view of an Open, or why it could not be opened
type OpenFunc func(v *View, err error)

// SaveFunc receives the outcome of a Save
type SaveFunc func(err error)

// Registry tracks the open views. Like the views themselves it belongs to
// the presentation thread.
type Registry struct {
	bus           Poster
	toolkit       Toolkit
	sched         Scheduler
	singlePreview bool

	views   []*View
	byKey   map[string]*View
	opening map[string][]OpenFunc
}

// Option configures a Registry
type Option func(*Registry)

// WithSinglePreview makes a new preview replace the previous clean one
func WithSinglePreview(enabled bool) Option {
	return func(r *Registry) {
		r.singlePreview = enabled
	}
}

// NewRegistry creates an empty registry
func NewRegistry(b Poster, tk Toolkit, sched Scheduler, opts ...Option) *Registry {
	r := &Registry{
		bus:           b,
		toolkit:       tk,
		sched:         sched,
		singlePreview: true,
		byKey:         make(map[string]*View),
		opening:       make(map[string][]OpenFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// await resumes fn on the presentation thread once p is answered
func (r *Registry) await(p *bus.Pending, fn func(bus.Response, error)) {
	go func() {
		resp, err := p.Wait()
		r.sched.Do(func() { fn(resp, err) })
	}()
}

// Open shows the entry at path. An open path yields its existing view right
// away; otherwise the entry is fetched and done runs in a later turn. Opens
// of the same path while its fetch is in flight share that fetch.
func (r *Registry) Open(path types.Path, done OpenFunc) {
	if done == nil {
		done = func(*View, error) {}
	}
	if path.IsEmpty() {
		done(nil, errors.NewEntryError("cannot open", "", errors.InvalidState, errors.New("empty path")))
		return
	}
	key := path.Key()
	if v, ok := r.byKey[key]; ok {
		done(v, nil)
		return
	}
	if waiting, ok := r.opening[key]; ok {
		r.opening[key] = append(waiting, done)
		return
	}
	r.opening[key] = []OpenFunc{done}

	path = path.Clone()
	r.await(r.bus.Post(bus.Fetch{Path: path}), func(resp bus.Response, err error) {
		waiting := r.opening[key]
		delete(r.opening, key)

		var v *View
		if err == nil {
			v, err = r.build(path, resp)
		}
		if err != nil {
			log.LogWithError(err).Warn("Could not open entry")
		}
		for _, fn := range waiting {
			fn(v, err)
		}
	})
}

func (r *Registry) build(path types.Path, resp bus.Response) (*View, error) {
	payload, err := Build(r.toolkit, resp.File)
	if errors.IsUnsupportedType(err) {
		log.LogWithFields(log.F("path", path.String())).WithError(err).Info("Showing placeholder")
		payload, err = NewPlaceholder(r.toolkit, path, resp.File, err), nil
	}
	if err != nil {
		return nil, errors.NewEntryError("cannot open", path.String(), errors.KindOf(err), err)
	}

	if r.singlePreview {
		for _, old := range r.Views() {
			if old.preview && !old.dirty && !old.IsSaving() {
				r.Close(old)
			}
		}
	}

	v := newView(path, payload)
	payload.Surface().SetOnChanged(func() { r.edited(v) })
	r.views = append(r.views, v)
	r.byKey[path.Key()] = v

	log.LogWithFields(log.F("path", path.String()), log.F("type", v.tag.String())).Debug("View opened")
	return v, nil
}

func (r *Registry) edited(v *View) {
	if v.closed || v.ReadOnly() {
		return
	}
	v.dirty = true
	v.gen++
	v.Promote()
}

// Pin promotes v to a persistent view
func (r *Registry) Pin(v *View) {
	if v != nil && !v.closed {
		v.Promote()
	}
}

// Save extracts v on the calling thread and commits the result. Extraction
// failures are reported before anything is posted, so the archive and the
// dirty flag stay as they were. On success v is marked clean unless it was
// edited while the commit was in flight.
func (r *Registry) Save(v *View, done SaveFunc) {
	if done == nil {
		done = func(error) {}
	}
	if v == nil || v.closed {
		path := ""
		if v != nil {
			path = v.path.String()
		}
		done(errors.NewEntryError("cannot save a closed view", path, errors.InvalidState, nil))
		return
	}

	file, err := extract(v)
	if err == nil && file.Type() != v.tag {
		err = errors.NewEntryError("extracted data does not match the view", v.path.String(), errors.UnsupportedType, nil)
	}
	if err != nil {
		log.LogWithError(err).Warn("Save failed")
		done(err)
		return
	}

	gen := v.gen
	v.saving++
	r.await(r.bus.Post(bus.Commit{Path: v.path, File: file}), func(resp bus.Response, err error) {
		v.saving--
		if err != nil {
			log.LogWithError(err).Warn("Save failed")
			done(err)
			return
		}
		if !v.closed {
			if v.gen == gen {
				v.dirty = false
			}
			v.Promote()
		}
		log.LogWithFields(log.F("path", v.path.String()), log.F("size", resp.Ack.Size)).Debug("View saved")
		done(nil)
	})
}

// Close discards v and any unsaved edits. It never talks to the backend.
func (r *Registry) Close(v *View) {
	if v == nil || v.closed {
		return
	}
	v.closed = true
	delete(r.byKey, v.path.Key())
	for i, open := range r.views {
		if open == v {
			r.views = append(r.views[:i], r.views[i+1:]...)
			break
		}
	}
	release(v.payload.Surface())

	entry := log.LogWithFields(log.F("path", v.path.String()))
	if v.dirty {
		entry.Info("Closed view with unsaved edits")
	} else {
		entry.Debug("View closed")
	}
}

// Views returns the open views in opening order
func (r *Registry) Views() []*View {
	return append([]*View(nil), r.views...)
}

// Get returns the open view of path
func (r *Registry) Get(path types.Path) (*View, bool) {
	v, ok := r.byKey[path.Key()]
	return v, ok
}

// Dirty returns the open views with unsaved edits
func (r *Registry) Dirty() []*View {
	var out []*View
	for _, v := range r.views {
		if v.dirty {
			out = append(out, v)
		}
	}
	return out
}

// Opening reports whether a fetch for path is in flight
func (r *Registry) Opening(path types.Path) bool {
	_, ok := r.opening[path.Key()]
	return ok
}
