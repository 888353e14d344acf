// Package archive holds the authoritative in-memory entries of an opened
// PackFile. An Archive is not safe for concurrent use: it belongs to the
// backend owner goroutine and nothing else.
package archive

import (
	"sort"

	"packedit/internal/errors"
	"packedit/pkg/types"
)

// Entry is one file inside the archive
type Entry struct {
	Path types.Path
	Type types.PackedFileType
	Data []byte
}

// Info returns the listing row of the entry
func (e *Entry) Info() types.EntryInfo {
	return types.EntryInfo{Path: e.Path.Clone(), Type: e.Type, Size: int64(len(e.Data))}
}

// Archive maps entry paths to entries
type Archive struct {
	name    string
	entries map[string]*Entry
}

// New creates an empty archive
func New(name string) *Archive {
	return &Archive{
		name:    name,
		entries: make(map[string]*Entry),
	}
}

// Name is the display name, usually the folder or file it was loaded from
func (a *Archive) Name() string {
	return a.name
}

// Len returns the number of entries
func (a *Archive) Len() int {
	return len(a.entries)
}

// Get returns the entry at p
func (a *Archive) Get(p types.Path) (*Entry, bool) {
	e, ok := a.entries[p.Key()]
	return e, ok
}

// Put adds or replaces an entry. The archive keeps its own copy of data.
func (a *Archive) Put(p types.Path, typ types.PackedFileType, data []byte) (*Entry, error) {
	if p.IsEmpty() {
		return nil, errors.NewEntryError("invalid path", "", errors.InvalidState, nil)
	}
	e := &Entry{
		Path: p.Clone(),
		Type: typ,
		Data: append([]byte(nil), data...),
	}
	a.entries[p.Key()] = e
	return e, nil
}

// Replace swaps the payload of an existing entry in a single assignment, so
// a reader never sees a partially written entry.
func (a *Archive) Replace(p types.Path, data []byte) error {
	e, ok := a.entries[p.Key()]
	if !ok {
		return errors.NewEntryError("entry not found", p.String(), errors.NotFound, nil)
	}
	e.Data = append([]byte(nil), data...)
	return nil
}

// Delete removes the entry at p
func (a *Archive) Delete(p types.Path) error {
	if _, ok := a.entries[p.Key()]; !ok {
		return errors.NewEntryError("entry not found", p.String(), errors.NotFound, nil)
	}
	delete(a.entries, p.Key())
	return nil
}

// List returns every entry sorted by path
func (a *Archive) List() []types.EntryInfo {
	out := make([]types.EntryInfo, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path.String() < out[j].Path.String()
	})
	return out
}
