package views

import (
	"packedit/pkg/types"
)

// View is the presentation state of one open entry
type View struct {
	path    types.Path
	tag     types.PackedFileType
	payload Payload

	preview bool
	dirty   bool
	closed  bool
	// gen counts edits; a save only clears dirty if none happened meanwhile
	gen    uint64
	saving int
}

func newView(path types.Path, payload Payload) *View {
	return &View{
		path:    path.Clone(),
		tag:     payload.Type(),
		payload: payload,
		preview: true,
	}
}

// Path is the archive entry shown by the view
func (v *View) Path() types.Path { return v.path }

// Type is the stored type tag; it always matches the payload
func (v *View) Type() types.PackedFileType { return v.tag }

func (v *View) Payload() Payload { return v.payload }
func (v *View) Surface() Surface { return v.payload.Surface() }
func (v *View) IsPreview() bool  { return v.preview }
func (v *View) IsDirty() bool    { return v.dirty }
func (v *View) IsClosed() bool   { return v.closed }
func (v *View) IsSaving() bool   { return v.saving > 0 }

// ReadOnly reports whether edits can never reach the archive
func (v *View) ReadOnly() bool {
	switch v.payload.(type) {
	case *Placeholder, *ImageView:
		return true
	}
	return false
}

// Promote turns a preview into a persistent view. Idempotent.
func (v *View) Promote() {
	v.preview = false
}

// Title is the tab label
func (v *View) Title() string {
	title := v.path.Name()
	if v.dirty {
		title += " *"
	}
	if v.preview {
		title = "~" + title
	}
	return title
}
