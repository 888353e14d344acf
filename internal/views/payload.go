package views

import (
	"packedit/internal/errors"
	"packedit/internal/packedfile"
	"packedit/pkg/types"
)

// Payload binds one decoded representation to its display surface
type Payload interface {
	Type() types.PackedFileType
	Surface() Surface
	// Populate fills the surface from file, which must carry Type()
	Populate(file packedfile.DecodedFile) error
	// Extract reads the current display state back into a DecodedFile
	Extract() (packedfile.DecodedFile, error)
}

func mismatch(want types.PackedFileType, file packedfile.DecodedFile) error {
	got := "nil"
	if file != nil {
		got = file.Type().String()
	}
	return errors.NewKind(errors.UnsupportedType, "%s view cannot hold %s data", want, got)
}

func surfaceError(msg string, err error) error {
	return errors.NewEntryError(msg, "", errors.ExtractionError, err)
}

// TextView edits a Text entry
type TextView struct {
	surface  TextSurface
	encoding packedfile.Encoding
}

// NewTextView wraps s
func NewTextView(s TextSurface) *TextView {
	return &TextView{surface: s}
}

func (v *TextView) Type() types.PackedFileType { return types.Text }
func (v *TextView) Surface() Surface           { return v.surface }

// Populate shows the text and remembers its encoding for Extract
func (v *TextView) Populate(file packedfile.DecodedFile) error {
	text, ok := file.(*packedfile.Text)
	if !ok || text == nil {
		return mismatch(types.Text, file)
	}
	if err := v.surface.WriteText(text.Contents); err != nil {
		return surfaceError("cannot write text surface", err)
	}
	v.encoding = text.Encoding
	return nil
}

func (v *TextView) Extract() (packedfile.DecodedFile, error) {
	s, err := v.surface.ReadText()
	if err != nil {
		return nil, surfaceError("cannot read text surface", err)
	}
	return &packedfile.Text{Contents: s, Encoding: v.encoding}, nil
}

// TableView edits a Table entry
type TableView struct {
	surface TableSurface
}

// NewTableView wraps s
func NewTableView(s TableSurface) *TableView {
	return &TableView{surface: s}
}

func (v *TableView) Type() types.PackedFileType { return types.Table }
func (v *TableView) Surface() Surface           { return v.surface }

func (v *TableView) Populate(file packedfile.DecodedFile) error {
	table, ok := file.(*packedfile.Table)
	if !ok || table == nil {
		return mismatch(types.Table, file)
	}
	clone := table.Clone().(*packedfile.Table)
	if err := v.surface.WriteTable(clone.Columns, clone.Rows); err != nil {
		return surfaceError("cannot write table surface", err)
	}
	return nil
}

func (v *TableView) Extract() (packedfile.DecodedFile, error) {
	columns, rows, err := v.surface.ReadTable()
	if err != nil {
		return nil, surfaceError("cannot read table surface", err)
	}
	out := &packedfile.Table{Columns: columns, Rows: rows}
	return out.Clone(), nil
}

// ImageView shows an Image entry. Images are not editable, so Extract
// returns what was populated.
type ImageView struct {
	surface ImageSurface
	image   *packedfile.Image
}

// NewImageView wraps s
func NewImageView(s ImageSurface) *ImageView {
	return &ImageView{surface: s}
}

func (v *ImageView) Type() types.PackedFileType { return types.Image }
func (v *ImageView) Surface() Surface           { return v.surface }

func (v *ImageView) Populate(file packedfile.DecodedFile) error {
	img, ok := file.(*packedfile.Image)
	if !ok || img == nil {
		return mismatch(types.Image, file)
	}
	clone := img.Clone().(*packedfile.Image)
	if err := v.surface.ShowImage(clone); err != nil {
		return surfaceError("cannot show image", err)
	}
	v.image = clone
	return nil
}

func (v *ImageView) Extract() (packedfile.DecodedFile, error) {
	if v.image == nil {
		return nil, surfaceError("image view is empty", nil)
	}
	return v.image.Clone(), nil
}

// Placeholder stands in for an entry no view can edit
type Placeholder struct {
	surface Surface
	tag     types.PackedFileType
	reason  error
}

func (v *Placeholder) Type() types.PackedFileType { return v.tag }
func (v *Placeholder) Surface() Surface           { return v.surface }

// Reason is the error that prevented a real view
func (v *Placeholder) Reason() error { return v.reason }

func (v *Placeholder) Populate(file packedfile.DecodedFile) error {
	if file == nil || file.Type() != v.tag {
		return mismatch(v.tag, file)
	}
	return nil
}

func (v *Placeholder) Extract() (packedfile.DecodedFile, error) {
	return nil, errors.NewEntryError("read-only placeholder", "", errors.UnsupportedType, v.reason)
}
