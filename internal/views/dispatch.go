package views

import (
	"packedit/internal/errors"
	"packedit/internal/packedfile"
	"packedit/pkg/types"
)

// Build creates the payload matching file's tag and populates it. A tag
// without a view fails with UnsupportedType; the caller shows a placeholder.
func Build(tk Toolkit, file packedfile.DecodedFile) (Payload, error) {
	var p Payload
	switch file.(type) {
	case *packedfile.Text:
		p = NewTextView(tk.NewTextSurface())
	case *packedfile.Table:
		p = NewTableView(tk.NewTableSurface())
	case *packedfile.Image:
		p = NewImageView(tk.NewImageSurface())
	case nil:
		return nil, errors.NewKind(errors.UnsupportedType, "no view for empty data")
	default:
		return nil, errors.NewKind(errors.UnsupportedType, "no view for %s data", file.Type())
	}

	if err := p.Populate(file); err != nil {
		release(p.Surface())
		return nil, err
	}
	return p, nil
}

// NewPlaceholder builds the read-only stand-in for a file Build rejected
func NewPlaceholder(tk Toolkit, path types.Path, file packedfile.DecodedFile, reason error) *Placeholder {
	tag := types.Unknown
	if file != nil {
		tag = file.Type()
	}
	return &Placeholder{
		surface: tk.NewPlaceholder(path, reason),
		tag:     tag,
		reason:  reason,
	}
}

// extract reads the view back using the path chosen by its stored tag
func extract(v *View) (packedfile.DecodedFile, error) {
	var (
		file packedfile.DecodedFile
		err  error
	)
	switch v.tag {
	case types.Text:
		p, ok := v.payload.(*TextView)
		if !ok {
			return nil, payloadMismatch(v)
		}
		file, err = p.Extract()
	case types.Table:
		p, ok := v.payload.(*TableView)
		if !ok {
			return nil, payloadMismatch(v)
		}
		file, err = p.Extract()
	case types.Image:
		p, ok := v.payload.(*ImageView)
		if !ok {
			return nil, payloadMismatch(v)
		}
		file, err = p.Extract()
	default:
		return nil, errors.NewEntryError("cannot save", v.path.String(), errors.UnsupportedType, placeholderReason(v))
	}
	if err != nil {
		return nil, errors.NewEntryError("cannot save", v.path.String(), errors.KindOf(err), err)
	}
	return file, nil
}

func payloadMismatch(v *View) error {
	return errors.NewEntryError("view payload does not match its type", v.path.String(), errors.InvalidState, nil)
}

func placeholderReason(v *View) error {
	if p, ok := v.payload.(*Placeholder); ok {
		return p.Reason()
	}
	return nil
}

func release(s Surface) {
	if r, ok := s.(Releaser); ok {
		r.Release()
	}
}
