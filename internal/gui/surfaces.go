//go:build !nogui
// +build !nogui

package gui

import (
	"bytes"
	"fmt"

	"packedit/internal/packedfile"
	"packedit/internal/views"
	"packedit/pkg/types"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"
)

// surface is a view surface with a widget to put in a tab
type surface interface {
	views.Surface
	Object() fyne.CanvasObject
}

type base struct {
	onChanged func()
	// edited runs after the registry has seen the change
	edited func()
}

func (b *base) SetOnChanged(fn func()) { b.onChanged = fn }

func (b *base) changed() {
	if b.onChanged != nil {
		b.onChanged()
	}
	if b.edited != nil {
		b.edited()
	}
}

// toolkit builds fyne surfaces. Only call it on the fyne main goroutine.
type toolkit struct {
	edited func()
}

func (tk *toolkit) NewTextSurface() views.TextSurface {
	s := &textSurface{base: base{edited: tk.edited}, entry: widget.NewMultiLineEntry()}
	s.entry.Wrapping = fyne.TextWrapOff
	s.entry.TextStyle = fyne.TextStyle{Monospace: true}
	return s
}

func (tk *toolkit) NewTableSurface() views.TableSurface {
	s := &tableSurface{base: base{edited: tk.edited}, cell: widget.NewEntry()}
	s.table = widget.NewTable(s.size, s.create, s.update)
	s.table.OnSelected = s.selected
	s.cell.OnSubmitted = s.apply
	s.cell.Disable()
	return s
}

func (tk *toolkit) NewImageSurface() views.ImageSurface {
	return &imageSurface{info: widget.NewLabel("")}
}

func (tk *toolkit) NewPlaceholder(p types.Path, reason error) views.Surface {
	label := widget.NewLabel(fmt.Sprintf("%s cannot be edited here.\n%v", p.Name(), reason))
	label.Wrapping = fyne.TextWrapWord
	return &placeholderSurface{label: label}
}

// textSurface edits text in a multi-line entry
type textSurface struct {
	base
	entry *widget.Entry
}

func (s *textSurface) ReadText() (string, error) { return s.entry.Text, nil }

func (s *textSurface) WriteText(text string) error {
	s.entry.OnChanged = nil
	s.entry.SetText(text)
	s.entry.OnChanged = func(string) { s.changed() }
	return nil
}

func (s *textSurface) Object() fyne.CanvasObject { return s.entry }

// tableSurface shows the header as the first row; the selected cell is
// edited in the entry below the table.
type tableSurface struct {
	base
	table   *widget.Table
	cell    *widget.Entry
	columns []string
	rows    [][]string
	current widget.TableCellID
}

func (s *tableSurface) ReadTable() ([]string, [][]string, error) {
	if s.pending() {
		return nil, nil, fmt.Errorf("cell %d,%d has an edit that was not applied", s.current.Row, s.current.Col)
	}
	return s.columns, s.rows, nil
}

// pending reports a value typed into the cell entry but not submitted yet
func (s *tableSurface) pending() bool {
	id := s.current
	if s.cell.Disabled() || id.Row == 0 || id.Row > len(s.rows) {
		return false
	}
	return s.cell.Text != s.rows[id.Row-1][id.Col]
}

func (s *tableSurface) WriteTable(columns []string, rows [][]string) error {
	s.columns, s.rows = columns, rows
	s.current = widget.TableCellID{}
	s.cell.SetText("")
	s.cell.Disable()
	for i, name := range columns {
		s.table.SetColumnWidth(i, fyne.Max(120, widget.NewLabel(name).MinSize().Width))
	}
	s.table.Refresh()
	return nil
}

func (s *tableSurface) size() (int, int) {
	return len(s.rows) + 1, len(s.columns)
}

func (s *tableSurface) create() fyne.CanvasObject {
	return widget.NewLabel("template")
}

func (s *tableSurface) update(id widget.TableCellID, obj fyne.CanvasObject) {
	label := obj.(*widget.Label)
	if id.Row == 0 {
		label.TextStyle = fyne.TextStyle{Bold: true}
		label.SetText(s.columns[id.Col])
		return
	}
	label.TextStyle = fyne.TextStyle{}
	label.SetText(s.rows[id.Row-1][id.Col])
}

func (s *tableSurface) selected(id widget.TableCellID) {
	if id.Row == 0 {
		s.cell.Disable()
		return
	}
	s.current = id
	s.cell.SetText(s.rows[id.Row-1][id.Col])
	s.cell.Enable()
}

// apply stores the edited cell
func (s *tableSurface) apply(value string) {
	id := s.current
	if id.Row == 0 || s.rows[id.Row-1][id.Col] == value {
		return
	}
	s.rows[id.Row-1][id.Col] = value
	s.table.RefreshItem(id)
	s.changed()
}

func (s *tableSurface) Object() fyne.CanvasObject {
	return container.NewBorder(nil, s.cell, nil, nil, s.table)
}

// imageSurface shows the picture with its metadata
type imageSurface struct {
	base
	image *canvas.Image
	info  *widget.Label
}

func (s *imageSurface) ShowImage(img *packedfile.Image) error {
	s.image = canvas.NewImageFromReader(bytes.NewReader(img.Data), "image."+img.Format)
	s.image.FillMode = canvas.ImageFillContain
	s.image.SetMinSize(fyne.NewSize(float32(img.Width), float32(img.Height)))
	s.info.SetText(fmt.Sprintf("%s, %d x %d, %s", img.Format, img.Width, img.Height, humanize.Bytes(uint64(len(img.Data)))))
	return nil
}

func (s *imageSurface) Object() fyne.CanvasObject {
	if s.image == nil {
		return s.info
	}
	return container.NewBorder(nil, s.info, nil, nil, s.image)
}

type placeholderSurface struct {
	base
	label *widget.Label
}

func (s *placeholderSurface) Object() fyne.CanvasObject { return s.label }
