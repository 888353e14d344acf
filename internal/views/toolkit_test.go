package views_test

import (
	"packedit/internal/packedfile"
	"packedit/internal/views"
	"packedit/pkg/types"
)

// memToolkit keeps surfaces in memory and lets a test play the user
type memToolkit struct {
	texts  []*memText
	tables []*memTable
	images []*memImage
	holes  []*memPlaceholder
}

type memSurface struct {
	onChanged func()
	released  bool
}

func (s *memSurface) SetOnChanged(fn func()) { s.onChanged = fn }
func (s *memSurface) Release()               { s.released = true }

func (s *memSurface) changed() {
	if s.onChanged != nil {
		s.onChanged()
	}
}

type memText struct {
	memSurface
	text    string
	readErr error
}

func (s *memText) ReadText() (string, error) {
	if s.readErr != nil {
		return "", s.readErr
	}
	return s.text, nil
}

func (s *memText) WriteText(text string) error {
	s.text = text
	return nil
}

// Type simulates the user typing
func (s *memText) Type(text string) {
	s.text = text
	s.changed()
}

type memTable struct {
	memSurface
	columns []string
	rows    [][]string
}

func (s *memTable) ReadTable() ([]string, [][]string, error) {
	return s.columns, s.rows, nil
}

func (s *memTable) WriteTable(columns []string, rows [][]string) error {
	s.columns, s.rows = columns, rows
	return nil
}

func (s *memTable) SetCell(row, col int, value string) {
	s.rows[row][col] = value
	s.changed()
}

type memImage struct {
	memSurface
	image *packedfile.Image
}

func (s *memImage) ShowImage(img *packedfile.Image) error {
	s.image = img
	return nil
}

type memPlaceholder struct {
	memSurface
	path   types.Path
	reason error
}

func (tk *memToolkit) NewTextSurface() views.TextSurface {
	s := &memText{}
	tk.texts = append(tk.texts, s)
	return s
}

func (tk *memToolkit) NewTableSurface() views.TableSurface {
	s := &memTable{}
	tk.tables = append(tk.tables, s)
	return s
}

func (tk *memToolkit) NewImageSurface() views.ImageSurface {
	s := &memImage{}
	tk.images = append(tk.images, s)
	return s
}

func (tk *memToolkit) NewPlaceholder(p types.Path, reason error) views.Surface {
	s := &memPlaceholder{path: p, reason: reason}
	tk.holes = append(tk.holes, s)
	return s
}

func textOf(v *views.View) *memText {
	return v.Surface().(*memText)
}

func tableOf(v *views.View) *memTable {
	return v.Surface().(*memTable)
}
