package tui

import (
	"fmt"
	"strings"

	"packedit/internal/packedfile"
	"packedit/internal/views"
	"packedit/pkg/types"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// surface is what the editor panel needs from every view surface
type surface interface {
	views.Surface
	Update(msg tea.KeyMsg, keys KeyMap) tea.Cmd
	// Relay passes any other message, such as a cursor blink
	Relay(msg tea.Msg) tea.Cmd
	View() string
	SetSize(width, height int)
	Focus()
	Blur()
}

type base struct {
	onChanged func()
}

func (b *base) SetOnChanged(fn func()) { b.onChanged = fn }

func (b *base) changed() {
	if b.onChanged != nil {
		b.onChanged()
	}
}

// toolkit builds terminal surfaces sized to the editor panel
type toolkit struct {
	width, height int
}

func (tk *toolkit) NewTextSurface() views.TextSurface {
	s := &textSurface{area: textarea.New()}
	s.area.ShowLineNumbers = true
	// no limits: entries are whole files
	s.area.CharLimit = 0
	s.area.MaxHeight = 0
	s.SetSize(tk.width, tk.height)
	return s
}

func (tk *toolkit) NewTableSurface() views.TableSurface {
	s := &tableSurface{
		grid: table.New(table.WithFocused(true)),
		cell: textinput.New(),
	}
	s.cell.Prompt = "= "
	s.SetSize(tk.width, tk.height)
	return s
}

func (tk *toolkit) NewImageSurface() views.ImageSurface {
	return &imageSurface{}
}

func (tk *toolkit) NewPlaceholder(p types.Path, reason error) views.Surface {
	return &placeholderSurface{path: p, reason: reason}
}

// textSurface edits text in a textarea
type textSurface struct {
	base
	area textarea.Model
}

func (s *textSurface) ReadText() (string, error) { return s.area.Value(), nil }

func (s *textSurface) WriteText(text string) error {
	s.area.SetValue(text)
	return nil
}

func (s *textSurface) Update(msg tea.KeyMsg, _ KeyMap) tea.Cmd {
	before := s.area.Value()
	var cmd tea.Cmd
	s.area, cmd = s.area.Update(msg)
	if s.area.Value() != before {
		s.changed()
	}
	return cmd
}

func (s *textSurface) Relay(msg tea.Msg) tea.Cmd {
	before := s.area.Value()
	var cmd tea.Cmd
	s.area, cmd = s.area.Update(msg)
	if s.area.Value() != before {
		s.changed()
	}
	return cmd
}

func (s *textSurface) View() string { return s.area.View() }

func (s *textSurface) SetSize(width, height int) {
	s.area.SetWidth(width)
	s.area.SetHeight(height)
}

func (s *textSurface) Focus() { s.area.Focus() }
func (s *textSurface) Blur()  { s.area.Blur() }

// tableSurface shows rows in a table and edits one cell at a time
type tableSurface struct {
	base
	grid    table.Model
	cell    textinput.Model
	columns []string
	rows    [][]string
	col     int
	editing bool
	width   int
}

func (s *tableSurface) ReadTable() ([]string, [][]string, error) {
	if s.editing {
		return nil, nil, fmt.Errorf("cell %d,%d is being edited", s.grid.Cursor(), s.col)
	}
	return s.columns, s.rows, nil
}

func (s *tableSurface) WriteTable(columns []string, rows [][]string) error {
	s.columns, s.rows = columns, rows
	s.col = 0
	s.editing = false
	s.refresh()
	return nil
}

func (s *tableSurface) refresh() {
	cols := make([]table.Column, len(s.columns))
	for i, name := range s.columns {
		width := lipgloss.Width(name)
		for _, row := range s.rows {
			if i < len(row) && lipgloss.Width(row[i]) > width {
				width = lipgloss.Width(row[i])
			}
		}
		title := name
		if i == s.col {
			title = "[" + name + "]"
		}
		cols[i] = table.Column{Title: title, Width: min(max(width, len(title)), 24)}
	}
	rows := make([]table.Row, len(s.rows))
	for i, row := range s.rows {
		rows[i] = table.Row(row)
	}
	// columns first; the table renders rows against the current columns
	s.grid.SetRows(nil)
	s.grid.SetColumns(cols)
	s.grid.SetRows(rows)
}

func (s *tableSurface) Update(msg tea.KeyMsg, keys KeyMap) tea.Cmd {
	if s.editing {
		switch {
		case key.Matches(msg, keys.ApplyCell):
			s.rows[s.grid.Cursor()][s.col] = s.cell.Value()
			s.editing = false
			s.refresh()
			s.changed()
			return nil
		case key.Matches(msg, keys.Back):
			s.editing = false
			return nil
		}
		var cmd tea.Cmd
		s.cell, cmd = s.cell.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, keys.EditCell):
		if len(s.rows) == 0 || len(s.columns) == 0 {
			return nil
		}
		s.editing = true
		s.cell.SetValue(s.rows[s.grid.Cursor()][s.col])
		s.cell.CursorEnd()
		return s.cell.Focus()
	case key.Matches(msg, keys.NextCell):
		if s.col < len(s.columns)-1 {
			s.col++
			s.refresh()
		}
		return nil
	case key.Matches(msg, keys.PrevCell):
		if s.col > 0 {
			s.col--
			s.refresh()
		}
		return nil
	}
	var cmd tea.Cmd
	s.grid, cmd = s.grid.Update(msg)
	return cmd
}

func (s *tableSurface) Relay(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if s.editing {
		s.cell, cmd = s.cell.Update(msg)
		return cmd
	}
	s.grid, cmd = s.grid.Update(msg)
	return cmd
}

func (s *tableSurface) View() string {
	if len(s.columns) == 0 {
		return StatusStyle.Render("(empty table)")
	}
	out := s.grid.View()
	if s.editing {
		out += "\n" + CellStyle.Render(s.columns[s.col]) + " " + s.cell.View()
	}
	return out
}

func (s *tableSurface) SetSize(width, height int) {
	s.width = width
	s.grid.SetWidth(width)
	s.grid.SetHeight(max(height-2, 1))
	s.cell.Width = max(width-len(s.cell.Prompt)-2, 1)
}

func (s *tableSurface) Focus() { s.grid.Focus() }
func (s *tableSurface) Blur()  { s.grid.Blur() }

// imageSurface shows what the image is; terminals get no pixels
type imageSurface struct {
	base
	image *packedfile.Image
}

func (s *imageSurface) ShowImage(img *packedfile.Image) error {
	s.image = img
	return nil
}

func (s *imageSurface) Update(tea.KeyMsg, KeyMap) tea.Cmd { return nil }
func (s *imageSurface) Relay(tea.Msg) tea.Cmd             { return nil }

func (s *imageSurface) View() string {
	if s.image == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Format:     %s\n", s.image.Format)
	fmt.Fprintf(&b, "Dimensions: %d x %d\n", s.image.Width, s.image.Height)
	fmt.Fprintf(&b, "Size:       %s\n", humanize.Bytes(uint64(len(s.image.Data))))
	b.WriteString(StatusStyle.Render("(read-only)"))
	return b.String()
}

func (s *imageSurface) SetSize(int, int) {}
func (s *imageSurface) Focus()           {}
func (s *imageSurface) Blur()            {}

// placeholderSurface explains why an entry cannot be edited
type placeholderSurface struct {
	base
	path   types.Path
	reason error
}

func (s *placeholderSurface) Update(tea.KeyMsg, KeyMap) tea.Cmd { return nil }
func (s *placeholderSurface) Relay(tea.Msg) tea.Cmd             { return nil }

func (s *placeholderSurface) View() string {
	return StatusStyle.Render(fmt.Sprintf("%s cannot be edited here.\n%v", s.path.Name(), s.reason))
}

func (s *placeholderSurface) SetSize(int, int) {}
func (s *placeholderSurface) Focus()           {}
func (s *placeholderSurface) Blur()            {}
