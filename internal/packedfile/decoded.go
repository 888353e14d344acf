// Package packedfile holds the decoded representations of archive entries
// and the codec translating them to and from raw bytes.
package packedfile

import "packedit/pkg/types"

// DecodedFile is the editable, type tagged representation of one entry's
// contents. Values are treated as immutable once they cross the command bus;
// use Clone to obtain a private copy.
type DecodedFile interface {
	Type() types.PackedFileType
	Clone() DecodedFile
}

// Encoding records how a text entry was stored so it can be written back the
// same way.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF8BOM
	UTF16LE
)

func (e Encoding) String() string {
	switch e {
	case UTF8BOM:
		return "utf-8-bom"
	case UTF16LE:
		return "utf-16le"
	default:
		return "utf-8"
	}
}

// Text is a decoded text entry
type Text struct {
	Contents string
	Encoding Encoding
}

// NewText returns UTF-8 text
func NewText(contents string) *Text {
	return &Text{Contents: contents}
}

func (t *Text) Type() types.PackedFileType { return types.Text }

func (t *Text) Clone() DecodedFile {
	c := *t
	return &c
}

// Table is a decoded table entry. Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t *Table) Type() types.PackedFileType { return types.Table }

func (t *Table) Clone() DecodedFile {
	c := &Table{Columns: append([]string(nil), t.Columns...)}
	if t.Rows != nil {
		c.Rows = make([][]string, len(t.Rows))
		for i, row := range t.Rows {
			c.Rows[i] = append([]string(nil), row...)
		}
	}
	return c
}

// Image is a decoded picture. It is displayed, never edited.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

func (i *Image) Type() types.PackedFileType { return types.Image }

func (i *Image) Clone() DecodedFile {
	c := *i
	c.Data = append([]byte(nil), i.Data...)
	return &c
}

// Unknown carries the raw bytes of an entry whose type is undetermined
type Unknown struct {
	Data []byte
}

func (u *Unknown) Type() types.PackedFileType { return types.Unknown }

func (u *Unknown) Clone() DecodedFile {
	return &Unknown{Data: append([]byte(nil), u.Data...)}
}
