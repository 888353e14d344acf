package packedfile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"encoding/binary"
	"io"
	"unicode/utf16"
	"unicode/utf8"

	"packedit/internal/errors"
	"packedit/pkg/types"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/text/encoding/unicode"
)

// Codec translates between raw entry bytes and decoded files. Both directions
// must be deterministic.
type Codec interface {
	Decode(data []byte, hint types.PackedFileType) (DecodedFile, error)
	Encode(file DecodedFile) ([]byte, error)
}

// DefaultCodec implements Codec for the types this module can edit
type DefaultCodec struct{}

var _ Codec = DefaultCodec{}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func decodeError(format string, args ...interface{}) error {
	return errors.NewEntryError("cannot decode", "", errors.DecodeError, fmt.Errorf(format, args...))
}

func encodeError(format string, args ...interface{}) error {
	return errors.NewEntryError("cannot encode", "", errors.EncodeError, fmt.Errorf(format, args...))
}

// Decode turns data into the representation selected by hint
func (DefaultCodec) Decode(data []byte, hint types.PackedFileType) (DecodedFile, error) {
	switch hint {
	case types.Text:
		return decodeText(data)
	case types.Table:
		return decodeTable(data)
	case types.Image:
		return decodeImage(data)
	case types.Unknown:
		return &Unknown{Data: append([]byte(nil), data...)}, nil
	}
	return nil, errors.NewEntryError("no decoder", "", errors.UnsupportedType, fmt.Errorf("type %s", hint))
}

// Encode serializes file back to raw bytes
func (DefaultCodec) Encode(file DecodedFile) ([]byte, error) {
	switch f := file.(type) {
	case *Text:
		return encodeText(f)
	case *Table:
		return encodeTable(f)
	case *Image:
		if len(f.Data) == 0 {
			return nil, encodeError("image has no data")
		}
		return append([]byte(nil), f.Data...), nil
	case nil:
		return nil, errors.NewEntryError("no encoder", "", errors.UnsupportedType, fmt.Errorf("nil file"))
	}
	return nil, errors.NewEntryError("no encoder", "", errors.UnsupportedType, fmt.Errorf("type %s", file.Type()))
}

func decodeText(data []byte) (*Text, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		if err := checkUTF16(data[2:]); err != nil {
			return nil, err
		}
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return nil, decodeError("utf-16: %v", err)
		}
		return &Text{Contents: string(out), Encoding: UTF16LE}, nil
	case bytes.HasPrefix(data, utf8BOM):
		body := data[len(utf8BOM):]
		if !utf8.Valid(body) {
			return nil, decodeError("invalid utf-8")
		}
		return &Text{Contents: string(body), Encoding: UTF8BOM}, nil
	}
	if !utf8.Valid(data) {
		return nil, decodeError("invalid utf-8")
	}
	return &Text{Contents: string(data), Encoding: UTF8}, nil
}

// checkUTF16 rejects little endian UTF-16 the decoder would patch up with
// replacement characters
func checkUTF16(body []byte) error {
	if len(body)%2 != 0 {
		return decodeError("utf-16: odd length %d", len(body))
	}
	for i := 0; i < len(body); i += 2 {
		r := rune(binary.LittleEndian.Uint16(body[i:]))
		if !utf16.IsSurrogate(r) {
			continue
		}
		if i+4 > len(body) {
			return decodeError("utf-16: unpaired surrogate at byte %d", i)
		}
		next := rune(binary.LittleEndian.Uint16(body[i+2:]))
		if utf16.DecodeRune(r, next) == utf8.RuneError {
			return decodeError("utf-16: unpaired surrogate at byte %d", i)
		}
		i += 2
	}
	return nil
}

func encodeText(t *Text) ([]byte, error) {
	if !utf8.ValidString(t.Contents) {
		return nil, encodeError("text is not valid utf-8")
	}
	switch t.Encoding {
	case UTF16LE:
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		out, err := enc.Bytes([]byte(t.Contents))
		if err != nil {
			return nil, encodeError("utf-16: %v", err)
		}
		return out, nil
	case UTF8BOM:
		return append(append([]byte(nil), utf8BOM...), t.Contents...), nil
	}
	return []byte(t.Contents), nil
}

func decodeTable(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.LazyQuotes = true

	table := &Table{}
	header, err := r.Read()
	if err == io.EOF {
		return table, nil
	}
	if err != nil {
		return nil, decodeError("table header: %v", err)
	}
	table.Columns = header

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, decodeError("table row: %v", err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

func encodeTable(t *Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		if len(t.Rows) > 0 {
			return nil, encodeError("table has rows but no columns")
		}
		return []byte{}, nil
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, encodeError("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	if err := writeRecord(w, &buf, t.Columns); err != nil {
		return nil, encodeError("table header: %v", err)
	}
	for i, row := range t.Rows {
		if err := writeRecord(w, &buf, row); err != nil {
			return nil, encodeError("table row %d: %v", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, encodeError("table rows: %v", err)
	}
	return buf.Bytes(), nil
}

// writeRecord writes one line. A lone empty cell is written quoted: the
// writer would emit a blank line, which the reader skips.
func writeRecord(w *csv.Writer, buf *bytes.Buffer, record []string) error {
	if len(record) == 1 && record[0] == "" {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		buf.WriteString("\"\"\n")
		return nil
	}
	return w.Write(record)
}

func decodeImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError("image: %v", err)
	}
	return &Image{
		Data:   append([]byte(nil), data...),
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
