package packedfile

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"packedit/internal/config"
	"packedit/internal/errors"
	"packedit/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTextCodec(t *testing.T) {
	codec := DefaultCodec{}

	tests := []struct {
		name     string
		raw      []byte
		contents string
		encoding Encoding
	}{
		{"plain", []byte("hello"), "hello", UTF8},
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, "hej då"...), "hej då", UTF8BOM},
		{"utf16", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi", UTF16LE},
		{"empty", []byte{}, "", UTF8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := codec.Decode(tt.raw, types.Text)
			require.NoError(t, err)
			text, ok := decoded.(*Text)
			require.True(t, ok)
			assert.Equal(t, tt.contents, text.Contents)
			assert.Equal(t, tt.encoding, text.Encoding)

			encoded, err := codec.Encode(text)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, encoded, "encoding is preserved")
		})
	}

	_, err := codec.Decode([]byte{0xC3, 0x28}, types.Text)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.DecodeError))

	malformed := map[string][]byte{
		"dangling byte":    {0xFF, 0xFE, 'h', 0, 0x00, 0xD8, 'x'},
		"lone high":        {0xFF, 0xFE, 'h', 0, 0x00, 0xD8},
		"high then letter": {0xFF, 0xFE, 0x00, 0xD8, 'x', 0},
		"lone low":         {0xFF, 0xFE, 0x00, 0xDC, 'h', 0},
	}
	for name, raw := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode(raw, types.Text)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.DecodeError))
		})
	}

	pair, err := codec.Decode([]byte{0xFF, 0xFE, 0x3D, 0xD8, 0x00, 0xDE}, types.Text)
	require.NoError(t, err, "a surrogate pair is one rune")
	assert.Equal(t, "\U0001F600", pair.(*Text).Contents)

	_, err = codec.Encode(&Text{Contents: string([]byte{0xC3, 0x28})})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.EncodeError))
}

func TestTableCodec(t *testing.T) {
	codec := DefaultCodec{}
	raw := []byte("key\tname\nunit_a\tSpearmen\nunit_b\tArchers\n")

	decoded, err := codec.Decode(raw, types.Table)
	require.NoError(t, err)
	table := decoded.(*Table)
	assert.Equal(t, []string{"key", "name"}, table.Columns)
	assert.Equal(t, [][]string{{"unit_a", "Spearmen"}, {"unit_b", "Archers"}}, table.Rows)

	encoded, err := codec.Encode(table)
	require.NoError(t, err)
	assert.Equal(t, raw, encoded)

	empty, err := codec.Decode(nil, types.Table)
	require.NoError(t, err)
	assert.Empty(t, empty.(*Table).Columns)

	_, err = codec.Decode([]byte("a\tb\nonly-one\n"), types.Table)
	assert.True(t, errors.IsKind(err, errors.DecodeError), "ragged rows do not decode")

	_, err = codec.Encode(&Table{Columns: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.True(t, errors.IsKind(err, errors.EncodeError), "ragged rows do not encode")

	_, err = codec.Encode(&Table{Rows: [][]string{{"1"}}})
	assert.True(t, errors.IsKind(err, errors.EncodeError))
}

func TestSingleColumnTableKeepsEmptyCells(t *testing.T) {
	codec := DefaultCodec{}
	table := &Table{Columns: []string{"key"}, Rows: [][]string{{"a"}, {""}, {"b"}}}

	encoded, err := codec.Encode(table)
	require.NoError(t, err)
	assert.Equal(t, "key\na\n\"\"\nb\n", string(encoded))

	decoded, err := codec.Decode(encoded, types.Table)
	require.NoError(t, err)
	assert.Equal(t, table, decoded)

	header := &Table{Columns: []string{""}, Rows: [][]string{{"x"}}}
	encoded, err = codec.Encode(header)
	require.NoError(t, err)
	decoded, err = codec.Decode(encoded, types.Table)
	require.NoError(t, err)
	assert.Equal(t, header, decoded)
}

func TestImageCodec(t *testing.T) {
	codec := DefaultCodec{}
	raw := pngBytes(t, 3, 2)

	decoded, err := codec.Decode(raw, types.Image)
	require.NoError(t, err)
	img := decoded.(*Image)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 2, img.Height)

	encoded, err := codec.Encode(img)
	require.NoError(t, err)
	assert.Equal(t, raw, encoded)

	_, err = codec.Decode([]byte("DDS not really"), types.Image)
	assert.True(t, errors.IsKind(err, errors.DecodeError))

	_, err = codec.Encode(&Image{})
	assert.True(t, errors.IsKind(err, errors.EncodeError))
}

func TestUnknownCodec(t *testing.T) {
	codec := DefaultCodec{}
	raw := []byte{0x00, 0x01, 0x02}

	decoded, err := codec.Decode(raw, types.Unknown)
	require.NoError(t, err)
	assert.Equal(t, &Unknown{Data: raw}, decoded)

	_, err = codec.Encode(decoded)
	assert.True(t, errors.IsUnsupportedType(err))

	_, err = codec.Encode(nil)
	assert.True(t, errors.IsUnsupportedType(err))

	_, err = codec.Decode(raw, types.PackedFileType(99))
	assert.True(t, errors.IsUnsupportedType(err))
}

func TestDecodeIsDeterministic(t *testing.T) {
	codec := DefaultCodec{}
	raw := []byte("a\tb\n1\t2\n")
	first, err := codec.Decode(raw, types.Table)
	require.NoError(t, err)
	second, err := codec.Decode(raw, types.Table)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCloneDoesNotAlias(t *testing.T) {
	table := &Table{Columns: []string{"a"}, Rows: [][]string{{"1"}}}
	c := table.Clone().(*Table)
	c.Rows[0][0] = "changed"
	c.Columns[0] = "changed"
	assert.Equal(t, "1", table.Rows[0][0])
	assert.Equal(t, "a", table.Columns[0])

	img := &Image{Data: []byte{1, 2}}
	ci := img.Clone().(*Image)
	ci.Data[0] = 9
	assert.Equal(t, byte(1), img.Data[0])

	text := NewText("hello")
	ct := text.Clone().(*Text)
	ct.Contents = "bye"
	assert.Equal(t, "hello", text.Contents)
}

func TestDetector(t *testing.T) {
	d := DefaultDetector()

	tests := map[string]types.PackedFileType{
		"db/units_tables/data":         types.Table,
		"text/readme.txt":              types.Text,
		"script/campaign/mod/main.lua": types.Text,
		"ui/skins/icon.PNG":            types.Image,
		"exports/units.tsv":            types.Table,
		"models/unit.rigid_model_v2":   types.Unknown,
		"missing.bin":                  types.Unknown,
	}
	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, want, d.Detect(types.ParsePath(path)))
		})
	}

	custom, err := NewDetector([]config.TypeRule{{Pattern: "**.bin", Type: "text"}})
	require.NoError(t, err)
	assert.Equal(t, types.Text, custom.Detect(types.ParsePath("missing.bin")))

	upper, err := NewDetector([]config.TypeRule{{Pattern: "DB/**", Type: "table"}, {Pattern: "**.TXT", Type: "text"}})
	require.NoError(t, err)
	assert.Equal(t, types.Table, upper.Detect(types.ParsePath("db/units_tables/data")), "patterns match case insensitively")
	assert.Equal(t, types.Table, upper.Detect(types.ParsePath("DB/units_tables/data")))
	assert.Equal(t, types.Text, upper.Detect(types.ParsePath("text/readme.txt")))

	_, err = NewDetector([]config.TypeRule{{Pattern: "**", Type: "sound"}})
	assert.Error(t, err)
}

func TestDetectContent(t *testing.T) {
	d := DefaultDetector()

	icon := pngBytes(t, 1, 1)
	assert.Equal(t, types.Image, d.DetectContent(types.ParsePath("ui/skins/icon.bin"), icon), "sniffed")
	assert.Equal(t, types.Text, d.DetectContent(types.ParsePath("text/readme.txt"), icon), "rules win")
	assert.Equal(t, types.Unknown, d.DetectContent(types.ParsePath("models/unit.rigid_model_v2"), []byte("\x00\x01RMV2")))
	assert.Equal(t, types.Unknown, d.DetectContent(types.ParsePath("notes"), []byte("plain words")), "text is never sniffed")
}
