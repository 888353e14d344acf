package types

import (
	"fmt"
	"strings"
)

// PackedFileType tags the decoded representation of an archive entry. It
// decides which codec path and which view variant apply to the entry.
type PackedFileType int

const (
	// Unknown is used for entries whose contents could not be classified
	Unknown PackedFileType = iota
	// Text is plain text: scripts, xml, readmes
	Text
	// Table is tabular data, one header record followed by rows
	Table
	// Image is a read-only picture
	Image
)

var typeNames = map[PackedFileType]string{
	Unknown: "unknown",
	Text:    "text",
	Table:   "table",
	Image:   "image",
}

// String returns the lowercase name used in config files and CLI output
func (t PackedFileType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PackedFileType(%d)", int(t))
}

// ParsePackedFileType parses a type name as written in config files
func ParsePackedFileType(s string) (PackedFileType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("unknown packed file type: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (t PackedFileType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *PackedFileType) UnmarshalText(text []byte) error {
	parsed, err := ParsePackedFileType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
