package packedfile

import (
	"fmt"
	"strings"

	"packedit/internal/config"
	"packedit/pkg/types"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"
)

type typeRule struct {
	pattern string
	matcher glob.Glob
	typ     types.PackedFileType
}

// Detector classifies entry paths. The first matching rule wins.
type Detector struct {
	rules []typeRule
}

// NewDetector compiles the rules in order. Patterns are lowercased, like
// the paths Detect matches them against.
func NewDetector(rules []config.TypeRule) (*Detector, error) {
	d := &Detector{}
	for i, r := range rules {
		m, err := glob.Compile(strings.ToLower(r.Pattern), '/')
		if err != nil {
			return nil, fmt.Errorf("type rule %d (%s): %w", i, r.Pattern, err)
		}
		typ, err := types.ParsePackedFileType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("type rule %d (%s): %w", i, r.Pattern, err)
		}
		d.rules = append(d.rules, typeRule{pattern: r.Pattern, matcher: m, typ: typ})
	}
	return d, nil
}

// DefaultDetector uses config.DefaultTypeRules
func DefaultDetector() *Detector {
	d, err := NewDetector(config.DefaultTypeRules())
	if err != nil {
		panic(err)
	}
	return d
}

// Detect returns the type for p, Unknown when no rule matches. Matching is
// case insensitive.
func (d *Detector) Detect(p types.Path) types.PackedFileType {
	s := strings.ToLower(p.String())
	for _, r := range d.rules {
		if r.matcher.Match(s) {
			return r.typ
		}
	}
	return types.Unknown
}

// DetectContent is Detect with a fallback for paths no rule matches: data
// sniffed as a decodable image is an Image, anything else stays Unknown.
func (d *Detector) DetectContent(p types.Path, data []byte) types.PackedFileType {
	if typ := d.Detect(p); typ != types.Unknown {
		return typ
	}
	switch mimetype.Detect(data).String() {
	case "image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff", "image/webp":
		return types.Image
	}
	return types.Unknown
}
