package types

import "strings"

// Path addresses one entry inside an archive as a sequence of segments,
// e.g. ["db", "units_tables", "data"].
type Path []string

// ParsePath splits a slash separated path. Empty segments are dropped, so
// "/text//readme.txt" and "text/readme.txt" are the same path.
func ParsePath(s string) Path {
	s = strings.ReplaceAll(s, "\\", "/")
	var p Path
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			p = append(p, seg)
		}
	}
	return p
}

// String joins the segments with '/'
func (p Path) String() string {
	return strings.Join(p, "/")
}

// Key returns a comparable form of the path for use as a map key
func (p Path) Key() string {
	return p.String()
}

// IsEmpty reports whether the path has no segments
func (p Path) IsEmpty() bool {
	return len(p) == 0
}

// Name returns the last segment
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Equal reports whether both paths have the same segments
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share the backing array
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	c := make(Path, len(p))
	copy(c, p)
	return c
}
