package flatten

import (
	"fmt"
	"strings"
)

// Path addresses a leaf inside a JSON object as dot-separated field
// names, e.g. "fields.status.name". A leading "$." is accepted and
// stripped. Segments never index into arrays; hitting a non-object
// before the final segment resolves to nothing.
type Path struct {
	raw  string
	segs []string
}

// ParsePath validates and splits a dotted field path.
func ParsePath(s string) (Path, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "$.")
	if trimmed == "" {
		return Path{}, fmt.Errorf("empty field path")
	}
	segs := strings.Split(trimmed, ".")
	for _, seg := range segs {
		if seg == "" {
			return Path{}, fmt.Errorf("field path %q has an empty segment", s)
		}
	}
	return Path{raw: s, segs: segs}, nil
}

// String returns the path as originally given.
func (p Path) String() string { return p.raw }

// Resolve walks obj along the path and returns the leaf it ends on.
// The second result is false when a segment is missing or an
// intermediate value is not an object.
func (p Path) Resolve(obj map[string]any) (any, bool) {
	cur := any(obj)
	for _, seg := range p.segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
