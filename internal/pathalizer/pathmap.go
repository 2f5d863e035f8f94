package pathalizer

import (
	"sort"

	"github.com/mcncl/jsoncanon/internal/analyzer"
	"github.com/mcncl/jsoncanon/internal/jsonpath"
)

// Entry is one path and the scalar found there.
type Entry struct {
	Path  string
	Value analyzer.Scalar
}

// PathMap maps the path of every scalar in a document to its sniffed
// value. Composites contribute no entries of their own, so empty arrays and
// objects are invisible. Iteration is always in sorted path order.
type PathMap struct {
	entries     map[string]analyzer.Scalar
	maxChildren int
	width       int
}

// NewPathMap creates an empty map using the default index width.
func NewPathMap() *PathMap {
	return &PathMap{
		entries: make(map[string]analyzer.Scalar),
		width:   jsonpath.DefaultIndexWidth,
	}
}

// Set stores the scalar found at path.
func (m *PathMap) Set(path string, s analyzer.Scalar) {
	m.entries[path] = s
}

// Get returns the scalar stored at path.
func (m *PathMap) Get(path string) (analyzer.Scalar, bool) {
	s, ok := m.entries[path]
	return s, ok
}

// Len returns the number of entries.
func (m *PathMap) Len() int { return len(m.entries) }

// MaxChildren is the length of the longest array in the document.
func (m *PathMap) MaxChildren() int { return m.maxChildren }

// Width is the number of digits used for index segments.
func (m *PathMap) Width() int { return m.width }

// Keys returns every path in sorted order.
func (m *PathMap) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns every entry in sorted path order.
func (m *PathMap) Entries() []Entry {
	keys := m.Keys()
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Path: k, Value: m.entries[k]}
	}
	return out
}

// Repad returns a copy of the map whose index segments are written with
// the given width. A map already at least that wide is copied unchanged.
func (m *PathMap) Repad(width int) (*PathMap, error) {
	out := &PathMap{
		entries:     make(map[string]analyzer.Scalar, len(m.entries)),
		maxChildren: m.maxChildren,
		width:       m.width,
	}
	if width <= m.width {
		for k, v := range m.entries {
			out.entries[k] = v
		}
		return out, nil
	}
	for k, v := range m.entries {
		padded, err := jsonpath.Repad(k, width)
		if err != nil {
			return nil, err
		}
		out.entries[padded] = v
	}
	out.width = width
	return out, nil
}
