// Package jsonpath formats and parses the bracket-notation paths used as
// keys of a flattened document: a root `$`, object members `['name']` and
// array elements `[NNNNNNN]` with a fixed-width, zero-padded index.
//
// Member names escape `'` and `\` with a backslash so that any name can be
// carried without making the path ambiguous.
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Root is the path of the document root.
const Root = "$"

// DefaultIndexWidth is the index width used while flattening, before any
// array canonicalization narrows it.
const DefaultIndexWidth = 7

// SegmentKind distinguishes member segments from index segments.
type SegmentKind int

const (
	MemberSegment SegmentKind = iota
	IndexSegment
)

// Segment is one step of a path.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
	// Width is the number of digits the index was written with.
	Width int
}

// Member appends a member segment to path.
func Member(path, name string) string {
	var b strings.Builder
	b.Grow(len(path) + len(name) + 4)
	b.WriteString(path)
	b.WriteString("['")
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '\'' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteString("']")
	return b.String()
}

// Index appends an index segment of the given width to path.
func Index(path string, index, width int) string {
	return path + "[" + FormatIndex(index, width) + "]"
}

// FormatIndex renders index zero-padded to width digits.
func FormatIndex(index, width int) string {
	return fmt.Sprintf("%0*d", width, index)
}

// IndexWidth returns the number of digits needed so that every index of an
// array holding maxChildren elements sorts lexicographically in numeric
// order. It is never less than 1.
func IndexWidth(maxChildren int) int {
	if maxChildren <= 1 {
		return 1
	}
	return len(strconv.Itoa(maxChildren - 1))
}

// Parse splits a path into its segments.
func Parse(path string) ([]Segment, error) {
	if !strings.HasPrefix(path, Root) {
		return nil, fmt.Errorf("path %q does not start with %q", path, Root)
	}
	var segments []Segment
	i := len(Root)
	for i < len(path) {
		if path[i] != '[' {
			return nil, fmt.Errorf("path %q: expected '[' at offset %d", path, i)
		}
		i++
		if i < len(path) && path[i] == '\'' {
			i++
			var name strings.Builder
			closed := false
			for i < len(path) {
				c := path[i]
				if c == '\\' && i+1 < len(path) {
					name.WriteByte(path[i+1])
					i += 2
					continue
				}
				if c == '\'' {
					closed = true
					i++
					break
				}
				name.WriteByte(c)
				i++
			}
			if !closed || i >= len(path) || path[i] != ']' {
				return nil, fmt.Errorf("path %q: unterminated member segment", path)
			}
			i++
			segments = append(segments, Segment{Kind: MemberSegment, Name: name.String()})
			continue
		}
		start := i
		for i < len(path) && path[i] >= '0' && path[i] <= '9' {
			i++
		}
		if i == start || i >= len(path) || path[i] != ']' {
			return nil, fmt.Errorf("path %q: malformed index segment at offset %d", path, start)
		}
		index, err := strconv.Atoi(path[start:i])
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}
		segments = append(segments, Segment{Kind: IndexSegment, Index: index, Width: i - start})
		i++
	}
	return segments, nil
}

// Build renders segments back into a path. Index segments are written with
// their own Width.
func Build(segments []Segment) string {
	path := Root
	for _, s := range segments {
		if s.Kind == MemberSegment {
			path = Member(path, s.Name)
		} else {
			path = Index(path, s.Index, s.Width)
		}
	}
	return path
}

// Repad rewrites every index segment of path to the given width. Indices
// already wider than width are left as they are.
func Repad(path string, width int) (string, error) {
	segments, err := Parse(path)
	if err != nil {
		return "", err
	}
	for i := range segments {
		if segments[i].Kind == IndexSegment && segments[i].Width < width {
			segments[i].Width = width
		}
	}
	return Build(segments), nil
}
