// Package comparator decides whether two flattened documents are equal and
// lists where they differ.
package comparator

import (
	"github.com/mcncl/jsoncanon/internal/analyzer"
	"github.com/mcncl/jsoncanon/internal/pathalizer"
)

// DifferenceKind classifies a difference between two maps.
type DifferenceKind int

const (
	// Changed means both maps hold the path with different values.
	Changed DifferenceKind = iota
	// MissingLeft means only the right map holds the path.
	MissingLeft
	// MissingRight means only the left map holds the path.
	MissingRight
)

func (k DifferenceKind) String() string {
	switch k {
	case Changed:
		return "changed"
	case MissingLeft:
		return "missing-left"
	case MissingRight:
		return "missing-right"
	default:
		return "unknown"
	}
}

// Difference is one path at which two maps disagree.
type Difference struct {
	Path  string
	Left  analyzer.Scalar
	Right analyzer.Scalar
	Kind  DifferenceKind
}

// Reconcile brings both maps to the same index width by padding the
// narrower one. The inputs are not modified.
func Reconcile(left, right *pathalizer.PathMap) (*pathalizer.PathMap, *pathalizer.PathMap, error) {
	switch {
	case left.Width() < right.Width():
		padded, err := left.Repad(right.Width())
		if err != nil {
			return nil, nil, err
		}
		return padded, right, nil
	case right.Width() < left.Width():
		padded, err := right.Repad(left.Width())
		if err != nil {
			return nil, nil, err
		}
		return left, padded, nil
	default:
		return left, right, nil
	}
}

// Equal reports whether two maps hold the same paths with equal values.
// Maps of different widths should be reconciled first.
func Equal(left, right *pathalizer.PathMap) bool {
	if left.Len() != right.Len() {
		return false
	}
	for _, e := range left.Entries() {
		r, ok := right.Get(e.Path)
		if !ok || !e.Value.Equal(r) {
			return false
		}
	}
	return true
}

// Diff returns every difference between two maps in path order.
func Diff(left, right *pathalizer.PathMap) []Difference {
	var diffs []Difference
	for _, path := range Union(left, right) {
		l, lok := left.Get(path)
		r, rok := right.Get(path)
		switch {
		case !lok:
			diffs = append(diffs, Difference{Path: path, Right: r, Kind: MissingLeft})
		case !rok:
			diffs = append(diffs, Difference{Path: path, Left: l, Kind: MissingRight})
		case !l.Equal(r):
			diffs = append(diffs, Difference{Path: path, Left: l, Right: r, Kind: Changed})
		}
	}
	return diffs
}

// Union returns the sorted union of both maps' paths.
func Union(left, right *pathalizer.PathMap) []string {
	a, b := left.Keys(), right.Keys()
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
