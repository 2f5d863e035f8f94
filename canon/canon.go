// Package canon compares JSON documents by content.
//
// Documents are flattened into path/value maps, optionally with array
// element order neutralized, and compared entry by entry. A value tree can
// also be transcoded into an annotated markup tree and back without loss.
package canon

import (
	"strings"

	"github.com/mcncl/jsoncanon/internal/comparator"
	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/markup"
	"github.com/mcncl/jsoncanon/internal/models"
	"github.com/mcncl/jsoncanon/internal/parser"
	"github.com/mcncl/jsoncanon/internal/pathalizer"
	"github.com/mcncl/jsoncanon/internal/presenter"
	"github.com/stretchr/testify/assert"
)

type (
	// Value is a parsed JSON document.
	Value = models.Value
	// Tree is the annotated markup form of a document.
	Tree = markup.Tree
	// PathMap is a flattened document.
	PathMap = pathalizer.PathMap
	// Options controls flattening and comparison.
	Options = pathalizer.Options
	// Difference is one path whose values differ.
	Difference = comparator.Difference
)

// DefaultOptions orders members by name and keeps array order significant.
func DefaultOptions() Options {
	return pathalizer.DefaultOptions()
}

// Parse reads a single JSON document.
func Parse(s string) (Value, error) {
	return parser.ParseString(s)
}

// ToMarkup encodes v as an annotated markup tree.
func ToMarkup(v Value) (*Tree, error) {
	return markup.Encode(v)
}

// FromMarkup rebuilds the document encoded in t.
func FromMarkup(t *Tree) (Value, error) {
	return markup.Decode(t)
}

// Flatten maps every scalar of v to its path.
func Flatten(v Value, opts Options) (*PathMap, error) {
	return pathalizer.Flatten(v, opts)
}

// Equal reports whether two flattened documents hold the same paths and
// values. Maps with different index widths are reconciled first.
func Equal(left, right *PathMap) bool {
	l, r, err := comparator.Reconcile(left, right)
	if err != nil {
		return false
	}
	return comparator.Equal(l, r)
}

// Present renders both maps side by side with one line per path.
func Present(left, right *PathMap) string {
	l, r, err := comparator.Reconcile(left, right)
	if err != nil {
		l, r = left, right
	}
	return presenter.Present(l, r)
}

// Result is the outcome of Compare.
type Result struct {
	Equal       bool
	Left        *PathMap
	Right       *PathMap
	Differences []Difference
}

// Report renders the comparison with EXPECTED and ACTUAL headers.
func (r Result) Report() string {
	return presenter.NewPresenter().
		WithLabels(presenter.ExpectedLabel, presenter.ActualLabel).
		Render(r.Left, r.Right)
}

// Compare flattens both documents with opts and compares them.
func Compare(expected, actual Value, opts Options) (Result, error) {
	left, err := pathalizer.Flatten(expected, opts)
	if err != nil {
		return Result{}, err
	}
	right, err := pathalizer.Flatten(actual, opts)
	if err != nil {
		return Result{}, err
	}
	left, right, err = comparator.Reconcile(left, right)
	if err != nil {
		return Result{}, err
	}

	diffs := comparator.Diff(left, right)
	return Result{
		Equal:       len(diffs) == 0,
		Left:        left,
		Right:       right,
		Differences: diffs,
	}, nil
}

// CompareStrings parses and compares two JSON texts.
func CompareStrings(expected, actual string, opts Options) (Result, error) {
	e, err := parser.ParseString(expected)
	if err != nil {
		return Result{}, errors.NewInputError("expected document", err)
	}
	a, err := parser.ParseString(actual)
	if err != nil {
		return Result{}, errors.NewInputError("actual document", err)
	}
	return Compare(e, a, opts)
}

// AssertJSONEqual asserts that two JSON texts hold the same content under
// opts. On a mismatch the side-by-side report is part of the failure.
func AssertJSONEqual(t assert.TestingT, expected, actual string, opts Options, msgAndArgs ...interface{}) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}

	result, err := CompareStrings(expected, actual, opts)
	if err != nil {
		return assert.Fail(t, "Unable to compare JSON documents: "+err.Error(), msgAndArgs...)
	}
	if result.Equal {
		return true
	}

	var b strings.Builder
	b.WriteString("JSON documents differ:\n")
	b.WriteString(result.Report())
	return assert.Fail(t, b.String(), msgAndArgs...)
}
