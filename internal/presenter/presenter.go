package presenter

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mcncl/jsoncanon/internal/analyzer"
	"github.com/mcncl/jsoncanon/internal/comparator"
	"github.com/mcncl/jsoncanon/internal/pathalizer"
)

// Default header labels.
const (
	ExpectedLabel = "EXPECTED"
	ActualLabel   = "ACTUAL"
)

// DiffMarker flags a row whose two sides differ.
const DiffMarker = "X"

// Presenter renders two flattened documents side by side
type Presenter struct {
	// LeftLabel and RightLabel head the value columns. No header row is
	// written when both are empty.
	LeftLabel  string
	RightLabel string

	// Color highlights differing rows.
	Color bool

	diffStyle lipgloss.Style
	headStyle lipgloss.Style
}

// NewPresenter creates a new Presenter without labels or color
func NewPresenter() *Presenter {
	return &Presenter{
		diffStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		headStyle: lipgloss.NewStyle().Bold(true),
	}
}

// WithLabels sets the header labels.
func (p *Presenter) WithLabels(left, right string) *Presenter {
	p.LeftLabel = left
	p.RightLabel = right
	return p
}

// WithColor turns row highlighting on or off.
func (p *Presenter) WithColor(color bool) *Presenter {
	p.Color = color
	return p
}

// Present renders two maps with the default presenter.
func Present(left, right *pathalizer.PathMap) string {
	return NewPresenter().Render(left, right)
}

// Render returns one aligned line per path found in either map:
//
//	path  left-value  right-value  X
//
// A side that lacks the path is filled with '~'. Widths are measured in
// terminal cells.
func (p *Presenter) Render(left, right *pathalizer.PathMap) string {
	var buf bytes.Buffer
	// bytes.Buffer writes never fail.
	_ = p.Write(&buf, left, right)
	return buf.String()
}

// Write renders the report to w.
func (p *Presenter) Write(w io.Writer, left, right *pathalizer.PathMap) error {
	paths := comparator.Union(left, right)
	if len(paths) == 0 {
		return nil
	}

	// Calculate the column widths
	pathWidth := 0
	for _, path := range paths {
		pathWidth = max(pathWidth, lipgloss.Width(path))
	}
	leftWidth := columnWidth(left, p.LeftLabel)
	rightWidth := columnWidth(right, p.RightLabel)

	if p.LeftLabel != "" || p.RightLabel != "" {
		header := strings.TrimRight(fmt.Sprintf("%s %s %s",
			pad("", pathWidth),
			pad(p.LeftLabel, leftWidth),
			pad(p.RightLabel, rightWidth)), " ")
		if p.Color {
			header = p.headStyle.Render(header)
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
	}

	for _, path := range paths {
		l, lok := left.Get(path)
		r, rok := right.Get(path)

		marker := ""
		if lok != rok || !l.Equal(r) {
			marker = DiffMarker
		}

		line := strings.TrimRight(fmt.Sprintf("%s %s %s %s",
			pad(path, pathWidth),
			pad(cell(l, lok, leftWidth), leftWidth),
			pad(cell(r, rok, rightWidth), rightWidth),
			marker), " ")
		if marker != "" && p.Color {
			line = p.diffStyle.Render(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// columnWidth is the widest value text in m, or the label if wider.
func columnWidth(m *pathalizer.PathMap, label string) int {
	width := lipgloss.Width(label)
	for _, e := range m.Entries() {
		width = max(width, lipgloss.Width(e.Value.String()))
	}
	return width
}

func cell(s analyzer.Scalar, ok bool, width int) string {
	if !ok {
		return strings.Repeat("~", width)
	}
	return s.String()
}

// pad left-aligns s in a column of the given cell width.
func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
