// Package pathalizer flattens a JSON value tree into a map from path to
// scalar, and can neutralize array element order so that two documents
// differing only in the order of array elements flatten identically.
package pathalizer

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/iancoleman/strcase"
	"github.com/mcncl/jsoncanon/internal/analyzer"
	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/jsonpath"
	"github.com/mcncl/jsoncanon/internal/models"
)

// DefaultMaxNesting is used when Options.MaxNesting is zero.
const DefaultMaxNesting = 10000

// Options controls flattening.
type Options struct {
	// IgnoredNames drops every member with one of these names, at any depth.
	IgnoredNames []string

	// IgnoredPatterns drops every member whose name matches one of these
	// expressions. Names are normalized first when NormalizeNames is set.
	IgnoredPatterns []*regexp.Regexp

	// NormalizeNames matches IgnoredNames on snake_case forms, so that
	// "createdAt" also drops "created_at" and "CreatedAt".
	NormalizeNames bool

	// OrderProperties walks object members sorted by name.
	OrderProperties bool

	// CanonicalizeArrays reorders array elements by content.
	CanonicalizeArrays bool

	// MaxDepth omits values nested deeper than this many levels below the
	// root. Zero means unlimited; 1 keeps only the root's own scalars.
	MaxDepth int

	// MaxNesting bounds the nesting the walk accepts. Zero means
	// DefaultMaxNesting.
	MaxNesting int

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// DefaultOptions returns the options used when a caller has no preference:
// members ordered by name, array order significant.
func DefaultOptions() Options {
	return Options{
		OrderProperties: true,
		MaxNesting:      DefaultMaxNesting,
	}
}

// flattener holds the state of one Flatten call.
type flattener struct {
	opts    Options
	ignored map[string]struct{}
	logger  *slog.Logger

	out *PathMap

	// arrays maps each array path to its depth; children maps each array
	// element path to its array, and arrayChildren lists them in order.
	arrays        map[string]int
	children      map[string]string
	arrayChildren map[string][]string
}

// Flatten walks v depth-first and records every scalar under its path.
func Flatten(v models.Value, opts Options) (*PathMap, error) {
	if opts.MaxNesting <= 0 {
		opts.MaxNesting = DefaultMaxNesting
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	f := &flattener{
		opts:          opts,
		ignored:       make(map[string]struct{}, len(opts.IgnoredNames)),
		logger:        logger,
		out:           NewPathMap(),
		arrays:        make(map[string]int),
		children:      make(map[string]string),
		arrayChildren: make(map[string][]string),
	}
	for _, name := range opts.IgnoredNames {
		f.ignored[f.normalize(name)] = struct{}{}
	}

	if err := f.walk(v); err != nil {
		return nil, err
	}
	logger.Debug("flattened document",
		"entries", f.out.Len(),
		"arrays", len(f.arrays),
		"max_children", f.out.maxChildren)

	if opts.CanonicalizeArrays {
		f.canonicalize()
		logger.Debug("canonicalized arrays", "width", f.out.width)
	}
	return f.out, nil
}

func (f *flattener) normalize(name string) string {
	if f.opts.NormalizeNames {
		return strcase.ToSnake(name)
	}
	return name
}

func (f *flattener) isIgnored(name string) bool {
	if len(f.ignored) == 0 && len(f.opts.IgnoredPatterns) == 0 {
		return false
	}
	name = f.normalize(name)
	if _, ok := f.ignored[name]; ok {
		return true
	}
	for _, re := range f.opts.IgnoredPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (f *flattener) tooDeep(depth int) bool {
	return f.opts.MaxDepth > 0 && depth > f.opts.MaxDepth
}

// walk is an explicit-stack depth-first traversal.
func (f *flattener) walk(root models.Value) error {
	type item struct {
		value models.Value
		path  string
		depth int
	}
	stack := []item{{value: root, path: jsonpath.Root}}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.depth > f.opts.MaxNesting {
			return errors.NewFlattenError(
				fmt.Sprintf("at %s: nesting deeper than %d levels", it.path, f.opts.MaxNesting),
				errors.ErrNestingTooDeep,
			)
		}

		switch it.value.Kind() {
		case models.Object:
			members := it.value.Members()
			if f.opts.OrderProperties {
				sort.SliceStable(members, func(i, j int) bool { return members[i].Name < members[j].Name })
			}
			// Pushed in reverse so members pop in walk order.
			for i := len(members) - 1; i >= 0; i-- {
				m := members[i]
				if f.isIgnored(m.Name) || f.tooDeep(it.depth+1) {
					continue
				}
				stack = append(stack, item{value: m.Value, path: jsonpath.Member(it.path, m.Name), depth: it.depth + 1})
			}
		case models.Array:
			n := it.value.Len()
			f.arrays[it.path] = it.depth
			if n > f.out.maxChildren {
				f.out.maxChildren = n
			}
			if f.tooDeep(it.depth + 1) {
				continue
			}
			paths := make([]string, n)
			for i := 0; i < n; i++ {
				paths[i] = jsonpath.Index(it.path, i, jsonpath.DefaultIndexWidth)
				f.children[paths[i]] = it.path
			}
			f.arrayChildren[it.path] = paths
			for i := n - 1; i >= 0; i-- {
				stack = append(stack, item{value: it.value.Index(i), path: paths[i], depth: it.depth + 1})
			}
		default:
			f.out.Set(it.path, analyzer.Sniff(it.value))
		}
	}
	return nil
}
