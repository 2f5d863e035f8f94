package pathalizer

import (
	"sort"
	"strings"

	"github.com/mcncl/jsoncanon/internal/analyzer"
	"github.com/mcncl/jsoncanon/internal/jsonpath"
)

const (
	unitSeparator   = "\x1f"
	recordSeparator = "\x1e"
)

// canonicalize replaces the index of every array element with its rank
// among its siblings ordered by content. Arrays are handled deepest first,
// so an element's content already reflects the canonical order of the
// arrays nested inside it. Every index segment ends up written with the
// width needed for the longest array.
func (f *flattener) canonicalize() {
	width := jsonpath.IndexWidth(f.out.maxChildren)

	levels := make(map[int][]string)
	for path, depth := range f.arrays {
		levels[depth] = append(levels[depth], path)
	}
	depths := make([]int, 0, len(levels))
	for d := range levels {
		depths = append(depths, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(depths)))

	for _, depth := range depths {
		f.canonicalizeLevel(depth, width)
	}
	f.out.width = width
}

type childEntry struct {
	relative string
	value    analyzer.Scalar
}

// canonicalizeLevel ranks the elements of every array at one depth and
// rewrites the affected paths in a single rebuild of the map.
func (f *flattener) canonicalizeLevel(depth, width int) {
	owner := make(map[string]string)
	content := make(map[string][]childEntry)
	for key, value := range f.out.entries {
		child, ok := f.elementAt(key, depth)
		if !ok {
			continue
		}
		owner[key] = child
		content[child] = append(content[child], childEntry{relative: key[len(child):], value: value})
	}

	rename := make(map[string]string)
	for array, d := range f.arrays {
		if d != depth {
			continue
		}
		for child, rank := range rankElements(f.arrayChildren[array], content) {
			rename[child] = jsonpath.Index(array, rank, width)
		}
	}

	rebuilt := make(map[string]analyzer.Scalar, len(f.out.entries))
	for key, value := range f.out.entries {
		if child, ok := owner[key]; ok {
			key = rename[child] + key[len(child):]
		}
		rebuilt[key] = value
	}
	f.out.entries = rebuilt
}

// elementAt returns the element path of the array at the given depth that
// key lies under. Ancestors of that array have not been rewritten yet, so
// the prefix is still in its original form.
func (f *flattener) elementAt(key string, depth int) (string, bool) {
	for i := len(jsonpath.Root); i < len(key); i++ {
		if key[i] != ']' || key[i-1] < '0' || key[i-1] > '9' {
			continue
		}
		prefix := key[:i+1]
		array, ok := f.children[prefix]
		if !ok {
			continue
		}
		if d := f.arrays[array]; d == depth {
			return prefix, true
		} else if d > depth {
			return "", false
		}
	}
	return "", false
}

// rankElements orders elements by a key built from their content plus an
// occurrence counter for identical content, and returns each element's
// rank.
func rankElements(elements []string, content map[string][]childEntry) map[string]int {
	type keyed struct {
		element    string
		key        string
		occurrence int
	}
	seen := make(map[string]int, len(elements))
	keys := make([]keyed, len(elements))
	for i, element := range elements {
		entries := content[element]
		sort.Slice(entries, func(a, b int) bool { return entries[a].relative < entries[b].relative })

		parts := make([]string, len(entries))
		for j, e := range entries {
			parts[j] = e.relative + unitSeparator + contentText(e.value)
		}
		key := strings.Join(parts, recordSeparator)
		keys[i] = keyed{element: element, key: key, occurrence: seen[key]}
		seen[key]++
	}

	sort.SliceStable(keys, func(a, b int) bool {
		if keys[a].key != keys[b].key {
			return keys[a].key < keys[b].key
		}
		return keys[a].occurrence < keys[b].occurrence
	})

	ranks := make(map[string]int, len(keys))
	for rank, k := range keys {
		ranks[k.element] = rank
	}
	return ranks
}

// contentText keeps null apart from the empty string inside content keys.
func contentText(s analyzer.Scalar) string {
	if s.IsNull() {
		return "\x00"
	}
	return s.String()
}
