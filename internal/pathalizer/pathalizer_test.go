package pathalizer

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/mcncl/jsoncanon/internal/analyzer"
	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/models"
	"github.com/mcncl/jsoncanon/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatten(t *testing.T, json string, opts Options) *PathMap {
	t.Helper()
	m, err := Flatten(parser.MustParseString(json), opts)
	require.NoError(t, err)
	return m
}

// texts renders a map as path -> text for compact assertions.
func texts(m *PathMap) map[string]string {
	out := make(map[string]string, m.Len())
	for _, e := range m.Entries() {
		if e.Value.IsNull() {
			out[e.Path] = "<null>"
			continue
		}
		out[e.Path] = e.Value.String()
	}
	return out
}

func TestFlatten_Paths(t *testing.T) {
	m := flatten(t, `{"name": "x", "tags": ["a", "b"], "o": {"n": null, "it's": true}}`, DefaultOptions())

	assert.Equal(t, map[string]string{
		`$['name']`:            "x",
		`$['o']['it\'s']`:      "true",
		`$['o']['n']`:          "<null>",
		`$['tags'][0000000]`:   "a",
		`$['tags'][0000001]`:   "b",
	}, texts(m))
	assert.Equal(t, 2, m.MaxChildren())
	assert.Equal(t, 7, m.Width())
	assert.Equal(t, []string{
		`$['name']`,
		`$['o']['it\'s']`,
		`$['o']['n']`,
		`$['tags'][0000000]`,
		`$['tags'][0000001]`,
	}, m.Keys())
}

func TestFlatten_RootScalar(t *testing.T) {
	m := flatten(t, `42`, DefaultOptions())
	s, ok := m.Get("$")
	require.True(t, ok)
	assert.Equal(t, analyzer.KindByte, s.Kind)
	assert.Equal(t, "42", s.String())
}

func TestFlatten_EmptyCompositesHaveNoEntries(t *testing.T) {
	m := flatten(t, `{"a": [], "b": {}, "c": [[], {}]}`, DefaultOptions())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 2, m.MaxChildren())
}

func TestFlatten_SniffsScalars(t *testing.T) {
	m := flatten(t, `{"date": "2018-01-1", "span": "01:30", "n": 70000, "text": "hello"}`, DefaultOptions())

	tests := []struct {
		path string
		kind analyzer.ScalarKind
		text string
	}{
		{`$['date']`, analyzer.KindInstant, "2018-01-01T00:00:00"},
		{`$['span']`, analyzer.KindDuration, "01:30:00"},
		{`$['n']`, analyzer.KindInt32, "70000"},
		{`$['text']`, analyzer.KindText, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s, ok := m.Get(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, tt.text, s.String())
		})
	}
}

func TestFlatten_IgnoredNames(t *testing.T) {
	json := `{"id": 1, "sysStart": "x", "child": {"id": 2, "sysStart": "y", "keep": true}, "list": [{"id": 3, "v": 4}]}`

	tests := []struct {
		name      string
		opts      Options
		wantPaths []string
	}{
		{
			name: "exact names at every depth",
			opts: Options{IgnoredNames: []string{"id", "sysStart"}},
			wantPaths: []string{
				`$['child']['keep']`,
				`$['list'][0000000]['v']`,
			},
		},
		{
			name: "unmatched names are not errors",
			opts: Options{IgnoredNames: []string{"nope"}},
			wantPaths: []string{
				`$['child']['id']`,
				`$['child']['keep']`,
				`$['child']['sysStart']`,
				`$['id']`,
				`$['list'][0000000]['id']`,
				`$['list'][0000000]['v']`,
				`$['sysStart']`,
			},
		},
		{
			name: "normalized names match across casing styles",
			opts: Options{IgnoredNames: []string{"sys_start", "ID"}, NormalizeNames: true},
			wantPaths: []string{
				`$['child']['keep']`,
				`$['list'][0000000]['v']`,
			},
		},
		{
			name: "patterns",
			opts: Options{IgnoredPatterns: []*regexp.Regexp{regexp.MustCompile(`^sys`), regexp.MustCompile(`^i.$`)}},
			wantPaths: []string{
				`$['child']['keep']`,
				`$['list'][0000000]['v']`,
			},
		},
		{
			name: "patterns see normalized names",
			opts: Options{IgnoredPatterns: []*regexp.Regexp{regexp.MustCompile(`_start$`)}, NormalizeNames: true},
			wantPaths: []string{
				`$['child']['id']`,
				`$['child']['keep']`,
				`$['id']`,
				`$['list'][0000000]['id']`,
				`$['list'][0000000]['v']`,
			},
		},
		{
			name: "casing differs without normalization",
			opts: Options{IgnoredNames: []string{"sys_start"}},
			wantPaths: []string{
				`$['child']['id']`,
				`$['child']['keep']`,
				`$['child']['sysStart']`,
				`$['id']`,
				`$['list'][0000000]['id']`,
				`$['list'][0000000]['v']`,
				`$['sysStart']`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := flatten(t, json, tt.opts)
			assert.Equal(t, tt.wantPaths, m.Keys())
		})
	}
}

func TestFlatten_MaxDepth(t *testing.T) {
	json := `{"a": 1, "b": {"c": 2, "d": {"e": 3}}, "f": [4, [5]]}`

	tests := []struct {
		depth int
		want  []string
	}{
		{1, []string{`$['a']`}},
		{2, []string{`$['a']`, `$['b']['c']`, `$['f'][0000000]`}},
		{3, []string{`$['a']`, `$['b']['c']`, `$['b']['d']['e']`, `$['f'][0000000]`, `$['f'][0000001][0000000]`}},
		{0, []string{`$['a']`, `$['b']['c']`, `$['b']['d']['e']`, `$['f'][0000000]`, `$['f'][0000001][0000000]`}},
	}
	for _, tt := range tests {
		m := flatten(t, json, Options{MaxDepth: tt.depth})
		assert.Equal(t, tt.want, m.Keys(), "max depth %d", tt.depth)
	}
}

func TestFlatten_PropertyOrderDoesNotMatter(t *testing.T) {
	a := flatten(t, `{"b": 1, "a": {"y": 2, "x": 3}}`, Options{OrderProperties: true})
	b := flatten(t, `{"a": {"x": 3, "y": 2}, "b": 1}`, Options{OrderProperties: false})
	assert.Equal(t, texts(a), texts(b))
}

func TestFlatten_NestingLimit(t *testing.T) {
	v := models.IntValue(1)
	for i := 0; i < 10; i++ {
		v = models.ArrayValue(v)
	}

	_, err := Flatten(v, Options{MaxNesting: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNestingTooDeep)

	_, err = Flatten(v, Options{MaxNesting: 10})
	assert.NoError(t, err)
}

func TestCanonicalize_OrderInsensitive(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"scalars", `[3, 1, 2]`, `[1, 2, 3]`},
		{"objects", `[{"a": 1}, {"a": 2}]`, `[{"a": 2}, {"a": 1}]`},
		{"duplicates", `[1, 1, 2]`, `[2, 1, 1]`},
		{"nested arrays", `{"a": [[3, 1], [2]]}`, `{"a": [[2], [1, 3]]}`},
		{"arrays inside objects inside arrays", `[{"t": ["x", "y"], "n": 1}, {"t": [], "n": 2}]`, `[{"n": 2, "t": []}, {"n": 1, "t": ["y", "x"]}]`},
		{"mixed types", `[null, "", 0, false]`, `[false, 0, "", null]`},
	}

	opts := Options{CanonicalizeArrays: true, OrderProperties: true}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := flatten(t, tt.a, opts)
			b := flatten(t, tt.b, opts)
			assert.Equal(t, texts(a), texts(b))
		})
	}
}

func TestCanonicalize_ContentStillMatters(t *testing.T) {
	opts := Options{CanonicalizeArrays: true}
	a := flatten(t, `[{"a": 1}, {"a": 2}]`, opts)
	b := flatten(t, `[{"a": 1}, {"a": 3}]`, opts)
	assert.NotEqual(t, texts(a), texts(b))

	c := flatten(t, `[1, 1, 2]`, opts)
	d := flatten(t, `[1, 2, 2]`, opts)
	assert.NotEqual(t, texts(c), texts(d))
}

func TestCanonicalize_ScenarioObjects(t *testing.T) {
	m := flatten(t, `[{"a": 2}, {"a": 1}]`, Options{CanonicalizeArrays: true})
	assert.Equal(t, map[string]string{
		`$[0]['a']`: "1",
		`$[1]['a']`: "2",
	}, texts(m))
	assert.Equal(t, 1, m.Width())
}

func TestCanonicalize_Width(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		width    int
		lastPath string
	}{
		{"ten elements fit one digit", `[0,1,2,3,4,5,6,7,8,9]`, 1, `$[9]`},
		{"eleven elements need two", `[0,1,2,3,4,5,6,7,8,9,10]`, 2, `$[10]`},
		{"widest array sets the width everywhere", `{"a": [1], "b": [0,1,2,3,4,5,6,7,8,9,10]}`, 2, `$['b'][10]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := flatten(t, tt.json, Options{CanonicalizeArrays: true})
			assert.Equal(t, tt.width, m.Width())
			keys := m.Keys()
			assert.Equal(t, tt.lastPath, keys[len(keys)-1])
		})
	}
}

func TestCanonicalize_Reflexive(t *testing.T) {
	json := `{"people": [{"name": "b", "pets": ["cat", "ant"]}, {"name": "a", "pets": []}], "ids": [3, 2, 1]}`
	opts := Options{CanonicalizeArrays: true, OrderProperties: true}
	assert.Equal(t, texts(flatten(t, json, opts)), texts(flatten(t, json, opts)))
}

func TestPathMap_Repad(t *testing.T) {
	m := flatten(t, `{"a": [[1, 2]]}`, Options{CanonicalizeArrays: true})
	assert.Equal(t, []string{`$['a'][0][0]`, `$['a'][0][1]`}, m.Keys())

	wide, err := m.Repad(3)
	require.NoError(t, err)
	assert.Equal(t, 3, wide.Width())
	assert.Equal(t, []string{`$['a'][000][000]`, `$['a'][000][001]`}, wide.Keys())

	same, err := m.Repad(1)
	require.NoError(t, err)
	assert.Equal(t, m.Keys(), same.Keys())
}

func TestFlatten_LogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Flatten(parser.MustParseString(`[2, 1]`), Options{CanonicalizeArrays: true, Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "flattened document")
	assert.Contains(t, buf.String(), "canonicalized arrays")
}
