package fixture

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mcncl/jsoncanon/internal/comparator"
	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/parser"
	"github.com/mcncl/jsoncanon/internal/pathalizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.json", FormatJSON},
		{"a.JSONC", FormatJSONC},
		{"a.json5", FormatJSONC},
		{"a.yaml", FormatYAML},
		{"dir/a.yml", FormatYAML},
		{"noext", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatOf(tt.path))
		})
	}
}

func TestLoad_Formats(t *testing.T) {
	dir := t.TempDir()
	want := parser.MustParseString(`{"name": "Ada", "langs": ["en", "fr"], "age": 36}`)

	tests := []struct {
		file    string
		content string
	}{
		{"person.json", `{"name": "Ada", "langs": ["en", "fr"], "age": 36}`},
		{"person.jsonc", `{
			// the name
			"name": "Ada",
			"langs": ["en", "fr",], /* trailing comma */
			"age": 36,
		}`},
		{"person.yaml", "name: Ada\nlangs:\n  - en\n  - fr\nage: 36\n"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			v, err := Load(writeFile(t, dir, tt.file, tt.content))
			require.NoError(t, err)

			// YAML members come back sorted, so compare member by member.
			for _, m := range want.Members() {
				got, ok := v.Get(m.Name)
				require.True(t, ok, "missing member %s", m.Name)
				assert.True(t, m.Value.Equal(got), "member %s differs", m.Name)
			}
			assert.Equal(t, want.Len(), v.Len())
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, errors.ErrFileNotFound)

	_, err = Load(writeFile(t, dir, "empty.json", ""))
	assert.ErrorIs(t, err, errors.ErrFileEmpty)

	_, err = Load(writeFile(t, dir, "bad.json", `{"a": }`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "bad.yaml", "a: [1, 2\n"))
	assert.Error(t, err)
}

func TestLoader_RelativeToDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `[1]`)

	loader := NewLoader(Config{Dir: dir})
	v, err := loader.Load("a.json")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Len())
}

func TestLoader_Cache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cached.json", `{"v": 1}`)

	cache := NewCache()
	loader := NewLoader(Config{Cache: cache})

	first, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	// Served from the cache even after the file is gone.
	require.NoError(t, os.Remove(path))
	second, err := loader.Load(path)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))

	// A loader without the cache sees the missing file.
	_, err = NewLoader(Config{}).Load(path)
	assert.ErrorIs(t, err, errors.ErrFileNotFound)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	_, err = loader.Load(path)
	assert.Error(t, err)
}

func TestLoader_ConcurrentCache(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.json", `{"a": 1}`),
		writeFile(t, dir, "b.json", `{"b": 2}`),
		writeFile(t, dir, "c.yml", `c: 3`),
	}

	cache := NewCache()
	loader := NewLoader(Config{Cache: cache})

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			_, err := loader.Load(path)
			assert.NoError(t, err)
		}(paths[i%len(paths)])
	}
	wg.Wait()

	assert.Equal(t, len(paths), cache.Len())
}

func TestLoader_Samples(t *testing.T) {
	loader := NewLoader(Config{Dir: filepath.Join("..", "..", "testdata", "samples"), Cache: NewCache()})
	opts := pathalizer.DefaultOptions()
	opts.CanonicalizeArrays = true

	flat := func(name string) *pathalizer.PathMap {
		v, err := loader.Load(name)
		require.NoError(t, err)
		m, err := pathalizer.Flatten(v, opts)
		require.NoError(t, err)
		return m
	}

	want := flat("user.json")
	for _, name := range []string{"user.jsonc", "user.yaml"} {
		t.Run(name, func(t *testing.T) {
			got := flat(name)
			assert.Empty(t, comparator.Diff(want, got))
		})
	}

	diffs := comparator.Diff(want, flat("user_changed.json"))
	var paths []string
	for _, d := range diffs {
		paths = append(paths, d.Path)
	}
	assert.Contains(t, paths, "$['user']['name']")
	assert.Contains(t, paths, "$['user']['profile']['avatar']")
	assert.Contains(t, paths, "$['user']['stats']['posts']")
}

const usersDoc = `{
	"users": [
		{"name": "ada", "tags": ["x", "y"]},
		{"name": "bob"}
	],
	"meta": {"0": "zero", "n": null},
	"count": 2
}`

func TestResolve(t *testing.T) {
	doc := parser.MustParseString(usersDoc)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty selects the document", "", usersDoc},
		{"root selects the document", "$", usersDoc},
		{"slashes", "users/0/name", `"ada"`},
		{"dots", "users.1.name", `"bob"`},
		{"backslashes", `users\0\tags\1`, `"y"`},
		{"dotted with brackets", "$.users[0].tags[1]", `"y"`},
		{"flattened form", "$['users'][0000001]['name']", `"bob"`},
		{"numeric member name", "meta/0", `"zero"`},
		{"null member", "meta/n", `null`},
		{"whole array", "users/0/tags", `["x", "y"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(doc, tt.path)
			require.NoError(t, err)
			assert.True(t, got.Equal(parser.MustParseString(tt.want)), "Resolve(%q) = %s", tt.path, got.Text())
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	doc := parser.MustParseString(usersDoc)

	for _, path := range []string{
		"missing",
		"users/2",
		"users/-1",
		"users/name",
		"users/0/name/first",
		"count/x",
		"meta/1",
	} {
		t.Run(path, func(t *testing.T) {
			_, err := Resolve(doc, path)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrPathNotFound)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestResolve_InvalidPath(t *testing.T) {
	_, err := Resolve(parser.MustParseString(usersDoc), "$['users'")
	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.AppError{Type: errors.ErrorTypeInput})
	assert.NotErrorIs(t, err, errors.ErrPathNotFound)
}

func TestLoader_LoadPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", usersDoc)
	loader := NewLoader(Config{Dir: dir, Cache: NewCache()})

	got, err := loader.LoadPath("users.json", "users/1")
	require.NoError(t, err)
	assert.True(t, got.Equal(parser.MustParseString(`{"name": "bob"}`)))

	_, err = loader.LoadPath("users.json", "users/5")
	assert.ErrorIs(t, err, errors.ErrPathNotFound)
	assert.Contains(t, err.Error(), "users.json")

	_, err = loader.LoadPath("absent.json", "users")
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
}

func TestLoader_LoadRef(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", usersDoc)
	writeFile(t, dir, "users.yaml", "users:\n  - name: ada\n  - name: bob\n")
	writeFile(t, dir, "odd.json.bak", `{"kept": true}`)
	loader := NewLoader(Config{Dir: dir})

	tests := []struct {
		ref  string
		want string
	}{
		{"users.json/users/0/name", `"ada"`},
		{`users.json\users\1`, `{"name": "bob"}`},
		{"users.json.users.0.tags.0", `"x"`},
		{"users.yaml/users/1/name", `"bob"`},
		{"users.json", usersDoc},
		{"odd.json.bak", `{"kept": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := loader.LoadRef(tt.ref)
			require.NoError(t, err)
			assert.True(t, got.Equal(parser.MustParseString(tt.want)), "LoadRef(%q) = %s", tt.ref, got.Text())
		})
	}

	_, err := loader.LoadRef("nope.json/users")
	assert.ErrorIs(t, err, errors.ErrFileNotFound)

	_, err = loader.LoadRef("users.json/users/9")
	assert.ErrorIs(t, err, errors.ErrPathNotFound)
}
