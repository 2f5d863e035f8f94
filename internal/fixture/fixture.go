// Package fixture loads JSON documents from files for comparisons and
// tests. Plain JSON, JSONC (comments and trailing commas) and YAML are
// accepted; everything is converted to JSON text and parsed into a value
// tree. Loaded documents can be kept in a caller-owned Cache.
package fixture

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/jsonpath"
	"github.com/mcncl/jsoncanon/internal/models"
	"github.com/mcncl/jsoncanon/internal/parser"
	"github.com/tidwall/jsonc"
	"sigs.k8s.io/yaml"
)

// Format is the text format of a fixture file.
type Format int

const (
	FormatJSON Format = iota
	FormatJSONC
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSONC:
		return "jsonc"
	case FormatYAML:
		return "yaml"
	default:
		return "json"
	}
}

// FormatOf picks the format from a file extension. Unknown extensions are
// read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc", ".json5":
		return FormatJSONC
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode converts data in the given format into a value tree.
//
// YAML mappings pass through Go maps on their way to JSON, so members of
// YAML documents come out sorted by name.
func Decode(data []byte, format Format) (models.Value, error) {
	switch format {
	case FormatJSONC:
		data = jsonc.ToJSON(data)
	case FormatYAML:
		if len(bytes.TrimSpace(data)) == 0 {
			return models.Value{}, errors.NewInputError("YAML document is empty", errors.ErrEmptyInput)
		}
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return models.Value{}, errors.NewParsingError("unable to convert YAML to JSON", err)
		}
		data = converted
	}
	return parser.ParseBytes(data)
}

// Cache holds loaded documents keyed by absolute path. It is safe for
// concurrent use and is owned by whoever creates it; nothing is cached
// behind the caller's back.
type Cache struct {
	mu      sync.Mutex
	entries map[string]models.Value
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]models.Value)}
}

// Get returns the document cached under key.
func (c *Cache) Get(key string) (models.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores a document under key.
func (c *Cache) Put(key string, v models.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every cached document.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Config configures a Loader.
type Config struct {
	// Dir resolves relative fixture names. Empty means the working
	// directory.
	Dir string

	// Cache, when set, keeps every loaded document for later calls.
	Cache *Cache

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// Loader reads fixture files.
type Loader struct {
	dir    string
	cache  *Cache
	logger *slog.Logger
}

// NewLoader creates a Loader from cfg.
func NewLoader(cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{dir: cfg.Dir, cache: cfg.Cache, logger: logger}
}

// Load reads and parses the named fixture, consulting the cache first.
func (l *Loader) Load(name string) (models.Value, error) {
	abs, err := filepath.Abs(l.resolve(name))
	if err != nil {
		return models.Value{}, errors.NewInputError(fmt.Sprintf("invalid fixture path '%s'", name), errors.ErrInvalidFilePath)
	}

	if l.cache != nil {
		if v, ok := l.cache.Get(abs); ok {
			l.logger.Debug("fixture cache hit", "path", abs)
			return v, nil
		}
	}

	data, err := parser.ReadFile(abs)
	if err != nil {
		return models.Value{}, err
	}
	format := FormatOf(abs)
	v, err := Decode(data, format)
	if err != nil {
		return models.Value{}, fmt.Errorf("%s: %w", name, err)
	}
	l.logger.Debug("loaded fixture", "path", abs, "format", format.String(), "bytes", len(data))

	if l.cache != nil {
		l.cache.Put(abs, v)
	}
	return v, nil
}

// LoadPath loads the named fixture and returns the part of it found at
// path. See Resolve for the accepted path forms.
func (l *Loader) LoadPath(name, path string) (models.Value, error) {
	v, err := l.Load(name)
	if err != nil {
		return models.Value{}, err
	}
	sub, err := Resolve(v, path)
	if err != nil {
		return models.Value{}, fmt.Errorf("%s: %w", name, err)
	}
	l.logger.Debug("resolved fixture path", "name", name, "path", path, "kind", sub.Kind().String())
	return sub, nil
}

// refPattern splits "dir/users.json/admins/0" into the file and the path
// that follows its extension.
var refPattern = regexp.MustCompile(`(?i)^(.*?\.(?:jsonc|json5|json|yaml|yml))(?:[/\\.](.*))?$`)

// LoadRef loads a reference that is either a fixture file name or a file
// name followed by a path into the document, as in "users.json/admins/0".
// An existing file always wins over splitting the reference.
func (l *Loader) LoadRef(ref string) (models.Value, error) {
	if _, err := os.Stat(l.resolve(ref)); err == nil {
		return l.Load(ref)
	}
	m := refPattern.FindStringSubmatch(ref)
	if m == nil || m[2] == "" {
		return l.Load(ref)
	}
	return l.LoadPath(m[1], m[2])
}

func (l *Loader) resolve(name string) string {
	if !filepath.IsAbs(name) && l.dir != "" {
		return filepath.Join(l.dir, name)
	}
	return name
}

// Resolve returns the value found at path inside v. path is either a
// bracketed path as produced by flattening ($['users'][0]) or a list of
// member names and indices separated by '/', '\' or '.', optionally
// prefixed by "$." (users/0/name, users.0.name, $.users[0].name). An empty
// path or "$" selects v itself.
func Resolve(v models.Value, path string) (models.Value, error) {
	segments, err := splitPath(path)
	if err != nil {
		return models.Value{}, errors.NewInputError(fmt.Sprintf("invalid document path %q", path), err)
	}

	cur := v
	walked := jsonpath.Root
	for _, seg := range segments {
		if !cur.Kind().IsComposite() {
			return models.Value{}, pathNotFound(path, walked)
		}
		if cur.Kind() == models.Array {
			i := seg.Index
			if seg.Kind == jsonpath.MemberSegment {
				n, err := strconv.Atoi(seg.Name)
				if err != nil {
					return models.Value{}, pathNotFound(path, walked)
				}
				i = n
			}
			if i < 0 || i >= cur.Len() {
				return models.Value{}, pathNotFound(path, walked)
			}
			cur = cur.Index(i)
			walked = jsonpath.Index(walked, i, 1)
			continue
		}
		name := seg.Name
		if seg.Kind == jsonpath.IndexSegment {
			name = strconv.Itoa(seg.Index)
		}
		next, ok := cur.Get(name)
		if !ok {
			return models.Value{}, pathNotFound(path, walked)
		}
		cur = next
		walked = jsonpath.Member(walked, name)
	}
	return cur, nil
}

func pathNotFound(path, walked string) error {
	return errors.NewInputError(
		fmt.Sprintf("document has nothing at %q (found up to %s)", path, walked),
		errors.ErrPathNotFound,
	)
}

func splitPath(path string) ([]jsonpath.Segment, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == jsonpath.Root {
		return nil, nil
	}
	if strings.HasPrefix(path, jsonpath.Root+"[") {
		return jsonpath.Parse(path)
	}
	path = strings.TrimPrefix(path, jsonpath.Root+".")

	var segments []jsonpath.Segment
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' || r == '.' })
	for _, part := range parts {
		name, rest, indexed := strings.Cut(part, "[")
		if name != "" {
			segments = append(segments, jsonpath.Segment{Kind: jsonpath.MemberSegment, Name: name})
		}
		if indexed {
			tail, err := jsonpath.Parse(jsonpath.Root + "[" + rest)
			if err != nil {
				return nil, err
			}
			segments = append(segments, tail...)
		}
	}
	return segments, nil
}

// Load reads a single fixture without a cache.
func Load(path string) (models.Value, error) {
	return NewLoader(Config{}).Load(path)
}
