package main

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/mcncl/jsoncanon/canon"
	"github.com/mcncl/jsoncanon/internal/config"
	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/fixture"
	"github.com/mcncl/jsoncanon/internal/formatter"
	"github.com/mcncl/jsoncanon/internal/markup"
	"github.com/mcncl/jsoncanon/internal/parser"
)

// Version information
const (
	Version = "0.1.0"
)

// Globals are flags shared by every command
type Globals struct {
	Config  string           `help:"Path to a config file. Defaults to the nearest .jsoncanon.yml." short:"c" type:"path"`
	Debug   bool             `help:"Enable debug logging." short:"d"`
	Version kong.VersionFlag `help:"Show version information." short:"v"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Compare    CompareCmd    `cmd:"" help:"Compare two documents by content. Exits with status 1 when they differ."`
	Flatten    FlattenCmd    `cmd:"" help:"Print every scalar of a document with its path."`
	ToMarkup   ToMarkupCmd   `cmd:"" name:"to-markup" help:"Convert a JSON document to annotated XML."`
	FromMarkup FromMarkupCmd `cmd:"" name:"from-markup" help:"Convert annotated XML back to JSON."`
	Canonical  CanonicalCmd  `cmd:"" help:"Print the RFC 8785 canonical form of a document."`
}

// Context holds the runtime context shared by commands
type Context struct {
	Config *config.Config
	Logger *slog.Logger
	Loader *fixture.Loader
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("jsoncanon"),
		kong.Description("Compare JSON documents by content and convert them to and from annotated XML"),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	ctx, err := newContext(&cli.Globals, os.Stdin, os.Stdout, os.Stderr)
	if err == nil {
		err = kctx.Run(ctx)
	}
	if err != nil {
		// Use our custom error handling to provide user-friendly error messages
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		if !stderrors.Is(err, errors.ErrDocumentsDiffer) {
			fmt.Fprintf(os.Stderr, "\nFor help, run: jsoncanon --help\n")
		}
		os.Exit(1)
	}
}

// newContext loads the config and sets up logging and fixture loading
func newContext(g *Globals, stdin io.Reader, stdout, stderr io.Writer) (*Context, error) {
	var override config.Overrides
	if g.Debug {
		debug := true
		override.Debug = &debug
	}
	cfg, err := config.LoadConfigWithCLI(g.Config, override)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.Dev.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	return &Context{
		Config: cfg,
		Logger: logger,
		Loader: fixture.NewLoader(fixture.Config{Cache: fixture.NewCache(), Logger: logger}),
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}

// load reads a document from stdin when name is "-", otherwise from a file
// reference such as "users.json" or "users.json/admins/0"
func (c *Context) load(name string) (canon.Value, error) {
	if name != "-" {
		return c.Loader.LoadRef(name)
	}
	data, err := io.ReadAll(c.Stdin)
	if err != nil {
		return canon.Value{}, errors.NewInputError("failed to read from stdin", err)
	}
	return parser.ParseBytes(data)
}

// writeOutput writes data to a file, or to stdout when path is empty
func (c *Context) writeOutput(path string, data []byte) error {
	if path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
		}
		c.Logger.Debug("wrote output", "path", path, "bytes", len(data))
		return nil
	}

	if _, err := c.Stdout.Write(data); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// FlattenFlags select how documents are flattened
type FlattenFlags struct {
	Ignore            []string `help:"Member name to leave out at any depth. Repeatable." short:"x" sep:"none"`
	IgnorePattern     []string `help:"Regular expression for member names to leave out. Repeatable." sep:"none"`
	IgnoreArrayOrder  bool     `help:"Treat arrays as unordered."`
	NoOrderProperties bool     `help:"Walk object members in document order instead of by name."`
	MaxDepth          int      `help:"Only look this many levels below the root (1 keeps the root's own scalars)." placeholder:"N"`
	NormalizeNames    bool     `help:"Match ignored names across casing styles."`
}

func (f *FlattenFlags) overrides() config.Overrides {
	o := config.Overrides{
		Ignore:         f.Ignore,
		IgnorePatterns: f.IgnorePattern,
	}
	if f.IgnoreArrayOrder {
		v := true
		o.IgnoreArrayOrder = &v
	}
	if f.NoOrderProperties {
		v := false
		o.OrderProperties = &v
	}
	if f.MaxDepth > 0 {
		v := f.MaxDepth
		o.MaxDepth = &v
	}
	if f.NormalizeNames {
		v := true
		o.NormalizeNames = &v
	}
	return o
}

// CompareCmd compares two documents
type CompareCmd struct {
	FlattenFlags

	Expected string `arg:"" help:"Expected document, optionally followed by a path into it (file.json/path/to/obj), or - for stdin."`
	Actual   string `arg:"" help:"Actual document, optionally followed by a path into it, or - for stdin."`
	Show     string `help:"When to print the side-by-side report: diff, always or never." placeholder:"MODE"`
	Color    bool   `help:"Highlight differing rows."`
}

// Run flattens both documents and reports whether they hold the same content
func (c *CompareCmd) Run(ctx *Context) error {
	if c.Expected == "-" && c.Actual == "-" {
		return errors.NewInputError("only one document can be read from stdin", errors.ErrInvalidFilePath)
	}

	override := c.overrides()
	override.Show = c.Show
	if c.Color {
		color := true
		override.Color = &color
	}
	cfg, err := config.MergeConfigs(ctx.Config, override)
	if err != nil {
		return err
	}

	expected, err := ctx.load(c.Expected)
	if err != nil {
		return err
	}
	actual, err := ctx.load(c.Actual)
	if err != nil {
		return err
	}

	result, err := canon.Compare(expected, actual, cfg.FlattenOptions(ctx.Logger))
	if err != nil {
		return err
	}
	ctx.Logger.Debug("compared documents",
		"equal", result.Equal,
		"differences", len(result.Differences),
		"paths", result.Left.Len()+result.Right.Len())

	show := cfg.Output.Show == config.ShowAlways || (!result.Equal && cfg.Output.Show == config.ShowDiff)
	if show {
		if err := cfg.Presenter().Write(ctx.Stdout, result.Left, result.Right); err != nil {
			return errors.NewOutputError("failed to write report", err)
		}
	}

	if !result.Equal {
		return fmt.Errorf("%d differing paths: %w", len(result.Differences), errors.ErrDocumentsDiffer)
	}
	return nil
}

// FlattenCmd prints the flattened form of a document
type FlattenCmd struct {
	FlattenFlags

	File string `arg:"" help:"Document to flatten, or - for stdin."`
}

// Run prints one path<TAB>value line per scalar, in path order. Nulls print
// an empty value.
func (f *FlattenCmd) Run(ctx *Context) error {
	cfg, err := config.MergeConfigs(ctx.Config, f.overrides())
	if err != nil {
		return err
	}
	v, err := ctx.load(f.File)
	if err != nil {
		return err
	}
	m, err := canon.Flatten(v, cfg.FlattenOptions(ctx.Logger))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, e := range m.Entries() {
		fmt.Fprintf(&buf, "%s\t%s\n", e.Path, e.Value.String())
	}
	return ctx.writeOutput("", buf.Bytes())
}

// ToMarkupCmd converts JSON to annotated XML
type ToMarkupCmd struct {
	File   string `arg:"" help:"JSON, JSONC or YAML document, or - for stdin."`
	Output string `help:"Path to the output file. Defaults to stdout." short:"o" type:"path"`
}

// Run encodes the document and writes it as XML
func (t *ToMarkupCmd) Run(ctx *Context) error {
	v, err := ctx.load(t.File)
	if err != nil {
		return err
	}
	tree, err := canon.ToMarkup(v)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := markup.WriteXML(&buf, tree); err != nil {
		return err
	}
	buf.WriteByte('\n')
	return ctx.writeOutput(t.Output, buf.Bytes())
}

// FromMarkupCmd converts annotated XML back to JSON
type FromMarkupCmd struct {
	File   string `arg:"" help:"XML document produced by to-markup, or - for stdin."`
	Output string `help:"Path to the output file. Defaults to stdout." short:"o" type:"path"`
}

// Run decodes the XML and writes the JSON document it holds
func (f *FromMarkupCmd) Run(ctx *Context) error {
	var data []byte
	var err error
	if f.File == "-" {
		data, err = io.ReadAll(ctx.Stdin)
		if err != nil {
			return errors.NewInputError("failed to read from stdin", err)
		}
	} else {
		data, err = parser.ReadFile(f.File)
		if err != nil {
			return err
		}
	}

	tree, err := markup.ReadXML(bytes.NewReader(data))
	if err != nil {
		return err
	}
	v, err := canon.FromMarkup(tree)
	if err != nil {
		return err
	}
	out, err := formatter.NewFormatter().Format(v)
	if err != nil {
		return err
	}
	return ctx.writeOutput(f.Output, []byte(out))
}

// CanonicalCmd prints the RFC 8785 form of a document
type CanonicalCmd struct {
	File string `arg:"" help:"Document to canonicalize, or - for stdin."`
}

// Run writes the canonical JSON text followed by a newline
func (c *CanonicalCmd) Run(ctx *Context) error {
	v, err := ctx.load(c.File)
	if err != nil {
		return err
	}
	out, err := formatter.Canonical(v)
	if err != nil {
		return err
	}
	return ctx.writeOutput("", append(out, '\n'))
}
