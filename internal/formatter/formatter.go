package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	json "github.com/goccy/go-json"
	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/models"
)

// Formatter prints value trees as JSON text
type Formatter struct {
	// Indent is repeated once per nesting level. An empty Indent produces
	// compact output.
	Indent string
}

// NewFormatter creates a new Formatter that indents with two spaces
func NewFormatter() *Formatter {
	return &Formatter{Indent: "  "}
}

// Format renders v as JSON text ending in a newline. Member order is kept.
// Time, duration and byte scalars are written as strings of their text form
// and decimals keep every digit.
func (f *Formatter) Format(v models.Value) (string, error) {
	var buf bytes.Buffer
	if err := f.write(&buf, v, 0); err != nil {
		return "", errors.NewOutputError("failed to format JSON", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

// Compact renders v as JSON text without insignificant whitespace.
func Compact(v models.Value) (string, error) {
	out, err := (&Formatter{}).Format(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(out, "\n"), nil
}

// Canonical renders v in the RFC 8785 canonical form: members sorted by
// UTF-16 code units, no whitespace, numbers in ECMAScript notation. Numbers
// pass through IEEE 754 doubles, so decimals beyond double precision are
// rounded.
func Canonical(v models.Value) ([]byte, error) {
	compact, err := Compact(v)
	if err != nil {
		return nil, err
	}
	out, err := jsoncanonicalizer.Transform([]byte(compact))
	if err != nil {
		return nil, errors.NewOutputError("failed to canonicalize JSON", err)
	}
	return out, nil
}

func (f *Formatter) write(buf *bytes.Buffer, v models.Value, level int) error {
	switch v.Kind() {
	case models.Null:
		buf.WriteString("null")
	case models.Bool, models.Int, models.Decimal:
		buf.WriteString(v.Text())
	case models.Array:
		if v.Len() == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range v.Items() {
			if i > 0 {
				buf.WriteByte(',')
			}
			f.newline(buf, level+1)
			if err := f.write(buf, item, level+1); err != nil {
				return err
			}
		}
		f.newline(buf, level)
		buf.WriteByte(']')
	case models.Object:
		if v.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		for i, m := range v.Members() {
			if i > 0 {
				buf.WriteByte(',')
			}
			f.newline(buf, level+1)
			if err := writeString(buf, m.Name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if f.Indent != "" {
				buf.WriteByte(' ')
			}
			if err := f.write(buf, m.Value, level+1); err != nil {
				return err
			}
		}
		f.newline(buf, level)
		buf.WriteByte('}')
	case models.String:
		return writeString(buf, v.Str())
	default:
		return writeString(buf, v.Text())
	}
	return nil
}

func (f *Formatter) newline(buf *bytes.Buffer, level int) {
	if f.Indent == "" {
		return
	}
	buf.WriteByte('\n')
	for i := 0; i < level; i++ {
		buf.WriteString(f.Indent)
	}
}

func writeString(buf *bytes.Buffer, s string) error {
	quoted, err := json.MarshalWithOption(s, json.DisableHTMLEscape())
	if err != nil {
		return fmt.Errorf("encode string: %w", err)
	}
	buf.Write(quoted)
	return nil
}
