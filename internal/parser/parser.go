package parser

import (
	"bytes"
	stderrors "errors" // Standard errors package
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mcncl/jsoncanon/internal/errors" // Custom errors package
	"github.com/mcncl/jsoncanon/internal/models"
)

// MaxNesting bounds how deeply arrays and objects may nest in parsed input.
const MaxNesting = 10000

// frame is one open composite while building the value tree.
type frame struct {
	isObject bool
	key      string
	hasKey   bool
	names    map[string]struct{}
	members  []models.Member
	items    []models.Value
}

func (f *frame) value() models.Value {
	if f.isObject {
		return models.ObjectValue(f.members...)
	}
	return models.ArrayValue(f.items...)
}

// Parse reads exactly one JSON value from reader. Object member order is
// preserved, integers that fit in 64 bits become Int values and every other
// number becomes an exact Decimal.
func Parse(reader io.Reader) (models.Value, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return models.Value{}, errors.NewInputError("failed to read JSON input", err)
	}
	v, err := tokenize(data)
	if err != nil {
		return models.Value{}, err
	}
	// The token stream does not check separators, so a member without a
	// value or a missing comma only shows up here.
	if !json.Valid(data) {
		return models.Value{}, errors.NewParsingError("malformed JSON structure", errors.ErrInvalidJSON)
	}
	return v, nil
}

// tokenize builds the value tree from the decoder's token stream.
func tokenize(data []byte) (models.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var (
		stack  []*frame
		root   models.Value
		done   bool
		tokens int
	)

	// attach places a completed value into the enclosing composite, or
	// makes it the root when nothing is open.
	attach := func(v models.Value) error {
		if len(stack) == 0 {
			root = v
			done = true
			return nil
		}
		top := stack[len(stack)-1]
		if !top.isObject {
			top.items = append(top.items, v)
			return nil
		}
		if !top.hasKey {
			return errors.NewParsingError("object value without a member name", errors.ErrInvalidJSON)
		}
		top.members = append(top.members, models.Field(top.key, v))
		top.hasKey = false
		return nil
	}

	for !done {
		tok, err := dec.Token()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				if tokens == 0 {
					return models.Value{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
				}
				return models.Value{}, errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
			}
			return models.Value{}, wrapDecodeError(err)
		}
		tokens++

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				if len(stack) >= MaxNesting {
					return models.Value{}, errors.NewParsingError(
						fmt.Sprintf("nesting deeper than %d levels", MaxNesting),
						errors.ErrNestingTooDeep,
					)
				}
				f := &frame{isObject: t == '{'}
				if f.isObject {
					f.names = make(map[string]struct{})
				}
				stack = append(stack, f)
			case '}', ']':
				if len(stack) == 0 {
					return models.Value{}, errors.NewParsingError("unbalanced closing delimiter", errors.ErrInvalidJSON)
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if err := attach(top.value()); err != nil {
					return models.Value{}, err
				}
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].isObject && !stack[n-1].hasKey {
				top := stack[n-1]
				if _, dup := top.names[t]; dup {
					return models.Value{}, errors.NewParsingError(
						fmt.Sprintf("member %q appears more than once", t),
						errors.ErrDuplicateKey,
					)
				}
				top.names[t] = struct{}{}
				top.key = t
				top.hasKey = true
				continue
			}
			if err := attach(models.StringValue(t)); err != nil {
				return models.Value{}, err
			}
		case json.Number:
			v, err := numberValue(string(t))
			if err != nil {
				return models.Value{}, errors.NewParsingError(fmt.Sprintf("invalid number %q", string(t)), errors.ErrInvalidJSON)
			}
			if err := attach(v); err != nil {
				return models.Value{}, err
			}
		case float64:
			v, err := numberValue(strconv.FormatFloat(t, 'g', -1, 64))
			if err != nil {
				return models.Value{}, errors.NewParsingError("invalid number", errors.ErrInvalidJSON)
			}
			if err := attach(v); err != nil {
				return models.Value{}, err
			}
		case bool:
			if err := attach(models.BoolValue(t)); err != nil {
				return models.Value{}, err
			}
		case nil:
			if err := attach(models.NullValue()); err != nil {
				return models.Value{}, err
			}
		default:
			return models.Value{}, errors.NewParsingError(fmt.Sprintf("unexpected token %v", t), errors.ErrInvalidJSON)
		}
	}

	// Only whitespace may follow the root value.
	if _, err := dec.Token(); err == nil {
		return models.Value{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	} else if !stderrors.Is(err, io.EOF) {
		return models.Value{}, errors.NewParsingError("invalid trailing data after first JSON value", err)
	}

	return root, nil
}

// numberValue keeps integral literals that fit in an int64 as Int values
// and parses everything else as an exact decimal.
func numberValue(literal string) (models.Value, error) {
	if !strings.ContainsAny(literal, ".eE") {
		if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
			return models.IntValue(i), nil
		}
	}
	return models.ParseDecimal(literal)
}

func wrapDecodeError(err error) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
			errors.ErrInvalidJSON,
		)
	}
	return errors.NewParsingError("failed to decode JSON", err)
}

// ParseBytes parses JSON from a byte slice
func ParseBytes(data []byte) (models.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Value{}, errors.NewInputError("input is empty", errors.ErrEmptyInput)
	}
	return Parse(bytes.NewReader(data))
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.Value, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.Value{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString))
}

// MustParseString parses JSON from a string and panics on error. It is
// meant for tests and literals known to be valid.
func MustParseString(jsonString string) models.Value {
	v, err := ParseString(jsonString)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.Value, error) {
	data, err := ReadFile(filePath)
	if err != nil {
		return models.Value{}, err
	}
	return Parse(bytes.NewReader(data))
}

// ReadFile reads a non-empty input file, mapping the usual failures onto
// the application's input errors.
func ReadFile(filePath string) ([]byte, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return nil, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	if len(data) == 0 {
		return nil, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}
	return data, nil
}
