package formatter

import (
	"testing"
	"time"

	"github.com/mcncl/jsoncanon/internal/models"
	"github.com/mcncl/jsoncanon/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_Indented(t *testing.T) {
	input := `{"b": 1, "a": [true, null, "x"], "e": {}, "f": []}`

	formatter := NewFormatter()
	formatted, err := formatter.Format(parser.MustParseString(input))
	require.NoError(t, err)

	expectedOutput := `{
  "b": 1,
  "a": [
    true,
    null,
    "x"
  ],
  "e": {},
  "f": []
}
`
	assert.Equal(t, expectedOutput, formatted)
}

func TestFormat_CustomIndent(t *testing.T) {
	formatter := &Formatter{Indent: "\t"}
	formatted, err := formatter.Format(parser.MustParseString(`{"a": {"b": 2}}`))
	require.NoError(t, err)
	assert.Equal(t, "{\n\t\"a\": {\n\t\t\"b\": 2\n\t}\n}\n", formatted)
}

func TestCompact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"object keeps member order", `{"b": 1, "a": [true, null, "x"]}`, `{"b":1,"a":[true,null,"x"]}`},
		{"scalar", `"hi"`, `"hi"`},
		{"decimal digits are kept", `123456789012345678901234567890.5`, `123456789012345678901234567890.5`},
		{"markup is not escaped", `{"h": "<a href='x'>&</a>"}`, `{"h":"<a href='x'>&</a>"}`},
		{"control characters are escaped", `"a\nb\u0001"`, `"a\nb\u0001"`},
		{"empty composites", `[[], {}]`, `[[],{}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compact(parser.MustParseString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormat_TypedScalarsAsStrings(t *testing.T) {
	v := models.ObjectValue(
		models.Field("at", models.InstantValue(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC))),
		models.Field("span", models.DurationValue(90*time.Minute)),
		models.Field("raw", models.BytesValue([]byte("hi"))),
	)
	got, err := Compact(v)
	require.NoError(t, err)
	assert.Equal(t, `{"at":"2018-01-01T00:00:00","span":"01:30:00","raw":"aGk="}`, got)
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"members sorted", `{"b": 1, "a": [true, null, "x"]}`, `{"a":[true,null,"x"],"b":1}`},
		{"nested members sorted", `{"z": {"y": 1, "x": 2}, "a": 0}`, `{"a":0,"z":{"x":2,"y":1}}`},
		{"numbers in shortest form", `[1.50, 1e2, -0.0]`, `[1.5,100,0]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonical(parser.MustParseString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}
