package models

import (
	"encoding/base64"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v2"
)

// Kind identifies which member of the Value union is populated.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Int
	Decimal
	String
	Instant
	Duration
	OffsetInstant
	Bytes
	Array
	Object
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Decimal:
		return "decimal"
	case String:
		return "string"
	case Instant:
		return "instant"
	case Duration:
		return "duration"
	case OffsetInstant:
		return "offset-instant"
	case Bytes:
		return "bytes"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// IsComposite reports whether the kind holds other values.
func (k Kind) IsComposite() bool {
	return k == Array || k == Object
}

// Layouts used for the text form of time values. Instants carry no offset;
// offset instants always print theirs, with Z rendered as +00:00.
const (
	InstantLayout       = "2006-01-02T15:04:05.999999999"
	OffsetInstantLayout = "2006-01-02T15:04:05.999999999-07:00"
)

// Value is an immutable JSON value tree node.
//
// The zero Value is a JSON null. Object member names are unique and
// member order is preserved; array elements keep their position.
type Value struct {
	kind Kind

	boolVal  bool
	intVal   int64
	decVal   *apd.Decimal
	strVal   string
	timeVal  time.Time
	durVal   time.Duration
	bytesVal []byte

	items   []Value
	members []Member
}

// Member is one name/value pair of an object.
type Member struct {
	Name  string
	Value Value
}

// Field is shorthand for building a Member.
func Field(name string, v Value) Member {
	return Member{Name: name, Value: v}
}

// NullValue returns a JSON null.
func NullValue() Value { return Value{kind: Null} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{kind: Bool, boolVal: b} }

// IntValue returns an integer value.
func IntValue(i int64) Value { return Value{kind: Int, intVal: i} }

// DecimalValue returns a decimal value holding a copy of d.
func DecimalValue(d *apd.Decimal) Value {
	c := new(apd.Decimal)
	if d != nil {
		c.Set(d)
	}
	return Value{kind: Decimal, decVal: c}
}

// ParseDecimal parses s as an exact decimal number.
func ParseDecimal(s string) (Value, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Value{}, err
	}
	if d.Form != apd.Finite {
		return Value{}, strconv.ErrSyntax
	}
	return Value{kind: Decimal, decVal: d}, nil
}

// StringValue returns a text value.
func StringValue(s string) Value { return Value{kind: String, strVal: s} }

// InstantValue returns a date/time value without an offset. The wall
// clock reading of t is kept and its location discarded.
func InstantValue(t time.Time) Value {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return Value{kind: Instant, timeVal: wall}
}

// OffsetInstantValue returns a date/time value that keeps the offset of t.
func OffsetInstantValue(t time.Time) Value {
	_, offset := t.Zone()
	return Value{kind: OffsetInstant, timeVal: t.In(time.FixedZone("", offset))}
}

// DurationValue returns a time-of-day or elapsed-time value.
func DurationValue(d time.Duration) Value { return Value{kind: Duration, durVal: d} }

// BytesValue returns a binary value holding a copy of b.
func BytesValue(b []byte) Value {
	c := make([]byte, len(b))
	copy(c, b)
	return Value{kind: Bytes, bytesVal: c}
}

// ArrayValue returns an array of the given items.
func ArrayValue(items ...Value) Value {
	c := make([]Value, len(items))
	copy(c, items)
	return Value{kind: Array, items: c}
}

// ObjectValue returns an object with the given members in order. Callers
// must not repeat a member name; the parser rejects duplicates before
// building an object.
func ObjectValue(members ...Member) Value {
	c := make([]Member, len(members))
	copy(c, members)
	return Value{kind: Object, members: c}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is a JSON null.
func (v Value) IsNull() bool { return v.kind == Null }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.boolVal }

// Int returns the integer payload.
func (v Value) Int() int64 { return v.intVal }

// Decimal returns a copy of the decimal payload, or nil for other kinds.
func (v Value) Decimal() *apd.Decimal {
	if v.decVal == nil {
		return nil
	}
	return new(apd.Decimal).Set(v.decVal)
}

// Str returns the text payload.
func (v Value) Str() string { return v.strVal }

// Time returns the payload of an Instant or OffsetInstant.
func (v Value) Time() time.Time { return v.timeVal }

// Duration returns the payload of a Duration.
func (v Value) Duration() time.Duration { return v.durVal }

// Bytes returns a copy of the binary payload.
func (v Value) Bytes() []byte {
	c := make([]byte, len(v.bytesVal))
	copy(c, v.bytesVal)
	return c
}

// Len returns the number of items or members of a composite, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.members)
	}
	return 0
}

// Index returns the i-th array item.
func (v Value) Index(i int) Value { return v.items[i] }

// Items returns a copy of the array items.
func (v Value) Items() []Value {
	c := make([]Value, len(v.items))
	copy(c, v.items)
	return c
}

// Member returns the i-th object member.
func (v Value) Member(i int) Member { return v.members[i] }

// Members returns a copy of the object members in document order.
func (v Value) Members() []Member {
	c := make([]Member, len(v.members))
	copy(c, v.members)
	return c
}

// Get returns the member value with the given name.
func (v Value) Get(name string) (Value, bool) {
	for _, m := range v.members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Text returns the canonical text form of a scalar. Composites return "".
func (v Value) Text() string {
	switch v.kind {
	case Bool:
		return strconv.FormatBool(v.boolVal)
	case Int:
		return strconv.FormatInt(v.intVal, 10)
	case Decimal:
		if v.decVal == nil {
			return "0"
		}
		return v.decVal.String()
	case String:
		return v.strVal
	case Instant:
		return v.timeVal.Format(InstantLayout)
	case OffsetInstant:
		return v.timeVal.Format(OffsetInstantLayout)
	case Duration:
		return FormatDuration(v.durVal)
	case Bytes:
		return base64.StdEncoding.EncodeToString(v.bytesVal)
	}
	return ""
}

// Equal reports canonical equality: same kind, same scalar text, same
// member order and names, same array membership.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Array:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.members) != len(o.members) {
			return false
		}
		for i := range v.members {
			if v.members[i].Name != o.members[i].Name || !v.members[i].Value.Equal(o.members[i].Value) {
				return false
			}
		}
		return true
	default:
		return v.Text() == o.Text()
	}
}

// FormatDuration renders d as [-][d.]hh:mm:ss[.fffffff], the constant
// time-span form, with the fraction trimmed of trailing zeros.
func FormatDuration(d time.Duration) string {
	var buf []byte
	if d < 0 {
		buf = append(buf, '-')
		d = -d
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second

	if days > 0 {
		buf = strconv.AppendInt(buf, int64(days), 10)
		buf = append(buf, '.')
	}
	buf = appendTwo(buf, int64(hours))
	buf = append(buf, ':')
	buf = appendTwo(buf, int64(minutes))
	buf = append(buf, ':')
	buf = appendTwo(buf, int64(seconds))
	if d > 0 {
		frac := strconv.FormatInt(int64(d)+int64(time.Second), 10)[1:]
		for len(frac) > 0 && frac[len(frac)-1] == '0' {
			frac = frac[:len(frac)-1]
		}
		buf = append(buf, '.')
		buf = append(buf, frac...)
	}
	return string(buf)
}

func appendTwo(buf []byte, n int64) []byte {
	if n < 10 {
		buf = append(buf, '0')
	}
	return strconv.AppendInt(buf, n, 10)
}
