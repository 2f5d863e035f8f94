package analyzer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v2"
	"github.com/mcncl/jsoncanon/internal/models"
)

// ScalarKind is the most specific type a scalar was sniffed as.
type ScalarKind int

const (
	KindNull ScalarKind = iota
	KindBool
	KindByte
	KindInt16
	KindInt32
	KindInt64
	KindDecimal
	KindText
	KindDuration
	KindInstant
	KindOffsetInstant
	KindBytes
)

// String returns the kind name.
func (k ScalarKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindByte:
		return "byte"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindDuration:
		return "duration"
	case KindInstant:
		return "instant"
	case KindOffsetInstant:
		return "offset-instant"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Regex patterns for time-like strings
var (
	// [-][d.]hh:mm[:ss[.fffffff]]
	durationRegex = regexp.MustCompile(`^(-)?(?:(\d{1,8})\.)?(\d{1,2}):(\d{1,2})(?::(\d{1,2})(?:\.(\d{1,9}))?)?$`)

	// Lenient ISO 8601: single-digit month/day and hour are accepted, the
	// time part is optional, and an offset is either Z or ±hh[:]mm.
	dateTimeRegex = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ](\d{1,2}):(\d{2})(?::(\d{2})(?:\.(\d{1,9}))?)?)?(Z|[+-]\d{2}:?\d{2})?$`)
)

// Scalar is a leaf value classified into its most specific type. The zero
// Scalar is a null.
type Scalar struct {
	Kind  ScalarKind
	value models.Value
}

// Value returns the typed value backing the scalar.
func (s Scalar) Value() models.Value { return s.value }

// IsNull reports whether the scalar is a JSON null.
func (s Scalar) IsNull() bool { return s.Kind == KindNull }

// String returns the text form used for comparison and presentation.
// Null renders as the empty string; use Equal to tell it apart from "".
func (s Scalar) String() string {
	if s.Kind == KindNull {
		return ""
	}
	return s.value.Text()
}

// Equal compares the text forms of two scalars. A null only equals a null.
func (s Scalar) Equal(o Scalar) bool {
	if s.IsNull() || o.IsNull() {
		return s.IsNull() == o.IsNull()
	}
	return s.String() == o.String()
}

// Sniff classifies a scalar into its most specific type. It never fails:
// anything that is not recognized stays text. Composites are reported as
// empty text; callers only pass leaves.
func Sniff(v models.Value) Scalar {
	switch v.Kind() {
	case models.Null:
		return Scalar{Kind: KindNull, value: v}
	case models.Bool:
		return Scalar{Kind: KindBool, value: v}
	case models.Int:
		return Scalar{Kind: narrowInt(v.Int()), value: v}
	case models.Decimal:
		return analyzeDecimal(v)
	case models.String:
		return analyzeString(v.Str())
	case models.Instant:
		return Scalar{Kind: KindInstant, value: v}
	case models.OffsetInstant:
		return Scalar{Kind: KindOffsetInstant, value: v}
	case models.Duration:
		return Scalar{Kind: KindDuration, value: v}
	case models.Bytes:
		return Scalar{Kind: KindBytes, value: v}
	default:
		return Scalar{Kind: KindText, value: models.StringValue("")}
	}
}

// narrowInt keeps the smallest integer representation holding i.
func narrowInt(i int64) ScalarKind {
	switch {
	case i >= 0 && i <= math.MaxUint8:
		return KindByte
	case i >= math.MinInt16 && i <= math.MaxInt16:
		return KindInt16
	case i >= math.MinInt32 && i <= math.MaxInt32:
		return KindInt32
	default:
		return KindInt64
	}
}

// analyzeDecimal narrows a decimal written without a fraction or exponent
// back to an integer kind when it fits; otherwise it stays a decimal.
func analyzeDecimal(v models.Value) Scalar {
	d := v.Decimal()
	if d != nil && d.Form == apd.Finite && d.Exponent == 0 {
		if i, err := d.Int64(); err == nil {
			return Scalar{Kind: narrowInt(i), value: models.IntValue(i)}
		}
	}
	return Scalar{Kind: KindDecimal, value: v}
}

func analyzeString(s string) Scalar {
	probe := strings.TrimSpace(s)

	if d, ok := ParseDuration(probe); ok {
		return Scalar{Kind: KindDuration, value: models.DurationValue(d)}
	}

	if t, hasOffset, ok := ParseDateTime(probe); ok {
		if hasOffset {
			return Scalar{Kind: KindOffsetInstant, value: models.OffsetInstantValue(t)}
		}
		return Scalar{Kind: KindInstant, value: models.InstantValue(t)}
	}

	return Scalar{Kind: KindText, value: models.StringValue(s)}
}

// ParseDuration parses the [-][d.]hh:mm[:ss[.fffffff]] form. Hours must be
// below 24, minutes and seconds below 60, and the whole span must fit in a
// time.Duration.
func ParseDuration(s string) (time.Duration, bool) {
	m := durationRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	days := atoi(m[2])
	hours := atoi(m[3])
	minutes := atoi(m[4])
	seconds := atoi(m[5])
	if hours > 23 || minutes > 59 || seconds > 59 {
		return 0, false
	}
	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		fraction(m[6])
	// Spans past time.Duration's range stay text.
	if int64(days) > (math.MaxInt64-int64(d))/int64(24*time.Hour) {
		return 0, false
	}
	d += time.Duration(days) * 24 * time.Hour
	if m[1] == "-" {
		d = -d
	}
	return d, true
}

// ParseDateTime parses a lenient ISO 8601 date or date/time. hasOffset
// reports whether the text carried a zone designator.
func ParseDateTime(s string) (t time.Time, hasOffset bool, ok bool) {
	m := dateTimeRegex.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false, false
	}
	year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
	hour, minute, second := atoi(m[4]), atoi(m[5]), atoi(m[6])
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false, false
	}
	// time.Date normalizes overflow, so reject days past the month's end.
	if day > time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day() {
		return time.Time{}, false, false
	}

	loc := time.UTC
	if zone := m[8]; zone != "" {
		hasOffset = true
		if zone != "Z" {
			zone = strings.ReplaceAll(zone, ":", "")
			oh, om := atoi(zone[1:3]), atoi(zone[3:5])
			if oh > 23 || om > 59 {
				return time.Time{}, false, false
			}
			offset := oh*3600 + om*60
			if zone[0] == '-' {
				offset = -offset
			}
			loc = time.FixedZone("", offset)
		} else {
			loc = time.FixedZone("", 0)
		}
	}
	nanos := int(fraction(m[7]))
	return time.Date(year, time.Month(month), day, hour, minute, second, nanos, loc), hasOffset, true
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// fraction converts the digits after a decimal point into nanoseconds.
func fraction(digits string) time.Duration {
	if digits == "" {
		return 0
	}
	for len(digits) < 9 {
		digits += "0"
	}
	return time.Duration(atoi(digits[:9]))
}
