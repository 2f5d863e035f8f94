package markup

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/models"
)

// MaxNesting bounds the depth of value trees accepted by Encode.
const MaxNesting = 10000

// NameAttr64 replaces NameAttr when the original member name cannot be
// carried as an XML attribute value; its value is base64.
const NameAttr64 = "name64"

var (
	leadingNonLetter = regexp.MustCompile(`^[^A-Za-z]+`)
	invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// SanitizeName reduces a member name to a valid element name: only
// [A-Za-z0-9_-] survive and the result starts with a letter. Names that
// sanitize to nothing become MemberName.
func SanitizeName(name string) string {
	s := invalidNameChars.ReplaceAllString(name, "")
	s = leadingNonLetter.ReplaceAllString(s, "")
	if s == "" {
		return MemberName
	}
	return s
}

type frameKind int

const (
	rootFrame frameKind = iota
	objectFrame
	arrayFrame
	keyFrame
)

// frame is one entry of the encoder's lineage stack.
type frame struct {
	kind frameKind
	// key is the element name reused for array items.
	key string
	// id is the array id of an array frame.
	id int
	// lent is set on array frames whose first item reuses an element that
	// is already open.
	lent     bool
	children int
	// owns is set on object frames that close their element on leave.
	owns bool
}

type encoder struct {
	lineage []frame
	nextID  int
	open    []*Node
	root    *Node
}

// Encode transcodes a value tree into a markup tree in a single
// depth-first pass driven by explicit stacks.
func Encode(v models.Value) (*Tree, error) {
	root := &Node{Kind: ElementNode, Space: NamespaceURI, Name: RootName}
	e := &encoder{
		lineage: []frame{{kind: rootFrame}},
		open:    []*Node{root},
		root:    root,
	}

	type cursor struct {
		value models.Value
		next  int
	}
	var stack []cursor

	visit := func(v models.Value) error {
		switch v.Kind() {
		case models.Object:
			if len(stack) >= MaxNesting {
				return errors.NewMarkupError(fmt.Sprintf("nesting deeper than %d levels", MaxNesting), errors.ErrNestingTooDeep)
			}
			e.enterObject()
			stack = append(stack, cursor{value: v})
		case models.Array:
			if len(stack) >= MaxNesting {
				return errors.NewMarkupError(fmt.Sprintf("nesting deeper than %d levels", MaxNesting), errors.ErrNestingTooDeep)
			}
			e.enterArray()
			stack = append(stack, cursor{value: v})
		default:
			e.scalar(v)
		}
		return nil
	}

	if err := visit(v); err != nil {
		return nil, err
	}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= top.value.Len() {
			kind := top.value.Kind()
			stack = stack[:len(stack)-1]
			if kind == models.Object {
				e.leaveObject()
			} else {
				e.leaveArray()
			}
			continue
		}
		i := top.next
		top.next++
		if top.value.Kind() == models.Object {
			m := top.value.Member(i)
			e.memberName(m.Name)
			if err := visit(m.Value); err != nil {
				return nil, err
			}
			continue
		}
		if err := visit(top.value.Index(i)); err != nil {
			return nil, err
		}
	}

	return &Tree{Root: root}, nil
}

func (e *encoder) top() *frame { return &e.lineage[len(e.lineage)-1] }

func (e *encoder) push(f frame) { e.lineage = append(e.lineage, f) }

func (e *encoder) pop() frame {
	f := e.lineage[len(e.lineage)-1]
	e.lineage = e.lineage[:len(e.lineage)-1]
	return f
}

func (e *encoder) openElement(name string, attrs []Attr) {
	n := &Node{Kind: ElementNode, Name: name, Attrs: attrs}
	parent := e.open[len(e.open)-1]
	parent.Children = append(parent.Children, n)
	e.open = append(e.open, n)
}

func (e *encoder) closeElement() {
	e.open = e.open[:len(e.open)-1]
}

func (e *encoder) annotate(target, data string) {
	parent := e.open[len(e.open)-1]
	parent.Children = append(parent.Children, &Node{Kind: AnnotationNode, Name: target, Text: data})
}

func (e *encoder) text(s string) {
	parent := e.open[len(e.open)-1]
	parent.Children = append(parent.Children, &Node{Kind: TextNode, Text: s})
}

// beginArrayItem opens the element for the next item of the array on top
// of the lineage and tags it with the array's id. The first item of an
// array that was lent an element reuses it.
func (e *encoder) beginArrayItem() {
	top := e.top()
	if !top.lent || top.children > 0 {
		e.openElement(top.key, nil)
	}
	top.children++
	e.annotate(ArrayItem, strconv.Itoa(top.id))
}

func (e *encoder) memberName(name string) {
	element := SanitizeName(name)
	var attrs []Attr
	if element != name {
		if xmlSafe(name) {
			attrs = append(attrs, Attr{Space: NamespaceURI, Name: NameAttr, Value: name})
		} else {
			attrs = append(attrs, Attr{Space: NamespaceURI, Name: NameAttr64, Value: base64.StdEncoding.EncodeToString([]byte(name))})
		}
	}
	e.openElement(element, attrs)
	e.push(frame{kind: keyFrame, key: element})
}

func (e *encoder) enterObject() {
	owns := false
	switch e.top().kind {
	case arrayFrame:
		e.beginArrayItem()
		owns = true
	case keyFrame:
		e.pop()
		owns = true
	}
	e.annotate(ObjectStart, "")
	e.push(frame{kind: objectFrame, owns: owns})
}

func (e *encoder) leaveObject() {
	f := e.pop()
	e.annotate(ObjectEnd, "")
	if f.owns {
		e.closeElement()
	}
}

func (e *encoder) enterArray() {
	key := ItemName
	lent := false
	switch top := e.top(); top.kind {
	case arrayFrame:
		key = top.key
		e.beginArrayItem()
		lent = true
	case keyFrame:
		key = top.key
		e.pop()
		lent = true
	}
	e.nextID++
	e.push(frame{kind: arrayFrame, key: key, id: e.nextID, lent: lent})
}

func (e *encoder) leaveArray() {
	f := e.pop()
	e.annotate(ArrayEnd, strconv.Itoa(f.id))
	if f.lent && f.children == 0 {
		e.closeElement()
	}
}

func (e *encoder) scalar(v models.Value) {
	closeAfter := false
	switch e.top().kind {
	case arrayFrame:
		e.beginArrayItem()
		closeAfter = true
	case keyFrame:
		e.pop()
		closeAfter = true
	}

	typ, text, encoding := scalarText(v)
	e.annotate(typ+startSuffix, encoding)
	if text != "" {
		e.text(text)
	}
	e.annotate(typ+endSuffix, "")

	if closeAfter {
		e.closeElement()
	}
}

// scalarText returns the type name, the text and the text encoding used to
// carry a scalar.
func scalarText(v models.Value) (typ, text, encoding string) {
	switch v.Kind() {
	case models.Null:
		return TypeNull, "", ""
	case models.Bool:
		return TypeBoolean, v.Text(), ""
	case models.Int:
		return TypeInteger, v.Text(), ""
	case models.Decimal:
		return TypeDecimal, v.Text(), ""
	case models.Instant, models.OffsetInstant:
		return TypeDate, v.Text(), ""
	case models.Duration:
		return TypeDuration, v.Text(), ""
	case models.Bytes:
		return TypeBytes, v.Text(), ""
	default:
		s := v.Str()
		if !xmlSafe(s) {
			return TypeString, base64.StdEncoding.EncodeToString([]byte(s)), EncodingBase64
		}
		return TypeString, s, ""
	}
}

// xmlSafe reports whether s is valid UTF-8 made only of characters allowed
// in XML 1.0 character data.
func xmlSafe(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == 0x09 || r == 0x0A || r == 0x0D:
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}
