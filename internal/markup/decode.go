package markup

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcncl/jsoncanon/internal/analyzer"
	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/jsonpath"
	"github.com/mcncl/jsoncanon/internal/models"
)

// composite is an object or array under construction.
type composite struct {
	isObject bool
	id       int
	path     string

	// parent and name place the finished composite into its container.
	parent *composite
	name   string

	members []models.Member
	items   []models.Value

	pendingKey string
	hasKey     bool
}

type decoder struct {
	stack []*composite
	seen  map[int]bool

	inScalar  bool
	scalarTyp string
	encoding  string
	text      strings.Builder
	textPath  string

	root models.Value
	done bool
}

// Decode rebuilds the value tree carried by a markup tree. It is the
// inverse of Encode.
func Decode(t *Tree) (models.Value, error) {
	if t == nil || t.Root == nil {
		return models.Value{}, markupError(jsonpath.Root, "document has no root element", errors.ErrMissingAnnotation)
	}
	if t.Root.Kind != ElementNode || t.Root.Space != NamespaceURI || t.Root.Name != RootName {
		return models.Value{}, markupError(jsonpath.Root,
			fmt.Sprintf("root element must be %s:%s", NamespacePrefix, RootName), errors.ErrMissingAnnotation)
	}

	d := &decoder{seen: make(map[int]bool)}
	enter := func(n *Node) error {
		if n == t.Root {
			return nil
		}
		switch n.Kind {
		case ElementNode:
			return d.element(n)
		case AnnotationNode:
			return d.annotation(n.Name, n.Text)
		default:
			return d.textNode(n.Text)
		}
	}
	leave := func(n *Node) error {
		if n == t.Root {
			return nil
		}
		if top := d.top(); top != nil && top.isObject && top.hasKey {
			return markupError(d.path(), fmt.Sprintf("element <%s> closed without a value", n.Name), errors.ErrMissingAnnotation)
		}
		return nil
	}
	if err := t.Walk(enter, leave); err != nil {
		return models.Value{}, err
	}

	if d.inScalar {
		return models.Value{}, markupError(d.textPath, fmt.Sprintf("%s scalar is never closed", d.scalarTyp), errors.ErrMissingAnnotation)
	}
	if top := d.top(); top != nil {
		kind := "array"
		if top.isObject {
			kind = "object"
		}
		return models.Value{}, markupError(top.path, kind+" is never closed", errors.ErrMissingAnnotation)
	}
	if !d.done {
		return models.Value{}, markupError(jsonpath.Root, "document carries no value", errors.ErrMissingAnnotation)
	}
	return d.root, nil
}

func markupError(path, message string, err error) error {
	return errors.NewMarkupError(fmt.Sprintf("at %s: %s", path, message), err)
}

func (d *decoder) top() *composite {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}

// path returns the path of the next value to be placed.
func (d *decoder) path() string {
	top := d.top()
	switch {
	case top == nil:
		return jsonpath.Root
	case top.isObject:
		if top.hasKey {
			return jsonpath.Member(top.path, top.pendingKey)
		}
		return top.path
	default:
		return jsonpath.Index(top.path, len(top.items), jsonpath.DefaultIndexWidth)
	}
}

func (d *decoder) element(n *Node) error {
	top := d.top()
	if top == nil {
		// Items of a root array open their element before array-item.
		if d.done {
			return markupError(jsonpath.Root, fmt.Sprintf("element <%s> after the root value", n.Name), errors.ErrMissingAnnotation)
		}
		return nil
	}
	if !top.isObject {
		return nil
	}
	if top.hasKey {
		return markupError(d.path(), "member has no value", errors.ErrMissingAnnotation)
	}
	name := n.Name
	if original, ok := n.Attr(NamespaceURI, NameAttr); ok {
		name = original
	} else if encoded, ok := n.Attr(NamespaceURI, NameAttr64); ok {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return markupError(top.path, fmt.Sprintf("member name of <%s> is not valid base64", n.Name), errors.ErrInvalidScalar)
		}
		name = string(raw)
	}
	top.pendingKey = name
	top.hasKey = true
	return nil
}

func (d *decoder) textNode(s string) error {
	if d.inScalar {
		d.text.WriteString(s)
		return nil
	}
	if strings.TrimSpace(s) != "" {
		return markupError(d.path(), fmt.Sprintf("text %q outside any scalar", s), errors.ErrMissingAnnotation)
	}
	return nil
}

func (d *decoder) annotation(target, data string) error {
	if d.inScalar && target != d.scalarTyp+endSuffix {
		return markupError(d.textPath, fmt.Sprintf("%s scalar interrupted by %q", d.scalarTyp, target), errors.ErrMissingAnnotation)
	}

	switch target {
	case ObjectStart:
		return d.begin(&composite{isObject: true})
	case ObjectEnd:
		top := d.top()
		if top == nil || !top.isObject {
			return markupError(d.path(), "object-end without a matching object-start", errors.ErrMissingAnnotation)
		}
		if top.hasKey {
			return markupError(d.path(), "member has no value", errors.ErrMissingAnnotation)
		}
		return d.end()
	case ArrayItem:
		id, err := arrayID(d.path(), data)
		if err != nil {
			return err
		}
		if !d.seen[id] {
			d.seen[id] = true
			return d.begin(&composite{id: id})
		}
		if top := d.top(); top == nil || top.isObject || top.id != id {
			return markupError(d.path(), fmt.Sprintf("array-item %d outside its array", id), errors.ErrMissingAnnotation)
		}
		return nil
	case ArrayEnd:
		id, err := arrayID(d.path(), data)
		if err != nil {
			return err
		}
		if !d.seen[id] {
			return d.place(models.ArrayValue())
		}
		top := d.top()
		if top == nil || top.isObject || top.id != id {
			return markupError(d.path(), fmt.Sprintf("array-end %d does not close the innermost array", id), errors.ErrMissingAnnotation)
		}
		delete(d.seen, id)
		return d.end()
	}

	if typ, ok := strings.CutSuffix(target, startSuffix); ok {
		if !knownType(typ) {
			return markupError(d.path(), fmt.Sprintf("unknown scalar type %q", typ), errors.ErrInvalidScalar)
		}
		d.inScalar = true
		d.scalarTyp = typ
		d.encoding = strings.TrimSpace(data)
		d.text.Reset()
		d.textPath = d.path()
		return nil
	}
	if typ, ok := strings.CutSuffix(target, endSuffix); ok {
		if !d.inScalar {
			return markupError(d.path(), fmt.Sprintf("%s without a matching %s", target, typ+startSuffix), errors.ErrMissingAnnotation)
		}
		d.inScalar = false
		v, err := parseScalar(d.scalarTyp, d.text.String(), d.encoding)
		if err != nil {
			return markupError(d.textPath, err.Error(), errors.ErrInvalidScalar)
		}
		return d.place(v)
	}
	return markupError(d.path(), fmt.Sprintf("unknown annotation %q", target), errors.ErrMissingAnnotation)
}

// begin opens a composite at the current position.
func (d *decoder) begin(c *composite) error {
	if len(d.stack) >= MaxNesting {
		return markupError(d.path(), fmt.Sprintf("nesting deeper than %d levels", MaxNesting), errors.ErrNestingTooDeep)
	}
	c.path = d.path()
	top := d.top()
	switch {
	case top == nil:
		if d.done {
			return markupError(jsonpath.Root, "more than one root value", errors.ErrMissingAnnotation)
		}
	case top.isObject:
		if !top.hasKey {
			return markupError(top.path, "value without a member element", errors.ErrMissingAnnotation)
		}
		c.name = top.pendingKey
		top.hasKey = false
	}
	c.parent = top
	d.stack = append(d.stack, c)
	return nil
}

func (d *decoder) end() error {
	c := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]

	var v models.Value
	if c.isObject {
		v = models.ObjectValue(c.members...)
	} else {
		v = models.ArrayValue(c.items...)
	}

	switch {
	case c.parent == nil:
		d.root = v
		d.done = true
	case c.parent.isObject:
		c.parent.members = append(c.parent.members, models.Field(c.name, v))
	default:
		c.parent.items = append(c.parent.items, v)
	}
	return nil
}

// place puts a finished scalar or empty array at the current position.
func (d *decoder) place(v models.Value) error {
	top := d.top()
	switch {
	case top == nil:
		if d.done {
			return markupError(jsonpath.Root, "more than one root value", errors.ErrMissingAnnotation)
		}
		d.root = v
		d.done = true
	case top.isObject:
		if !top.hasKey {
			return markupError(top.path, "value without a member element", errors.ErrMissingAnnotation)
		}
		top.members = append(top.members, models.Field(top.pendingKey, v))
		top.hasKey = false
	default:
		top.items = append(top.items, v)
	}
	return nil
}

func arrayID(path, data string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(data))
	if err != nil || id < 1 {
		return 0, markupError(path, fmt.Sprintf("invalid array id %q", data), errors.ErrMissingAnnotation)
	}
	return id, nil
}

func knownType(typ string) bool {
	switch typ {
	case TypeNull, TypeBoolean, TypeInteger, TypeDecimal, TypeString, TypeDate, TypeDuration, TypeBytes:
		return true
	}
	return false
}

// parseScalar rebuilds a scalar from its type name and text.
func parseScalar(typ, text, encoding string) (models.Value, error) {
	if encoding == EncodingBase64 {
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return models.Value{}, fmt.Errorf("%s text is not valid base64", typ)
		}
		text = string(raw)
	} else if encoding != "" {
		return models.Value{}, fmt.Errorf("unknown text encoding %q", encoding)
	}

	switch typ {
	case TypeNull:
		if text != "" {
			return models.Value{}, fmt.Errorf("null carries text %q", text)
		}
		return models.NullValue(), nil
	case TypeBoolean:
		switch strings.ToLower(text) {
		case "true":
			return models.BoolValue(true), nil
		case "false":
			return models.BoolValue(false), nil
		}
		return models.Value{}, fmt.Errorf("invalid boolean %q", text)
	case TypeInteger:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return models.Value{}, fmt.Errorf("invalid integer %q", text)
		}
		return models.IntValue(i), nil
	case TypeDecimal:
		v, err := models.ParseDecimal(text)
		if err != nil {
			return models.Value{}, fmt.Errorf("invalid decimal %q", text)
		}
		return v, nil
	case TypeDate:
		if t, err := time.Parse(models.OffsetInstantLayout, text); err == nil {
			return models.OffsetInstantValue(t), nil
		}
		if t, err := time.Parse(models.InstantLayout, text); err == nil {
			return models.InstantValue(t), nil
		}
		return models.Value{}, fmt.Errorf("invalid date %q", text)
	case TypeDuration:
		dur, ok := analyzer.ParseDuration(text)
		if !ok {
			return models.Value{}, fmt.Errorf("invalid duration %q", text)
		}
		return models.DurationValue(dur), nil
	case TypeBytes:
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return models.Value{}, fmt.Errorf("bytes text is not valid base64")
		}
		return models.BytesValue(raw), nil
	default:
		return models.StringValue(text), nil
	}
}
