// Package markup transcodes JSON value trees into an annotated markup tree
// and back, exactly.
//
// The markup form is XML-shaped: member names become elements, scalar text
// becomes character data, and everything needed to recover the JSON shape
// and scalar types travels in processing instructions (annotations):
//
//	object-start, object-end        object boundaries
//	array-item <id>, array-end <id> array membership, keyed by array id
//	<type>-start, <type>-end        one pair around every scalar
//
// Structural elements live in a private namespace so that they can never
// collide with member names.
package markup

// Namespace is the private namespace of the structural markup.
const (
	NamespaceURI    = "http://edennis.com/2013/jsonxml"
	NamespacePrefix = "jx"
	RootName        = "root"

	// NameAttr holds the original member name when the element name had to
	// be sanitized.
	NameAttr = "name"

	// ItemName names the elements of a root-level array.
	ItemName = "item"

	// MemberName replaces member names that sanitize to nothing.
	MemberName = "member"
)

// Annotation targets.
const (
	ObjectStart = "object-start"
	ObjectEnd   = "object-end"
	ArrayItem   = "array-item"
	ArrayEnd    = "array-end"

	startSuffix = "-start"
	endSuffix   = "-end"
)

// Scalar type names carried by {type}-start / {type}-end annotations.
const (
	TypeNull     = "null"
	TypeBoolean  = "boolean"
	TypeInteger  = "integer"
	TypeDecimal  = "decimal"
	TypeString   = "string"
	TypeDate     = "date"
	TypeDuration = "duration"
	TypeBytes    = "bytes"
)

// EncodingBase64 marks scalar text that was base64-encoded because it
// cannot be carried as XML character data.
const EncodingBase64 = "base64"

// NodeKind identifies a markup node.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
	AnnotationNode
)

// Attr is an element attribute.
type Attr struct {
	Space string
	Name  string
	Value string
}

// Node is one node of a markup tree.
//
// Elements use Space, Name, Attrs and Children. Text nodes use Text.
// Annotations use Name as the target and Text as the data.
type Node struct {
	Kind     NodeKind
	Space    string
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// Attr returns the value of the attribute with the given namespace and
// name.
func (n *Node) Attr(space, name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Space == space && a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Tree is a markup document with a single root element.
type Tree struct {
	Root *Node
}

// Walk visits every node of the tree in document order. enter is called
// when a node is reached and leave after an element's children; both may
// be nil. Traversal stops at the first error.
func (t *Tree) Walk(enter, leave func(*Node) error) error {
	if t == nil || t.Root == nil {
		return nil
	}
	type cursor struct {
		node *Node
		next int
	}
	if enter != nil {
		if err := enter(t.Root); err != nil {
			return err
		}
	}
	stack := []cursor{{node: t.Root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.node.Children) {
			if leave != nil {
				if err := leave(top.node); err != nil {
					return err
				}
			}
			stack = stack[:len(stack)-1]
			continue
		}
		child := top.node.Children[top.next]
		top.next++
		if enter != nil {
			if err := enter(child); err != nil {
				return err
			}
		}
		if child.Kind == ElementNode {
			stack = append(stack, cursor{node: child})
		}
	}
	return nil
}
