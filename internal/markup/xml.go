package markup

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/mcncl/jsoncanon/internal/errors"
)

// WriteXML serializes a markup tree as an XML document. Annotations become
// processing instructions; the structural root and attributes use the jx
// prefix bound to NamespaceURI.
func WriteXML(w io.Writer, t *Tree) error {
	if t == nil || t.Root == nil {
		return errors.NewOutputError("markup tree is empty", errors.ErrMissingAnnotation)
	}
	enc := xml.NewEncoder(w)

	var names []xml.Name
	enter := func(n *Node) error {
		switch n.Kind {
		case ElementNode:
			start := xml.StartElement{Name: xml.Name{Local: qualify(n.Space, n.Name)}}
			if n == t.Root {
				start.Attr = append(start.Attr, xml.Attr{
					Name:  xml.Name{Local: "xmlns:" + NamespacePrefix},
					Value: NamespaceURI,
				})
			}
			for _, a := range n.Attrs {
				start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: qualify(a.Space, a.Name)}, Value: a.Value})
			}
			names = append(names, start.Name)
			return enc.EncodeToken(start)
		case TextNode:
			return enc.EncodeToken(xml.CharData(n.Text))
		default:
			return enc.EncodeToken(xml.ProcInst{Target: n.Name, Inst: []byte(n.Text)})
		}
	}
	leave := func(n *Node) error {
		name := names[len(names)-1]
		names = names[:len(names)-1]
		return enc.EncodeToken(xml.EndElement{Name: name})
	}

	if err := t.Walk(enter, leave); err != nil {
		return errors.NewOutputError("failed to write markup", err)
	}
	if err := enc.Flush(); err != nil {
		return errors.NewOutputError("failed to write markup", err)
	}
	return nil
}

// qualify prefixes names in the structural namespace with jx:.
func qualify(space, name string) string {
	if space == NamespaceURI {
		return NamespacePrefix + ":" + name
	}
	return name
}

// ReadXML parses an XML document into a markup tree. Comments, directives
// and the XML declaration are dropped; adjacent character data is merged.
func ReadXML(r io.Reader) (*Tree, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewMarkupError("malformed XML", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Kind: ElementNode, Space: t.Name.Space, Name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				n.Attrs = append(n.Attrs, Attr{Space: a.Name.Space, Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.NewMarkupError("document has more than one root element", errors.ErrMissingAnnotation)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, errors.NewMarkupError("text outside the root element", errors.ErrMissingAnnotation)
				}
				continue
			}
			parent := stack[len(stack)-1]
			if k := len(parent.Children); k > 0 && parent.Children[k-1].Kind == TextNode {
				parent.Children[k-1].Text += string(t)
				continue
			}
			parent.Children = append(parent.Children, &Node{Kind: TextNode, Text: string(t)})
		case xml.ProcInst:
			if t.Target == "xml" {
				continue
			}
			if len(stack) == 0 {
				return nil, errors.NewMarkupError(
					fmt.Sprintf("annotation %q outside the root element", t.Target),
					errors.ErrMissingAnnotation,
				)
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{Kind: AnnotationNode, Name: t.Target, Text: string(t.Inst)})
		}
	}

	if root == nil {
		return nil, errors.NewMarkupError("document has no root element", errors.ErrMissingAnnotation)
	}
	return &Tree{Root: root}, nil
}
