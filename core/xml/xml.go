// Package xml provides a small XML DOM with XPath queries, mutation, and
// deterministic pretty-printing, built on the antchfx/xmlquery node tree.
//
// Security Notes:
//   - XXE (External Entity) attacks are mitigated because xmlquery parses
//     with Go's xml.Decoder, which does not fetch external entities.
package xml

import (
	"bytes"
	stdxml "encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/tierline/elan/core/encoding"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node represents an XML node (element, text, declaration).
type Node struct {
	node *xmlquery.Node
}

// FormatOptions controls XML formatting behavior.
type FormatOptions struct {
	Indent string // Indentation string (e.g., "  " or "\t")
}

// Parse parses XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	reader := bytes.NewReader(data)
	root, err := xmlquery.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseFile reads and parses an XML file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// NewDocument creates an empty document holding only an XML declaration.
// The given encoding is recorded in the declaration.
func NewDocument(encoding string) *Document {
	root := &xmlquery.Node{Type: xmlquery.DocumentNode}
	decl := &xmlquery.Node{
		Type: xmlquery.DeclarationNode,
		Data: "xml",
		Attr: []xmlquery.Attr{
			{Name: stdxml.Name{Local: "version"}, Value: "1.0"},
			{Name: stdxml.Name{Local: "encoding"}, Value: encoding},
		},
	}
	xmlquery.AddChild(root, decl)
	return &Document{root: root}
}

// Root returns the root element of the document.
func (d *Document) Root() *Node {
	if d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// SetRoot appends the given element as the document's root element.
func (d *Document) SetRoot(n *Node) {
	xmlquery.AddChild(d.root, n.node)
}

// XPath executes an XPath query and returns matching nodes.
func (d *Document) XPath(expr string) ([]*Node, error) {
	return query(d.root, expr)
}

// XPathFirst executes an XPath query and returns the first matching node,
// or nil if nothing matches.
func (d *Document) XPathFirst(expr string) (*Node, error) {
	return queryFirst(d.root, expr)
}

// Serialize converts the document back to compact XML bytes.
func (d *Document) Serialize() []byte {
	if d.root == nil {
		return nil
	}
	return []byte(d.root.OutputXML(true))
}

// Format pretty-prints the document. The XML declaration, if present,
// is emitted first.
func (d *Document) Format(opts FormatOptions) ([]byte, error) {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	var buf bytes.Buffer
	if err := formatNode(&buf, d.root, 0, opts.Indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewElement creates a detached element node.
func NewElement(name string) *Node {
	return &Node{node: &xmlquery.Node{Type: xmlquery.ElementNode, Data: name}}
}

// Name returns the element name.
func (n *Node) Name() string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.Data
}

// InnerText returns all text content of the node and its descendants.
func (n *Node) InnerText() string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.InnerText()
}

// Children returns the child element nodes.
func (n *Node) Children() []*Node {
	if n == nil || n.node == nil {
		return nil
	}

	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// Attributes returns all attributes of the node.
func (n *Node) Attributes() map[string]string {
	if n == nil || n.node == nil {
		return nil
	}

	attrs := make(map[string]string)
	for _, attr := range n.node.Attr {
		attrs[attr.Name.Local] = attr.Value
	}
	return attrs
}

// Attr returns the value of a specific attribute, or "" if absent.
func (n *Node) Attr(name string) string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.SelectAttr(name)
}

// HasAttr reports whether the attribute is present, distinguishing an
// absent attribute from one carrying an empty value.
func (n *Node) HasAttr(name string) bool {
	if n == nil || n.node == nil {
		return false
	}
	for _, attr := range n.node.Attr {
		if attr.Name.Local == name {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces an attribute value.
func (n *Node) SetAttr(name, value string) {
	for i, attr := range n.node.Attr {
		if attr.Name.Local == name {
			n.node.Attr[i].Value = value
			return
		}
	}
	n.node.Attr = append(n.node.Attr, xmlquery.Attr{
		Name:  stdxml.Name{Local: name},
		Value: value,
	})
}

// RemoveAttr removes an attribute if present.
func (n *Node) RemoveAttr(name string) {
	for i, attr := range n.node.Attr {
		if attr.Name.Local == name {
			n.node.Attr = append(n.node.Attr[:i], n.node.Attr[i+1:]...)
			return
		}
	}
}

// AppendChild appends a child node.
func (n *Node) AppendChild(child *Node) {
	xmlquery.AddChild(n.node, child.node)
}

// PrependChild inserts a child node before all existing children.
func (n *Node) PrependChild(child *Node) {
	first := n.node.FirstChild
	if first == nil {
		xmlquery.AddChild(n.node, child.node)
		return
	}
	child.node.Parent = n.node
	child.node.NextSibling = first
	first.PrevSibling = child.node
	n.node.FirstChild = child.node
}

// Remove detaches the node from its parent tree.
func (n *Node) Remove() {
	xmlquery.RemoveFromTree(n.node)
}

// SetText replaces the node's children with a single text node.
func (n *Node) SetText(text string) {
	n.node.FirstChild = nil
	n.node.LastChild = nil
	if text == "" {
		return
	}
	xmlquery.AddChild(n.node, &xmlquery.Node{Type: xmlquery.TextNode, Data: text})
}

// Find executes an XPath query relative to this node.
func (n *Node) Find(expr string) ([]*Node, error) {
	return query(n.node, expr)
}

// FindFirst executes an XPath query relative to this node and returns the
// first match, or nil.
func (n *Node) FindFirst(expr string) (*Node, error) {
	return queryFirst(n.node, expr)
}

func query(root *xmlquery.Node, expr string) ([]*Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	nodes, err := xmlquery.QueryAll(root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query failed: %w", err)
	}

	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result, nil
}

func queryFirst(root *xmlquery.Node, expr string) (*Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	node, err := xmlquery.Query(root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query failed: %w", err)
	}
	if node == nil {
		return nil, nil
	}
	return &Node{node: node}, nil
}

// formatNode recursively formats an XML node.
func formatNode(w *bytes.Buffer, n *xmlquery.Node, depth int, indent string) error {
	switch n.Type {
	case xmlquery.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if err := formatNode(w, child, depth, indent); err != nil {
				return err
			}
		}

	case xmlquery.DeclarationNode:
		w.WriteString("<?xml")
		for _, attr := range n.Attr {
			w.WriteString(" ")
			w.WriteString(attr.Name.Local)
			w.WriteString("=\"")
			w.WriteString(encoding.EscapeXMLAttr(attr.Value))
			w.WriteString("\"")
		}
		w.WriteString("?>\n")

	case xmlquery.ElementNode:
		writeIndent(w, depth, indent)
		w.WriteString("<")
		if n.Prefix != "" {
			w.WriteString(n.Prefix)
			w.WriteString(":")
		}
		w.WriteString(n.Data)

		for _, attr := range n.Attr {
			w.WriteString(" ")
			if attr.Name.Space != "" {
				w.WriteString(attr.Name.Space)
				w.WriteString(":")
				w.WriteString(attr.Name.Local)
			} else if attr.Name.Local != "" {
				w.WriteString(attr.Name.Local)
			}
			w.WriteString("=\"")
			w.WriteString(encoding.EscapeXMLAttr(attr.Value))
			w.WriteString("\"")
		}

		hasChildren := n.FirstChild != nil
		hasElementChildren := false
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.ElementNode {
				hasElementChildren = true
				break
			}
		}

		if !hasChildren {
			w.WriteString("/>\n")
		} else {
			w.WriteString(">")
			if hasElementChildren {
				w.WriteString("\n")
			}

			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type == xmlquery.ElementNode {
					if err := formatNode(w, child, depth+1, indent); err != nil {
						return err
					}
				} else if child.Type == xmlquery.TextNode {
					text := strings.TrimSpace(child.Data)
					if text != "" {
						if hasElementChildren {
							writeIndent(w, depth+1, indent)
						}
						w.WriteString(encoding.EscapeXMLText(child.Data))
						if hasElementChildren {
							w.WriteString("\n")
						}
					}
				} else if child.Type == xmlquery.CharDataNode {
					w.WriteString("<![CDATA[")
					w.WriteString(child.Data)
					w.WriteString("]]>")
				}
			}

			if hasElementChildren {
				writeIndent(w, depth, indent)
			}
			w.WriteString("</")
			if n.Prefix != "" {
				w.WriteString(n.Prefix)
				w.WriteString(":")
			}
			w.WriteString(n.Data)
			w.WriteString(">\n")
		}

	case xmlquery.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			w.WriteString(encoding.EscapeXMLText(text))
		}

	case xmlquery.CommentNode:
		writeIndent(w, depth, indent)
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->\n")
	}

	return nil
}

func writeIndent(w *bytes.Buffer, depth int, indent string) {
	for i := 0; i < depth; i++ {
		w.WriteString(indent)
	}
}
