package rite

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

type TreeNode struct {
	Parent, FirstChild, LastChild, PrevSibling, NextSibling *Node
}

// InsertBefore inserts newChild as a child of n, immediately before oldChild
// in the sequence of n's children. oldChild may be nil, in which case newChild
// is appended to the end of n's children.
//
// It will panic if newChild already has a parent or siblings.
func (n *Node) InsertBefore(newChild, oldChild *Node) {
	if newChild.Parent != nil || newChild.PrevSibling != nil || newChild.NextSibling != nil {
		panic("InsertBefore called for an attached child Node")
	}
	var prev, next *Node
	if oldChild != nil {
		prev, next = oldChild.PrevSibling, oldChild
	} else {
		prev = n.LastChild
	}
	if prev != nil {
		prev.NextSibling = newChild
	} else {
		n.FirstChild = newChild
	}
	if next != nil {
		next.PrevSibling = newChild
	} else {
		n.LastChild = newChild
	}
	newChild.Parent = n
	newChild.PrevSibling = prev
	newChild.NextSibling = next
}

// AppendChild adds a node child as a child of parent.
//
// It will panic if child already has a parent or siblings.
func (parent *Node) AppendChild(child *Node) {
	if child.Parent != nil || child.PrevSibling != nil || child.NextSibling != nil {
		panic("AppendChild called for an already attached child Node")
	}
	last := parent.LastChild
	if last != nil {
		// If the parent has already childs, set the new node as next sibling of the current last child
		last.NextSibling = child
	} else {
		// If the parent has no childs, set the new node as the first child
		parent.FirstChild = child
	}

	// In any case, the new node will be the last child of the parent
	parent.LastChild = child

	// We also set the pointers in the new node to its parent and previous sibling
	// If the new node is the only child, the previous sibling will be nil
	child.Parent = parent
	child.PrevSibling = last
}

// RemoveChild removes a node child that is a child of n. Afterwards, child will have
// no parent and no siblings.
//
// It will panic if child's parent is not parent.
func (parent *Node) RemoveChild(child *Node) {
	if child.Parent != parent {
		panic("RemoveChild called for a non-child Node")
	}
	if parent.FirstChild == child {
		parent.FirstChild = child.NextSibling
	}
	if child.NextSibling != nil {
		child.NextSibling.PrevSibling = child.PrevSibling
	}
	if parent.LastChild == child {
		parent.LastChild = child.PrevSibling
	}
	if child.PrevSibling != nil {
		child.PrevSibling.NextSibling = child.NextSibling
	}

	// Make the child alone in the universe ...
	child.Parent = nil
	child.PrevSibling = nil
	child.NextSibling = nil
}

// ReparentChildren reparents all of src's child nodes to dst.
func ReparentChildren(dst, src *Node) {
	for {
		child := src.FirstChild
		if child == nil {
			break
		}
		src.RemoveChild(child)
		dst.AppendChild(child)
	}
}

// ReplaceWith puts the replacement nodes in the place of n and detaches n from the tree.
// With no replacements the node is simply removed.
func (n *Node) ReplaceWith(replacements ...*Node) {
	parent := n.Parent
	if parent == nil {
		panic("ReplaceWith called for a detached Node")
	}
	for _, r := range replacements {
		parent.InsertBefore(r, n)
	}
	parent.RemoveChild(n)
}

type Node struct {
	TreeNode
	Type        NodeType
	Level       int
	Outline     string
	p           *Parser
	RawText     *Text
	InnerText   []byte
	Indentation int
	LineNumber  int
	Name        string
	Id          []byte
	Class       []byte
	Src         []byte
	Href        []byte
	Attr        []Attribute
	RestLine    []byte

	// Data is the payload attached by directives, like the record of an item
	// or the options of a pending view
	Data any
}

// The indentation string
var aBigIndentationString = bytes.Repeat([]byte(" "), 200)

func indent(n int) []byte {
	if n < 0 {
		n = 0
	}
	if n > len(aBigIndentationString) {
		n = len(aBigIndentationString)
	}
	return aBigIndentationString[:n]
}

// A NodeType is the type of a Node.
type NodeType uint32

const (
	ErrorNode NodeType = iota
	DocumentNode
	SectionNode
	BlockNode
	DiagramNode
	VerbatimNode
	IncludeNode
	FieldListNode
	FieldNode
	FragmentNode
	DescNode
	PendingNode
	ReferenceNode
)

// String returns a string representation of the NodeType.
func (n NodeType) String() string {
	switch n {
	case ErrorNode:
		return "Error Node"
	case DocumentNode:
		return "Document Node"
	case SectionNode:
		return "Section Node"
	case BlockNode:
		return "Block Node"
	case DiagramNode:
		return "Diagram Node"
	case VerbatimNode:
		return "Verbatim Node"
	case IncludeNode:
		return "Include Node"
	case FieldListNode:
		return "Field List Node"
	case FieldNode:
		return "Field Node"
	case FragmentNode:
		return "Fragment Node"
	case DescNode:
		return "Desc Node"
	case PendingNode:
		return "Pending Node"
	case ReferenceNode:
		return "Reference Node"
	}
	return "Invalid Node (" + strconv.Itoa(int(n)) + ")"
}

// NewBlock creates a detached block node with the given tag name and inline content
func NewBlock(name string, rest string) *Node {
	return &Node{Type: BlockNode, Name: name, RestLine: []byte(rest)}
}

// NewReference creates a detached hyperlink to href, with text as the escaped visible text
func NewReference(href string, text string) *Node {
	return &Node{Type: ReferenceNode, Name: "a", Href: []byte(href), RestLine: []byte(text)}
}

// NewFragment creates a detached container which renders only its children
func NewFragment(children ...*Node) *Node {
	f := &Node{Type: FragmentNode}
	for _, c := range children {
		f.AppendChild(c)
	}
	return f
}

// tagString returns a string representation of a Node's tag name and attributes.
func (n Node) tagString() string {
	buf := bytes.NewBufferString(n.Name)
	if n.Id != nil {
		buf.WriteString(` id="`)
		buf.Write(n.Id)
		buf.WriteString(`"`)
	}
	if n.Class != nil {
		buf.WriteString(` class="`)
		buf.Write(n.Class)
		buf.WriteString(`"`)
	}
	if n.Src != nil {
		buf.WriteString(` src="`)
		buf.Write(n.Src)
		buf.WriteString(`"`)
	}
	if n.Href != nil {
		buf.WriteString(` href="`)
		buf.Write(n.Href)
		buf.WriteString(`"`)
	}

	for _, a := range n.Attr {
		buf.WriteByte(' ')
		buf.WriteString(a.Key)
		if a.Val != nil {
			buf.WriteString(`="`)
			buf.Write(a.Val)
			buf.WriteByte('"')
		}
	}
	return buf.String()
}

// String returns a string representation of the Node.
func (n Node) String() string {
	switch n.Type {
	case ErrorNode:
		return "ErrorNode"
	case DocumentNode:
		return "TopLevelDocument"
	case FragmentNode:
		return "Fragment"
	case FieldNode:
		return "Field(" + string(n.RestLine) + ")"
	case SectionNode, BlockNode, VerbatimNode, DiagramNode, IncludeNode, FieldListNode, DescNode, PendingNode, ReferenceNode:
		return "<" + n.tagString() + ">"
	}
	return "Invalid(" + strconv.Itoa(int(n.Type)) + ")"
}

func (n *Node) AddClass(newClass []byte) {

	// More than one class can be specified and all are accumulated, separated by a space
	if len(n.Class) > 0 {
		n.Class = append(n.Class, ' ')
	}
	n.Class = append(n.Class, newClass...)

}

func (n *Node) AddClassString(newClass string) {
	n.AddClass([]byte(newClass))
}

// AttrVal returns the value of the attribute in the tag of the node
func (n *Node) AttrVal(key string) ([]byte, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return nil, false
}

// Parser returns the parser which created the node, or nil for generated nodes
func (n *Node) Parser() *Parser {
	return n.p
}

// Clone returns a new node with the same type, name and attributes.
// The Clone has no parent, no siblings and no children.
func (n *Node) Clone() *Node {
	m := &Node{
		Type:        n.Type,
		Level:       n.Level,
		Outline:     n.Outline,
		p:           n.p,
		RawText:     n.RawText,
		InnerText:   bytes.Clone(n.InnerText),
		Indentation: n.Indentation,
		LineNumber:  n.LineNumber,
		Name:        n.Name,
		Id:          bytes.Clone(n.Id),
		Class:       bytes.Clone(n.Class),
		Src:         bytes.Clone(n.Src),
		Href:        bytes.Clone(n.Href),
		Attr:        make([]Attribute, len(n.Attr)),
		RestLine:    bytes.Clone(n.RestLine),
		Data:        n.Data,
	}
	copy(m.Attr, n.Attr)
	return m
}

// DeepClone is like Clone but also clones the whole subtree of the node.
// Ids are cleared in the copies, so the clone can live in the same document as the original.
func (n *Node) DeepClone() *Node {
	m := n.Clone()
	m.Id = nil
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		m.AppendChild(c.DeepClone())
	}
	return m
}

// Walk visits depth-first the subtree rooted at n, in document order.
// If visit returns false the children of the visited node are skipped.
// The next sibling is captured before visiting, so visit may detach the node.
func Walk(n *Node, visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, visit)
		c = next
	}
}

// FindAll returns the nodes of the subtree rooted at n which have the given type
func FindAll(n *Node, t NodeType) []*Node {
	var found []*Node
	Walk(n, func(c *Node) bool {
		if c.Type == t {
			found = append(found, c)
		}
		return true
	})
	return found
}

var reTags = regexp.MustCompile(`<[^>]*>`)

// PlainText returns the text content of the subtree without any markup
func (n *Node) PlainText() string {
	var parts []string
	Walk(n, func(c *Node) bool {
		switch c.Type {
		case FieldNode:
			// The name of the field is not part of its content
			return true
		case VerbatimNode, DiagramNode:
			if len(c.InnerText) > 0 {
				parts = append(parts, strings.TrimSpace(string(c.InnerText)))
			}
			return false
		case ReferenceNode:
			parts = append(parts, string(c.RestLine))
			return false
		}
		if len(c.RestLine) > 0 {
			text := html.UnescapeString(string(reTags.ReplaceAll(c.RestLine, nil)))
			if t := strings.TrimSpace(text); len(t) > 0 {
				parts = append(parts, t)
			}
		}
		return true
	})
	return strings.Join(parts, " ")
}

const StartHTMLTag = '<'
const EndHTMLTag = '>'

var VoidElements = []string{
	"area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "source", "track", "wbr",
}
var NoBlockElements = []string{
	"p", "a", "code", "b", "i", "hr", "em", "strong", "small", "s", "span",
}

// An Attribute is an attribute key-value pair. A nil Val means that the
// attribute was written as a flag, without any value.
type Attribute struct {
	Key string
	Val []byte
}
