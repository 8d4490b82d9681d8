package rite

import (
	"bytes"
	"regexp"
)

// A field line looks like ':Name: value'. The value may be empty.
var reFieldLine = regexp.MustCompile(`^:([^:]+):(?:\s+(.*))?$`)

func isFieldList(content []byte) bool {
	firstLine, _, _ := bytes.Cut(content, []byte("\n"))
	return reFieldLine.Match(bytes.TrimSpace(firstLine))
}

// buildFieldList converts a paragraph of field lines into a FieldListNode with one FieldNode per field.
// The name of the field is in RestLine and the body of the field are its children, so rich content
// nested under the field list is appended to the last field.
// Lines not starting with ':name:' continue the value of the previous field.
func (p *Parser) buildFieldList(n *Node, text *Text) {
	n.Type = FieldListNode
	n.Name = "dl"
	n.AddClassString("field-list")

	var value *Node

	for i, line := range bytes.Split(text.Content, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if m := reFieldLine.FindSubmatch(line); m != nil {
			field := &Node{
				Type:        FieldNode,
				p:           p,
				Name:        "field",
				Indentation: text.Indentation,
				LineNumber:  text.LineNumber + i,
				RestLine:    bytes.TrimSpace(m[1]),
			}
			n.AppendChild(field)

			value = nil
			if len(m[2]) > 0 {
				value = &Node{
					Type:        BlockNode,
					p:           p,
					Name:        "p",
					Indentation: text.Indentation,
					LineNumber:  field.LineNumber,
					RestLine:    bytes.Clone(m[2]),
				}
				field.AppendChild(value)
			}
			continue
		}

		// A continuation line
		if value == nil {
			value = &Node{
				Type:        BlockNode,
				p:           p,
				Name:        "p",
				Indentation: text.Indentation,
				LineNumber:  text.LineNumber + i,
			}
			n.LastChild.AppendChild(value)
			value.RestLine = bytes.Clone(line)
			continue
		}
		value.RestLine = append(append(value.RestLine, ' '), line...)
	}
}

// FirstFieldList returns the first field list which is an immediate child of block, or nil
func FirstFieldList(block *Node) *Node {
	for c := block.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == FieldListNode {
			return c
		}
	}
	return nil
}

// NewField creates a detached field with the given name and body nodes
func NewField(name string, body ...*Node) *Node {
	field := &Node{Type: FieldNode, Name: "field", RestLine: []byte(name)}
	for _, b := range body {
		field.AppendChild(b)
	}
	return field
}

// NewFieldList creates a detached, empty field list
func NewFieldList() *Node {
	n := &Node{Type: FieldListNode, Name: "dl"}
	n.AddClassString("field-list")
	return n
}
