package rite

import (
	"fmt"
	"strings"
)

// A Directive gives meaning to the block tags with its name.
// It runs once the whole document is parsed, so the node has all its content,
// and it may rewrite the node, replace it or remove it from the tree.
type Directive interface {
	Run(p *Parser, n *Node) error
}

// DirectiveFunc adapts an ordinary function to a Directive
type DirectiveFunc func(p *Parser, n *Node) error

func (f DirectiveFunc) Run(p *Parser, n *Node) error {
	return f(p, n)
}

// normalizeDirectiveName makes 'x-item-list', 'item-list' and 'item_list' the same directive
func normalizeDirectiveName(name string) string {
	name = strings.ToLower(name)
	name = strings.TrimPrefix(name, "x-")
	return strings.ReplaceAll(name, "-", "_")
}

// RegisterDirective associates a directive to the tags with the given name
func (p *Parser) RegisterDirective(name string, d Directive) {
	p.directives[normalizeDirectiveName(name)] = d
}

// WithDirective registers a directive when creating the parser
func WithDirective(name string, d Directive) Option {
	return func(p *Parser) { p.RegisterDirective(name, d) }
}

// runDirectives visits the tree in document order, running the directive of each block tag.
// The children of a node are visited after the directive of the node has run, so the directive
// can add content that will be processed too.
func (p *Parser) runDirectives(parent *Node) error {

	for n := parent.FirstChild; n != nil; {
		next := n.NextSibling

		if n.Type == BlockNode {
			if d := p.directives[normalizeDirectiveName(n.Name)]; d != nil {
				if err := d.Run(p, n); err != nil {
					return fmt.Errorf("%s (line %d) directive %s: %w", p.fileName, n.LineNumber, n.Name, err)
				}
			}
		}

		// The directive may have detached the node from the tree
		if n.Parent == parent {
			if err := p.runDirectives(n); err != nil {
				return err
			}
		}

		n = next
	}

	return nil
}

// NotePending records a node which will be resolved in a later stage of the build
func (p *Parser) NotePending(n *Node) {
	n.Type = PendingNode
	p.pending = append(p.pending, n)
}

// Pending returns the nodes recorded with NotePending, in document order
func (p *Parser) Pending() []*Node {
	return p.pending
}
