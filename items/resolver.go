package items

import (
	"errors"
	"path"

	"go.uber.org/zap"

	"github.com/hesusruiz/ritelist/rite"
)

var ErrAlreadyResolved = errors.New("placeholder already resolved")

// LinkFunc returns the href of the link to the item from a page of the document from
type LinkFunc func(from string, rec *Record) string

// RelativeLink links to items in other documents through the relative path to their output
// file, which has the extension ext. Items in the same document are linked by anchor only.
func RelativeLink(ext string) LinkFunc {
	return func(from string, rec *Record) string {
		if rec.Document == from {
			return "#" + rec.Anchor
		}
		return relativePath(path.Dir(from), rec.Document) + ext + "#" + rec.Anchor
	}
}

// relativePath returns the slash separated path to target from the directory dir.
// Both are relative to the same root.
func relativePath(dir string, target string) string {
	dirParts := splitPath(dir)
	targetParts := splitPath(target)

	common := 0
	for common < len(dirParts) && common < len(targetParts)-1 && dirParts[common] == targetParts[common] {
		common++
	}

	var parts []string
	for range dirParts[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, targetParts[common:]...)
	return path.Join(parts...)
}

func splitPath(p string) []string {
	p = path.Clean(p)
	if p == "." || p == "/" {
		return nil
	}
	var parts []string
	for len(p) > 0 {
		dir, file := path.Split(p)
		parts = append([]string{file}, parts...)
		p = path.Clean(dir)
		if p == "." || p == "/" {
			break
		}
	}
	return parts
}

// Resolver replaces the placeholders of the views by their content
type Resolver struct {
	Registry *Registry

	// DefaultScope applies to the views which do not choose one
	DefaultScope Scope

	// Link builds the href of the links to the items. By default, RelativeLink(".html").
	Link LinkFunc

	Logger *zap.SugaredLogger
}

func (r *Resolver) logger() *zap.SugaredLogger {
	if r.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return r.Logger
}

// ResolveDocument resolves all the placeholders in the tree of the document.
// It must be called after all the documents of the build were parsed, so the
// registry knows every item.
func (r *Resolver) ResolveDocument(doc string, root *rite.Node) error {

	// Collect first, resolving replaces nodes in the tree
	var pending []*rite.Node
	rite.Walk(root, func(n *rite.Node) bool {
		if n.Type == rite.PendingNode {
			if _, ok := n.Data.(*Placeholder); ok {
				pending = append(pending, n)
			}
		}
		return true
	})

	for _, n := range pending {
		if err := r.Resolve(doc, n); err != nil {
			return err
		}
	}

	return nil
}

// Resolve replaces the placeholder node by the list or table of the items in its scope.
// When there are no items the node is just removed.
func (r *Resolver) Resolve(doc string, n *rite.Node) error {
	ph, ok := n.Data.(*Placeholder)
	if !ok {
		return errors.New("node is not an item view")
	}
	if ph.resolved {
		return ErrAlreadyResolved
	}

	scope := ph.Scope
	if scope == ScopeDefault {
		scope = r.DefaultScope
	}

	records := r.Registry.InScope(scope, doc, n.Parent)

	link := r.Link
	if link == nil {
		link = RelativeLink(".html")
	}
	linkFrom := func(rec *Record) string { return link(doc, rec) }

	r.logger().Debugw("resolving view", "document", doc, "line", n.LineNumber, "kind", ph.Kind, "scope", scope, "items", len(records))

	ph.resolved = true

	if n.Parent == nil {
		return nil
	}

	if len(records) == 0 {
		n.ReplaceWith()
		return nil
	}

	var content *rite.Node
	if ph.Kind == TableView {
		content = RenderTable(records, ph.Headers, ph.TitleColumn, linkFrom)
	} else {
		content = RenderList(records, ph.Numbered, linkFrom)
	}
	content.Indentation = n.Indentation
	content.LineNumber = n.LineNumber

	n.ReplaceWith(content)
	return nil
}
