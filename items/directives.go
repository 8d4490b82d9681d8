// Package items lets documents declare items with attributes, and aggregate
// them in lists and tables which are built once all the documents are parsed.
package items

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hesusruiz/ritelist/rite"
)

// Extension holds the state of a build shared by the parsers of all its documents
type Extension struct {
	Registry *Registry
	Defaults *Defaults

	// DefaultScope applies to views that do not specify one, in documents whose
	// front matter does not set 'items.scope'
	DefaultScope Scope

	log *zap.SugaredLogger
}

func NewExtension(logger *zap.SugaredLogger) *Extension {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Extension{
		Registry:     NewRegistry(),
		Defaults:     NewDefaults(),
		DefaultScope: ScopeDocument,
		log:          logger,
	}
}

// Setup registers the item directives in the parser.
// It can be passed as an option when creating the parser.
func (e *Extension) Setup(p *rite.Parser) {
	p.RegisterDirective("item", rite.DirectiveFunc(e.item))
	p.RegisterDirective("item_list", rite.DirectiveFunc(e.itemList))
	p.RegisterDirective("item_table", rite.DirectiveFunc(e.itemTable))
	p.RegisterDirective("item_default_fields", rite.DirectiveFunc(e.itemDefaultFields))
}

// NewResolver returns a resolver for the items of this build
func (e *Extension) NewResolver(link LinkFunc) *Resolver {
	return &Resolver{
		Registry:     e.Registry,
		DefaultScope: e.DefaultScope,
		Link:         link,
		Logger:       e.log,
	}
}

// item converts the block into a described object and registers it
func (e *Extension) item(p *rite.Parser, n *rite.Node) error {
	doc := p.DocName()

	attrs := ExtractAttributes(n)

	// Attributes declared by the item win over the defaults
	defaults := e.Defaults.Get(doc)
	var visible []string
	for _, name := range defaults.Attributes.Keys() {
		if attrs.Has(name) {
			continue
		}
		value, _ := defaults.Attributes.Get(name)
		attrs.Set(name, value.DeepClone())
		if !defaults.Hidden {
			visible = append(visible, name)
		}
	}

	// Visible defaults are shown in the content of the item, like the declared ones
	if len(visible) > 0 {
		fieldList := rite.FirstFieldList(n)
		if fieldList == nil {
			fieldList = rite.NewFieldList()
			fieldList.Indentation = n.Indentation
			n.AppendChild(fieldList)
		}
		for _, name := range visible {
			value, _ := attrs.Get(name)
			fieldList.AppendChild(rite.NewField(name, value.DeepClone()))
		}
	}

	rec := e.Registry.Register(&Record{
		Title:      strings.TrimSpace(rite.NewBlock("p", string(n.RestLine)).PlainText()),
		Document:   doc,
		Attributes: attrs,
		Node:       n,
	})

	// An item without title is still registered, showing its anchor
	if len(rec.Title) == 0 {
		p.AddSyntaxError(&rite.SyntaxError{
			Filename: p.FileName(), Line: n.LineNumber, Column: n.Indentation + 1,
			Msg: "item without title",
		})
		rec.Title = rec.Anchor
		n.RestLine = []byte(rec.Anchor)
	}

	// An id given by the author keeps working in references, resolving to the anchor
	n.Type = rite.DescNode
	n.AddClassString("item")
	n.Id = []byte(rec.Anchor)
	n.Data = rec
	p.RegisterXref(rec.Anchor, n)

	e.log.Debugw("item registered", "document", doc, "line", n.LineNumber, "anchor", rec.Anchor, "title", rec.Title)

	return nil
}

func (e *Extension) itemList(p *rite.Parser, n *rite.Node) error {
	return e.view(p, n, ListView)
}

func (e *Extension) itemTable(p *rite.Parser, n *rite.Node) error {
	return e.view(p, n, TableView)
}

// view leaves a placeholder in the tree, to be resolved when all items are known
func (e *Extension) view(p *rite.Parser, n *rite.Node, kind Kind) error {
	ph, err := newPlaceholder(kind, p.DocName(), n)
	if err != nil {
		p.AddSyntaxError(&rite.SyntaxError{
			Filename: p.FileName(), Line: n.LineNumber, Column: n.Indentation + 1,
			Msg: err.Error(),
		})
	}

	// The front matter of the document may change the default scope of its views
	if ph.Scope == ScopeDefault {
		docScope, err := ParseScope(p.Config.String("items.scope", ""))
		if err != nil {
			p.AddSyntaxError(&rite.SyntaxError{
				Filename: p.FileName(), Line: 1, Column: 1,
				Msg: "front matter: " + err.Error(),
			})
		}
		ph.Scope = docScope
	}

	n.Data = ph
	p.NotePending(n)

	return nil
}

// itemDefaultFields replaces the defaults of the document and removes the declaration from the tree
func (e *Extension) itemDefaultFields(p *rite.Parser, n *rite.Node) error {
	hidden := flagValue(n, "hidden")
	attrs := ExtractAttributes(n)

	e.Defaults.Set(p.DocName(), hidden, attrs)
	e.log.Debugw("default fields", "document", p.DocName(), "line", n.LineNumber, "hidden", hidden, "fields", attrs.Keys())

	n.ReplaceWith()
	return nil
}
