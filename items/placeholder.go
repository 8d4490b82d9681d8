package items

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hesusruiz/ritelist/rite"
)

// Scope selects the items a view aggregates
type Scope int

const (
	// ScopeDefault means the view did not choose, and the scope of the resolver applies
	ScopeDefault Scope = iota
	ScopeLocal
	ScopeDocument
	ScopeCorpus
)

func (s Scope) String() string {
	switch s {
	case ScopeDefault:
		return "default"
	case ScopeLocal:
		return "local"
	case ScopeDocument:
		return "document"
	case ScopeCorpus:
		return "corpus"
	}
	return "Scope(" + strconv.Itoa(int(s)) + ")"
}

// ParseScope accepts the names returned by String. The empty string is ScopeDefault.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ScopeDefault, nil
	case "local":
		return ScopeLocal, nil
	case "document":
		return ScopeDocument, nil
	case "corpus":
		return ScopeCorpus, nil
	}
	return ScopeDefault, fmt.Errorf("unknown scope %q", s)
}

// Kind is the shape of a view
type Kind int

const (
	ListView Kind = iota
	TableView
)

func (k Kind) String() string {
	if k == TableView {
		return "table"
	}
	return "list"
}

// DefaultTitleColumn is the header of the table column with the links to the items
const DefaultTitleColumn = "Title"

// Placeholder is a list or table view waiting for all the items to be known
type Placeholder struct {
	Kind     Kind
	Scope    Scope
	Document string

	// List views
	Numbered bool

	// Table views. TitleColumn is always one of the Headers.
	Headers     []string
	TitleColumn string

	resolved bool
}

// Resolved reports whether the placeholder was already replaced by its content
func (ph *Placeholder) Resolved() bool {
	return ph.resolved
}

// newPlaceholder reads the options of a view from the attributes of its tag.
// Problems with the options are returned together with a usable placeholder.
func newPlaceholder(kind Kind, doc string, n *rite.Node) (*Placeholder, error) {
	ph := &Placeholder{Kind: kind, Document: doc}

	var err error

	if val, found := n.AttrVal("scope"); found {
		ph.Scope, err = ParseScope(string(val))
	}
	if flagValue(n, "local") {
		ph.Scope = ScopeLocal
	}

	if kind == ListView {
		ph.Numbered = flagValue(n, "numbered")
		return ph, err
	}

	var headers []string
	if val, found := n.AttrVal("headers"); found {
		for _, h := range strings.Split(string(val), ",") {
			if h = strings.TrimSpace(h); len(h) > 0 {
				headers = append(headers, h)
			}
		}
	}

	ph.TitleColumn = DefaultTitleColumn
	if val, found := n.AttrVal("desc_name"); found && len(strings.TrimSpace(string(val))) > 0 {
		ph.TitleColumn = strings.TrimSpace(string(val))
	}

	// The title column is the first one unless the author placed it somewhere else
	hasTitle := false
	for _, h := range headers {
		if h == ph.TitleColumn {
			hasTitle = true
			break
		}
	}
	if !hasTitle {
		headers = append([]string{ph.TitleColumn}, headers...)
	}
	ph.Headers = headers

	return ph, err
}

// flagValue is true for a bare flag, and for a value accepted as true by strconv.ParseBool
func flagValue(n *rite.Node, key string) bool {
	val, found := n.AttrVal(key)
	if !found {
		return false
	}
	if len(val) == 0 {
		return true
	}
	b, err := strconv.ParseBool(string(val))
	return err == nil && b
}
