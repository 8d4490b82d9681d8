package items

import (
	"strconv"
	"sync"

	"github.com/hesusruiz/ritelist/rite"
)

// Record is an item declared in a document
type Record struct {
	Title string

	// Document is the name of the document where the item was declared
	Document string

	// Attributes include the defaults of the document at the time of the declaration
	Attributes *Attributes

	// Anchor is the target of the links to the item, unique in the build
	Anchor string

	// Node is the item in the tree of its document
	Node *rite.Node
}

// Registry keeps the items of a build, by document in declaration order
type Registry struct {
	mu      sync.RWMutex
	counter int
	docs    []string
	byDoc   map[string][]*Record
}

func NewRegistry() *Registry {
	return &Registry{byDoc: make(map[string][]*Record)}
}

// Register appends the record to the items of its document, assigning its anchor if it has none
func (r *Registry) Register(rec *Record) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counter++
	if len(rec.Anchor) == 0 {
		rec.Anchor = "item-" + strconv.Itoa(r.counter)
	}
	if rec.Attributes == nil {
		rec.Attributes = NewAttributes()
	}

	if _, found := r.byDoc[rec.Document]; !found {
		r.docs = append(r.docs, rec.Document)
	}
	r.byDoc[rec.Document] = append(r.byDoc[rec.Document], rec)

	return rec
}

// Documents returns the documents with items, in the order their first item was registered
func (r *Registry) Documents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.docs...)
}

// Len is the number of items in the build
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, recs := range r.byDoc {
		total += len(recs)
	}
	return total
}

// InDocument returns the items declared in the document
func (r *Registry) InDocument(doc string) []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Record(nil), r.byDoc[doc]...)
}

// InCorpus returns the items of all documents
func (r *Registry) InCorpus() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*Record
	for _, doc := range r.docs {
		all = append(all, r.byDoc[doc]...)
	}
	return all
}

// InContainer returns the items nested in the subtree of the container, in document order.
// The container itself is not included.
func InContainer(container *rite.Node) []*Record {
	var found []*Record
	rite.Walk(container, func(n *rite.Node) bool {
		if n == container || n.Type != rite.DescNode {
			return true
		}
		if rec, ok := n.Data.(*Record); ok {
			found = append(found, rec)
		}
		return true
	})
	return found
}

// InScope returns the items visible from a view in the document with the given scope.
// Local scope walks the container, the others use the index.
func (r *Registry) InScope(scope Scope, doc string, container *rite.Node) []*Record {
	switch scope {
	case ScopeLocal:
		if container == nil {
			return nil
		}
		return InContainer(container)
	case ScopeCorpus:
		return r.InCorpus()
	default:
		return r.InDocument(doc)
	}
}
