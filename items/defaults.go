package items

import "sync"

// DefaultFields are the attributes given to every item declared after them in a document.
// Hidden defaults are used when looking up attributes, but are not shown in the content of the item.
type DefaultFields struct {
	Hidden     bool
	Attributes *Attributes
}

// Defaults holds the active DefaultFields of each document of a build
type Defaults struct {
	mu    sync.Mutex
	byDoc map[string]DefaultFields
}

func NewDefaults() *Defaults {
	return &Defaults{byDoc: make(map[string]DefaultFields)}
}

// Set replaces the defaults of the document. Previous declarations are discarded, not merged.
func (d *Defaults) Set(doc string, hidden bool, attrs *Attributes) {
	if attrs == nil {
		attrs = NewAttributes()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.byDoc[doc] = DefaultFields{Hidden: hidden, Attributes: attrs}
}

// Get returns the latest defaults set for the document, or empty visible defaults
func (d *Defaults) Get(doc string) DefaultFields {
	d.mu.Lock()
	defer d.mu.Unlock()

	df, found := d.byDoc[doc]
	if !found {
		df = DefaultFields{Attributes: NewAttributes()}
		d.byDoc[doc] = df
	}
	return df
}
