package items

import (
	"strings"

	"github.com/hesusruiz/ritelist/rite"
)

// Attributes is an ordered mapping from attribute name to its value.
// Values are rich content: a fragment node with a copy of the body of the field.
type Attributes struct {
	names  []string
	values map[string]*rite.Node
}

func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]*rite.Node)}
}

// Set adds or replaces an attribute. A new attribute goes at the end of the order.
func (a *Attributes) Set(name string, value *rite.Node) {
	if _, found := a.values[name]; !found {
		a.names = append(a.names, name)
	}
	a.values[name] = value
}

func (a *Attributes) Get(name string) (*rite.Node, bool) {
	if a == nil {
		return nil, false
	}
	v, found := a.values[name]
	return v, found
}

func (a *Attributes) Has(name string) bool {
	_, found := a.Get(name)
	return found
}

// Keys returns the names of the attributes in declaration order
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.names...)
}

func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.names)
}

// Clone returns an independent copy, with the values deep cloned
func (a *Attributes) Clone() *Attributes {
	c := NewAttributes()
	for _, name := range a.Keys() {
		c.Set(name, a.values[name].DeepClone())
	}
	return c
}

// Text returns the value of the attribute as plain text, or the empty string if not present
func (a *Attributes) Text(name string) string {
	v, found := a.Get(name)
	if !found {
		return ""
	}
	return v.PlainText()
}

// ExtractAttributes returns the attributes declared in the first field list
// which is an immediate child of the block.
// A block without field list returns an empty mapping.
func ExtractAttributes(block *rite.Node) *Attributes {
	attrs := NewAttributes()

	fieldList := rite.FirstFieldList(block)
	if fieldList == nil {
		return attrs
	}

	for field := fieldList.FirstChild; field != nil; field = field.NextSibling {
		if field.Type != rite.FieldNode {
			continue
		}
		name := strings.TrimSpace(string(field.RestLine))
		if len(name) == 0 {
			continue
		}

		value := rite.NewFragment()
		for c := field.FirstChild; c != nil; c = c.NextSibling {
			value.AppendChild(c.DeepClone())
		}
		attrs.Set(name, value)
	}

	return attrs
}
