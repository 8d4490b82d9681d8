package items

import (
	"golang.org/x/net/html"

	"github.com/hesusruiz/ritelist/rite"
)

// RenderList builds a list with a link to each item, in the order received
func RenderList(records []*Record, numbered bool, link func(*Record) string) *rite.Node {
	name := "ul"
	if numbered {
		name = "ol"
	}

	list := rite.NewBlock(name, "")
	list.AddClassString("item-list")

	for _, rec := range records {
		li := rite.NewBlock("li", "")
		li.AppendChild(rite.NewReference(link(rec), rec.Title))
		list.AppendChild(li)
	}

	return list
}

// RenderTable builds a table with a column per header and a row per item.
// The cells of the title column link to the items. The other cells show the attribute
// of the item with the name of the header, and are empty when the item does not have it.
func RenderTable(records []*Record, headers []string, titleColumn string, link func(*Record) string) *rite.Node {
	table := rite.NewBlock("table", "")
	table.AddClassString("item-table")

	thead := rite.NewBlock("thead", "")
	tr := rite.NewBlock("tr", "")
	for _, h := range headers {
		tr.AppendChild(rite.NewBlock("th", html.EscapeString(h)))
	}
	thead.AppendChild(tr)
	table.AppendChild(thead)

	tbody := rite.NewBlock("tbody", "")
	for _, rec := range records {
		row := rite.NewBlock("tr", "")
		for _, h := range headers {
			td := rite.NewBlock("td", "")

			if h == titleColumn {
				td.AppendChild(rite.NewReference(link(rec), rec.Title))
			} else if value, found := rec.Attributes.Get(h); found {
				td.AppendChild(value.DeepClone())
			}

			row.AppendChild(td)
		}
		tbody.AppendChild(row)
	}
	table.AppendChild(tbody)

	return table
}
