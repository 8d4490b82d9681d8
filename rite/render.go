package rite

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/alecthomas/chroma/v2"
	hlhtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
	"oss.terrastruct.com/d2/d2graph"
	"oss.terrastruct.com/d2/d2layouts/d2dagrelayout"
	"oss.terrastruct.com/d2/d2lib"
	"oss.terrastruct.com/d2/d2renderers/d2svg"
	"oss.terrastruct.com/d2/d2themes/d2themescatalog"
	"oss.terrastruct.com/d2/lib/textmeasure"
)

// RenderHTML renders the whole document to an HTML fragment
func (p *Parser) RenderHTML() ([]byte, error) {

	// Prepare a buffer to receive the rendered bytes
	br := &ByteRenderer{}

	// Travel the parse tree rendering each node
	if err := p.doc.RenderHTML(br); err != nil {
		return nil, err
	}

	return br.CloneBytes(), nil
}

// RenderHTML renders recursively to HTML this node and its children (if any)
func (n *Node) RenderHTML(br *ByteRenderer) error {

	switch n.Type {

	case DocumentNode, FragmentNode:
		return n.renderChildren(br)

	case DiagramNode:
		return n.RenderDiagramNode(br)

	case VerbatimNode:
		return n.RenderVerbatimNode(br)

	case FieldListNode:
		br.Renderln(indent(n.Indentation), "<", n.tagString(), ">")
		if err := n.renderChildren(br); err != nil {
			return err
		}
		br.Renderln(indent(n.Indentation), "</", n.Name, ">")

	case FieldNode:
		br.Renderln(indent(n.Indentation), "<dt>", n.RestLine, "</dt>")
		br.Renderln(indent(n.Indentation), "<dd>")
		if err := n.renderChildren(br); err != nil {
			return err
		}
		br.Renderln(indent(n.Indentation), "</dd>")

	case DescNode:
		// A described object: the title line as signature and the children as content
		br.Render(indent(n.Indentation), "<div")
		n.addAttributes(br, Id, Class, Attrs)
		br.Renderln(">")
		br.Renderln(indent(n.Indentation), "<p class='desc-name'>", n.expandXrefs(n.RestLine), "</p>")
		br.Renderln(indent(n.Indentation), "<div class='desc-content'>")
		if err := n.renderChildren(br); err != nil {
			return err
		}
		br.Renderln(indent(n.Indentation), "</div>")
		br.Renderln(indent(n.Indentation), "</div>")

	case ReferenceNode:
		br.Render("<a")
		n.addAttributes(br, Id, Class, Href)
		br.Renderln(">", html.EscapeString(string(n.RestLine)), "</a>")

	case PendingNode:
		// Pending nodes are resolved before rendering, if one arrives here it is dropped
		if n.p != nil {
			n.p.log.Warnw("unresolved pending node", "file", n.p.fileName, "line", n.LineNumber, "name", n.Name)
		}

	default:
		return n.RenderNormalNode(br)

	}

	return nil
}

// renderChildren visits depth-first the children of the node.
// Consecutive list items without a list parent are wrapped in a 'ul'.
func (n *Node) renderChildren(br *ByteRenderer) error {
	inList := false
	for theNode := n.FirstChild; theNode != nil; theNode = theNode.NextSibling {

		isItem := theNode.Type == BlockNode && theNode.Name == "li" && n.Name != "ul" && n.Name != "ol"
		if isItem && !inList {
			br.Renderln(indent(theNode.Indentation), "<ul>")
		}
		if !isItem && inList {
			br.Renderln(indent(theNode.Indentation), "</ul>")
		}
		inList = isItem

		if err := theNode.RenderHTML(br); err != nil {
			return err
		}
	}
	if inList {
		br.Renderln("</ul>")
	}
	return nil
}

var reXRef = regexp.MustCompile(`<x-ref +"(.+?)" *>`)

// expandXrefs replaces the cross-references in the text by links to their targets.
// If the referenced node has a description, we will use it for the text of the link.
// Otherwise we will use the plain id of the referenced node.
func (n *Node) expandXrefs(rest []byte) []byte {
	if n.p == nil || !bytes.Contains(rest, []byte("<x-ref")) {
		return rest
	}

	for _, submatchs := range reXRef.FindAllSubmatch(rest, -1) {

		id := string(submatchs[1])

		referencedNode := n.p.Xref[id]
		if referencedNode == nil {
			n.p.log.Warnw("reference to unknown id", "file", n.p.fileName, "line", n.LineNumber, "id", id)
			continue
		}

		description := referencedNode.RestLine
		if len(description) == 0 {
			description = []byte("[" + id + "]")
		}

		// Directives may have given the node a different id from the one used to reference it
		target := id
		if len(referencedNode.Id) > 0 {
			target = string(referencedNode.Id)
		}

		replacement := []byte("<a href=\"#" + target + "\" class=\"xref\">" + string(description) + "</a>")
		rest = bytes.ReplaceAll(rest, submatchs[0], replacement)
	}

	return rest
}

func (n *Node) RenderNormalNode(br *ByteRenderer) error {

	// A slice with as many blanks as indented
	indentStr := indent(n.Indentation)

	// Get the rendered components of the tag
	startTag, endTag, rest := n.preRenderTheTag()

	// Render the start tag of this node
	br.Renderln(indentStr, startTag, n.expandXrefs(rest))

	if err := n.renderChildren(br); err != nil {
		return err
	}

	// Render the end tag of the node
	br.Renderln(indentStr, endTag)

	return nil

}

type AttrType int

const (
	Id AttrType = iota
	Class
	Src
	Href
	Attrs
)

func (n *Node) addAttributes(br *ByteRenderer, attrs ...AttrType) {

	for _, attr := range attrs {
		if attr == Id && len(n.Id) > 0 {
			br.Render(" id='", html.EscapeString(string(n.Id)), "'")
		}
		if attr == Class && len(n.Class) > 0 {
			br.Render(" class='", n.Class, "'")
		}
		if attr == Src && len(n.Src) > 0 {
			br.Render(" src='", n.Src, "'")
		}
		if attr == Href && len(n.Href) > 0 {
			br.Render(" href='", n.Href, "'")
		}
		if attr == Attrs {
			for _, a := range n.Attr {
				if a.Val == nil {
					br.Render(" ", a.Key)
				} else {
					br.Render(" ", a.Key, "='", a.Val, "'")
				}
			}
		}
	}

}

// preRenderTheTag returns for the current node:
// - startTag: the full rendered start tag, e.g. '<section id="the_section_name" class="theclass">'
// - endTag: the rendered end tag, e.g. '</section>'
// - rest: the unprocessed rest of the line where the tag was found, if any
func (n *Node) preRenderTheTag() (startTag []byte, endTag []byte, rest []byte) {
	startTagBuffer := &ByteRenderer{}
	endTagBuffer := &ByteRenderer{}

	switch n.Name {

	case "section":
		startTagBuffer.Render("<", n.Name)
		n.addAttributes(startTagBuffer, Id, Class, Src, Href, Attrs)
		startTagBuffer.Render(">")

		// If the line has additional text we use it to automatically generate a header
		if len(n.RestLine) > 0 {
			startTagBuffer.Render("<h2>", n.Outline, " ", n.RestLine, "</h2>")
		}

		endTagBuffer.Render("</", n.Name, ">")

	case "x-note":
		startTagBuffer.Render("<div class='xnotet'><aside class='xnotea'>")
		if len(n.RestLine) > 0 {
			startTagBuffer.Render("<p class='xnotep'>NOTE: ", n.RestLine, "</p>")
		}

		endTagBuffer.Render("</aside></div>")

	case "x-warning":
		startTagBuffer.Render("<div class='xwarnt'><aside class='xwarna'>")
		if len(n.RestLine) > 0 {
			startTagBuffer.Render("<p class='xnotep'>WARNING! ", n.RestLine, "</p>")
		}

		endTagBuffer.Render("</aside></div>")

	case "x-img":
		// Images as figures, with the rest of the line as alt text and caption
		startTagBuffer.Render("<figure")
		n.addAttributes(startTagBuffer, Id, Class, Href, Attrs)
		startTagBuffer.Render("><img")
		n.addAttributes(startTagBuffer, Src)
		startTagBuffer.Render(" alt='", html.EscapeString(string(n.RestLine)), "'>")

		endTagBuffer.Render("<figcaption>", n.RestLine, "</figcaption></figure>")

	default:
		// Any other block tag is rendered in a standard way
		startTagBuffer.Render("<", n.Name)
		n.addAttributes(startTagBuffer, Id, Class, Src, Href, Attrs)
		startTagBuffer.Render(">")

		rest = n.RestLine

		endTagBuffer.Render("</", n.Name, ">")

	}

	return startTagBuffer.CloneBytes(), endTagBuffer.CloneBytes(), rest

}

// codeStyle is the highlighting style from the front matter, or the default of the parser
func (n *Node) codeStyle() string {
	if n.p == nil {
		return "github"
	}
	return n.p.Config.String("rite.codeStyle", n.p.DefaultCodeStyle)
}

// RenderVerbatimNode renders 'pre' blocks escaped and 'x-code' blocks with syntax highlighting.
// The class of the 'x-code' tag selects the language.
func (n *Node) RenderVerbatimNode(br *ByteRenderer) error {

	contentLines := string(n.InnerText)

	if n.Name == "pre" {
		br.Render("<pre")
		n.addAttributes(br, Id, Class)
		br.Render(">", html.EscapeString(contentLines), "</pre>\n")
		return nil
	}

	if len(contentLines) == 0 {
		return nil
	}

	// Determine lexer.
	l := lexers.Get(string(bytes.TrimSpace(n.Class)))
	if l == nil {
		l = lexers.Analyse(contentLines)
	}
	if l == nil {
		l = lexers.Fallback
	}
	l = chroma.Coalesce(l)

	s := styles.Get(n.codeStyle())

	// Get the HTML formatter
	f := hlhtml.New(hlhtml.Standalone(false), hlhtml.PreventSurroundingPre(true))

	it, err := l.Tokenise(nil, contentLines)
	if err != nil {
		return fmt.Errorf("line %d: tokenising code: %w", n.LineNumber, err)
	}

	br.Renderln(`<div class="codecolor">`)
	br.Render("<pre class='nohighlight precolor'>")
	rb := &bytes.Buffer{}
	if err := f.Format(rb, s, it); err != nil {
		return fmt.Errorf("line %d: formatting code: %w", n.LineNumber, err)
	}
	br.Render(rb.Bytes())
	br.Renderln("</pre>")
	br.Renderln(`</div>`)

	return nil

}

// RenderDiagramNode renders D2 diagrams as inline SVG.
// Other diagram types are kept as their source text.
func (n *Node) RenderDiagramNode(br *ByteRenderer) error {

	diagType := string(bytes.ToLower(bytes.TrimSpace(n.Class)))

	if diagType != "d2" {
		if n.p != nil {
			n.p.log.Warnw("diagram type not supported, rendering source", "line", n.LineNumber, "type", diagType)
		}
		br.Render("<pre class='diagram'>", html.EscapeString(string(n.InnerText)), "</pre>\n")
		return nil
	}

	ruler, err := textmeasure.NewRuler()
	if err != nil {
		return fmt.Errorf("line %d: creating D2 ruler: %w", n.LineNumber, err)
	}

	defaultLayout := func(ctx context.Context, g *d2graph.Graph) error {
		return d2dagrelayout.Layout(ctx, g, nil)
	}
	diagram, _, err := d2lib.Compile(context.Background(), string(n.InnerText), &d2lib.CompileOptions{
		Layout: defaultLayout,
		Ruler:  ruler,
	})
	if err != nil {
		return fmt.Errorf("line %d: compiling D2 diagram: %w", n.LineNumber, err)
	}
	body, err := d2svg.Render(diagram, &d2svg.RenderOpts{
		Pad:     d2svg.DEFAULT_PADDING,
		ThemeID: d2themescatalog.NeutralDefault.ID,
	})
	if err != nil {
		return fmt.Errorf("line %d: rendering D2 diagram: %w", n.LineNumber, err)
	}

	br.Render(indent(n.Indentation), "<figure>")
	br.Render(body)
	if len(n.RestLine) > 0 {
		br.Render("<figcaption>", n.RestLine, "</figcaption>")
	}
	br.Renderln("</figure>")

	return nil
}
