package rite

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFromBytes(t *testing.T) {
	type args struct {
		fileName string
		src      []byte
	}
	tests := []struct {
		name      string
		args      args
		wantTitle string
		wantHTML  []string
		wantErr   error
	}{
		{
			name: "Front matter and abstract",
			args: args{
				fileName: "text",
				src: []byte(`
---
title: Rite, a simple syntax for writing documents in HTML
editors:
   - name: "Jesus Ruiz"
     email: "hesusruiz@gmail.com"
     company: "JesusRuiz"

rite:
    codeStyle: dracula
---

<section #abstract>

    Proof of Democracy (PoD) is the consensus algorithm used in Alastria RedT and RedB.

				`),
			},
			wantTitle: "Rite, a simple syntax for writing documents in HTML",
			wantHTML: []string{
				"<section id='abstract'>",
				"<p>Proof of Democracy (PoD) is the consensus algorithm used in Alastria RedT and RedB.",
				"</section>",
			},
		},
		{
			name: "No front matter",
			args: args{
				fileName: "docs/intro.txt",
				src:      []byte("# Hello\n\nSome **bold** and `code`.\n"),
			},
			wantTitle: "docs/intro",
			wantHTML: []string{
				"<h1>Hello",
				"<p>Some <b>bold</b> and <code>code</code>.",
			},
		},
		{
			name: "No content",
			args: args{
				fileName: "text",
				src:      []byte(""),
			},
			wantErr: ErrorNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFromBytes(tt.args.fileName, tt.args.src)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, got.Title())

			fragmentHTML, err := got.RenderHTML()
			require.NoError(t, err)
			for _, want := range tt.wantHTML {
				assert.Contains(t, string(fragmentHTML), want)
			}
		})
	}
}

func TestIndentedStartIsAnError(t *testing.T) {
	_, err := ParseFromBytes("bad.txt", []byte("    indented\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start without indentation")
}

func TestFieldList(t *testing.T) {
	src := `<div>Item
    :Status: Draft
    :Notes:
        A paragraph nested in the field.
    :Owner: someone
    with a continuation line
`
	p, err := ParseFromBytes("fields.txt", []byte(src))
	require.NoError(t, err)

	div := p.Document().FirstChild
	require.NotNil(t, div)
	assert.Equal(t, "div", div.Name)

	fieldList := FirstFieldList(div)
	require.NotNil(t, fieldList)
	assert.Equal(t, FieldListNode, fieldList.Type)

	var got []string
	for f := fieldList.FirstChild; f != nil; f = f.NextSibling {
		got = append(got, string(f.RestLine)+"="+f.PlainText())
	}
	want := []string{
		"Status=Draft",
		"Notes=A paragraph nested in the field.",
		"Owner=someone with a continuation line",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	out, err := p.RenderHTML()
	require.NoError(t, err)
	assert.Contains(t, string(out), `<dl class="field-list">`)
	assert.Contains(t, string(out), "<dt>Status</dt>")
}

func TestFieldLinesStartANewParagraph(t *testing.T) {
	src := `<div>Item
    Some text.
    :Status: Draft
`
	p, err := ParseFromBytes("fields.txt", []byte(src))
	require.NoError(t, err)

	div := p.Document().FirstChild
	require.NotNil(t, div.FirstChild)
	assert.Equal(t, "p", div.FirstChild.Name)
	assert.Equal(t, "Some text.", string(div.FirstChild.RestLine))
	assert.Equal(t, FieldListNode, div.LastChild.Type)
}

func TestDirectives(t *testing.T) {
	src := `<x-box>One
    <x-box>Two

<x-drop>
    <x-box>Never

<box>Three
`
	var visited []string
	box := DirectiveFunc(func(p *Parser, n *Node) error {
		visited = append(visited, string(n.RestLine))
		return nil
	})
	drop := DirectiveFunc(func(p *Parser, n *Node) error {
		n.ReplaceWith()
		return nil
	})

	p, err := ParseFromBytes("dir.txt", []byte(src), WithDirective("box", box), WithDirective("x-drop", drop))
	require.NoError(t, err)

	assert.Equal(t, []string{"One", "Two", "Three"}, visited)
	for c := p.Document().FirstChild; c != nil; c = c.NextSibling {
		assert.NotEqual(t, "x-drop", c.Name)
	}
}

func TestDirectiveError(t *testing.T) {
	boom := errors.New("boom")
	fail := DirectiveFunc(func(p *Parser, n *Node) error { return boom })

	_, err := ParseFromBytes("dir.txt", []byte("<p>text\n\n<x-fail>\n"), WithDirective("fail", fail))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "line 3")
}

func TestPendingNodes(t *testing.T) {
	pending := DirectiveFunc(func(p *Parser, n *Node) error {
		p.NotePending(n)
		return nil
	})

	p, err := ParseFromBytes("pending.txt", []byte("<x-later>\n"), WithDirective("later", pending))
	require.NoError(t, err)
	require.Len(t, p.Pending(), 1)
	assert.Equal(t, PendingNode, p.Pending()[0].Type)

	// Unresolved pending nodes do not produce output
	out, err := p.RenderHTML()
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(out)))
}

func TestDuplicateId(t *testing.T) {
	p, err := ParseFromBytes("dup.txt", []byte("<div #a>One\n\n<div #a>Two\n"))
	require.NoError(t, err)
	require.Len(t, p.SyntaxErrors(), 1)
	assert.Equal(t, 3, p.SyntaxErrors()[0].Line)
	assert.Equal(t, "One", string(p.Xref["a"].RestLine))
}

func TestReadTagAttrKey(t *testing.T) {
	tests := []struct {
		in       string
		wantKey  string
		wantVal  []byte
		wantRest string
	}{
		{in: "numbered local", wantKey: "numbered", wantVal: nil, wantRest: "local"},
		{in: `headers="A, B" x`, wantKey: "headers", wantVal: []byte("A, B"), wantRest: "x"},
		{in: "k=", wantKey: "k", wantVal: []byte{}, wantRest: ""},
		{in: "k = v", wantKey: "k", wantVal: []byte("v"), wantRest: ""},
		{in: "scope='corpus'", wantKey: "scope", wantVal: []byte("corpus"), wantRest: ""},
		{in: "a/", wantKey: "a", wantVal: nil, wantRest: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			attr, rest := ReadTagAttrKey([]byte(tt.in))
			assert.Equal(t, tt.wantKey, attr.Key)
			assert.Equal(t, tt.wantVal, attr.Val)
			assert.Equal(t, tt.wantRest, string(rest))
		})
	}
}

func TestTreeOperations(t *testing.T) {
	a := NewBlock("p", "a")
	b := NewBlock("p", "b")
	root := NewFragment(a, b)

	x, y := NewBlock("p", "x"), NewBlock("p", "y")
	a.ReplaceWith(x, y)
	assert.Nil(t, a.Parent)
	assert.Equal(t, "x y b", root.PlainText())

	// Walk tolerates the removal of the visited node
	Walk(root, func(n *Node) bool {
		if string(n.RestLine) == "y" {
			n.ReplaceWith()
		}
		return true
	})
	assert.Equal(t, "x b", root.PlainText())

	assert.Panics(t, func() { a.ReplaceWith() })
}

func TestDeepClone(t *testing.T) {
	orig := NewBlock("div", "title")
	orig.Id = []byte("target")
	child := NewBlock("p", "<b>bold</b> &amp; more")
	child.Id = []byte("inner")
	orig.AppendChild(child)

	clone := orig.DeepClone()
	assert.Nil(t, clone.Id)
	require.NotNil(t, clone.FirstChild)
	assert.Nil(t, clone.FirstChild.Id)
	assert.Equal(t, "title bold & more", clone.PlainText())

	// The copy is independent from the original
	clone.FirstChild.RestLine[0] = 'X'
	assert.Equal(t, "<b>bold</b> &amp; more", string(child.RestLine))
	assert.Nil(t, clone.Parent)
}

func TestRenderHTML(t *testing.T) {

	t.Run("list items", func(t *testing.T) {
		p, err := ParseFromBytes("list.txt", []byte("- one\n- two\n"))
		require.NoError(t, err)
		out, err := p.RenderHTML()
		require.NoError(t, err)
		want := "<ul>\n<li>one\n</li>\n<li>two\n</li>\n</ul>\n"
		if diff := cmp.Diff(want, string(out)); diff != "" {
			t.Errorf("html mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("reference", func(t *testing.T) {
		br := &ByteRenderer{}
		require.NoError(t, NewFragment(NewReference("#a", "x < y")).RenderHTML(br))
		assert.Equal(t, "<a href='#a'>x &lt; y</a>\n", br.String())
	})

	t.Run("cross reference", func(t *testing.T) {
		src := "<section #intro>Introduction\n    See <x-ref \"intro\">.\n"
		p, err := ParseFromBytes("xref.txt", []byte(src))
		require.NoError(t, err)
		out, err := p.RenderHTML()
		require.NoError(t, err)
		assert.Contains(t, string(out), "<h2>1. Introduction</h2>")
		assert.Contains(t, string(out), `See <a href="#intro" class="xref">Introduction</a>.`)
	})

	t.Run("verbatim", func(t *testing.T) {
		p, err := ParseFromBytes("pre.txt", []byte("<pre>\n    a < b\n      indented\n"))
		require.NoError(t, err)
		out, err := p.RenderHTML()
		require.NoError(t, err)
		assert.Equal(t, "<pre>a &lt; b\n  indented\n</pre>\n", string(out))
	})

	t.Run("code", func(t *testing.T) {
		p, err := ParseFromBytes("code.txt", []byte("<x-code .go>\n    func main() {}\n"))
		require.NoError(t, err)
		out, err := p.RenderHTML()
		require.NoError(t, err)
		assert.Contains(t, string(out), `<div class="codecolor">`)
		assert.Contains(t, string(out), "main")
	})

	t.Run("unsupported diagram", func(t *testing.T) {
		p, err := ParseFromBytes("diag.txt", []byte("<x-diagram .plantuml>\n    A -> B\n"))
		require.NoError(t, err)
		out, err := p.RenderHTML()
		require.NoError(t, err)
		assert.Equal(t, "<pre class='diagram'>A -&gt; B\n</pre>\n", string(out))
	})
}
