package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hesusruiz/ritelist/items"
)

const docA = `---
title: Requirements <A>
---

<x-item>Item of A
    :Status: Open
`

const docB = `<x-item>Item of B
    :Status: Closed

<x-item-list scope="corpus">

<x-item-table headers="Status" scope="corpus">
`

func newCorpus(t *testing.T, cfg *Config) *Corpus {
	t.Helper()
	c, err := New(cfg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.NoError(t, c.AddSource("a.txt", []byte(docA)))
	require.NoError(t, c.AddSource("b.txt", []byte(docB)))
	return c
}

func TestBuildHTML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()

	c := newCorpus(t, cfg)
	require.NoError(t, c.Resolve())
	require.NoError(t, c.Render())
	require.NoError(t, c.Write())

	docs := c.Documents()
	require.Len(t, docs, 2)

	pageA, err := os.ReadFile(filepath.Join(cfg.OutDir, "a.html"))
	require.NoError(t, err)
	assert.Contains(t, string(pageA), "<title>Requirements &lt;A&gt;</title>")
	assert.Contains(t, string(pageA), "id='item-1'")
	assert.NotContains(t, string(pageA), contentPlaceholder)

	pageB, err := os.ReadFile(filepath.Join(cfg.OutDir, "b.html"))
	require.NoError(t, err)
	assert.Contains(t, string(pageB), "<title>b</title>")
	assert.Contains(t, string(pageB), "<a href='a.html#item-1'>Item of A</a>")
	assert.Contains(t, string(pageB), "<a href='#item-2'>Item of B</a>")
	assert.Contains(t, string(pageB), "<th>Status")
}

func TestBuildMarkdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = FormatMarkdown
	cfg.DryRun = true
	cfg.OutDir = t.TempDir()

	c := newCorpus(t, cfg)
	require.NoError(t, c.Render())
	require.NoError(t, c.Write())

	b := c.Documents()[1]
	assert.Contains(t, string(b.Output), "[Item of A](a.md#item-1)")
	assert.Contains(t, string(b.Output), "[Item of B](#item-2)")

	// Dry run does not write anything
	entries, err := os.ReadDir(cfg.OutDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sanitize = true
	cfg.DryRun = true

	c, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, c.AddSource("x.txt", []byte("<p>Hello <script>alert(1)</script>\n\n<x-item>One\n\n<x-item-list>\n")))
	require.NoError(t, c.Render())

	out := string(c.Documents()[0].Output)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, `href="#item-1"`)
}

func TestResolveOnce(t *testing.T) {
	c, err := New(nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Resolve(), ErrNoDocuments)
	assert.ErrorIs(t, c.Build(), ErrNoDocuments)

	c = newCorpus(t, nil)
	require.NoError(t, c.Resolve())
	assert.ErrorIs(t, c.Resolve(), items.ErrAlreadyResolved)
	assert.Error(t, c.AddSource("late.txt", []byte("<x-item>Late\n")))
}

func TestDefaultScopeFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultScope = "corpus"

	c, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, items.ScopeCorpus, c.Extension().DefaultScope)
}

func TestBuildFromFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "guide"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(docA), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide", "b.txt"), []byte(docB), 0644))

	cfg := DefaultConfig()
	cfg.OutDir = filepath.Join(dir, "out")

	// Names of documents are relative to the working directory
	t.Chdir(dir)

	c, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, c.Build("a.txt", filepath.Join("guide", "b.txt")))

	pageB, err := os.ReadFile(filepath.Join(cfg.OutDir, "guide", "b.html"))
	require.NoError(t, err)
	assert.Contains(t, string(pageB), "<a href='../a.html#item-1'>Item of A</a>")

	assert.Error(t, c.AddFile("missing.txt"))
}

func TestOutputStaysInOutDir(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{fileName: "a.txt", want: "a"},
		{fileName: "guide/b.txt", want: "guide/b"},
		{fileName: "../docs/a.txt", want: "docs/a"},
		{fileName: "guide/../../../a.txt", want: "a"},
		{fileName: "/abs/c.txt", want: "abs/c"},
	}
	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			assert.Equal(t, tt.want, documentName(tt.fileName))
		})
	}

	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()

	c, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, c.AddSource("../docs/a.txt", []byte(docA)))
	require.NoError(t, c.AddSource("b.txt", []byte(docB)))
	require.NoError(t, c.Render())
	require.NoError(t, c.Write())

	a := c.Documents()[0]
	assert.Equal(t, "docs/a", a.Name)
	assert.Equal(t, filepath.Join(cfg.OutDir, "docs", "a.html"), a.OutputFile(cfg.OutDir, ".html"))

	pageB, err := os.ReadFile(filepath.Join(cfg.OutDir, "b.html"))
	require.NoError(t, err)
	assert.Contains(t, string(pageB), "<a href='docs/a.html#item-1'>Item of A</a>")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		fileName := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(fileName, []byte(content), 0644))
		return fileName
	}

	t.Run("values and defaults", func(t *testing.T) {
		cfg, err := LoadConfig(write("ok.yaml", "files:\n  - a.txt\n  - b.txt\nformat: markdown\nsanitize: true\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "b.txt"}, cfg.Files)
		assert.Equal(t, FormatMarkdown, cfg.Format)
		assert.True(t, cfg.Sanitize)
		assert.Equal(t, ".", cfg.OutDir)
		assert.Equal(t, "document", cfg.DefaultScope)
		assert.Equal(t, "github", cfg.CodeStyle)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := LoadConfig(write("format.yaml", "format: pdf\n"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadConfig(write("field.yaml", "outdir: x\n"))
		assert.Error(t, err)
	})

	t.Run("bad scope", func(t *testing.T) {
		_, err := LoadConfig(write("scope.yaml", "defaultScope: galaxy\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "none.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
