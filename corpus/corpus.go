// Package corpus builds a set of documents together, so the item views of
// any document can aggregate the items declared in all of them.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hesusruiz/ritelist/items"
	"github.com/hesusruiz/ritelist/rite"
)

var ErrNoDocuments = errors.New("no documents to build")

// Document is one of the documents of the build
type Document struct {
	// Name identifies the document in the build: its file name without extension
	Name     string
	FileName string
	Parser   *rite.Parser

	// Output is the final content, available after Render
	Output []byte
}

// documentName identifies a document by its file name without extension.
// Parent and root references are dropped, so the output of the document stays inside the output directory.
func documentName(fileName string) string {
	name := path.Clean("/" + rite.DocNameFromFile(fileName))
	return strings.TrimPrefix(name, "/")
}

// OutputFile is the path of the file receiving the output of the document
func (d *Document) OutputFile(outDir string, ext string) string {
	return filepath.Join(outDir, filepath.FromSlash(d.Name)+ext)
}

// Corpus is a build. Documents are parsed as they are added, and the
// item views are resolved only when all of them are known.
type Corpus struct {
	ID string

	cfg      *Config
	ext      *items.Extension
	docs     []*Document
	resolved bool
	log      *zap.SugaredLogger
}

// New creates a build with the configuration, which is validated
func New(cfg *Config, logger *zap.SugaredLogger) (*Corpus, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	id := uuid.New().String()
	logger = logger.With("build", id)

	ext := items.NewExtension(logger)
	ext.DefaultScope = cfg.scope()

	return &Corpus{
		ID:  id,
		cfg: cfg,
		ext: ext,
		log: logger,
	}, nil
}

// Extension gives access to the items of the build
func (c *Corpus) Extension() *items.Extension {
	return c.ext
}

func (c *Corpus) Documents() []*Document {
	return c.docs
}

// AddFile reads and parses a document of the build
func (c *Corpus) AddFile(fileName string) error {
	src, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}
	return c.AddSource(fileName, src)
}

// AddSource parses a document from memory. The file name identifies the document.
func (c *Corpus) AddSource(fileName string, src []byte) error {
	if c.resolved {
		return fmt.Errorf("adding %s: the items of the build are already resolved", fileName)
	}

	p, err := rite.ParseFromBytes(fileName, src,
		rite.WithDocName(documentName(fileName)),
		rite.WithLogger(c.log),
		rite.WithCodeStyle(c.cfg.CodeStyle),
		c.ext.Setup,
	)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", fileName, err)
	}

	for _, se := range p.SyntaxErrors() {
		c.log.Warnw("syntax error", "error", se)
	}

	c.docs = append(c.docs, &Document{
		Name:     p.DocName(),
		FileName: fileName,
		Parser:   p,
	})

	c.log.Debugw("document parsed", "file", fileName, "document", p.DocName(), "pending", len(p.Pending()))

	return nil
}

// Resolve replaces the item views of all the documents by their content.
// It must be called once, after all the documents were added.
func (c *Corpus) Resolve() error {
	if len(c.docs) == 0 {
		return ErrNoDocuments
	}
	if c.resolved {
		return items.ErrAlreadyResolved
	}
	c.resolved = true

	resolver := c.ext.NewResolver(items.RelativeLink(c.cfg.extension()))

	for _, d := range c.docs {
		if err := resolver.ResolveDocument(d.Name, d.Parser.Document()); err != nil {
			return fmt.Errorf("resolving %s: %w", d.FileName, err)
		}
	}

	c.log.Infow("items resolved", "documents", len(c.docs), "items", c.ext.Registry.Len())

	return nil
}

// Render produces the output of every document in the configured format
func (c *Corpus) Render() error {
	if !c.resolved {
		if err := c.Resolve(); err != nil {
			return err
		}
	}

	tmpl, err := c.loadTemplate()
	if err != nil {
		return err
	}

	for _, d := range c.docs {
		fragment, err := d.Parser.RenderHTML()
		if err != nil {
			return fmt.Errorf("rendering %s: %w", d.FileName, err)
		}

		if c.cfg.Sanitize {
			fragment = sanitize(fragment)
		}

		switch c.cfg.Format {
		case FormatMarkdown:
			d.Output, err = toMarkdown(fragment)
			if err != nil {
				return fmt.Errorf("rendering %s: %w", d.FileName, err)
			}
		case FormatHTML:
			d.Output = buildPage(tmpl, d.Parser.Title(), fragment)
		default:
			return fmt.Errorf("%w: %q", ErrUnknownFormat, c.cfg.Format)
		}
	}

	return nil
}

// Write saves the output of every document, unless in dry run mode
func (c *Corpus) Write() error {
	for _, d := range c.docs {
		outFile := d.OutputFile(c.cfg.OutDir, c.cfg.extension())

		if c.cfg.DryRun {
			c.log.Infow("dry run, not writing", "file", outFile)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(outFile, d.Output, 0664); err != nil {
			return err
		}
		c.log.Infow("written", "file", outFile, "bytes", len(d.Output))
	}

	return nil
}

// Build processes the files: parse all of them, resolve, render and write
func (c *Corpus) Build(files ...string) error {
	if len(files) == 0 {
		return ErrNoDocuments
	}

	for _, f := range files {
		if err := c.AddFile(f); err != nil {
			return err
		}
	}

	if err := c.Resolve(); err != nil {
		return err
	}

	if err := c.Render(); err != nil {
		return err
	}

	return c.Write()
}
