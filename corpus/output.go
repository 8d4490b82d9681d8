package corpus

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hesusruiz/ritelist/sliceedit"
)

// The places in the page template replaced by the document
const (
	contentPlaceholder = "HERE_GOES_THE_CONTENT"
	titlePlaceholder   = "{#title}"
)

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{#title}</title>
</head>
<body>
HERE_GOES_THE_CONTENT
</body>
</html>
`

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// sanitizer allows user generated content plus the attributes the renderer uses for items
func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Globally()
		p.AllowAttrs("id").Globally()
		policy = p
	})
	return policy
}

func sanitize(fragment []byte) []byte {
	return sanitizer().SanitizeBytes(fragment)
}

// loadTemplate returns the page template of the build
func (c *Corpus) loadTemplate() ([]byte, error) {
	if len(c.cfg.Template) == 0 {
		return []byte(defaultTemplate), nil
	}
	tmpl, err := os.ReadFile(c.cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	return tmpl, nil
}

// buildPage puts the rendered document inside the template
func buildPage(tmpl []byte, title string, fragment []byte) []byte {
	b := sliceedit.NewBuffer(tmpl)
	b.ReplaceAllString(contentPlaceholder, string(fragment))
	b.ReplaceAllString(titlePlaceholder, html.EscapeString(title))
	return b.Bytes()
}

// toMarkdown converts the rendered document to Markdown
func toMarkdown(fragment []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered HTML: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertNode(doc)
	if err != nil {
		return nil, fmt.Errorf("converting to markdown: %w", err)
	}

	return markdown, nil
}
