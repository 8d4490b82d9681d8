package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hesusruiz/ritelist/items"
)

// DefaultConfigFile is read when it exists and no other config file is specified
const DefaultConfigFile = "ritelist.yaml"

var ErrUnknownFormat = errors.New("unknown output format")

const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Config is the configuration of a build
type Config struct {
	// Files are the documents of the build, in processing order
	Files []string `yaml:"files"`

	// OutDir receives the output, with the same relative paths as the inputs
	OutDir string `yaml:"outDir"`

	// Format of the output: html or markdown
	Format string `yaml:"format"`

	// DefaultScope of the item views: local, document or corpus
	DefaultScope string `yaml:"defaultScope"`

	// Sanitize the rendered HTML before writing it
	Sanitize bool `yaml:"sanitize"`

	// Template is the file with the HTML page wrapping each document.
	// Empty uses the built-in one.
	Template string `yaml:"template"`

	// CodeStyle is the highlighting style for documents which do not set 'rite.codeStyle'
	CodeStyle string `yaml:"codeStyle"`

	// DryRun processes the documents without writing anything
	DryRun bool `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		OutDir:       ".",
		Format:       FormatHTML,
		DefaultScope: items.ScopeDocument.String(),
		CodeStyle:    "github",
	}
}

// LoadConfig reads a config file. Missing entries keep their default values.
func LoadConfig(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", fileName, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}

	return cfg, nil
}

// Validate checks the values which can be wrong
func (c *Config) Validate() error {
	switch c.Format {
	case FormatHTML, FormatMarkdown:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, c.Format)
	}

	scope, err := items.ParseScope(c.DefaultScope)
	if err != nil {
		return fmt.Errorf("defaultScope: %w", err)
	}
	if scope == items.ScopeDefault {
		return fmt.Errorf("defaultScope: must be local, document or corpus")
	}

	return nil
}

// scope is the default scope of the item views, after validation
func (c *Config) scope() items.Scope {
	scope, err := items.ParseScope(c.DefaultScope)
	if err != nil || scope == items.ScopeDefault {
		return items.ScopeDocument
	}
	return scope
}

// extension of the output files
func (c *Config) extension() string {
	if c.Format == FormatMarkdown {
		return ".md"
	}
	return ".html"
}
