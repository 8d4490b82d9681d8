package rite

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hesusruiz/vcutils/yaml"
	"go.uber.org/zap"
)

const blank byte = ' '
const commentPrefix = "//"

type SyntaxError struct {
	Filename string
	Line     int
	Column   int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Msg)
}

type Parser struct {
	// The source of the document for scanning
	s *bufio.Scanner

	// doc is the document root element.
	doc *Node

	// the file of the name being processed
	fileName string

	// docName identifies the document inside a build
	docName string

	// To support one-level backtracking, which is enough for this parser
	bufferedPara *Text
	bufferedLine *Text

	// currentLine is the current source line being processed
	currentLine []byte

	// currentLineCounter is the number of lines processed
	currentLineCounter int

	// currentIndentation is the current currentIndentation
	currentIndentation int

	// This is true when we have read the whole file
	atEOF bool

	// Contains the last error encountered. When this is set, parsing stops
	lastError error

	syntaxErrors []*SyntaxError

	Xref map[string]*Node

	// Directives run over the tree once it is parsed
	directives map[string]Directive

	// Nodes waiting for a later stage of the build to be resolved
	pending []*Node

	// Used when the front matter does not specify 'rite.codeStyle'
	DefaultCodeStyle string

	Config *yaml.YAML

	log *zap.SugaredLogger
}

// An Option customizes a Parser before anything is parsed
type Option func(p *Parser)

// WithDocName sets the identifier of the document inside a build
func WithDocName(docName string) Option {
	return func(p *Parser) { p.docName = docName }
}

// WithLogger sets the logger of the parser
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Parser) { p.SetLogger(logger) }
}

// WithCodeStyle sets the style for code highlighting when the document does not specify one
func WithCodeStyle(style string) Option {
	return func(p *Parser) { p.DefaultCodeStyle = style }
}

func (p *Parser) AddSyntaxError(se *SyntaxError) {
	p.syntaxErrors = append(p.syntaxErrors, se)
}

func (p *Parser) SyntaxErrors() []*SyntaxError {
	return p.syntaxErrors
}

// NewParser parses a document reading lines from linescanner.
// filename is for logging/tracing purposes.
// The parser has an initial node representing the document (or sub-document) being parsed.
func NewParser(fileName string, linescanner *bufio.Scanner, opts ...Option) *Parser {

	p := &Parser{
		fileName: fileName,
		docName:  DocNameFromFile(fileName),
		s:        linescanner,
		doc: &Node{
			Type: DocumentNode,
		},
		DefaultCodeStyle: "github",
		log:              zap.NewNop().Sugar(),
	}

	// Create the maps
	p.Xref = make(map[string]*Node)
	p.directives = make(map[string]Directive)

	// All nodes have a reference to its parser to access some info
	p.doc.p = p

	// Initialise the config just in case we do not find a suitable one
	p.Config, _ = yaml.ParseYaml("")

	for _, opt := range opts {
		opt(p)
	}

	return p

}

// DocNameFromFile derives the document identifier from a file name, by dropping the extension
func DocNameFromFile(fileName string) string {
	name := filepath.ToSlash(filepath.Clean(fileName))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (p *Parser) SetLogger(logger *zap.SugaredLogger) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	p.log = logger
}

func (p *Parser) Logger() *zap.SugaredLogger {
	return p.log
}

// Document returns the root node of the parsed document
func (p *Parser) Document() *Node {
	return p.doc
}

// DocName returns the identifier of the document inside a build
func (p *Parser) DocName() string {
	return p.docName
}

func (p *Parser) FileName() string {
	return p.fileName
}

// Title is the title of the document from the front matter, or the document name
func (p *Parser) Title() string {
	return p.Config.String("title", p.docName)
}

var ErrorNoContent = errors.New("no content")

// ParseFromBytes uses a byte array as the source and preprocesses it in memory
// filename is for logging/tracing purposes.
func ParseFromBytes(fileName string, src []byte, opts ...Option) (*Parser, error) {

	if len(src) == 0 {
		return nil, ErrorNoContent
	}

	// Create a scanner to process the file one line at a time, creating a Document object in memory
	buf := bytes.NewReader(src)
	linescanner := bufio.NewScanner(buf)

	// Create a new parser for the file
	p := NewParser(fileName, linescanner, opts...)

	// Process the YAML header if there is one. It should be at the beginning of the file
	// An error here does not stop parsing.
	if err := p.PreprocessYAMLHeader(); err != nil {
		p.log.Debugw("no front matter", "file", fileName, "reason", err)
	}

	// Perform the actual parsing
	if err := p.Parse(); err != nil {
		return nil, err
	}

	return p, nil

}

// ParseFromFile reads a file and preprocesses it in memory
func ParseFromFile(fileName string, opts ...Option) (*Parser, error) {

	src, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	p, err := ParseFromBytes(fileName, src, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fileName, err)
	}

	return p, nil

}

// ParseIncludeFile reads an included file and preprocesses it in memory
// The nodes of the included file become part of the including document.
func (p *Parser) ParseIncludeFile(fileName string) (*Parser, error) {
	p.log.Debugw("processing include file", "file", fileName)

	// Open the file to process each line one at a time
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("opening include file %s: %w", fileName, err)
	}
	defer file.Close()

	// Process the file one line at a time, creating a Document object in memory
	linescanner := bufio.NewScanner(file)

	// Create a new parser for the file, in the same document
	subParser := NewParser(fileName, linescanner, WithDocName(p.docName), WithLogger(p.log))

	// Set the configuration from the parent parser
	subParser.Config = p.Config
	subParser.DefaultCodeStyle = p.DefaultCodeStyle

	// Pass the table for references from the parent parser, so the subparser can update it
	subParser.Xref = p.Xref

	// Perform only the parsing, directives run once over the whole including document
	if err := subParser.parseTree(); err != nil {
		return nil, fmt.Errorf("parsing include file %s: %w", fileName, err)
	}

	p.syntaxErrors = append(p.syntaxErrors, subParser.syntaxErrors...)

	return subParser, nil

}

// Parse builds the tree of the document and then runs the directives over it
func (p *Parser) Parse() error {

	if err := p.parseTree(); err != nil {
		return err
	}

	return p.runDirectives(p.doc)

}

// parseTree parses the document and generates the AST.
// Unrecoverable errors abort parsing with a panic carrying p.lastError, which is returned here.
func (p *Parser) parseTree() (err error) {

	defer func() {
		if r := recover(); r != nil {
			if p.lastError == nil {
				panic(r)
			}
			err = p.lastError
		}
	}()

	p.ParseBlock(p.doc)

	return p.lastError

}

func (p *Parser) currentLineNum() int {
	return p.currentLineCounter
}

// SkipBlankLines skips blank or comment lines until EOF.
// Returns true if a non-blank line was found, false on EOF.
func (p *Parser) SkipBlankLines() bool {

	for !p.atEOF {

		line := p.ReadLine()

		// Skip blank or comment lines, and closing tags which are implicit with indentation
		if line == nil || bytes.HasPrefix(line.Content, []byte(commentPrefix)) || bytes.HasPrefix(line.Content, []byte("</")) {
			continue
		}

		// If the line is not empty or a comment, we are done
		p.UnreadLine(line)
		return true
	}

	// All lines of the file were processed without finding a non-blank line
	return false
}

// ReadLine returns one line from the underlying bufio.Scanner.
// It supports one-level backtracking, with the UnreadLine method.
func (p *Parser) ReadLine() *Text {

	// Parsing is stopped when an error is encountered
	if p.lastError != nil {
		return nil
	}

	// Sanity check
	if p.bufferedLine != nil && p.bufferedPara != nil {
		// This is a fatal error which can not be recovered
		p.lastError = fmt.Errorf("reading a line when both buffered line and paragraph exist")
		panic(p.lastError)
	}

	// If there is a line alredy buffered, return it
	if p.bufferedLine != nil {
		line := p.bufferedLine
		p.bufferedLine = nil
		return line
	}

	// Retrieve a line and return it
	if p.s.Scan() {

		// Get a rawLine from the file
		// We do a Clone because the result will be modified later during preprocessing
		rawLine := bytes.Clone(p.s.Bytes())

		p.currentLineCounter++

		// Strip blanks at the beginning of the line and calculate indentation
		// We do not support other whitespace like tabs
		p.currentIndentation, p.currentLine = TrimLeft(rawLine, blank)
		p.currentLine = bytes.TrimSpace(p.currentLine)
		if len(p.currentLine) == 0 {
			return nil
		}

		// Build the struct to return to caller
		line := &Text{}
		line.LineNumber = p.currentLineNum()
		line.Content = p.currentLine
		line.Indentation = p.currentIndentation

		return line

	}

	// Check if there were other errors apart from EOF
	if err := p.s.Err(); err != nil {
		// This is a fatal error which can not be recovered
		p.lastError = err
		panic(p.lastError)
	}

	// We have processed all lines of the file
	p.atEOF = true
	return nil
}

// UnreadLine allows one-level backtracking by buffering one line that was already returned from bufio.Scanner
func (p *Parser) UnreadLine(line *Text) {
	// Sanity check
	if p.bufferedLine != nil {
		// This is a fatal error which can not be recovered
		p.lastError = fmt.Errorf("unreadLine: too many calls in line: %d", p.currentLineNum())
		panic(p.lastError)
	}
	p.bufferedLine = line
}

// UnreadParagraph allows one-level backtracking by buffering one paragraph that was already returned from bufio.Scanner
func (p *Parser) UnreadParagraph(para *Text) {
	// Sanity check
	if p.bufferedPara != nil {
		// This is a fatal error which can not be recovered
		p.lastError = fmt.Errorf("unreadParagraph: too many calls in line: %d", p.currentLineNum())
		panic(p.lastError)
	}
	p.bufferedPara = para
}

// ReadAnyParagraph reads all contiguous lines with the same indentation, if their indentation
// equal or greater than min_indentation. It skips all blank lines at the beginning.
// A line starting with a list marker or a block tag starts a new paragraph.
func (p *Parser) ReadAnyParagraph(min_indentation int) *Text {

	// Do nothing if there was a non-recoverable error in parsing
	if p.lastError != nil {
		return nil
	}

	// If there is a paragraph alredy buffered, return it
	if p.bufferedPara != nil {
		para := p.bufferedPara
		p.bufferedPara = nil
		return para
	}

	// Skip all blank lines until EOF or another error
	if !p.SkipBlankLines() {
		return nil
	}

	// Read all lines accumulating them until a blank line, EOF or another error
	var br ByteRenderer

	// Read the first line (can not be blank)
	line := p.ReadLine()

	// Sanity check
	if line == nil {
		// This is a fatal error which can not be recovered
		p.lastError = fmt.Errorf("no paragraph read, line: %d", p.currentLineNum())
		panic(p.lastError)
	}

	// We expect lines with at least the same indentation as specified
	if line.Indentation < min_indentation {
		p.UnreadLine(line)
		return nil
	}

	// Initialize the Paragraph.
	// The indentation of the paragraph is the indentation of the first line.
	para := &Text{}
	para.LineNumber = line.LineNumber
	para.Indentation = line.Indentation

	// Add the contents of the line to the paragraph
	br.Renderln(line.Content)

	// Field lines continue a field list but start a new paragraph after ordinary text
	inFieldList := reFieldLine.Match(line.Content)

	// Read and process any possible additional lines
	for line != nil {

		// Read the next line
		line = p.ReadLine()
		if line == nil {
			break
		}

		// If the line has different indentation, the paragraph has finished
		if line.Indentation != para.Indentation {
			p.UnreadLine(line)
			break
		}

		// A line starting with a block tag is considered a different paragraph
		if (line.Content[0] == '-') || (len(getStartSectionTagName(line)) > 0) {
			p.UnreadLine(line)
			break
		}
		if !inFieldList && reFieldLine.Match(line.Content) {
			p.UnreadLine(line)
			break
		}

		// Add the contents of the line to the paragraph
		br.Renderln(line.Content)

	}

	// Get the accumulated contents of all lines
	para.Content = br.CloneBytes()

	// Trim the paragraph to make sure we do not have spurious carriage returns at the end
	para.Content = bytes.TrimSpace(para.Content)

	return p.PreprocesLine(para)

}

func (p *Parser) PeekParagraphFirstLine() *Text {

	// Do nothing if there was a non-recoverable error in parsing
	if p.lastError != nil {
		return nil
	}

	// If there is a paragraph alredy buffered, return it
	if p.bufferedPara != nil {
		return p.bufferedPara
	}

	// Skip all blank lines until EOF or another error
	if !p.SkipBlankLines() {
		return nil
	}

	// Read the first line (can not be blank)
	line := p.ReadLine()
	p.UnreadLine(line)

	return line
}

// This regex detects the Markdown backticks, double asterisks and double underscores that need special processing
var reCodeBackticks = regexp.MustCompile(`\x60(.+?)\x60`)
var reMarkdownBold = regexp.MustCompile(`\*\*(.+?)\*\*`)
var reMarkdownItalics = regexp.MustCompile(`__(.+?)__`)

// PreprocesLine applies some preprocessing to the raw paragraph that was just read from the stream.
// Only preprocessing which is local to the current paragraph can be applied.
func (p *Parser) PreprocesLine(lineSt *Text) *Text {

	// Convert backticks to the 'code' tag
	if bytes.Contains(lineSt.Content, []byte("`")) {
		lineSt.Content = reCodeBackticks.ReplaceAll(lineSt.Content, []byte("<code>${1}</code>"))
	}

	// Convert the Markdown '**' to 'b' markup
	if bytes.Contains(lineSt.Content, []byte("*")) {
		lineSt.Content = reMarkdownBold.ReplaceAll(lineSt.Content, []byte("<b>${1}</b>"))
	}

	// Convert the Markdown '__' to 'i' markup
	if bytes.Contains(lineSt.Content, []byte("_")) {
		lineSt.Content = reMarkdownItalics.ReplaceAll(lineSt.Content, []byte("<i>${1}</i>"))
	}

	// Preprocess lines starting with Markdown headers ('#') and convert to h1, h2, ...
	// We assume that a header starts with the '#' character, no matter what the rest of the line is
	if lineSt.Content[0] == '#' {

		// Trim and count the number of '#'
		lenPrefix, plainLine := TrimLeft(lineSt.Content, '#')
		if lenPrefix > 6 {
			lenPrefix = 6
		}
		hnum := byte('0' + lenPrefix)

		// Trim the possible whitespace between the '#'s and the text
		_, plainLine = TrimLeft(plainLine, ' ')

		// Build the new line and store it
		lineSt.Content = append([]byte("<h"), hnum, '>')
		lineSt.Content = append(lineSt.Content, plainLine...)

	}

	// Preprocess Markdown list markers
	if HasPrefix(lineSt.Content, "- ") {
		lineSt.Content = append([]byte("<li>"), lineSt.Content[2:]...)
	}

	return lineSt
}

func getStartSectionTagName(text *Text) []byte {
	// If the tag is less than 3 chars or the node does not start with '<', do not process it further.
	if len(text.Content) < 3 || text.Content[0] != StartHTMLTag {
		return nil
	}

	// Now we know the line starts with a tag '<'

	// Extract the whole tag string between the start and end tags
	// The end bracket is optional if there is no more text in the line after the tag attributes
	indexRightBracket := bytes.IndexByte(text.Content, EndHTMLTag)

	var tagSpec []byte
	if indexRightBracket == -1 {
		tagSpec = text.Content[1:]
	} else {

		// Extract the whole tag spec
		tagSpec = text.Content[1:indexRightBracket]

	}

	// Extract the name of the tag from the tagSpec
	name, _ := ReadTagName(tagSpec)

	return name

}

// NewNode creates a node from the text that is passed.
// The new node is set to the proper type and its attributes populated.
// If the line starts with a proper tag, it is processed and the node is updated accordingly.
func (p *Parser) NewNode(text *Text) *Node {

	n := &Node{}

	// Set the basic fields
	n.p = p
	n.Indentation = text.Indentation
	n.LineNumber = text.LineNumber
	n.RawText = text

	// A paragraph made of ':name: value' lines is a field list
	if isFieldList(text.Content) {
		p.buildFieldList(n, text)
		return n
	}

	// If the tag is less than 3 chars or the text does not start with '<', mark it as a paragraph
	// and do not process it further.
	if len(text.Content) < 3 || text.Content[0] != StartHTMLTag {
		n.Type = BlockNode
		n.Name = "p"
		n.RestLine = text.Content
		return n
	}

	// Now we know the line starts with a tag '<'

	indexRightBracket := bytes.IndexByte(text.Content, EndHTMLTag)
	if indexRightBracket == -1 {

		// We did not find the end bracket for the tag, so we treat this as a paragraph
		n.Type = BlockNode
		n.Name = "p"
		n.RestLine = text.Content
		return n

	}

	// Extract the whole tag spec
	tagString := text.Content[1:indexRightBracket]

	// And the remaining text in the line
	n.RestLine = bytes.TrimSpace(text.Content[indexRightBracket+1:])

	// Extract the name of the tag from the tagSpec
	name, restOfTag := ReadTagName(tagString)

	// If no tag was found, treat the line as a paragraph
	if len(name) == 0 {
		n.Type = BlockNode
		n.Name = "p"
		n.RestLine = text.Content
		return n
	}

	// Set the name of the node with the tag name
	n.Name = string(name)

	// If the tag is not a block element or it is a void one, wrap it in a paragraph and do not process it
	if contains(NoBlockElements, name) || contains(VoidElements, name) {
		n.Type = BlockNode
		n.Name = "p"
		n.RestLine = text.Content
		return n
	}

	// Determine type of node to create
	switch n.Name {
	case "section":
		n.Type = SectionNode
	case "x-diagram":
		n.Type = DiagramNode
	case "x-code", "pre":
		n.Type = VerbatimNode
	case "x-include":
		n.Type = IncludeNode
	default:
		n.Type = BlockNode
	}

	// Process all the attributes in the tag
	for {

		restOfTag = SkipWhiteSpace(restOfTag)

		// We have finished the loop if there is no more data
		if len(restOfTag) == 0 {
			break
		}

		var attrVal []byte

		switch restOfTag[0] {
		case '#':
			// Shortcut for id="xxxx"
			// The identifier can be enclosed in single or double quotes if there are spaces
			attrVal, restOfTag = ReadQuotedWords(restOfTag[1:])

			// Only the first id attribute is used, others are ignored
			if len(n.Id) == 0 {
				n.Id = attrVal
			}

		case '.':
			// Shortcut for class="xxxx"
			// The class name should be a single word
			attrVal, restOfTag = ReadWord(restOfTag[1:])
			n.AddClass(attrVal)

		case '@':
			// Shortcut for src="xxxx"
			attrVal, restOfTag = ReadQuotedWords(restOfTag[1:])

			// Only the first attribute is used
			if len(n.Src) == 0 {
				n.Src = attrVal
			}

		case '-':
			// Shortcut for href="xxxx"
			attrVal, restOfTag = ReadQuotedWords(restOfTag[1:])

			// Only the first attribute is used
			if len(n.Href) == 0 {
				n.Href = attrVal
			}

		case '"', '\'':
			// A quoted argument of the tag, which is its text when nothing follows the tag
			attrVal, restOfTag = ReadQuotedWords(restOfTag)
			if len(n.RestLine) == 0 {
				n.RestLine = bytes.Clone(attrVal)
			}

		default:
			// This should be a standard HTML attribute, in 'key=val' format, or a flag
			var attr Attribute
			attr, restOfTag = ReadTagAttrKey(restOfTag)

			if len(attr.Key) == 0 {
				p.AddSyntaxError(&SyntaxError{
					Filename: p.fileName, Line: n.LineNumber, Column: n.Indentation + 1,
					Msg: "malformed attribute in tag " + n.Name,
				})
				// Set the tagSpec to nil to break of the loop
				restOfTag = nil
				continue
			}

			// Treat the most important attributes specially
			switch attr.Key {
			case "id":
				if len(n.Id) == 0 {
					n.Id = bytes.Clone(attr.Val)
				}
			case "class":
				n.AddClass(bytes.Clone(attr.Val))
			case "src":
				if len(n.Src) == 0 {
					n.Src = bytes.Clone(attr.Val)
				}
			case "href":
				if len(n.Href) == 0 {
					n.Href = bytes.Clone(attr.Val)
				}
			default:
				n.Attr = append(n.Attr, attr)
			}

		}

	}

	// Sections get an id from their title if the user did not specify it
	if len(n.Id) == 0 && n.Type == SectionNode && len(n.RestLine) > 0 {
		n.Id = bytes.Clone(n.RestLine)
		// If the id already exists, make it unique
		if p.Xref[string(n.Id)] != nil {
			n.Id = strconv.AppendInt(n.Id, int64(n.LineNumber), 10)
		}
	}

	// Update the table for cross-references using Ids in the tag.
	if len(n.Id) > 0 {
		p.RegisterXref(string(n.Id), n)
	}

	return n
}

// RegisterXref makes the node the target of references with the given id.
// Ids must be unique in the document; a duplicate is reported as a syntax error and ignored.
func (p *Parser) RegisterXref(id string, n *Node) {
	if p.Xref[id] != nil {
		p.AddSyntaxError(&SyntaxError{
			Filename: p.fileName, Line: n.LineNumber, Column: n.Indentation + 1,
			Msg: "id already used: " + id,
		})
		return
	}
	p.Xref[id] = n
}

// ParseBlock parses the segment of the document that belongs to the block represented by the node.
// The node will have as child nodes all elements that are at the same indentation
func (p *Parser) ParseBlock(parent *Node) {
	var paragraph *Text

	// Read without consuming the next paragraph, to calculate indentation
	paragraph = p.PeekParagraphFirstLine()

	// If no paragraph, we have reached the end of the block or the file
	if paragraph == nil {
		return
	}

	// Document nodes are virtual and are an exception to indentation
	if parent.Type == DocumentNode {
		// When parsing the block representing the Document, we expect the first paragraph
		// to have the same indentation as the Document node (normally zero)
		if paragraph.Indentation != parent.Indentation {
			p.lastError = fmt.Errorf("%s (line %d) error: the document must start without indentation", p.fileName, paragraph.LineNumber)
			panic(p.lastError)
		}
	} else {
		// For any other block different to Document, we parse only paragraphs more indented than the Block
		if paragraph.Indentation <= parent.Indentation {
			return
		}
	}

	// Read the first paragraph of this Block
	paragraph = p.ReadAnyParagraph(paragraph.Indentation)

	// The first line determines the indentation of this block
	blockIndentation := paragraph.Indentation

	// Process the paragraphs until there is not more in the block
	for {

		// This paragraph belongs to this block
		if paragraph.Indentation == blockIndentation {

			// Create a node for the paragraph
			newNode := p.NewNode(paragraph)

			// If it is a section, calculate its sequence number.
			// The "abstract" section is not numbered.
			if newNode.Type == SectionNode && string(newNode.Id) != "abstract" {

				// Section nodes can only be children of other section nodes or of the root Document
				if parent.Type != DocumentNode && parent.Type != SectionNode {
					// Abort the parsing
					p.lastError = fmt.Errorf("%s (line %d) error: a section node should be top or child of other section node", p.fileName, newNode.LineNumber)
					panic(p.lastError)
				}

				// Increase the level
				newNode.Level = parent.Level + 1

				// Calculate our sequence number for the parent section
				numSections := 1
				for theNode := parent.FirstChild; theNode != nil; theNode = theNode.NextSibling {
					if theNode.Type == SectionNode && string(theNode.Id) != "abstract" {
						numSections++
					}
				}

				newNode.Outline = fmt.Sprintf("%s%d.", parent.Outline, numSections)

			}

			// Process the inclusion of another file at this point
			if newNode.Type == IncludeNode {

				// A relative file name is relative to the location of the file including it
				baseDir, _ := filepath.Split(p.fileName)
				fileName := filepath.Join(baseDir, string(newNode.Src))

				// Open the file and parse it
				subParser, err := p.ParseIncludeFile(fileName)
				if err != nil {
					// Abort parsing
					p.lastError = err
					panic(p.lastError)
				}

				// Add all top nodes of the included document as childs of the current parent
				ReparentChildren(parent, subParser.doc)

			} else if newNode.Type == FieldListNode && parent.LastChild != nil && parent.LastChild.Type == FieldListNode {
				// Fields following the content nested in a field continue the same list
				ReparentChildren(parent.LastChild, newNode)

			} else {
				// Add the new node as a child of the parent node
				parent.AppendChild(newNode)

			}

			// If the node is of verbatim type, perform special processing of its content
			if newNode.Type == DiagramNode || newNode.Type == VerbatimNode {
				p.ParseVerbatim(newNode)
			}

		}

		// If the paragraph is more indented than the block, it represents an interior block
		if paragraph.Indentation > blockIndentation {

			// Send the read paragraph back to the parser
			p.UnreadParagraph(paragraph)

			// Sanity check: there should be at least a child node of the parent node
			if parent.LastChild == nil {
				// Abort parsing
				p.lastError = fmt.Errorf("%s (line %d) error: more indented paragraph without parent node", p.fileName, paragraph.LineNumber)
				panic(p.lastError)
			}

			// The content nested under a field list belongs to its last field
			interior := parent.LastChild
			if interior.Type == FieldListNode && interior.LastChild != nil {
				interior = interior.LastChild
			}

			// Parse the interior block using the child node as its parent
			p.ParseBlock(interior)
		}

		// Check if the next paragraph is less indented, so the block ends
		paragraph = p.PeekParagraphFirstLine()

		// If no paragraph or less indentation, we have reached the end of the block or the file
		if (paragraph == nil) || (paragraph.Indentation < blockIndentation) {
			return
		}

		// Read the next paragraph and loop again
		paragraph = p.ReadAnyParagraph(blockIndentation)
		if paragraph == nil {
			return
		}

	}

}

// ParseVerbatim reads the lines more indented than the node as raw text, preserving relative indentation
func (p *Parser) ParseVerbatim(parent *Node) error {

	if len(parent.Src) > 0 {
		return p.ParseVerbatimIncluded(parent)
	}

	sectionIndent := parent.Indentation

	// This will hold the text lines of the block
	contentLines := []*Text{}

	// We are going to calculate the minimum indentation for the whole block.
	// The starting point is a very big value which will be reduced to the correct value during the loop
	minimumIndentation := math.MaxInt

	// Because of the way we detect the end of the block, there may be spurious blank lines at the end
	lastNonBlankLine := 0

	// Loop until the end of the document or until we find a line with less or equal indentation
	// Blank lines are assumed to pertain to the verbatim section
	for !p.atEOF {

		line := p.ReadLine()

		// If the line is blank, continue with the loop
		if line == nil {
			contentLines = append(contentLines, &Text{})
			continue
		}

		// The block is finished if the line has less or equal indentation than the section
		if line.Indentation <= sectionIndent {
			p.UnreadLine(line)
			break
		}

		if line.Indentation < minimumIndentation {
			minimumIndentation = line.Indentation
		}

		contentLines = append(contentLines, line)
		lastNonBlankLine = len(contentLines)

	}

	var br ByteRenderer

	// Loop for all entries until the last one which is non-blank
	for _, line := range contentLines[:lastNonBlankLine] {
		if len(line.Content) > 0 {
			br.Renderln(indent(line.Indentation-minimumIndentation), line.Content)
		} else {
			br.Renderln()
		}
	}

	parent.InnerText = br.CloneBytes()

	return nil

}

func (p *Parser) ParseVerbatimIncluded(parent *Node) error {

	// A relative file name is relative to the location of the file including it
	baseDir, _ := filepath.Split(p.fileName)
	fileName := filepath.Join(baseDir, string(parent.Src))

	// Read the whole file into memory
	fileContents, err := os.ReadFile(fileName)
	if err != nil {
		p.AddSyntaxError(&SyntaxError{
			Filename: p.fileName, Line: parent.LineNumber, Column: parent.Indentation + 1,
			Msg: err.Error(),
		})
		return err
	}

	parent.InnerText = fileContents

	return nil
}

func (p *Parser) PreprocessYAMLHeader() error {
	var err error

	line := p.PeekParagraphFirstLine()
	if line == nil || len(line.Content) == 0 {
		return fmt.Errorf("empty file")
	}

	// We accept YAML data only at the beginning of the file
	if !bytes.HasPrefix(line.Content, []byte("---")) {
		return fmt.Errorf("no YAML metadata found in the file")
	}

	// Just discard the line
	p.ReadLine()

	// Build a string with all subsequent lines up to the next "---"
	var yamlString strings.Builder
	var endYamlFound bool

	for !p.atEOF {

		line := p.ReadLine()
		if line == nil {
			continue
		}

		// Check for end of YAML section
		if bytes.HasPrefix(line.Content, []byte("---")) {
			endYamlFound = true
			break
		}

		yamlString.WriteString(strings.Repeat(" ", line.Indentation) + string(line.Content))
		yamlString.WriteString("\n")

	}

	if !endYamlFound {
		p.lastError = fmt.Errorf("%s: end of file reached but no end of YAML section found", p.fileName)
		return p.lastError
	}

	// Parse the string that was built as YAML data
	p.Config, err = yaml.ParseYaml(yamlString.String())
	if err != nil {
		p.lastError = fmt.Errorf("%s: malformed YAML metadata: %w", p.fileName, err)
		return p.lastError
	}

	return nil
}
