package rite

import (
	"bytes"
)

func HasPrefix(line []byte, pre string) bool {
	return bytes.HasPrefix(line, []byte(pre))
}

// TrimLeft removes the leading s characters from line, returning how many were removed
// and the rest of the line. A line made only of s characters returns nil as the rest.
func TrimLeft(line []byte, s byte) (int, []byte) {
	for i, c := range line {
		if c != s {
			return i, line[i:]
		}
	}
	return len(line), nil
}

func SkipWhiteSpace(line []byte) []byte {
	for i, c := range line {
		if c != ' ' && c != '\t' {
			return line[i:]
		}
	}
	return nil
}

// ReadWord returns the first word of the line and the rest, with leading whitespace skipped
func ReadWord(line []byte) (word []byte, rest []byte) {

	// If no blank space found, return the whole line
	indexSpace := bytes.IndexAny(line, " \t")
	if indexSpace == -1 {
		return line, nil
	}

	// Otherwise, return the word and the rest of the line
	word = line[:indexSpace]
	rest = SkipWhiteSpace(line[indexSpace+1:])
	return word, rest

}

func ReadTagName(tagSpec []byte) (tagName []byte, rest []byte) {
	return ReadWord(tagSpec)
}

// ReadQuotedWords reads a value that may be enclosed in single or double quotes.
// Without quotes it reads a single word.
func ReadQuotedWords(line []byte) (word []byte, rest []byte) {

	if len(line) == 0 {
		return nil, nil
	}

	quote := line[0]
	if quote != '"' && quote != '\'' {
		return ReadWord(line)
	}

	line = line[1:]
	for i, c := range line {
		if c == quote {
			return line[:i], SkipWhiteSpace(line[i+1:])
		}
	}

	// No closing quote, take everything
	return line, nil

}

// ReadTagAttrKey reads an attribute in 'key=val' format.
// The value may be quoted. A key without '=' is a flag and has a nil value.
func ReadTagAttrKey(tagSpec []byte) (Attribute, []byte) {
	attr := Attribute{}

	tagSpec = SkipWhiteSpace(tagSpec)
	if len(tagSpec) == 0 {
		return attr, nil
	}

	// Select the first word, ending on whitespace, '=' or endtag char '/'
	i := bytes.IndexAny(tagSpec, " \t/=")
	if i == -1 {
		attr.Key = string(tagSpec)
		return attr, nil
	}
	attr.Key = string(tagSpec[:i])
	tagSpec = SkipWhiteSpace(tagSpec[i:])

	// A self-closing slash carries no meaning for us
	if len(tagSpec) > 0 && tagSpec[0] == '/' {
		return attr, SkipWhiteSpace(tagSpec[1:])
	}

	// Return if next character is not the '=' sign
	if len(tagSpec) == 0 || tagSpec[0] != '=' {
		return attr, tagSpec
	}

	// Skip whitespace after the '=' sign
	tagSpec = SkipWhiteSpace(tagSpec[1:])

	attr.Val, tagSpec = ReadQuotedWords(tagSpec)
	if attr.Val == nil {
		attr.Val = []byte{}
	}
	return attr, tagSpec
}

func contains(set []string, tagName []byte) bool {
	for _, el := range set {
		if string(tagName) == el {
			return true
		}
	}
	return false
}
