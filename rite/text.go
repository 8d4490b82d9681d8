package rite

import (
	"bytes"
	"strconv"
)

// Text is a line or a paragraph read from the source, with the position where it starts
type Text struct {
	LineNumber  int
	Indentation int
	Content     []byte
}

func (t *Text) String() string {
	if t == nil {
		return "<nil>"
	}
	return strconv.Itoa(t.LineNumber) + ": " + string(t.Content)
}

// ByteRenderer accumulates rendered output.
// Render accepts strings, byte slices, single bytes, runes and ints, which covers
// everything the renderers need without going through fmt.
type ByteRenderer struct {
	buf bytes.Buffer
}

// Render writes all its arguments in sequence
func (br *ByteRenderer) Render(args ...any) {
	for _, a := range args {
		switch v := a.(type) {
		case string:
			br.buf.WriteString(v)
		case []byte:
			br.buf.Write(v)
		case byte:
			br.buf.WriteByte(v)
		case rune:
			br.buf.WriteRune(v)
		case int:
			br.buf.WriteString(strconv.Itoa(v))
		case *ByteRenderer:
			br.buf.Write(v.Bytes())
		case nil:
		default:
			panic("ByteRenderer: unsupported argument type")
		}
	}
}

// Renderln is like Render but appends a newline at the end
func (br *ByteRenderer) Renderln(args ...any) {
	br.Render(args...)
	br.buf.WriteByte('\n')
}

// Bytes returns the accumulated bytes. The slice is only valid until the next write.
func (br *ByteRenderer) Bytes() []byte {
	return br.buf.Bytes()
}

// CloneBytes returns a copy of the accumulated bytes
func (br *ByteRenderer) CloneBytes() []byte {
	return bytes.Clone(br.buf.Bytes())
}

func (br *ByteRenderer) String() string {
	return br.buf.String()
}

func (br *ByteRenderer) Len() int {
	return br.buf.Len()
}
