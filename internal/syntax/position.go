package syntax

import (
	"bytes"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Point columns count bytes. Protocol positions count UTF-16 code units, so
// every conversion needs the text of the line.

// lineAt returns the bytes of the given zero-based line without its line
// terminator, or nil when src has fewer lines.
func lineAt(src []byte, line int) []byte {
	for i := 0; i < line; i++ {
		nl := bytes.IndexByte(src, '\n')
		if nl < 0 {
			return nil
		}
		src = src[nl+1:]
	}
	if nl := bytes.IndexByte(src, '\n'); nl >= 0 {
		src = src[:nl]
	}
	return bytes.TrimSuffix(src, []byte{'\r'})
}

// UTF16Column converts a byte column on line to UTF-16 code units. Columns
// past the end of the line keep their excess unchanged.
func UTF16Column(line []byte, col int) int {
	n, i := 0, 0
	for i < col && i < len(line) {
		r, size := utf8.DecodeRune(line[i:])
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		i += size
	}
	return n + max(col-i, 0)
}

// ByteColumn converts a UTF-16 column on line to a byte column. A column
// that splits a surrogate pair snaps to the start of the character.
func ByteColumn(line []byte, col int) int {
	n, i := 0, 0
	for i < len(line) {
		r, size := utf8.DecodeRune(line[i:])
		w := 1
		if r >= 0x10000 {
			w = 2
		}
		if n+w > col {
			return i
		}
		n += w
		i += size
	}
	return i + max(col-n, 0)
}

// PositionIn converts p, a point in src, to a protocol position.
func PositionIn(src []byte, p Point) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(p.Line),
		Character: protocol.UInteger(UTF16Column(lineAt(src, p.Line), p.Column)),
	}
}

// RangeIn converts r, a range in src, to a protocol range.
func RangeIn(src []byte, r Range) protocol.Range {
	return protocol.Range{Start: PositionIn(src, r.Start), End: PositionIn(src, r.End)}
}

// PointIn converts a protocol position in src to a Point.
func PointIn(src []byte, pos protocol.Position) Point {
	line := int(pos.Line)
	return Point{Line: line, Column: ByteColumn(lineAt(src, line), int(pos.Character))}
}

// Position converts p to a protocol position in t's source.
func (t *Tree) Position(p Point) protocol.Position { return PositionIn(t.src, p) }

// ProtocolRange converts r to a protocol range in t's source.
func (t *Tree) ProtocolRange(r Range) protocol.Range { return RangeIn(t.src, r) }

// PointAt converts a protocol position in t's source to a Point.
func (t *Tree) PointAt(pos protocol.Position) Point { return PointIn(t.src, pos) }
