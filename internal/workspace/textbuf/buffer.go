// Package textbuf stores document text and maps LSP positions (UTF-16
// line/character pairs) to byte offsets, applying incremental edit
// batches the way the LSP client sends them. The line-start table is
// built in one pass over the text, grounded on gomdlint's
// pkg/mdast.BuildLines, generalized here to UTF-16 column accounting
// since LSP positions are UTF-16 code-unit offsets rather than bytes.
package textbuf

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/wikilsp/wikilsp/internal/workspace/werrors"
)

// Position is a zero-based line and UTF-16 character offset, mirroring
// LSP's Position.
type Position struct {
	Line      uint32
	Character uint32
}

// Range is a half-open [Start, End) span of Positions.
type Range struct {
	Start Position
	End   Position
}

// Edit is an ordered replacement: the text in Range is replaced with
// NewText. The caller (LSP machinery) guarantees a batch of Edits is
// sorted by start position and non-overlapping.
type Edit struct {
	Range   Range
	NewText string
}

// Buffer holds a document's full text plus a byte-offset line-start
// table. Buffers are immutable; ApplyEdits returns a new Buffer.
type Buffer struct {
	text       string
	lineStarts []int // byte offset of the first byte of each line
}

// New builds a Buffer from a full string, computing the line-start
// table in one pass.
func New(text string) Buffer {
	return Buffer{text: text, lineStarts: computeLineStarts(text)}
}

func computeLineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Text returns the buffer's full text.
func (b Buffer) Text() string { return b.text }

// LineCount returns the number of lines in the buffer.
func (b Buffer) LineCount() int { return len(b.lineStarts) }

// FullRange returns the line-aware Range spanning the entire buffer.
func (b Buffer) FullRange() Range {
	lastLine := uint32(len(b.lineStarts) - 1)
	lastLineText := b.lineText(int(lastLine))
	return Range{
		Start: Position{Line: 0, Character: 0},
		End:   Position{Line: lastLine, Character: utf16Length(lastLineText)},
	}
}

func (b Buffer) lineText(line int) string {
	start := b.lineStarts[line]
	end := len(b.text)
	if line+1 < len(b.lineStarts) {
		end = b.lineStarts[line+1]
		// Trim the trailing newline (and preceding \r) from the line text.
		for end > start && (b.text[end-1] == '\n' || b.text[end-1] == '\r') {
			end--
		}
	}
	return b.text[start:end]
}

// PositionToOffset converts a zero-based line/UTF-16-character position
// to a byte offset into the text. A line past the last one clamps to the
// end of the buffer; a character past the end of its line clamps to the
// end of that line (before its newline).
func (b Buffer) PositionToOffset(pos Position) int {
	if len(b.lineStarts) == 0 {
		return 0
	}
	line := int(pos.Line)
	if line < 0 {
		return 0
	}
	if line >= len(b.lineStarts) {
		return len(b.text)
	}

	lineStart := b.lineStarts[line]
	lineStr := b.lineText(line)

	remaining := pos.Character
	offset := lineStart
	for _, r := range lineStr {
		if remaining == 0 {
			break
		}
		width := utf16.RuneLen(r)
		if width < 1 {
			width = 1
		}
		if uint32(width) > remaining {
			break
		}
		remaining -= uint32(width)
		offset += utf8.RuneLen(r)
	}
	return offset
}

// OffsetToPosition converts a byte offset back to a zero-based
// line/UTF-16-character position. Out-of-range offsets clamp to EOF.
func (b Buffer) OffsetToPosition(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.text) {
		offset = len(b.text)
	}

	line := lineForOffset(b.lineStarts, offset)
	lineStart := b.lineStarts[line]
	chars := utf16Length(b.text[lineStart:offset])
	return Position{Line: uint32(line), Character: chars}
}

func lineForOffset(lineStarts []int, offset int) int {
	lo, hi := 0, len(lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func utf16Length(s string) uint32 {
	var n uint32
	for _, r := range s {
		n += uint32(utf16.RuneLen(r))
	}
	return n
}

// Substring returns the text covered by r.
func (b Buffer) Substring(r Range) string {
	start := b.PositionToOffset(r.Start)
	end := b.PositionToOffset(r.End)
	if end < start {
		start, end = end, start
	}
	return b.text[start:end]
}

// ApplyEdits applies an ordered batch of edits and returns a new Buffer.
// edits must be sorted by Range.Start and non-overlapping; violating that
// contract is a programmer error and returns werrors.ErrInvalidEdit.
// Edits are applied right-to-left internally onto a byte-slice copy so
// earlier edits' offsets remain valid as each replacement changes length.
func (b Buffer) ApplyEdits(edits []Edit) (Buffer, error) {
	if err := validateSorted(edits); err != nil {
		return Buffer{}, err
	}

	out := []byte(b.text)
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		start := b.PositionToOffset(e.Range.Start)
		end := b.PositionToOffset(e.Range.End)
		if end < start {
			return Buffer{}, fmt.Errorf("%w: edit end precedes start", werrors.ErrInvalidEdit)
		}
		var next []byte
		next = append(next, out[:start]...)
		next = append(next, []byte(e.NewText)...)
		next = append(next, out[end:]...)
		out = next
	}

	return New(string(out)), nil
}

func validateSorted(edits []Edit) error {
	for i := 1; i < len(edits); i++ {
		prevEnd := edits[i-1].Range.End
		curStart := edits[i].Range.Start
		if positionLess(curStart, prevEnd) {
			return fmt.Errorf("%w: edits out of order or overlapping at index %d", werrors.ErrInvalidEdit, i)
		}
	}
	return nil
}

func positionLess(a, b Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}
