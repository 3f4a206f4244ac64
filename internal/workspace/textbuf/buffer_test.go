package textbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullRange(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Range
	}{
		{
			name: "single heading line",
			text: "# Hello\n",
			want: Range{Start: Position{0, 0}, End: Position{1, 0}},
		},
		{
			name: "no trailing newline",
			text: "# Hello",
			want: Range{Start: Position{0, 0}, End: Position{0, 7}},
		},
		{
			name: "multibyte characters count as UTF-16 units",
			text: "# café",
			want: Range{Start: Position{0, 0}, End: Position{0, 6}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.text).FullRange()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPositionOffsetRoundTrip(t *testing.T) {
	buf := New("first\nsecond line\nthird\n")

	for _, pos := range []Position{
		{Line: 0, Character: 0},
		{Line: 0, Character: 5},
		{Line: 1, Character: 6},
		{Line: 2, Character: 5},
	} {
		offset := buf.PositionToOffset(pos)
		back := buf.OffsetToPosition(offset)
		assert.Equal(t, pos, back, "round-trip for %+v", pos)
	}
}

func TestApplyEditsIncremental(t *testing.T) {
	buf := New("hello world\n")

	edited, err := buf.ApplyEdits([]Edit{
		{Range: Range{Start: Position{0, 6}, End: Position{0, 11}}, NewText: "there"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there\n", edited.Text())
}

func TestApplyEditsMultipleRightToLeft(t *testing.T) {
	buf := New("abcdef\n")

	edited, err := buf.ApplyEdits([]Edit{
		{Range: Range{Start: Position{0, 0}, End: Position{0, 1}}, NewText: "A"},
		{Range: Range{Start: Position{0, 3}, End: Position{0, 4}}, NewText: "D"},
	})
	require.NoError(t, err)
	assert.Equal(t, "AbcDef\n", edited.Text())
}

func TestApplyEditsRejectsOverlap(t *testing.T) {
	buf := New("abcdef\n")

	_, err := buf.ApplyEdits([]Edit{
		{Range: Range{Start: Position{0, 0}, End: Position{0, 3}}, NewText: "x"},
		{Range: Range{Start: Position{0, 2}, End: Position{0, 4}}, NewText: "y"},
	})
	require.Error(t, err)
}

func TestSubstring(t *testing.T) {
	buf := New("first\nsecond\n")
	got := buf.Substring(Range{Start: Position{1, 0}, End: Position{1, 6}})
	assert.Equal(t, "second", got)
}
