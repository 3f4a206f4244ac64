package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikilsp/wikilsp/internal/workspace/textbuf"
)

func TestParseHeadingNesting(t *testing.T) {
	text := "# A\n\n## B\n\ncontent\n\n## C\n\n# D\n"
	elements := Parse(textbuf.New(text))

	require.Len(t, elements, 2, "two top-level headings: A and D")

	a, ok := elements[0].(*Heading)
	require.True(t, ok)
	assert.Equal(t, "A", a.Text)
	assert.Equal(t, 1, a.Level)
	require.Len(t, a.Children, 2, "B and C nest under A")

	b := a.Children[0].(*Heading)
	assert.Equal(t, "B", b.Text)
	assert.Equal(t, 2, b.Level)

	c := a.Children[1].(*Heading)
	assert.Equal(t, "C", c.Text)

	d := elements[1].(*Heading)
	assert.Equal(t, "D", d.Text)
	assert.Empty(t, d.Children)
}

func TestParseHeadingScope(t *testing.T) {
	text := "# A\nline\n# B\n"
	elements := Parse(textbuf.New(text))

	require.Len(t, elements, 2)
	a := elements[0].(*Heading)
	assert.Equal(t, textbuf.Range{
		Start: textbuf.Position{Line: 0, Character: 0},
		End:   textbuf.Position{Line: 2, Character: 0},
	}, a.Scope)
}

func TestParseWikiLinkVariants(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantDoc    *string
		wantHeader *string
	}{
		{name: "bare doc", line: "[[note]]", wantDoc: strPtr("note")},
		{name: "doc and heading", line: "[[note#Section]]", wantDoc: strPtr("note"), wantHeader: strPtr("Section")},
		{name: "heading only", line: "[[#Section]]", wantHeader: strPtr("Section")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elements := Parse(textbuf.New(tt.line + "\n"))
			require.Len(t, elements, 1)
			link, ok := elements[0].(*WikiLink)
			require.True(t, ok)
			assert.Equal(t, derefStr(tt.wantDoc), derefStr(link.TargetDoc))
			assert.Equal(t, derefStr(tt.wantHeader), derefStr(link.TargetHeading))
		})
	}
}

func TestParseWikiLinkInsideCodeBlockIgnored(t *testing.T) {
	text := "# Heading\n\n```\n[[not-a-link]]\n```\n"
	elements := Parse(textbuf.New(text))

	require.Len(t, elements, 1)
	h := elements[0].(*Heading)
	assert.Empty(t, h.Children, "wiki link syntax inside a fenced code block must not be recognized")
}

func TestParseInlineRefSkipsSchemedLinks(t *testing.T) {
	text := "See [external](https://example.com) and [local](other.md).\n"
	elements := Parse(textbuf.New(text))

	require.Len(t, elements, 1)
	ref, ok := elements[0].(*InlineRef)
	require.True(t, ok)
	assert.Equal(t, "other.md", *ref.TargetDoc)
}

func TestParseIsPure(t *testing.T) {
	text := "# A\n\nSee [[b]].\n"
	first := Parse(textbuf.New(text))
	second := Parse(textbuf.New(text))
	assert.Equal(t, first, second)
}

func strPtr(s string) *string { return &s }

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
