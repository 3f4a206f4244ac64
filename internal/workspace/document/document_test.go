package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikilsp/wikilsp/internal/workspace/markdown"
	"github.com/wikilsp/wikilsp/internal/workspace/pathid"
	"github.com/wikilsp/wikilsp/internal/workspace/textbuf"
)

func mustRoot(t *testing.T, dir string) pathid.Path {
	t.Helper()
	root, err := pathid.Parse(dir)
	require.NoError(t, err)
	return root
}

func TestFromOpenParsesElements(t *testing.T) {
	root := mustRoot(t, t.TempDir())
	path := pathid.FromParts(filepath.Join(root.Canonical, "a.md"))

	doc, err := FromOpen(root, path, "# Title\n\nSee [[other]].\n")
	require.NoError(t, err)

	require.Len(t, doc.Headings(), 1)
	assert.Equal(t, "Title", doc.Headings()[0].Text)
	require.Len(t, doc.Links(), 1)
}

func TestFromOpenRejectsPathOutsideRoot(t *testing.T) {
	root := mustRoot(t, t.TempDir())
	outside := pathid.FromParts(filepath.Join(t.TempDir(), "other", "a.md"))

	_, err := FromOpen(root, outside, "# Title\n")
	assert.Error(t, err)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	root := mustRoot(t, dir)
	full := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(full, []byte("# Note\n"), 0o644))

	doc, err := Load(root, pathid.FromParts(full))
	require.NoError(t, err)
	assert.Equal(t, "Note", doc.Headings()[0].Text)
}

func TestLoadMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	root := mustRoot(t, dir)
	_, err := Load(root, pathid.FromParts(filepath.Join(dir, "missing.md")))
	assert.Error(t, err)
}

func TestApplyChangeReparses(t *testing.T) {
	root := mustRoot(t, t.TempDir())
	path := pathid.FromParts(filepath.Join(root.Canonical, "a.md"))

	doc, err := FromOpen(root, path, "# Title\n")
	require.NoError(t, err)

	edited, err := ApplyChange(doc, []textbuf.Edit{
		{Range: textbuf.Range{
			Start: textbuf.Position{Line: 0, Character: 2},
			End:   textbuf.Position{Line: 0, Character: 7},
		}, NewText: "Renamed"},
	})
	require.NoError(t, err)
	assert.Equal(t, "# Renamed\n", edited.Text.Text())
	assert.Equal(t, "Renamed", edited.Headings()[0].Text)
}

func TestReplaceText(t *testing.T) {
	root := mustRoot(t, t.TempDir())
	path := pathid.FromParts(filepath.Join(root.Canonical, "a.md"))

	doc, err := FromOpen(root, path, "# Old\n")
	require.NoError(t, err)

	replaced, err := ReplaceText(doc, "# New\n")
	require.NoError(t, err)
	assert.Equal(t, "New", replaced.Headings()[0].Text)
}

func TestLinksIncludesNestedUnderHeadings(t *testing.T) {
	root := mustRoot(t, t.TempDir())
	path := pathid.FromParts(filepath.Join(root.Canonical, "a.md"))

	doc, err := FromOpen(root, path, "# Title\n\nSee [[a]] and [[b#Section]].\n")
	require.NoError(t, err)

	links := doc.Links()
	require.Len(t, links, 2)
	for _, l := range links {
		_, ok := l.(*markdown.WikiLink)
		assert.True(t, ok)
	}
}
