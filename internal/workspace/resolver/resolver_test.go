package resolver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikilsp/wikilsp/internal/workspace/document"
	"github.com/wikilsp/wikilsp/internal/workspace/folder"
	"github.com/wikilsp/wikilsp/internal/workspace/markdown"
	"github.com/wikilsp/wikilsp/internal/workspace/pathid"
)

func buildFolder(t *testing.T, root pathid.Path, files map[string]string) *folder.Folder {
	t.Helper()
	f, ok := folder.TryLoad("ws", root)
	require.True(t, ok)
	for name, content := range files {
		path := pathid.FromParts(filepath.Join(root.Canonical, name))
		doc, err := document.FromOpen(root, path, content)
		require.NoError(t, err)
		f = f.UpdateDocument(doc)
	}
	return &f
}

func testRoot(t *testing.T) pathid.Path {
	t.Helper()
	return pathid.FromParts(t.TempDir())
}

func wikiLink(targetDoc, targetHeading *string) *markdown.WikiLink {
	return &markdown.WikiLink{TargetDoc: targetDoc, TargetHeading: targetHeading}
}

func strPtr(s string) *string { return &s }

func TestResolveWikiLinkSameDocumentHeading(t *testing.T) {
	root := testRoot(t)
	f := buildFolder(t, root, map[string]string{
		"a.md": "# A\n\n## Intro\n",
	})
	fromDoc := f.DocumentsNamed("a")[0]

	res := ResolveWikiLink(f, fromDoc, wikiLink(nil, strPtr("Intro")))
	require.True(t, res.Resolved())
	assert.Equal(t, "Intro", res.Targets[0].Heading.Text)
}

func TestResolveWikiLinkDocUnresolved(t *testing.T) {
	root := testRoot(t)
	f := buildFolder(t, root, map[string]string{
		"a.md": "# A\n",
	})
	fromDoc := f.DocumentsNamed("a")[0]

	res := ResolveWikiLink(f, fromDoc, wikiLink(strPtr("missing"), nil))
	assert.True(t, res.DocUnresolved)
	assert.False(t, res.Resolved())
}

func TestResolveWikiLinkAmbiguousAcrossDuplicateBasenames(t *testing.T) {
	root := testRoot(t)
	f := buildFolder(t, root, map[string]string{
		"dir1/note.md": "# One\n",
		"dir2/note.md": "# Two\n",
		"a.md":          "# A\n",
	})
	fromDoc := f.DocumentsNamed("a")[0]

	res := ResolveWikiLink(f, fromDoc, wikiLink(strPtr("note"), nil))
	assert.True(t, res.Ambiguous())
	assert.Len(t, res.Targets, 2)
}

func TestResolveWikiLinkHeadingMissing(t *testing.T) {
	root := testRoot(t)
	f := buildFolder(t, root, map[string]string{
		"a.md": "# A\n",
		"b.md": "# B\n",
	})
	fromDoc := f.DocumentsNamed("a")[0]

	res := ResolveWikiLink(f, fromDoc, wikiLink(strPtr("b"), strPtr("Nonexistent")))
	assert.True(t, res.HeadingMissing)
	assert.False(t, res.Resolved())
}

func TestResolveInlineRefMatchesDocument(t *testing.T) {
	root := testRoot(t)
	f := buildFolder(t, root, map[string]string{
		"a.md": "# A\n",
		"b.md": "# B\n",
	})
	fromDoc := f.DocumentsNamed("a")[0]

	ref := &markdown.InlineRef{TargetDoc: strPtr("b")}
	res := ResolveInlineRef(f, fromDoc, ref)
	require.True(t, res.Resolved())
	assert.Equal(t, "B", res.Targets[0].Document.Headings()[0].Text)
}

func TestCompletionCandidatesDeduplicatesCaseInsensitively(t *testing.T) {
	root := testRoot(t)
	f := buildFolder(t, root, map[string]string{
		"dir1/note.md": "# One\n",
		"dir2/Note.md": "# Two\n",
	})

	candidates := CompletionCandidates(f)
	assert.Len(t, candidates, 1)
}

func TestHeadingCompletionCandidatesPreservesDocumentOrder(t *testing.T) {
	root := testRoot(t)
	f := buildFolder(t, root, map[string]string{
		"a.md": "# First\n\n## Second\n\n# Third\n",
	})
	doc := f.DocumentsNamed("a")[0]

	assert.Equal(t, []string{"First", "Second", "Third"}, HeadingCompletionCandidates(doc))
}
