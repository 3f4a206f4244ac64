package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikilsp/wikilsp/internal/workspace/document"
	"github.com/wikilsp/wikilsp/internal/workspace/folder"
	"github.com/wikilsp/wikilsp/internal/workspace/pathid"
)

func buildFolder(t *testing.T, name string, files map[string]string) *folder.Folder {
	t.Helper()
	root := pathid.FromParts(t.TempDir())
	f, ok := folder.TryLoad(name, root)
	require.True(t, ok)
	for fname, content := range files {
		path := pathid.FromParts(filepath.Join(root.Canonical, fname))
		doc, err := document.FromOpen(root, path, content)
		require.NoError(t, err)
		f = f.UpdateDocument(doc)
	}
	return &f
}

func TestUpdatePublishesNewDiagnostics(t *testing.T) {
	f := buildFolder(t, "ws", map[string]string{"a.md": "# A\n\nSee [[missing]].\n"})

	cur := New()
	next := cur.WithFolder(f)

	newState, publishes := Update(cur, next)
	require.Len(t, publishes, 1)
	assert.NotEmpty(t, publishes[0].Diagnostics)
	assert.Equal(t, uint64(1), newState.Revision)
}

func TestUpdateDoesNotRepublishUnchangedDiagnostics(t *testing.T) {
	f := buildFolder(t, "ws", map[string]string{"a.md": "# A\n\nSee [[missing]].\n"})

	cur := New()
	first, publishes := Update(cur, cur.WithFolder(f))
	require.Len(t, publishes, 1)

	_, again := Update(first, first.WithFolder(f))
	assert.Empty(t, again, "identical diagnostics must not be republished")
}

func TestUpdateClearsDiagnosticsWhenFolderRemoved(t *testing.T) {
	f := buildFolder(t, "ws", map[string]string{"a.md": "# A\n\nSee [[missing]].\n"})

	cur := New()
	first, _ := Update(cur, cur.WithFolder(f))

	cleared, publishes := Update(first, first.WithoutFolder("ws"))
	require.Len(t, publishes, 1)
	assert.Nil(t, publishes[0].Diagnostics)
	assert.Empty(t, cleared.LastPublished)
}

func TestManagerUpdateTracksInitialized(t *testing.T) {
	m := NewManager()
	assert.False(t, m.Initialized())

	m.Update(New())
	assert.True(t, m.Initialized())
}

func TestManagerCurrentReflectsLastUpdate(t *testing.T) {
	m := NewManager()
	f := buildFolder(t, "ws", map[string]string{"a.md": "# A\n"})

	m.Update(m.Current().WithFolder(f))
	assert.Contains(t, m.Current().Folders, "ws")
}
