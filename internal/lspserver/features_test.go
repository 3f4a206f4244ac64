package lspserver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// TestDefinitionOnWholeDocumentLinkReturnsFullRange covers the
// scenario where [[a]] (no "#heading" suffix) resolves to a document
// as a whole: the result must point at a.md's full range, not a
// collapsed zero-width point at its start.
func TestDefinitionOnWholeDocumentLinkReturnsFullRange(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"b.md": "# B\n\nSee [[a]].\n",
		"a.md": "# A\n",
	})
	clientConn, _ := startServer(t, root)
	ctx := t.Context()

	docURI := protocol.DocumentURI(uri.File(filepath.Join(root, "b.md")))
	require.NoError(t, clientConn.Notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        docURI,
			LanguageID: "markdown",
			Version:    1,
			Text:       "# B\n\nSee [[a]].\n",
		},
	}))

	var locs []protocol.Location
	_, err := clientConn.Call(ctx, protocol.MethodTextDocumentDefinition, &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
			Position:     protocol.Position{Line: 2, Character: 6},
		},
	}, &locs)
	require.NoError(t, err)
	require.Len(t, locs, 1)

	aURI := protocol.DocumentURI(uri.File(filepath.Join(root, "a.md")))
	assert.Equal(t, aURI, locs[0].URI)
	assert.Equal(t, protocol.Position{Line: 0, Character: 0}, locs[0].Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 0}, locs[0].Range.End)
}

// TestCompletionMarksIncompleteWhenCandidatesExist and
// TestCompletionRepliesNilWhenNoCandidates cover spec's completion
// contract: isIncomplete = true whenever a list is returned, and no
// result at all (not an empty list) when there is nothing to offer.
func TestCompletionMarksIncompleteWhenCandidatesExist(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"a.md": "# A\n\n[[\n",
		"b.md": "# B\n",
	})
	clientConn, _ := startServer(t, root)
	ctx := t.Context()

	docURI := protocol.DocumentURI(uri.File(filepath.Join(root, "a.md")))
	require.NoError(t, clientConn.Notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        docURI,
			LanguageID: "markdown",
			Version:    1,
			Text:       "# A\n\n[[\n",
		},
	}))

	var list protocol.CompletionList
	_, err := clientConn.Call(ctx, protocol.MethodTextDocumentCompletion, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
			Position:     protocol.Position{Line: 2, Character: 2},
		},
	}, &list)
	require.NoError(t, err)
	assert.True(t, list.IsIncomplete)
	assert.NotEmpty(t, list.Items)
}

// TestCompletionRepliesNilWhenNoCandidates exercises the
// "[[doc#" heading-completion branch with a doc name that matches no
// document at all, so no heading candidates exist.
func TestCompletionRepliesNilWhenNoCandidates(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"a.md": "# A\n\n[[missing#\n",
	})
	clientConn, _ := startServer(t, root)
	ctx := t.Context()

	docURI := protocol.DocumentURI(uri.File(filepath.Join(root, "a.md")))
	require.NoError(t, clientConn.Notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        docURI,
			LanguageID: "markdown",
			Version:    1,
			Text:       "# A\n\n[[missing#\n",
		},
	}))

	var raw any
	_, err := clientConn.Call(ctx, protocol.MethodTextDocumentCompletion, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
			Position:     protocol.Position{Line: 2, Character: 10},
		},
	}, &raw)
	require.NoError(t, err)
	assert.Nil(t, raw)
}
