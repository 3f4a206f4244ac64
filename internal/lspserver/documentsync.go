package lspserver

import (
	"context"
	"encoding/json"
	"log"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/wikilsp/wikilsp/internal/workspace/document"
	"github.com/wikilsp/wikilsp/internal/workspace/folder"
	"github.com/wikilsp/wikilsp/internal/workspace/pathid"
	"github.com/wikilsp/wikilsp/internal/workspace/textbuf"
)

// handleDidOpen handles textDocument/didOpen: the document becomes
// client-owned (its content is whatever the client says it is, not what
// is on disk) until didClose.
func (s *Server) handleDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	docURI := string(params.TextDocument.URI)
	s.open.Mark(docURI, params.TextDocument.Version)

	if !isMarkdownPath(docURI) {
		return reply(ctx, nil, nil)
	}

	cur := s.manager.Current()
	f, path := findOwningFolder(cur, docURI)
	if f == nil {
		log.Printf("lsp: didOpen for %s outside any workspace folder", docURI)
		return reply(ctx, nil, nil)
	}

	doc, err := document.FromOpen(f.Root, path, params.TextDocument.Text)
	if err != nil {
		log.Printf("lsp: didOpen build error for %s: %v", docURI, err)
		return reply(ctx, nil, nil)
	}

	next := cur.WithFolder(applyToFolder(f, doc))
	s.commit(ctx, next)
	return reply(ctx, nil, nil)
}

// handleDidChange applies an incremental (or full, if the client ignores
// our advertised capability) edit batch and re-derives the document.
func (s *Server) handleDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	docURI := string(params.TextDocument.URI)
	s.open.Mark(docURI, params.TextDocument.Version)

	if !isMarkdownPath(docURI) {
		return reply(ctx, nil, nil)
	}

	cur := s.manager.Current()
	f, path := findOwningFolder(cur, docURI)
	if f == nil {
		log.Printf("lsp: didChange for %s outside any workspace folder", docURI)
		return reply(ctx, nil, nil)
	}

	existing := f.Get(path)
	if existing == nil {
		log.Printf("lsp: didChange for untracked document %s", docURI)
		return reply(ctx, nil, nil)
	}

	var changes struct {
		ContentChanges []contentChange `json:"contentChanges"`
	}
	if err := json.Unmarshal(req.Params(), &changes); err != nil {
		return replyParseError(ctx, reply, err)
	}

	updated, err := applyContentChanges(*existing, changes.ContentChanges)
	if err != nil {
		log.Printf("lsp: didChange apply error for %s: %v", docURI, err)
		return reply(ctx, nil, nil)
	}

	next := cur.WithFolder(applyToFolder(f, updated))
	s.commit(ctx, next)
	return reply(ctx, nil, nil)
}

// contentChange is one didChange content change, decoded with a pointer
// Range so that a change without a range can be told apart from an edit
// at the very start of the document.
type contentChange struct {
	Range *protocol.Range `json:"range,omitempty"`
	Text  string          `json:"text"`
}

// applyContentChanges applies a batch of LSP content changes to doc.
// A change with a nil Range is a full-document replacement; otherwise
// every change in the batch is treated as an incremental textbuf.Edit.
func applyContentChanges(doc document.Document, changes []contentChange) (document.Document, error) {
	for _, c := range changes {
		if c.Range == nil {
			updated, err := document.ReplaceText(doc, c.Text)
			if err != nil {
				return document.Document{}, err
			}
			doc = updated
			continue
		}
		edit := textbuf.Edit{Range: fromProtocolRange(*c.Range), NewText: c.Text}
		updated, err := document.ApplyChange(doc, []textbuf.Edit{edit})
		if err != nil {
			return document.Document{}, err
		}
		doc = updated
	}
	return doc, nil
}

// handleDidSave re-derives the document from the saved text when the
// client includes it (we don't request includeText, but honor it if a
// client sends it anyway), or leaves state untouched otherwise: saving
// doesn't change content the server doesn't already have via didChange.
func (s *Server) handleDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	if params.Text == "" {
		return reply(ctx, nil, nil)
	}

	docURI := string(params.TextDocument.URI)
	if !isMarkdownPath(docURI) {
		return reply(ctx, nil, nil)
	}

	cur := s.manager.Current()
	f, path := findOwningFolder(cur, docURI)
	if f == nil {
		return reply(ctx, nil, nil)
	}

	doc, err := document.FromOpen(f.Root, path, params.Text)
	if err != nil {
		log.Printf("lsp: didSave build error for %s: %v", docURI, err)
		return reply(ctx, nil, nil)
	}

	next := cur.WithFolder(applyToFolder(f, doc))
	s.commit(ctx, next)
	return reply(ctx, nil, nil)
}

// handleDidClose reloads the document from disk if it still exists
// there, or removes it from the folder index entirely, per spec.md §6.
func (s *Server) handleDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	docURI := string(params.TextDocument.URI)
	s.open.Unmark(docURI)

	if !isMarkdownPath(docURI) {
		return reply(ctx, nil, nil)
	}

	cur := s.manager.Current()
	f, path := findOwningFolder(cur, docURI)
	if f == nil {
		return reply(ctx, nil, nil)
	}

	doc, err := document.Load(f.Root, path)
	next := cur.WithFolder(removeFromFolder(f, path))
	if err == nil {
		next = cur.WithFolder(applyToFolder(f, doc))
	}
	s.commit(ctx, next)
	return reply(ctx, nil, nil)
}

// applyToFolder returns a *folder.Folder reflecting f plus doc.
func applyToFolder(f *folder.Folder, doc document.Document) *folder.Folder {
	updated := f.UpdateDocument(doc)
	return &updated
}

// removeFromFolder returns a *folder.Folder reflecting f with path's
// document removed.
func removeFromFolder(f *folder.Folder, path pathid.Path) *folder.Folder {
	updated := f.RemoveDocument(path)
	return &updated
}
