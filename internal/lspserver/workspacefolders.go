package lspserver

import (
	"context"
	"encoding/json"
	"log"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/wikilsp/wikilsp/internal/workspace/document"
	"github.com/wikilsp/wikilsp/internal/workspace/pathid"
)

// handleDidChangeWorkspaceFolders adds and removes Folders from the
// state as the client's workspace membership changes.
func (s *Server) handleDidChangeWorkspaceFolders(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeWorkspaceFoldersParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	next := s.manager.Current()

	for _, removed := range params.Event.Removed {
		next = next.WithoutFolder(removed.Name)
	}
	for _, added := range params.Event.Added {
		p, err := pathid.Parse(string(added.URI))
		if err != nil {
			log.Printf("lsp: ignoring added workspace folder %s: %v", added.URI, err)
			continue
		}
		if f, ok := loadFolder(workspaceRoot{name: added.Name, path: p}); ok {
			next = next.WithFolder(&f)
		} else {
			log.Printf("lsp: added workspace folder %s does not exist on disk", added.URI)
		}
	}

	s.commit(ctx, next)
	return reply(ctx, nil, nil)
}

// handleDidCreateFiles indexes newly created Markdown files into their
// owning folder.
func (s *Server) handleDidCreateFiles(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CreateFilesParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	next := s.manager.Current()
	for _, file := range params.Files {
		if !isMarkdownPath(file.URI) {
			continue
		}
		f, path := findOwningFolder(next, file.URI)
		if f == nil {
			continue
		}
		doc, err := document.Load(f.Root, path)
		if err != nil {
			log.Printf("lsp: didCreateFiles load error for %s: %v", file.URI, err)
			continue
		}
		next = next.WithFolder(applyToFolder(f, doc))
	}

	s.commit(ctx, next)
	return reply(ctx, nil, nil)
}

// handleDidDeleteFiles removes deleted Markdown files from their owning
// folder's index.
func (s *Server) handleDidDeleteFiles(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DeleteFilesParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	next := s.manager.Current()
	for _, file := range params.Files {
		if !isMarkdownPath(file.URI) {
			continue
		}
		f, path := findOwningFolder(next, file.URI)
		if f == nil {
			continue
		}
		next = next.WithFolder(removeFromFolder(f, path))
	}

	s.commit(ctx, next)
	return reply(ctx, nil, nil)
}
