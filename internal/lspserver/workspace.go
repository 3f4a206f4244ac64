package lspserver

import (
	"context"
	"log"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/wikilsp/wikilsp/internal/config"
	"github.com/wikilsp/wikilsp/internal/workspace/folder"
	"github.com/wikilsp/wikilsp/internal/workspace/pathid"
	"github.com/wikilsp/wikilsp/internal/workspace/state"
	"github.com/wikilsp/wikilsp/internal/workspace/werrors"
)

// workspaceRoot pairs a folder's display name with its resolved path.
type workspaceRoot struct {
	name string
	path pathid.Path
}

// resolveWorkspaceRoots implements spec.md §6's fallback chain:
// workspaceFolders, then rootUri, then rootPath. ErrNoWorkspace if none
// resolve to anything.
func resolveWorkspaceRoots(params protocol.InitializeParams) ([]workspaceRoot, error) {
	if len(params.WorkspaceFolders) > 0 {
		roots := make([]workspaceRoot, 0, len(params.WorkspaceFolders))
		for _, wf := range params.WorkspaceFolders {
			p, err := pathid.Parse(string(wf.URI))
			if err != nil {
				continue
			}
			roots = append(roots, workspaceRoot{name: wf.Name, path: p})
		}
		if len(roots) > 0 {
			return roots, nil
		}
	}

	if params.RootURI != "" {
		p, err := pathid.Parse(string(params.RootURI))
		if err != nil {
			return nil, err
		}
		return []workspaceRoot{{name: p.Base(), path: p}}, nil
	}

	if params.RootPath != "" {
		p, err := pathid.Parse(params.RootPath)
		if err != nil {
			return nil, err
		}
		return []workspaceRoot{{name: p.Base(), path: p}}, nil
	}

	return nil, werrors.ErrNoWorkspace
}

// loadFolder wraps folder.TryLoadWithOptions, layering any
// .wikilsp.yaml found at root over the built-in include/exclude
// defaults.
func loadFolder(root workspaceRoot) (folder.Folder, bool) {
	cfg, err := config.Load(root.path.Canonical)
	if err != nil {
		log.Printf("lsp: failed to load %s config, using defaults: %v", root.path, err)
		cfg = config.Default()
	}
	return folder.TryLoadWithOptions(root.name, root.path, folder.Options{
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
}

// commit pushes next through the state manager and enqueues every
// resulting Publish onto the server's publish queue. It is the single
// choke point every handler that mutates workspace state goes through,
// mirroring the teacher's read -> mutate -> re-lint -> publish
// discipline generalized from a flat DocumentStore to the folder/state
// pipeline.
func (s *Server) commit(_ context.Context, next state.State) {
	for _, p := range s.manager.Update(next) {
		s.queue.Enqueue(p)
	}
}

// findOwningFolder returns the folder that tracks or contains uri's
// canonical path, together with that parsed path. The folder is nil when
// no folder owns the path; the path is zero when uri does not parse.
func findOwningFolder(st state.State, docURI string) (*folder.Folder, pathid.Path) {
	p, err := pathid.Parse(docURI)
	if err != nil {
		return nil, pathid.Path{}
	}
	for _, f := range st.Folders {
		if f.Get(p) != nil {
			return f, p
		}
		if p.Under(f.Root) {
			return f, p
		}
	}
	return nil, p
}

// isMarkdownPath reports whether p's basename matches *.md
// case-insensitively, the inclusion test the document-sync and
// didCreateFiles/didDeleteFiles handlers apply. The initial folder scan
// additionally honours the configured Include/Exclude globs.
func isMarkdownPath(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".md")
}
