// Package lspserver implements a Language Server Protocol server for
// Markdown note collections ("wikis"): it indexes workspace folders of
// .md files, tracks headings and cross-note references, and answers
// editor queries while continuously publishing diagnostics for broken
// references.
//
// Transport: stdio only (--stdio). Protocol: LSP 3.16 types via
// go.lsp.dev/protocol, JSON-RPC via go.lsp.dev/jsonrpc2.
package lspserver

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/wikilsp/wikilsp/internal/config"
	"github.com/wikilsp/wikilsp/internal/version"
	"github.com/wikilsp/wikilsp/internal/workspace/publishq"
	"github.com/wikilsp/wikilsp/internal/workspace/state"
	"github.com/wikilsp/wikilsp/internal/workspace/werrors"
)

const serverName = "wikilsp"

// Method names not exported by go.lsp.dev/protocol v0.12.0.
const (
	methodWorkspaceDidCreateFiles = "workspace/didCreateFiles"
	methodWorkspaceDidDeleteFiles = "workspace/didDeleteFiles"
)

// Server is the wiki LSP server.
type Server struct {
	conn    jsonrpc2.Conn
	open    *OpenDocuments
	manager *state.Manager
	queue   *publishq.Queue

	hierarchicalSymbols bool
}

// New creates a new LSP server.
func New() *Server {
	return &Server{
		open:    NewOpenDocuments(),
		manager: state.NewManager(),
		queue:   publishq.New(),
	}
}

// RunStdio starts the LSP server on stdin/stdout. It blocks until the
// connection is closed or the context is cancelled.
func (s *Server) RunStdio(ctx context.Context) error {
	stream := jsonrpc2.NewStream(stdioReadWriteCloser{})
	conn := jsonrpc2.NewConn(stream)
	s.conn = conn

	go s.queue.Run(ctx, s.deliverPublish)

	conn.Go(ctx, jsonrpc2.AsyncHandler(jsonrpc2.ReplyHandler(s.handle)))

	select {
	case <-ctx.Done():
		return conn.Close()
	case <-conn.Done():
		return conn.Err()
	}
}

// handle dispatches incoming JSON-RPC messages to the appropriate handler.
// Before initialize has committed a state, every method other than
// initialize, shutdown and exit is answered with werrors.ErrNotInitialized.
func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if !s.manager.Initialized() {
		switch req.Method() {
		case protocol.MethodInitialize, protocol.MethodShutdown, protocol.MethodExit:
		default:
			return reply(ctx, nil, werrors.ErrNotInitialized)
		}
	}

	switch req.Method() {
	// Lifecycle
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, reply, req)
	case protocol.MethodInitialized:
		s.queue.Start()
		return reply(ctx, nil, nil)
	case protocol.MethodShutdown:
		s.queue.Stop()
		return reply(ctx, nil, nil)
	case protocol.MethodExit:
		return s.conn.Close()
	case protocol.MethodSetTrace:
		return reply(ctx, nil, nil)

	// Document sync
	case protocol.MethodTextDocumentDidOpen:
		return s.handleDidOpen(ctx, reply, req)
	case protocol.MethodTextDocumentDidChange:
		return s.handleDidChange(ctx, reply, req)
	case protocol.MethodTextDocumentDidSave:
		return s.handleDidSave(ctx, reply, req)
	case protocol.MethodTextDocumentDidClose:
		return s.handleDidClose(ctx, reply, req)

	// Language features
	case protocol.MethodTextDocumentDocumentSymbol:
		return s.handleDocumentSymbol(ctx, reply, req)
	case protocol.MethodTextDocumentCompletion:
		return s.handleCompletion(ctx, reply, req)
	case protocol.MethodTextDocumentDefinition:
		return s.handleDefinition(ctx, reply, req)
	case protocol.MethodTextDocumentHover:
		return s.handleHover(ctx, reply, req)

	// Workspace
	case protocol.MethodWorkspaceDidChangeConfiguration:
		return reply(ctx, nil, nil)
	case protocol.MethodWorkspaceDidChangeWorkspaceFolders:
		return s.handleDidChangeWorkspaceFolders(ctx, reply, req)
	case methodWorkspaceDidCreateFiles:
		return s.handleDidCreateFiles(ctx, reply, req)
	case methodWorkspaceDidDeleteFiles:
		return s.handleDidDeleteFiles(ctx, reply, req)

	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

// handleInitialize responds to the initialize request with server
// capabilities and loads every advertised workspace folder.
func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	log.Printf("lsp: initialize from %s", clientInfoString(params.ClientInfo))

	s.hierarchicalSymbols = params.Capabilities.TextDocument != nil &&
		params.Capabilities.TextDocument.DocumentSymbol.HierarchicalDocumentSymbolSupport

	roots, err := resolveWorkspaceRoots(params)
	if err != nil {
		return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
	}

	next := s.manager.Current()
	next.ClientCaps = params.Capabilities
	if len(roots) > 0 {
		cfg, err := config.Load(roots[0].path.Canonical)
		if err != nil {
			log.Printf("lsp: failed to load %s config, using defaults: %v", roots[0].path, err)
			cfg = config.Default()
		}
		next.Diagnostics.ReportAmbiguousReferences = cfg.AmbiguousReferenceDiagnostics
	}
	for _, root := range roots {
		if f, ok := loadFolder(root); ok {
			next = next.WithFolder(&f)
		} else {
			log.Printf("lsp: workspace folder %s does not exist on disk", root.name)
		}
	}
	s.commit(ctx, next)

	result := protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindIncremental,
			},
			Workspace: &protocol.ServerCapabilitiesWorkspace{
				WorkspaceFolders: &protocol.ServerCapabilitiesWorkspaceFolders{
					Supported:           true,
					ChangeNotifications: "true",
				},
				FileOperations: &protocol.ServerCapabilitiesWorkspaceFileOperations{
					DidCreate: &protocol.FileOperationRegistrationOptions{
						Filters: []protocol.FileOperationFilter{markdownFileFilter()},
					},
					DidDelete: &protocol.FileOperationRegistrationOptions{
						Filters: []protocol.FileOperationFilter{markdownFileFilter()},
					},
				},
			},
			DocumentSymbolProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"[", ":", "|", "@"},
			},
			DefinitionProvider: true,
			HoverProvider:      true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    serverName,
			Version: version.RawVersion(),
		},
	}

	return reply(ctx, result, nil)
}

func markdownFileFilter() protocol.FileOperationFilter {
	return protocol.FileOperationFilter{
		Pattern: protocol.FileOperationPattern{
			Glob:    "**/*.md",
			Matches: protocol.FileOperationPatternKindFile,
		},
	}
}

// replyParseError sends a JSON-RPC parse error.
func replyParseError(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.ParseError, "invalid params: %v", err))
}

// clientInfoString formats client info for logging.
func clientInfoString(info *protocol.ClientInfo) string {
	if info == nil {
		return "unknown"
	}
	if info.Version != "" {
		return info.Name + " " + info.Version
	}
	return info.Name
}

// stdioReadWriteCloser wraps stdin/stdout as an io.ReadWriteCloser for JSON-RPC.
type stdioReadWriteCloser struct{}

func (stdioReadWriteCloser) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioReadWriteCloser) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioReadWriteCloser) Close() error                { return nil }
