// Package werrors defines the sentinel error kinds shared across the
// workspace packages. Handlers in internal/lspserver match against these
// with errors.Is/errors.As rather than inspecting package-specific types.
package werrors

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is the error the LSP server replies with when a
// request other than initialize, shutdown or exit arrives before the
// state manager has received its first successful Update.
var ErrNotInitialized = errors.New("workspace: not initialized")

// ErrNoWorkspace is returned during initialize when workspaceFolders,
// rootUri, and rootPath are all absent.
var ErrNoWorkspace = errors.New("workspace: no workspace folder resolvable")

// ErrBadPath is returned by pathid.Parse when given an unparseable URI
// or a non-absolute filesystem path.
var ErrBadPath = errors.New("workspace: unparseable path or URI")

// ErrInvalidEdit is returned by textbuf.Buffer.ApplyEdits when the caller
// violates the non-overlapping, start-sorted contract.
var ErrInvalidEdit = errors.New("workspace: invalid or unordered edit batch")

// ErrPathEscapesRoot is returned when a document's path does not lie
// under its folder's root.
var ErrPathEscapesRoot = errors.New("workspace: document path escapes folder root")

// IOError wraps a filesystem failure for a specific path. Callers that
// encounter it during a folder scan or didCreate/didClose reload log it
// and continue rather than aborting the operation.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("workspace: io error for %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError wraps err with the path that failed to read.
func NewIOError(path string, err error) *IOError {
	return &IOError{Path: path, Err: err}
}

// UnknownDocumentError describes an operation that targets a document
// URI not tracked by any folder. The lspserver handlers do not construct
// or log it: for an untracked document they reply with an empty result
// without logging.
type UnknownDocumentError struct {
	URI string
}

func (e *UnknownDocumentError) Error() string {
	return fmt.Sprintf("workspace: unknown document %s", e.URI)
}

// NewUnknownDocumentError builds an UnknownDocumentError for uri.
func NewUnknownDocumentError(uri string) *UnknownDocumentError {
	return &UnknownDocumentError{URI: uri}
}
