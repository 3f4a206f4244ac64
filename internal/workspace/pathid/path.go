// Package pathid gives every document a canonical identity across OS path
// conventions and file:// URIs, the way go.lsp.dev/uri gives the teacher's
// transport layer URI<->filesystem-path conversions in internal/lspserver.
package pathid

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"go.lsp.dev/uri"

	"github.com/wikilsp/wikilsp/internal/workspace/werrors"
)

// Path carries both the URI form a client gave us (preserved verbatim for
// round-tripping back to the client) and a canonical absolute filesystem
// path used for equality, hashing, and disk access.
type Path struct {
	// URI is the original URI string as received, unmodified.
	URI string
	// Canonical is the absolute, slash-normalized, percent-decoded
	// filesystem path.
	Canonical string
}

// caseInsensitiveFS reports whether the current platform's filesystem is
// conventionally case-insensitive. Comparisons fold case only here.
func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// Parse accepts either a file:// URI or an absolute filesystem path and
// produces a Path. It fails with werrors.ErrBadPath when raw is neither.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return Path{}, fmt.Errorf("%w: empty input", werrors.ErrBadPath)
	}

	if looksLikeURI(raw) {
		u, err := url.Parse(raw)
		if err != nil {
			return Path{}, fmt.Errorf("%w: %v", werrors.ErrBadPath, err)
		}
		if u.Scheme != "file" {
			return Path{}, fmt.Errorf("%w: unsupported scheme %q", werrors.ErrBadPath, u.Scheme)
		}
		fsPath := uri.URI(raw).Filename()
		if fsPath == "" {
			return Path{}, fmt.Errorf("%w: empty file path in %q", werrors.ErrBadPath, raw)
		}
		return Path{URI: raw, Canonical: canonicalize(fsPath)}, nil
	}

	if !filepath.IsAbs(raw) {
		return Path{}, fmt.Errorf("%w: %q is not an absolute path or file:// URI", werrors.ErrBadPath, raw)
	}
	canon := canonicalize(raw)
	return Path{URI: string(uri.File(canon)), Canonical: canon}, nil
}

// FromParts builds a Path from a known root-relative filesystem path,
// deriving a synthetic file:// URI for it. Used by folder scans, where
// there is no client-supplied URI to preserve.
func FromParts(fsPath string) Path {
	canon := canonicalize(fsPath)
	return Path{URI: string(uri.File(canon)), Canonical: canon}
}

func looksLikeURI(raw string) bool {
	idx := strings.Index(raw, "://")
	return idx > 0 && idx < 10
}

// canonicalize normalizes separators, resolves "..", and on Windows
// upper-cases the drive letter so two spellings of the same path compare
// equal after CanonicalKey.
func canonicalize(fsPath string) string {
	clean := filepath.Clean(filepath.FromSlash(fsPath))
	if runtime.GOOS == "windows" && len(clean) >= 2 && clean[1] == ':' {
		clean = strings.ToUpper(clean[:1]) + clean[1:]
	}
	return clean
}

// CanonicalKey returns the string used for map keys and equality. On
// case-insensitive filesystems it is lower-cased; the original casing in
// Canonical is preserved for display and disk access.
func (p Path) CanonicalKey() string {
	if caseInsensitiveFS() {
		return strings.ToLower(p.Canonical)
	}
	return p.Canonical
}

// Equal reports whether two Paths refer to the same file.
func (p Path) Equal(other Path) bool {
	return p.CanonicalKey() == other.CanonicalKey()
}

// Base returns the file's basename without its extension, the "note
// name" used for wiki-link target matching.
func (p Path) Base() string {
	base := filepath.Base(p.Canonical)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Under reports whether p lies within root (inclusive of root itself).
func (p Path) Under(root Path) bool {
	rel, err := filepath.Rel(root.Canonical, p.Canonical)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// String returns the canonical filesystem path.
func (p Path) String() string {
	return p.Canonical
}
