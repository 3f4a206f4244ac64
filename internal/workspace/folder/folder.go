// Package folder maps document paths to Documents within one workspace
// root: loading from disk, and applying add/update/remove operations as
// new Folder values, mirroring the teacher's DocumentStore shape
// (internal/lspserver/documents.go) generalized from a flat open-document
// map to a full recursive directory index.
package folder

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wikilsp/wikilsp/internal/workspace/document"
	"github.com/wikilsp/wikilsp/internal/workspace/pathid"
)

// mdGlob is the case-insensitive inclusion pattern spec.md §4.5/§6
// mandates. doublestar.Match itself is case-sensitive, so both the
// pattern and the candidate path are lower-cased before matching.
const mdGlob = "**/*.md"

// Folder maps canonical document paths to Documents within one root.
type Folder struct {
	Name      string
	Root      pathid.Path
	Documents map[string]*document.Document // keyed by Path.CanonicalKey()
}

// Options configures which files TryLoad indexes beyond the mandatory
// **/*.md pattern, sourced from internal/config.Config.
type Options struct {
	Include []string
	Exclude []string
}

// TryLoad recursively scans root for files matching **/*.md (plus any
// configured Include patterns, minus any Exclude patterns),
// case-insensitively, constructing a Document for each. It returns
// (Folder{}, false) if root does not exist on disk. A root that exists
// but contains no Markdown files still returns (Folder{}, true) with an
// empty Documents map, per spec.md §4.5/§9.
func TryLoad(name string, root pathid.Path) (Folder, bool) {
	return TryLoadWithOptions(name, root, Options{})
}

// TryLoadWithOptions is TryLoad generalized with include/exclude globs.
func TryLoadWithOptions(name string, root pathid.Path, opts Options) (Folder, bool) {
	info, err := os.Stat(root.Canonical)
	if err != nil || !info.IsDir() {
		return Folder{}, false
	}

	f := Folder{Name: name, Root: root, Documents: make(map[string]*document.Document)}
	visited := make(map[string]struct{})

	_ = filepath.WalkDir(root.Canonical, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("workspace: folder scan error at %s: %v", walkPath, err)
			return nil
		}
		if d.IsDir() {
			canon, lerr := filepath.EvalSymlinks(walkPath)
			if lerr != nil {
				canon = walkPath
			}
			if _, seen := visited[canon]; seen {
				return filepath.SkipDir
			}
			visited[canon] = struct{}{}
			return nil
		}

		rel, rerr := filepath.Rel(root.Canonical, walkPath)
		if rerr != nil {
			return nil
		}
		if !includePath(rel, opts) || excludePath(rel, opts) {
			return nil
		}

		docPath := pathid.FromParts(walkPath)
		doc, derr := document.Load(root, docPath)
		if derr != nil {
			log.Printf("workspace: skipping unreadable document %s: %v", walkPath, derr)
			return nil
		}
		f.Documents[docPath.CanonicalKey()] = &doc
		return nil
	})

	return f, true
}

func includePath(relPath string, opts Options) bool {
	if matchesGlob(mdGlob, relPath) {
		return true
	}
	for _, pattern := range opts.Include {
		if matchesGlob(pattern, relPath) {
			return true
		}
	}
	return false
}

func excludePath(relPath string, opts Options) bool {
	for _, pattern := range opts.Exclude {
		if matchesGlob(pattern, relPath) {
			return true
		}
	}
	return false
}

func matchesGlob(pattern, relPath string) bool {
	normalized := strings.ToLower(filepath.ToSlash(relPath))
	ok, err := doublestar.Match(strings.ToLower(pattern), normalized)
	return err == nil && ok
}

// UpdateDocument returns a new Folder with doc inserted or replaced.
func (f Folder) UpdateDocument(doc document.Document) Folder {
	next := f.clone()
	next.Documents[doc.Path.CanonicalKey()] = &doc
	return next
}

// RemoveDocument returns a new Folder with path's document removed.
// Invariant 3 (spec.md §8): UpdateDocument(f, d) then
// RemoveDocument(f, d.Path) yields a Folder equal to one without d.
func (f Folder) RemoveDocument(path pathid.Path) Folder {
	next := f.clone()
	delete(next.Documents, path.CanonicalKey())
	return next
}

// Get returns the document at path, or nil if not present.
func (f Folder) Get(path pathid.Path) *document.Document {
	return f.Documents[path.CanonicalKey()]
}

// clone makes a shallow copy of the Documents map; individual Document
// values are themselves immutable, so only the map needs a new backing
// store to keep "new Folder value" semantics without deep-cloning.
func (f Folder) clone() Folder {
	docs := make(map[string]*document.Document, len(f.Documents))
	for k, v := range f.Documents {
		docs[k] = v
	}
	return Folder{Name: f.Name, Root: f.Root, Documents: docs}
}

// SortedDocuments returns the folder's documents ordered by canonical
// path, the tie-break spec.md §4.6 rule 2 and §9 pin for basename
// collisions.
func (f Folder) SortedDocuments() []*document.Document {
	out := make([]*document.Document, 0, len(f.Documents))
	for _, d := range f.Documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path.Canonical < out[j].Path.Canonical })
	return out
}

// DocumentsNamed returns, in sorted canonical-path order, every document
// whose basename (without .md) matches name case-insensitively.
func (f Folder) DocumentsNamed(name string) []*document.Document {
	var out []*document.Document
	for _, d := range f.SortedDocuments() {
		if strings.EqualFold(d.Path.Base(), name) {
			out = append(out, d)
		}
	}
	return out
}
