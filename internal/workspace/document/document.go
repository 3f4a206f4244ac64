// Package document couples a text buffer with its parsed element tree,
// the way spec.md §3/§4.4 describes. A Document is immutable; every
// mutation (Load, FromOpen, ApplyChange) produces a new value.
package document

import (
	"fmt"
	"os"

	"github.com/wikilsp/wikilsp/internal/workspace/markdown"
	"github.com/wikilsp/wikilsp/internal/workspace/pathid"
	"github.com/wikilsp/wikilsp/internal/workspace/textbuf"
	"github.com/wikilsp/wikilsp/internal/workspace/werrors"
)

// Document couples a text buffer with its derived element tree.
type Document struct {
	Root     pathid.Path
	Path     pathid.Path
	Text     textbuf.Buffer
	Elements []markdown.Element
}

func build(root, path pathid.Path, text textbuf.Buffer) (Document, error) {
	if !path.Under(root) {
		return Document{}, fmt.Errorf("%w: %s not under %s", werrors.ErrPathEscapesRoot, path, root)
	}
	return Document{
		Root:     root,
		Path:     path,
		Text:     text,
		Elements: markdown.Parse(text),
	}, nil
}

// Load reads path's file contents from disk and parses it.
func Load(root, path pathid.Path) (Document, error) {
	contents, err := os.ReadFile(path.Canonical)
	if err != nil {
		return Document{}, werrors.NewIOError(path.Canonical, err)
	}
	return build(root, path, textbuf.New(string(contents)))
}

// FromOpen constructs a Document from text supplied by an LSP
// textDocument/didOpen notification (no disk read).
func FromOpen(root, path pathid.Path, text string) (Document, error) {
	return build(root, path, textbuf.New(text))
}

// ApplyChange applies a batch of LSP content-change edits to doc's
// buffer and re-parses elements, returning a new Document.
func ApplyChange(doc Document, edits []textbuf.Edit) (Document, error) {
	newBuf, err := doc.Text.ApplyEdits(edits)
	if err != nil {
		return Document{}, err
	}
	return build(doc.Root, doc.Path, newBuf)
}

// ReplaceText rebuilds doc with a complete replacement text, used for
// didChange content changes that carry no range (full-document sync).
func ReplaceText(doc Document, text string) (Document, error) {
	return build(doc.Root, doc.Path, textbuf.New(text))
}

// Headings returns the document's heading elements at every nesting
// depth in a pre-order traversal convenient for resolver lookups and document
// symbols: every *markdown.Heading reachable from Elements, depth-first.
func (d Document) Headings() []*markdown.Heading {
	var out []*markdown.Heading
	markdown.Walk(d.Elements, func(el markdown.Element) {
		if h, ok := el.(*markdown.Heading); ok {
			out = append(out, h)
		}
	})
	return out
}

// Links returns every WikiLink and InlineRef element in the document, in
// document order, regardless of nesting depth under headings.
func (d Document) Links() []markdown.Element {
	var out []markdown.Element
	markdown.Walk(d.Elements, func(el markdown.Element) {
		if el.Kind() == markdown.KindWikiLink || el.Kind() == markdown.KindInlineRef {
			out = append(out, el)
		}
	})
	return out
}
