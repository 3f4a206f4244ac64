// Package resolver implements reference resolution (spec.md §4.6):
// turning a WikiLink or InlineRef's textual target into zero, one, or
// many candidate documents and headings within a Folder.
package resolver

import (
	"sort"
	"strings"

	"github.com/wikilsp/wikilsp/internal/workspace/document"
	"github.com/wikilsp/wikilsp/internal/workspace/folder"
	"github.com/wikilsp/wikilsp/internal/workspace/markdown"
)

// Target is a resolved reference endpoint: a document, optionally
// narrowed to one of its headings.
type Target struct {
	Document *document.Document
	Heading  *markdown.Heading // nil when the reference targets the whole document
}

// Result carries every candidate Target a reference resolved to, plus
// whether the heading portion (if any) was found at all. Resolution is
// ambiguous when len(Targets) > 1.
type Result struct {
	Targets      []Target
	DocUnresolved bool // true when no document matched TargetDoc at all
	HeadingMissing bool // true when a document matched but the requested heading did not
}

// Ambiguous reports whether this reference has more than one candidate
// document, per spec.md §4.7's AmbiguousReferenceTarget diagnostic.
func (r Result) Ambiguous() bool { return len(r.Targets) > 1 }

// Resolved reports whether resolution produced exactly one usable
// target (a document, and a heading if one was requested).
func (r Result) Resolved() bool { return len(r.Targets) == 1 }

// ResolveWikiLink resolves a WikiLink found inside fromDoc against f.
func ResolveWikiLink(f *folder.Folder, fromDoc *document.Document, link *markdown.WikiLink) Result {
	return resolve(f, fromDoc, link.TargetDoc, link.TargetHeading)
}

// ResolveInlineRef resolves an InlineRef found inside fromDoc against f.
func ResolveInlineRef(f *folder.Folder, fromDoc *document.Document, ref *markdown.InlineRef) Result {
	return resolve(f, fromDoc, ref.TargetDoc, ref.TargetHeading)
}

// resolve implements spec.md §4.6's four rules in order:
//  1. [[#heading]] (targetDoc == nil) resolves within fromDoc only.
//  2. [[doc]] / [[doc#heading]] matches every document in the folder
//     whose basename (case-insensitive, .md stripped) equals targetDoc.
//  3. Multiple document matches are all kept as candidates (ambiguous).
//  4. A "#heading" suffix narrows each document candidate to the
//     heading within it whose text matches case-insensitively; a
//     document candidate that lacks a matching heading is dropped and,
//     if no candidate is left, HeadingMissing is reported.
func resolve(f *folder.Folder, fromDoc *document.Document, targetDoc, targetHeading *string) Result {
	var docs []*document.Document
	if targetDoc == nil {
		docs = []*document.Document{fromDoc}
	} else {
		docs = f.DocumentsNamed(strings.TrimSuffix(*targetDoc, ".md"))
	}

	if len(docs) == 0 {
		return Result{DocUnresolved: true}
	}

	if targetHeading == nil {
		targets := make([]Target, 0, len(docs))
		for _, d := range docs {
			targets = append(targets, Target{Document: d})
		}
		return Result{Targets: targets}
	}

	var targets []Target
	anyDocMatched := len(docs) > 0
	for _, d := range docs {
		if h := findHeading(d, *targetHeading); h != nil {
			targets = append(targets, Target{Document: d, Heading: h})
		}
	}

	if len(targets) == 0 {
		return Result{HeadingMissing: anyDocMatched}
	}
	return Result{Targets: targets}
}

// findHeading returns the first heading (pre-order) in d whose text
// matches name case-insensitively after trimming both, or nil.
func findHeading(d *document.Document, name string) *markdown.Heading {
	for _, h := range d.Headings() {
		if strings.EqualFold(strings.TrimSpace(h.Text), strings.TrimSpace(name)) {
			return h
		}
	}
	return nil
}

// CompletionCandidates returns every document name in f usable as the
// targetDoc portion of a wiki-link, deduplicated case-insensitively and
// sorted case-insensitively by name, for
// spec.md §4.8 completion support.
func CompletionCandidates(f *folder.Folder) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range f.SortedDocuments() {
		name := d.Path.Base()
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

// HeadingCompletionCandidates returns every heading text defined in doc,
// in document order, for completing the "#heading" suffix of a
// wiki-link that targets doc.
func HeadingCompletionCandidates(doc *document.Document) []string {
	var out []string
	for _, h := range doc.Headings() {
		out = append(out, h.Text)
	}
	return out
}
