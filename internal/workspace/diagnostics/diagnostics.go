// Package diagnostics computes the set of problems to report for every
// document in a Folder, per spec.md §4.7.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wikilsp/wikilsp/internal/workspace/document"
	"github.com/wikilsp/wikilsp/internal/workspace/folder"
	"github.com/wikilsp/wikilsp/internal/workspace/markdown"
	"github.com/wikilsp/wikilsp/internal/workspace/resolver"
	"github.com/wikilsp/wikilsp/internal/workspace/textbuf"
)

// Severity mirrors the first three levels of LSP's DiagnosticSeverity
// enum; the rules in this package emit Warning and Information.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
)

// Code identifies which rule produced a Diagnostic, used both for
// structural comparison in Equal and for the LSP Diagnostic.Code field.
type Code string

const (
	CodeBrokenReference          Code = "broken-reference"
	CodeAmbiguousReferenceTarget Code = "ambiguous-reference-target"
	CodeDuplicateHeading         Code = "duplicate-heading"
)

// Diagnostic is one problem found in a document.
type Diagnostic struct {
	Range    textbuf.Range
	Severity Severity
	Code     Code
	Message  string
}

// Equal reports whether two Diagnostics carry the same structural
// content, per spec.md §8's diffing requirement for publish/no-publish
// decisions.
func (d Diagnostic) Equal(o Diagnostic) bool {
	return d.Range == o.Range && d.Severity == o.Severity && d.Code == o.Code && d.Message == o.Message
}

// Set is the ordered list of Diagnostics for one document.
type Set []Diagnostic

// Equal reports whether two Sets contain the same Diagnostics, ignoring
// order (publish decisions compare sets, not sequences).
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	used := make([]bool, len(o))
	for _, d := range s {
		matched := false
		for i, od := range o {
			if used[i] {
				continue
			}
			if d.Equal(od) {
				used[i] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Options toggles which diagnostic rules Compute applies, sourced from
// internal/config.Config.
type Options struct {
	// ReportAmbiguousReferences enables the AmbiguousReferenceTarget
	// rule. Broken-reference and duplicate-heading diagnostics are
	// never optional.
	ReportAmbiguousReferences bool
}

// DefaultOptions matches internal/config.Default()'s diagnostic
// settings.
func DefaultOptions() Options { return Options{ReportAmbiguousReferences: true} }

// Compute returns the Diagnostic set for every document in f, keyed by
// canonical document path, using DefaultOptions. Documents with no
// problems still get an entry with an empty (non-nil-semantically, but
// possibly len-0) slice, since callers must be able to tell "no longer
// has diagnostics" from "never computed" per spec.md §4.7/§9.
func Compute(f *folder.Folder) map[string]Set {
	return ComputeWithOptions(f, DefaultOptions())
}

// ComputeWithOptions is Compute generalized with Options.
func ComputeWithOptions(f *folder.Folder, opts Options) map[string]Set {
	headingCounts := buildDuplicateHeadingIndex(f)

	out := make(map[string]Set, len(f.Documents))
	for _, doc := range f.SortedDocuments() {
		out[doc.Path.CanonicalKey()] = computeForDocument(f, doc, headingCounts[doc.Path.CanonicalKey()], opts)
	}
	return out
}

func computeForDocument(f *folder.Folder, doc *document.Document, dupHeadings map[string]int, opts Options) Set {
	var diags Set

	for _, el := range doc.Links() {
		switch link := el.(type) {
		case *markdown.WikiLink:
			diags = append(diags, referenceDiagnostics(resolver.ResolveWikiLink(f, doc, link), link.Range, wikiLinkLabel(link), opts)...)
		case *markdown.InlineRef:
			diags = append(diags, referenceDiagnostics(resolver.ResolveInlineRef(f, doc, link), link.Range, link.Text, opts)...)
		}
	}

	for _, h := range doc.Headings() {
		if dupHeadings[normalizeHeading(h.Text)] > 1 {
			diags = append(diags, Diagnostic{
				Range:    h.Range,
				Severity: SeverityInformation,
				Code:     CodeDuplicateHeading,
				Message:  fmt.Sprintf("heading %q appears more than once in this document", h.Text),
			})
		}
	}

	sort.Slice(diags, func(i, j int) bool { return rangeLess(diags[i].Range, diags[j].Range) })
	return diags
}

func referenceDiagnostics(res resolver.Result, r textbuf.Range, label string, opts Options) []Diagnostic {
	switch {
	case res.DocUnresolved:
		return []Diagnostic{{
			Range:    r,
			Severity: SeverityWarning,
			Code:     CodeBrokenReference,
			Message:  fmt.Sprintf("%s does not resolve to any document", label),
		}}
	case res.HeadingMissing:
		return []Diagnostic{{
			Range:    r,
			Severity: SeverityWarning,
			Code:     CodeBrokenReference,
			Message:  fmt.Sprintf("%s does not resolve to any heading", label),
		}}
	case res.Ambiguous() && opts.ReportAmbiguousReferences:
		return []Diagnostic{{
			Range:    r,
			Severity: SeverityWarning,
			Code:     CodeAmbiguousReferenceTarget,
			Message:  fmt.Sprintf("%s matches more than one document", label),
		}}
	default:
		return nil
	}
}

func wikiLinkLabel(w *markdown.WikiLink) string {
	switch {
	case w.TargetDoc == nil && w.TargetHeading != nil:
		return fmt.Sprintf("[[#%s]]", *w.TargetHeading)
	case w.TargetHeading != nil:
		return fmt.Sprintf("[[%s#%s]]", *w.TargetDoc, *w.TargetHeading)
	default:
		return fmt.Sprintf("[[%s]]", derefOr(w.TargetDoc, ""))
	}
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// buildDuplicateHeadingIndex counts, per document, how many headings
// share a normalized text, so Compute can flag every occurrence of a
// heading text that appears more than once, the first included. spec.md §4.7 scopes duplicate-heading detection to within
// a single document, not across the folder.
func buildDuplicateHeadingIndex(f *folder.Folder) map[string]map[string]int {
	out := make(map[string]map[string]int, len(f.Documents))
	for _, doc := range f.SortedDocuments() {
		counts := make(map[string]int)
		for _, h := range doc.Headings() {
			counts[normalizeHeading(h.Text)]++
		}
		out[doc.Path.CanonicalKey()] = counts
	}
	return out
}

func normalizeHeading(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rangeLess(a, b textbuf.Range) bool {
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Character < b.Start.Character
}
