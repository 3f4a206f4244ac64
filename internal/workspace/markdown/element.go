package markdown

import "github.com/wikilsp/wikilsp/internal/workspace/textbuf"

// Kind identifies which Element variant a value holds.
type Kind int

const (
	// KindHeading is an ATX heading with nested structure.
	KindHeading Kind = iota
	// KindWikiLink is a [[doc]], [[doc#heading]], or [[#heading]] span.
	KindWikiLink
	// KindInlineRef is a non-wiki Markdown link treated as a reference.
	KindInlineRef
)

// Element is one node of a document's parsed content forest. The three
// concrete types below are the variants spec.md §3 describes; callers
// switch on Kind() rather than relying on a closed Go interface set.
type Element interface {
	Kind() Kind
	SourceRange() textbuf.Range
}

// Heading is a `#`..`######` ATX heading. Range covers only the heading
// line; Scope covers the heading line plus everything until the next
// heading of equal-or-lower level (or EOF). Children holds every Element
// — headings and links alike — that textually falls within Scope and
// isn't claimed by a more deeply nested heading; heading nesting strictly
// increases along any root-to-leaf path, so callers building a symbol
// tree filter Children for KindHeading themselves.
type Heading struct {
	Level    int
	Text     string
	Range    textbuf.Range
	Scope    textbuf.Range
	Children []Element
}

func (h *Heading) Kind() Kind                  { return KindHeading }
func (h *Heading) SourceRange() textbuf.Range   { return h.Range }

// WikiLink is a [[target]] / [[target#heading]] / [[#heading]] span.
// TargetDoc is nil for [[#heading]] (link is to a heading in the
// current document). TargetHeading is nil when no "#heading" suffix was
// present.
type WikiLink struct {
	TargetDoc     *string
	TargetHeading *string
	Range         textbuf.Range
}

func (w *WikiLink) Kind() Kind                { return KindWikiLink }
func (w *WikiLink) SourceRange() textbuf.Range { return w.Range }

// InlineRef is a non-wiki Markdown link whose destination has no scheme
// (a relative path such as "note.md" or "note.md#heading"), treated as a
// reference exactly like a WikiLink per SPEC_FULL.md §4/C3.
type InlineRef struct {
	TargetDoc     *string
	TargetHeading *string
	Text          string
	Range         textbuf.Range
}

func (r *InlineRef) Kind() Kind                { return KindInlineRef }
func (r *InlineRef) SourceRange() textbuf.Range { return r.Range }

// Walk visits every element in the forest in document order, including
// nested Children, calling visit for each. Walk does not filter by kind;
// callers that want only headings (for document symbols) or only links
// (for reference resolution) filter inside visit.
func Walk(elements []Element, visit func(Element)) {
	for _, el := range elements {
		visit(el)
		if h, ok := el.(*Heading); ok {
			Walk(h.Children, visit)
		}
	}
}
