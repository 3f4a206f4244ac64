package lspserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/wikilsp/wikilsp/internal/workspace/document"
	"github.com/wikilsp/wikilsp/internal/workspace/folder"
	"github.com/wikilsp/wikilsp/internal/workspace/markdown"
	"github.com/wikilsp/wikilsp/internal/workspace/resolver"
	"github.com/wikilsp/wikilsp/internal/workspace/textbuf"
)

// handleDocumentSymbol returns a hierarchical DocumentSymbol tree when
// the client advertised hierarchicalDocumentSymbolSupport, else a flat
// list of SymbolInformation with level-prefixed names, per testable
// property 7.
func (s *Server) handleDocumentSymbol(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentSymbolParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	cur := s.manager.Current()
	f, path := findOwningFolder(cur, string(params.TextDocument.URI))
	if f == nil {
		return reply(ctx, nil, nil)
	}
	doc := f.Get(path)
	if doc == nil {
		return reply(ctx, nil, nil)
	}

	if s.hierarchicalSymbols {
		return reply(ctx, headingsToDocumentSymbols(doc.Elements), nil)
	}
	return reply(ctx, headingsToSymbolInformation(params.TextDocument.URI, doc.Elements), nil)
}

func headingsToDocumentSymbols(elements []markdown.Element) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for _, el := range elements {
		h, ok := el.(*markdown.Heading)
		if !ok {
			continue
		}
		out = append(out, protocol.DocumentSymbol{
			Name:           h.Text,
			Kind:           protocol.SymbolKindString,
			Range:          toProtocolRange(h.Scope),
			SelectionRange: toProtocolRange(h.Range),
			Children:       headingsToDocumentSymbols(h.Children),
		})
	}
	return out
}

func headingsToSymbolInformation(docURI protocol.DocumentURI, elements []markdown.Element) []protocol.SymbolInformation {
	var out []protocol.SymbolInformation
	var walk func([]markdown.Element)
	walk = func(els []markdown.Element) {
		for _, el := range els {
			h, ok := el.(*markdown.Heading)
			if !ok {
				continue
			}
			out = append(out, protocol.SymbolInformation{
				Name: fmt.Sprintf("H%d: %s", h.Level, h.Text),
				Kind: protocol.SymbolKindString,
				Location: protocol.Location{
					URI:   docURI,
					Range: toProtocolRange(h.Range),
				},
			})
			walk(h.Children)
		}
	}
	walk(elements)
	return out
}

// handleCompletion offers wiki-link document names and, inside an
// already-typed "[[doc#" prefix, that document's heading names.
func (s *Server) handleCompletion(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CompletionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	cur := s.manager.Current()
	f, path := findOwningFolder(cur, string(params.TextDocument.URI))
	if f == nil {
		return reply(ctx, nil, nil)
	}
	doc := f.Get(path)
	if doc == nil {
		return reply(ctx, nil, nil)
	}

	linePrefix := currentLinePrefix(doc.Text, fromProtocolPosition(params.Position))
	targetDoc, inHeadingContext := wikiLinkContext(linePrefix)

	var items []protocol.CompletionItem
	if inHeadingContext {
		target := f.DocumentsNamed(targetDoc)
		if len(target) == 1 {
			for _, name := range resolver.HeadingCompletionCandidates(target[0]) {
				items = append(items, protocol.CompletionItem{Label: name, Kind: protocol.CompletionItemKindText})
			}
		}
	} else {
		for _, name := range resolver.CompletionCandidates(f) {
			items = append(items, protocol.CompletionItem{Label: name, Kind: protocol.CompletionItemKindFile})
		}
	}

	if len(items) == 0 {
		return reply(ctx, nil, nil)
	}
	return reply(ctx, protocol.CompletionList{IsIncomplete: true, Items: items}, nil)
}

// currentLinePrefix returns the text of the line containing pos, up to
// (not including) pos's character offset.
func currentLinePrefix(buf textbuf.Buffer, pos textbuf.Position) string {
	lineRange := textbuf.Range{
		Start: textbuf.Position{Line: pos.Line, Character: 0},
		End:   pos,
	}
	return buf.Substring(lineRange)
}

// wikiLinkContext inspects a line prefix ending at the cursor and
// reports (targetDoc, inHeadingContext): inHeadingContext is true when
// the cursor sits right after "[[doc#", targetDoc being doc in that
// case, or empty/false for a bare "[[" completion.
func wikiLinkContext(linePrefix string) (string, bool) {
	idx := strings.LastIndex(linePrefix, "[[")
	if idx < 0 {
		return "", false
	}
	payload := linePrefix[idx+2:]
	if hash := strings.Index(payload, "#"); hash >= 0 {
		return payload[:hash], true
	}
	return "", false
}

// handleDefinition resolves the wiki-link or inline reference at the
// requested position to its target location(s).
func (s *Server) handleDefinition(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DefinitionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	cur := s.manager.Current()
	f, path := findOwningFolder(cur, string(params.TextDocument.URI))
	if f == nil {
		return reply(ctx, nil, nil)
	}
	doc := f.Get(path)
	if doc == nil {
		return reply(ctx, nil, nil)
	}

	link := findLinkAt(doc.Links(), fromProtocolPosition(params.Position))
	if link == nil {
		return reply(ctx, nil, nil)
	}

	res := resolveLink(f, doc, link)
	locs := targetsToLocations(res)
	if len(locs) == 0 {
		return reply(ctx, nil, nil)
	}
	return reply(ctx, locs, nil)
}

// handleHover shows, for the reference at the requested position, the
// text of the target heading's scope, or the whole target document's
// text when the reference names no heading.
func (s *Server) handleHover(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.HoverParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyParseError(ctx, reply, err)
	}

	cur := s.manager.Current()
	f, path := findOwningFolder(cur, string(params.TextDocument.URI))
	if f == nil {
		return reply(ctx, nil, nil)
	}
	doc := f.Get(path)
	if doc == nil {
		return reply(ctx, nil, nil)
	}

	link := findLinkAt(doc.Links(), fromProtocolPosition(params.Position))
	if link == nil {
		return reply(ctx, nil, nil)
	}

	res := resolveLink(f, doc, link)
	if !res.Resolved() {
		return reply(ctx, nil, nil)
	}
	t := res.Targets[0]
	value := t.Document.Text.Text()
	if t.Heading != nil {
		value = t.Document.Text.Substring(t.Heading.Scope)
	}
	return reply(ctx, &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: value},
	}, nil)
}

// findLinkAt returns the WikiLink or InlineRef whose SourceRange covers
// pos, or nil if none does.
func findLinkAt(links []markdown.Element, pos textbuf.Position) markdown.Element {
	for _, el := range links {
		r := el.SourceRange()
		if withinRange(r, pos) {
			return el
		}
	}
	return nil
}

func withinRange(r textbuf.Range, pos textbuf.Position) bool {
	if pos.Line < r.Start.Line || pos.Line > r.End.Line {
		return false
	}
	if pos.Line == r.Start.Line && pos.Character < r.Start.Character {
		return false
	}
	if pos.Line == r.End.Line && pos.Character > r.End.Character {
		return false
	}
	return true
}

// resolveLink dispatches to the right resolver function based on link's
// concrete type.
func resolveLink(f *folder.Folder, doc *document.Document, link markdown.Element) resolver.Result {
	switch l := link.(type) {
	case *markdown.WikiLink:
		return resolver.ResolveWikiLink(f, doc, l)
	case *markdown.InlineRef:
		return resolver.ResolveInlineRef(f, doc, l)
	default:
		return resolver.Result{}
	}
}

// targetsToLocations converts resolved Targets to LSP Locations,
// pointing at the heading's range when one was requested, else the top
// of the target document.
func targetsToLocations(res resolver.Result) []protocol.Location {
	var out []protocol.Location
	for _, t := range res.Targets {
		r := t.Document.Text.FullRange()
		if t.Heading != nil {
			r = t.Heading.Range
		}
		out = append(out, protocol.Location{
			URI:   protocol.DocumentURI(t.Document.Path.URI),
			Range: toProtocolRange(r),
		})
	}
	return out
}
