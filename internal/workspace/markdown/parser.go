// Package markdown turns buffer text into the semantic element tree
// spec.md §3/§4.3 describes: nested headings, wiki links, and inline
// references. The concrete Markdown tokenizer is an external collaborator
// — github.com/yuin/goldmark — exactly the way spec.md says the parser
// defines what must be produced, not how raw bytes become tokens. We use
// goldmark only to locate block structure (fenced/indented code blocks,
// so headings and wiki links inside them are correctly ignored) and
// inline links (for InlineRef); heading and wiki-link recognition itself
// is a direct scan over buffer lines, grounded on gomdlint's byte-range
// projection style in pkg/parser/goldmark/ranges.go.
package markdown

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/wikilsp/wikilsp/internal/workspace/textbuf"
)

var gm = goldmark.New()

// Parse produces the top-level element forest for buf's text. Parse is
// total: it never fails, and parsing the same text twice yields equal
// trees (invariant 1) since it is a pure function of the byte content.
func Parse(buf textbuf.Buffer) []Element {
	source := []byte(buf.Text())
	doc := gm.Parser().Parse(gmtext.NewReader(source))

	codeRanges := collectCodeRanges(doc, source)
	headings := scanHeadings(buf, codeRanges)
	links := scanWikiLinks(buf, codeRanges)
	refs := scanInlineRefs(doc, buf, source)

	computeScopes(buf, headings)
	return buildForest(headings, links, refs)
}

type byteRange struct{ start, end int }

// collectCodeRanges returns the byte ranges of fenced and indented code
// blocks, each widened back to the start of its first line so that the
// line-start checks in scanHeadings/scanWikiLinks also cover a first line
// whose content segment begins after indentation.
func collectCodeRanges(doc ast.Node, source []byte) []byteRange {
	var ranges []byteRange
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			lines := n.Lines()
			if lines.Len() == 0 {
				return ast.WalkSkipChildren, nil
			}
			first := lines.At(0)
			last := lines.At(lines.Len() - 1)
			start := first.Start
			for start > 0 && source[start-1] != '\n' {
				start--
			}
			ranges = append(ranges, byteRange{start: start, end: last.Stop})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	return ranges
}

func inCode(ranges []byteRange, offset int) bool {
	for _, r := range ranges {
		if offset >= r.start && offset < r.end {
			return true
		}
		if offset < r.start {
			break
		}
	}
	return false
}

type flatHeading struct {
	level       int
	text        string
	rng         textbuf.Range
	scope       textbuf.Range
	startOffset int
}

// scanHeadings recognizes ATX headings directly over buffer lines,
// skipping any line whose start offset falls inside a fenced or indented
// code block.
func scanHeadings(buf textbuf.Buffer, codeRanges []byteRange) []*flatHeading {
	var out []*flatHeading
	for line := 0; line < buf.LineCount(); line++ {
		lineStart := buf.PositionToOffset(textbuf.Position{Line: uint32(line), Character: 0})
		if inCode(codeRanges, lineStart) {
			continue
		}
		lineRange := textbuf.Range{
			Start: textbuf.Position{Line: uint32(line), Character: 0},
			End:   textbuf.Position{Line: uint32(line + 1), Character: 0},
		}
		text := buf.Substring(lineRange)
		text = strings.TrimRight(text, "\r\n")

		level, remainder, ok := parseATXPrefix(text)
		if !ok {
			continue
		}

		headingText := strings.TrimSpace(stripClosingHashes(remainder))
		endChar := utf16LenOf(text)
		out = append(out, &flatHeading{
			level: level,
			text:  headingText,
			rng: textbuf.Range{
				Start: textbuf.Position{Line: uint32(line), Character: 0},
				End:   textbuf.Position{Line: uint32(line), Character: endChar},
			},
			startOffset: lineStart,
		})
	}
	return out
}

// parseATXPrefix reports whether line begins with 1-6 '#' characters
// followed by a space (or is exactly the hash run with nothing after),
// returning the heading level and the text following the marker.
func parseATXPrefix(line string) (level int, remainder string, ok bool) {
	i := 0
	for i < len(line) && line[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return 0, "", false
	}
	if i == len(line) {
		return i, "", true
	}
	if line[i] != ' ' && line[i] != '\t' {
		return 0, "", false
	}
	return i, line[i+1:], true
}

// stripClosingHashes removes a CommonMark-style optional closing hash
// sequence ("## Heading ##") from the end of a trimmed heading line.
func stripClosingHashes(s string) string {
	trimmed := strings.TrimRight(s, " \t")
	j := len(trimmed)
	for j > 0 && trimmed[j-1] == '#' {
		j--
	}
	if j == len(trimmed) {
		return s
	}
	if j == 0 || trimmed[j-1] == ' ' || trimmed[j-1] == '\t' {
		return trimmed[:j]
	}
	return s
}

func utf16LenOf(s string) uint32 {
	buf := textbuf.New(s)
	r := buf.FullRange()
	return r.End.Character
}

// computeScopes fills each heading's Scope: the span from its own line to
// the start of the next heading with level <= its own, or EOF.
func computeScopes(buf textbuf.Buffer, headings []*flatHeading) {
	eof := buf.FullRange().End
	for i, h := range headings {
		end := eof
		for j := i + 1; j < len(headings); j++ {
			if headings[j].level <= h.level {
				end = headings[j].rng.Start
				break
			}
		}
		h.scope = textbuf.Range{Start: h.rng.Start, End: end}
	}
}

type flatLink struct {
	el          Element
	startOffset int
}

// scanWikiLinks recognizes [[...]] payloads, restricted to a single line
// (wiki links never span a newline) and skipping code-block lines.
func scanWikiLinks(buf textbuf.Buffer, codeRanges []byteRange) []flatLink {
	var out []flatLink
	for line := 0; line < buf.LineCount(); line++ {
		lineStart := buf.PositionToOffset(textbuf.Position{Line: uint32(line), Character: 0})
		if inCode(codeRanges, lineStart) {
			continue
		}
		lineRange := textbuf.Range{
			Start: textbuf.Position{Line: uint32(line), Character: 0},
			End:   textbuf.Position{Line: uint32(line + 1), Character: 0},
		}
		text := strings.TrimRight(buf.Substring(lineRange), "\r\n")

		pos := 0
		for {
			open := strings.Index(text[pos:], "[[")
			if open == -1 {
				break
			}
			open += pos
			closeIdx := strings.Index(text[open+2:], "]]")
			if closeIdx == -1 {
				break
			}
			closeIdx += open + 2

			payload := strings.TrimSpace(text[open+2 : closeIdx])
			targetDoc, targetHeading := splitWikiPayload(payload)

			startChar := utf16LenOf(text[:open])
			endChar := utf16LenOf(text[:closeIdx+2])
			link := &WikiLink{
				TargetDoc:     targetDoc,
				TargetHeading: targetHeading,
				Range: textbuf.Range{
					Start: textbuf.Position{Line: uint32(line), Character: startChar},
					End:   textbuf.Position{Line: uint32(line), Character: endChar},
				},
			}
			out = append(out, flatLink{el: link, startOffset: lineStart + open})

			pos = closeIdx + 2
		}
	}
	return out
}

func splitWikiPayload(payload string) (targetDoc, targetHeading *string) {
	if strings.HasPrefix(payload, "#") {
		h := payload[1:]
		return nil, &h
	}
	if idx := strings.Index(payload, "#"); idx >= 0 {
		doc := payload[:idx]
		h := payload[idx+1:]
		return &doc, &h
	}
	doc := payload
	return &doc, nil
}

// scanInlineRefs walks goldmark's inline link nodes and converts any
// link whose destination has no URI scheme into an InlineRef, per
// SPEC_FULL.md §4/C3's resolution of the source's partially-open surface.
func scanInlineRefs(doc ast.Node, buf textbuf.Buffer, source []byte) []flatLink {
	var out []flatLink
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindLink {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if dest == "" || hasScheme(dest) {
			return ast.WalkContinue, nil
		}
		text := nodeText(link, source)
		start, end, found := locateLinkSpan(buf, text, dest)
		if !found {
			return ast.WalkContinue, nil
		}

		doc, heading := splitRelativeDestination(dest)
		out = append(out, flatLink{
			el: &InlineRef{
				TargetDoc:     doc,
				TargetHeading: heading,
				Text:          text,
				Range:         textbuf.Range{Start: start, End: end},
			},
			startOffset: buf.PositionToOffset(start),
		})
		return ast.WalkContinue, nil
	})
	return out
}

func hasScheme(dest string) bool {
	idx := strings.Index(dest, ":")
	if idx <= 0 {
		return false
	}
	for _, c := range dest[:idx] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

// splitRelativeDestination mirrors splitWikiPayload for "doc#heading"
// destinations, treating a bare "#heading" as a same-document reference.
func splitRelativeDestination(dest string) (targetDoc, targetHeading *string) {
	if strings.HasPrefix(dest, "#") {
		h := dest[1:]
		return nil, &h
	}
	if idx := strings.Index(dest, "#"); idx >= 0 {
		doc := dest[:idx]
		h := dest[idx+1:]
		return &doc, &h
	}
	doc := dest
	return &doc, nil
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			continue
		}
		sb.WriteString(nodeText(c, source))
	}
	return sb.String()
}

// locateLinkSpan finds the exact "[text](dest)" span in buf by literal
// search, since goldmark's inline nodes don't carry the bracket/paren
// byte offsets themselves.
func locateLinkSpan(buf textbuf.Buffer, text, dest string) (start, end textbuf.Position, found bool) {
	needle := "[" + text + "](" + dest + ")"
	idx := strings.Index(buf.Text(), needle)
	if idx == -1 {
		return textbuf.Position{}, textbuf.Position{}, false
	}
	return buf.OffsetToPosition(idx), buf.OffsetToPosition(idx + len(needle)), true
}

// buildForest merges flat headings and links (document order) into the
// nested Element tree: headings nest under the nearest preceding heading
// with strictly smaller level (a stack indexed by level, per spec.md §9);
// non-heading elements attach to the innermost currently-open heading.
func buildForest(headings []*flatHeading, links []flatLink, refs []flatLink) []Element {
	type item struct {
		offset  int
		heading *flatHeading
		link    Element
	}
	var items []item
	for _, h := range headings {
		items = append(items, item{offset: h.startOffset, heading: h})
	}
	for _, l := range links {
		items = append(items, item{offset: l.startOffset, link: l.el})
	}
	for _, r := range refs {
		items = append(items, item{offset: r.startOffset, link: r.el})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].offset < items[j].offset })

	var roots []Element
	var stack []*Heading

	for _, it := range items {
		if it.heading != nil {
			h := &Heading{
				Level: it.heading.level,
				Text:  it.heading.text,
				Range: it.heading.rng,
				Scope: it.heading.scope,
			}
			for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				roots = append(roots, h)
			} else {
				top := stack[len(stack)-1]
				top.Children = append(top.Children, h)
			}
			stack = append(stack, h)
			continue
		}
		if len(stack) == 0 {
			roots = append(roots, it.link)
		} else {
			top := stack[len(stack)-1]
			top.Children = append(top.Children, it.link)
		}
	}

	return roots
}
