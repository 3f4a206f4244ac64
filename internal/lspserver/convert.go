package lspserver

import (
	"go.lsp.dev/protocol"

	"github.com/wikilsp/wikilsp/internal/workspace/textbuf"
)

func toProtocolPosition(p textbuf.Position) protocol.Position {
	return protocol.Position{Line: p.Line, Character: p.Character}
}

func toProtocolRange(r textbuf.Range) protocol.Range {
	return protocol.Range{Start: toProtocolPosition(r.Start), End: toProtocolPosition(r.End)}
}

func fromProtocolPosition(p protocol.Position) textbuf.Position {
	return textbuf.Position{Line: p.Line, Character: p.Character}
}

func fromProtocolRange(r protocol.Range) textbuf.Range {
	return textbuf.Range{Start: fromProtocolPosition(r.Start), End: fromProtocolPosition(r.End)}
}
