package lspserver

import (
	"context"
	"log"

	"go.lsp.dev/protocol"

	wdiag "github.com/wikilsp/wikilsp/internal/workspace/diagnostics"
	"github.com/wikilsp/wikilsp/internal/workspace/state"
)

// deliverPublish is the publishq.Queue sink: it turns one workspace
// Publish into an actual textDocument/publishDiagnostics notification.
// Called from the dedicated publish-queue goroutine, never from a
// handler directly, so a slow client connection never stalls request
// handling.
func (s *Server) deliverPublish(p state.Publish) error {
	if p.URI == "" {
		return nil
	}

	ctx := context.Background()
	err := s.conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(p.URI),
		Diagnostics: convertDiagnostics(p.Diagnostics),
	})
	if err != nil {
		log.Printf("lsp: failed to publish diagnostics for %s: %v", p.URI, err)
	}
	return err
}

// convertDiagnostics maps workspace diagnostics to their LSP wire form.
func convertDiagnostics(set wdiag.Set) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(set))
	for _, d := range set {
		out = append(out, protocol.Diagnostic{
			Range:    toProtocolRange(d.Range),
			Severity: severityToLSP(d.Severity),
			Source:   serverName,
			Code:     string(d.Code),
			Message:  d.Message,
		})
	}
	return out
}

func severityToLSP(s wdiag.Severity) protocol.DiagnosticSeverity {
	switch s {
	case wdiag.SeverityError:
		return protocol.DiagnosticSeverityError
	case wdiag.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case wdiag.SeverityInformation:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityInformation
	}
}
