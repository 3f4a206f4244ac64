package lspserver

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"go.lsp.dev/protocol"

	wdiag "github.com/wikilsp/wikilsp/internal/workspace/diagnostics"
)

func TestSeverityConversion(t *testing.T) {
	snaps.MatchStandaloneJSON(t, map[string]protocol.DiagnosticSeverity{
		"error":   severityToLSP(wdiag.SeverityError),
		"warning": severityToLSP(wdiag.SeverityWarning),
	})
}
