package validator

import (
	"bytes"
	"context"

	"github.com/agentflare-ai/scxmlgo/scxmlerr"
)

// RunXSDPrepass runs the teacher-derived XSD/semantic-rule engine (Config,
// Validator, DefaultSemanticRules) against the raw XML bytes and converts
// its findings to the unified scxmlerr vocabulary. Per spec_full §4.3a this
// is advisory only: every finding is downgraded to a warning regardless of
// the XSD engine's own severity, since XSD conformance is a quality signal
// here, not a correctness gate (the seven model-level passes in passes.go
// are authoritative).
func RunXSDPrepass(ctx context.Context, xmlBytes []byte, sourceName string) []scxmlerr.Diagnostic {
	v := New(Config{SourceName: sourceName})
	res, _, _, err := v.ValidateReader(ctx, bytes.NewReader(xmlBytes))
	if err != nil {
		return []scxmlerr.Diagnostic{{
			Kind:    scxmlerr.KindValidationWarning,
			Code:    "W-XSD-UNAVAILABLE",
			Message: "XSD pre-pass could not run: " + err.Error(),
		}}
	}

	out := make([]scxmlerr.Diagnostic, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		out = append(out, scxmlerr.Diagnostic{
			Kind:      scxmlerr.KindValidationWarning,
			Code:      d.Code,
			Message:   d.Message,
			Position:  scxmlerr.Position{Line: d.xsdPosition.Line, Column: d.xsdPosition.Column, Offset: d.xsdPosition.Offset},
			Tag:       d.Tag,
			Attribute: d.Attribute,
			Hints:     d.Hints,
		})
	}
	return out
}
