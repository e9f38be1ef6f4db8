package validator

import (
	"fmt"

	"github.com/agentflare-ai/scxmlgo/model"
	"github.com/agentflare-ai/scxmlgo/scxmlerr"
)

// RunDataGuard loads the JSON schemas declared in doc.SchemaRefs
// (populated from schema:* attributes on <scxml>, spec_full §3) and, for
// every <data> element whose id parses as a schema reference
// ("prefix:/pointer" or inline JSON), checks that the reference resolves
// against them. A data element whose id is not a schema reference is
// skipped. A load failure or an unresolvable reference is a warning — the
// data guard never blocks validation. Data values are not validated
// against the resolved schema.
func RunDataGuard(doc *model.Document, baseDir string) []scxmlerr.Diagnostic {
	if doc == nil || len(doc.SchemaRefs) == 0 {
		return nil
	}
	schemas, err := LoadDeclaredSchemas(doc.SchemaRefs, baseDir)
	if err != nil {
		return []scxmlerr.Diagnostic{{
			Kind:    scxmlerr.KindValidationWarning,
			Code:    "W-SCHEMA-LOAD",
			Message: "failed to load declared JSON schemas: " + err.Error(),
		}}
	}

	var out []scxmlerr.Diagnostic
	for _, d := range doc.DataElements {
		ref, err := ParseSchemaReference(d.ID)
		if err != nil {
			continue
		}
		schema, err := ResolveSchemaReference(ref, schemas)
		if err != nil {
			out = append(out, scxmlerr.Diagnostic{
				Kind: scxmlerr.KindValidationWarning, Code: "W-SCHEMA-REF", Position: d.Pos,
				Tag: "data", Attribute: "id",
				Message: fmt.Sprintf("data %q references unresolvable schema: %v", d.ID, err),
			})
			continue
		}
		if schema == nil {
			continue
		}
		// Only the resolution of the declared schema is checked; the
		// expr value is not validated against it here or at runtime.
	}
	return out
}
