// Package scxmlgo is the root facade over the parser, validator, and
// interpreter packages, exposing the programmatic API contract of
// spec.md §6: Parse, Validate, Initialize, SendEvent, ActiveLeaves,
// Datamodel, Logs, plus the Snapshot/Restore pair added by
// spec_full §4.10.
package scxmlgo

import (
	"context"

	"github.com/agentflare-ai/scxmlgo/feature"
	"github.com/agentflare-ai/scxmlgo/interpreter"
	"github.com/agentflare-ai/scxmlgo/logging"
	"github.com/agentflare-ai/scxmlgo/model"
	"github.com/agentflare-ai/scxmlgo/parser"
	"github.com/agentflare-ai/scxmlgo/scxmlerr"
	"github.com/agentflare-ai/scxmlgo/snapshot"
	"github.com/agentflare-ai/scxmlgo/validator"
)

// Document re-exports model.Document so callers need not import the model
// package for the common path.
type Document = model.Document

// StateChart re-exports interpreter.StateChart.
type StateChart = interpreter.StateChart

// Options re-exports interpreter.Options.
type Options = interpreter.Options

// Option re-exports interpreter.Option (functional options for Initialize).
type Option = interpreter.Option

// Event is the externally-visible shape of a dispatched event.
type Event struct {
	Name string
	Data any
}

// ParseResult is returned by Parse.
type ParseResult struct {
	Document    *Document
	Diagnostics []scxmlerr.Diagnostic
}

// Parse decodes SCXML XML bytes into a Document. A malformed byte stream
// yields a nil Document and a single Parse diagnostic; well-formed XML
// with structural problems instead accumulates diagnostics and still
// returns a best-effort Document for Validate to reject or accept.
func Parse(xmlBytes []byte) ParseResult {
	doc, diags := parser.Parse(xmlBytes)
	return ParseResult{Document: doc, Diagnostics: diags.All()}
}

// ValidateOptions configures Validate's optional passes.
type ValidateOptions struct {
	// Strict escalates selected advisory checks (e.g. a parallel state
	// with an atomic child) to errors.
	Strict bool
	// RunXSDPrepass validates the original XML bytes against the SCXML
	// 1.0 XSD before the model-level passes; findings are always
	// warnings regardless of the XSD engine's own severity.
	RunXSDPrepass bool
	// XMLBytes is required when RunXSDPrepass is true.
	XMLBytes []byte
	// SourceName labels diagnostics from the XSD pre-pass.
	SourceName string
	// RunDataGuard checks that each <data> element whose id is a schema
	// reference resolves against the schemas declared in SchemaRefs, if
	// any were declared on <scxml>.
	RunDataGuard bool
	// SchemaBaseDir is the directory RunDataGuard resolves relative
	// schema references against.
	SchemaBaseDir string
}

// ValidateResult is returned by Validate.
type ValidateResult struct {
	Document    *Document
	Diagnostics []scxmlerr.Diagnostic
	Features    feature.Set
}

// Validate runs the model-level validator (7 passes) and, when requested,
// the optional XSD pre-pass and JSON-Schema data guard, per spec.md §4.3
// and spec_full §4.3a. Validation errors are returned alongside a nil
// Document; warnings never block — the returned Document is ready for
// Initialize whenever no error-kind diagnostic is present.
func Validate(doc *Document, opts ValidateOptions) ValidateResult {
	var all []scxmlerr.Diagnostic

	if opts.RunXSDPrepass {
		all = append(all, validator.RunXSDPrepass(context.Background(), opts.XMLBytes, opts.SourceName)...)
	}

	validated, diags := validator.ValidateModel(doc, validator.Options{Strict: opts.Strict})
	all = append(all, diags.All()...)

	if opts.RunDataGuard && validated != nil {
		all = append(all, validator.RunDataGuard(validated, opts.SchemaBaseDir)...)
	}

	result := ValidateResult{Document: validated, Diagnostics: all}
	if validated != nil {
		result.Features = feature.Detect(validated)
	}
	for _, d := range all {
		if d.IsError() {
			result.Document = nil
			break
		}
	}
	return result
}

// Initialize wraps interpreter.Initialize.
func Initialize(doc *Document, opts Options, extra ...Option) *StateChart {
	return interpreter.Initialize(doc, opts, extra...)
}

// SendEvent wraps interpreter.SendEvent.
func SendEvent(ctx context.Context, chart *StateChart, event Event) (*StateChart, error) {
	return interpreter.SendEvent(ctx, chart, event.Name, event.Data)
}

// ActiveLeaves returns the active leaf state ids.
func ActiveLeaves(chart *StateChart) []string { return chart.ActiveLeaves() }

// Datamodel returns a copy of the data-model bindings.
func Datamodel(chart *StateChart) map[string]any { return chart.Datamodel() }

// Logs returns the entries captured by a logging.TestSink, or nil if the
// chart was not configured with one.
func Logs(chart *StateChart) []logging.Entry { return chart.Logs() }

// Snapshot captures chart's configuration and data model for persistence
// via a snapshot.Store, stamping machineID for later retrieval.
func Snapshot(chart *StateChart, machineID string) snapshot.Snapshot {
	return snapshot.Snapshot{
		MachineID:     machineID,
		Configuration: chart.ActiveLeaves(),
		DataModel:     chart.Datamodel(),
	}
}

// Restore rebuilds a StateChart from a previously saved Snapshot against
// doc, re-entering exactly the recorded leaf set (and, recursively, its
// compound/parallel ancestors) without re-running the document's default
// initial transition, then restoring the data-model bindings verbatim.
func Restore(doc *Document, snap snapshot.Snapshot, opts Options, extra ...Option) *StateChart {
	return interpreter.Restore(doc, snap.Configuration, snap.DataModel, opts, extra...)
}
