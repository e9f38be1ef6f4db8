package scxmlgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflare-ai/scxmlgo/scxmlerr"
)

func TestEndToEnd_ParseValidateInitializeSendEvent(t *testing.T) {
	xml := []byte(`<scxml initial="idle" datamodel="ecmascript">
		<datamodel>
			<data id="count" expr="0"/>
		</datamodel>
		<state id="idle">
			<transition event="go" target="active">
				<assign location="count" expr="count + 1"/>
			</transition>
		</state>
		<state id="active">
			<onentry><log label="entered active"/></onentry>
			<transition event="stop" target="idle"/>
		</state>
	</scxml>`)

	parsed := Parse(xml)
	require.Empty(t, parsed.Diagnostics)
	require.NotNil(t, parsed.Document)

	validated := Validate(parsed.Document, ValidateOptions{})
	require.Empty(t, errorDiagnostics(validated.Diagnostics))
	require.NotNil(t, validated.Document)

	chart := Initialize(validated.Document, Options{})
	assert.Equal(t, []string{"idle"}, ActiveLeaves(chart))
	assert.Equal(t, float64(0), Datamodel(chart)["count"])

	chart, err := SendEvent(context.Background(), chart, Event{Name: "go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"active"}, ActiveLeaves(chart))
	assert.Equal(t, float64(1), Datamodel(chart)["count"])

	chart, err = SendEvent(context.Background(), chart, Event{Name: "stop"})
	require.NoError(t, err)
	assert.Equal(t, []string{"idle"}, ActiveLeaves(chart))
}

func TestEndToEnd_SnapshotAndRestoreRoundTrip(t *testing.T) {
	xml := []byte(`<scxml initial="a">
		<state id="a"><transition event="go" target="b"/></state>
		<state id="b"/>
	</scxml>`)

	parsed := Parse(xml)
	require.NotNil(t, parsed.Document)
	validated := Validate(parsed.Document, ValidateOptions{})
	require.NotNil(t, validated.Document)

	chart := Initialize(validated.Document, Options{})
	chart, err := SendEvent(context.Background(), chart, Event{Name: "go"})
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, ActiveLeaves(chart))

	snap := Snapshot(chart, "machine-1")
	assert.Equal(t, "machine-1", snap.MachineID)
	assert.Equal(t, []string{"b"}, snap.Configuration)

	restored := Restore(validated.Document, snap, Options{})
	assert.Equal(t, []string{"b"}, ActiveLeaves(restored))
}

func TestValidate_RejectsUnknownTransitionTarget(t *testing.T) {
	xml := []byte(`<scxml initial="a">
		<state id="a"><transition event="go" target="nope"/></state>
	</scxml>`)

	parsed := Parse(xml)
	require.NotNil(t, parsed.Document)

	validated := Validate(parsed.Document, ValidateOptions{})
	assert.Nil(t, validated.Document)
	assert.NotEmpty(t, errorDiagnostics(validated.Diagnostics))
}

func TestParse_MalformedXMLReturnsNilDocument(t *testing.T) {
	parsed := Parse([]byte(`<scxml><state id="a">`))
	assert.Nil(t, parsed.Document)
	assert.NotEmpty(t, parsed.Diagnostics)
}

func errorDiagnostics(diags []scxmlerr.Diagnostic) []scxmlerr.Diagnostic {
	var out []scxmlerr.Diagnostic
	for _, d := range diags {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}
