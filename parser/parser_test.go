package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflare-ai/scxmlgo/model"
)

func TestParse_MalformedXMLProducesDiagnosticAndNilDoc(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml><state id="a">`))
	assert.Nil(t, doc)
	require.True(t, diags.HasErrors())
}

func TestParse_NoRootElement(t *testing.T) {
	doc, diags := Parse([]byte(`<notscxml/>`))
	assert.Nil(t, doc)
	require.True(t, diags.HasErrors())
}

func TestParse_TopLevelStatesAndInitial(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a" version="1.0" datamodel="ecmascript">
		<state id="a"/>
		<state id="b"/>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	assert.Equal(t, []string{"a"}, doc.Initial)
	assert.Equal(t, "ecmascript", doc.DataModelAttr)
	require.Len(t, doc.States, 2)
	assert.Equal(t, "a", doc.States[0].ID)
	assert.Equal(t, model.Atomic, doc.States[0].Type)
	assert.Equal(t, "b", doc.States[1].ID)
}

func TestParse_CompoundStateGetsChildrenAndType(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a" initial="a1">
			<state id="a1"/>
			<state id="a2"/>
		</state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	a := doc.States[0]
	assert.Equal(t, model.Compound, a.Type)
	require.Len(t, a.Children, 2)
	assert.Equal(t, "a1", a.Children[0].ID)
	assert.Equal(t, "a", a.Children[0].ParentID)
	assert.Equal(t, []string{"a1"}, a.InitialTargets)
}

func TestParse_ParallelAndFinal(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="p">
		<parallel id="p">
			<state id="r1"><state id="r1a"/></state>
			<state id="r2"><state id="r2a"/></state>
		</parallel>
		<final id="done"/>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	assert.Equal(t, model.Parallel, doc.States[0].Type)
	assert.Equal(t, model.Final, doc.States[1].Type)
}

func TestParse_TransitionAttributesAndDocOrder(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a">
			<transition event="go" target="b" cond="x &gt; 1"/>
			<transition event="noop" type="internal" target="a"/>
		</state>
		<state id="b"/>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	a := doc.States[0]
	require.Len(t, a.Transitions, 2)

	t1 := a.Transitions[0]
	assert.Equal(t, "go", t1.Event.Raw)
	assert.Equal(t, []string{"b"}, t1.Targets)
	assert.Equal(t, "x > 1", t1.Cond)
	assert.Equal(t, model.External, t1.Type)
	assert.Equal(t, "a", t1.SourceID)

	t2 := a.Transitions[1]
	assert.Equal(t, model.Internal, t2.Type)
	assert.True(t, t2.DocOrder > t1.DocOrder, "later transitions must receive a later doc order")
}

func TestParse_WildcardEventDescriptor(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a"><transition event="*" target="a"/></state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	tr := doc.States[0].Transitions[0]
	assert.True(t, tr.Event.Wildcard)
	assert.Equal(t, "*", tr.Event.Raw)
}

func TestParse_DataModelElements(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<datamodel>
			<data id="x" expr="1"/>
			<data id="y" src="y.json"/>
		</datamodel>
		<state id="a"/>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	require.Len(t, doc.DataElements, 2)
	assert.Equal(t, "x", doc.DataElements[0].ID)
	assert.Equal(t, "1", doc.DataElements[0].Expr)
	assert.Equal(t, "y.json", doc.DataElements[1].Src)
}

func TestParse_OnEntryOnExitActions(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a">
			<onentry><log label="enter" expr="1"/></onentry>
			<onexit><raise event="left"/></onexit>
		</state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	a := doc.States[0]
	require.Len(t, a.OnEntry, 1)
	assert.Equal(t, model.ActionLog, a.OnEntry[0].Kind)
	assert.Equal(t, "enter", a.OnEntry[0].Log.Label)

	require.Len(t, a.OnExit, 1)
	assert.Equal(t, model.ActionRaise, a.OnExit[0].Kind)
	assert.Equal(t, "left", a.OnExit[0].Raise.Event)
}

func TestParse_AssignAction(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a"><onentry><assign location="x" expr="x + 1"/></onentry></state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	a := doc.States[0].OnEntry[0]
	assert.Equal(t, model.ActionAssign, a.Kind)
	assert.Equal(t, "x", a.Assign.Location)
	assert.Equal(t, "x + 1", a.Assign.Expr)
}

func TestParse_IfElseifElse(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a"><onentry>
			<if cond="x == 1">
				<log label="one"/>
			<elseif cond="x == 2"/>
				<log label="two"/>
			<else/>
				<log label="other"/>
			</if>
		</onentry></state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	ifAction := doc.States[0].OnEntry[0]
	require.Equal(t, model.ActionIf, ifAction.Kind)
	require.Len(t, ifAction.If.Blocks, 3)

	assert.Equal(t, "if", ifAction.If.Blocks[0].Kind)
	assert.Equal(t, "x == 1", ifAction.If.Blocks[0].Cond)
	require.Len(t, ifAction.If.Blocks[0].Actions, 1)
	assert.Equal(t, "one", ifAction.If.Blocks[0].Actions[0].Log.Label)

	assert.Equal(t, "elseif", ifAction.If.Blocks[1].Kind)
	assert.Equal(t, "x == 2", ifAction.If.Blocks[1].Cond)
	assert.Equal(t, "two", ifAction.If.Blocks[1].Actions[0].Log.Label)

	assert.Equal(t, "else", ifAction.If.Blocks[2].Kind)
	assert.Equal(t, "other", ifAction.If.Blocks[2].Actions[0].Log.Label)
}

func TestParse_ForeachAction(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a"><onentry>
			<foreach array="items" item="it" index="i">
				<log label="item" expr="it"/>
			</foreach>
		</onentry></state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	fe := doc.States[0].OnEntry[0]
	require.Equal(t, model.ActionForeach, fe.Kind)
	assert.Equal(t, "items", fe.Foreach.ArrayExpr)
	assert.Equal(t, "it", fe.Foreach.Item)
	assert.Equal(t, "i", fe.Foreach.Index)
	require.Len(t, fe.Foreach.Actions, 1)
}

func TestParse_SendActionWithParamsAndContent(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a"><onentry>
			<send event="ping" target="#_internal" namelist="x y" delay="1s">
				<param name="p1" expr="1"/>
				<content>hello</content>
			</send>
		</onentry></state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	send := doc.States[0].OnEntry[0]
	require.Equal(t, model.ActionSend, send.Kind)
	assert.Equal(t, "ping", send.Send.Event)
	assert.Equal(t, "#_internal", send.Send.Target)
	assert.Equal(t, []string{"x", "y"}, send.Send.Namelist)
	assert.Equal(t, "1s", send.Send.Delay)
	require.Len(t, send.Send.Params, 1)
	assert.Equal(t, "p1", send.Send.Params[0].Name)
	require.NotNil(t, send.Send.Content)
	assert.Equal(t, "hello", send.Send.Content.Text)
}

func TestParse_HistoryStateDefaultsToShallow(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a">
			<history id="h"/>
			<history id="hd" type="deep"/>
			<state id="a1"/>
		</state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	a := doc.States[0]
	var shallow, deep *model.State
	for _, c := range a.Children {
		if c.ID == "h" {
			shallow = c
		}
		if c.ID == "hd" {
			deep = c
		}
	}
	require.NotNil(t, shallow)
	require.NotNil(t, deep)
	assert.Equal(t, model.History, shallow.Type)
	assert.Equal(t, model.Shallow, shallow.HistoryType)
	assert.Equal(t, model.Deep, deep.HistoryType)
}

func TestParse_AnonymousHistoryGetsGeneratedID(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a"><history/><state id="a1"/></state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	h := doc.States[0].Children[0]
	assert.Equal(t, model.History, h.Type)
	assert.NotEmpty(t, h.ID)
}

func TestParse_InitialElementSetsInitialTargetsAndActions(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a">
			<initial>
				<transition target="a2">
					<log label="choosing a2"/>
				</transition>
			</initial>
			<state id="a1"/>
			<state id="a2"/>
		</state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)

	a := doc.States[0]
	assert.Equal(t, []string{"a2"}, a.InitialTargets)
	require.Len(t, a.InitialActions, 1)
	assert.Equal(t, "choosing a2", a.InitialActions[0].Log.Label)
}

func TestParse_ScriptAndInvokeSetRequiresUnsupported(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a"><onentry><script>doStuff();</script></onentry></state>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)
	assert.True(t, doc.RequiresUnsupported)
}

func TestParse_SchemaRefsFromNamespacedAttributes(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml xmlns:af="http://agentflare.ai/agentml/schema" af:data="data.schema.json" initial="a">
		<state id="a"/>
	</scxml>`))
	require.False(t, diags.HasErrors())
	require.NotNil(t, doc)
	assert.Equal(t, "data.schema.json", doc.SchemaRefs["data"])
}

func TestParse_MisplacedElseifReportsDiagnostic(t *testing.T) {
	doc, diags := Parse([]byte(`<scxml initial="a">
		<state id="a"><onentry><elseif cond="true"/></onentry></state>
	</scxml>`))
	require.NotNil(t, doc)
	assert.True(t, diags.HasErrors())
}
