// File: internal/analysis/taint/taint_test.go
package taint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/label"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
)

func body(t *testing.T, src string) []python.Stmt {
	t.Helper()
	m, err := python.Parse(context.Background(), "slice.py", []byte(src))
	require.NoError(t, err)
	return m.Body
}

func analyze(t *testing.T, pol *policy.Policy, src string) []IllegalFlow {
	t.Helper()
	vulns, err := Analyze(zaptest.NewLogger(t), pol, body(t, src))
	require.NoError(t, err)
	return vulns.IllegalFlows()
}

func patternA(sanitizers ...core.Sanitizer) *policy.Pattern {
	return policy.NewPattern("A", []core.Source{"input"}, sanitizers, []core.Sink{"output"}, false)
}

func TestScenarioA_DirectFlow(t *testing.T) {
	t.Parallel()

	flows := analyze(t, policy.New(patternA()), "x = input()\noutput(x)\n")
	require.Len(t, flows, 1)
	f := flows[0]
	assert.Equal(t, core.Vulnerability("A"), f.Vulnerability)
	assert.Equal(t, core.Source("input"), f.Source)
	assert.Equal(t, 1, f.SourceLine)
	assert.Equal(t, core.Sink("output"), f.Sink)
	assert.Equal(t, 2, f.SinkLine)
	assert.True(t, f.Unsanitized)
	assert.Empty(t, f.Sanitized)
}

func TestScenarioB_SanitizedFlow(t *testing.T) {
	t.Parallel()

	flows := analyze(t, policy.New(patternA("clean")), "x = input()\nx = clean(x)\noutput(x)\n")
	require.Len(t, flows, 1)
	assert.False(t, flows[0].Unsanitized)
	require.Len(t, flows[0].Sanitized, 1)
	assert.Equal(t, []label.Step{{Sanitizer: "clean", Line: 2}}, flows[0].Sanitized[0].Steps())
}

func TestScenarioC_NestedCall(t *testing.T) {
	t.Parallel()

	flows := analyze(t, policy.New(patternA()), "output(input())\n")
	require.Len(t, flows, 1)
	assert.Equal(t, 1, flows[0].SourceLine)
	assert.Equal(t, 1, flows[0].SinkLine)
	assert.True(t, flows[0].Unsanitized)
}

func TestScenarioD_ImplicitSource(t *testing.T) {
	t.Parallel()

	implicit := policy.NewPattern("B", []core.Source{"get"}, nil, []core.Sink{"output"}, true)
	flows := analyze(t, policy.New(implicit), "z = 1\nw = y + z\noutput(w)\ny = 2\n")
	require.Len(t, flows, 1)
	assert.Equal(t, core.Source("y"), flows[0].Source)
	assert.Equal(t, 2, flows[0].SourceLine)
	assert.Equal(t, 3, flows[0].SinkLine)
}

func TestImplicitSourcesArePatternScoped(t *testing.T) {
	t.Parallel()

	explicit := policy.NewPattern("E", []core.Source{"get"}, nil, []core.Sink{"output"}, false)
	implicit := policy.NewPattern("I", []core.Source{"get"}, nil, []core.Sink{"output"}, true)
	flows := analyze(t, policy.New(explicit, implicit), "output(y)\n")

	require.Len(t, flows, 1)
	assert.Equal(t, core.Vulnerability("I"), flows[0].Vulnerability)
}

func TestSanitizerWithoutTaintHasNoEffect(t *testing.T) {
	t.Parallel()

	pol := policy.New(patternA("clean"))
	flows := analyze(t, pol, "x = clean(1)\ny = input()\noutput(x + y)\n")
	require.Len(t, flows, 1)
	assert.True(t, flows[0].Unsanitized)
	assert.Empty(t, flows[0].Sanitized)
}

func TestMixedPathsMergeIntoOneFinding(t *testing.T) {
	t.Parallel()

	pol := policy.New(patternA("clean"))
	flows := analyze(t, pol, "x = input()\ny = clean(x)\noutput(x + y)\n")
	require.Len(t, flows, 1)
	assert.True(t, flows[0].Unsanitized, "x reaches the sink unsanitized")
	require.Len(t, flows[0].Sanitized, 1, "y reaches it through clean")
}

func TestSelfFlowIsSuppressed(t *testing.T) {
	t.Parallel()

	pat := policy.NewPattern("S", []core.Source{"tok"}, nil, []core.Sink{"tok", "log"}, false)
	flows := analyze(t, policy.New(pat), "tok = tok\nlog(tok)\n")

	// tok reaches log from both of its reads; the assignment to tok itself is not a finding.
	require.Len(t, flows, 2)
	for _, f := range flows {
		assert.Equal(t, core.Sink("log"), f.Sink)
	}
	assert.Equal(t, 1, flows[0].SourceLine)
	assert.Equal(t, 2, flows[1].SourceLine)
}

func TestCallArgumentReadsPersistInState(t *testing.T) {
	t.Parallel()

	pat := policy.NewPattern("A", []core.Source{"tainted"}, nil, []core.Sink{"output"}, false)
	flows := analyze(t, policy.New(pat), "f(tainted)\noutput(tainted)\n")

	// The read passed to f is stored, so both occurrences reach output.
	require.Len(t, flows, 2)
	assert.Equal(t, core.Source("tainted"), flows[0].Source)
	assert.Equal(t, 1, flows[0].SourceLine)
	assert.Equal(t, 2, flows[1].SourceLine)
	for _, f := range flows {
		assert.Equal(t, 2, f.SinkLine)
	}
}

func TestNestedAttributeReadsPersistInState(t *testing.T) {
	t.Parallel()

	pat := policy.NewPattern("A", []core.Source{"args"}, nil, []core.Sink{"execute"}, false)
	flows := analyze(t, policy.New(pat), "db.run(req.args + 1)\nexecute(req.args)\n")

	require.Len(t, flows, 2)
	assert.Equal(t, 1, flows[0].SourceLine)
	assert.Equal(t, 2, flows[1].SourceLine)
}

func TestCalleeNameIsNotStored(t *testing.T) {
	t.Parallel()

	vulns, err := Analyze(zaptest.NewLogger(t), policy.New(patternA()), body(t, "x = input()\nobj.run(x)\n"))
	require.NoError(t, err)
	assert.Equal(t, []core.Variable{"obj", "x"}, vulns.Labelling().Variables())
}

func TestAnalyzeFromLeavesBaseUntouched(t *testing.T) {
	t.Parallel()

	obs, logs := observer.New(zap.DebugLevel)
	base := NewVulnerabilities(policy.New(patternA()))
	vulns, err := AnalyzeFrom(zap.New(obs), base, body(t, "x = input()\noutput(x + y)\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, vulns.Len())
	assert.Equal(t, 0, base.Len())
	assert.Empty(t, base.Labelling().Variables())
	assert.Equal(t, 0, base.Sinks().Len())

	entries := logs.FilterMessage("Names read but never assigned").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []interface{}{"y"}, entries[0].ContextMap()["names"])
}

func TestAssignmentToSink(t *testing.T) {
	t.Parallel()

	pat := policy.NewPattern("X", []core.Source{"input"}, nil, []core.Sink{"sink", "inner"}, false)
	flows := analyze(t, policy.New(pat), "sink = input()\nobj.inner = input()\nsink.attr = 1\n")

	require.Len(t, flows, 2)
	assert.Equal(t, core.Sink("sink"), flows[0].Sink)
	assert.Equal(t, 1, flows[0].SinkLine)
	assert.Equal(t, core.Sink("inner"), flows[1].Sink)
	assert.Equal(t, 2, flows[1].SinkLine)
}

func TestAttributeObjectSinkTakesPriority(t *testing.T) {
	t.Parallel()

	pat := policy.NewPattern("X", []core.Source{"input"}, nil, []core.Sink{"doc", "html"}, false)
	vulns, err := Analyze(zaptest.NewLogger(t), policy.New(pat), body(t, "doc.html = input()\n"))
	require.NoError(t, err)

	flows := vulns.IllegalFlows()
	require.Len(t, flows, 1)
	assert.Equal(t, core.Sink("doc"), flows[0].Sink)
	assert.Equal(t, []label.SinkRef{{Sink: "doc", Line: 1}}, vulns.Sinks().Sinks(pat))
}

func TestAttributesAndMethodCalls(t *testing.T) {
	t.Parallel()

	pat := policy.NewPattern("M", []core.Source{"args"}, []core.Sanitizer{"escape"}, []core.Sink{"execute"}, false)
	src := "q = request.args\ndb.execute(q)\ndb.execute(html.escape(q))\n"
	flows := analyze(t, policy.New(pat), src)

	require.Len(t, flows, 2)
	assert.Equal(t, core.Source("args"), flows[0].Source)
	assert.True(t, flows[0].Unsanitized)
	assert.Equal(t, 2, flows[0].SinkLine)
	assert.False(t, flows[1].Unsanitized)
	assert.Equal(t, 3, flows[1].SinkLine)
}

func TestAssignmentReplacesOldTaint(t *testing.T) {
	t.Parallel()

	flows := analyze(t, policy.New(patternA()), "x = input()\nx = 1\noutput(x)\n")
	assert.Empty(t, flows)
}

func TestKeywordArgumentsCarryTaint(t *testing.T) {
	t.Parallel()

	flows := analyze(t, policy.New(patternA()), "output(data=input())\n")
	require.Len(t, flows, 1)
}

func TestUnsupportedConstructs(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unary":            "x = -input()\n",
		"boolean":          "output(a or b)\n",
		"comparison":       "x = a < b\n",
		"multiple targets": "a = b = input()\n",
		"call of call":     "f()()\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Analyze(zaptest.NewLogger(t), policy.New(patternA()), body(t, src))
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrUnsupportedConstruct)
		})
	}
}

func TestProcessorRejectsControlFlow(t *testing.T) {
	t.Parallel()

	_, err := Analyze(zaptest.NewLogger(t), policy.New(patternA()), body(t, "if a:\n    pass\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedConstruct)
}

func TestDetectUninitialized(t *testing.T) {
	t.Parallel()

	in := DetectUninitialized(body(t, "a = b\nb = f(a)\nc = b + d.e\nd = 1\nobj.x = 2\n"))

	assert.True(t, in.IsUninitialized("b", 1))
	assert.False(t, in.IsUninitialized("a", 2))
	assert.False(t, in.IsUninitialized("b", 3))
	assert.True(t, in.IsUninitialized("d", 3))
	assert.False(t, in.IsUninitialized("f", 2), "callees count as initialized")
	assert.False(t, in.IsUninitialized("e", 3), "attribute names count as initialized")
	assert.True(t, in.IsUninitialized("obj", 5))
	assert.Equal(t, []string{"obj"}, in.NeverWritten())
}
