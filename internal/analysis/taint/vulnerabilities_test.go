// File: internal/analysis/taint/vulnerabilities_test.go
package taint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/label"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
)

func flow(p *policy.Pattern, src core.Source, srcLine int, sink core.Sink, sinkLine int, unsanitized bool, sanitized ...label.Flow) IllegalFlow {
	return IllegalFlow{
		Pattern: p, Vulnerability: p.Vulnerability(),
		Source: src, SourceLine: srcLine, Sink: sink, SinkLine: sinkLine,
		Unsanitized: unsanitized, Sanitized: sanitized,
	}
}

func TestVulnerabilities_AddMergesSameKey(t *testing.T) {
	t.Parallel()
	p := patternA("clean", "escape")

	v := NewVulnerabilities(policy.New(p))
	cleaned := label.NewFlow(label.Step{Sanitizer: "clean", Line: 2})
	escaped := label.NewFlow(label.Step{Sanitizer: "escape", Line: 3})

	v.Add(flow(p, "input", 1, "output", 4, false, cleaned))
	v.Add(flow(p, "input", 1, "output", 4, true, escaped))
	v.Add(flow(p, "input", 1, "output", 4, false, cleaned))
	v.Add(flow(p, "input", 2, "output", 4, false))

	flows := v.IllegalFlows()
	require.Len(t, flows, 2)
	assert.Equal(t, 2, v.Len())
	assert.True(t, flows[0].Unsanitized)
	assert.Len(t, flows[0].Sanitized, 2)
	assert.Equal(t, 2, flows[1].SourceLine)
}

func TestVulnerabilities_MergeAndClone(t *testing.T) {
	t.Parallel()
	p := patternA()

	a := NewVulnerabilities(policy.New(p))
	a.Add(flow(p, "input", 1, "output", 2, true))
	b := a.Clone()
	b.Add(flow(p, "input", 3, "output", 4, true))
	b.AddSink(p, "output", 4)

	assert.Equal(t, 1, a.Len(), "clones do not share findings")

	a.Merge(b)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 1, a.Sinks().Len())
}

func TestNumber(t *testing.T) {
	t.Parallel()
	pa := patternA()
	pb := policy.NewPattern("B", []core.Source{"get"}, nil, []core.Sink{"output"}, false)

	findings := Number([]IllegalFlow{
		flow(pb, "get", 1, "output", 9, true),
		flow(pa, "input", 5, "output", 7, true),
		flow(pa, "input", 1, "output", 7, true),
		flow(pa, "input", 1, "output", 3, true),
	})

	ids := make([]string, len(findings))
	lines := make([][2]int, len(findings))
	for i, f := range findings {
		ids[i] = f.ID
		lines[i] = [2]int{f.SinkLine, f.SourceLine}
	}
	assert.Equal(t, []string{"A_1", "A_2", "A_3", "B_1"}, ids)
	assert.Equal(t, [][2]int{{3, 1}, {7, 1}, {7, 5}, {9, 1}}, lines)
}
