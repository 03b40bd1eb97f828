// File: internal/analysis/label/multisink.go
package label

import (
	"sort"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
)

// SinkRef is a sink occurrence.
type SinkRef struct {
	Sink core.Sink
	Line int
}

// MultiSink records, per pattern, where its sinks were reached.
type MultiSink struct {
	sinks map[*policy.Pattern]map[SinkRef]struct{}
}

// NewMultiSink returns an empty sink registry.
func NewMultiSink() *MultiSink {
	return &MultiSink{sinks: make(map[*policy.Pattern]map[SinkRef]struct{})}
}

// Add records that sink is called at line under p.
func (ms *MultiSink) Add(p *policy.Pattern, sink core.Sink, line int) {
	set, ok := ms.sinks[p]
	if !ok {
		set = make(map[SinkRef]struct{})
		ms.sinks[p] = set
	}
	set[SinkRef{Sink: sink, Line: line}] = struct{}{}
}

// Sinks lists the occurrences recorded for p by line, then name.
func (ms *MultiSink) Sinks(p *policy.Pattern) []SinkRef {
	out := make([]SinkRef, 0, len(ms.sinks[p]))
	for ref := range ms.sinks[p] {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Sink < out[j].Sink
	})
	return out
}

// Len counts every recorded occurrence.
func (ms *MultiSink) Len() int {
	n := 0
	for _, set := range ms.sinks {
		n += len(set)
	}
	return n
}

// Combine returns the union of both registries.
func (ms *MultiSink) Combine(other *MultiSink) *MultiSink {
	out := ms.Clone()
	if other == nil {
		return out
	}
	for p, set := range other.sinks {
		for ref := range set {
			out.Add(p, ref.Sink, ref.Line)
		}
	}
	return out
}

// Clone copies the registry.
func (ms *MultiSink) Clone() *MultiSink {
	out := NewMultiSink()
	if ms == nil {
		return out
	}
	for p, set := range ms.sinks {
		for ref := range set {
			out.Add(p, ref.Sink, ref.Line)
		}
	}
	return out
}
