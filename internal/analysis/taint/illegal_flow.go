// File: internal/analysis/taint/illegal_flow.go
package taint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/label"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
)

// IllegalFlow is one source reaching one sink for one pattern.
type IllegalFlow struct {
	Pattern       *policy.Pattern
	Vulnerability core.Vulnerability
	Source        core.Source
	SourceLine    int
	Sink          core.Sink
	SinkLine      int
	// Unsanitized is set when at least one path carries no sanitizer.
	Unsanitized bool
	// Sanitized holds the sanitized paths in canonical order.
	Sanitized []label.Flow
}

// flowKey identifies findings that are merged together.
type flowKey struct {
	pattern    *policy.Pattern
	source     core.Source
	sourceLine int
	sink       core.Sink
	sinkLine   int
}

func (f IllegalFlow) key() flowKey {
	return flowKey{pattern: f.Pattern, source: f.Source, sourceLine: f.SourceLine, sink: f.Sink, sinkLine: f.SinkLine}
}

// merge unions the sanitized paths and ORs the unsanitized flag of two findings with the same key.
func (f IllegalFlow) merge(other IllegalFlow) IllegalFlow {
	set := label.NewFlowSet(f.Sanitized...)
	for _, fl := range other.Sanitized {
		set.Add(fl)
	}
	f.Sanitized = set.NonEmpty()
	f.Unsanitized = f.Unsanitized || other.Unsanitized
	return f
}

func (f IllegalFlow) String() string {
	sanitized := make([]string, len(f.Sanitized))
	for i, fl := range f.Sanitized {
		sanitized[i] = fl.Key()
	}
	return fmt.Sprintf("%s: %s@%d -> %s@%d unsanitized=%t sanitized=[%s]",
		f.Vulnerability, f.Source, f.SourceLine, f.Sink, f.SinkLine, f.Unsanitized, strings.Join(sanitized, " "))
}

// flowsFromLabel builds the findings a Label yields at one sink occurrence.
// A source named like the sink is skipped, as is a source with no recorded path.
func flowsFromLabel(p *policy.Pattern, lbl *label.Label, sink core.Sink, line int) []IllegalFlow {
	var out []IllegalFlow
	for _, ref := range lbl.Sources() {
		if string(ref.Source) == string(sink) {
			continue
		}
		paths := lbl.Flows(ref.Source)
		if len(paths) == 0 {
			continue
		}
		out = append(out, IllegalFlow{
			Pattern:       p,
			Vulnerability: p.Vulnerability(),
			Source:        ref.Source,
			SourceLine:    ref.Line,
			Sink:          sink,
			SinkLine:      line,
			Unsanitized:   paths.HasEmpty(),
			Sanitized:     paths.NonEmpty(),
		})
	}
	return out
}

// Finding is an IllegalFlow with its report identifier, e.g. "A_2".
type Finding struct {
	ID string
	IllegalFlow
}

// Number sorts flows by vulnerability, sink line, sink, source line and source,
// then numbers them from 1 within each vulnerability.
func Number(flows []IllegalFlow) []Finding {
	sorted := make([]IllegalFlow, len(flows))
	copy(sorted, flows)
	SortFlows(sorted)

	counters := make(map[core.Vulnerability]int)
	out := make([]Finding, len(sorted))
	for i, f := range sorted {
		counters[f.Vulnerability]++
		out[i] = Finding{ID: fmt.Sprintf("%s_%d", f.Vulnerability, counters[f.Vulnerability]), IllegalFlow: f}
	}
	return out
}

// SortFlows orders flows in report order.
func SortFlows(flows []IllegalFlow) {
	sort.SliceStable(flows, func(i, j int) bool {
		a, b := flows[i], flows[j]
		switch {
		case a.Vulnerability != b.Vulnerability:
			return a.Vulnerability < b.Vulnerability
		case a.SinkLine != b.SinkLine:
			return a.SinkLine < b.SinkLine
		case a.Sink != b.Sink:
			return a.Sink < b.Sink
		case a.SourceLine != b.SourceLine:
			return a.SourceLine < b.SourceLine
		case a.Source != b.Source:
			return a.Source < b.Source
		}
		return patternKey(a.Pattern) < patternKey(b.Pattern)
	})
}

func patternKey(p *policy.Pattern) string {
	if p == nil {
		return ""
	}
	return fmt.Sprint(p.Sources(), p.Sanitizers(), p.Sinks(), p.Implicit())
}
