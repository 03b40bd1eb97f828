// File: internal/analysis/label/label.go
package label

import (
	"sort"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
)

// SourceRef is a source occurrence: the name and the line it was read at.
type SourceRef struct {
	Source core.Source
	Line   int
}

// Label is the taint state of one value for one pattern: the source
// occurrences that may reach it and, per source name, the Flows by which
// they do. Every source in sources has a non-empty Flow set.
type Label struct {
	sources map[SourceRef]struct{}
	flows   map[core.Source]FlowSet
}

// New returns the empty Label.
func New() *Label {
	return &Label{
		sources: make(map[SourceRef]struct{}),
		flows:   make(map[core.Source]FlowSet),
	}
}

// AddSource records a source occurrence. A source seen for the first time
// starts with a single unsanitized Flow; known sources keep their Flows.
func (l *Label) AddSource(source core.Source, line int) {
	l.sources[SourceRef{Source: source, Line: line}] = struct{}{}
	if len(l.flows[source]) == 0 {
		l.flows[source] = NewFlowSet(Flow{})
	}
}

// AddSanitizer extends every Flow of source with (sanitizer, line).
// It does nothing when the label carries no Flow for source.
func (l *Label) AddSanitizer(sanitizer core.Sanitizer, line int, source core.Source) {
	flows := l.flows[source]
	if len(flows) == 0 {
		return
	}
	l.flows[source] = flows.Sanitized(sanitizer, line)
}

// Sanitize applies the sanitizer to the Flows of every source in the label.
func (l *Label) Sanitize(sanitizer core.Sanitizer, line int) {
	for source := range l.flows {
		l.AddSanitizer(sanitizer, line, source)
	}
}

// Combine returns the join of l and other. Neither operand is modified.
func (l *Label) Combine(other *Label) *Label {
	out := l.Clone()
	if other == nil {
		return out
	}
	for ref := range other.sources {
		out.sources[ref] = struct{}{}
	}
	for source, flows := range other.flows {
		out.flows[source] = out.flows[source].Union(flows)
	}
	return out
}

// Clone returns a copy that shares nothing mutable with l.
func (l *Label) Clone() *Label {
	out := New()
	if l == nil {
		return out
	}
	for ref := range l.sources {
		out.sources[ref] = struct{}{}
	}
	for source, flows := range l.flows {
		out.flows[source] = flows.Union(nil)
	}
	return out
}

// IsEmpty reports whether the label carries no taint.
func (l *Label) IsEmpty() bool {
	return l == nil || len(l.sources) == 0
}

// Sources lists the source occurrences ordered by line, then name.
func (l *Label) Sources() []SourceRef {
	if l == nil {
		return nil
	}
	out := make([]SourceRef, 0, len(l.sources))
	for ref := range l.sources {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// Flows returns a copy of the Flow set recorded for source. A miss is an empty set.
func (l *Label) Flows(source core.Source) FlowSet {
	if l == nil {
		return FlowSet{}
	}
	return l.flows[source].Union(nil)
}

// Equal reports whether both labels carry the same sources and flows.
func (l *Label) Equal(other *Label) bool {
	if l.IsEmpty() || other.IsEmpty() {
		return l.IsEmpty() && other.IsEmpty()
	}
	if len(l.sources) != len(other.sources) || len(l.flows) != len(other.flows) {
		return false
	}
	for ref := range l.sources {
		if _, ok := other.sources[ref]; !ok {
			return false
		}
	}
	for source, flows := range l.flows {
		if !flows.Equal(other.flows[source]) {
			return false
		}
	}
	return true
}
