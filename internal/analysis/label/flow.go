// File: internal/analysis/label/flow.go
package label

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
)

// Step is one sanitizer application observed on a path.
type Step struct {
	Sanitizer core.Sanitizer
	Line      int
}

func (s Step) String() string {
	return fmt.Sprintf("%s@%d", s.Sanitizer, s.Line)
}

// Flow is the set of sanitizer steps seen along one path from a source.
// The zero value is the empty Flow: a path with no sanitizer on it.
//
// Flows are values. With returns a new Flow and never touches the receiver,
// so a Flow can be shared between Labels without aliasing problems.
type Flow struct {
	// steps is sorted by (Sanitizer, Line) and free of duplicates.
	steps []Step
}

// NewFlow builds a Flow from steps in any order.
func NewFlow(steps ...Step) Flow {
	var f Flow
	for _, s := range steps {
		f = f.With(s.Sanitizer, s.Line)
	}
	return f
}

// IsEmpty reports whether no sanitizer has been seen on this path.
func (f Flow) IsEmpty() bool {
	return len(f.steps) == 0
}

// Steps returns a copy of the steps in canonical order.
func (f Flow) Steps() []Step {
	out := make([]Step, len(f.steps))
	copy(out, f.steps)
	return out
}

// With returns the Flow extended by (sanitizer, line).
func (f Flow) With(sanitizer core.Sanitizer, line int) Flow {
	step := Step{Sanitizer: sanitizer, Line: line}
	i := sort.Search(len(f.steps), func(i int) bool { return !stepLess(f.steps[i], step) })
	if i < len(f.steps) && f.steps[i] == step {
		return f
	}
	steps := make([]Step, 0, len(f.steps)+1)
	steps = append(steps, f.steps[:i]...)
	steps = append(steps, step)
	steps = append(steps, f.steps[i:]...)
	return Flow{steps: steps}
}

// Equal reports whether both flows have the same steps.
func (f Flow) Equal(other Flow) bool {
	if len(f.steps) != len(other.steps) {
		return false
	}
	for i := range f.steps {
		if f.steps[i] != other.steps[i] {
			return false
		}
	}
	return true
}

// Key is the canonical string form, used as the set key.
func (f Flow) Key() string {
	parts := make([]string, len(f.steps))
	for i, s := range f.steps {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (f Flow) String() string { return f.Key() }

func stepLess(a, b Step) bool {
	if a.Sanitizer != b.Sanitizer {
		return a.Sanitizer < b.Sanitizer
	}
	return a.Line < b.Line
}

// flowLess orders Flows by length, then step by step.
func flowLess(a, b Flow) bool {
	if len(a.steps) != len(b.steps) {
		return len(a.steps) < len(b.steps)
	}
	for i := range a.steps {
		if a.steps[i] != b.steps[i] {
			return stepLess(a.steps[i], b.steps[i])
		}
	}
	return false
}

// FlowSet is a set of Flows keyed by their canonical form.
type FlowSet map[string]Flow

// NewFlowSet returns a set holding flows.
func NewFlowSet(flows ...Flow) FlowSet {
	s := make(FlowSet, len(flows))
	for _, f := range flows {
		s.Add(f)
	}
	return s
}

// Add inserts f, ignoring duplicates.
func (s FlowSet) Add(f Flow) {
	s[f.Key()] = f
}

// Has reports whether f is in the set.
func (s FlowSet) Has(f Flow) bool {
	_, ok := s[f.Key()]
	return ok
}

// HasEmpty reports whether an unsanitized path is in the set.
func (s FlowSet) HasEmpty() bool {
	return s.Has(Flow{})
}

// Union returns a new set with the members of both.
func (s FlowSet) Union(other FlowSet) FlowSet {
	out := make(FlowSet, len(s)+len(other))
	for k, f := range s {
		out[k] = f
	}
	for k, f := range other {
		out[k] = f
	}
	return out
}

// Sanitized returns a new set where every member carries (sanitizer, line).
func (s FlowSet) Sanitized(sanitizer core.Sanitizer, line int) FlowSet {
	out := make(FlowSet, len(s))
	for _, f := range s {
		out.Add(f.With(sanitizer, line))
	}
	return out
}

// Equal reports whether both sets hold the same flows.
func (s FlowSet) Equal(other FlowSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Sorted lists the members, shortest first.
func (s FlowSet) Sorted() []Flow {
	out := make([]Flow, 0, len(s))
	for _, f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return flowLess(out[i], out[j]) })
	return out
}

// NonEmpty lists the sanitized members in canonical order.
func (s FlowSet) NonEmpty() []Flow {
	all := s.Sorted()
	out := all[:0]
	for _, f := range all {
		if !f.IsEmpty() {
			out = append(out, f)
		}
	}
	return out
}
