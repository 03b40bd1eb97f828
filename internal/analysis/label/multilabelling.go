// File: internal/analysis/label/multilabelling.go
package label

import (
	"sort"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
)

// MultiLabelling maps every variable seen so far to its MultiLabel.
type MultiLabelling struct {
	vars map[core.Variable]*MultiLabel
}

// NewMultiLabelling returns an empty state with no known variables.
func NewMultiLabelling() *MultiLabelling {
	return &MultiLabelling{vars: make(map[core.Variable]*MultiLabel)}
}

// MultiLabel returns a copy of the state of v. Unknown variables are untainted.
func (ml *MultiLabelling) MultiLabel(v core.Variable) *MultiLabel {
	return ml.vars[v].Clone()
}

// Add joins m into the state of v.
func (ml *MultiLabelling) Add(v core.Variable, m *MultiLabel) {
	ml.vars[v] = ml.vars[v].Combine(m)
}

// Override replaces the state of v, as an assignment does.
func (ml *MultiLabelling) Override(v core.Variable, m *MultiLabel) {
	ml.vars[v] = m.Clone()
}

// Variables lists the known variables in lexical order.
func (ml *MultiLabelling) Variables() []core.Variable {
	out := make([]core.Variable, 0, len(ml.vars))
	for v := range ml.vars {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Combine returns the per-variable join of both states.
func (ml *MultiLabelling) Combine(other *MultiLabelling) *MultiLabelling {
	out := ml.Clone()
	if other == nil {
		return out
	}
	for v, m := range other.vars {
		out.Add(v, m)
	}
	return out
}

// Clone deep-copies the state.
func (ml *MultiLabelling) Clone() *MultiLabelling {
	out := NewMultiLabelling()
	if ml == nil {
		return out
	}
	for v, m := range ml.vars {
		out.vars[v] = m.Clone()
	}
	return out
}

// Equal treats a variable mapped to an empty MultiLabel as absent.
func (ml *MultiLabelling) Equal(other *MultiLabelling) bool {
	seen := make(map[core.Variable]struct{})
	for v := range ml.vars {
		seen[v] = struct{}{}
	}
	for v := range other.vars {
		seen[v] = struct{}{}
	}
	for v := range seen {
		if !ml.vars[v].Equal(other.vars[v]) {
			return false
		}
	}
	return true
}
