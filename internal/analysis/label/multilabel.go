// File: internal/analysis/label/multilabel.go
package label

import (
	"sort"

	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
)

// MultiLabel holds one Label per pattern for a single value.
type MultiLabel struct {
	labels map[*policy.Pattern]*Label
}

// NewMultiLabel returns a MultiLabel with no patterns.
func NewMultiLabel() *MultiLabel {
	return &MultiLabel{labels: make(map[*policy.Pattern]*Label)}
}

// Label returns a copy of the Label for p, or an empty Label when p was never recorded.
func (m *MultiLabel) Label(p *policy.Pattern) *Label {
	if m == nil {
		return New()
	}
	return m.labels[p].Clone()
}

// AddLabel joins l into the Label stored for p.
func (m *MultiLabel) AddLabel(p *policy.Pattern, l *Label) {
	if l.IsEmpty() {
		return
	}
	m.labels[p] = m.labels[p].Combine(l)
}

// SetLabel replaces the Label stored for p.
func (m *MultiLabel) SetLabel(p *policy.Pattern, l *Label) {
	if l.IsEmpty() {
		delete(m.labels, p)
		return
	}
	m.labels[p] = l.Clone()
}

// Combine returns the per-pattern join of m and other.
func (m *MultiLabel) Combine(other *MultiLabel) *MultiLabel {
	out := m.Clone()
	if other == nil {
		return out
	}
	for p, l := range other.labels {
		out.AddLabel(p, l)
	}
	return out
}

// Clone deep-copies every per-pattern label. A nil receiver yields an empty MultiLabel.
func (m *MultiLabel) Clone() *MultiLabel {
	out := NewMultiLabel()
	if m == nil {
		return out
	}
	for p, l := range m.labels {
		out.labels[p] = l.Clone()
	}
	return out
}

// Patterns lists the patterns with a non-empty Label, ordered by vulnerability name.
func (m *MultiLabel) Patterns() []*policy.Pattern {
	if m == nil {
		return nil
	}
	out := make([]*policy.Pattern, 0, len(m.labels))
	for p, l := range m.labels {
		if !l.IsEmpty() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Vulnerability() < out[j].Vulnerability() })
	return out
}

// IsEmpty reports whether no pattern carries a non-empty label.
func (m *MultiLabel) IsEmpty() bool {
	return len(m.Patterns()) == 0
}

// Equal compares the labels pattern by pattern.
func (m *MultiLabel) Equal(other *MultiLabel) bool {
	mine, theirs := m.Patterns(), other.Patterns()
	if len(mine) != len(theirs) {
		return false
	}
	for _, p := range mine {
		if !m.labels[p].Equal(other.labels[p]) {
			return false
		}
	}
	return true
}
