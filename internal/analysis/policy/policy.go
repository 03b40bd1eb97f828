// File: internal/analysis/policy/policy.go
package policy

import (
	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
)

// Policy is the read-only set of patterns for one analysis run. It is shared
// by every branch variant.
type Policy struct {
	patterns []*Pattern
}

// New builds a policy from already validated patterns. Patterns equal as sets
// are kept once.
func New(patterns ...*Pattern) *Policy {
	pol := &Policy{patterns: make([]*Pattern, 0, len(patterns))}
	for _, p := range patterns {
		if p == nil || pol.contains(p) {
			continue
		}
		pol.patterns = append(pol.patterns, p)
	}
	return pol
}

func (pol *Policy) contains(p *Pattern) bool {
	for _, existing := range pol.patterns {
		if existing.Equal(p) {
			return true
		}
	}
	return false
}

// Patterns returns the patterns in load order. The slice must not be modified.
func (pol *Policy) Patterns() []*Pattern {
	return pol.patterns
}

// Vulnerabilities lists the vulnerability names in load order.
func (pol *Policy) Vulnerabilities() []core.Vulnerability {
	out := make([]core.Vulnerability, 0, len(pol.patterns))
	for _, p := range pol.patterns {
		out = append(out, p.Vulnerability())
	}
	return out
}

// Equal compares policies as sets of patterns.
func (pol *Policy) Equal(other *Policy) bool {
	if len(pol.patterns) != len(other.patterns) {
		return false
	}
	for _, p := range pol.patterns {
		if !other.contains(p) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the policy in the pattern-file shape, with sorted name lists.
func (pol *Policy) MarshalJSON() ([]byte, error) {
	records := make([]patternRecord, 0, len(pol.patterns))
	for _, p := range pol.patterns {
		records = append(records, recordOf(p))
	}
	return json.Marshal(records)
}

// UnmarshalJSON replaces the policy with the decoded, validated patterns.
func (pol *Policy) UnmarshalJSON(data []byte) error {
	decoded, err := Parse(data, "")
	if err != nil {
		return err
	}
	*pol = *decoded
	return nil
}

func recordOf(p *Pattern) patternRecord {
	rec := patternRecord{
		Vulnerability: string(p.Vulnerability()),
		Sources:       []string{},
		Sanitizers:    []string{},
		Sinks:         []string{},
		Implicit:      implicitFlag(p.Implicit()),
	}
	for _, s := range p.Sources() {
		rec.Sources = append(rec.Sources, string(s))
	}
	for _, s := range p.Sanitizers() {
		rec.Sanitizers = append(rec.Sanitizers, string(s))
	}
	for _, s := range p.Sinks() {
		rec.Sinks = append(rec.Sinks, string(s))
	}
	return rec
}
