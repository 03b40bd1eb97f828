// File: internal/analysis/taint/vulnerabilities.go
package taint

import (
	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/label"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
)

// Vulnerabilities is the mutable state of one analysis: the taint state of
// every variable, the sinks reached and the findings so far. Each branch
// variant gets its own instance; only the policy is shared.
type Vulnerabilities struct {
	policy    *policy.Policy
	labelling *label.MultiLabelling
	sinks     *label.MultiSink
	flows     map[flowKey]IllegalFlow
}

// NewVulnerabilities returns an empty result set with a fresh state for pol.
func NewVulnerabilities(pol *policy.Policy) *Vulnerabilities {
	return &Vulnerabilities{
		policy:    pol,
		labelling: label.NewMultiLabelling(),
		sinks:     label.NewMultiSink(),
		flows:     make(map[flowKey]IllegalFlow),
	}
}

// Policy is the policy the findings are checked against.
func (v *Vulnerabilities) Policy() *policy.Policy { return v.policy }

// Labelling is the live taint state. Callers may read and update it.
func (v *Vulnerabilities) Labelling() *label.MultiLabelling { return v.labelling }

// Sinks is the registry of sink calls seen so far.
func (v *Vulnerabilities) Sinks() *label.MultiSink { return v.sinks }

// AddSink records a sink occurrence.
func (v *Vulnerabilities) AddSink(p *policy.Pattern, sink core.Sink, line int) {
	v.sinks.Add(p, sink, line)
}

// Add records findings. A finding with the key of an earlier one is merged into it.
func (v *Vulnerabilities) Add(flows ...IllegalFlow) {
	for _, f := range flows {
		k := f.key()
		if prev, ok := v.flows[k]; ok {
			f = prev.merge(f)
		}
		v.flows[k] = f
	}
}

// Merge folds the findings and sink occurrences of other into v.
func (v *Vulnerabilities) Merge(other *Vulnerabilities) {
	for _, f := range other.flows {
		v.Add(f)
	}
	v.sinks = v.sinks.Combine(other.sinks)
}

// IllegalFlows returns the findings in report order.
func (v *Vulnerabilities) IllegalFlows() []IllegalFlow {
	out := make([]IllegalFlow, 0, len(v.flows))
	for _, f := range v.flows {
		out = append(out, f)
	}
	SortFlows(out)
	return out
}

// Len is the number of distinct findings.
func (v *Vulnerabilities) Len() int { return len(v.flows) }

// Clone copies all mutable state. The policy is shared.
func (v *Vulnerabilities) Clone() *Vulnerabilities {
	out := &Vulnerabilities{
		policy:    v.policy,
		labelling: v.labelling.Clone(),
		sinks:     v.sinks.Clone(),
		flows:     make(map[flowKey]IllegalFlow, len(v.flows)),
	}
	for k, f := range v.flows {
		f.Sanitized = append([]label.Flow(nil), f.Sanitized...)
		out.flows[k] = f
	}
	return out
}
