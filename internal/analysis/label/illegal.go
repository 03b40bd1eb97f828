// File: internal/analysis/label/illegal.go
package label

import (
	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
)

// GetIllegalFlows projects m onto the patterns of pol that declare sink.
// Each selected pattern maps to its current Label. m is not modified.
func GetIllegalFlows(pol *policy.Policy, sink core.Sink, m *MultiLabel) *MultiLabel {
	out := NewMultiLabel()
	for _, p := range pol.Patterns() {
		if !p.HasSink(string(sink)) {
			continue
		}
		out.SetLabel(p, m.Label(p))
	}
	return out
}
