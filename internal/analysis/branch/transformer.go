// File: internal/analysis/branch/transformer.go
package branch

import (
	"fmt"

	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
)

// Transform rewrites body into a branch-free statement list using one choice per
// control node of the plan. An If becomes its chosen branch spliced inline. A
// While with choice 0 becomes its else branch; with choice k it becomes its
// body k times followed by the else branch. Nodes nested in a repeated body
// take the same choice in every repetition.
//
// The returned statements share expression nodes with body.
func (p *Plan) Transform(body []python.Stmt, choices []int) ([]python.Stmt, error) {
	if len(choices) != len(p.domains) {
		return nil, fmt.Errorf("choice vector has %d entries, plan has %d control nodes", len(choices), len(p.domains))
	}
	for i, c := range choices {
		if c < 0 || c >= p.domains[i] {
			return nil, fmt.Errorf("choice %d for control node %d is outside 0..%d", c, i, p.domains[i]-1)
		}
	}
	return p.rewrite(body, choices)
}

func (p *Plan) rewrite(body []python.Stmt, choices []int) ([]python.Stmt, error) {
	out := make([]python.Stmt, 0, len(body))
	for _, s := range body {
		switch n := s.(type) {
		case *python.If:
			idx, err := p.lookup(n)
			if err != nil {
				return nil, err
			}
			branch := n.Body
			if choices[idx] == 1 {
				branch = n.Orelse
			}
			flat, err := p.rewrite(branch, choices)
			if err != nil {
				return nil, err
			}
			out = append(out, flat...)

		case *python.While:
			idx, err := p.lookup(n)
			if err != nil {
				return nil, err
			}
			if times := choices[idx]; times > 0 {
				flat, err := p.rewrite(n.Body, choices)
				if err != nil {
					return nil, err
				}
				for i := 0; i < times; i++ {
					out = append(out, flat...)
				}
			}
			tail, err := p.rewrite(n.Orelse, choices)
			if err != nil {
				return nil, err
			}
			out = append(out, tail...)

		default:
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *Plan) lookup(s python.Stmt) (int, error) {
	idx, ok := p.index[s]
	if !ok {
		return 0, fmt.Errorf("control node at line %d was not counted by this plan", s.Line())
	}
	return idx, nil
}
