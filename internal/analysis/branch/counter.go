// File: internal/analysis/branch/counter.go
package branch

import (
	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
)

// DefaultLoopUnroll is the number of loop iterations explored when none is configured.
const DefaultLoopUnroll = 3

// Plan numbers the control nodes of a unit and records how many choices each one has.
// Nodes are numbered in pre-order: a node comes before the nodes nested in its
// body, which come before those nested in its else branch.
type Plan struct {
	loopUnroll int
	index      map[python.Stmt]int
	domains    []int
}

// Count walks body and builds its Plan. Each If has two choices (then, else);
// each While has 1+loopUnroll choices (skip, or run the body 1..loopUnroll times).
func Count(body []python.Stmt, loopUnroll int) *Plan {
	if loopUnroll < 1 {
		loopUnroll = DefaultLoopUnroll
	}
	p := &Plan{loopUnroll: loopUnroll, index: make(map[python.Stmt]int)}
	p.visit(body)
	return p
}

func (p *Plan) visit(body []python.Stmt) {
	for _, s := range body {
		switch n := s.(type) {
		case *python.If:
			p.add(n, 2)
			p.visit(n.Body)
			p.visit(n.Orelse)
		case *python.While:
			p.add(n, 1+p.loopUnroll)
			p.visit(n.Body)
			p.visit(n.Orelse)
		}
	}
}

func (p *Plan) add(s python.Stmt, choices int) {
	p.index[s] = len(p.domains)
	p.domains = append(p.domains, choices)
}

// Nodes is the number of control nodes.
func (p *Plan) Nodes() int { return len(p.domains) }

// Domains returns the number of choices per control node, in numbering order.
func (p *Plan) Domains() []int {
	out := make([]int, len(p.domains))
	copy(out, p.domains)
	return out
}

// Combinations is the size of the Cartesian product of all domains, capped at
// limit+1 so callers can detect overflow without computing huge products.
func (p *Plan) Combinations(limit int) int {
	total := 1
	for _, d := range p.domains {
		total *= d
		if total > limit {
			return limit + 1
		}
	}
	return total
}
