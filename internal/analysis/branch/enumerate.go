// File: internal/analysis/branch/enumerate.go
package branch

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
)

// DefaultMaxVariants bounds the Cartesian product when no limit is configured.
const DefaultMaxVariants = 1 << 16

// Variant is one branch-free rewrite of a unit.
type Variant struct {
	// Index numbers the distinct variants from zero in enumeration order.
	Index   int
	Choices []int
	Body    []python.Stmt
}

// Enumerator expands a unit into its branch-free variants.
type Enumerator struct {
	LoopUnroll  int
	MaxVariants int
}

func NewEnumerator(loopUnroll, maxVariants int) *Enumerator {
	return &Enumerator{LoopUnroll: loopUnroll, MaxVariants: maxVariants}
}

// Stats describes one enumeration.
type Stats struct {
	ControlNodes int
	Combinations int
	Distinct     int
}

// Enumerate calls yield once for every distinct variant of body. Choice vectors
// are visited like an odometer, the last control node changing fastest.
// Variants that print identically are yielded once. Enumeration stops at the
// first error returned by yield or when ctx is done.
func (e *Enumerator) Enumerate(ctx context.Context, body []python.Stmt, yield func(Variant) error) (Stats, error) {
	limit := e.MaxVariants
	if limit <= 0 {
		limit = DefaultMaxVariants
	}
	plan := Count(body, e.LoopUnroll)
	stats := Stats{ControlNodes: plan.Nodes()}

	total := plan.Combinations(limit)
	if total > limit {
		return stats, fmt.Errorf("%w: more than %d combinations for %d control nodes", core.ErrTooManyVariants, limit, plan.Nodes())
	}
	stats.Combinations = total

	domains := plan.Domains()
	choices := make([]int, len(domains))
	seen := make(map[string]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		flat, err := plan.Transform(body, choices)
		if err != nil {
			return stats, err
		}
		key := python.Dump(flat)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			v := Variant{Index: stats.Distinct, Choices: append([]int(nil), choices...), Body: flat}
			stats.Distinct++
			if err := yield(v); err != nil {
				return stats, err
			}
		}
		if !next(choices, domains) {
			return stats, nil
		}
	}
}

// Variants collects every distinct variant.
func (e *Enumerator) Variants(ctx context.Context, body []python.Stmt) ([]Variant, error) {
	var out []Variant
	_, err := e.Enumerate(ctx, body, func(v Variant) error {
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// next advances choices in place and reports false once every combination was visited.
func next(choices, domains []int) bool {
	for i := len(choices) - 1; i >= 0; i-- {
		choices[i]++
		if choices[i] < domains[i] {
			return true
		}
		choices[i] = 0
	}
	return false
}
