// File: internal/analysis/taint/labeler.go
package taint

import (
	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/label"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
)

// Labeler computes the MultiLabel an expression evaluates to under the
// current taint state. It never changes the state.
type Labeler struct {
	policy *policy.Policy
	state  *label.MultiLabelling
	inits  *Initialization
}

// NewLabeler creates a Labeler that reads state under pol.
func NewLabeler(pol *policy.Policy, state *label.MultiLabelling, inits *Initialization) *Labeler {
	return &Labeler{policy: pol, state: state, inits: inits}
}

// Label evaluates e. Unary, boolean and comparison operators are rejected.
func (l *Labeler) Label(e python.Expr) (*label.MultiLabel, error) {
	switch n := e.(type) {
	case *python.Constant:
		return label.NewMultiLabel(), nil

	case *python.Name:
		ml := l.state.MultiLabel(core.Variable(n.ID))
		l.seed(ml, n.ID, n.Line(), n.Ctx == python.Load, true)
		return ml, nil

	case *python.Attribute:
		ml, err := l.Label(n.Value)
		if err != nil {
			return nil, err
		}
		ml = ml.Combine(l.state.MultiLabel(attributeVariable(n)))
		l.seed(ml, n.Attr, n.Line(), n.Ctx == python.Load, false)
		return ml, nil

	case *python.BinOp:
		left, err := l.Label(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := l.Label(n.Right)
		if err != nil {
			return nil, err
		}
		return left.Combine(right), nil

	case *python.Call:
		return l.call(n)

	case *python.UnaryOp:
		return nil, core.Unsupported("UnaryOp", n.Line(), "label")
	case *python.BoolOp:
		return nil, core.Unsupported("BoolOp", n.Line(), "label")
	case *python.Compare:
		return nil, core.Unsupported("Compare", n.Line(), "label")
	}
	return nil, core.Unsupported(nodeKind(e), lineOf(e), "label")
}

// seed adds name at line as a source for every pattern that declares it
// (reads only) and, for implicit patterns, for uninitialized reads.
func (l *Labeler) seed(ml *label.MultiLabel, name string, line int, load, checkInit bool) {
	uninit := checkInit && load && l.inits != nil && l.inits.IsUninitialized(name, line)
	for _, p := range l.policy.Patterns() {
		if !(load && p.HasSource(name)) && !(uninit && p.Implicit()) {
			continue
		}
		src := label.New()
		src.AddSource(core.Source(name), line)
		ml.AddLabel(p, src)
	}
}

// call joins the callee with all arguments, then applies the callee as a
// sanitizer for the patterns that declare it.
func (l *Labeler) call(n *python.Call) (*label.MultiLabel, error) {
	callee, err := calleeName(n)
	if err != nil {
		return nil, err
	}
	ml, err := l.Label(n.Func)
	if err != nil {
		return nil, err
	}
	args := label.NewMultiLabel()
	for _, a := range callArguments(n) {
		al, err := l.Label(a)
		if err != nil {
			return nil, err
		}
		args = args.Combine(al)
	}
	ml = ml.Combine(args)

	for _, p := range l.policy.Patterns() {
		if !p.HasSanitizer(callee) {
			continue
		}
		lbl := ml.Label(p)
		if lbl.IsEmpty() {
			continue
		}
		lbl.Sanitize(core.Sanitizer(callee), n.Line())
		ml.SetLabel(p, lbl)
	}
	return ml, nil
}

// calleeName is the identifier a call is matched by: the name itself, or the
// attribute for method calls.
func calleeName(n *python.Call) (string, error) {
	switch fn := n.Func.(type) {
	case *python.Name:
		return fn.ID, nil
	case *python.Attribute:
		return fn.Attr, nil
	}
	return "", core.Unsupported(nodeKind(n.Func), n.Line(), "callee")
}

func callArguments(n *python.Call) []python.Expr {
	out := make([]python.Expr, 0, len(n.Args)+len(n.Keywords))
	out = append(out, n.Args...)
	for _, kw := range n.Keywords {
		out = append(out, kw.Value)
	}
	return out
}

// attributeVariable is the flattened "obj.attr" variable of an attribute.
func attributeVariable(n *python.Attribute) core.Variable {
	return core.AttributeVariable(n.Value.String(), n.Attr)
}

// baseName is the leftmost identifier of an attribute chain, if any.
func baseName(e python.Expr) (string, bool) {
	for {
		switch n := e.(type) {
		case *python.Name:
			return n.ID, true
		case *python.Attribute:
			e = n.Value
		default:
			return "", false
		}
	}
}
