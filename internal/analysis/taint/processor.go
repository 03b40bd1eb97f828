// File: internal/analysis/taint/processor.go
package taint

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/label"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
)

// Processor walks the statements of a branch-free unit in order, updating the
// taint state and recording a finding whenever tainted data reaches a sink.
type Processor struct {
	logger  *zap.Logger
	vulns   *Vulnerabilities
	labeler *Labeler
}

// NewProcessor creates a Processor that records into vulns.
func NewProcessor(logger *zap.Logger, vulns *Vulnerabilities, inits *Initialization) *Processor {
	return &Processor{
		logger:  logger.Named("processor"),
		vulns:   vulns,
		labeler: NewLabeler(vulns.Policy(), vulns.Labelling(), inits),
	}
}

// Process runs every statement of body. If and While must already have been
// expanded away; meeting one is an error.
func (p *Processor) Process(body []python.Stmt) error {
	for _, s := range body {
		if err := p.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) stmt(s python.Stmt) error {
	switch n := s.(type) {
	case *python.ExprStmt:
		return p.exprStmt(n.Value)
	case *python.Assign:
		return p.assign(n)
	case *python.Pass:
		return nil
	case *python.If:
		return core.Unsupported("If", n.Line(), "branches must be expanded before processing")
	case *python.While:
		return core.Unsupported("While", n.Line(), "branches must be expanded before processing")
	}
	return core.Unsupported(nodeKind(s), lineOf(s), "process")
}

// exprStmt walks a bare expression statement.
func (p *Processor) exprStmt(e python.Expr) error {
	return p.expr(e)
}

// expr walks e innermost first. Every name or attribute read merges its label
// into the state, and every call is checked as a sink.
func (p *Processor) expr(e python.Expr) error {
	switch n := e.(type) {
	case *python.Constant:
		return nil
	case *python.Name:
		return p.store(n, core.Variable(n.ID))
	case *python.Attribute:
		if err := p.expr(n.Value); err != nil {
			return err
		}
		return p.store(n, attributeVariable(n))
	case *python.BinOp:
		if err := p.expr(n.Left); err != nil {
			return err
		}
		return p.expr(n.Right)
	case *python.Call:
		return p.call(n)
	case *python.UnaryOp:
		return core.Unsupported("UnaryOp", n.Line(), "process")
	case *python.BoolOp:
		return core.Unsupported("BoolOp", n.Line(), "process")
	case *python.Compare:
		return core.Unsupported("Compare", n.Line(), "process")
	}
	return core.Unsupported(nodeKind(e), lineOf(e), "process")
}

// store merges the label of a read into the state of v.
func (p *Processor) store(e python.Expr, v core.Variable) error {
	ml, err := p.labeler.Label(e)
	if err != nil {
		return err
	}
	p.vulns.Labelling().Add(v, ml)
	return nil
}

// callee visits the function of a call. A plain name denotes the function
// itself and is not stored; a method call reads its receiver.
func (p *Processor) callee(fn python.Expr) error {
	switch n := fn.(type) {
	case *python.Name:
		return nil
	case *python.Attribute:
		return p.expr(n.Value)
	}
	return p.expr(fn)
}

func (p *Processor) call(n *python.Call) error {
	if err := p.callee(n.Func); err != nil {
		return err
	}
	for _, a := range callArguments(n) {
		if err := p.expr(a); err != nil {
			return err
		}
	}
	callee, err := calleeName(n)
	if err != nil {
		return err
	}
	ml, err := p.labeler.Label(n)
	if err != nil {
		return err
	}
	p.reportSink(core.Sink(callee), n.Line(), ml, nil)
	return nil
}

func (p *Processor) assign(n *python.Assign) error {
	if len(n.Targets) != 1 {
		return core.Unsupported("Assign", n.Line(), "multiple targets")
	}
	if err := p.expr(n.Value); err != nil {
		return err
	}
	ml, err := p.labeler.Label(n.Value)
	if err != nil {
		return err
	}

	switch t := n.Targets[0].(type) {
	case *python.Name:
		p.vulns.Labelling().Override(core.Variable(t.ID), ml)
		p.reportSink(core.Sink(t.ID), t.Line(), ml, nil)

	case *python.Attribute:
		if err := p.expr(t.Value); err != nil {
			return err
		}
		p.vulns.Labelling().Override(attributeVariable(t), ml)
		obj, _ := baseName(t)
		p.reportSink("", t.Line(), ml, func(pat *policy.Pattern) (core.Sink, bool) {
			switch {
			case obj != "" && pat.HasSink(obj):
				return core.Sink(obj), true
			case pat.HasSink(t.Attr):
				return core.Sink(t.Attr), true
			}
			return "", false
		})

	default:
		return core.Unsupported(nodeKind(t), lineOf(t), "assignment target")
	}
	return nil
}

// reportSink records findings for every pattern whose sink is reached. With a
// nil match the sink name is fixed and patterns are selected by declaring it;
// otherwise match picks the sink name per pattern.
func (p *Processor) reportSink(sink core.Sink, line int, ml *label.MultiLabel, match func(*policy.Pattern) (core.Sink, bool)) {
	pol := p.vulns.Policy()
	for _, pat := range pol.Patterns() {
		name := sink
		if match != nil {
			var ok bool
			if name, ok = match(pat); !ok {
				continue
			}
		} else if !pat.HasSink(string(sink)) {
			continue
		}

		p.vulns.AddSink(pat, name, line)
		candidates := label.GetIllegalFlows(pol, name, ml)
		flows := flowsFromLabel(pat, candidates.Label(pat), name, line)
		if len(flows) == 0 {
			continue
		}
		p.logger.Debug("Tainted data reaches sink",
			zap.String("vulnerability", string(pat.Vulnerability())),
			zap.String("sink", string(name)),
			zap.Int("line", line),
			zap.Int("flows", len(flows)),
		)
		p.vulns.Add(flows...)
	}
}

// Analyze runs the uninitialized-read pass and then the processor over one
// branch-free unit, using a fresh state for pol.
func Analyze(logger *zap.Logger, pol *policy.Policy, body []python.Stmt) (*Vulnerabilities, error) {
	return AnalyzeFrom(logger, NewVulnerabilities(pol), body)
}

// AnalyzeFrom is Analyze starting from a deep copy of base. base is only read,
// so one base can seed many variants concurrently.
func AnalyzeFrom(logger *zap.Logger, base *Vulnerabilities, body []python.Stmt) (*Vulnerabilities, error) {
	vulns := base.Clone()
	inits := DetectUninitialized(body)
	if names := inits.NeverWritten(); len(names) > 0 {
		logger.Debug("Names read but never assigned", zap.Strings("names", names))
	}
	if err := NewProcessor(logger, vulns, inits).Process(body); err != nil {
		return nil, err
	}
	return vulns, nil
}
