// File: internal/analysis/taint/uninit.go
package taint

import (
	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
)

type readSite struct {
	name string
	line int
}

// Initialization records which name reads happen before the name is first
// written. It is line-indexed: a (name, line) pair is uninitialized when any
// read of name at that line precedes the first write in traversal order.
type Initialization struct {
	written map[string]struct{}
	reads   map[string]struct{}
	uninit  map[readSite]struct{}
}

// DetectUninitialized makes one forward pass over body. Assignment values are
// visited before their targets. Callee names and attribute names denote
// external objects and always count as initialized.
func DetectUninitialized(body []python.Stmt) *Initialization {
	in := &Initialization{
		written: make(map[string]struct{}),
		reads:   make(map[string]struct{}),
		uninit:  make(map[readSite]struct{}),
	}
	in.stmts(body)
	return in
}

// IsUninitialized reports whether the read of name at line happens before name is written.
func (in *Initialization) IsUninitialized(name string, line int) bool {
	_, ok := in.uninit[readSite{name: name, line: line}]
	return ok
}

// NeverWritten lists the names that are read but never assigned anywhere in the unit.
func (in *Initialization) NeverWritten() []string {
	var out []string
	for name := range in.reads {
		if _, ok := in.written[name]; !ok {
			out = append(out, name)
		}
	}
	return sortedStrings(out)
}

func (in *Initialization) stmts(body []python.Stmt) {
	for _, s := range body {
		switch n := s.(type) {
		case *python.ExprStmt:
			in.expr(n.Value)
		case *python.Assign:
			in.expr(n.Value)
			for _, t := range n.Targets {
				in.expr(t)
			}
		case *python.If:
			in.expr(n.Test)
			in.stmts(n.Body)
			in.stmts(n.Orelse)
		case *python.While:
			in.expr(n.Test)
			in.stmts(n.Body)
			in.stmts(n.Orelse)
		}
	}
}

func (in *Initialization) expr(e python.Expr) {
	switch n := e.(type) {
	case *python.Name:
		if n.Ctx == python.Store {
			in.written[n.ID] = struct{}{}
			return
		}
		in.read(n.ID, n.Line())
	case *python.Attribute:
		in.expr(n.Value)
	case *python.Call:
		if fn, ok := n.Func.(*python.Name); ok {
			in.written[fn.ID] = struct{}{}
		} else {
			in.expr(n.Func)
		}
		for _, a := range n.Args {
			in.expr(a)
		}
		for _, kw := range n.Keywords {
			in.expr(kw.Value)
		}
	case *python.BinOp:
		in.expr(n.Left)
		in.expr(n.Right)
	case *python.UnaryOp:
		in.expr(n.Operand)
	case *python.BoolOp:
		for _, v := range n.Values {
			in.expr(v)
		}
	case *python.Compare:
		in.expr(n.Left)
		for _, c := range n.Comparators {
			in.expr(c)
		}
	}
}

func (in *Initialization) read(name string, line int) {
	in.reads[name] = struct{}{}
	if _, ok := in.written[name]; !ok {
		in.uninit[readSite{name: name, line: line}] = struct{}{}
	}
}
