// File: internal/analysis/static/python/ast.go
package python

import (
	"fmt"
	"strings"
)

// Context tells reads from writes for names and attributes.
type Context int

const (
	Load Context = iota
	Store
)

func (c Context) String() string {
	if c == Store {
		return "Store"
	}
	return "Load"
}

// Node is implemented by every statement and expression.
type Node interface {
	Line() int
	String() string
}

// Stmt is the closed set of statements: *ExprStmt, *Assign, *If, *While, *Pass.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the closed set of expressions: *Name, *Constant, *BinOp, *Call,
// *Attribute, *UnaryOp, *BoolOp, *Compare.
type Expr interface {
	Node
	exprNode()
}

// Position is the 1-based source line of a node.
type Position struct {
	Lineno int
}

func (p Position) Line() int { return p.Lineno }

// Module is one parsed program slice.
type Module struct {
	Filename string
	Body     []Stmt
}

// ExprStmt is an expression evaluated for its effect.
type ExprStmt struct {
	Position
	Value Expr
}

// Assign holds every target of a chained assignment; only single-target
// assignments are analysed.
type Assign struct {
	Position
	Targets []Expr
	Value   Expr
}

type If struct {
	Position
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type While struct {
	Position
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type Pass struct {
	Position
}

type Name struct {
	Position
	ID  string
	Ctx Context
}

// Constant keeps the literal as written.
type Constant struct {
	Position
	Value string
}

type BinOp struct {
	Position
	Left  Expr
	Op    string
	Right Expr
}

type Keyword struct {
	Arg   string
	Value Expr
}

type Call struct {
	Position
	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

type Attribute struct {
	Position
	Value Expr
	Attr  string
	Ctx   Context
}

type UnaryOp struct {
	Position
	Op      string
	Operand Expr
}

type BoolOp struct {
	Position
	Op     string
	Values []Expr
}

type Compare struct {
	Position
	Left        Expr
	Ops         []string
	Comparators []Expr
}

func (*ExprStmt) stmtNode() {}
func (*Assign) stmtNode()   {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*Pass) stmtNode()     {}

func (*Name) exprNode()      {}
func (*Constant) exprNode()  {}
func (*BinOp) exprNode()     {}
func (*Call) exprNode()      {}
func (*Attribute) exprNode() {}
func (*UnaryOp) exprNode()   {}
func (*BoolOp) exprNode()    {}
func (*Compare) exprNode()   {}

func (n *Name) String() string      { return n.ID }
func (n *Constant) String() string  { return n.Value }
func (n *BinOp) String() string     { return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right) }
func (n *Attribute) String() string { return fmt.Sprintf("%s.%s", n.Value, n.Attr) }
func (n *UnaryOp) String() string   { return fmt.Sprintf("(%s %s)", n.Op, n.Operand) }

func (n *Call) String() string {
	args := make([]string, 0, len(n.Args)+len(n.Keywords))
	for _, a := range n.Args {
		args = append(args, a.String())
	}
	for _, kw := range n.Keywords {
		args = append(args, kw.Arg+"="+kw.Value.String())
	}
	return fmt.Sprintf("%s(%s)", n.Func, strings.Join(args, ", "))
}

func (n *BoolOp) String() string {
	parts := make([]string, len(n.Values))
	for i, v := range n.Values {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, " "+n.Op+" ") + ")"
}

func (n *Compare) String() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(n.Left.String())
	for i, op := range n.Ops {
		fmt.Fprintf(&b, " %s %s", op, n.Comparators[i])
	}
	b.WriteString(")")
	return b.String()
}

func (n *ExprStmt) String() string { return n.Value.String() }
func (n *Pass) String() string     { return "pass" }

func (n *Assign) String() string {
	parts := make([]string, 0, len(n.Targets)+1)
	for _, t := range n.Targets {
		parts = append(parts, t.String())
	}
	parts = append(parts, n.Value.String())
	return strings.Join(parts, " = ")
}

func (n *If) String() string    { return "if " + n.Test.String() + ":" }
func (n *While) String() string { return "while " + n.Test.String() + ":" }

// Dump prints statements one per line, prefixed by their source line and
// indented by nesting depth. Two statement lists print the same exactly when
// they have the same shape, text and lines.
func Dump(body []Stmt) string {
	var b strings.Builder
	dump(&b, body, 0)
	return b.String()
}

func dump(b *strings.Builder, body []Stmt, depth int) {
	indent := strings.Repeat("    ", depth)
	for _, s := range body {
		fmt.Fprintf(b, "%4d %s%s\n", s.Line(), indent, s)
		switch n := s.(type) {
		case *If:
			dump(b, n.Body, depth+1)
			if len(n.Orelse) > 0 {
				fmt.Fprintf(b, "%4s %selse:\n", "", indent)
				dump(b, n.Orelse, depth+1)
			}
		case *While:
			dump(b, n.Body, depth+1)
			if len(n.Orelse) > 0 {
				fmt.Fprintf(b, "%4s %selse:\n", "", indent)
				dump(b, n.Orelse, depth+1)
			}
		}
	}
}

func (m *Module) String() string {
	return Dump(m.Body)
}
