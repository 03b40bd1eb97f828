// File: internal/analysis/static/python/parser.go
package python

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
)

// Parser lowers Python source into the AST of this package.
// A Parser may be shared; every call uses its own tree-sitter parser.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named("py_parser")}
}

// Parse is a shorthand for parsing without logging.
func Parse(ctx context.Context, filename string, src []byte) (*Module, error) {
	return NewParser(zap.NewNop()).Parse(ctx, filename, src)
}

// Parse builds the Module for src. Syntax errors and constructs outside the
// supported statement language are reported as errors.
func (p *Parser) Parse(ctx context.Context, filename string, src []byte) (*Module, error) {
	p.logger.Debug("Parsing Python slice", zap.String("filename", filename), zap.Int("size_bytes", len(src)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("tree-sitter failed to parse %s: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%s: syntax error at line %d", filename, errorLine(root))
	}

	l := &lowerer{src: src}
	body, err := l.block(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	p.logger.Debug("Parsed Python slice", zap.String("filename", filename), zap.Int("statements", len(body)))
	return &Module{Filename: filename, Body: body}, nil
}

// errorLine finds the first ERROR or MISSING node.
func errorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return lineOf(n)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			return errorLine(child)
		}
	}
	return lineOf(n)
}

func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

type lowerer struct {
	src []byte
}

func (l *lowerer) text(n *sitter.Node) string {
	return n.Content(l.src)
}

func unsupported(n *sitter.Node) error {
	return core.Unsupported(n.Type(), lineOf(n), "parse")
}

// namedChildren skips comments, which tree-sitter reports as named extras.
func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// block lowers the statements of a module or block node.
func (l *lowerer) block(n *sitter.Node) ([]Stmt, error) {
	if n == nil {
		return nil, nil
	}
	var out []Stmt
	for _, child := range namedChildren(n) {
		s, err := l.stmt(child)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (l *lowerer) stmt(n *sitter.Node) (Stmt, error) {
	pos := Position{Lineno: lineOf(n)}
	switch n.Type() {
	case "expression_statement":
		children := namedChildren(n)
		if len(children) != 1 {
			return nil, unsupported(n)
		}
		if children[0].Type() == "assignment" {
			return l.assign(children[0])
		}
		value, err := l.expr(children[0])
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Position: pos, Value: value}, nil

	case "pass_statement":
		return &Pass{Position: pos}, nil

	case "if_statement":
		return l.ifStmt(n)

	case "while_statement":
		test, err := l.expr(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		body, err := l.block(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		w := &While{Position: pos, Test: test, Body: body}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if w.Orelse, err = l.block(alt.ChildByFieldName("body")); err != nil {
				return nil, err
			}
		}
		return w, nil
	}
	return nil, unsupported(n)
}

// ifStmt lowers elif chains into nested If nodes in Orelse.
func (l *lowerer) ifStmt(n *sitter.Node) (Stmt, error) {
	test, err := l.expr(n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	body, err := l.block(n.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	root := &If{Position: Position{Lineno: lineOf(n)}, Test: test, Body: body}

	tail := root
	for _, clause := range namedChildren(n) {
		switch clause.Type() {
		case "elif_clause":
			test, err := l.expr(clause.ChildByFieldName("condition"))
			if err != nil {
				return nil, err
			}
			body, err := l.block(clause.ChildByFieldName("consequence"))
			if err != nil {
				return nil, err
			}
			next := &If{Position: Position{Lineno: lineOf(clause)}, Test: test, Body: body}
			tail.Orelse = []Stmt{next}
			tail = next
		case "else_clause":
			if tail.Orelse, err = l.block(clause.ChildByFieldName("body")); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

// assign flattens a = b = v into one Assign with targets a and b.
func (l *lowerer) assign(n *sitter.Node) (Stmt, error) {
	out := &Assign{Position: Position{Lineno: lineOf(n)}}
	current := n
	for {
		right := current.ChildByFieldName("right")
		if right == nil {
			// Annotation without a value.
			return nil, unsupported(current)
		}
		target, err := l.target(current.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		out.Targets = append(out.Targets, target)
		if right.Type() != "assignment" {
			value, err := l.expr(right)
			if err != nil {
				return nil, err
			}
			out.Value = value
			return out, nil
		}
		current = right
	}
}

func (l *lowerer) target(n *sitter.Node) (Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("assignment without a target")
	}
	switch n.Type() {
	case "identifier":
		return &Name{Position: Position{Lineno: lineOf(n)}, ID: l.text(n), Ctx: Store}, nil
	case "attribute":
		value, err := l.expr(n.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}
		return &Attribute{
			Position: Position{Lineno: lineOf(n)},
			Value:    value,
			Attr:     l.text(n.ChildByFieldName("attribute")),
			Ctx:      Store,
		}, nil
	}
	return nil, unsupported(n)
}

func (l *lowerer) expr(n *sitter.Node) (Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("missing expression")
	}
	pos := Position{Lineno: lineOf(n)}
	switch n.Type() {
	case "identifier":
		return &Name{Position: pos, ID: l.text(n), Ctx: Load}, nil

	case "integer", "float", "true", "false", "none", "ellipsis", "concatenated_string":
		return &Constant{Position: pos, Value: l.text(n)}, nil

	case "string":
		for _, child := range namedChildren(n) {
			if child.Type() == "interpolation" {
				return nil, unsupported(child)
			}
		}
		return &Constant{Position: pos, Value: l.text(n)}, nil

	case "parenthesized_expression":
		inner := namedChildren(n)
		if len(inner) != 1 {
			return nil, unsupported(n)
		}
		return l.expr(inner[0])

	case "binary_operator":
		left, err := l.expr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := l.expr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return &BinOp{Position: pos, Left: left, Op: l.operator(n), Right: right}, nil

	case "attribute":
		value, err := l.expr(n.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}
		return &Attribute{Position: pos, Value: value, Attr: l.text(n.ChildByFieldName("attribute")), Ctx: Load}, nil

	case "call":
		return l.call(n)

	case "unary_operator":
		operand, err := l.expr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Position: pos, Op: l.operator(n), Operand: operand}, nil

	case "not_operator":
		operand, err := l.expr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Position: pos, Op: "not", Operand: operand}, nil

	case "boolean_operator":
		left, err := l.expr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := l.expr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return &BoolOp{Position: pos, Op: l.operator(n), Values: []Expr{left, right}}, nil

	case "comparison_operator":
		return l.compare(n)
	}
	return nil, unsupported(n)
}

func (l *lowerer) operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	return ""
}

func (l *lowerer) call(n *sitter.Node) (Expr, error) {
	fn, err := l.expr(n.ChildByFieldName("function"))
	if err != nil {
		return nil, err
	}
	out := &Call{Position: Position{Lineno: lineOf(n)}, Func: fn}

	args := n.ChildByFieldName("arguments")
	if args == nil {
		return out, nil
	}
	if args.Type() != "argument_list" {
		return nil, unsupported(args)
	}
	for _, arg := range namedChildren(args) {
		if arg.Type() == "keyword_argument" {
			value, err := l.expr(arg.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			out.Keywords = append(out.Keywords, Keyword{Arg: l.text(arg.ChildByFieldName("name")), Value: value})
			continue
		}
		value, err := l.expr(arg)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, value)
	}
	return out, nil
}

// compare walks the operand/operator sequence; "not in" and "is not" arrive
// as single anonymous nodes.
func (l *lowerer) compare(n *sitter.Node) (Expr, error) {
	out := &Compare{Position: Position{Lineno: lineOf(n)}}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "comment" {
			continue
		}
		if !child.IsNamed() {
			out.Ops = append(out.Ops, strings.Join(strings.Fields(l.text(child)), " "))
			continue
		}
		operand, err := l.expr(child)
		if err != nil {
			return nil, err
		}
		if out.Left == nil {
			out.Left = operand
		} else {
			out.Comparators = append(out.Comparators, operand)
		}
	}
	if out.Left == nil || len(out.Ops) != len(out.Comparators) {
		return nil, unsupported(n)
	}
	return out, nil
}
