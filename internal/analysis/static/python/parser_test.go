// File: internal/analysis/static/python/parser_test.go
package python

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
)

func parse(t *testing.T, src string) *Module {
	t.Helper()
	m, err := NewParser(zaptest.NewLogger(t)).Parse(context.Background(), "slice.py", []byte(src))
	require.NoError(t, err)
	return m
}

func pos(line int) Position { return Position{Lineno: line} }

func TestParse_AssignmentAndCall(t *testing.T) {
	t.Parallel()

	m := parse(t, "x = input()\noutput(x, mode=y.z)\n")

	want := []Stmt{
		&Assign{
			Position: pos(1),
			Targets:  []Expr{&Name{Position: pos(1), ID: "x", Ctx: Store}},
			Value:    &Call{Position: pos(1), Func: &Name{Position: pos(1), ID: "input"}},
		},
		&ExprStmt{
			Position: pos(2),
			Value: &Call{
				Position: pos(2),
				Func:     &Name{Position: pos(2), ID: "output"},
				Args:     []Expr{&Name{Position: pos(2), ID: "x"}},
				Keywords: []Keyword{{
					Arg:   "mode",
					Value: &Attribute{Position: pos(2), Value: &Name{Position: pos(2), ID: "y"}, Attr: "z"},
				}},
			},
		},
	}
	if diff := cmp.Diff(want, m.Body); diff != "" {
		t.Errorf("unexpected AST (-want +got):\n%s", diff)
	}
	assert.Equal(t, "slice.py", m.Filename)
}

func TestParse_ExpressionShapes(t *testing.T) {
	t.Parallel()

	m := parse(t, "a.b = (c + 'lit') * d.e.f  # trailing comment\n")
	require.Len(t, m.Body, 1)

	assign, ok := m.Body[0].(*Assign)
	require.True(t, ok)
	assert.Equal(t, "a.b = ((c + 'lit') * d.e.f)", assign.String())

	target, ok := assign.Targets[0].(*Attribute)
	require.True(t, ok)
	assert.Equal(t, Store, target.Ctx)
	assert.Equal(t, "b", target.Attr)
}

func TestParse_ControlFlow(t *testing.T) {
	t.Parallel()

	src := `if a:
    x = 1
elif b:
    x = 2
else:
    pass
while c:
    y = x
else:
    z = y
`
	m := parse(t, src)
	require.Len(t, m.Body, 2)

	top, ok := m.Body[0].(*If)
	require.True(t, ok)
	assert.Equal(t, 1, top.Line())
	require.Len(t, top.Orelse, 1)
	elif, ok := top.Orelse[0].(*If)
	require.True(t, ok, "elif lowers to a nested If")
	assert.Equal(t, 3, elif.Line())
	require.Len(t, elif.Orelse, 1)
	assert.IsType(t, &Pass{}, elif.Orelse[0])

	loop, ok := m.Body[1].(*While)
	require.True(t, ok)
	assert.Equal(t, 7, loop.Line())
	assert.Len(t, loop.Body, 1)
	assert.Len(t, loop.Orelse, 1)
}

func TestParse_ChainedAssignmentKeepsAllTargets(t *testing.T) {
	t.Parallel()

	m := parse(t, "a = b = input()\n")
	assign, ok := m.Body[0].(*Assign)
	require.True(t, ok)
	assert.Len(t, assign.Targets, 2)
}

func TestParse_OperatorsLowered(t *testing.T) {
	t.Parallel()

	m := parse(t, "f(not a)\nf(-a)\nf(a and b)\nf(a < b)\n")
	require.Len(t, m.Body, 4)

	kinds := make([]any, 0, 4)
	for _, s := range m.Body {
		call := s.(*ExprStmt).Value.(*Call)
		kinds = append(kinds, call.Args[0])
	}
	assert.IsType(t, &UnaryOp{}, kinds[0])
	assert.IsType(t, &UnaryOp{}, kinds[1])
	assert.IsType(t, &BoolOp{}, kinds[2])
	assert.IsType(t, &Compare{}, kinds[3])
	assert.Equal(t, "(a < b)", kinds[3].(Node).String())
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	unsupported := map[string]string{
		"for loop":              "for i in x:\n    pass\n",
		"function definition":   "def f():\n    pass\n",
		"subscript target":      "a[0] = 1\n",
		"augmented assignment":  "x += 1\n",
		"tuple target":          "a, b = c\n",
		"f-string interpolation": "x = f'{y}'\n",
	}
	for name, src := range unsupported {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(context.Background(), "slice.py", []byte(src))
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrUnsupportedConstruct)
		})
	}

	_, err := Parse(context.Background(), "broken.py", []byte("x = (\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrUnsupportedConstruct)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestDump(t *testing.T) {
	t.Parallel()

	m := parse(t, "if a:\n    x = input()\nelse:\n    pass\noutput(x)\n")
	want := "   1 if a:\n" +
		"   2     x = input()\n" +
		"     else:\n" +
		"   4     pass\n" +
		"   5 output(x)\n"
	assert.Equal(t, want, m.String())
}
