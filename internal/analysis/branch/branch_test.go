// File: internal/analysis/branch/branch_test.go
package branch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
)

func mustParse(t *testing.T, src string) *python.Module {
	t.Helper()
	m, err := python.Parse(context.Background(), "slice.py", []byte(src))
	require.NoError(t, err)
	return m
}

func dumps(variants []Variant) []string {
	out := make([]string, len(variants))
	for i, v := range variants {
		out[i] = python.Dump(v.Body)
	}
	return out
}

func TestEnumerate_NoControlNodes(t *testing.T) {
	t.Parallel()

	m := mustParse(t, "x = input()\noutput(x)\n")
	variants, err := NewEnumerator(3, 100).Variants(context.Background(), m.Body)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, m.Body, variants[0].Body)
	assert.Empty(t, variants[0].Choices)
}

func TestEnumerate_SingleIf(t *testing.T) {
	t.Parallel()

	m := mustParse(t, "if c:\n    x = input()\nelse:\n    x = 1\noutput(x)\n")
	variants, err := NewEnumerator(3, 100).Variants(context.Background(), m.Body)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"   2 x = input()\n   5 output(x)\n",
		"   4 x = 1\n   5 output(x)\n",
	}, dumps(variants))
}

func TestEnumerate_SingleWhile(t *testing.T) {
	t.Parallel()

	m := mustParse(t, "while c:\n    x = f(x)\noutput(x)\n")
	variants, err := NewEnumerator(3, 100).Variants(context.Background(), m.Body)
	require.NoError(t, err)
	require.Len(t, variants, 4)

	for i, v := range variants {
		assert.Len(t, v.Body, i+1, "variant %d runs the body %d times", i, i)
		assert.Equal(t, []int{i}, v.Choices)
		assert.Equal(t, i, v.Index)
	}
}

func TestEnumerate_LoopUnrollIsConfigurable(t *testing.T) {
	t.Parallel()

	m := mustParse(t, "while c:\n    x = f(x)\n")
	variants, err := NewEnumerator(5, 100).Variants(context.Background(), m.Body)
	require.NoError(t, err)
	assert.Len(t, variants, 6)
}

func TestEnumerate_WhileElse(t *testing.T) {
	t.Parallel()

	m := mustParse(t, "while c:\n    a()\nelse:\n    b()\n")
	variants, err := NewEnumerator(2, 100).Variants(context.Background(), m.Body)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"   4 b()\n",
		"   2 a()\n   4 b()\n",
		"   2 a()\n   2 a()\n   4 b()\n",
	}, dumps(variants))
}

func TestEnumerate_NestedNodesAndDedup(t *testing.T) {
	t.Parallel()

	src := `if a:
    if b:
        x = 1
    else:
        x = 2
else:
    x = 3
`
	m := mustParse(t, src)
	plan := Count(m.Body, 3)
	assert.Equal(t, []int{2, 2}, plan.Domains(), "both ifs are numbered, outer first")

	enum := NewEnumerator(3, 100)
	stats, err := enum.Enumerate(context.Background(), m.Body, func(Variant) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, Stats{ControlNodes: 2, Combinations: 4, Distinct: 3}, stats,
		"the inner choice does not matter when the outer else is taken")
}

func TestEnumerate_NestedInLoopReusesChoice(t *testing.T) {
	t.Parallel()

	m := mustParse(t, "while c:\n    if d:\n        a()\n    else:\n        b()\n")
	plan := Count(m.Body, 3)
	require.Equal(t, []int{4, 2}, plan.Domains())

	flat, err := plan.Transform(m.Body, []int{2, 1})
	require.NoError(t, err)
	assert.Equal(t, "   5 b()\n   5 b()\n", python.Dump(flat))
}

func TestTransform_RejectsBadChoices(t *testing.T) {
	t.Parallel()

	m := mustParse(t, "if c:\n    a()\n")
	plan := Count(m.Body, 3)

	_, err := plan.Transform(m.Body, nil)
	assert.Error(t, err)
	_, err = plan.Transform(m.Body, []int{2})
	assert.Error(t, err)

	other := mustParse(t, "if c:\n    a()\n")
	_, err = plan.Transform(other.Body, []int{0})
	assert.Error(t, err, "a plan only rewrites the nodes it counted")
}

func TestEnumerate_Bounds(t *testing.T) {
	t.Parallel()

	src := "if a:\n    x()\nif b:\n    y()\nif c:\n    z()\n"
	m := mustParse(t, src)

	_, err := NewEnumerator(3, 7).Variants(context.Background(), m.Body)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTooManyVariants)

	variants, err := NewEnumerator(3, 8).Variants(context.Background(), m.Body)
	require.NoError(t, err)
	assert.Len(t, variants, 8)
}

func TestEnumerate_StopsOnYieldErrorAndCancel(t *testing.T) {
	t.Parallel()

	m := mustParse(t, "if a:\n    x()\nif b:\n    y()\n")
	stop := errors.New("stop")

	calls := 0
	_, err := NewEnumerator(3, 100).Enumerate(context.Background(), m.Body, func(Variant) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewEnumerator(3, 100).Variants(ctx, m.Body)
	assert.ErrorIs(t, err, context.Canceled)
}
