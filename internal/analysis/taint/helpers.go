// File: internal/analysis/taint/helpers.go
package taint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
)

// nodeKind names a node's Go type without the package prefix.
func nodeKind(n python.Node) string {
	if n == nil {
		return "nil"
	}
	kind := fmt.Sprintf("%T", n)
	if i := strings.LastIndex(kind, "."); i >= 0 {
		kind = kind[i+1:]
	}
	return kind
}

func lineOf(n python.Node) int {
	if n == nil {
		return 0
	}
	return n.Line()
}

func sortedStrings(in []string) []string {
	sort.Strings(in)
	return in
}
