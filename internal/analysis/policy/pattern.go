// File: internal/analysis/policy/pattern.go
// Package policy holds the vulnerability patterns an analysis run checks for,
// and the loaders that read them from disk.
package policy

import (
	"sort"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
)

// Pattern is one vulnerability's sources, sanitizers and sinks. A name may
// appear in several of the sets. Patterns are immutable once built.
type Pattern struct {
	vulnerability core.Vulnerability
	sources       map[core.Source]struct{}
	sanitizers    map[core.Sanitizer]struct{}
	sinks         map[core.Sink]struct{}
	implicit      bool
}

// NewPattern builds a pattern. Duplicate names collapse.
func NewPattern(vulnerability core.Vulnerability, sources []core.Source, sanitizers []core.Sanitizer, sinks []core.Sink, implicit bool) *Pattern {
	p := &Pattern{
		vulnerability: vulnerability,
		sources:       make(map[core.Source]struct{}, len(sources)),
		sanitizers:    make(map[core.Sanitizer]struct{}, len(sanitizers)),
		sinks:         make(map[core.Sink]struct{}, len(sinks)),
		implicit:      implicit,
	}
	for _, s := range sources {
		p.sources[s] = struct{}{}
	}
	for _, s := range sanitizers {
		p.sanitizers[s] = struct{}{}
	}
	for _, s := range sinks {
		p.sinks[s] = struct{}{}
	}
	return p
}

func (p *Pattern) Vulnerability() core.Vulnerability { return p.vulnerability }

// Implicit reports whether reads of uninitialized variables count as sources.
func (p *Pattern) Implicit() bool { return p.implicit }

func (p *Pattern) HasSource(name string) bool {
	_, ok := p.sources[core.Source(name)]
	return ok
}

func (p *Pattern) HasSanitizer(name string) bool {
	_, ok := p.sanitizers[core.Sanitizer(name)]
	return ok
}

func (p *Pattern) HasSink(name string) bool {
	_, ok := p.sinks[core.Sink(name)]
	return ok
}

// Sources returns the source names, sorted.
func (p *Pattern) Sources() []core.Source {
	return sortedKeys(p.sources)
}

// Sanitizers returns the sanitizer names, sorted.
func (p *Pattern) Sanitizers() []core.Sanitizer {
	return sortedKeys(p.sanitizers)
}

// Sinks returns the sink names, sorted.
func (p *Pattern) Sinks() []core.Sink {
	return sortedKeys(p.sinks)
}

// Equal compares two patterns as sets, ignoring element order.
func (p *Pattern) Equal(other *Pattern) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.vulnerability == other.vulnerability &&
		p.implicit == other.implicit &&
		sameSet(p.sources, other.sources) &&
		sameSet(p.sanitizers, other.sanitizers) &&
		sameSet(p.sinks, other.sinks)
}

func sameSet[K comparable](a, b map[K]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys[K ~string](m map[K]struct{}) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
