// File: internal/analysis/core/errors.go
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a malformed or unloadable policy.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedConstruct marks code shapes the engine does not model.
	ErrUnsupportedConstruct = errors.New("unsupported construct")

	// ErrTooManyVariants is returned when branch enumeration exceeds the configured bound.
	ErrTooManyVariants = errors.New("too many branch variants")
)

// ConfigurationError describes why a policy could not be loaded.
type ConfigurationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UnsupportedConstructError is raised when the analysed unit uses a shape the
// engine does not model. The analysis stops rather than under-report.
type UnsupportedConstructError struct {
	// Construct is the node kind, e.g. "Compare" or "for_statement".
	Construct string
	// Line is 1-based; zero when unknown.
	Line int
	// Context says which stage rejected it.
	Context string
}

func (e *UnsupportedConstructError) Error() string {
	msg := fmt.Sprintf("unsupported construct %s", e.Construct)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s at line %d", msg, e.Line)
	}
	if e.Context != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Context)
	}
	return msg
}

// Is lets errors.Is(err, ErrUnsupportedConstruct) match.
func (e *UnsupportedConstructError) Is(target error) bool {
	return target == ErrUnsupportedConstruct
}

// Unsupported is a shorthand constructor.
func Unsupported(construct string, line int, context string) error {
	return &UnsupportedConstructError{Construct: construct, Line: line, Context: context}
}
