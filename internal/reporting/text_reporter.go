// File: internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gookit/color"

	"github.com/xkilldash9x/taintflow/internal/analysis/taint"
	"github.com/xkilldash9x/taintflow/internal/engine"
)

// TextReporter prints one coloured line per finding as results arrive.
type TextReporter struct {
	writer io.WriteCloser
	mu     sync.Mutex
	total  int
	err    error
}

// NewTextReporter creates a TextReporter writing to writer.
func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

func (r *TextReporter) Write(result *engine.Result) error {
	if result == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%d variants, %d control nodes)\n",
		color.Bold.Sprint("==>"), result.Filename, result.Variants, result.ControlNodes)
	if len(result.Findings) == 0 {
		fmt.Fprintf(&b, "    %s\n", color.Green.Sprint("no illegal flows"))
	}
	for _, f := range result.Findings {
		b.WriteString(formatFinding(f))
		b.WriteByte('\n')
	}
	r.total += len(result.Findings)

	if _, err := io.WriteString(r.writer, b.String()); err != nil {
		r.err = err
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var writeErr error
	if r.err == nil {
		summary := color.Green.Sprint("0 findings")
		if r.total > 0 {
			summary = color.Red.Sprintf("%d findings", r.total)
		}
		_, writeErr = fmt.Fprintf(r.writer, "%s\n", summary)
	}
	if err := r.writer.Close(); err != nil {
		return fmt.Errorf("failed to close output writer: %w", err)
	}
	return writeErr
}

func formatFinding(f taint.Finding) string {
	id := color.Yellow.Sprint(f.ID)
	status := color.Yellow.Sprint("sanitized")
	if f.Unsanitized {
		id = color.Red.Sprint(f.ID)
		status = color.Red.Sprint("unsanitized")
	}
	line := fmt.Sprintf("    %s %s:%d -> %s:%d %s", id, f.Source, f.SourceLine, f.Sink, f.SinkLine, status)
	if len(f.Sanitized) > 0 {
		paths := make([]string, len(f.Sanitized))
		for i, fl := range f.Sanitized {
			steps := fl.Steps()
			parts := make([]string, len(steps))
			for j, s := range steps {
				parts[j] = fmt.Sprintf("%s:%d", s.Sanitizer, s.Line)
			}
			paths[i] = strings.Join(parts, ",")
		}
		line += " " + color.Cyan.Sprintf("[%s]", strings.Join(paths, " | "))
	}
	return line
}
