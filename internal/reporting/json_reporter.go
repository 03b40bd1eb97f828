// File: internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taintflow/internal/analysis/taint"
	"github.com/xkilldash9x/taintflow/internal/engine"
	"github.com/xkilldash9x/taintflow/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is the serialized form of one finding.
// Source, Sink and every sanitizer step are [name, line] pairs.
type Record struct {
	Vulnerability    string             `json:"vulnerability"`
	Source           [2]interface{}     `json:"source"`
	Sink             [2]interface{}     `json:"sink"`
	UnsanitizedFlows string             `json:"unsanitized_flows"`
	SanitizedFlows   [][][2]interface{} `json:"sanitized_flows"`
}

// NewRecord converts a finding into its output record.
func NewRecord(f taint.Finding) Record {
	unsanitized := "no"
	if f.Unsanitized {
		unsanitized = "yes"
	}
	flows := make([][][2]interface{}, 0, len(f.Sanitized))
	for _, fl := range f.Sanitized {
		steps := fl.Steps()
		pairs := make([][2]interface{}, len(steps))
		for i, s := range steps {
			pairs[i] = [2]interface{}{string(s.Sanitizer), s.Line}
		}
		flows = append(flows, pairs)
	}
	return Record{
		Vulnerability:    f.ID,
		Source:           [2]interface{}{string(f.Source), f.SourceLine},
		Sink:             [2]interface{}{string(f.Sink), f.SinkLine},
		UnsanitizedFlows: unsanitized,
		SanitizedFlows:   flows,
	}
}

// JSONReporter buffers records and writes them as one indented array on Close.
type JSONReporter struct {
	writer  io.WriteCloser
	logger  *zap.Logger
	mu      sync.Mutex
	records []Record
}

// NewJSONReporter creates a reporter writing the findings array to writer.
func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{
		writer:  writer,
		logger:  observability.GetLogger().Named("json_reporter"),
		records: []Record{},
	}
}

func (r *JSONReporter) Write(result *engine.Result) error {
	if result == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range result.Findings {
		r.records = append(r.records, NewRecord(f))
	}
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out, encodeErr := json.MarshalIndent(r.records, "", "    ")
	if encodeErr == nil {
		out = append(out, '\n')
		_, encodeErr = r.writer.Write(out)
	}
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to write JSON report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Debug("Wrote JSON report", zap.Int("findings", len(r.records)))
	return nil
}
