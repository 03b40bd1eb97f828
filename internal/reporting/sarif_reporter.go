// File: internal/reporting/sarif_reporter.go
package reporting

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taintflow/internal/analysis/taint"
	"github.com/xkilldash9x/taintflow/internal/engine"
	"github.com/xkilldash9x/taintflow/internal/observability"
	"github.com/xkilldash9x/taintflow/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "taintflow"
	ToolInfoURI  = "https://github.com/xkilldash9x/taintflow"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"

	fingerprintKey = "taintflow/v1"
)

// ruleIDSanitizer collapses every run of characters outside [A-Za-z0-9_.] into one hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// calculateFingerprint hashes the parts of a finding that identify it across runs.
// The report identifier is left out since it depends on the other findings.
func calculateFingerprint(f taint.Finding) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s\x00%d", f.Vulnerability, f.Source, f.SourceLine, f.Sink, f.SinkLine)
	return hex.EncodeToString(h.Sum(nil))
}

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure and the maps.
	mu sync.Mutex
	// ruleIndex maps a vulnerability name to the index of its rule.
	ruleIndex map[string]int
	artifacts map[string]struct{}
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						// Empty slices (not nil) for proper JSON marshalling.
						Rules: []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{
		writer:    writer,
		logger:    observability.GetLogger().Named("sarif_reporter"),
		log:       log,
		ruleIndex: make(map[string]int),
		artifacts: make(map[string]struct{}),
	}
}

// Write converts the findings of one run into SARIF results.
func (r *SARIFReporter) Write(result *engine.Result) error {
	if result == nil {
		return nil
	}
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	if run.AutomationDetails == nil && result.RunID != "" {
		run.AutomationDetails = &sarif.RunAutomationDetails{
			ID:   pString(ToolName + "/" + result.RunID),
			GUID: pString(result.RunID),
		}
	}
	if _, seen := r.artifacts[result.Filename]; !seen && result.Filename != "" {
		r.artifacts[result.Filename] = struct{}{}
		run.Artifacts = append(run.Artifacts, &sarif.Artifact{
			Location: &sarif.ArtifactLocation{URI: pString(result.Filename)},
		})
	}

	for _, finding := range result.Findings {
		ruleID, index := r.ensureRule(finding)
		run.Results = append(run.Results, &sarif.Result{
			RuleID:    ruleID,
			RuleIndex: index,
			Message:   &sarif.Message{Text: pString(resultMessage(finding))},
			Level:     mapFlowToSARIFLevel(finding),
			Locations: []*sarif.Location{
				location(result.Filename, finding.SinkLine, fmt.Sprintf("Sink '%s'", finding.Sink)),
			},
			RelatedLocations: []*sarif.Location{
				relatedLocation(1, result.Filename, finding.SourceLine, fmt.Sprintf("Source '%s'", finding.Source)),
			},
			PartialFingerprints: map[string]string{fingerprintKey: calculateFingerprint(finding)},
			Properties: &sarif.PropertyBag{
				"findingId":        finding.ID,
				"unsanitizedFlows": finding.Unsanitized,
				"sanitizedFlows":   NewRecord(finding).SanitizedFlows,
			},
		})
	}

	if len(result.Findings) > 0 {
		r.logger.Debug("Wrote findings to SARIF buffer",
			zap.Int("findings_count", len(result.Findings)),
			zap.Duration("duration_ms", time.Since(startTime)),
		)
	}
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Debug("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

// sanitizeRuleName creates a standardized base name for the rule ID.
func sanitizeRuleName(name string) string {
	sanitized := strings.Trim(ruleIDSanitizer.ReplaceAllString(strings.ToUpper(name), "-"), "-")
	if sanitized == "" {
		return "UNNAMED-VULNERABILITY"
	}
	return sanitized
}

// ensureRule returns the rule for the finding's vulnerability, registering it on first use.
// NOTE: Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(f taint.Finding) (string, int) {
	name := string(f.Vulnerability)
	driver := r.log.Runs[0].Tool.Driver
	if i, ok := r.ruleIndex[name]; ok {
		return driver.Rules[i].ID, i
	}

	ruleID := "TAINTFLOW-" + sanitizeRuleName(name)
	r.logger.Debug("Registering new SARIF rule definition", zap.String("rule_id", ruleID))

	var sources, sanitizers, sinks []string
	if f.Pattern != nil {
		for _, s := range f.Pattern.Sources() {
			sources = append(sources, string(s))
		}
		for _, s := range f.Pattern.Sanitizers() {
			sanitizers = append(sanitizers, string(s))
		}
		for _, s := range f.Pattern.Sinks() {
			sinks = append(sinks, string(s))
		}
	}
	description := fmt.Sprintf("Data from [%s] reaches [%s].", strings.Join(sources, ", "), strings.Join(sinks, ", "))
	help := "Pass the value through a recognised sanitizer before it reaches the sink."
	if len(sanitizers) > 0 {
		help = fmt.Sprintf("Pass the value through one of [%s] before it reaches the sink.", strings.Join(sanitizers, ", "))
	}
	markdownHelp := fmt.Sprintf("**Vulnerability:** %s\n\n**Description:**\n%s\n\n**Recommendation:**\n%s", name, description, help)

	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               ruleID,
		Name:             pString(name),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(name)},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(description)},
		Help: &sarif.MultiformatMessageString{
			Text:     pString(help),
			Markdown: pString(markdownHelp),
		},
		Properties: &sarif.PropertyBag{
			"tags":       []string{"security", "taint"},
			"precision":  "medium",
			"sources":    sources,
			"sanitizers": sanitizers,
			"sinks":      sinks,
		},
	})
	i := len(driver.Rules) - 1
	r.ruleIndex[name] = i
	return ruleID, i
}

func resultMessage(f taint.Finding) string {
	state := "only through sanitizers"
	if f.Unsanitized {
		state = "without sanitization"
	}
	return fmt.Sprintf("%s: source '%s' (line %d) reaches sink '%s' (line %d) %s",
		f.ID, f.Source, f.SourceLine, f.Sink, f.SinkLine, state)
}

// mapFlowToSARIFLevel reports fully sanitized flows as notes.
func mapFlowToSARIFLevel(f taint.Finding) sarif.Level {
	if f.Unsanitized {
		return sarif.LevelError
	}
	return sarif.LevelNote
}

func location(uri string, line int, msg string) *sarif.Location {
	return &sarif.Location{
		PhysicalLocation: &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: pString(uri)},
			Region:           &sarif.Region{StartLine: line},
		},
		Message: &sarif.Message{Text: pString(msg)},
	}
}

func relatedLocation(id int, uri string, line int, msg string) *sarif.Location {
	loc := location(uri, line, msg)
	loc.ID = &id
	return loc
}

// pString returns a pointer to the given string value. Helper for optional SARIF fields.
func pString(s string) *string {
	return &s
}
