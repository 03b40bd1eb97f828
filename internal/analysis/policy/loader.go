// File: internal/analysis/policy/loader.go
package policy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
)

// patternRecord is the on-disk shape of one pattern.
type patternRecord struct {
	Vulnerability string       `json:"vulnerability" yaml:"vulnerability"`
	Sources       []string     `json:"sources" yaml:"sources"`
	Sanitizers    []string     `json:"sanitizers" yaml:"sanitizers"`
	Sinks         []string     `json:"sinks" yaml:"sinks"`
	Implicit      implicitFlag `json:"implicit" yaml:"implicit"`
}

// implicitFlag accepts a JSON boolean or the "yes"/"no" strings found in older pattern files.
type implicitFlag bool

func (f *implicitFlag) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(strings.Trim(string(bytes.TrimSpace(data)), `"`)) {
	case "true", "yes":
		*f = true
	case "false", "no", "null", "":
		*f = false
	default:
		return fmt.Errorf("implicit must be a boolean or \"yes\"/\"no\", got %s", data)
	}
	return nil
}

func (f implicitFlag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// Loader reads pattern files.
type Loader struct {
	// ValidateSchema checks the document against the pattern JSON Schema before decoding.
	ValidateSchema bool
}

// NewLoader returns a loader that validates against the schema.
func NewLoader() *Loader {
	return &Loader{ValidateSchema: true}
}

// Load reads a policy file. ".yaml" and ".yml" files are read as YAML, anything else as JSON.
func (l *Loader) Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ConfigurationError{Path: path, Reason: "cannot read pattern file", Err: err}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, &core.ConfigurationError{Path: path, Reason: "invalid YAML", Err: err}
		}
	}
	return l.Parse(data, path)
}

// Parse decodes a JSON pattern document. path is only used in error messages.
func (l *Loader) Parse(data []byte, path string) (*Policy, error) {
	if l.ValidateSchema {
		if err := Validate(data); err != nil {
			return nil, &core.ConfigurationError{Path: path, Reason: "pattern file does not match schema", Err: err}
		}
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &core.ConfigurationError{Path: path, Reason: "invalid JSON", Err: err}
	}
	for i, fields := range raw {
		for _, required := range []string{"vulnerability", "sources", "sinks"} {
			if _, ok := fields[required]; !ok {
				return nil, &core.ConfigurationError{Path: path, Reason: fmt.Sprintf("pattern %d: missing required field %q", i, required)}
			}
		}
	}

	var records []patternRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &core.ConfigurationError{Path: path, Reason: "malformed pattern", Err: err}
	}

	patterns := make([]*Pattern, 0, len(records))
	for i, rec := range records {
		if rec.Vulnerability == "" {
			return nil, &core.ConfigurationError{Path: path, Reason: fmt.Sprintf("pattern %d: empty vulnerability name", i)}
		}
		patterns = append(patterns, rec.pattern())
	}
	return New(patterns...), nil
}

// Parse decodes a JSON pattern document with schema validation enabled.
func Parse(data []byte, path string) (*Policy, error) {
	return NewLoader().Parse(data, path)
}

// LoadFile reads a pattern file with schema validation enabled.
func LoadFile(path string) (*Policy, error) {
	return NewLoader().Load(path)
}

func (rec patternRecord) pattern() *Pattern {
	sources := make([]core.Source, 0, len(rec.Sources))
	for _, s := range rec.Sources {
		sources = append(sources, core.Source(s))
	}
	sanitizers := make([]core.Sanitizer, 0, len(rec.Sanitizers))
	for _, s := range rec.Sanitizers {
		sanitizers = append(sanitizers, core.Sanitizer(s))
	}
	sinks := make([]core.Sink, 0, len(rec.Sinks))
	for _, s := range rec.Sinks {
		sinks = append(sinks, core.Sink(s))
	}
	return NewPattern(core.Vulnerability(rec.Vulnerability), sources, sanitizers, sinks, bool(rec.Implicit))
}

// yamlToJSON re-encodes a YAML document so both formats share one decode and validation path.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
