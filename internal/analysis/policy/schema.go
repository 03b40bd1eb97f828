// File: internal/analysis/policy/schema.go
package policy

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "taintflow://patterns.schema.json"

// patternSchema describes a pattern file: an array of pattern objects.
const patternSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["vulnerability", "sources", "sinks"],
    "properties": {
      "vulnerability": {"type": "string", "minLength": 1},
      "sources": {"type": "array", "items": {"type": "string"}},
      "sinks": {"type": "array", "items": {"type": "string"}},
      "sanitizers": {"type": "array", "items": {"type": "string"}},
      "implicit": {
        "oneOf": [
          {"type": "boolean"},
          {"type": "string", "enum": ["yes", "no"]}
        ]
      }
    }
  }
}`

var (
	compiledSchema *jsonschema.Schema
	schemaErr      error
	schemaOnce     sync.Once
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(patternSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parse pattern schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("register pattern schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// Validate checks a JSON pattern document against the pattern schema.
func Validate(data []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return sch.Validate(inst)
}
