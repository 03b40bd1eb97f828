// File: internal/reporting/json_reporter_test.go
package reporting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/taintflow/internal/engine"
	"github.com/xkilldash9x/taintflow/internal/reporting"
)

func TestJSONReporter_Output(t *testing.T) {
	w := newMockWriter()
	r := reporting.NewJSONReporter(w)
	require.NoError(t, r.Write(sampleResult()))
	require.NoError(t, r.Close())
	assert.True(t, w.Closed)

	expected := `[
	  {"vulnerability": "A_1", "source": ["input", 1], "sink": ["output", 4],
	   "unsanitized_flows": "yes", "sanitized_flows": []},
	  {"vulnerability": "A_2", "source": ["input", 2], "sink": ["output", 4],
	   "unsanitized_flows": "no",
	   "sanitized_flows": [[["clean", 3]], [["clean", 2], ["clean", 3]]]},
	  {"vulnerability": "B_1", "source": ["q", 5], "sink": ["exec", 5],
	   "unsanitized_flows": "yes", "sanitized_flows": []}
	]`
	assert.JSONEq(t, expected, w.Buffer.String())
}

func TestJSONReporter_EmptyIsArray(t *testing.T) {
	w := newMockWriter()
	r := reporting.NewJSONReporter(w)
	require.NoError(t, r.Write(&engine.Result{Filename: "clean.py"}))
	require.NoError(t, r.Write(nil))
	require.NoError(t, r.Close())
	assert.JSONEq(t, `[]`, w.Buffer.String())
}

func TestJSONReporter_Errors(t *testing.T) {
	t.Run("write", func(t *testing.T) {
		w := newMockWriter()
		w.FailWrite = true
		r := reporting.NewJSONReporter(w)
		err := r.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to encode JSON output")
		assert.True(t, w.Closed, "writer is closed even when encoding fails")
	})
	t.Run("close", func(t *testing.T) {
		w := newMockWriter()
		w.FailClose = true
		r := reporting.NewJSONReporter(w)
		err := r.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to close output writer")
	})
}

func TestNewRecord(t *testing.T) {
	rec := reporting.NewRecord(sampleResult().Findings[1])
	assert.Equal(t, "A_2", rec.Vulnerability)
	assert.Equal(t, [2]interface{}{"input", 2}, rec.Source)
	assert.Equal(t, "no", rec.UnsanitizedFlows)
	require.Len(t, rec.SanitizedFlows, 2)
	assert.Equal(t, [][2]interface{}{{"clean", 2}, {"clean", 3}}, rec.SanitizedFlows[1])
}
