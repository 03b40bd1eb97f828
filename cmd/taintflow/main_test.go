// File: cmd/taintflow/main_test.go
package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/taintflow/cmd"
	"github.com/xkilldash9x/taintflow/internal/analysis/core"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
	execute = cmd.Execute
}

func TestRun_ExitCodes(t *testing.T) {
	defer resetMocks()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, cmd.ExitOK},
		{"failure", errors.New("boom"), cmd.ExitFailure},
		{"configuration", &core.ConfigurationError{Path: "p.json", Reason: "bad"}, cmd.ExitUsage},
		{"interrupted", context.Canceled, cmd.ExitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execute = func(context.Context) error { return tt.err }
			assert.Equal(t, tt.want, run(context.Background()))
		})
	}
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("writes panic log", func(t *testing.T) {
		var written string
		var code = -1
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = string(data)
			return nil
		}
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("label state corrupted")
		}()

		assert.Equal(t, cmd.ExitFailure, code)
		assert.True(t, strings.HasPrefix(written, "panic: label state corrupted"))
		assert.Contains(t, written, "goroutine")
	})

	t.Run("log write fails", func(t *testing.T) {
		var code = -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only") }
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, cmd.ExitFailure, code)
	})

	t.Run("no panic", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }
		func() {
			defer handlePanic()
		}()
		assert.False(t, called)
	})
}

// TestMain_Process runs the binary in a sub-process to check exit statuses end to end.
func TestMain_Process(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a sub-process")
	}
	dir := t.TempDir()
	patterns := filepath.Join(dir, "patterns.json")
	require.NoError(t, os.WriteFile(patterns, []byte(`[{"vulnerability":"A","sources":["input"],"sanitizers":[],"sinks":["output"],"implicit":"no"}]`), 0o644))
	slice := filepath.Join(dir, "slice.py")
	require.NoError(t, os.WriteFile(slice, []byte("x = input()\noutput(x)\n"), 0o644))

	tests := []struct {
		name     string
		args     []string
		wantCode int
		stderr   string
	}{
		{"missing slice", []string{filepath.Join(dir, "nope.py"), patterns}, cmd.ExitUsage, "Slice file not found"},
		{"missing patterns", []string{slice, filepath.Join(dir, "nope.json")}, cmd.ExitUsage, "Pattern file not found"},
		{"success", []string{slice, patterns, "-o", filepath.Join(dir, "out.json")}, cmd.ExitOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := exec.Command(os.Args[0], append([]string{"-test.run=TestHelperProcess", "--"}, tt.args...)...)
			c.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
			c.Dir = dir
			var stderr strings.Builder
			c.Stderr = &stderr

			err := c.Run()
			code := 0
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCode, code, stderr.String())
			assert.Contains(t, stderr.String(), tt.stderr)
		})
	}
	assert.FileExists(t, filepath.Join(dir, "out.json"))
}

// TestHelperProcess is the sub-process entry point used by TestMain_Process.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	os.Args = append([]string{"taintflow"}, args...)
	main()
}
