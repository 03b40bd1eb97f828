// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taintflow/internal/analysis/core"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
	"github.com/xkilldash9x/taintflow/internal/config"
	"github.com/xkilldash9x/taintflow/internal/engine"
	"github.com/xkilldash9x/taintflow/internal/observability"
	"github.com/xkilldash9x/taintflow/internal/reporting"
)

const (
	envPrefix         = "TAINTFLOW"
	defaultConfigName = "taintflow"
)

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// rootOptions holds the state shared between the hooks of one command instance.
type rootOptions struct {
	cfgFile string
	output  string
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	v := viper.New()
	config.SetDefaults(v)

	cmd := &cobra.Command{
		Use:   "taintflow <slice> <patterns>",
		Short: "Static taint-flow analysis of Python slices.",
		Long: `taintflow reports every path along which data from a pattern's sources
reaches one of its sinks, and which of those paths pass through a sanitizer.`,
		Version: Version,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initializeConfig(v, opts.cfgFile); err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return err
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.SetOutputPath(opts.output)
			}
			opts.cfg = cfg

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting taintflow", zap.String("version", Version))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, opts.cfg, args[0], args[1])
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			observability.Sync()
		},
	}

	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./taintflow.yaml)")

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "report path, '-' for stdout (default <output.dir>/<slice>.output.<ext>)")
	f.StringP("format", "f", config.FormatJSON, "report format: json, sarif or text")
	f.Int("workers", 0, "number of variants analysed concurrently (default number of CPUs)")
	f.Int("loop-unroll", 0, "maximum number of loop iterations explored")
	f.Int("max-variants", 0, "maximum number of branch variants per slice")
	f.String("log-level", "", "log level (debug, info, warn, error)")

	for key, name := range map[string]string{
		"output.format":             "format",
		"engine.worker_concurrency": "workers",
		"engine.loop_unroll":        "loop-unroll",
		"engine.max_variants":       "max-variants",
		"logger.level":              "log-level",
	} {
		if err := v.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
		}
	}

	cmd.AddCommand(newVersionCommand())
	return cmd
}

// nopCloser keeps Close from closing the command's output stream.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Execute runs the root command with ctx and returns its error after logging it.
func Execute(ctx context.Context) error {
	return ExecuteArgs(ctx, os.Args[1:])
}

// ExecuteArgs is Execute with explicit arguments.
func ExecuteArgs(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		observability.GetLogger().Warn("Analysis interrupted")
	default:
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	observability.Sync()
	return err
}

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, core.ErrConfiguration), errors.Is(err, errUsage):
		return ExitUsage
	default:
		return ExitFailure
	}
}

var errUsage = errors.New("usage error")

// initializeConfig reads in the config file and ENV variables if set.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return &core.ConfigurationError{Path: v.ConfigFileUsed(), Reason: "cannot read config file", Err: err}
		}
		// Config file not found; proceed with defaults/env vars.
	}
	return nil
}

func fallbackLoggerConfig() config.LoggerConfig {
	return config.LoggerConfig{Level: "info", Format: "console", ServiceName: "taintflow"}
}

// runAnalysis analyses one slice against one pattern file and writes the report.
// Nothing is written when the analysis fails.
func runAnalysis(cmd *cobra.Command, cfg *config.Config, slicePath, patternPath string) error {
	logger := observability.GetLogger()
	stderr := cmd.ErrOrStderr()

	if !fileExists(slicePath) {
		fmt.Fprintln(stderr, "Slice file not found")
		return fmt.Errorf("%w: slice file %s not found", errUsage, slicePath)
	}
	if !fileExists(patternPath) {
		fmt.Fprintln(stderr, "Pattern file not found")
		return fmt.Errorf("%w: pattern file %s not found", errUsage, patternPath)
	}

	loader := &policy.Loader{ValidateSchema: cfg.Policy().ValidateSchema}
	pol, err := loader.Load(patternPath)
	if err != nil {
		return err
	}
	logger.Debug("Policy loaded", zap.String("path", patternPath), zap.Any("vulnerabilities", pol.Vulnerabilities()))

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return err
	}
	result, err := eng.AnalyzeFile(cmd.Context(), slicePath, pol)
	if err != nil {
		return err
	}

	format := strings.ToLower(cfg.Output().Format)
	outPath := cfg.Output().Path
	if outPath == "" {
		outPath = defaultOutputPath(cfg.Output().Dir, slicePath, format)
	}
	if !reporting.IsStdout(outPath) {
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var reporter reporting.Reporter
	if reporting.IsStdout(outPath) {
		reporter, err = reporting.NewForWriter(format, nopCloser{cmd.OutOrStdout()}, Version)
	} else {
		reporter, err = reporting.New(format, outPath, Version)
	}
	if err != nil {
		return err
	}
	if err := reporter.Write(result); err != nil {
		reporter.Close()
		return err
	}
	if err := reporter.Close(); err != nil {
		return err
	}

	logger.Info("Report written",
		zap.String("run_id", result.RunID),
		zap.String("output", outPath),
		zap.Int("findings", len(result.Findings)),
	)
	return nil
}

// defaultOutputPath is <dir>/<slice basename without extension>.output.<ext>.
func defaultOutputPath(dir, slicePath, format string) string {
	base := strings.TrimSuffix(filepath.Base(slicePath), filepath.Ext(slicePath))
	ext := format
	if format == config.FormatText {
		ext = "txt"
	}
	return filepath.Join(dir, base+".output."+ext)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
