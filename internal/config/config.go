// File: internal/config/config.go
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Engine() EngineConfig
	Output() OutputConfig
	Policy() PolicyConfig

	// Output Setters
	SetOutputFormat(string)
	SetOutputPath(string)

	// Engine Setters
	SetEngineWorkerConcurrency(int)
	SetEngineLoopUnroll(int)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg LoggerConfig `mapstructure:"logger" yaml:"logger"`
	EngineCfg EngineConfig `mapstructure:"engine" yaml:"engine"`
	OutputCfg OutputConfig `mapstructure:"output" yaml:"output"`
	PolicyCfg PolicyConfig `mapstructure:"policy" yaml:"policy"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig { return c.LoggerCfg }
func (c *Config) Engine() EngineConfig { return c.EngineCfg }
func (c *Config) Output() OutputConfig { return c.OutputCfg }
func (c *Config) Policy() PolicyConfig { return c.PolicyCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetOutputFormat(f string) { c.OutputCfg.Format = f }
func (c *Config) SetOutputPath(p string)   { c.OutputCfg.Path = p }

func (c *Config) SetEngineWorkerConcurrency(w int) { c.EngineCfg.WorkerConcurrency = w }
func (c *Config) SetEngineLoopUnroll(n int)        { c.EngineCfg.LoopUnroll = n }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig bounds the branch enumeration and its worker pool.
type EngineConfig struct {
	WorkerConcurrency int `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
	// MaxVariants caps the number of branch combinations of one slice.
	MaxVariants int `mapstructure:"max_variants" yaml:"max_variants"`
	// LoopUnroll is how many iterations of each while loop are explored.
	LoopUnroll int `mapstructure:"loop_unroll" yaml:"loop_unroll"`
}

// OutputConfig controls where and how findings are written.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Format string `mapstructure:"format" yaml:"format"`
	// Path overrides the derived <dir>/<slice>.output.json; "-" is stdout.
	// Set from the command line, not the config file.
	Path string `mapstructure:"-" yaml:"-"`
}

type PolicyConfig struct {
	ValidateSchema bool `mapstructure:"validate_schema" yaml:"validate_schema"`
}

// Output formats understood by the reporters.
const (
	FormatJSON  = "json"
	FormatSARIF = "sarif"
	FormatText  = "text"
)

const (
	MinLoopUnroll = 1
	MaxLoopUnroll = 10
)

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "taintflow")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Engine --
	v.SetDefault("engine.worker_concurrency", runtime.NumCPU())
	v.SetDefault("engine.max_variants", 1<<16)
	v.SetDefault("engine.loop_unroll", 3)

	// -- Output --
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.format", FormatJSON)

	// -- Policy --
	v.SetDefault("policy.validate_schema", true)
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading "~" in file system paths.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.OutputCfg.Dir, &c.LoggerCfg.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if c.EngineCfg.WorkerConcurrency <= 0 {
		return fmt.Errorf("engine.worker_concurrency must be a positive integer")
	}
	if c.EngineCfg.MaxVariants <= 0 {
		return fmt.Errorf("engine.max_variants must be a positive integer")
	}
	if c.EngineCfg.LoopUnroll < MinLoopUnroll || c.EngineCfg.LoopUnroll > MaxLoopUnroll {
		return fmt.Errorf("engine.loop_unroll must be between %d and %d", MinLoopUnroll, MaxLoopUnroll)
	}
	switch strings.ToLower(c.OutputCfg.Format) {
	case FormatJSON, FormatSARIF, FormatText:
	default:
		return fmt.Errorf("output.format must be one of json, sarif, text; got %q", c.OutputCfg.Format)
	}
	return nil
}
