// File: internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/taintflow/internal/analysis/branch"
	"github.com/xkilldash9x/taintflow/internal/analysis/policy"
	"github.com/xkilldash9x/taintflow/internal/analysis/static/python"
	"github.com/xkilldash9x/taintflow/internal/analysis/taint"
	"github.com/xkilldash9x/taintflow/internal/config"
)

// -- Interfaces for Dependency Inversion --

// VariantAnalyzer analyses one branch-free variant on its own copy of base.
// This allows tests to swap in failing or slow analyzers.
type VariantAnalyzer interface {
	AnalyzeVariant(ctx context.Context, base *taint.Vulnerabilities, v branch.Variant) (*taint.Vulnerabilities, error)
}

// taintAnalyzer is the production VariantAnalyzer.
type taintAnalyzer struct {
	logger *zap.Logger
}

func (a taintAnalyzer) AnalyzeVariant(_ context.Context, base *taint.Vulnerabilities, v branch.Variant) (*taint.Vulnerabilities, error) {
	return taint.AnalyzeFrom(a.logger.With(zap.Int("variant", v.Index)), base, v.Body)
}

// Result is the outcome of one run over one slice.
type Result struct {
	RunID        string
	Filename     string
	ControlNodes int
	Combinations int
	Variants     int
	Findings     []taint.Finding
	Duration     time.Duration
}

// Engine expands a slice into its branch variants, analyses the variants on a
// bounded worker pool and merges their findings.
type Engine struct {
	cfg      config.Interface
	logger   *zap.Logger
	parser   *python.Parser
	analyzer VariantAnalyzer
}

// New creates an Engine backed by the taint analysis.
func New(cfg config.Interface, logger *zap.Logger) (*Engine, error) {
	return NewWithAnalyzer(cfg, logger, taintAnalyzer{logger: logger.Named("taint")})
}

// NewWithAnalyzer creates an Engine with a custom VariantAnalyzer.
func NewWithAnalyzer(cfg config.Interface, logger *zap.Logger, analyzer VariantAnalyzer) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("configuration cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if analyzer == nil {
		return nil, errors.New("variant analyzer cannot be nil")
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger.Named("engine"),
		parser:   python.NewParser(logger),
		analyzer: analyzer,
	}, nil
}

// AnalyzeFile reads, parses and analyses a slice file.
func (e *Engine) AnalyzeFile(ctx context.Context, path string, pol *policy.Policy) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read slice: %w", err)
	}
	return e.AnalyzeSource(ctx, path, src, pol)
}

// AnalyzeSource parses src and analyses it.
func (e *Engine) AnalyzeSource(ctx context.Context, filename string, src []byte, pol *policy.Policy) (*Result, error) {
	mod, err := e.parser.Parse(ctx, filename, src)
	if err != nil {
		return nil, err
	}
	return e.Analyze(ctx, mod, pol)
}

// Analyze runs every distinct branch variant of mod. Any variant error aborts
// the whole run and no partial result is returned.
func (e *Engine) Analyze(ctx context.Context, mod *python.Module, pol *policy.Policy) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With(zap.String("run_id", runID), zap.String("filename", mod.Filename))

	engineCfg := e.cfg.Engine()
	concurrency := engineCfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	// Every variant starts from a copy of base; only merged is shared.
	base := taint.NewVulnerabilities(pol)
	merged := taint.NewVulnerabilities(pol)

	enum := branch.NewEnumerator(engineCfg.LoopUnroll, engineCfg.MaxVariants)
	stats, enumErr := enum.Enumerate(groupCtx, mod.Body, func(v branch.Variant) error {
		// g.Go blocks while the pool is full.
		g.Go(func() error {
			vulns, err := e.analyzer.AnalyzeVariant(groupCtx, base, v)
			if err != nil {
				return fmt.Errorf("variant %d: %w", v.Index, err)
			}
			logger.Debug("Variant analysed", zap.Int("variant", v.Index), zap.Ints("choices", v.Choices), zap.Int("findings", vulns.Len()))
			mu.Lock()
			merged.Merge(vulns)
			mu.Unlock()
			return nil
		})
		return nil
	})

	// Wait even when enumeration failed so no worker outlives the call.
	waitErr := g.Wait()
	switch {
	case waitErr != nil:
		logger.Error("Analysis failed", zap.Error(waitErr))
		return nil, waitErr
	case enumErr != nil:
		logger.Error("Branch enumeration failed", zap.Error(enumErr))
		return nil, enumErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:        runID,
		Filename:     mod.Filename,
		ControlNodes: stats.ControlNodes,
		Combinations: stats.Combinations,
		Variants:     stats.Distinct,
		Findings:     taint.Number(merged.IllegalFlows()),
		Duration:     time.Since(start),
	}
	logger.Info("Analysis complete",
		zap.Int("control_nodes", result.ControlNodes),
		zap.Int("variants", result.Variants),
		zap.Int("findings", len(result.Findings)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
