package vybiumstarkbench

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/bench"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/metrics"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/report"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/store"
)

// Report is the outcome of a sweep
type Report struct {
	RunID       string
	Environment Environment

	agg *report.Aggregator
}

// Results returns every trial in execution order
func (r *Report) Results() []TrialResult { return r.agg.Results() }

// Failures returns the failed trials
func (r *Report) Failures() []TrialResult { return r.agg.Failures() }

// Summaries returns the per-configuration statistics
func (r *Report) Summaries() []Summary { return r.agg.Summaries() }

// Comparisons returns the backend comparison rows
func (r *Report) Comparisons() []Comparison { return r.agg.Comparisons() }

// Render formats the report as markdown, table, csv or json
func (r *Report) Render(format string) (string, error) {
	f, err := report.ParseFormat(format)
	if err != nil {
		return "", err
	}
	return r.agg.Render(f)
}

type runOptions struct {
	logger      *zap.Logger
	storePath   string
	metricsFile string
	runID       string
}

// Option customises Run
type Option func(*runOptions)

// WithLogger sets the logger; the default discards everything
func WithLogger(logger *zap.Logger) Option {
	return func(o *runOptions) { o.logger = logger }
}

// WithStore persists results in the badger database at path
func WithStore(path string) Option {
	return func(o *runOptions) { o.storePath = path }
}

// WithMetricsFile writes Prometheus metrics to path after the sweep
func WithMetricsFile(path string) Option {
	return func(o *runOptions) { o.metricsFile = path }
}

// WithRunID fixes the run identifier
func WithRunID(id string) Option {
	return func(o *runOptions) { o.runID = id }
}

// Run validates cfg and executes its sweep
func Run(ctx context.Context, cfg *Config, opts ...Option) (rep *Report, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &runOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	agg := report.NewAggregator()
	collector := metrics.New()
	runnerOpts := []bench.Option{
		bench.WithLogger(o.logger),
		bench.WithLogDir(cfg.LogDir),
		bench.WithSink(collector),
		bench.WithVerify(cfg.Verify),
	}
	if o.runID != "" {
		runnerOpts = append(runnerOpts, bench.WithRunID(o.runID))
	}
	if o.storePath != "" {
		st, err := store.Open(o.storePath)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := st.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		runnerOpts = append(runnerOpts, bench.WithSink(st))
	}

	runner := bench.NewRunner(agg, runnerOpts...)
	rep = &Report{
		RunID:       runner.RunID(),
		Environment: report.DetectEnvironment(),
		agg:         agg,
	}

	if err := runner.RunSweep(ctx, cfg.ToSweep()); err != nil {
		return rep, err
	}
	if o.metricsFile != "" {
		if err := collector.WriteTextfile(o.metricsFile); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// LoadRun reloads a stored run into a report
func LoadRun(storePath, runID string) (rep *Report, err error) {
	st, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	results, err := st.Load(runID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.New("run " + runID + " not found")
	}
	agg := report.NewAggregator()
	for _, r := range results {
		agg.Record(r)
	}
	return &Report{RunID: runID, Environment: report.DetectEnvironment(), agg: agg}, nil
}

// ListRuns returns the run IDs in a store
func ListRuns(storePath string) (runs []string, err error) {
	st, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return st.Runs()
}
