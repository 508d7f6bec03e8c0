package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/utils"
	vybiumstarkbench "github.com/vybium/vybium-stark-bench/pkg/vybium-stark-bench"
)

type runFlags struct {
	configFile  string
	threads     string
	hashes      string
	fields      string
	backends    string
	steps       string
	columns     string
	repeats     int
	warmup      int
	seed        uint64
	timeout     time.Duration
	verify      bool
	logLevel    string
	logDir      string
	out         string
	format      string
	store       string
	metricsFile string
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a benchmark sweep and write the report",
	Long: `Run every configuration of the sweep sequentially. Settings come from
defaults, then the --config YAML file, then environment variables
(NUM_THREADS, HASH_TYPE, FIELD_TYPE, BACKEND, STEPS, COLUMNS, REPEATS,
WARMUP, SEED, TRIAL_TIMEOUT, VERIFY, LOG_LEVEL, LOG_DIR), then flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logPath := ""
		if cfg.LogDir != "" {
			logPath = filepath.Join(cfg.LogDir, "bench.log")
		}
		logger, err := utils.NewLogger(cfg.LogLevel, logPath)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rep, err := vybiumstarkbench.Run(ctx, cfg,
			vybiumstarkbench.WithLogger(logger),
			vybiumstarkbench.WithStore(runOpts.store),
			vybiumstarkbench.WithMetricsFile(runOpts.metricsFile))
		if err != nil {
			if rep == nil {
				return err
			}
			logger.Warn("sweep interrupted, reporting partial results", zap.Error(err))
		}
		logger.Info("sweep done",
			zap.String("run_id", rep.RunID),
			zap.Int("trials", len(rep.Results())),
			zap.Int("failed", len(rep.Failures())))

		return writeReport(rep, runOpts.format, runOpts.out)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.configFile, "config", "", "YAML sweep file")
	f.StringVar(&runOpts.threads, "threads", "", "comma-separated thread counts (0 = all cores)")
	f.StringVar(&runOpts.hashes, "hash", "", "comma-separated hash functions")
	f.StringVar(&runOpts.fields, "field", "", "comma-separated field representations")
	f.StringVar(&runOpts.backends, "backend", "", "comma-separated backends (p3, winterfell)")
	f.StringVar(&runOpts.steps, "steps", "", "comma-separated trace lengths")
	f.StringVar(&runOpts.columns, "columns", "", "comma-separated trace widths")
	f.IntVar(&runOpts.repeats, "repeats", 1, "recorded trials per configuration")
	f.IntVar(&runOpts.warmup, "warmup", 0, "discarded trials per configuration")
	f.Uint64Var(&runOpts.seed, "seed", 0, "workload seed")
	f.DurationVar(&runOpts.timeout, "timeout", 10*time.Minute, "per-trial timeout (0 disables)")
	f.BoolVar(&runOpts.verify, "verify", true, "verify every proof after timing it")
	f.StringVar(&runOpts.logLevel, "log-level", "info", "debug, info, warn or error")
	f.StringVar(&runOpts.logDir, "log-dir", "", "directory for per-configuration log files")
	f.StringVarP(&runOpts.out, "out", "o", "", "report file (default stdout)")
	f.StringVarP(&runOpts.format, "format", "f", "markdown", "report format: markdown, table, csv or json")
	f.StringVar(&runOpts.store, "store", "", "badger directory to append results to")
	f.StringVar(&runOpts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
}

// loadConfig layers defaults, the YAML file, the environment and the flags
// that were set explicitly
func loadConfig(cmd *cobra.Command) (*utils.Config, error) {
	cfg := utils.DefaultConfig()
	if runOpts.configFile != "" {
		if err := cfg.LoadFile(runOpts.configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}

	f := cmd.Flags()
	lists := []struct {
		flag  string
		value string
		set   func(string) error
	}{
		{"threads", runOpts.threads, cfg.SetThreads},
		{"hash", runOpts.hashes, cfg.SetHashes},
		{"field", runOpts.fields, cfg.SetFields},
		{"backend", runOpts.backends, cfg.SetBackends},
		{"steps", runOpts.steps, cfg.SetSteps},
		{"columns", runOpts.columns, cfg.SetColumns},
	}
	for _, l := range lists {
		if !f.Changed(l.flag) {
			continue
		}
		if err := l.set(l.value); err != nil {
			return nil, err
		}
	}
	if f.Changed("repeats") {
		cfg.Repeats = runOpts.repeats
	}
	if f.Changed("warmup") {
		cfg.Warmup = runOpts.warmup
	}
	if f.Changed("seed") {
		cfg.Seed = runOpts.seed
	}
	if f.Changed("timeout") {
		cfg.Timeout = runOpts.timeout
	}
	if f.Changed("verify") {
		cfg.Verify = runOpts.verify
	}
	if f.Changed("log-level") {
		cfg.LogLevel = runOpts.logLevel
	}
	if f.Changed("log-dir") {
		cfg.LogDir = runOpts.logDir
	}
	return cfg, cfg.Validate()
}

// writeReport renders rep to out, or stdout when out is empty
func writeReport(rep *vybiumstarkbench.Report, format, out string) error {
	text, err := rep.Render(format)
	if err != nil {
		return err
	}
	if out == "" {
		if _, err := os.Stdout.WriteString(text); err != nil {
			return core.IOError("write report to stdout", err)
		}
		return nil
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return core.IOError("write report "+out, err)
	}
	return nil
}
