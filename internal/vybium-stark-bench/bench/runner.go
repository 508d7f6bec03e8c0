package bench

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/pool"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/prover"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/workload"
)

// Recorder receives every recorded or failed trial, in order
type Recorder interface {
	Record(core.TrialResult)
}

// Sink persists or observes trial results next to the recorder
type Sink interface {
	Save(core.TrialResult) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(core.TrialResult) error

func (f SinkFunc) Save(r core.TrialResult) error { return f(r) }

// AdapterFactory builds the adapter of a backend
type AdapterFactory func(kind core.BackendKind, logger *zap.Logger) (prover.Adapter, error)

// Runner executes trials one at a time. It is not safe for concurrent use.
type Runner struct {
	recorder   Recorder
	sinks      []Sink
	logger     *zap.Logger
	logDir     string
	newAdapter AdapterFactory
	runID      string
	verify     bool
}

// Option customises a runner
type Option func(*Runner)

// WithLogger sets the runner's logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLogDir writes one log file per configuration into dir
func WithLogDir(dir string) Option {
	return func(r *Runner) { r.logDir = dir }
}

// WithSink adds a result sink
func WithSink(s Sink) Option {
	return func(r *Runner) {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
}

// WithAdapterFactory replaces the backend constructor
func WithAdapterFactory(f AdapterFactory) Option {
	return func(r *Runner) { r.newAdapter = f }
}

// WithRunID fixes the run identifier instead of generating one
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithVerify checks every proof after it is produced. Verification is timed
// separately and never counts towards the proving time.
func WithVerify(on bool) Option {
	return func(r *Runner) { r.verify = on }
}

// NewRunner creates a runner that records into rec
func NewRunner(rec Recorder, opts ...Option) *Runner {
	r := &Runner{
		recorder:   rec,
		logger:     zap.NewNop(),
		newAdapter: prover.New,
		runID:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("runner")
	return r
}

// RunID identifies every result this runner produces
func (r *Runner) RunID() string {
	return r.runID
}

// RunSweep runs every configuration of s: Warmup discarded trials, then
// Repeats recorded ones. Failed trials are recorded and the sweep goes on.
// Cancelling ctx stops the sweep; a trial cut short by the cancellation is
// dropped rather than recorded and ctx.Err() is returned.
func (r *Runner) RunSweep(ctx context.Context, s Sweep) error {
	files := newLogFiles(r.logDir, r.logger)
	defer func() {
		if err := files.Close(); err != nil {
			r.logger.Warn("failed to close log files", zap.Error(err))
		}
	}()

	repeats := s.Repeats
	if repeats < 1 {
		repeats = 1
	}
	configs := s.Configurations()
	r.logger.Info("sweep started",
		zap.String("run_id", r.runID),
		zap.Int("configurations", len(configs)),
		zap.Int("repeats", repeats),
		zap.Int("warmup", s.Warmup))

	for _, cfg := range configs {
		logger := files.For(cfg)
		for i := 0; i < s.Warmup; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.runTrial(ctx, logger, cfg, -1, s.Seed, s.Timeout)
			if err != nil {
				return err
			}
			logger.Debug("warmup done", zap.Duration("elapsed", res.Elapsed), zap.String("status", string(res.Status)))
		}
		for i := 0; i < repeats; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.runTrial(ctx, logger, cfg, i, s.Seed, s.Timeout)
			if err != nil {
				return err
			}
			r.record(logger, res)
		}
	}

	r.logger.Info("sweep finished", zap.String("run_id", r.runID))
	return ctx.Err()
}

// RunTrial runs and records a single trial. The error is non-nil only when
// ctx was cancelled before the trial completed; nothing is recorded then.
func (r *Runner) RunTrial(ctx context.Context, cfg Configuration, seed uint64, timeout time.Duration) (core.TrialResult, error) {
	res, err := r.runTrial(ctx, r.logger, cfg, 0, seed, timeout)
	if err != nil {
		return res, err
	}
	r.record(r.logger, res)
	return res, nil
}

func (r *Runner) record(logger *zap.Logger, res core.TrialResult) {
	if r.recorder != nil {
		r.recorder.Record(res)
	}
	for _, s := range r.sinks {
		if err := s.Save(res); err != nil {
			logger.Warn("failed to persist result", zap.Error(core.IOError("save trial", err)))
		}
	}
}

// trial tracks one pass through the state machine
type trial struct {
	logger *zap.Logger
	state  TrialState
	res    core.TrialResult
}

func (t *trial) to(next TrialState) {
	if !CanTransition(t.state, next) {
		t.logger.Error("illegal trial transition", zap.Stringer("from", t.state), zap.Stringer("to", next))
	}
	t.logger.Debug("trial state", zap.Stringer("from", t.state), zap.Stringer("to", next))
	t.state = next
}

func (t *trial) fail(err error) core.TrialResult {
	t.to(StateFailed)
	t.res.Status = core.StatusFailed
	t.res.ErrKind = core.KindOf(err)
	t.res.Error = err.Error()
	t.logger.Warn("trial failed", zap.Stringer("kind", t.res.ErrKind), zap.Error(err))
	return t.res
}

// runTrial returns a non-nil error only when the parent ctx ended the trial
func (r *Runner) runTrial(ctx context.Context, logger *zap.Logger, cfg Configuration, repeat int, seed uint64, timeout time.Duration) (core.TrialResult, error) {
	logger = logger.With(
		zap.Stringer("backend", cfg.Backend),
		zap.String("hash", cfg.Hash),
		zap.String("field", cfg.Field),
		zap.Int("steps", cfg.Steps),
		zap.Int("columns", cfg.Columns),
		zap.Int("threads", cfg.Threads),
		zap.Int("repeat", repeat))

	t := &trial{
		logger: logger,
		state:  StateConfigured,
		res: core.TrialResult{
			RunID:     r.runID,
			Config:    core.BackendConfig{Backend: cfg.Backend, Threads: cfg.Threads},
			Steps:     cfg.Steps,
			Columns:   cfg.Columns,
			Repeat:    repeat,
			StartedAt: time.Now(),
		},
	}

	t.to(StateBuilding)
	if kind, err := core.ParseHashKind(cfg.Hash); err == nil {
		t.res.Config.Hash = kind
	}
	if kind, err := core.ParseFieldKind(cfg.Field); err == nil {
		t.res.Config.Field = kind
	}

	adapter, err := r.newAdapter(cfg.Backend, logger)
	if err != nil {
		return t.fail(err), nil
	}
	hasher, err := strategy.Resolve(cfg.Hash)
	if err != nil {
		return t.fail(err), nil
	}
	field, err := strategy.ResolveField(cfg.Field)
	if err != nil {
		return t.fail(err), nil
	}
	trace, err := workload.Build(cfg.Steps, cfg.Columns, seed)
	if err != nil {
		return t.fail(err), nil
	}

	t.to(StateProving)
	p, err := pool.Configure(cfg.Threads, pool.WithLogger(logger))
	if err != nil {
		return t.fail(core.ProverError(adapter.BackendName(), err)), nil
	}

	req := prover.Request{
		Trace:       trace,
		Constraints: workload.NewConstraintSpec(cfg.Columns),
		Hasher:      hasher,
		Field:       field,
		Pool:        p,
	}
	elapsed, proof, err := r.prove(ctx, adapter, req, timeout)
	req.Pool = nil

	// the pool is torn down outside the timed interval, after the adapter returned
	if cerr := p.Close(); cerr != nil {
		logger.Warn("failed to close pool", zap.Error(cerr))
	}

	t.res.Elapsed = elapsed
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			logger.Info("trial interrupted", zap.Duration("elapsed", elapsed), zap.Error(err))
			return t.res, cerr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = core.Timeout(adapter.BackendName(), err)
		}
		return t.fail(err), nil
	}

	t.to(StateMeasured)
	t.res.ProofSize = proof.Size()
	if r.verify {
		verifyElapsed, err := r.check(ctx, adapter, req, proof, timeout)
		t.res.VerifyElapsed = verifyElapsed
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				logger.Info("trial interrupted during verification", zap.Error(err))
				return t.res, cerr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				err = core.Timeout(adapter.BackendName(), err)
			}
			return t.fail(err), nil
		}
	}
	t.res.Status = core.StatusRecorded
	t.to(StateRecorded)
	logger.Info("trial recorded",
		zap.Duration("elapsed", elapsed),
		zap.Duration("verify_elapsed", t.res.VerifyElapsed),
		zap.Int("proof_size", t.res.ProofSize))
	return t.res, nil
}

// prove times a single Prove call under the trial timeout
func (r *Runner) prove(ctx context.Context, adapter prover.Adapter, req prover.Request, timeout time.Duration) (time.Duration, core.Proof, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	proof, err := adapter.Prove(ctx, req)
	return time.Since(start), proof, err
}

// check times a single Verify call under the trial timeout
func (r *Runner) check(ctx context.Context, adapter prover.Adapter, req prover.Request, proof core.Proof, timeout time.Duration) (time.Duration, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	err := adapter.Verify(ctx, req, proof)
	return time.Since(start), err
}
