package bench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/pool"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/prover"
)

type collector struct {
	mu      sync.Mutex
	results []core.TrialResult
}

func (c *collector) Record(r core.TrialResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// fakeAdapter stands in for a backend; behaviour is picked per call
type fakeAdapter struct {
	kind     core.BackendKind
	calls    int
	verified int
	prove    func(ctx context.Context, req prover.Request) (core.Proof, error)
	verify   func(ctx context.Context, proof core.Proof) error
}

func (f *fakeAdapter) Prove(ctx context.Context, req prover.Request) (core.Proof, error) {
	f.calls++
	if f.prove != nil {
		return f.prove(ctx, req)
	}
	return core.Proof{1, 2, 3}, nil
}

func (f *fakeAdapter) Verify(ctx context.Context, req prover.Request, proof core.Proof) error {
	f.verified++
	if f.verify != nil {
		return f.verify(ctx, proof)
	}
	return nil
}

func (f *fakeAdapter) BackendName() string    { return f.kind.String() }
func (f *fakeAdapter) Kind() core.BackendKind { return f.kind }

func factory(a *fakeAdapter) AdapterFactory {
	return func(kind core.BackendKind, _ *zap.Logger) (prover.Adapter, error) {
		a.kind = kind
		return a, nil
	}
}

func sweep() Sweep {
	return Sweep{
		Steps:    []int{64},
		Columns:  []int{3},
		Backends: []core.BackendKind{core.BackendA},
		Hashes:   []string{"keccak"},
		Fields:   []string{"goldilocks-monty"},
		Threads:  []int{1},
		Repeats:  1,
		Seed:     7,
	}
}

func TestConfigurations(t *testing.T) {
	s := Sweep{
		Steps:    []int{8, 16},
		Columns:  []int{2},
		Backends: []core.BackendKind{core.BackendA, core.BackendB},
		Hashes:   []string{"keccak", "rpo"},
		Fields:   []string{"generic"},
		Threads:  []int{1, 4},
		Repeats:  3,
	}
	cfgs := s.Configurations()
	require.Len(t, cfgs, 16)
	assert.Equal(t, Configuration{Steps: 8, Columns: 2, Backend: core.BackendA, Hash: "keccak", Field: "generic", Threads: 1}, cfgs[0])
	assert.Equal(t, 4, cfgs[1].Threads)
	assert.Equal(t, "rpo", cfgs[2].Hash)
	assert.Equal(t, core.BackendB, cfgs[4].Backend)
	assert.Equal(t, 16, cfgs[8].Steps)
	assert.Equal(t, 48, s.Trials())

	assert.Equal(t, "winterfell_rpo_generic_4_thread.log", cfgs[7].LogName())
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(StateConfigured, StateBuilding))
	assert.True(t, CanTransition(StateProving, StateFailed))
	assert.True(t, CanTransition(StateMeasured, StateRecorded))
	assert.False(t, CanTransition(StateConfigured, StateProving))
	assert.False(t, CanTransition(StateRecorded, StateFailed))
	assert.False(t, CanTransition(StateFailed, StateBuilding))

	assert.True(t, StateRecorded.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateMeasured.Terminal())
	assert.Equal(t, "Proving", StateProving.String())
	assert.Equal(t, "TrialState(42)", TrialState(42).String())
}

func TestRunTrialRecorded(t *testing.T) {
	rec := &collector{}
	fake := &fakeAdapter{prove: func(ctx context.Context, req prover.Request) (core.Proof, error) {
		assert.Equal(t, 64, req.Trace.Steps)
		assert.Equal(t, 3, req.Constraints.Width)
		assert.Equal(t, core.HashKeccak, req.Hasher.Kind())
		require.NotNil(t, req.Pool)
		assert.Equal(t, 1, req.Pool.Size())
		time.Sleep(time.Millisecond)
		return make(core.Proof, 512), nil
	}}
	r := NewRunner(rec, WithLogger(zaptest.NewLogger(t)), WithAdapterFactory(factory(fake)), WithRunID("run-1"))

	res, err := r.RunTrial(context.Background(), sweep().Configurations()[0], 7, 0)
	require.NoError(t, err)
	assert.Equal(t, core.StatusRecorded, res.Status)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 512, res.ProofSize)
	assert.Greater(t, res.Elapsed, time.Duration(0))
	assert.Equal(t, core.FieldGoldilocksMonty, res.Config.Field)
	assert.Len(t, rec.results, 1)
	assert.Zero(t, pool.LiveWorkers())
}

func TestSweepContinuesAfterFailure(t *testing.T) {
	rec := &collector{}
	fake := &fakeAdapter{}
	s := sweep()
	s.Columns = []int{0, 3}
	r := NewRunner(rec, WithLogger(zaptest.NewLogger(t)), WithAdapterFactory(factory(fake)))

	require.NoError(t, r.RunSweep(context.Background(), s))
	require.Len(t, rec.results, 2)

	bad := rec.results[0]
	assert.Equal(t, core.StatusFailed, bad.Status)
	assert.Equal(t, core.KindInvalidDimensions, bad.ErrKind)
	assert.Contains(t, bad.Error, "columns=0")
	assert.Equal(t, core.StatusRecorded, rec.results[1].Status)
	assert.Equal(t, 1, fake.calls)
}

func TestUnknownStrategyFailsTrial(t *testing.T) {
	rec := &collector{}
	s := sweep()
	s.Hashes = []string{"sha1", "keccak"}
	r := NewRunner(rec, WithAdapterFactory(factory(&fakeAdapter{})))

	require.NoError(t, r.RunSweep(context.Background(), s))
	require.Len(t, rec.results, 2)
	assert.Equal(t, core.KindUnknownStrategy, rec.results[0].ErrKind)
	assert.Equal(t, core.StatusRecorded, rec.results[1].Status)
}

func TestTrialTimeout(t *testing.T) {
	rec := &collector{}
	fake := &fakeAdapter{prove: func(ctx context.Context, req prover.Request) (core.Proof, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	r := NewRunner(rec, WithAdapterFactory(factory(fake)))

	res, err := r.RunTrial(context.Background(), sweep().Configurations()[0], 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, res.Status)
	assert.Equal(t, core.KindTimeout, res.ErrKind)
	assert.GreaterOrEqual(t, res.Elapsed, 5*time.Millisecond)
	assert.Zero(t, pool.LiveWorkers())
}

func TestProverFailureTearsDownPool(t *testing.T) {
	rec := &collector{}
	var live int
	fake := &fakeAdapter{prove: func(ctx context.Context, req prover.Request) (core.Proof, error) {
		live = pool.LiveWorkers()
		return nil, core.ProverError("p3", errors.New("boom"))
	}}
	s := sweep()
	s.Threads = []int{2}
	r := NewRunner(rec, WithAdapterFactory(factory(fake)))

	require.NoError(t, r.RunSweep(context.Background(), s))
	require.Len(t, rec.results, 1)
	assert.Equal(t, core.KindProverError, rec.results[0].ErrKind)
	assert.Positive(t, live)
	assert.Zero(t, pool.LiveWorkers())
}

func TestWarmupIsDiscarded(t *testing.T) {
	rec := &collector{}
	fake := &fakeAdapter{}
	s := sweep()
	s.Warmup = 2
	s.Repeats = 3
	r := NewRunner(rec, WithAdapterFactory(factory(fake)))

	require.NoError(t, r.RunSweep(context.Background(), s))
	assert.Equal(t, 5, fake.calls)
	require.Len(t, rec.results, 3)
	for i, res := range rec.results {
		assert.Equal(t, i, res.Repeat)
	}
}

func TestSinksReceiveResults(t *testing.T) {
	var saved []core.TrialResult
	r := NewRunner(nil,
		WithAdapterFactory(factory(&fakeAdapter{})),
		WithSink(SinkFunc(func(res core.TrialResult) error {
			saved = append(saved, res)
			return nil
		})),
		WithSink(SinkFunc(func(core.TrialResult) error { return errors.New("disk full") })))

	require.NoError(t, r.RunSweep(context.Background(), sweep()))
	assert.Len(t, saved, 1)
}

func TestCancelledSweep(t *testing.T) {
	rec := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeAdapter{prove: func(context.Context, prover.Request) (core.Proof, error) {
		cancel()
		return core.Proof{1}, nil
	}}
	s := sweep()
	s.Repeats = 4
	r := NewRunner(rec, WithAdapterFactory(factory(fake)))

	err := r.RunSweep(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.results, 1)
}

func TestInterruptedTrialIsNotATimeout(t *testing.T) {
	t.Run("Sweep", func(t *testing.T) {
		rec := &collector{}
		ctx, cancel := context.WithCancel(context.Background())
		fake := &fakeAdapter{prove: func(ctx context.Context, req prover.Request) (core.Proof, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		s := sweep()
		s.Repeats = 3
		s.Timeout = time.Hour
		r := NewRunner(rec, WithAdapterFactory(factory(fake)))

		err := r.RunSweep(ctx, s)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, rec.results)
		assert.Equal(t, 1, fake.calls)
		assert.Zero(t, pool.LiveWorkers())
	})

	t.Run("SingleTrial", func(t *testing.T) {
		rec := &collector{}
		ctx, cancel := context.WithCancel(context.Background())
		fake := &fakeAdapter{prove: func(ctx context.Context, req prover.Request) (core.Proof, error) {
			cancel()
			return nil, fmt.Errorf("commit trace: %w", ctx.Err())
		}}
		r := NewRunner(rec, WithAdapterFactory(factory(fake)))

		res, err := r.RunTrial(ctx, sweep().Configurations()[0], 1, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotEqual(t, core.KindTimeout, res.ErrKind)
		assert.Empty(t, rec.results)
	})

	t.Run("DeadlineStillTimesOut", func(t *testing.T) {
		rec := &collector{}
		fake := &fakeAdapter{prove: func(ctx context.Context, req prover.Request) (core.Proof, error) {
			<-ctx.Done()
			return nil, fmt.Errorf("fold layer: %w", ctx.Err())
		}}
		r := NewRunner(rec, WithAdapterFactory(factory(fake)))

		res, err := r.RunTrial(context.Background(), sweep().Configurations()[0], 1, 5*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, core.KindTimeout, res.ErrKind)
		assert.Len(t, rec.results, 1)
	})
}

func TestLogFilesPerConfiguration(t *testing.T) {
	dir := t.TempDir()
	s := sweep()
	s.Hashes = []string{"keccak", "blake3-256"}
	r := NewRunner(&collector{}, WithAdapterFactory(factory(&fakeAdapter{})), WithLogDir(dir))

	require.NoError(t, r.RunSweep(context.Background(), s))

	for _, name := range []string{
		"p3_keccak_goldilocks-monty_1_thread.log",
		"p3_blake3-256_goldilocks-monty_1_thread.log",
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "trial recorded")
	}
}

func TestLogNameStaysInDirectory(t *testing.T) {
	tests := []struct {
		name string
		cfg  Configuration
		want string
	}{
		{"Canonical", Configuration{Backend: core.BackendA, Hash: "Keccak256", Field: "base", Threads: 2}, "p3_keccak_generic_2_thread.log"},
		{"ParentHash", Configuration{Backend: core.BackendA, Hash: "../../x", Field: "generic", Threads: 1}, "p3_______x_generic_1_thread.log"},
		{"AbsoluteField", Configuration{Backend: core.BackendB, Hash: "rpo", Field: "/etc/passwd", Threads: 1}, "winterfell_rpo__etc_passwd_1_thread.log"},
		{"Empty", Configuration{Backend: core.BackendA, Threads: 1}, "p3_unknown_unknown_1_thread.log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := tt.cfg.LogName()
			assert.Equal(t, tt.want, name)
			assert.Equal(t, name, filepath.Base(name))
		})
	}

	t.Run("SweepWritesNothingOutside", func(t *testing.T) {
		root := t.TempDir()
		dir := filepath.Join(root, "logs")
		s := sweep()
		s.Hashes = []string{"../escaped"}
		r := NewRunner(&collector{}, WithAdapterFactory(factory(&fakeAdapter{})), WithLogDir(dir))
		require.NoError(t, r.RunSweep(context.Background(), s))

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "logs", entries[0].Name())

		_, err = os.Stat(filepath.Join(dir, "p3____escaped_goldilocks-monty_1_thread.log"))
		assert.NoError(t, err)
	})
}

func TestRealBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("proves a real trace")
	}
	rec := &collector{}
	s := sweep()
	s.Backends = []core.BackendKind{core.BackendA, core.BackendB}
	r := NewRunner(rec, WithVerify(true))

	require.NoError(t, r.RunSweep(context.Background(), s))
	require.Len(t, rec.results, 2)
	for _, res := range rec.results {
		assert.Equal(t, core.StatusRecorded, res.Status, res.Error)
		assert.Positive(t, res.ProofSize)
		assert.Positive(t, res.VerifyElapsed)
	}
}

func TestVerification(t *testing.T) {
	t.Run("TimedApartFromProving", func(t *testing.T) {
		rec := &collector{}
		fake := &fakeAdapter{verify: func(context.Context, core.Proof) error {
			time.Sleep(20 * time.Millisecond)
			return nil
		}}
		r := NewRunner(rec, WithAdapterFactory(factory(fake)), WithVerify(true))

		res, err := r.RunTrial(context.Background(), sweep().Configurations()[0], 1, 0)
		require.NoError(t, err)
		assert.Equal(t, core.StatusRecorded, res.Status)
		assert.GreaterOrEqual(t, res.VerifyElapsed, 20*time.Millisecond)
		assert.Less(t, res.Elapsed, 20*time.Millisecond)
		assert.Equal(t, 1, fake.verified)
	})

	t.Run("RejectedProofFailsTrial", func(t *testing.T) {
		rec := &collector{}
		fake := &fakeAdapter{verify: func(context.Context, core.Proof) error {
			return core.ProverError("p3", errors.New("invalid proof: query 0"))
		}}
		s := sweep()
		s.Repeats = 2
		r := NewRunner(rec, WithAdapterFactory(factory(fake)), WithVerify(true))

		require.NoError(t, r.RunSweep(context.Background(), s))
		require.Len(t, rec.results, 2)
		for _, res := range rec.results {
			assert.Equal(t, core.StatusFailed, res.Status)
			assert.Equal(t, core.KindProverError, res.ErrKind)
			assert.Equal(t, 3, res.ProofSize)
			assert.Contains(t, res.Error, "invalid proof")
		}
	})

	t.Run("OffByDefault", func(t *testing.T) {
		fake := &fakeAdapter{}
		r := NewRunner(&collector{}, WithAdapterFactory(factory(fake)))
		res, err := r.RunTrial(context.Background(), sweep().Configurations()[0], 1, 0)
		require.NoError(t, err)
		assert.Zero(t, res.VerifyElapsed)
		assert.Zero(t, fake.verified)
	})
}
