package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

func TestCollector(t *testing.T) {
	c := New()
	cfg := core.BackendConfig{Backend: core.BackendA, Hash: core.HashKeccak, Field: core.FieldGeneric, Threads: 1}

	require.NoError(t, c.Save(core.TrialResult{Config: cfg, Status: core.StatusRecorded, Elapsed: 20 * time.Millisecond, ProofSize: 777}))
	c.Observe(core.TrialResult{Config: cfg, Status: core.StatusFailed, ErrKind: core.KindTimeout})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.trials.WithLabelValues("p3", "keccak", "recorded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trials.WithLabelValues("p3", "keccak", "failed")))
	assert.Equal(t, 777.0, testutil.ToFloat64(c.proofBytes.WithLabelValues("p3", "keccak")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.proveTime))

	path := filepath.Join(t.TempDir(), "bench.prom")
	require.NoError(t, c.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stark_bench_prove_seconds_count")
	assert.Contains(t, string(data), `stark_bench_trials_total{backend="p3",hash="keccak",status="failed"} 1`)
}

func TestWriteTextfileError(t *testing.T) {
	err := New().WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.ErrorIs(t, err, core.ErrIO)
}
