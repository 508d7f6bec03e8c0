package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	vybiumstarkbench "github.com/vybium/vybium-stark-bench/pkg/vybium-stark-bench"
)

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("HASH_TYPE", "rpo")
	t.Setenv("REPEATS", "4")
	t.Setenv("STEPS", "512")

	require.NoError(t, runCmd.Flags().Set("steps", "128,256"))
	require.NoError(t, runCmd.Flags().Set("threads", "1"))
	require.NoError(t, runCmd.Flags().Set("verify", "false"))

	cfg, err := loadConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"rpo"}, cfg.Hashes)
	assert.Equal(t, 4, cfg.Repeats)
	assert.Equal(t, []int{128, 256}, cfg.Steps)
	assert.Equal(t, []int{1}, cfg.Threads)
	assert.Equal(t, []int{3}, cfg.Columns)
	assert.False(t, cfg.Verify)
}

func TestWriteReportIOError(t *testing.T) {
	rep, err := vybiumstarkbench.Run(t.Context(), vybiumstarkbench.DefaultConfig().
		WithBackends("p3").
		WithDimensions([]int{1024}, []int{0}))
	require.NoError(t, err)

	err = writeReport(rep, "markdown", filepath.Join(t.TempDir(), "missing", "report.md"))
	assert.ErrorIs(t, err, core.ErrIO)

	path := filepath.Join(t.TempDir(), "report.csv")
	assert.NoError(t, writeReport(rep, "csv", path))
}

func TestStrategiesCommand(t *testing.T) {
	var buf bytes.Buffer
	strategiesCmd.SetOut(&buf)
	require.NoError(t, strategiesCmd.RunE(strategiesCmd, nil))

	out := buf.String()
	for _, name := range []string{"p3", "winterfell", "keccak", "blake3-192", "rpo", "goldilocks-monty"} {
		assert.Contains(t, out, name)
	}
}

func TestHistoryCommand(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "db")
	_, err := vybiumstarkbench.Run(t.Context(), vybiumstarkbench.DefaultConfig().
		WithBackends("p3").
		WithDimensions([]int{1024}, []int{0}),
		vybiumstarkbench.WithStore(storePath),
		vybiumstarkbench.WithRunID("stored-run"))
	require.NoError(t, err)

	historyOpts.store = storePath
	t.Cleanup(func() { historyOpts.store, historyOpts.runID = "", "" })

	var buf bytes.Buffer
	historyCmd.SetOut(&buf)
	require.NoError(t, historyCmd.RunE(historyCmd, nil))
	assert.Equal(t, "stored-run\n", buf.String())

	buf.Reset()
	historyOpts.runID = "stored-run"
	historyOpts.format = "csv"
	require.NoError(t, historyCmd.RunE(historyCmd, nil))
	assert.Contains(t, buf.String(), "InvalidDimensions")
}
