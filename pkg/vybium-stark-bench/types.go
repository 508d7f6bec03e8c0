package vybiumstarkbench

import (
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/report"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/utils"
)

type (
	// Config is the sweep configuration
	Config = utils.Config

	// TrialResult is one recorded or failed trial
	TrialResult = core.TrialResult

	// BackendConfig identifies what a trial measured
	BackendConfig = core.BackendConfig

	// Summary aggregates the recorded trials of one configuration
	Summary = report.Summary

	// Comparison pairs the two backends on the same configuration
	Comparison = report.Comparison

	// Environment describes the host a report was produced on
	Environment = report.Environment

	BenchError = core.BenchError
	ErrorKind  = core.ErrorKind
)

const (
	KindInvalidDimensions = core.KindInvalidDimensions
	KindUnknownStrategy   = core.KindUnknownStrategy
	KindProverError       = core.KindProverError
	KindTimeout           = core.KindTimeout
	KindIOError           = core.KindIOError
)

// Sentinels for errors.Is
var (
	ErrInvalidDimensions = core.ErrInvalidDimensions
	ErrUnknownStrategy   = core.ErrUnknownStrategy
	ErrProver            = core.ErrProver
	ErrTimeout           = core.ErrTimeout
	ErrIO                = core.ErrIO
)

// DefaultConfig returns the default sweep configuration
func DefaultConfig() *Config {
	return utils.DefaultConfig()
}

// SupportedHashes lists the canonical hash names
func SupportedHashes() []string {
	return strategy.Supported()
}

// SupportedFields lists the canonical field names
func SupportedFields() []string {
	return strategy.SupportedFields()
}
