// Package prover adapts the benchmark workload to the proving backends.
package prover

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/pool"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/stark"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/workload"
)

// Request is everything a backend needs for one proof
type Request struct {
	Trace       *core.Trace
	Constraints workload.ConstraintSpec
	Hasher      strategy.Hasher
	Field       strategy.Field

	// Pool bounds the backend's parallelism; nil runs on the caller
	Pool *pool.Pool
}

// Adapter is the contract between the runner and a proving backend
type Adapter interface {
	// Prove returns the serialized proof. Backend failures are returned as
	// ProverError; context errors are returned unchanged.
	Prove(ctx context.Context, req Request) (core.Proof, error)

	// Verify checks a proof returned by Prove for the same request. A
	// rejected or undecodable proof is returned as ProverError.
	Verify(ctx context.Context, req Request, proof core.Proof) error

	BackendName() string
	Kind() core.BackendKind
}

// New returns the adapter for a backend kind
func New(kind core.BackendKind, logger *zap.Logger) (Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch kind {
	case core.BackendA:
		return &P3Adapter{logger: logger.Named("p3")}, nil
	case core.BackendB:
		return &WinterfellAdapter{logger: logger.Named("winterfell")}, nil
	default:
		return nil, core.UnknownStrategy("backend", kind.String())
	}
}

// validate rejects malformed requests before any backend work is done
func validate(req Request) error {
	t := req.Trace
	switch {
	case t == nil || t.Steps == 0 || len(t.Rows) == 0:
		return errors.New("trace is empty")
	case len(t.Rows) != t.Steps:
		return fmt.Errorf("trace has %d rows, expected %d", len(t.Rows), t.Steps)
	case t.Steps&(t.Steps-1) != 0:
		return fmt.Errorf("trace length %d is not a power of two", t.Steps)
	case t.Columns != req.Constraints.Width:
		return fmt.Errorf("trace width %d does not match constraint width %d", t.Columns, req.Constraints.Width)
	case req.Hasher == nil || req.Field == nil:
		return errors.New("hash and field strategies are required")
	}
	for i, row := range t.Rows {
		if len(row) != t.Columns {
			return fmt.Errorf("row %d has length %d, expected %d", i, len(row), t.Columns)
		}
	}
	return nil
}

// run executes prove with panic recovery and error classification
func run(ctx context.Context, backend string, logger *zap.Logger, prove func() (*stark.Proof, error)) (proof core.Proof, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("backend panicked", zap.Any("panic", r))
			proof, err = nil, core.ProverError(backend, fmt.Errorf("panic: %v", r))
		}
	}()

	p, err := prove()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		return nil, core.ProverError(backend, err)
	}

	data, err := p.Encode()
	if err != nil {
		return nil, core.ProverError(backend, err)
	}
	return core.Proof(data), nil
}

// verify decodes proof and checks it with the backend's options
func verify(ctx context.Context, backend string, opts stark.Options, req Request, proof core.Proof) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.ProverError(backend, fmt.Errorf("verifier panic: %v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Hasher == nil || req.Field == nil {
		return core.ProverError(backend, errors.New("hash and field strategies are required"))
	}
	p, err := stark.DecodeProof(proof)
	if err != nil {
		return core.ProverError(backend, err)
	}
	v, err := stark.NewVerifier(backend, opts, req.Hasher, req.Field)
	if err != nil {
		return core.ProverError(backend, err)
	}
	if err := v.Verify(p, req.Constraints); err != nil {
		return core.ProverError(backend, err)
	}
	return nil
}
