package prover

import (
	"context"

	"go.uber.org/zap"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/stark"
)

// P3Options mirror the FRI configuration of the Plonky3 benchmark:
// log_blowup 3, final polynomial of length 2, 100 queries, 1 PoW bit
func P3Options() stark.Options {
	return stark.Options{
		LogBlowup:          3,
		NumQueries:         100,
		GrindingBits:       1,
		FoldingFactor:      2,
		RemainderMaxDegree: 1,
	}
}

// P3Adapter is BackendA. It feeds the engine a row-major matrix.
type P3Adapter struct {
	logger *zap.Logger
}

func (a *P3Adapter) BackendName() string    { return core.BackendA.String() }
func (a *P3Adapter) Kind() core.BackendKind { return core.BackendA }

// Prove flattens the trace row by row and proves it
func (a *P3Adapter) Prove(ctx context.Context, req Request) (core.Proof, error) {
	if err := validate(req); err != nil {
		return nil, core.ProverError(a.BackendName(), err)
	}

	return run(ctx, a.BackendName(), a.logger, func() (*stark.Proof, error) {
		t := req.Trace
		values := make([]uint64, 0, t.Steps*t.Columns)
		for _, row := range t.Rows {
			values = append(values, row...)
		}
		matrix, err := stark.NewRowMajorMatrix(values, t.Columns)
		if err != nil {
			return nil, err
		}

		engine, err := stark.NewProver(a.BackendName(), P3Options(), req.Hasher, req.Field, req.Pool, a.logger)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("proving",
			zap.Int("steps", t.Steps),
			zap.Int("columns", t.Columns),
			zap.String("hash", req.Hasher.Name()),
			zap.String("field", req.Field.Name()))
		return engine.Prove(ctx, matrix, req.Constraints)
	})
}

// Verify checks a proof produced by Prove
func (a *P3Adapter) Verify(ctx context.Context, req Request, proof core.Proof) error {
	return verify(ctx, a.BackendName(), P3Options(), req, proof)
}
