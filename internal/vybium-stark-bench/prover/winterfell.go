package prover

import (
	"context"

	"go.uber.org/zap"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/stark"
)

// WinterfellOptions mirror the ProofOptions of the Winterfell benchmark:
// 28 queries, blowup 8, no grinding, folding factor 4, remainder degree 31
func WinterfellOptions() stark.Options {
	return stark.Options{
		LogBlowup:          3,
		NumQueries:         28,
		GrindingBits:       0,
		FoldingFactor:      4,
		RemainderMaxDegree: 31,
	}
}

// WinterfellAdapter is BackendB. It feeds the engine one slice per column.
type WinterfellAdapter struct {
	logger *zap.Logger
}

func (a *WinterfellAdapter) BackendName() string    { return core.BackendB.String() }
func (a *WinterfellAdapter) Kind() core.BackendKind { return core.BackendB }

// Prove transposes the trace into columns and proves it
func (a *WinterfellAdapter) Prove(ctx context.Context, req Request) (core.Proof, error) {
	if err := validate(req); err != nil {
		return nil, core.ProverError(a.BackendName(), err)
	}

	return run(ctx, a.BackendName(), a.logger, func() (*stark.Proof, error) {
		t := req.Trace
		columns := make([][]uint64, t.Columns)
		for j := range columns {
			columns[j] = t.Column(j)
		}
		matrix, err := stark.NewColumnMatrix(columns)
		if err != nil {
			return nil, err
		}

		engine, err := stark.NewProver(a.BackendName(), WinterfellOptions(), req.Hasher, req.Field, req.Pool, a.logger)
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
func (a *WinterfellAdapter) Verify(ctx context.Context, req Request, proof core.Proof) error {
	return verify(ctx, a.BackendName(), WinterfellOptions(), req, proof)
}
