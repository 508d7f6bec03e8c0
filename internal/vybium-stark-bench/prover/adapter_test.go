package prover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/pool"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/stark"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/workload"
)

func request(t *testing.T, steps, columns int, hash string) Request {
	t.Helper()
	trace, err := workload.Build(steps, columns, 1)
	require.NoError(t, err)
	h, err := strategy.Resolve(hash)
	require.NoError(t, err)
	f, err := strategy.ResolveField("goldilocks-monty")
	require.NoError(t, err)
	return Request{Trace: trace, Constraints: workload.NewConstraintSpec(columns), Hasher: h, Field: f}
}

func TestNew(t *testing.T) {
	a, err := New(core.BackendA, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "p3", a.BackendName())
	assert.Equal(t, core.BackendA, a.Kind())

	b, err := New(core.BackendB, nil)
	require.NoError(t, err)
	assert.Equal(t, "winterfell", b.BackendName())

	_, err = New(core.BackendUnknown, nil)
	assert.ErrorIs(t, err, core.ErrUnknownStrategy)
}

func TestProve(t *testing.T) {
	for _, kind := range []core.BackendKind{core.BackendA, core.BackendB} {
		t.Run(kind.String(), func(t *testing.T) {
			a, err := New(kind, zaptest.NewLogger(t))
			require.NoError(t, err)

			p, err := pool.Configure(1)
			require.NoError(t, err)
			defer p.Close()

			req := request(t, 64, 3, "keccak")
			req.Pool = p
			proof, err := a.Prove(context.Background(), req)
			require.NoError(t, err)
			assert.Greater(t, proof.Size(), 0)

			decoded, err := stark.DecodeProof(proof)
			require.NoError(t, err)
			assert.Equal(t, kind.String(), decoded.Backend)
			assert.Equal(t, 64, decoded.TraceLength)
		})
	}
}

func TestBackendParameters(t *testing.T) {
	ctx := context.Background()
	req := request(t, 1024, 3, "blake3-256")

	pa, err := New(core.BackendA, nil)
	require.NoError(t, err)
	proofA, err := pa.Prove(ctx, req)
	require.NoError(t, err)
	decodedA, err := stark.DecodeProof(proofA)
	require.NoError(t, err)
	assert.Len(t, decodedA.Queries, 100)
	assert.LessOrEqual(t, len(decodedA.Remainder), 16)

	pb, err := New(core.BackendB, nil)
	require.NoError(t, err)
	proofB, err := pb.Prove(ctx, req)
	require.NoError(t, err)
	decodedB, err := stark.DecodeProof(proofB)
	require.NoError(t, err)
	assert.Len(t, decodedB.Queries, 28)
	assert.Zero(t, decodedB.PowNonce)
	assert.LessOrEqual(t, len(decodedB.Remainder), 256)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []core.BackendKind{core.BackendA, core.BackendB} {
		a, err := New(kind, nil)
		require.NoError(t, err)
		req := request(t, 64, 3, "blake3-192")
		proof, err := a.Prove(ctx, req)
		require.NoError(t, err)

		t.Run(kind.String()+"/Accepts", func(t *testing.T) {
			assert.NoError(t, a.Verify(ctx, req, proof))
		})

		t.Run(kind.String()+"/TamperedTraceRow", func(t *testing.T) {
			decoded, err := stark.DecodeProof(proof)
			require.NoError(t, err)
			decoded.Queries[0].TraceRow[1]++
			tampered, err := decoded.Encode()
			require.NoError(t, err)

			err = a.Verify(ctx, req, tampered)
			assert.ErrorIs(t, err, core.ErrProver)
			assert.ErrorIs(t, err, stark.ErrInvalidProof)
		})

		t.Run(kind.String()+"/TamperedRemainder", func(t *testing.T) {
			decoded, err := stark.DecodeProof(proof)
			require.NoError(t, err)
			decoded.Remainder[0]++
			tampered, err := decoded.Encode()
			require.NoError(t, err)
			assert.ErrorIs(t, a.Verify(ctx, req, tampered), stark.ErrInvalidProof)
		})

		t.Run(kind.String()+"/Garbage", func(t *testing.T) {
			assert.ErrorIs(t, a.Verify(ctx, req, core.Proof{0xff, 0x00}), core.ErrProver)
		})

		t.Run(kind.String()+"/OtherStatement", func(t *testing.T) {
			other := request(t, 64, 4, "blake3-192")
			assert.ErrorIs(t, a.Verify(ctx, other, proof), core.ErrProver)
		})
	}

	t.Run("CrossBackend", func(t *testing.T) {
		pa, _ := New(core.BackendA, nil)
		pb, _ := New(core.BackendB, nil)
		req := request(t, 64, 3, "keccak")
		proof, err := pa.Prove(ctx, req)
		require.NoError(t, err)
		assert.ErrorIs(t, pb.Verify(ctx, req, proof), stark.ErrInvalidProof)
	})
}

func TestProveRejectsMalformedInput(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []core.BackendKind{core.BackendA, core.BackendB} {
		a, err := New(kind, nil)
		require.NoError(t, err)

		t.Run(kind.String()+"/NonPowerOfTwo", func(t *testing.T) {
			_, err := a.Prove(ctx, request(t, 100, 3, "keccak"))
			assert.ErrorIs(t, err, core.ErrProver)
		})

		t.Run(kind.String()+"/RaggedRow", func(t *testing.T) {
			req := request(t, 16, 3, "keccak")
			req.Trace.Rows[3] = req.Trace.Rows[3][:2]
			_, err := a.Prove(ctx, req)
			assert.ErrorIs(t, err, core.ErrProver)
		})

		t.Run(kind.String()+"/WidthMismatch", func(t *testing.T) {
			req := request(t, 16, 3, "keccak")
			req.Constraints = workload.NewConstraintSpec(5)
			_, err := a.Prove(ctx, req)
			var be *core.BenchError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, kind.String(), be.Backend)
		})

		t.Run(kind.String()+"/EmptyTrace", func(t *testing.T) {
			req := request(t, 16, 3, "keccak")
			req.Trace = &core.Trace{}
			_, err := a.Prove(ctx, req)
			assert.ErrorIs(t, err, core.ErrProver)
		})

		t.Run(kind.String()+"/ContextPassesThrough", func(t *testing.T) {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := a.Prove(cctx, request(t, 16, 3, "keccak"))
			assert.ErrorIs(t, err, context.Canceled)
			assert.NotErrorIs(t, err, core.ErrProver)
		})
	}
}

// panicField blows up on the first multiplication
type panicField struct{ strategy.Field }

func (panicField) Mul(a, b uint64) uint64 { panic("field exploded") }

func TestProveRecoversPanic(t *testing.T) {
	a, err := New(core.BackendB, zaptest.NewLogger(t))
	require.NoError(t, err)

	req := request(t, 16, 3, "keccak")
	req.Field = panicField{req.Field}
	_, err = a.Prove(context.Background(), req)
	require.ErrorIs(t, err, core.ErrProver)
	assert.Contains(t, err.Error(), "field exploded")
}
