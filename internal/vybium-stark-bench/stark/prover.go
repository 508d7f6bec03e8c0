// Package stark is the proof-generation engine shared by the benchmark
// backends: low-degree extension, Merkle commitments, a constraint
// composition and the FRI commit phase, all over the Goldilocks field.
package stark

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/pool"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/workload"
)

// maxLogDomain is the two-adicity of the Goldilocks field
const maxLogDomain = 32

// Prover generates proofs with a fixed set of parameters and strategies
type Prover struct {
	name   string
	opts   Options
	hasher strategy.Hasher
	field  strategy.Field
	pool   *pool.Pool
	logger *zap.Logger
}

// NewProver creates a prover. A nil pool runs everything on the calling
// goroutine; a nil logger discards output.
func NewProver(name string, opts Options, h strategy.Hasher, f strategy.Field, p *pool.Pool, logger *zap.Logger) (*Prover, error) {
	if h == nil || f == nil {
		return nil, fmt.Errorf("prover needs a hasher and a field")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prover{name: name, opts: opts, hasher: h, field: f, pool: p, logger: logger}, nil
}

// Prove generates a proof that m satisfies air
func (pr *Prover) Prove(ctx context.Context, m Matrix, air workload.ConstraintSpec) (*Proof, error) {
	n, w := m.Height(), m.Width()
	if n < 2 || !isPowerOfTwo(n) {
		return nil, fmt.Errorf("trace length must be a power of two >= 2, got %d", n)
	}
	if w != air.Width {
		return nil, fmt.Errorf("trace width %d does not match constraint width %d", w, air.Width)
	}
	if err := pr.opts.Validate(air.Degree()); err != nil {
		return nil, err
	}
	blowup := pr.opts.Blowup()
	if log2(n)+pr.opts.LogBlowup > maxLogDomain {
		return nil, fmt.Errorf("evaluation domain 2^%d exceeds the field's two-adicity", log2(n)+pr.opts.LogBlowup)
	}
	size := n * blowup
	f := pr.field

	traceDomain := NewDomain(n, 1)
	ldeDomain := NewDomain(size, cosetOffset)

	// low-degree extension of every column
	columns := make([][]uint64, w)
	err := parallel(ctx, pr.pool, w, func(lo, hi int) error {
		buf := make([]uint64, n)
		for j := lo; j < hi; j++ {
			m.Column(j, buf)
			columns[j] = ldeDomain.Evaluate(traceDomain.Interpolate(buf))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	traceTree, err := CommitRows(ctx, pr.pool, pr.hasher, size, w, func(i int, buf []uint64) {
		for j := range buf {
			buf[j] = columns[j][i]
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit trace: %w", err)
	}
	pr.logger.Debug("trace committed", zap.Int("lde_size", size), zap.Int("width", w))

	ch := NewChannel(pr.hasher, statement(pr.name, n, w, pr.opts))
	ch.Send(traceTree.Root())
	alpha0 := ch.ReceiveRandomElement()
	alpha1 := ch.ReceiveRandomElement()

	composition, err := pr.compose(ctx, ldeDomain, traceDomain, columns, air, alpha0, alpha1)
	if err != nil {
		return nil, err
	}

	// split the composition into segments of degree < n
	coeffs := ldeDomain.Interpolate(composition)
	numSegments := air.Degree() - 1
	for k := numSegments * n; k < size; k++ {
		if !coeffs[k].IsZero() {
			return nil, fmt.Errorf("composition polynomial exceeds degree %d: trace does not satisfy the constraints", numSegments*n)
		}
	}
	segments := make([][]uint64, numSegments)
	err = parallel(ctx, pr.pool, numSegments, func(lo, hi int) error {
		for k := lo; k < hi; k++ {
			segments[k] = ldeDomain.Evaluate(coeffs[k*n : (k+1)*n])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	segmentTree, err := CommitRows(ctx, pr.pool, pr.hasher, size, numSegments, func(i int, buf []uint64) {
		for k := range buf {
			buf[k] = segments[k][i]
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit composition segments: %w", err)
	}
	ch.Send(segmentTree.Root())
	gamma := ch.ReceiveRandomElement()

	combined, err := pr.combine(ctx, segments, columns, gamma)
	if err != nil {
		return nil, err
	}

	fri := &friProver{opts: pr.opts, field: f, hasher: pr.hasher, pool: pr.pool}
	layers, remainder, err := fri.commit(ctx, ch, combined, ldeDomain.Offset, ldeDomain.Generator)
	if err != nil {
		return nil, err
	}
	pr.logger.Debug("fri committed", zap.Int("layers", len(layers)), zap.Int("remainder", len(remainder)))

	nonce, err := ch.Grind(ctx, pr.opts.GrindingBits)
	if err != nil {
		return nil, err
	}

	proof := &Proof{
		Backend:     pr.name,
		Hash:        pr.hasher.Name(),
		Field:       f.Name(),
		TraceLength: n,
		TraceWidth:  w,
		LogBlowup:   pr.opts.LogBlowup,
		TraceRoot:   traceTree.Root(),
		SegmentRoot: segmentTree.Root(),
		Remainder:   remainder,
		PowNonce:    nonce,
	}
	for _, layer := range layers {
		proof.LayerRoots = append(proof.LayerRoots, layer.tree.Root())
	}

	for _, idx := range ch.ReceiveQueryIndices(pr.opts.NumQueries, size) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := pr.openQuery(idx, blowup, columns, segments, traceTree, segmentTree, fri, layers)
		if err != nil {
			return nil, err
		}
		proof.Queries = append(proof.Queries, q)
	}

	return proof, nil
}

// compose evaluates
//
//	alpha0 * c0(x) / Z(x) + alpha1 * c1(x) * (x - w^(n-1)) / Z(x)
//
// on every point of the extended domain, where Z vanishes on the trace
// domain. The successor of point i is point i+blowup.
func (pr *Prover) compose(ctx context.Context, lde, trace *Domain, columns [][]uint64, air workload.ConstraintSpec, alpha0, alpha1 uint64) ([]uint64, error) {
	f := pr.field
	size := lde.Size
	n := trace.Size
	blowup := size / n
	w := len(columns)

	points, err := lde.Points(ctx, pr.pool)
	if err != nil {
		return nil, err
	}

	// x^n - 1 takes only blowup distinct values on the coset
	zvals := make([]uint64, blowup)
	for k := range zvals {
		zvals[k] = f.Sub(f.Exp(points[k], uint64(n)), 1)
	}
	zinv := strategy.BatchInverse(f, zvals)
	last := trace.Point(n - 1)

	out := make([]uint64, size)
	err = parallel(ctx, pr.pool, size, func(lo, hi int) error {
		cur := make([]uint64, w)
		next := make([]uint64, w)
		evals := make([]uint64, air.NumConstraints())
		for i := lo; i < hi; i++ {
			succ := (i + blowup) % size
			for j := 0; j < w; j++ {
				cur[j] = columns[j][i]
				next[j] = columns[j][succ]
			}
			air.Evaluate(f, cur, next, evals)

			z := zinv[i%blowup]
			t0 := f.Mul(alpha0, f.Mul(evals[0], z))
			t1 := f.Mul(alpha1, f.Mul(f.Mul(evals[1], f.Sub(points[i], last)), z))
			out[i] = f.Add(t0, t1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// combine folds composition segments and trace columns into one codeword
// with powers of gamma as weights
func (pr *Prover) combine(ctx context.Context, segments, columns [][]uint64, gamma uint64) ([]uint64, error) {
	f := pr.field
	parts := append(append([][]uint64{}, segments...), columns...)
	weights := make([]uint64, len(parts))
	acc := gamma
	for k := range weights {
		weights[k] = acc
		acc = f.Mul(acc, gamma)
	}

	size := len(parts[0])
	out := make([]uint64, size)
	err := parallel(ctx, pr.pool, size, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			var sum uint64
			for k, part := range parts {
				sum = f.Add(sum, f.Mul(weights[k], part[i]))
			}
			out[i] = sum
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (pr *Prover) openQuery(idx, blowup int, columns, segments [][]uint64, traceTree, segmentTree *MerkleTree, fri *friProver, layers []friLayer) (QueryOpening, error) {
	size := traceTree.Leaves()
	succ := (idx + blowup) % size

	q := QueryOpening{
		Index:      idx,
		TraceRow:   gather(columns, idx),
		NextRow:    gather(columns, succ),
		SegmentRow: gather(segments, idx),
	}
	var err error
	if q.TracePath, err = traceTree.Open(idx); err != nil {
		return q, err
	}
	if q.NextPath, err = traceTree.Open(succ); err != nil {
		return q, err
	}
	if q.SegmentPath, err = segmentTree.Open(idx); err != nil {
		return q, err
	}
	if q.Layers, err = fri.open(layers, idx); err != nil {
		return q, err
	}
	return q, nil
}

// statement is the public input that seeds the transcript
func statement(backend string, n, w int, opts Options) []byte {
	return []byte(fmt.Sprintf("%s/%d/%d/%d/%d/%d", backend, n, w, opts.LogBlowup, opts.NumQueries, opts.FoldingFactor))
}

func gather(columns [][]uint64, i int) []uint64 {
	row := make([]uint64, len(columns))
	for j, col := range columns {
		row[j] = col[i]
	}
	return row
}
