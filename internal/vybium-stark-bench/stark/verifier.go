package stark

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/workload"
)

// ErrInvalidProof is wrapped by every rejection from Verify
var ErrInvalidProof = errors.New("invalid proof")

// Verifier checks proofs produced by a Prover with the same name, options
// and strategies
type Verifier struct {
	name   string
	opts   Options
	hasher strategy.Hasher
	field  strategy.Field
}

// NewVerifier creates a verifier
func NewVerifier(name string, opts Options, h strategy.Hasher, f strategy.Field) (*Verifier, error) {
	if h == nil || f == nil {
		return nil, fmt.Errorf("verifier needs a hasher and a field")
	}
	return &Verifier{name: name, opts: opts, hasher: h, field: f}, nil
}

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidProof, fmt.Sprintf(format, args...))
}

// Verify replays the transcript of proof and checks every query: Merkle
// openings, the composition at the queried row, the FRI folds and the
// degree of the remainder
func (v *Verifier) Verify(proof *Proof, air workload.ConstraintSpec) error {
	f := v.field
	n, w := proof.TraceLength, proof.TraceWidth
	switch {
	case proof.Backend != v.name:
		return reject("proof is for backend %q, expected %q", proof.Backend, v.name)
	case proof.Hash != v.hasher.Name():
		return reject("proof uses hash %q, expected %q", proof.Hash, v.hasher.Name())
	case n < 2 || !isPowerOfTwo(n):
		return reject("trace length %d is not a power of two >= 2", n)
	case w != air.Width:
		return reject("trace width %d does not match constraint width %d", w, air.Width)
	case proof.LogBlowup != v.opts.LogBlowup:
		return reject("log blowup %d, expected %d", proof.LogBlowup, v.opts.LogBlowup)
	}
	if err := v.opts.Validate(air.Degree()); err != nil {
		return err
	}
	if log2(n)+v.opts.LogBlowup > maxLogDomain {
		return reject("evaluation domain 2^%d exceeds the field's two-adicity", log2(n)+v.opts.LogBlowup)
	}

	blowup := v.opts.Blowup()
	size := n * blowup
	k := v.opts.FoldingFactor
	numSegments := air.Degree() - 1
	ldeDomain := NewDomain(size, cosetOffset)
	last := NewDomain(n, 1).Point(n - 1)

	// layer sizes follow from the domain alone
	maxRemainder := blowup * (v.opts.RemainderMaxDegree + 1)
	var layerSizes []int
	for m := size; m > maxRemainder && m >= k; m /= k {
		layerSizes = append(layerSizes, m)
	}
	if len(proof.LayerRoots) != len(layerSizes) {
		return reject("%d FRI layers, expected %d", len(proof.LayerRoots), len(layerSizes))
	}
	remainderSize := size
	if len(layerSizes) > 0 {
		remainderSize = layerSizes[len(layerSizes)-1] / k
	}
	if len(proof.Remainder) != remainderSize {
		return reject("remainder has %d values, expected %d", len(proof.Remainder), remainderSize)
	}

	ch := NewChannel(v.hasher, statement(v.name, n, w, v.opts))
	ch.Send(proof.TraceRoot)
	alpha0 := ch.ReceiveRandomElement()
	alpha1 := ch.ReceiveRandomElement()
	ch.Send(proof.SegmentRoot)
	gamma := ch.ReceiveRandomElement()

	betas := make([]uint64, len(proof.LayerRoots))
	for l, root := range proof.LayerRoots {
		ch.Send(root)
		betas[l] = ch.ReceiveRandomElement()
	}
	ch.SendElements(proof.Remainder)

	if !ch.AcceptNonce(proof.PowNonce, v.opts.GrindingBits) {
		return reject("proof-of-work nonce %d does not reach %d bits", proof.PowNonce, v.opts.GrindingBits)
	}

	indices := ch.ReceiveQueryIndices(v.opts.NumQueries, size)
	if len(proof.Queries) != len(indices) {
		return reject("%d queries, expected %d", len(proof.Queries), len(indices))
	}

	weights := make([]uint64, numSegments+w)
	acc := gamma
	for i := range weights {
		weights[i] = acc
		acc = f.Mul(acc, gamma)
	}

	for qi, q := range proof.Queries {
		if q.Index != indices[qi] {
			return reject("query %d opens index %d, expected %d", qi, q.Index, indices[qi])
		}
		if len(q.TraceRow) != w || len(q.NextRow) != w || len(q.SegmentRow) != numSegments {
			return reject("query %d has malformed rows", qi)
		}
		succ := (q.Index + blowup) % size
		if !VerifyPath(v.hasher, proof.TraceRoot, v.hasher.HashElements(q.TraceRow), q.Index, q.TracePath) {
			return reject("query %d: trace opening does not match the root", qi)
		}
		if !VerifyPath(v.hasher, proof.TraceRoot, v.hasher.HashElements(q.NextRow), succ, q.NextPath) {
			return reject("query %d: next-row opening does not match the root", qi)
		}
		if !VerifyPath(v.hasher, proof.SegmentRoot, v.hasher.HashElements(q.SegmentRow), q.Index, q.SegmentPath) {
			return reject("query %d: segment opening does not match the root", qi)
		}

		x := ldeDomain.Point(q.Index)
		if v.composition(air, q.TraceRow, q.NextRow, x, n, last, alpha0, alpha1) != v.joinSegments(q.SegmentRow, x, n) {
			return reject("query %d: composition does not match its segments", qi)
		}

		var combined uint64
		for i, s := range q.SegmentRow {
			combined = f.Add(combined, f.Mul(weights[i], s))
		}
		for j, c := range q.TraceRow {
			combined = f.Add(combined, f.Mul(weights[numSegments+j], c))
		}

		value, err := v.checkLayers(proof, q, layerSizes, betas, ldeDomain, combined)
		if err != nil {
			return reject("query %d: %v", qi, err)
		}
		pos := q.Index % remainderSize
		if proof.Remainder[pos] != value {
			return reject("query %d: remainder value at %d does not match the last fold", qi, pos)
		}
	}

	return v.checkRemainder(proof.Remainder, size)
}

// composition recomputes the composition value at x from two trace rows
func (v *Verifier) composition(air workload.ConstraintSpec, cur, next []uint64, x uint64, n int, last, alpha0, alpha1 uint64) uint64 {
	f := v.field
	evals := make([]uint64, air.NumConstraints())
	air.Evaluate(f, cur, next, evals)
	zinv := f.Inverse(f.Sub(f.Exp(x, uint64(n)), 1))
	t0 := f.Mul(alpha0, f.Mul(evals[0], zinv))
	t1 := f.Mul(alpha1, f.Mul(f.Mul(evals[1], f.Sub(x, last)), zinv))
	return f.Add(t0, t1)
}

// joinSegments evaluates sum_k x^(k*n) * segment_k(x)
func (v *Verifier) joinSegments(segments []uint64, x uint64, n int) uint64 {
	f := v.field
	xn := f.Exp(x, uint64(n))
	shift := uint64(1)
	var sum uint64
	for _, s := range segments {
		sum = f.Add(sum, f.Mul(shift, s))
		shift = f.Mul(shift, xn)
	}
	return sum
}

// checkLayers walks the FRI openings of one query starting from the
// combined codeword value and returns the value it folds to
func (v *Verifier) checkLayers(proof *Proof, q QueryOpening, layerSizes []int, betas []uint64, lde *Domain, value uint64) (uint64, error) {
	f := v.field
	k := v.opts.FoldingFactor
	if len(q.Layers) != len(layerSizes) {
		return 0, fmt.Errorf("%d layer openings, expected %d", len(q.Layers), len(layerSizes))
	}

	index := q.Index
	offset, generator := lde.Offset, lde.Generator
	inv2 := f.Inverse(2)
	for l, layer := range q.Layers {
		stride := layerSizes[l] / k
		pos := index % stride
		switch {
		case layer.Position != pos:
			return 0, fmt.Errorf("layer %d opens position %d, expected %d", l, layer.Position, pos)
		case len(layer.Values) != k:
			return 0, fmt.Errorf("layer %d opens %d values, expected %d", l, len(layer.Values), k)
		case layer.Values[index/stride] != value:
			return 0, fmt.Errorf("layer %d value does not match the previous fold", l)
		case !VerifyPath(v.hasher, proof.LayerRoots[l], v.hasher.HashElements(layer.Values), pos, layer.Path):
			return 0, fmt.Errorf("layer %d opening does not match its root", l)
		}

		// Values[t] sits at pos + t*stride; every fold2 pairs t with t+h
		vals := append([]uint64(nil), layer.Values...)
		beta := betas[l]
		for h := k / 2; h >= 1; h /= 2 {
			for t := 0; t < h; t++ {
				xt := f.Mul(offset, f.Exp(generator, uint64(pos+t*stride)))
				a, b := vals[t], vals[t+h]
				even := f.Mul(f.Add(a, b), inv2)
				odd := f.Mul(f.Mul(f.Sub(a, b), inv2), f.Inverse(xt))
				vals[t] = f.Add(even, f.Mul(beta, odd))
			}
			offset = f.Mul(offset, offset)
			generator = f.Mul(generator, generator)
			beta = f.Mul(beta, beta)
		}
		value = vals[0]
		index = pos
	}
	return value, nil
}

// checkRemainder interpolates the remainder on its coset and checks its degree
func (v *Verifier) checkRemainder(remainder []uint64, size int) error {
	if !isPowerOfTwo(len(remainder)) {
		return reject("remainder length %d is not a power of two", len(remainder))
	}
	offset := pow(cosetOffset, uint64(size/len(remainder)))
	coeffs := NewDomain(len(remainder), offset.Uint64()).Interpolate(remainder)
	for d := v.opts.RemainderMaxDegree + 1; d < len(coeffs); d++ {
		if !coeffs[d].IsZero() {
			return reject("remainder has degree >= %d, bound is %d", d, v.opts.RemainderMaxDegree)
		}
	}
	return nil
}
