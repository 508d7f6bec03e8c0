package stark

import (
	"context"
	"fmt"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/pool"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
)

// friLayer is one committed FRI codeword. Leaf j of the tree holds the
// folding coset {j, j+M/k, ..., j+(k-1)M/k}.
type friLayer struct {
	values []uint64
	tree   *MerkleTree
}

// friProver runs the commit phase of FRI over the field strategy
type friProver struct {
	opts   Options
	field  strategy.Field
	hasher strategy.Hasher
	pool   *pool.Pool
}

// commit folds codeword until it is short enough to be sent in clear. The
// codeword is evaluated on offset * <generator>.
func (fp *friProver) commit(ctx context.Context, ch *Channel, codeword []uint64, offset, generator uint64) ([]friLayer, []uint64, error) {
	k := fp.opts.FoldingFactor
	maxRemainder := fp.opts.Blowup() * (fp.opts.RemainderMaxDegree + 1)

	var layers []friLayer
	current := codeword
	for len(current) > maxRemainder && len(current) >= k {
		tree, err := fp.commitCosets(ctx, current)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to commit FRI layer %d: %w", len(layers), err)
		}
		ch.Send(tree.Root())
		layers = append(layers, friLayer{values: current, tree: tree})

		beta := ch.ReceiveRandomElement()
		for step := 0; step < log2(k); step++ {
			current, err = fp.fold2(ctx, current, offset, generator, beta)
			if err != nil {
				return nil, nil, err
			}
			offset = fp.field.Mul(offset, offset)
			generator = fp.field.Mul(generator, generator)
			beta = fp.field.Mul(beta, beta)
		}
	}

	ch.SendElements(current)
	return layers, current, nil
}

func (fp *friProver) commitCosets(ctx context.Context, values []uint64) (*MerkleTree, error) {
	k := fp.opts.FoldingFactor
	stride := len(values) / k
	return CommitRows(ctx, fp.pool, fp.hasher, stride, k, func(j int, buf []uint64) {
		for t := 0; t < k; t++ {
			buf[t] = values[j+t*stride]
		}
	})
}

// fold2 halves a codeword: with x_{j+M/2} = -x_j,
//
//	f'(x^2) = (f(x) + f(-x))/2 + beta * (f(x) - f(-x))/(2x)
func (fp *friProver) fold2(ctx context.Context, values []uint64, offset, generator, beta uint64) ([]uint64, error) {
	f := fp.field
	half := len(values) / 2
	out := make([]uint64, half)
	inv2 := f.Inverse(2)

	err := parallel(ctx, fp.pool, half, func(lo, hi int) error {
		xs := make([]uint64, hi-lo)
		x := f.Mul(offset, f.Exp(generator, uint64(lo)))
		for i := range xs {
			xs[i] = x
			x = f.Mul(x, generator)
		}
		invX := strategy.BatchInverse(f, xs)

		for j := lo; j < hi; j++ {
			a, b := values[j], values[j+half]
			even := f.Mul(f.Add(a, b), inv2)
			odd := f.Mul(f.Mul(f.Sub(a, b), inv2), invX[j-lo])
			out[j] = f.Add(even, f.Mul(beta, odd))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// open reveals the coset containing index in every layer
func (fp *friProver) open(layers []friLayer, index int) ([]LayerOpening, error) {
	k := fp.opts.FoldingFactor
	openings := make([]LayerOpening, len(layers))
	for l, layer := range layers {
		stride := len(layer.values) / k
		pos := index % stride

		values := make([]uint64, k)
		for t := range values {
			values[t] = layer.values[pos+t*stride]
		}
		path, err := layer.tree.Open(pos)
		if err != nil {
			return nil, fmt.Errorf("failed to open FRI layer %d: %w", l, err)
		}
		openings[l] = LayerOpening{Position: pos, Values: values, Path: path}
		index = pos
	}
	return openings, nil
}
