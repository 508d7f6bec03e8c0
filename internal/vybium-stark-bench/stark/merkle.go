package stark

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/pool"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
)

// MerkleTree commits to a power-of-two number of leaf digests
type MerkleTree struct {
	hasher strategy.Hasher

	// levels[0] holds the leaves, the last level holds the root
	levels [][]strategy.Digest
}

// CommitRows hashes n rows into leaves and builds the tree over them. row
// fills buf with the values of row i.
func CommitRows(ctx context.Context, p *pool.Pool, h strategy.Hasher, n, width int, row func(i int, buf []uint64)) (*MerkleTree, error) {
	leaves := make([]strategy.Digest, n)
	err := parallel(ctx, p, n, func(lo, hi int) error {
		buf := make([]uint64, width)
		for i := lo; i < hi; i++ {
			row(i, buf)
			leaves[i] = h.HashElements(buf)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewMerkleTree(ctx, p, h, leaves)
}

// NewMerkleTree builds the inner levels above leaves
func NewMerkleTree(ctx context.Context, p *pool.Pool, h strategy.Hasher, leaves []strategy.Digest) (*MerkleTree, error) {
	if !isPowerOfTwo(len(leaves)) {
		return nil, fmt.Errorf("merkle tree needs a power-of-two number of leaves, got %d", len(leaves))
	}

	levels := [][]strategy.Digest{leaves}
	current := leaves
	for len(current) > 1 {
		next := make([]strategy.Digest, len(current)/2)
		prev := current
		err := parallel(ctx, p, len(next), func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				next[i] = h.Merge(prev[2*i], prev[2*i+1])
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		levels = append(levels, next)
		current = next
	}

	return &MerkleTree{hasher: h, levels: levels}, nil
}

// Root returns the Merkle root
func (mt *MerkleTree) Root() strategy.Digest {
	return mt.levels[len(mt.levels)-1][0]
}

// Leaves returns the number of leaves
func (mt *MerkleTree) Leaves() int {
	return len(mt.levels[0])
}

// Open returns the sibling path of leaf index, bottom level first
func (mt *MerkleTree) Open(index int) ([][]byte, error) {
	if index < 0 || index >= mt.Leaves() {
		return nil, fmt.Errorf("index %d out of range [0, %d)", index, mt.Leaves())
	}
	path := make([][]byte, 0, len(mt.levels)-1)
	for level := 0; level < len(mt.levels)-1; level++ {
		path = append(path, mt.levels[level][index^1])
		index >>= 1
	}
	return path, nil
}

// VerifyPath recomputes the root from a leaf digest and its sibling path
func VerifyPath(h strategy.Hasher, root, leaf strategy.Digest, index int, path [][]byte) bool {
	node := leaf
	for _, sibling := range path {
		if index&1 == 0 {
			node = h.Merge(node, sibling)
		} else {
			node = h.Merge(sibling, node)
		}
		index >>= 1
	}
	return bytes.Equal(node, root)
}
