package strategy

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

func TestResolve(t *testing.T) {
	t.Run("UnknownHash", func(t *testing.T) {
		h, err := Resolve("unknown-hash")
		require.Error(t, err)
		assert.Nil(t, h)
		assert.ErrorIs(t, err, core.ErrUnknownStrategy)

		var be *core.BenchError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "unknown-hash", be.Name)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := ResolveField("bn254")
		assert.ErrorIs(t, err, core.ErrUnknownStrategy)
	})

	t.Run("EverySupportedHashIsUsable", func(t *testing.T) {
		for _, name := range Supported() {
			h, err := Resolve(name)
			require.NoError(t, err, name)
			assert.Equal(t, name, h.Name())

			a := h.HashElements([]uint64{1, 2, 3})
			b := h.HashElements([]uint64{1, 2, 4})
			assert.Len(t, a, h.DigestSize(), name)
			assert.False(t, bytes.Equal(a, b), name)
			assert.Equal(t, a, h.HashElements([]uint64{1, 2, 3}), name)

			m := h.Merge(a, b)
			assert.Len(t, m, h.DigestSize(), name)
			assert.NotEqual(t, m, h.Merge(b, a), name)

			assert.Len(t, h.HashBytes([]byte("transcript")), h.DigestSize(), name)
		}
	})

	t.Run("EverySupportedFieldIsUsable", func(t *testing.T) {
		for _, name := range SupportedFields() {
			f, err := ResolveField(name)
			require.NoError(t, err, name)
			assert.Equal(t, name, f.Name())
		}
	})
}

// Leaf and node hashing dominate a commitment; a Merkle tree over a
// 1024-step trace at blowup 8 hashes 8192 leaves, so a hasher must stay far
// below a millisecond per call for a trial to finish.
func TestHashCostPerCall(t *testing.T) {
	const calls = 500
	row := []uint64{3, 1, 4}

	for _, name := range Supported() {
		t.Run(name, func(t *testing.T) {
			h, err := Resolve(name)
			require.NoError(t, err)

			start := time.Now()
			leaf := h.HashElements(row)
			for i := 1; i < calls; i++ {
				leaf = h.Merge(leaf, h.HashElements(row))
			}
			perCall := time.Since(start) / (2 * calls)
			assert.Less(t, perCall, 5*time.Millisecond, "%s: %s per call", name, perCall)
		})
	}
}

func TestPoseidonParametersShared(t *testing.T) {
	a, err := Resolve("poseidon2")
	require.NoError(t, err)
	b, err := Resolve("poseidon2")
	require.NoError(t, err)
	assert.Same(t, a.(poseidonHasher).perm, b.(poseidonHasher).perm)
	assert.Equal(t, a.HashElements([]uint64{7, 8}), b.HashElements([]uint64{7, 8}))
}

func TestDigestSizes(t *testing.T) {
	sizes := map[string]int{"blake3-256": 32, "blake3-192": 24, "keccak": 32, "poseidon2": 32, "rpo": 40}
	for name, size := range sizes {
		h, err := Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, size, h.DigestSize(), name)
	}
}

func TestFieldsAgree(t *testing.T) {
	monty, err := NewField(core.FieldGoldilocksMonty)
	require.NoError(t, err)
	generic, err := NewField(core.FieldGeneric)
	require.NoError(t, err)

	values := []uint64{0, 1, 2, 7, 1 << 32, core.Modulus - 1, core.Modulus - 2, 0xDEADBEEFCAFEBABE % core.Modulus}
	for _, a := range values {
		for _, b := range values {
			assert.Equal(t, generic.Add(a, b), monty.Add(a, b), "add %d %d", a, b)
			assert.Equal(t, generic.Sub(a, b), monty.Sub(a, b), "sub %d %d", a, b)
			assert.Equal(t, generic.Mul(a, b), monty.Mul(a, b), "mul %d %d", a, b)
		}
		assert.Equal(t, generic.Exp(a, 8), Exp8(monty, a))
		if a != 0 {
			assert.Equal(t, uint64(1), monty.Mul(a, monty.Inverse(a)))
			assert.Equal(t, uint64(1), generic.Mul(a, generic.Inverse(a)))
		}
	}

	t.Run("Wraparound", func(t *testing.T) {
		assert.Equal(t, uint64(0), monty.Add(core.Modulus-1, 1))
		assert.Equal(t, core.Modulus-1, generic.Sub(0, 1))
	})
}

func TestBatchInverse(t *testing.T) {
	for _, name := range SupportedFields() {
		f, err := ResolveField(name)
		require.NoError(t, err)

		xs := []uint64{3, 5, 1 << 40, core.Modulus - 1, 12345}
		inv := BatchInverse(f, xs)
		for i, x := range xs {
			assert.Equal(t, f.Inverse(x), inv[i], name)
		}
		assert.Empty(t, BatchInverse(f, nil))
	}
}

func BenchmarkHashElements(b *testing.B) {
	row := make([]uint64, 16)
	for i := range row {
		row[i] = uint64(i * 31)
	}
	for _, name := range Supported() {
		h, _ := Resolve(name)
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				h.HashElements(row)
			}
		})
	}
}
