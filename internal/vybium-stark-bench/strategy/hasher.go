// Package strategy resolves hash-function and field-representation names
// into the implementations injected into the proving backends.
package strategy

import (
	"encoding/binary"
	"fmt"
	"hash"
	"sync"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	vhash "github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

// Digest is the byte encoding of a hash output
type Digest []byte

// Hasher is the commitment hash used for Merkle trees and the transcript.
// Implementations are stateless and safe for concurrent use.
type Hasher interface {
	Kind() core.HashKind
	Name() string

	// DigestSize is the length in bytes of every digest produced
	DigestSize() int

	// HashElements hashes a row of canonical field elements into a leaf
	HashElements(elems []uint64) Digest

	// Merge is the 2-to-1 compression used for inner Merkle nodes
	Merge(left, right Digest) Digest

	// HashBytes hashes arbitrary transcript data
	HashBytes(data []byte) Digest
}

// elementBytes writes elems as little-endian 8-byte words
func elementBytes(elems []uint64) []byte {
	buf := make([]byte, 8*len(elems))
	for i, e := range elems {
		binary.LittleEndian.PutUint64(buf[8*i:], e)
	}
	return buf
}

// byteHasher adapts any hash.Hash constructor to the Hasher interface
type byteHasher struct {
	kind core.HashKind
	size int
	new  func() hash.Hash
}

func (h *byteHasher) Kind() core.HashKind { return h.kind }
func (h *byteHasher) Name() string        { return h.kind.String() }
func (h *byteHasher) DigestSize() int     { return h.size }

func (h *byteHasher) HashElements(elems []uint64) Digest {
	return h.HashBytes(elementBytes(elems))
}

func (h *byteHasher) Merge(left, right Digest) Digest {
	st := h.new()
	st.Write(left)
	st.Write(right)
	return st.Sum(nil)
}

func (h *byteHasher) HashBytes(data []byte) Digest {
	st := h.new()
	st.Write(data)
	return st.Sum(nil)
}

func newBlake3_256() Hasher {
	return &byteHasher{kind: core.HashBlake3_256, size: 32, new: func() hash.Hash { return blake3.New(32, nil) }}
}

// newBlake3_192 truncates the BLAKE3 output to 24 bytes, as the
// Winterfell Blake3_192 hasher does
func newBlake3_192() Hasher {
	return &byteHasher{kind: core.HashBlake3_192, size: 24, new: func() hash.Hash { return blake3.New(24, nil) }}
}

func newKeccak() Hasher {
	return &byteHasher{kind: core.HashKeccak, size: 32, new: sha3.NewLegacyKeccak256}
}

// toElements packs bytes into field elements, 7 bytes per element so that
// every value is below the modulus
func toElements(data []byte) []field.Element {
	out := make([]field.Element, 0, len(data)/7+2)
	for len(data) > 0 {
		n := 7
		if len(data) < n {
			n = len(data)
		}
		var v uint64
		for i := 0; i < n; i++ {
			v |= uint64(data[i]) << (8 * i)
		}
		out = append(out, field.New(v))
		data = data[n:]
	}
	// length tag keeps inputs of different length apart
	out = append(out, field.New(uint64(len(out))))
	return out
}

func digestElements(d Digest) []field.Element {
	out := make([]field.Element, len(d)/8)
	for i := range out {
		out[i] = field.New(binary.LittleEndian.Uint64(d[8*i:]))
	}
	return out
}

func canonical(elems []uint64) []field.Element {
	out := make([]field.Element, len(elems))
	for i, e := range elems {
		out[i] = field.New(e)
	}
	return out
}

// poseidonLanes is the number of field elements in a Poseidon2 digest
const poseidonLanes = 4

// poseidonInstance generates the round constants and MDS matrix once per
// process; Poseidon.Hash only reads them afterwards
var poseidonInstance = sync.OnceValues(func() (*vhash.Poseidon, error) {
	return vhash.NewPoseidon(nil)
})

// poseidonHasher builds a 4-element digest from domain-separated calls of
// the single-output Poseidon hash
type poseidonHasher struct {
	perm *vhash.Poseidon
}

func newPoseidon2() (Hasher, error) {
	perm, err := poseidonInstance()
	if err != nil {
		return nil, fmt.Errorf("poseidon parameters: %w", err)
	}
	return poseidonHasher{perm: perm}, nil
}

func (poseidonHasher) Kind() core.HashKind { return core.HashPoseidon2 }
func (poseidonHasher) Name() string        { return core.HashPoseidon2.String() }
func (poseidonHasher) DigestSize() int     { return 8 * poseidonLanes }

func (p poseidonHasher) hash(elems []field.Element) Digest {
	input := make([]field.Element, len(elems)+1)
	copy(input[1:], elems)
	out := make(Digest, 8*poseidonLanes)
	for lane := 0; lane < poseidonLanes; lane++ {
		input[0] = field.New(uint64(lane + 1))
		binary.LittleEndian.PutUint64(out[8*lane:], p.perm.Hash(input).Value())
	}
	return out
}

func (p poseidonHasher) HashElements(elems []uint64) Digest {
	return p.hash(canonical(elems))
}

func (p poseidonHasher) Merge(left, right Digest) Digest {
	return p.hash(append(digestElements(left), digestElements(right)...))
}

func (p poseidonHasher) HashBytes(data []byte) Digest {
	return p.hash(toElements(data))
}

// rpoHasher is the algebraic sponge hasher with a 5-element digest and a
// 10-element 2-to-1 compression
type rpoHasher struct{}

func (rpoHasher) Kind() core.HashKind { return core.HashRPO }
func (rpoHasher) Name() string        { return core.HashRPO.String() }
func (rpoHasher) DigestSize() int     { return 8 * vhash.DigestLen }

func encodeDigest(d vhash.Digest) Digest {
	out := make(Digest, 8*vhash.DigestLen)
	for i, e := range d {
		binary.LittleEndian.PutUint64(out[8*i:], e.Value())
	}
	return out
}

func (r rpoHasher) HashElements(elems []uint64) Digest {
	return encodeDigest(vhash.HashVarlen(canonical(elems)))
}

func (r rpoHasher) Merge(left, right Digest) Digest {
	var input [10]field.Element
	copy(input[:5], digestElements(left))
	copy(input[5:], digestElements(right))
	return encodeDigest(vhash.Hash10(input))
}

func (r rpoHasher) HashBytes(data []byte) Digest {
	return encodeDigest(vhash.HashVarlen(toElements(data)))
}
