package stark

import (
	"context"
	"encoding/binary"
	"math/bits"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
)

// Channel is a Fiat-Shamir transcript driven by the commitment hash
type Channel struct {
	hasher  strategy.Hasher
	state   strategy.Digest
	counter uint64
}

// NewChannel seeds a transcript with a public statement
func NewChannel(h strategy.Hasher, seed []byte) *Channel {
	return &Channel{hasher: h, state: h.HashBytes(seed)}
}

// Send absorbs data into the channel state
func (c *Channel) Send(data []byte) {
	buf := make([]byte, 0, len(c.state)+len(data))
	buf = append(buf, c.state...)
	buf = append(buf, data...)
	c.state = c.hasher.HashBytes(buf)
	c.counter = 0
}

// SendElements absorbs field elements
func (c *Channel) SendElements(elems []uint64) {
	buf := make([]byte, 8*len(elems))
	for i, e := range elems {
		binary.LittleEndian.PutUint64(buf[8*i:], e)
	}
	c.Send(buf)
}

// draw returns the next pseudo-random 64-bit word
func (c *Channel) draw() uint64 {
	var ctr [8]byte
	binary.LittleEndian.PutUint64(ctr[:], c.counter)
	c.counter++
	d := c.hasher.HashBytes(append(append([]byte{}, c.state...), ctr[:]...))
	return binary.LittleEndian.Uint64(d[:8])
}

// ReceiveRandomElement draws a field element
func (c *Channel) ReceiveRandomElement() uint64 {
	return c.draw() % core.Modulus
}

// ReceiveQueryIndices draws up to n distinct indices in [0, domainSize)
func (c *Channel) ReceiveQueryIndices(n, domainSize int) []int {
	if n > domainSize {
		n = domainSize
	}
	seen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for len(out) < n {
		idx := int(c.draw() % uint64(domainSize))
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	return out
}

// Grind searches for the smallest nonce whose digest with the current
// state has at least powBits leading zero bits, then absorbs it
func (c *Channel) Grind(ctx context.Context, powBits int) (uint64, error) {
	if powBits <= 0 {
		return 0, nil
	}
	for nonce := uint64(0); ; nonce++ {
		if nonce&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if c.powOK(nonce, powBits) {
			c.sendNonce(nonce)
			return nonce, nil
		}
	}
}

// AcceptNonce checks a nonce found by Grind against the current state and
// absorbs it when it passes
func (c *Channel) AcceptNonce(nonce uint64, powBits int) bool {
	if powBits <= 0 {
		return nonce == 0
	}
	if !c.powOK(nonce, powBits) {
		return false
	}
	c.sendNonce(nonce)
	return true
}

func (c *Channel) powOK(nonce uint64, powBits int) bool {
	buf := make([]byte, len(c.state)+8)
	copy(buf, c.state)
	binary.LittleEndian.PutUint64(buf[len(c.state):], nonce)
	d := c.hasher.HashBytes(buf)
	return bits.LeadingZeros64(binary.BigEndian.Uint64(d[:8])) >= powBits
}

func (c *Channel) sendNonce(nonce uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], nonce)
	c.Send(buf[:])
}

// State returns a copy of the channel state
func (c *Channel) State() []byte {
	return append([]byte(nil), c.state...)
}
