package stark

import (
	"context"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/consensys/gnark-crypto/field/goldilocks/fft"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/pool"
)

// cosetOffset shifts the evaluation domain off the trace subgroup. 7
// generates the multiplicative group of the Goldilocks field.
const cosetOffset uint64 = 7

// Domain is a multiplicative subgroup of size Size, optionally shifted by Offset
type Domain struct {
	Size      int
	Offset    uint64
	Generator uint64

	ntt *fft.Domain
}

// NewDomain returns the subgroup of the given power-of-two size shifted by offset
func NewDomain(size int, offset uint64) *Domain {
	ntt := fft.NewDomain(uint64(size))
	return &Domain{
		Size:      size,
		Offset:    offset,
		Generator: ntt.Generator.Uint64(),
		ntt:       ntt,
	}
}

// Point returns Offset * Generator^i
func (d *Domain) Point(i int) uint64 {
	x := pow(d.Generator, uint64(i))
	off := goldilocks.NewElement(d.Offset)
	x.Mul(&x, &off)
	return x.Uint64()
}

// pow computes base^e by square-and-multiply
func pow(base, e uint64) goldilocks.Element {
	b := goldilocks.NewElement(base)
	res := goldilocks.One()
	for e > 0 {
		if e&1 == 1 {
			res.Mul(&res, &b)
		}
		b.Square(&b)
		e >>= 1
	}
	return res
}

// Points returns every element of the domain in natural order
func (d *Domain) Points(ctx context.Context, p *pool.Pool) ([]uint64, error) {
	out := make([]uint64, d.Size)
	err := parallel(ctx, p, d.Size, func(lo, hi int) error {
		x := goldilocks.NewElement(d.Point(lo))
		g := goldilocks.NewElement(d.Generator)
		for i := lo; i < hi; i++ {
			out[i] = x.Uint64()
			x.Mul(&x, &g)
		}
		return nil
	})
	return out, err
}

// Interpolate returns the coefficients, lowest degree first, of the
// polynomial taking evals on the domain
func (d *Domain) Interpolate(evals []uint64) []goldilocks.Element {
	a := toElements(evals)
	d.ntt.FFTInverse(a, fft.DIF, fft.WithNbTasks(1))
	fft.BitReverse(a)
	if d.Offset != 1 {
		scalePowers(a, inverse(d.Offset))
	}
	return a
}

// Evaluate evaluates the polynomial with the given coefficients on the
// domain. Fewer coefficients than the domain size are zero-padded.
func (d *Domain) Evaluate(coeffs []goldilocks.Element) []uint64 {
	a := make([]goldilocks.Element, d.Size)
	copy(a, coeffs)
	if d.Offset != 1 {
		scalePowers(a, d.Offset)
	}
	d.ntt.FFT(a, fft.DIF, fft.WithNbTasks(1))
	fft.BitReverse(a)
	return fromElements(a)
}

// scalePowers multiplies a[k] by s^k
func scalePowers(a []goldilocks.Element, s uint64) {
	acc := goldilocks.One()
	step := goldilocks.NewElement(s)
	for k := range a {
		a[k].Mul(&a[k], &acc)
		acc.Mul(&acc, &step)
	}
}

func inverse(v uint64) uint64 {
	x := goldilocks.NewElement(v)
	x.Inverse(&x)
	return x.Uint64()
}

func toElements(vals []uint64) []goldilocks.Element {
	out := make([]goldilocks.Element, len(vals))
	for i, v := range vals {
		out[i].SetUint64(v)
	}
	return out
}

func fromElements(elems []goldilocks.Element) []uint64 {
	out := make([]uint64, len(elems))
	for i := range elems {
		out[i] = elems[i].Uint64()
	}
	return out
}

// isPowerOfTwo reports whether n is a positive power of two
func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// log2 returns floor(log2(n)) for n > 0
func log2(n int) int {
	r := 0
	for n > 1 {
		n >>= 1
		r++
	}
	return r
}

// parallel runs fn over [0, n) on p, or inline when no pool is given
func parallel(ctx context.Context, p *pool.Pool, n int, fn func(lo, hi int) error) error {
	if p == nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		return fn(0, n)
	}
	return p.ParallelFor(ctx, n, fn)
}
