package strategy

import (
	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

// Field is the base-field arithmetic a backend runs its constraint and FRI
// evaluation through. Inputs and outputs are canonical residues; how an
// implementation represents elements internally is its own business.
type Field interface {
	Kind() core.FieldKind
	Name() string
	Add(a, b uint64) uint64
	Sub(a, b uint64) uint64
	Mul(a, b uint64) uint64
	Exp(a, e uint64) uint64
	Inverse(a uint64) uint64
}

// Exp8 raises a to the eighth power with three squarings
func Exp8(f Field, a uint64) uint64 {
	a2 := f.Mul(a, a)
	a4 := f.Mul(a2, a2)
	return f.Mul(a4, a4)
}

// BatchInverse inverts every element of xs with a single field inversion.
// No element may be zero.
func BatchInverse(f Field, xs []uint64) []uint64 {
	out := make([]uint64, len(xs))
	if len(xs) == 0 {
		return out
	}
	acc := uint64(1)
	for i, x := range xs {
		out[i] = acc
		acc = f.Mul(acc, x)
	}
	inv := f.Inverse(acc)
	for i := len(xs) - 1; i >= 0; i-- {
		out[i] = f.Mul(out[i], inv)
		inv = f.Mul(inv, xs[i])
	}
	return out
}

// montyField keeps operands in Montgomery form between conversions
type montyField struct{}

func (montyField) Kind() core.FieldKind { return core.FieldGoldilocksMonty }
func (montyField) Name() string         { return core.FieldGoldilocksMonty.String() }

func (montyField) Add(a, b uint64) uint64 {
	x, y := goldilocks.NewElement(a), goldilocks.NewElement(b)
	x.Add(&x, &y)
	return x.Uint64()
}

func (montyField) Sub(a, b uint64) uint64 {
	x, y := goldilocks.NewElement(a), goldilocks.NewElement(b)
	x.Sub(&x, &y)
	return x.Uint64()
}

func (montyField) Mul(a, b uint64) uint64 {
	x, y := goldilocks.NewElement(a), goldilocks.NewElement(b)
	x.Mul(&x, &y)
	return x.Uint64()
}

func (montyField) Exp(a, e uint64) uint64 {
	base := goldilocks.NewElement(a)
	res := goldilocks.One()
	for e > 0 {
		if e&1 == 1 {
			res.Mul(&res, &base)
		}
		base.Square(&base)
		e >>= 1
	}
	return res.Uint64()
}

func (montyField) Inverse(a uint64) uint64 {
	x := goldilocks.NewElement(a)
	x.Inverse(&x)
	return x.Uint64()
}

// genericField uses the canonical-form elements of vybium-crypto
type genericField struct{}

func (genericField) Kind() core.FieldKind { return core.FieldGeneric }
func (genericField) Name() string         { return core.FieldGeneric.String() }

func (genericField) Add(a, b uint64) uint64 {
	return field.New(a).Add(field.New(b)).Value()
}

func (genericField) Sub(a, b uint64) uint64 {
	return field.New(a).Sub(field.New(b)).Value()
}

func (genericField) Mul(a, b uint64) uint64 {
	return field.New(a).Mul(field.New(b)).Value()
}

func (genericField) Exp(a, e uint64) uint64 {
	base := field.New(a)
	res := field.One
	for e > 0 {
		if e&1 == 1 {
			res = res.Mul(base)
		}
		base = base.Mul(base)
		e >>= 1
	}
	return res.Value()
}

func (genericField) Inverse(a uint64) uint64 {
	return field.New(a).Inverse().Value()
}
