package strategy

import (
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

// Resolve maps a hash-function name to its Hasher. Unknown names fail with
// an UnknownStrategy error carrying the name.
func Resolve(name string) (Hasher, error) {
	kind, err := core.ParseHashKind(name)
	if err != nil {
		return nil, err
	}
	return NewHasher(kind)
}

// NewHasher builds the Hasher for a parsed kind
func NewHasher(kind core.HashKind) (Hasher, error) {
	switch kind {
	case core.HashBlake3_256:
		return newBlake3_256(), nil
	case core.HashBlake3_192:
		return newBlake3_192(), nil
	case core.HashKeccak:
		return newKeccak(), nil
	case core.HashPoseidon2:
		return newPoseidon2()
	case core.HashRPO:
		return rpoHasher{}, nil
	default:
		return nil, core.UnknownStrategy("hash function", kind.String())
	}
}

// ResolveField maps a field-representation name to its Field
func ResolveField(name string) (Field, error) {
	kind, err := core.ParseFieldKind(name)
	if err != nil {
		return nil, err
	}
	return NewField(kind)
}

// NewField builds the Field for a parsed kind
func NewField(kind core.FieldKind) (Field, error) {
	switch kind {
	case core.FieldGoldilocksMonty:
		return montyField{}, nil
	case core.FieldGeneric:
		return genericField{}, nil
	default:
		return nil, core.UnknownStrategy("field", kind.String())
	}
}

// Supported lists the canonical names of every hash function
func Supported() []string {
	names := make([]string, len(core.HashKinds))
	for i, k := range core.HashKinds {
		names[i] = k.String()
	}
	return names
}

// SupportedFields lists the canonical names of every field representation
func SupportedFields() []string {
	names := make([]string, len(core.FieldKinds))
	for i, k := range core.FieldKinds {
		names[i] = k.String()
	}
	return names
}
