package core

import (
	"fmt"
	"strings"
	"time"
)

// Modulus is the Goldilocks prime 2^64 - 2^32 + 1 shared by every backend
const Modulus uint64 = 0xFFFFFFFF00000001

// BackendKind selects one of the two proving backends
type BackendKind int

const (
	// BackendUnknown is the zero value and never resolves to an adapter
	BackendUnknown BackendKind = iota

	// BackendA is the Plonky3-style backend
	BackendA

	// BackendB is the Winterfell-style backend
	BackendB
)

// String returns the canonical backend name
func (b BackendKind) String() string {
	switch b {
	case BackendA:
		return "p3"
	case BackendB:
		return "winterfell"
	default:
		return "unknown"
	}
}

// ParseBackendKind maps a configuration name to a backend
func ParseBackendKind(name string) (BackendKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "p3", "plonky3", "a":
		return BackendA, nil
	case "winterfell", "wf", "b":
		return BackendB, nil
	default:
		return BackendUnknown, UnknownStrategy("backend", name)
	}
}

// HashKind enumerates the supported commitment hash functions
type HashKind int

const (
	HashUnknown HashKind = iota
	HashBlake3_256
	HashBlake3_192
	HashKeccak
	HashPoseidon2
	HashRPO
)

// HashKinds lists every supported hash in display order
var HashKinds = []HashKind{HashBlake3_256, HashBlake3_192, HashKeccak, HashPoseidon2, HashRPO}

// String returns the canonical hash name
func (h HashKind) String() string {
	switch h {
	case HashBlake3_256:
		return "blake3-256"
	case HashBlake3_192:
		return "blake3-192"
	case HashKeccak:
		return "keccak"
	case HashPoseidon2:
		return "poseidon2"
	case HashRPO:
		return "rpo"
	default:
		return "unknown"
	}
}

// ParseHashKind maps a configuration name (case-insensitive) to a hash kind.
// Aliases cover the other spellings found in benchmark log names.
func ParseHashKind(name string) (HashKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blake3-256", "blake3_256", "blake3", "blake256":
		return HashBlake3_256, nil
	case "blake3-192", "blake3_192", "blake192":
		return HashBlake3_192, nil
	case "keccak", "keccak256", "keccak-256":
		return HashKeccak, nil
	case "poseidon2", "poseidon":
		return HashPoseidon2, nil
	case "rpo", "rescue", "tip5":
		return HashRPO, nil
	default:
		return HashUnknown, UnknownStrategy("hash function", name)
	}
}

// FieldKind enumerates the supported base-field representations
type FieldKind int

const (
	FieldUnknown FieldKind = iota

	// FieldGoldilocksMonty keeps elements in Montgomery form
	FieldGoldilocksMonty

	// FieldGeneric keeps elements in canonical form
	FieldGeneric
)

// FieldKinds lists every supported field representation
var FieldKinds = []FieldKind{FieldGoldilocksMonty, FieldGeneric}

// String returns the canonical field name
func (f FieldKind) String() string {
	switch f {
	case FieldGoldilocksMonty:
		return "goldilocks-monty"
	case FieldGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// ParseFieldKind maps a configuration name to a field representation
func ParseFieldKind(name string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "goldilocks-monty", "goldilocks_monty", "monty", "goldilocks":
		return FieldGoldilocksMonty, nil
	case "generic", "base":
		return FieldGeneric, nil
	default:
		return FieldUnknown, UnknownStrategy("field", name)
	}
}

// MarshalText implementations keep JSON and YAML output readable.

func (b BackendKind) MarshalText() ([]byte, error) { return []byte(b.String()), nil }
func (h HashKind) MarshalText() ([]byte, error)    { return []byte(h.String()), nil }
func (f FieldKind) MarshalText() ([]byte, error)   { return []byte(f.String()), nil }

func (b *BackendKind) UnmarshalText(text []byte) error {
	if string(text) == "unknown" {
		*b = BackendUnknown
		return nil
	}
	kind, err := ParseBackendKind(string(text))
	*b = kind
	return err
}

func (h *HashKind) UnmarshalText(text []byte) error {
	if string(text) == "unknown" {
		*h = HashUnknown
		return nil
	}
	kind, err := ParseHashKind(string(text))
	*h = kind
	return err
}

func (f *FieldKind) UnmarshalText(text []byte) error {
	if string(text) == "unknown" {
		*f = FieldUnknown
		return nil
	}
	kind, err := ParseFieldKind(string(text))
	*f = kind
	return err
}

// BackendConfig is the resolved configuration of one trial
type BackendConfig struct {
	Backend BackendKind `json:"backend"`
	Hash    HashKind    `json:"hash"`
	Field   FieldKind   `json:"field"`
	Threads int         `json:"threads"`
}

// String renders the config the way log files are named
func (c BackendConfig) String() string {
	return fmt.Sprintf("%s_%s_%s_%d_thread", c.Backend, c.Hash, c.Field, c.Threads)
}

// Proof is the opaque output of a prover; only its size is inspected
type Proof []byte

// Size returns the encoded proof size in bytes
func (p Proof) Size() int {
	return len(p)
}

// TrialStatus is the terminal state of a trial
type TrialStatus string

const (
	StatusRecorded TrialStatus = "recorded"
	StatusFailed   TrialStatus = "failed"
)

// TrialResult is the immutable record of one measured trial
type TrialResult struct {
	RunID     string        `json:"run_id"`
	Config    BackendConfig `json:"config"`
	Steps     int           `json:"steps"`
	Columns   int           `json:"columns"`
	Repeat    int           `json:"repeat"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	ProofSize int           `json:"proof_size"`
	Status    TrialStatus   `json:"status"`
	ErrKind   ErrorKind     `json:"error_kind"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`

	// VerifyElapsed is zero when verification is off
	VerifyElapsed time.Duration `json:"verify_elapsed_ns,omitempty"`
}

// OK reports whether the trial was recorded successfully
func (r TrialResult) OK() bool {
	return r.Status == StatusRecorded
}
