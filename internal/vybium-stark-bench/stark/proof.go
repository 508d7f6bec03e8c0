package stark

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Proof is the full transcript output of Prove
type Proof struct {
	Backend string `cbor:"backend"`
	Hash    string `cbor:"hash"`
	Field   string `cbor:"field"`

	TraceLength int `cbor:"trace_length"`
	TraceWidth  int `cbor:"trace_width"`
	LogBlowup   int `cbor:"log_blowup"`

	TraceRoot   []byte   `cbor:"trace_root"`
	SegmentRoot []byte   `cbor:"segment_root"`
	LayerRoots  [][]byte `cbor:"layer_roots"`

	// Remainder is the last FRI layer in evaluation form
	Remainder []uint64 `cbor:"remainder"`

	PowNonce uint64         `cbor:"pow_nonce"`
	Queries  []QueryOpening `cbor:"queries"`
}

// QueryOpening holds everything revealed for one query position
type QueryOpening struct {
	Index int `cbor:"index"`

	TraceRow  []uint64 `cbor:"trace_row"`
	TracePath [][]byte `cbor:"trace_path"`

	// NextRow is the trace row one trace step after Index
	NextRow  []uint64 `cbor:"next_row"`
	NextPath [][]byte `cbor:"next_path"`

	SegmentRow  []uint64 `cbor:"segment_row"`
	SegmentPath [][]byte `cbor:"segment_path"`

	Layers []LayerOpening `cbor:"layers"`
}

// LayerOpening is one folding coset of a FRI layer
type LayerOpening struct {
	Position int      `cbor:"position"`
	Values   []uint64 `cbor:"values"`
	Path     [][]byte `cbor:"path"`
}

// Encode serializes the proof with CBOR
func (p *Proof) Encode() ([]byte, error) {
	data, err := cbor.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode proof: %w", err)
	}
	return data, nil
}

// DecodeProof parses a proof produced by Encode
func DecodeProof(data []byte) (*Proof, error) {
	var p Proof
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode proof: %w", err)
	}
	return &p, nil
}
