// Package workload builds the execution traces proved by every benchmark trial.
package workload

import (
	"encoding/binary"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"lukechampine.com/blake3"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

// MinSteps and MinColumns bound the smallest buildable trace
const (
	MinSteps   = 2
	MinColumns = 2
)

// seedRow draws the first row from a BLAKE3 XOF keyed by the seed
func seedRow(columns int, seed uint64) []field.Element {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	h := blake3.New(32, key[:])
	h.Write([]byte("vybium-stark-bench/workload"))

	buf := make([]byte, 8*columns)
	// the XOF never returns a short read
	_, _ = h.XOF().Read(buf)

	row := make([]field.Element, columns)
	for j := range row {
		row[j] = field.New(binary.LittleEndian.Uint64(buf[8*j:]) % core.Modulus)
	}
	return row
}

// closeRow sets the last column to row[0]^8 + row[1] + ... + row[n-2]
func closeRow(row []field.Element) {
	x := row[0]
	x2 := x.Mul(x)
	x4 := x2.Mul(x2)
	acc := x4.Mul(x4)
	for j := 1; j < len(row)-1; j++ {
		acc = acc.Add(row[j])
	}
	row[len(row)-1] = acc
}

// Build produces the deterministic trace for (steps, columns, seed). Row 0
// is pseudo-random; every later row copies its predecessor's last column
// into column 0, fills the middle columns with 1 and closes the row.
func Build(steps, columns int, seed uint64) (*core.Trace, error) {
	if steps < MinSteps || columns < MinColumns {
		return nil, core.InvalidDimensions(steps, columns)
	}

	cur := seedRow(columns, seed)
	closeRow(cur)

	rows := make([][]uint64, steps)
	rows[0] = values(cur)
	for i := 1; i < steps; i++ {
		next := make([]field.Element, columns)
		next[0] = cur[columns-1]
		for j := 1; j < columns-1; j++ {
			next[j] = field.One
		}
		closeRow(next)
		rows[i] = values(next)
		cur = next
	}

	return &core.Trace{Steps: steps, Columns: columns, Rows: rows}, nil
}

func values(row []field.Element) []uint64 {
	out := make([]uint64, len(row))
	for j, e := range row {
		out[j] = e.Value()
	}
	return out
}
