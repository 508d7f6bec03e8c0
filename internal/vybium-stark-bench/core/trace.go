package core

import "fmt"

// Trace is a row-major execution trace of canonical Goldilocks residues.
// It is never mutated after construction.
type Trace struct {
	Steps   int
	Columns int
	Rows    [][]uint64
}

// NewTrace wraps rows into a trace, checking that the matrix is rectangular
func NewTrace(rows [][]uint64) (*Trace, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("trace has no rows")
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), width)
		}
	}
	return &Trace{Steps: len(rows), Columns: width, Rows: rows}, nil
}

// Row returns row i
func (t *Trace) Row(i int) []uint64 {
	return t.Rows[i]
}

// At returns the value at row i, column j
func (t *Trace) At(i, j int) uint64 {
	return t.Rows[i][j]
}

// Column copies column j into a fresh slice
func (t *Trace) Column(j int) []uint64 {
	col := make([]uint64, t.Steps)
	for i, row := range t.Rows {
		col[i] = row[j]
	}
	return col
}

// Equal reports whether two traces hold the same values
func (t *Trace) Equal(other *Trace) bool {
	if t.Steps != other.Steps || t.Columns != other.Columns {
		return false
	}
	for i := range t.Rows {
		for j := range t.Rows[i] {
			if t.Rows[i][j] != other.Rows[i][j] {
				return false
			}
		}
	}
	return true
}
