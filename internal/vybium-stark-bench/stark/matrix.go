package stark

import "fmt"

// Matrix is a trace in whatever layout a backend prefers
type Matrix interface {
	Height() int
	Width() int

	// Column copies column j into dst, which has Height() entries
	Column(j int, dst []uint64)
}

// RowMajorMatrix stores rows contiguously in a flat buffer
type RowMajorMatrix struct {
	Values []uint64
	Cols   int
}

// NewRowMajorMatrix checks that values is a whole number of rows
func NewRowMajorMatrix(values []uint64, width int) (*RowMajorMatrix, error) {
	if width <= 0 || len(values) == 0 || len(values)%width != 0 {
		return nil, fmt.Errorf("%d values do not form rows of width %d", len(values), width)
	}
	return &RowMajorMatrix{Values: values, Cols: width}, nil
}

func (m *RowMajorMatrix) Height() int { return len(m.Values) / m.Cols }
func (m *RowMajorMatrix) Width() int  { return m.Cols }

func (m *RowMajorMatrix) Column(j int, dst []uint64) {
	for i := range dst {
		dst[i] = m.Values[i*m.Cols+j]
	}
}

// ColumnMatrix stores one slice per column
type ColumnMatrix struct {
	Columns [][]uint64
}

// NewColumnMatrix checks that every column has the same length
func NewColumnMatrix(columns [][]uint64) (*ColumnMatrix, error) {
	if len(columns) == 0 || len(columns[0]) == 0 {
		return nil, fmt.Errorf("matrix is empty")
	}
	for j, col := range columns {
		if len(col) != len(columns[0]) {
			return nil, fmt.Errorf("column %d has length %d, expected %d", j, len(col), len(columns[0]))
		}
	}
	return &ColumnMatrix{Columns: columns}, nil
}

func (m *ColumnMatrix) Height() int { return len(m.Columns[0]) }
func (m *ColumnMatrix) Width() int  { return len(m.Columns) }

func (m *ColumnMatrix) Column(j int, dst []uint64) {
	copy(dst, m.Columns[j])
}
