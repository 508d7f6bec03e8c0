package workload

import (
	"fmt"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
)

// ConstraintSpec describes the AIR shared by every backend:
//
//	cur[PowerColumn]^PowerDegree + cur[1] + ... + cur[Width-2] = cur[ResultColumn]
//	next[WrapTo] = cur[WrapFrom]
//
// The first constraint holds on every row, the second on every transition.
type ConstraintSpec struct {
	Width        int
	PowerDegree  int
	PowerColumn  int
	ResultColumn int
	WrapFrom     int
	WrapTo       int
}

// NewConstraintSpec returns the spec for a trace of the given width
func NewConstraintSpec(width int) ConstraintSpec {
	return ConstraintSpec{
		Width:        width,
		PowerDegree:  8,
		PowerColumn:  0,
		ResultColumn: width - 1,
		WrapFrom:     width - 1,
		WrapTo:       0,
	}
}

// Degree is the maximal algebraic degree of the constraints
func (c ConstraintSpec) Degree() int {
	return c.PowerDegree
}

// NumConstraints is the number of transition constraints
func (c ConstraintSpec) NumConstraints() int {
	return 2
}

// Evaluate writes both constraint values for the pair (cur, next) to out.
// Both are zero on a valid trace.
func (c ConstraintSpec) Evaluate(f strategy.Field, cur, next, out []uint64) {
	acc := f.Exp(cur[c.PowerColumn], uint64(c.PowerDegree))
	for j := 1; j < c.Width-1; j++ {
		acc = f.Add(acc, cur[j])
	}
	out[0] = f.Sub(acc, cur[c.ResultColumn])
	out[1] = f.Sub(next[c.WrapTo], cur[c.WrapFrom])
}

// CheckRow reports whether row i of trace satisfies its constraints. The
// wrap constraint is skipped on the last row.
func (c ConstraintSpec) CheckRow(f strategy.Field, trace *core.Trace, i int) bool {
	out := make([]uint64, c.NumConstraints())
	next := trace.Row(i)
	if i+1 < trace.Steps {
		next = trace.Row(i + 1)
	}
	c.Evaluate(f, trace.Row(i), next, out)
	if out[0] != 0 {
		return false
	}
	return i+1 == trace.Steps || out[1] == 0
}

// Check verifies the whole trace and returns the first violating row
func (c ConstraintSpec) Check(f strategy.Field, trace *core.Trace) error {
	if trace.Columns != c.Width {
		return fmt.Errorf("trace width %d does not match constraint width %d", trace.Columns, c.Width)
	}
	for i := 0; i < trace.Steps; i++ {
		if !c.CheckRow(f, trace, i) {
			return fmt.Errorf("constraint violated at row %d", i)
		}
	}
	return nil
}
