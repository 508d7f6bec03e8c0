package stark

import "fmt"

// Options are the proof parameters of a backend
type Options struct {
	// LogBlowup is log2 of the low-degree extension factor
	LogBlowup int

	NumQueries   int
	GrindingBits int

	// FoldingFactor is the FRI arity, 2 or 4
	FoldingFactor int

	// RemainderMaxDegree bounds the degree of the last FRI layer, sent in clear
	RemainderMaxDegree int
}

// Blowup returns the low-degree extension factor
func (o Options) Blowup() int {
	return 1 << o.LogBlowup
}

// Validate checks the options against the degree of the constraints
func (o Options) Validate(constraintDegree int) error {
	if o.LogBlowup < 1 || o.LogBlowup > 6 {
		return fmt.Errorf("log blowup must be in [1, 6], got %d", o.LogBlowup)
	}
	if o.Blowup() < constraintDegree-1 {
		return fmt.Errorf("blowup %d too small for constraint degree %d", o.Blowup(), constraintDegree)
	}
	if o.NumQueries < 1 {
		return fmt.Errorf("number of queries must be positive, got %d", o.NumQueries)
	}
	if o.GrindingBits < 0 || o.GrindingBits > 32 {
		return fmt.Errorf("grinding bits must be in [0, 32], got %d", o.GrindingBits)
	}
	if o.FoldingFactor != 2 && o.FoldingFactor != 4 {
		return fmt.Errorf("folding factor must be 2 or 4, got %d", o.FoldingFactor)
	}
	if o.RemainderMaxDegree < 0 || !isPowerOfTwo(o.RemainderMaxDegree+1) {
		return fmt.Errorf("remainder max degree must be one less than a power of two, got %d", o.RemainderMaxDegree)
	}
	return nil
}
