// Package bench runs benchmark trials and sweeps.
package bench

import "fmt"

// TrialState is a step of the per-trial lifecycle
type TrialState int

const (
	StateConfigured TrialState = iota
	StateBuilding
	StateProving
	StateMeasured
	StateRecorded
	StateFailed
)

var stateNames = [...]string{"Configured", "Building", "Proving", "Measured", "Recorded", "Failed"}

func (s TrialState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("TrialState(%d)", int(s))
}

// transitions lists the legal successors of each state
var transitions = map[TrialState][]TrialState{
	StateConfigured: {StateBuilding, StateFailed},
	StateBuilding:   {StateProving, StateFailed},
	StateProving:    {StateMeasured, StateFailed},
	StateMeasured:   {StateRecorded, StateFailed},
}

// CanTransition reports whether from -> to is a legal step
func CanTransition(from, to TrialState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s TrialState) Terminal() bool {
	return s == StateRecorded || s == StateFailed
}
