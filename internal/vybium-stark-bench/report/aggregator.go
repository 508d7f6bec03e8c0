// Package report aggregates trial results into comparable summaries.
package report

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

// Key groups the samples of one configuration
type Key struct {
	Steps   int
	Columns int
	Config  core.BackendConfig
}

// Summary describes the recorded samples of one configuration
type Summary struct {
	Key
	Samples   int
	Mean      time.Duration
	Median    time.Duration
	Min       time.Duration
	Max       time.Duration
	StdDev    time.Duration
	ProofSize int
}

// Comparison sets the two backends side by side for one shape and thread
// count. Speedup is time_B / time_A over medians, so values above 1 mean
// BackendA is faster. It is zero when either side has no samples.
type Comparison struct {
	Steps   int
	Columns int
	Hash    core.HashKind
	Field   core.FieldKind
	Threads int
	TimeA   time.Duration
	TimeB   time.Duration
	Speedup float64
}

// Aggregator owns the insertion-ordered result set
type Aggregator struct {
	mu      sync.Mutex
	results []core.TrialResult
}

// NewAggregator returns an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Record appends a result
func (a *Aggregator) Record(r core.TrialResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, r)
}

// Results returns every result in insertion order
func (a *Aggregator) Results() []core.TrialResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.TrialResult(nil), a.results...)
}

// Failures returns the failed trials in insertion order
func (a *Aggregator) Failures() []core.TrialResult {
	var out []core.TrialResult
	for _, r := range a.Results() {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

func keyOf(r core.TrialResult) Key {
	return Key{Steps: r.Steps, Columns: r.Columns, Config: r.Config}
}

// less orders by steps, columns, backend, hash, field, threads
func (k Key) less(o Key) bool {
	switch {
	case k.Steps != o.Steps:
		return k.Steps < o.Steps
	case k.Columns != o.Columns:
		return k.Columns < o.Columns
	case k.Config.Backend != o.Config.Backend:
		return k.Config.Backend < o.Config.Backend
	case k.Config.Hash != o.Config.Hash:
		return k.Config.Hash < o.Config.Hash
	case k.Config.Field != o.Config.Field:
		return k.Config.Field < o.Config.Field
	default:
		return k.Config.Threads < o.Config.Threads
	}
}

// Summaries returns one summary per configuration with recorded samples
func (a *Aggregator) Summaries() []Summary {
	groups := make(map[Key][]core.TrialResult)
	for _, r := range a.Results() {
		if r.OK() {
			groups[keyOf(r)] = append(groups[keyOf(r)], r)
		}
	}

	out := make([]Summary, 0, len(groups))
	for key, rs := range groups {
		out = append(out, summarize(key, rs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.less(out[j].Key) })
	return out
}

func summarize(key Key, rs []core.TrialResult) Summary {
	times := make([]time.Duration, len(rs))
	var sum float64
	for i, r := range rs {
		times[i] = r.Elapsed
		sum += float64(r.Elapsed)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	mean := sum / float64(len(times))
	var variance float64
	for _, t := range times {
		d := float64(t) - mean
		variance += d * d
	}
	variance /= float64(len(times))

	return Summary{
		Key:       key,
		Samples:   len(times),
		Mean:      time.Duration(mean),
		Median:    median(times),
		Min:       times[0],
		Max:       times[len(times)-1],
		StdDev:    time.Duration(math.Sqrt(variance)),
		ProofSize: rs[len(rs)-1].ProofSize,
	}
}

// median of sorted durations; even counts average the middle pair
func median(sorted []time.Duration) time.Duration {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Comparisons pairs BackendA and BackendB summaries that share steps,
// columns, hash, field and thread count
func (a *Aggregator) Comparisons() []Comparison {
	type pairKey struct {
		steps, columns, threads int
		hash                    core.HashKind
		field                   core.FieldKind
	}
	pairs := make(map[pairKey]*Comparison)
	var order []pairKey

	for _, s := range a.Summaries() {
		pk := pairKey{s.Steps, s.Columns, s.Config.Threads, s.Config.Hash, s.Config.Field}
		c, ok := pairs[pk]
		if !ok {
			c = &Comparison{Steps: s.Steps, Columns: s.Columns, Hash: s.Config.Hash, Field: s.Config.Field, Threads: s.Config.Threads}
			pairs[pk] = c
			order = append(order, pk)
		}
		switch s.Config.Backend {
		case core.BackendA:
			c.TimeA = s.Median
		case core.BackendB:
			c.TimeB = s.Median
		}
	}

	out := make([]Comparison, 0, len(order))
	for _, pk := range order {
		c := pairs[pk]
		if c.TimeA > 0 && c.TimeB > 0 {
			c.Speedup = float64(c.TimeB) / float64(c.TimeA)
		}
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		x, y := out[i], out[j]
		switch {
		case x.Steps != y.Steps:
			return x.Steps < y.Steps
		case x.Columns != y.Columns:
			return x.Columns < y.Columns
		case x.Hash != y.Hash:
			return x.Hash < y.Hash
		case x.Field != y.Field:
			return x.Field < y.Field
		default:
			return x.Threads < y.Threads
		}
	})
	return out
}
