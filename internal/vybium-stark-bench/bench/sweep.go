package bench

import (
	"fmt"
	"strings"
	"time"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

// Configuration is one point of a sweep. Hash and field stay names so an
// unsupported one fails its own trial instead of the whole sweep.
type Configuration struct {
	Steps   int
	Columns int
	Backend core.BackendKind
	Hash    string
	Field   string
	Threads int
}

// LogName is the per-configuration log file name,
// <backend>_<hash>_<field>_<threads>_thread.log. Supported names are
// written in canonical form; anything else is reduced to [A-Za-z0-9-] so
// the name never leaves the log directory.
func (c Configuration) LogName() string {
	hash := logSegment(c.Hash)
	if kind, err := core.ParseHashKind(c.Hash); err == nil {
		hash = kind.String()
	}
	field := logSegment(c.Field)
	if kind, err := core.ParseFieldKind(c.Field); err == nil {
		field = kind.String()
	}
	return fmt.Sprintf("%s_%s_%s_%d_thread.log", c.Backend, hash, field, c.Threads)
}

func logSegment(name string) string {
	seg := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, name)
	if seg == "" {
		return "unknown"
	}
	return seg
}

// Sweep is the cartesian product of every dimension, run sequentially
type Sweep struct {
	Steps    []int
	Columns  []int
	Backends []core.BackendKind
	Hashes   []string
	Fields   []string
	Threads  []int

	// Warmup trials run before the recorded repeats and are discarded
	Warmup  int
	Repeats int

	Seed    uint64
	Timeout time.Duration
}

// Configurations expands the sweep in execution order: steps, columns,
// backend, hash, field, threads
func (s Sweep) Configurations() []Configuration {
	var out []Configuration
	for _, steps := range s.Steps {
		for _, columns := range s.Columns {
			for _, backend := range s.Backends {
				for _, hash := range s.Hashes {
					for _, field := range s.Fields {
						for _, threads := range s.Threads {
							out = append(out, Configuration{
								Steps:   steps,
								Columns: columns,
								Backend: backend,
								Hash:    hash,
								Field:   field,
								Threads: threads,
							})
						}
					}
				}
			}
		}
	}
	return out
}

// Trials is the number of recorded trials the sweep produces
func (s Sweep) Trials() int {
	repeats := s.Repeats
	if repeats < 1 {
		repeats = 1
	}
	return len(s.Configurations()) * repeats
}
