// Package utils holds the benchmark configuration and logger construction.
package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/bench"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

// Config represents a benchmark sweep plus its ambient settings
type Config struct {
	// Sweep dimensions
	Threads  []int    `yaml:"threads"`
	Hashes   []string `yaml:"hashes"`
	Fields   []string `yaml:"fields"`
	Backends []string `yaml:"backends"`
	Steps    []int    `yaml:"steps"`
	Columns  []int    `yaml:"columns"`

	Repeats int           `yaml:"repeats"`
	Warmup  int           `yaml:"warmup"`
	Seed    uint64        `yaml:"seed"`
	Timeout time.Duration `yaml:"timeout"`

	// Verify checks every proof after it is timed
	Verify bool `yaml:"verify"`

	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_dir"`
}

// DefaultConfig returns a single keccak trial on both backends using every core
func DefaultConfig() *Config {
	return &Config{
		Threads:  []int{0},
		Hashes:   []string{"keccak"},
		Fields:   []string{"goldilocks-monty"},
		Backends: []string{"p3", "winterfell"},
		Steps:    []int{1024},
		Columns:  []int{3},
		Repeats:  1,
		Timeout:  10 * time.Minute,
		Verify:   true,
		LogLevel: "info",
	}
}

// LoadFile overlays the YAML sweep file at path. Keys absent from the file
// keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.IOError(fmt.Sprintf("read config %q", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

// LoadEnv overlays the NUM_THREADS, HASH_TYPE, FIELD_TYPE, BACKEND, STEPS,
// COLUMNS, REPEATS, WARMUP, SEED, TRIAL_TIMEOUT, VERIFY, LOG_LEVEL and
// LOG_DIR variables that are set
func (c *Config) LoadEnv() error {
	for _, v := range []struct {
		name string
		set  func(string) error
	}{
		{"NUM_THREADS", c.SetThreads},
		{"HASH_TYPE", c.SetHashes},
		{"FIELD_TYPE", c.SetFields},
		{"BACKEND", c.SetBackends},
		{"STEPS", c.SetSteps},
		{"COLUMNS", c.SetColumns},
		{"REPEATS", func(s string) (err error) { c.Repeats, err = strconv.Atoi(s); return }},
		{"WARMUP", func(s string) (err error) { c.Warmup, err = strconv.Atoi(s); return }},
		{"SEED", func(s string) (err error) { c.Seed, err = strconv.ParseUint(s, 10, 64); return }},
		{"TRIAL_TIMEOUT", func(s string) (err error) { c.Timeout, err = time.ParseDuration(s); return }},
		{"VERIFY", func(s string) (err error) { c.Verify, err = strconv.ParseBool(s); return }},
		{"LOG_LEVEL", func(s string) error { c.LogLevel = s; return nil }},
		{"LOG_DIR", func(s string) error { c.LogDir = s; return nil }},
	} {
		value, ok := os.LookupEnv(v.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := v.set(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", v.name, value, err)
		}
	}
	return nil
}

// SetThreads parses a comma-separated thread list
func (c *Config) SetThreads(s string) (err error) {
	c.Threads, err = ParseInts(s)
	return err
}

// SetSteps parses a comma-separated step list
func (c *Config) SetSteps(s string) (err error) {
	c.Steps, err = ParseInts(s)
	return err
}

// SetColumns parses a comma-separated column list
func (c *Config) SetColumns(s string) (err error) {
	c.Columns, err = ParseInts(s)
	return err
}

func (c *Config) SetHashes(s string) error   { c.Hashes = SplitList(s); return nil }
func (c *Config) SetFields(s string) error   { c.Fields = SplitList(s); return nil }
func (c *Config) SetBackends(s string) error { c.Backends = SplitList(s); return nil }

// Validate checks the settings that would abort the whole sweep. Bad
// dimensions and unknown hash or field names are left to fail their own
// trials.
func (c *Config) Validate() error {
	switch {
	case len(c.Threads) == 0:
		return fmt.Errorf("at least one thread count is required")
	case len(c.Hashes) == 0:
		return fmt.Errorf("at least one hash is required")
	case len(c.Fields) == 0:
		return fmt.Errorf("at least one field is required")
	case len(c.Backends) == 0:
		return fmt.Errorf("at least one backend is required")
	case len(c.Steps) == 0 || len(c.Columns) == 0:
		return fmt.Errorf("steps and columns must not be empty")
	case c.Repeats < 1:
		return fmt.Errorf("repeats must be positive, got %d", c.Repeats)
	case c.Warmup < 0:
		return fmt.Errorf("warmup must not be negative, got %d", c.Warmup)
	case c.Timeout < 0:
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	for _, t := range c.Threads {
		if t < 0 {
			return fmt.Errorf("thread count must not be negative, got %d", t)
		}
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// WithThreads sets the thread counts
func (c *Config) WithThreads(threads ...int) *Config {
	c.Threads = threads
	return c
}

// WithHashes sets the hash names
func (c *Config) WithHashes(hashes ...string) *Config {
	c.Hashes = hashes
	return c
}

// WithFields sets the field names
func (c *Config) WithFields(fields ...string) *Config {
	c.Fields = fields
	return c
}

// WithBackends sets the backend names
func (c *Config) WithBackends(backends ...string) *Config {
	c.Backends = backends
	return c
}

// WithDimensions sets the trace steps and columns
func (c *Config) WithDimensions(steps, columns []int) *Config {
	c.Steps = steps
	c.Columns = columns
	return c
}

// WithRepeats sets the recorded and warmup repetitions
func (c *Config) WithRepeats(repeats, warmup int) *Config {
	c.Repeats = repeats
	c.Warmup = warmup
	return c
}

// WithSeed sets the workload seed
func (c *Config) WithSeed(seed uint64) *Config {
	c.Seed = seed
	return c
}

// WithVerify turns proof verification on or off
func (c *Config) WithVerify(on bool) *Config {
	c.Verify = on
	return c
}

// WithTimeout sets the per-trial timeout; zero disables it
func (c *Config) WithTimeout(d time.Duration) *Config {
	c.Timeout = d
	return c
}

// WithLogging sets the log level and the per-configuration log directory
func (c *Config) WithLogging(level, dir string) *Config {
	c.LogLevel = level
	c.LogDir = dir
	return c
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	out := *c
	out.Threads = append([]int(nil), c.Threads...)
	out.Hashes = append([]string(nil), c.Hashes...)
	out.Fields = append([]string(nil), c.Fields...)
	out.Backends = append([]string(nil), c.Backends...)
	out.Steps = append([]int(nil), c.Steps...)
	out.Columns = append([]int(nil), c.Columns...)
	return &out
}

// ToSweep converts the configuration into the runner's sweep. An unknown
// backend name becomes BackendUnknown and fails its trials.
func (c *Config) ToSweep() bench.Sweep {
	backends := make([]core.BackendKind, 0, len(c.Backends))
	for _, name := range c.Backends {
		kind, _ := core.ParseBackendKind(name)
		backends = append(backends, kind)
	}
	return bench.Sweep{
		Steps:    c.Steps,
		Columns:  c.Columns,
		Backends: backends,
		Hashes:   c.Hashes,
		Fields:   c.Fields,
		Threads:  c.Threads,
		Warmup:   c.Warmup,
		Repeats:  c.Repeats,
		Seed:     c.Seed,
		Timeout:  c.Timeout,
	}
}

// SplitList splits a comma-separated list, dropping empty entries
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseInts parses a comma-separated list of integers
func ParseInts(s string) ([]int, error) {
	parts := SplitList(s)
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
