// Package metrics exposes benchmark results as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

// Collector holds the benchmark collectors on a private registry
type Collector struct {
	registry *prometheus.Registry

	trials     *prometheus.CounterVec
	proveTime  *prometheus.HistogramVec
	proofBytes *prometheus.GaugeVec
}

// New creates a collector with its own registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		trials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stark_bench_trials_total",
			Help: "Trials run, by backend, hash and terminal status",
		}, []string{"backend", "hash", "status"}),
		proveTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stark_bench_prove_seconds",
			Help:    "Wall-clock proving time of recorded trials",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 20),
		}, []string{"backend", "hash", "field"}),
		proofBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stark_bench_proof_bytes",
			Help: "Size of the last recorded proof",
		}, []string{"backend", "hash"}),
	}
}

// Observe accounts for one trial result
func (c *Collector) Observe(r core.TrialResult) {
	backend, hash := r.Config.Backend.String(), r.Config.Hash.String()
	c.trials.WithLabelValues(backend, hash, string(r.Status)).Inc()
	if !r.OK() {
		return
	}
	c.proveTime.WithLabelValues(backend, hash, r.Config.Field.String()).Observe(r.Elapsed.Seconds())
	c.proofBytes.WithLabelValues(backend, hash).Set(float64(r.ProofSize))
}

// Save lets the collector sit in the runner's sink list
func (c *Collector) Save(r core.TrialResult) error {
	c.Observe(r)
	return nil
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return core.IOError("write metrics file", err)
	}
	return nil
}
