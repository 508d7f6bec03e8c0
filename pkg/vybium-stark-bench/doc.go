// Package vybiumstarkbench benchmarks STARK proof generation across hash
// functions, field representations, thread counts and two proving backends.
//
// # Quick Start
//
// Running the default sweep (keccak, both backends, every core):
//
//	cfg := vybiumstarkbench.DefaultConfig()
//	rep, err := vybiumstarkbench.Run(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	out, _ := rep.Render("markdown")
//	fmt.Println(out)
//
// Narrowing the sweep:
//
//	cfg := vybiumstarkbench.DefaultConfig().
//		WithHashes("keccak", "blake3-256", "poseidon2").
//		WithThreads(1, 4).
//		WithDimensions([]int{1 << 12}, []int{8}).
//		WithRepeats(5, 1)
//
// # Persistence and metrics
//
// WithStore appends every result to a badger database so earlier runs can be
// reloaded with LoadRun. WithMetricsFile writes Prometheus collectors in the
// text exposition format after the sweep.
//
// # Errors
//
// A trial that fails (bad dimensions, unknown strategy, prover failure,
// timeout) is recorded with its ErrorKind and the sweep continues. Run only
// returns an error for an invalid configuration, a cancelled context or an
// I/O failure of the store or metrics file.
package vybiumstarkbench
