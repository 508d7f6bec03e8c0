package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vybium-stark-bench",
	Short: "Benchmark STARK proof generation across hashes, fields, threads and backends",
	Long: `vybium-stark-bench proves a synthetic degree-8 workload on two STARK
backends (p3 and winterfell) for every combination of hash function, field
representation and thread count, and reports per-backend times and the
speedup between them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
