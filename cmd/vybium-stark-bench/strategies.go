package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/prover"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/stark"
	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/strategy"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the supported backends, hash functions and fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := pterm.TableData{{"kind", "name", "detail"}}
		data = append(data,
			[]string{"backend", core.BackendA.String(), describe(prover.P3Options())},
			[]string{"backend", core.BackendB.String(), describe(prover.WinterfellOptions())})
		for _, kind := range core.HashKinds {
			h, err := strategy.NewHasher(kind)
			if err != nil {
				return err
			}
			data = append(data, []string{"hash", kind.String(), fmt.Sprintf("%d-byte digest", h.DigestSize())})
		}
		for _, kind := range core.FieldKinds {
			if _, err := strategy.NewField(kind); err != nil {
				return err
			}
			data = append(data, []string{"field", kind.String(), fieldDetail[kind]})
		}

		out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var fieldDetail = map[core.FieldKind]string{
	core.FieldGoldilocksMonty: "Goldilocks in Montgomery form",
	core.FieldGeneric:         "Goldilocks in canonical form",
}

func describe(o stark.Options) string {
	return fmt.Sprintf("blowup %d, %d queries, %d grinding bits, fold by %d",
		o.Blowup(), o.NumQueries, o.GrindingBits, o.FoldingFactor)
}
