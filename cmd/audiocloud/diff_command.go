package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audiocloud/internal/taskspec"
)

func newDiffCommand(ctx *commandContext) *cobra.Command {
	var fromPath, toPath, outPath, format string
	var summary bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Print the modifications that turn one spec into another",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := ctx.readSpec(fromPath)
			if err != nil {
				return err
			}
			to, err := ctx.readSpec(toPath)
			if err != nil {
				return err
			}
			ops, err := taskspec.Diff(from, to)
			if err != nil {
				return fmt.Errorf("diff specs: %w", err)
			}

			if summary {
				rows := make([][]string, 0, len(ops))
				for i, op := range ops {
					rows = append(rows, []string{fmt.Sprint(i + 1), kindLabel(op.Kind()), string(op.Permission())})
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "Specs are identical")
					return nil
				}
				fmt.Fprintln(out, renderTable(out, []string{"#", "Operation", "Permission"}, rows, []columnAlignment{alignRight}))
				return nil
			}
			return writeChanges(cmd, ctx, taskspec.Changes(ops), outPath, format)
		},
	}

	cmd.Flags().StringVar(&fromPath, "from", "", "Current spec file")
	cmd.Flags().StringVar(&toPath, "to", "", "Desired spec file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the modification list here instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "Output encoding: json or cbor")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a table of operations instead of the encoded list")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
