package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audiocloud/internal/ids"
	"audiocloud/internal/model"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect the model catalog",
	}
	modelsCmd.AddCommand(newModelsListCommand(ctx))
	modelsCmd.AddCommand(newModelsShowCommand(ctx))
	return modelsCmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	var filter model.Filter
	var catalogPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog models",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.catalogFor(catalogPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			entries := catalog.Filter(filter)
			if asJSON {
				listing := make(map[string]model.Model, len(entries))
				for _, entry := range entries {
					listing[entry.ID.String()] = entry.Model
				}
				return writeJSON(cmd, listing)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No models match")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.ID.String(),
					strconv.Itoa(entry.Model.InputCount()),
					strconv.Itoa(entry.Model.OutputCount()),
					strconv.Itoa(len(entry.Model.Parameters)),
					strconv.Itoa(len(entry.Model.Reports)),
					yesNo(entry.Model.Media),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Model", "Inputs", "Outputs", "Parameters", "Reports", "Media"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.ManufacturerIs, "manufacturer", "", "Only models from this manufacturer")
	cmd.Flags().StringVar(&filter.NameContains, "name-contains", "", "Only models whose name contains this text")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Model catalog file overriding the configured one")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print models as JSON")
	return cmd
}

func newModelsShowCommand(ctx *commandContext) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "show <manufacturer/name>",
		Short: "Show the parameters and reports of one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ids.ParseModelID(args[0])
			if err != nil {
				return err
			}
			catalog, err := ctx.catalogFor(catalogPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			m, err := catalog.Lookup(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d in, %d out\n", id, m.InputCount(), m.OutputCount())
			if len(m.Capabilities) > 0 {
				fmt.Fprintf(out, "Capabilities: %s\n", strings.Join(m.Capabilities, ", "))
			}
			rows := make([][]string, 0, len(m.Parameters)+len(m.Reports))
			for _, pid := range slices.Sorted(maps.Keys(m.Parameters)) {
				p := m.Parameters[pid]
				rows = append(rows, []string{"parameter", string(pid), p.Scope.String(), p.Unit, strconv.Itoa(len(p.Values))})
			}
			for _, rid := range slices.Sorted(maps.Keys(m.Reports)) {
				r := m.Reports[rid]
				rows = append(rows, []string{"report", string(rid), r.Scope.String(), r.Unit, strconv.Itoa(len(r.Values))})
			}
			if len(rows) == 0 {
				return nil
			}
			fmt.Fprintln(out, renderTable(out, []string{"Kind", "ID", "Scope", "Unit", "Options"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Model catalog file overriding the configured one")
	return cmd
}
