package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audiocloud/internal/taskspec"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var specPath, catalogPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the nodes and connections of a task spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := ctx.readSpec(specPath)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, spec)
			}
			catalog, err := ctx.catalogFor(catalogPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Nodes")
			fmt.Fprintln(out, renderTable(out,
				[]string{"Kind", "ID", "Inputs", "Outputs", "Details"},
				nodeRows(spec, catalog),
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Connections")
			if len(spec.Connections) == 0 {
				fmt.Fprintln(out, "(none)")
				return nil
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "From", "To", "Channels", "Volume", "Pan"},
				connectionRows(spec),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "Task spec file (.json or .cbor)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Model catalog file overriding the configured one")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the decoded spec as JSON")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func nodeRows(spec *taskspec.TaskSpec, catalog taskspec.ChannelCatalog) [][]string {
	var rows [][]string
	add := func(kind taskspec.NodeKind, id string, node taskspec.Node, details string) {
		in, out, err := node.Capacity(catalog)
		inText, outText := strconv.Itoa(in), strconv.Itoa(out)
		if err != nil {
			inText, outText = "?", "?"
			details = strings.TrimSpace(details + " (" + err.Error() + ")")
		}
		rows = append(rows, []string{kindLabel(kind.String()), id, inText, outText, details})
	}
	for _, id := range slices.Sorted(maps.Keys(spec.Tracks)) {
		track := spec.Tracks[id]
		add(taskspec.NodeTrack, string(id), track, fmt.Sprintf("%s, %d media", track.Channels, len(track.Media)))
	}
	for _, id := range slices.Sorted(maps.Keys(spec.Mixers)) {
		add(taskspec.NodeMixer, string(id), spec.Mixers[id], "")
	}
	for _, id := range slices.Sorted(maps.Keys(spec.Fixed)) {
		node := spec.Fixed[id]
		add(taskspec.NodeFixedInstance, string(id), node, fmt.Sprintf("%s, wet %.2f, %d params", node.InstanceID, node.Wet, len(node.Parameters)))
	}
	for _, id := range slices.Sorted(maps.Keys(spec.Dynamic)) {
		node := spec.Dynamic[id]
		add(taskspec.NodeDynamicInstance, string(id), node, fmt.Sprintf("%s, %d params", node.ModelID, len(node.Parameters)))
	}
	return rows
}

func connectionRows(spec *taskspec.TaskSpec) [][]string {
	rows := make([][]string, 0, len(spec.Connections))
	for _, id := range spec.ConnectionIDs() {
		conn := spec.Connections[id]
		rows = append(rows, []string{
			string(id),
			conn.From.String(),
			conn.To.String(),
			conn.FromChannels.String() + " → " + conn.ToChannels.String(),
			strconv.FormatFloat(conn.Volume, 'f', 2, 64),
			strconv.FormatFloat(conn.Pan, 'f', 2, 64),
		})
	}
	return rows
}
