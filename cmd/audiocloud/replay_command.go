package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audiocloud/internal/ids"
	"audiocloud/internal/metrics"
	"audiocloud/internal/taskspec"
	"audiocloud/internal/taskstore"
)

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var taskPath, batchesPath, catalogPath, key, appID string
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Create a task and run modification batches against it",
		Long: `Replay creates a task from a create-task document and submits each batch from
the batches file in order, using the version returned by the previous batch.
The batches file is a JSON or CBOR array of arrays of task changes, for example
[[{"spec": {"add_track": {"track_id": "t2", "channels": "mono"}}}]].`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			catalog, err := ctx.catalogFor(catalogPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			var req taskspec.CreateTask
			if err := ctx.readFile(taskPath, &req); err != nil {
				return err
			}
			var batches [][]taskspec.TaskChange
			if err := ctx.readFile(batchesPath, &batches); err != nil {
				return err
			}

			m := metrics.New()
			store := taskstore.New(taskstore.Options{
				Catalog: catalog,
				Policy: taskstore.Policy{
					AtomicBatches: cfg.Engine.AtomicBatches,
					RejectCycles:  cfg.Engine.RejectCycles,
				},
				Logger:  ctx.logger(cmd.ErrOrStderr()),
				Metrics: m,
			})

			created, err := store.Create(cmd.Context(), ids.AppID(appID), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task %s %s\n", created.TaskID, strings.ReplaceAll(string(created.Kind), "_", " "))
			if created.Kind == taskstore.DryRun {
				return nil
			}

			var (
				version uint64
				rows    [][]string
				failed  error
			)
			for i, batch := range batches {
				updated, err := store.Modify(cmd.Context(), created.TaskID, ids.SecureKey(key), version, taskspec.TaskChanges(batch))
				result := "ok"
				if err != nil {
					result = err.Error()
					if failed == nil {
						failed = fmt.Errorf("batch %d: %w", i+1, err)
					}
				}
				if updated.Version != 0 {
					version = updated.Version
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), strconv.Itoa(len(batch)), strconv.FormatUint(version, 10), result})
				if err != nil && !keepGoing {
					break
				}
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable(out, []string{"Batch", "Changes", "Version", "Result"}, rows, []columnAlignment{alignRight, alignRight, alignRight}))
			}

			samples, err := m.Gather()
			if err != nil {
				return errors.Join(failed, err)
			}
			fmt.Fprintln(out, renderTable(out, []string{"Metric", "Labels", "Value"}, metricRows(samples), []columnAlignment{alignLeft, alignLeft, alignRight}))
			return failed
		},
	}

	cmd.Flags().StringVar(&taskPath, "task", "", "Create-task document (.json or .cbor)")
	cmd.Flags().StringVar(&batchesPath, "batches", "", "Batches file (.json or .cbor)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Model catalog file overriding the configured one")
	cmd.Flags().StringVar(&key, "key", "", "Secure key used for every batch")
	cmd.Flags().StringVar(&appID, "app", "cli", "App id recorded on the task")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue with later batches after a failure")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("batches")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func metricRows(samples []metrics.Sample) [][]string {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		labels := make([]string, 0, len(s.Labels))
		for k, v := range s.Labels {
			labels = append(labels, k+"="+v)
		}
		sort.Strings(labels)
		rows = append(rows, []string{s.Name, strings.Join(labels, ","), strconv.FormatFloat(s.Value, 'f', -1, 64)})
	}
	return rows
}
