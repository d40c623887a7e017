package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"audiocloud/internal/codec"
	"audiocloud/internal/config"
	"audiocloud/internal/fileutil"
	"audiocloud/internal/ids"
	"audiocloud/internal/logging"
	"audiocloud/internal/taskspec"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var specPath, changesPath, outPath, format, catalogPath string
	var atomic, noCycleCheck, skipValidate bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a batch of modifications to a task spec",
		Long: `Apply reads a task spec and a list of modifications, applies them in order and
writes the resulting spec. The modifications file is a JSON or CBOR array of
externally tagged changes such as {"add_track": {"track_id": "t1", "channels": "stereo"}}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			spec, err := ctx.readSpec(specPath)
			if err != nil {
				return err
			}
			ops, err := ctx.readChanges(changesPath)
			if err != nil {
				return err
			}

			opts := taskspec.BatchOptions{
				Atomic:       cfg.Engine.AtomicBatches,
				RejectCycles: cfg.Engine.RejectCycles && !noCycleCheck,
			}
			if cmd.Flags().Changed("atomic") {
				opts.Atomic = atomic
			}

			logger := logging.NewComponentLogger(ctx.logger(cmd.ErrOrStderr()), "apply")
			runCtx := logging.WithBatchID(cmd.Context(), uuid.NewString())
			swept := 0
			opts.OnApplied = func(index int, op taskspec.Modification) {
				logger.DebugContext(logging.WithOperation(runCtx, op.Kind()), "modification applied", logging.Int("index", index))
			}
			opts.OnSweep = func(pad taskspec.NodePadID, removed []ids.NodeConnectionID) {
				swept += len(removed)
			}

			if err := taskspec.ApplyBatch(spec, ops, opts); err != nil {
				logging.ErrorWithContext(runCtx, logger, "batch rejected", "batch_rejected",
					logging.Error(err),
					logging.Bool("atomic", opts.Atomic),
					logging.String(logging.FieldErrorHint, "fix the failing operation; earlier operations are kept only without --atomic"),
				)
				if opts.Atomic {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: writing partially applied spec")
				if werr := writeSpec(cmd, ctx, spec, outPath, format); werr != nil {
					return werr
				}
				return err
			}

			if !skipValidate {
				catalog, err := ctx.catalogFor(catalogPath)
				if err != nil {
					return fmt.Errorf("load catalog: %w", err)
				}
				if err := spec.Validate(catalog); err != nil {
					return fmt.Errorf("resulting spec is invalid: %w", err)
				}
			}
			logger.InfoContext(runCtx, "batch applied", logging.Int("operations", len(ops)), logging.Int("swept", swept))
			return writeSpec(cmd, ctx, spec, outPath, format)
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "Task spec file (.json or .cbor)")
	cmd.Flags().StringVar(&changesPath, "changes", "", "Modifications file (.json or .cbor)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the resulting spec here instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "Output encoding: json or cbor (default from engine.wire_format)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Model catalog file overriding the configured one")
	cmd.Flags().BoolVar(&atomic, "atomic", true, "Discard every change when one fails (default from engine.atomic_batches)")
	cmd.Flags().BoolVar(&noCycleCheck, "no-cycle-check", false, "Allow connections that close a cycle")
	cmd.Flags().BoolVar(&skipValidate, "skip-validate", false, "Do not validate the resulting spec")
	_ = cmd.MarkFlagRequired("spec")
	_ = cmd.MarkFlagRequired("changes")
	return cmd
}

// writeSpec encodes spec to outPath, or to stdout when outPath is empty.
func writeSpec(cmd *cobra.Command, ctx *commandContext, spec *taskspec.TaskSpec, outPath, format string) error {
	return writeEncoded(cmd, ctx, spec, outPath, format)
}

// writeChanges encodes a modification list the same way.
func writeChanges(cmd *cobra.Command, ctx *commandContext, changes []taskspec.Change, outPath, format string) error {
	return writeEncoded(cmd, ctx, changes, outPath, format)
}

func writeEncoded(cmd *cobra.Command, ctx *commandContext, v any, outPath, format string) error {
	c, err := outputCodec(ctx, outPath, format)
	if err != nil {
		return err
	}
	if strings.TrimSpace(outPath) == "" && c.ContentType() == codec.JSON().ContentType() {
		return writeJSON(cmd, v)
	}
	data, err := c.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if strings.TrimSpace(outPath) == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	target, err := config.ExpandPath(outPath)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFile(target, data); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", target)
	return nil
}

// outputCodec picks --format, then the output extension, then engine.wire_format.
func outputCodec(ctx *commandContext, outPath, format string) (codec.Codec, error) {
	registry, err := ctx.codecRegistry()
	if err != nil {
		return nil, err
	}
	if f := strings.TrimSpace(format); f != "" {
		return registry.Lookup(f)
	}
	if strings.TrimSpace(outPath) != "" {
		return registry.ForPath(outPath), nil
	}
	return registry.Lookup(ctx.configValue().Engine.WireFormat)
}
