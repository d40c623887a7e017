package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"audiocloud/internal/ids"
	"audiocloud/internal/logging"
	"audiocloud/internal/model"
	"audiocloud/internal/taskspec"
)

type validationReport struct {
	Valid       bool   `json:"valid"`
	Nodes       int    `json:"nodes"`
	Connections int    `json:"connections"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var specPath, catalogPath string
	var acyclic, params, asJSON bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a task spec against the model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := ctx.readSpec(specPath)
			if err != nil {
				return err
			}
			catalog, err := ctx.catalogFor(catalogPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			verr := validateSpec(spec, catalog, acyclic, params)
			report := validationReport{
				Valid:       verr == nil,
				Nodes:       len(spec.Tracks) + len(spec.Mixers) + len(spec.Dynamic) + len(spec.Fixed),
				Connections: len(spec.Connections),
			}
			if verr != nil {
				report.Error = verr.Error()
				report.ErrorKind = errorKind(verr)
				logging.WarnWithContext(cmd.Context(), ctx.logger(cmd.ErrOrStderr()), "spec failed validation", "spec_invalid",
					logging.String("spec", specPath),
					logging.String("error_kind", report.ErrorKind),
					logging.String(logging.FieldErrorHint, "fix the connection or node named in the error"),
					logging.String(logging.FieldImpact, "spec cannot be submitted"),
				)
			}

			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else if verr == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Spec valid: %d nodes, %d connections\n", report.Nodes, report.Connections)
			}
			return verr
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "Task spec file (.json or .cbor)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Model catalog file overriding the configured one")
	cmd.Flags().BoolVar(&acyclic, "acyclic", true, "Also reject specs whose node graph contains a cycle")
	cmd.Flags().BoolVar(&params, "params", true, "Also check instance parameter values against their models")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func validateSpec(spec *taskspec.TaskSpec, catalog model.Catalog, acyclic, params bool) error {
	if err := spec.Validate(catalog); err != nil {
		return err
	}
	if acyclic {
		if err := spec.ValidateAcyclic(); err != nil {
			return err
		}
	}
	if params {
		return checkParameters(spec, catalog)
	}
	return nil
}

// checkParameters verifies every dynamic and fixed instance parameter against
// the parameter table of its model. Nodes are visited in id order.
func checkParameters(spec *taskspec.TaskSpec, catalog model.Catalog) error {
	dynamicIDs := slices.Sorted(maps.Keys(spec.Dynamic))
	for _, id := range dynamicIDs {
		node := spec.Dynamic[id]
		if err := checkNodeParameters(catalog, node.ModelID, node.Parameters); err != nil {
			return fmt.Errorf("dynamic instance %s: %w", id, err)
		}
	}
	fixedIDs := slices.Sorted(maps.Keys(spec.Fixed))
	for _, id := range fixedIDs {
		node := spec.Fixed[id]
		if err := checkNodeParameters(catalog, node.InstanceID.ModelID(), node.Parameters); err != nil {
			return fmt.Errorf("fixed instance %s: %w", id, err)
		}
	}
	return nil
}

func checkNodeParameters(catalog model.Catalog, modelID ids.ModelID, values taskspec.InstanceParameters) error {
	m, err := catalog.Lookup(modelID)
	if err != nil {
		return err
	}
	for _, param := range slices.Sorted(maps.Keys(values)) {
		if err := m.CheckParameter(param, values[param]); err != nil {
			return err
		}
	}
	return nil
}

// errorKind classifies errors that carry an ErrorKind method.
func errorKind(err error) string {
	var classified interface{ ErrorKind() string }
	if errors.As(err, &classified) {
		return classified.ErrorKind()
	}
	switch {
	case errors.Is(err, model.ErrUnknownModel), errors.Is(err, model.ErrUnknownParameter):
		return "not_found"
	default:
		return "validation"
	}
}
