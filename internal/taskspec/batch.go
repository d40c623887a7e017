package taskspec

import (
	"fmt"

	"audiocloud/internal/ids"
)

// BatchOptions controls ApplyBatch.
type BatchOptions struct {
	// Atomic applies the batch to a clone and commits only if every operation succeeds.
	Atomic bool
	// RejectCycles enables the cycle check on every AddConnection.
	RejectCycles bool
	// OnApplied is called after each successful operation.
	OnApplied func(index int, op Modification)
	// OnSweep receives connections removed by node deletions.
	OnSweep func(pad NodePadID, removed []ids.NodeConnectionID)
}

// BatchError reports the operation that stopped a batch.
type BatchError struct {
	Index int
	Kind  string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("operation %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// ApplyBatch applies ops in order and stops at the first failure. Without
// Atomic the operations before the failure stay applied.
func ApplyBatch(spec *TaskSpec, ops []Modification, opts BatchOptions) error {
	target := spec
	if opts.Atomic {
		target = spec.Clone()
	}

	var applyOpts []ApplyOption
	if opts.RejectCycles {
		applyOpts = append(applyOpts, WithCycleCheck())
	}
	if opts.OnSweep != nil {
		applyOpts = append(applyOpts, WithSweepObserver(opts.OnSweep))
	}

	for i, op := range ops {
		if err := target.Modify(op, applyOpts...); err != nil {
			kind := ""
			if op != nil {
				kind = op.Kind()
			}
			return &BatchError{Index: i, Kind: kind, Err: err}
		}
		if opts.OnApplied != nil {
			opts.OnApplied(i, op)
		}
	}

	if opts.Atomic {
		*spec = *target
	}
	return nil
}
