package taskstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"audiocloud/internal/ids"
	"audiocloud/internal/logging"
	"audiocloud/internal/metrics"
	"audiocloud/internal/taskspec"
)

// Modify applies a batch of changes to a task.
//
// ifMatch must equal the task's current version and key must hold every
// permission the changes need. On success the version goes up by one. With
// atomic batches a failure leaves the task untouched; otherwise the changes
// before the failing one stay applied and the version still goes up.
func (s *Store) Modify(ctx context.Context, taskID ids.TaskID, key ids.SecureKey, ifMatch uint64, changes []taskspec.ModifyTask) (TaskUpdated, error) {
	if err := ctx.Err(); err != nil {
		return TaskUpdated{}, err
	}
	e, err := s.lookup(taskID)
	if err != nil {
		return TaskUpdated{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	required := permissionsFor(changes)
	if err := e.check(key, ifMatch, required...); err != nil {
		return TaskUpdated{}, err
	}

	ctx = logging.WithBatchID(logging.WithTaskID(ctx, string(taskID)), newBatchID())
	s.logger.DebugContext(ctx, "applying batch",
		logging.Int("changes", len(changes)),
		logging.Any("permissions", required),
	)

	candidate := e.task.Clone()
	var swept int
	batchErr := taskspec.ApplyTaskBatch(candidate, changes, taskspec.BatchOptions{
		Atomic:       false,
		RejectCycles: s.policy.RejectCycles,
		OnSweep: func(pad taskspec.NodePadID, removed []ids.NodeConnectionID) {
			swept += len(removed)
			s.logger.DebugContext(ctx, "connections swept",
				logging.String("pad", pad.String()),
				logging.Int("count", len(removed)),
			)
		},
	})
	applied := appliedKinds(changes, batchErr)

	if batchErr != nil {
		var be *taskspec.BatchError
		kind := "unknown"
		if errors.As(batchErr, &be) && be.Kind != "" {
			kind = be.Kind
		}
		s.metrics.ObserveModification(kind, metrics.ResultRejected)
		logging.WarnWithContext(logging.WithOperation(ctx, kind), s.logger, "modification rejected", "modification_rejected",
			logging.Error(batchErr),
			logging.Bool("atomic", s.policy.AtomicBatches),
			logging.String(logging.FieldErrorHint, "fix or drop the failing operation and resubmit with the current version"),
		)
		if s.policy.AtomicBatches || len(applied) == 0 {
			return TaskUpdated{}, batchErr
		}
		s.commit(ctx, e, candidate, applied, swept)
		return TaskUpdated{AppID: e.appID, TaskID: taskID, Version: e.task.Version}, batchErr
	}

	if err := candidate.Spec.Validate(s.catalog); err != nil {
		s.metrics.IncValidationFailures()
		logging.WarnWithContext(ctx, s.logger, "modified task failed validation", "task_invalid",
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch discarded"),
		)
		return TaskUpdated{}, fmt.Errorf("validate task: %w", err)
	}

	s.commit(ctx, e, candidate, applied, swept)
	return TaskUpdated{AppID: e.appID, TaskID: taskID, Version: e.task.Version}, nil
}

// AdjustTaskTime overwrites either end of a task's time window.
type AdjustTaskTime struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// AdjustTime moves a task's window. The key needs the structure permission.
func (s *Store) AdjustTime(ctx context.Context, taskID ids.TaskID, key ids.SecureKey, ifMatch uint64, adjust AdjustTaskTime) (TaskUpdated, error) {
	e, err := s.lookup(taskID)
	if err != nil {
		return TaskUpdated{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(key, ifMatch, taskspec.PermissionStructure); err != nil {
		return TaskUpdated{}, err
	}
	window := e.task.Time
	if adjust.From != nil {
		window.From = *adjust.From
	}
	if adjust.To != nil {
		window.To = *adjust.To
	}
	if err := window.Validate(); err != nil {
		return TaskUpdated{}, err
	}
	e.task.Time = window
	e.task.Version++
	s.logger.InfoContext(logging.WithTaskID(ctx, string(taskID)), "task time adjusted",
		logging.Duration("window", window.Duration()),
		logging.Uint64("version", e.task.Version),
	)
	return TaskUpdated{AppID: e.appID, TaskID: taskID, Version: e.task.Version}, nil
}

// commit swaps in the candidate, bumps the version and records the audit trail.
// Callers hold e.mu.
func (s *Store) commit(ctx context.Context, e *entry, candidate *taskspec.Task, applied []string, swept int) {
	candidate.Version = e.task.Version + 1
	e.task = candidate
	for _, kind := range applied {
		s.metrics.ObserveModification(kind, metrics.ResultApplied)
		s.logger.InfoContext(logging.WithOperation(ctx, kind), "modification applied")
	}
	s.metrics.AddSweptConnections(swept)
	s.logger.InfoContext(ctx, "batch committed",
		logging.Int("applied", len(applied)),
		logging.Strings("kinds", applied),
		logging.Int("swept", swept),
		logging.Uint64("version", e.task.Version),
	)
}

func permissionsFor(changes []taskspec.ModifyTask) []taskspec.Permission {
	seen := make(map[taskspec.Permission]bool)
	var out []taskspec.Permission
	for _, change := range changes {
		if change == nil {
			continue
		}
		p := change.Permission()
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// appliedKinds lists the kinds of the changes that ran before any failure.
func appliedKinds(changes []taskspec.ModifyTask, batchErr error) []string {
	limit := len(changes)
	var be *taskspec.BatchError
	if errors.As(batchErr, &be) {
		limit = be.Index
	}
	kinds := make([]string, 0, limit)
	for _, change := range changes[:limit] {
		kinds = append(kinds, change.Kind())
	}
	return kinds
}
