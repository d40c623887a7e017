package taskstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"audiocloud/internal/ids"
	"audiocloud/internal/logging"
	"audiocloud/internal/metrics"
	"audiocloud/internal/taskspec"
)

var (
	// ErrTaskNotFound is returned for unknown task ids.
	ErrTaskNotFound = errors.New("task not found")
	// ErrVersionMismatch is returned when If-Match does not equal the current version.
	ErrVersionMismatch = errors.New("task version mismatch")
	// ErrPermissionDenied is returned when the secure key lacks a needed permission.
	ErrPermissionDenied = errors.New("permission denied")
)

// Policy selects how modification batches are applied.
type Policy struct {
	AtomicBatches bool
	RejectCycles  bool
}

// DefaultPolicy is all-or-nothing batches with cycle rejection.
func DefaultPolicy() Policy { return Policy{AtomicBatches: true, RejectCycles: true} }

// Options configures a Store.
type Options struct {
	Catalog taskspec.ChannelCatalog
	Policy  Policy
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Store holds tasks in memory.
type Store struct {
	catalog taskspec.ChannelCatalog
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	tasks map[ids.TaskID]*entry
}

type entry struct {
	mu      sync.Mutex
	appID   ids.AppID
	task    *taskspec.Task
	deleted bool
}

// New returns an empty store.
func New(opts Options) *Store {
	return &Store{
		catalog: opts.Catalog,
		policy:  opts.Policy,
		logger:  logging.NewComponentLogger(opts.Logger, "taskstore"),
		metrics: opts.Metrics,
		tasks:   make(map[ids.TaskID]*entry),
	}
}

// CreatedKind tells a real creation from a dry run.
type CreatedKind string

const (
	Created CreatedKind = "created"
	DryRun  CreatedKind = "dry_run"
)

// TaskCreated is the result of Create.
type TaskCreated struct {
	Kind   CreatedKind `json:"kind"`
	AppID  ids.AppID   `json:"app_id"`
	TaskID ids.TaskID  `json:"task_id"`
}

// TaskUpdated is the result of a successful Modify or AdjustTime.
type TaskUpdated struct {
	AppID   ids.AppID  `json:"app_id"`
	TaskID  ids.TaskID `json:"task_id"`
	Version uint64     `json:"version"`
}

// TaskDeleted is the result of Delete.
type TaskDeleted struct {
	AppID   ids.AppID  `json:"app_id"`
	TaskID  ids.TaskID `json:"task_id"`
	Version uint64     `json:"version"`
}

// TaskSummary is one row of List.
type TaskSummary struct {
	AppID       ids.AppID    `json:"app_id"`
	TaskID      ids.TaskID   `json:"task_id"`
	DomainID    ids.DomainID `json:"domain_id"`
	Version     uint64       `json:"version"`
	Nodes       int          `json:"nodes"`
	Connections int          `json:"connections"`
}

// Create validates req and, unless it is a dry run, stores it as a new task.
func (s *Store) Create(ctx context.Context, appID ids.AppID, req taskspec.CreateTask) (TaskCreated, error) {
	if err := ctx.Err(); err != nil {
		return TaskCreated{}, err
	}
	if err := req.Time.Validate(); err != nil {
		return TaskCreated{}, err
	}
	task := taskspec.NewTask(req)
	if err := task.Spec.Validate(s.catalog); err != nil {
		s.metrics.IncValidationFailures()
		logging.WarnWithContext(ctx, s.logger, "task rejected", "task_invalid",
			logging.String("app_id", string(appID)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the connection named in the error and resubmit"),
		)
		return TaskCreated{}, fmt.Errorf("validate task: %w", err)
	}

	taskID := ids.NewTaskID()
	ctx = logging.WithTaskID(ctx, string(taskID))
	if req.DryRun {
		s.logger.InfoContext(ctx, "task validated (dry run)", logging.String("app_id", string(appID)))
		return TaskCreated{Kind: DryRun, AppID: appID, TaskID: taskID}, nil
	}

	s.mu.Lock()
	s.tasks[taskID] = &entry{appID: appID, task: task}
	active := len(s.tasks)
	s.mu.Unlock()

	s.metrics.SetTasksActive(active)
	s.logger.InfoContext(ctx, "task created",
		logging.String("app_id", string(appID)),
		logging.Int("nodes", nodeCount(&task.Spec)),
		logging.Int("connections", len(task.Spec.Connections)),
		logging.Float64("hours", task.Time.Duration().Hours()),
	)
	return TaskCreated{Kind: Created, AppID: appID, TaskID: taskID}, nil
}

// Get returns a copy of the task.
func (s *Store) Get(taskID ids.TaskID) (*taskspec.Task, error) {
	e, err := s.lookup(taskID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, ErrTaskNotFound
	}
	return e.task.Clone(), nil
}

// List returns a summary of every task, ordered by task id.
func (s *Store) List() []TaskSummary {
	s.mu.RLock()
	keys := make([]ids.TaskID, 0, len(s.tasks))
	for id := range s.tasks {
		keys = append(keys, id)
	}
	s.mu.RUnlock()
	slices.Sort(keys)

	out := make([]TaskSummary, 0, len(keys))
	for _, id := range keys {
		e, err := s.lookup(id)
		if err != nil {
			continue
		}
		e.mu.Lock()
		if !e.deleted {
			out = append(out, TaskSummary{
				AppID:       e.appID,
				TaskID:      id,
				DomainID:    e.task.DomainID,
				Version:     e.task.Version,
				Nodes:       nodeCount(&e.task.Spec),
				Connections: len(e.task.Spec.Connections),
			})
		}
		e.mu.Unlock()
	}
	return out
}

// Delete removes a task. The key needs the structure permission.
func (s *Store) Delete(ctx context.Context, taskID ids.TaskID, key ids.SecureKey, ifMatch uint64) (TaskDeleted, error) {
	e, err := s.lookup(taskID)
	if err != nil {
		return TaskDeleted{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(key, ifMatch, taskspec.PermissionStructure); err != nil {
		return TaskDeleted{}, err
	}
	e.deleted = true

	s.mu.Lock()
	delete(s.tasks, taskID)
	active := len(s.tasks)
	s.mu.Unlock()

	s.metrics.SetTasksActive(active)
	s.logger.InfoContext(logging.WithTaskID(ctx, string(taskID)), "task deleted", logging.Uint64("version", e.task.Version))
	return TaskDeleted{AppID: e.appID, TaskID: taskID, Version: e.task.Version}, nil
}

func (s *Store) lookup(taskID ids.TaskID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return e, nil
}

// check verifies the entry is live, the version matches and key holds perms.
// Callers hold e.mu.
func (e *entry) check(key ids.SecureKey, ifMatch uint64, perms ...taskspec.Permission) error {
	if e.deleted {
		return ErrTaskNotFound
	}
	if ifMatch != e.task.Version {
		return fmt.Errorf("%w: have %d, got %d", ErrVersionMismatch, e.task.Version, ifMatch)
	}
	granted, ok := e.task.Security[key]
	if !ok {
		return fmt.Errorf("%w: unknown secure key", ErrPermissionDenied)
	}
	for _, p := range perms {
		if !granted.Can(p) {
			return fmt.Errorf("%w: key lacks %s", ErrPermissionDenied, p)
		}
	}
	return nil
}

func nodeCount(spec *taskspec.TaskSpec) int {
	return len(spec.Tracks) + len(spec.Mixers) + len(spec.Dynamic) + len(spec.Fixed)
}

func newBatchID() string { return uuid.NewString() }
