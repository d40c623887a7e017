package taskspec

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	cbor "github.com/fxamacker/cbor/v2"

	"audiocloud/internal/ids"
)

// ErrInvalidTimeRange is returned when a task window ends before it starts.
var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeRange is the window a task reserves resources for.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Validate requires To to be after From.
func (r TimeRange) Validate() error {
	if !r.To.After(r.From) {
		return fmt.Errorf("%w: %s is not after %s", ErrInvalidTimeRange, r.To.Format(time.RFC3339), r.From.Format(time.RFC3339))
	}
	return nil
}

// Duration returns To minus From.
func (r TimeRange) Duration() time.Duration { return r.To.Sub(r.From) }

// Permission is one capability a secure key can hold on a task.
type Permission string

const (
	PermissionStructure  Permission = "structure"
	PermissionMedia      Permission = "media"
	PermissionParameters Permission = "parameters"
	PermissionTransport  Permission = "transport"
	PermissionAudio      Permission = "audio"
)

// TaskPermissions is the permission set of one secure key.
type TaskPermissions struct {
	Structure  bool `json:"structure"`
	Media      bool `json:"media"`
	Parameters bool `json:"parameters"`
	Transport  bool `json:"transport"`
	Audio      bool `json:"audio"`
}

// FullPermissions grants everything.
func FullPermissions() TaskPermissions {
	return TaskPermissions{Structure: true, Media: true, Parameters: true, Transport: true, Audio: true}
}

// Can reports whether p is granted.
func (t TaskPermissions) Can(p Permission) bool {
	switch p {
	case PermissionStructure:
		return t.Structure
	case PermissionMedia:
		return t.Media
	case PermissionParameters:
		return t.Parameters
	case PermissionTransport:
		return t.Transport
	case PermissionAudio:
		return t.Audio
	default:
		return false
	}
}

// Task is a spec plus the metadata its owner tracks.
type Task struct {
	DomainID ids.DomainID                      `json:"domain_id"`
	Time     TimeRange                         `json:"time"`
	Spec     TaskSpec                          `json:"spec"`
	Security map[ids.SecureKey]TaskPermissions `json:"security"`
	Version  uint64                            `json:"version"`
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	out := *t
	out.Spec = *t.Spec.Clone()
	out.Security = maps.Clone(t.Security)
	if out.Security == nil {
		out.Security = map[ids.SecureKey]TaskPermissions{}
	}
	return &out
}

// CreateTask is the inbound request that seeds a task.
type CreateTask struct {
	Domain      ids.DomainID                                      `json:"domain"`
	Time        TimeRange                                         `json:"time"`
	Tracks      map[ids.TrackNodeID]TrackNode                     `json:"tracks,omitempty"`
	Mixers      map[ids.MixerNodeID]MixerNode                     `json:"mixers,omitempty"`
	Dynamic     map[ids.DynamicInstanceNodeID]DynamicInstanceNode `json:"dynamic,omitempty"`
	Fixed       map[ids.FixedInstanceNodeID]FixedInstanceNode     `json:"fixed,omitempty"`
	Connections map[ids.NodeConnectionID]NodeConnection           `json:"connections,omitempty"`
	Security    map[ids.SecureKey]TaskPermissions                 `json:"security,omitempty"`
	DryRun      bool                                              `json:"dry_run"`
}

// NewTask converts a create request into a version 0 task. The maps are copied.
func NewTask(req CreateTask) *Task {
	spec := (&TaskSpec{
		Tracks:      req.Tracks,
		Mixers:      req.Mixers,
		Dynamic:     req.Dynamic,
		Fixed:       req.Fixed,
		Connections: req.Connections,
	}).Clone()
	security := maps.Clone(req.Security)
	if security == nil {
		security = map[ids.SecureKey]TaskPermissions{}
	}
	return &Task{DomainID: req.Domain, Time: req.Time, Spec: *spec, Security: security}
}

// ModifyTask is one change to a task: a spec modification or a security update.
type ModifyTask interface {
	Kind() string
	Permission() Permission
	applyTask(t *Task, cfg *applyConfig) error
}

// SpecChange wraps a spec modification.
type SpecChange struct {
	Spec Change `json:"spec"`
}

// SetSecurity adds or overwrites the permissions of a key.
type SetSecurity struct {
	Key      ids.SecureKey   `json:"key"`
	Security TaskPermissions `json:"security"`
}

// RevokeSecurity removes a key. Revoking an unknown key succeeds.
type RevokeSecurity struct {
	Key ids.SecureKey `json:"key"`
}

// Kind reports the wrapped modification's kind so audit lines name the real operation.
func (c SpecChange) Kind() string {
	if c.Spec.Modification == nil {
		return "spec"
	}
	return c.Spec.Kind()
}

func (SetSecurity) Kind() string    { return "set_security" }
func (RevokeSecurity) Kind() string { return "revoke_security" }

func (c SpecChange) Permission() Permission {
	if c.Spec.Modification == nil {
		return PermissionStructure
	}
	return c.Spec.Permission()
}

func (SetSecurity) Permission() Permission    { return PermissionStructure }
func (RevokeSecurity) Permission() Permission { return PermissionStructure }

func (c SpecChange) applyTask(t *Task, cfg *applyConfig) error {
	if c.Spec.Modification == nil {
		return fmt.Errorf("spec change: empty modification")
	}
	return c.Spec.Modification.apply(&t.Spec, cfg)
}

func (c SetSecurity) applyTask(t *Task, _ *applyConfig) error {
	if t.Security == nil {
		t.Security = map[ids.SecureKey]TaskPermissions{}
	}
	t.Security[c.Key] = c.Security
	return nil
}

func (c RevokeSecurity) applyTask(t *Task, _ *applyConfig) error {
	delete(t.Security, c.Key)
	return nil
}

// ApplyChange applies one task change. On error the task is unchanged.
func (t *Task) ApplyChange(change ModifyTask, opts ...ApplyOption) error {
	if change == nil {
		return fmt.Errorf("apply change: nil change")
	}
	return change.applyTask(t, newApplyConfig(opts))
}

// ApplyTaskBatch applies changes in order with the same semantics as ApplyBatch.
func ApplyTaskBatch(task *Task, changes []ModifyTask, opts BatchOptions) error {
	target := task
	if opts.Atomic {
		target = task.Clone()
	}
	cfg := &applyConfig{cycleCheck: opts.RejectCycles, onSweep: opts.OnSweep}
	for i, change := range changes {
		if change == nil {
			return &BatchError{Index: i, Err: fmt.Errorf("nil change")}
		}
		if err := change.applyTask(target, cfg); err != nil {
			return &BatchError{Index: i, Kind: change.Kind(), Err: err}
		}
		if opts.OnApplied != nil {
			if sc, ok := change.(SpecChange); ok {
				opts.OnApplied(i, sc.Spec.Modification)
			}
		}
	}
	if opts.Atomic {
		*task = *target
	}
	return nil
}

// GenerateChanges lists the security changes that turn t's table into other's.
// Set operations come first in key order, then revocations.
func (t *Task) GenerateChanges(other *Task) []ModifyTask {
	diff := mapChanges(t.Security, other.Security, func(a, b TaskPermissions) bool { return a == b })
	var out []ModifyTask
	for _, key := range diff.upserts() {
		sec := diff.Changed[key]
		if added, ok := diff.Added[key]; ok {
			sec = added
		}
		out = append(out, SetSecurity{Key: key, Security: sec})
	}
	for _, key := range diff.Removed {
		out = append(out, RevokeSecurity{Key: key})
	}
	return out
}

// mapDiff is the key-level difference between two maps.
type mapDiff[K cmp.Ordered, V any] struct {
	Added   map[K]V
	Changed map[K]V
	Removed []K
}

func (d mapDiff[K, V]) upserts() []K {
	keys := slices.Collect(maps.Keys(d.Changed))
	keys = append(keys, slices.Collect(maps.Keys(d.Added))...)
	slices.Sort(keys)
	return keys
}

func mapChanges[K cmp.Ordered, V any](from, to map[K]V, equal func(a, b V) bool) mapDiff[K, V] {
	diff := mapDiff[K, V]{Added: map[K]V{}, Changed: map[K]V{}}
	for key, next := range to {
		prev, ok := from[key]
		switch {
		case !ok:
			diff.Added[key] = next
		case !equal(prev, next):
			diff.Changed[key] = next
		}
	}
	for key := range from {
		if _, ok := to[key]; !ok {
			diff.Removed = append(diff.Removed, key)
		}
	}
	slices.Sort(diff.Removed)
	return diff
}

type taskChangeDecoder func(unmarshal func([]byte, any) error, data []byte) (ModifyTask, error)

func decodeTaskAs[T ModifyTask](unmarshal func([]byte, any) error, data []byte) (ModifyTask, error) {
	var change T
	if err := unmarshal(data, &change); err != nil {
		return nil, err
	}
	return change, nil
}

var taskDecoders = map[string]taskChangeDecoder{
	"spec":            decodeTaskAs[SpecChange],
	"set_security":    decodeTaskAs[SetSecurity],
	"revoke_security": decodeTaskAs[RevokeSecurity],
}

func taskWireKey(change ModifyTask) string {
	if _, ok := change.(SpecChange); ok {
		return "spec"
	}
	return change.Kind()
}

// TaskChange carries a ModifyTask across the wire, externally tagged:
// {"spec": {"spec": {...}}}, {"set_security": {...}}, {"revoke_security": {...}}.
type TaskChange struct {
	ModifyTask
}

func (c TaskChange) MarshalJSON() ([]byte, error) {
	if c.ModifyTask == nil {
		return nil, fmt.Errorf("task change: empty change")
	}
	return json.Marshal(map[string]ModifyTask{taskWireKey(c.ModifyTask): c.ModifyTask})
}

func (c *TaskChange) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("task change: %w", err)
	}
	change, err := decodeTaskTagged(raw, json.Unmarshal)
	if err != nil {
		return err
	}
	c.ModifyTask = change
	return nil
}

func (c TaskChange) MarshalCBOR() ([]byte, error) {
	if c.ModifyTask == nil {
		return nil, fmt.Errorf("task change: empty change")
	}
	return cbor.Marshal(map[string]ModifyTask{taskWireKey(c.ModifyTask): c.ModifyTask})
}

func (c *TaskChange) UnmarshalCBOR(data []byte) error {
	var raw map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("task change: %w", err)
	}
	change, err := decodeTaskTagged(raw, cbor.Unmarshal)
	if err != nil {
		return err
	}
	c.ModifyTask = change
	return nil
}

func decodeTaskTagged[R ~[]byte](raw map[string]R, unmarshal func([]byte, any) error) (ModifyTask, error) {
	if len(raw) != 1 {
		return nil, fmt.Errorf("task change: expected exactly one key, got %d", len(raw))
	}
	for key, body := range raw {
		decode, ok := taskDecoders[key]
		if !ok {
			return nil, fmt.Errorf("task change: unknown variant %q", key)
		}
		change, err := decode(unmarshal, body)
		if err != nil {
			return nil, fmt.Errorf("task change %s: %w", key, err)
		}
		return change, nil
	}
	return nil, nil
}

// TaskChanges unwraps decoded task changes.
func TaskChanges(changes []TaskChange) []ModifyTask {
	out := make([]ModifyTask, len(changes))
	for i, c := range changes {
		out[i] = c.ModifyTask
	}
	return out
}
