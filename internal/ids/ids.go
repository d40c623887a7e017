package ids

import (
	"strings"

	"github.com/google/uuid"
)

// TrackNodeID identifies a track node within a task.
type TrackNodeID string

// MixerNodeID identifies a mixer node within a task.
type MixerNodeID string

// FixedInstanceNodeID identifies a fixed (hardware) instance node within a task.
type FixedInstanceNodeID string

// DynamicInstanceNodeID identifies a dynamic (software) instance node within a task.
type DynamicInstanceNodeID string

// NodeConnectionID identifies a connection between two node pads.
type NodeConnectionID string

// TrackMediaID identifies a media item placed on a track.
type TrackMediaID string

// ParameterID names a model parameter.
type ParameterID string

// ReportID names a model report.
type ReportID string

// MediaObjectID references a stored media object.
type MediaObjectID string

// SecureKey is a credential granting permissions on a task.
type SecureKey string

// DomainID identifies the domain executing a task.
type DomainID string

// AppID identifies the application owning a task.
type AppID string

// TaskID identifies a task.
type TaskID string

func (id TrackNodeID) String() string           { return string(id) }
func (id MixerNodeID) String() string           { return string(id) }
func (id FixedInstanceNodeID) String() string   { return string(id) }
func (id DynamicInstanceNodeID) String() string { return string(id) }
func (id NodeConnectionID) String() string      { return string(id) }
func (id TrackMediaID) String() string          { return string(id) }
func (id ParameterID) String() string           { return string(id) }
func (id TaskID) String() string                { return string(id) }

// NewTaskID returns a random task identifier.
func NewTaskID() TaskID {
	return TaskID(uuid.NewString())
}

// ParseTaskID validates a task identifier supplied by a caller.
func ParseTaskID(raw string) (TaskID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return TaskID(parsed.String()), nil
}
