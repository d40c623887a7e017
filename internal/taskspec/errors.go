package taskspec

import (
	"errors"
	"fmt"
)

// Category sentinels. Every *ModifyError unwraps to exactly one of them.
var (
	ErrExists       = errors.New("already exists")
	ErrDoesNotExist = errors.New("does not exist")
	ErrMalformed    = errors.New("malformed")
	ErrCycle        = errors.New("cycle detected")
)

// Validation sentinels.
var (
	ErrNoNodes               = errors.New("no tracks, mixers, dynamic instances, or fixed instances declared")
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// ModifyErrorType is the stable wire discriminant of a ModifyError.
type ModifyErrorType string

const (
	TrackExists                 ModifyErrorType = "track_exists"
	FixedInstanceExists         ModifyErrorType = "fixed_instance_exists"
	DynamicInstanceExists       ModifyErrorType = "dynamic_instance_exists"
	MixerExists                 ModifyErrorType = "mixer_exists"
	TrackDoesNotExist           ModifyErrorType = "track_does_not_exist"
	FixedInstanceDoesNotExist   ModifyErrorType = "fixed_instance_does_not_exist"
	DynamicInstanceDoesNotExist ModifyErrorType = "dynamic_instance_does_not_exist"
	MixerDoesNotExist           ModifyErrorType = "mixer_does_not_exist"
	ConnectionExists            ModifyErrorType = "connection_exists"
	ConnectionDoesNotExist      ModifyErrorType = "connection_does_not_exist"
	ConnectionMalformed         ModifyErrorType = "connection_malformed"
	TrackMalformed              ModifyErrorType = "track_malformed"
	MediaExists                 ModifyErrorType = "media_exists"
	MediaDoesNotExist           ModifyErrorType = "media_does_not_exist"
	CycleDetected               ModifyErrorType = "cycle_detected"
)

var existsByKind = map[NodeKind]ModifyErrorType{
	NodeTrack:           TrackExists,
	NodeMixer:           MixerExists,
	NodeFixedInstance:   FixedInstanceExists,
	NodeDynamicInstance: DynamicInstanceExists,
}

var missingByKind = map[NodeKind]ModifyErrorType{
	NodeTrack:           TrackDoesNotExist,
	NodeMixer:           MixerDoesNotExist,
	NodeFixedInstance:   FixedInstanceDoesNotExist,
	NodeDynamicInstance: DynamicInstanceDoesNotExist,
}

// ModifyError is the structured failure of a single modification. It
// serializes as {"type": ..., "node_id"?, "media_id"?, "connection_id"?, "message"?}.
type ModifyError struct {
	Type         ModifyErrorType `json:"type"`
	NodeID       string          `json:"node_id,omitempty"`
	MediaID      string          `json:"media_id,omitempty"`
	ConnectionID string          `json:"connection_id,omitempty"`
	Message      string          `json:"message,omitempty"`
}

func (e *ModifyError) Error() string {
	switch e.Type {
	case TrackExists:
		return fmt.Sprintf("track %s already exists", e.NodeID)
	case FixedInstanceExists:
		return fmt.Sprintf("fixed instance node %s already exists", e.NodeID)
	case DynamicInstanceExists:
		return fmt.Sprintf("dynamic instance node %s already exists", e.NodeID)
	case MixerExists:
		return fmt.Sprintf("mixer node %s already exists", e.NodeID)
	case TrackDoesNotExist:
		return fmt.Sprintf("track %s does not exist", e.NodeID)
	case FixedInstanceDoesNotExist:
		return fmt.Sprintf("fixed instance node %s does not exist", e.NodeID)
	case DynamicInstanceDoesNotExist:
		return fmt.Sprintf("dynamic instance node %s does not exist", e.NodeID)
	case MixerDoesNotExist:
		return fmt.Sprintf("mixer node %s does not exist", e.NodeID)
	case ConnectionExists:
		return fmt.Sprintf("connection %s already exists", e.ConnectionID)
	case ConnectionDoesNotExist:
		return fmt.Sprintf("connection %s does not exist", e.ConnectionID)
	case ConnectionMalformed:
		return fmt.Sprintf("connection %s is malformed: %s", e.ConnectionID, e.Message)
	case TrackMalformed:
		return fmt.Sprintf("track %s is malformed: %s", e.NodeID, e.Message)
	case MediaExists:
		return fmt.Sprintf("media %s already exists on track %s", e.MediaID, e.NodeID)
	case MediaDoesNotExist:
		return fmt.Sprintf("media %s does not exist on track %s", e.MediaID, e.NodeID)
	case CycleDetected:
		return fmt.Sprintf("connection %s would create a cycle: %s", e.ConnectionID, e.Message)
	default:
		return fmt.Sprintf("modify error %s", e.Type)
	}
}

func (e *ModifyError) Unwrap() error {
	switch e.Type {
	case TrackExists, FixedInstanceExists, DynamicInstanceExists, MixerExists, ConnectionExists, MediaExists:
		return ErrExists
	case ConnectionMalformed, TrackMalformed:
		return ErrMalformed
	case CycleDetected:
		return ErrCycle
	default:
		return ErrDoesNotExist
	}
}

// ErrorKind classifies the error for callers that map failures to responses.
func (e *ModifyError) ErrorKind() string {
	switch e.Unwrap() {
	case ErrExists:
		return "conflict"
	case ErrDoesNotExist:
		return "not_found"
	default:
		return "validation"
	}
}

func nodeExists(ref NodeRef) *ModifyError {
	return &ModifyError{Type: existsByKind[ref.Kind], NodeID: ref.ID}
}

func nodeMissing(ref NodeRef) *ModifyError {
	return &ModifyError{Type: missingByKind[ref.Kind], NodeID: ref.ID}
}

// ValidationError reports a structural problem found by Validate.
type ValidationError struct {
	ConnectionID string `json:"connection_id"`
	Message      string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInternalInconsistency, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInternalInconsistency }

// ErrorKind classifies validation failures.
func (e *ValidationError) ErrorKind() string { return "validation" }
