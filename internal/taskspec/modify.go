package taskspec

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	cbor "github.com/fxamacker/cbor/v2"

	"audiocloud/internal/ids"
)

// Modification is one change request against a TaskSpec. The set is closed:
// only the types in this package implement it.
type Modification interface {
	// Kind is the stable snake_case discriminant used on the wire and in audit logs.
	Kind() string
	// Permission names the task permission a caller needs to submit the change.
	Permission() Permission
	apply(s *TaskSpec, cfg *applyConfig) error
}

type AddTrack struct {
	TrackID  ids.TrackNodeID `json:"track_id"`
	Channels MediaChannels   `json:"channels"`
}

type AddTrackMedia struct {
	TrackID ids.TrackNodeID  `json:"track_id"`
	MediaID ids.TrackMediaID `json:"media_id"`
	Spec    TrackMedia       `json:"spec"`
}

type UpdateTrackMedia struct {
	TrackID ids.TrackNodeID  `json:"track_id"`
	MediaID ids.TrackMediaID `json:"media_id"`
	Update  TrackMediaUpdate `json:"update"`
}

type DeleteTrackMedia struct {
	TrackID ids.TrackNodeID  `json:"track_id"`
	MediaID ids.TrackMediaID `json:"media_id"`
}

type DeleteTrack struct {
	TrackID ids.TrackNodeID `json:"track_id"`
}

type AddFixedInstance struct {
	FixedID ids.FixedInstanceNodeID `json:"fixed_id"`
	Spec    FixedInstanceNode       `json:"spec"`
}

type AddDynamicInstance struct {
	DynamicID ids.DynamicInstanceNodeID `json:"dynamic_id"`
	Spec      DynamicInstanceNode       `json:"spec"`
}

type AddMixer struct {
	MixerID ids.MixerNodeID `json:"mixer_id"`
	Spec    MixerNode       `json:"spec"`
}

type DeleteMixer struct {
	MixerID ids.MixerNodeID `json:"mixer_id"`
}

type DeleteFixedInstance struct {
	FixedID ids.FixedInstanceNodeID `json:"fixed_id"`
}

type DeleteDynamicInstance struct {
	DynamicID ids.DynamicInstanceNodeID `json:"dynamic_id"`
}

type DeleteConnection struct {
	ConnectionID ids.NodeConnectionID `json:"connection_id"`
}

type AddConnection struct {
	ConnectionID ids.NodeConnectionID `json:"connection_id"`
	From         NodePadID            `json:"from"`
	To           NodePadID            `json:"to"`
	FromChannels ChannelMask          `json:"from_channels"`
	ToChannels   ChannelMask          `json:"to_channels"`
	Volume       float64              `json:"volume"`
	Pan          float64              `json:"pan"`
}

// Connection returns the record the operation would insert.
func (op AddConnection) Connection() NodeConnection {
	return NodeConnection{
		From:         op.From,
		To:           op.To,
		FromChannels: op.FromChannels,
		ToChannels:   op.ToChannels,
		Volume:       op.Volume,
		Pan:          op.Pan,
	}
}

type SetConnectionParameterValues struct {
	ConnectionID ids.NodeConnectionID `json:"connection_id"`
	Values       ConnectionValues     `json:"values"`
}

type SetFixedInstanceParameterValues struct {
	FixedID ids.FixedInstanceNodeID `json:"fixed_id"`
	Values  InstanceParameters      `json:"values"`
}

type SetDynamicInstanceParameterValues struct {
	DynamicID ids.DynamicInstanceNodeID `json:"dynamic_id"`
	Values    InstanceParameters        `json:"values"`
}

func (AddTrack) Kind() string                          { return "add_track" }
func (AddTrackMedia) Kind() string                     { return "add_track_media" }
func (UpdateTrackMedia) Kind() string                  { return "update_track_media" }
func (DeleteTrackMedia) Kind() string                  { return "delete_track_media" }
func (DeleteTrack) Kind() string                       { return "delete_track" }
func (AddFixedInstance) Kind() string                  { return "add_fixed_instance" }
func (AddDynamicInstance) Kind() string                { return "add_dynamic_instance" }
func (AddMixer) Kind() string                          { return "add_mixer" }
func (DeleteMixer) Kind() string                       { return "delete_mixer" }
func (DeleteFixedInstance) Kind() string               { return "delete_fixed_instance" }
func (DeleteDynamicInstance) Kind() string             { return "delete_dynamic_instance" }
func (DeleteConnection) Kind() string                  { return "delete_connection" }
func (AddConnection) Kind() string                     { return "add_connection" }
func (SetConnectionParameterValues) Kind() string      { return "set_connection_parameter_values" }
func (SetFixedInstanceParameterValues) Kind() string   { return "set_fixed_instance_parameter_values" }
func (SetDynamicInstanceParameterValues) Kind() string { return "set_dynamic_instance_parameter_values" }

func (AddTrack) Permission() Permission                          { return PermissionStructure }
func (AddTrackMedia) Permission() Permission                     { return PermissionMedia }
func (UpdateTrackMedia) Permission() Permission                  { return PermissionMedia }
func (DeleteTrackMedia) Permission() Permission                  { return PermissionMedia }
func (DeleteTrack) Permission() Permission                       { return PermissionStructure }
func (AddFixedInstance) Permission() Permission                  { return PermissionStructure }
func (AddDynamicInstance) Permission() Permission                { return PermissionStructure }
func (AddMixer) Permission() Permission                          { return PermissionStructure }
func (DeleteMixer) Permission() Permission                       { return PermissionStructure }
func (DeleteFixedInstance) Permission() Permission               { return PermissionStructure }
func (DeleteDynamicInstance) Permission() Permission             { return PermissionStructure }
func (DeleteConnection) Permission() Permission                  { return PermissionStructure }
func (AddConnection) Permission() Permission                     { return PermissionStructure }
func (SetConnectionParameterValues) Permission() Permission      { return PermissionParameters }
func (SetFixedInstanceParameterValues) Permission() Permission   { return PermissionParameters }
func (SetDynamicInstanceParameterValues) Permission() Permission { return PermissionParameters }

type decodeFunc func(unmarshal func([]byte, any) error, data []byte) (Modification, error)

func decodeAs[T Modification](unmarshal func([]byte, any) error, data []byte) (Modification, error) {
	var op T
	if err := unmarshal(data, &op); err != nil {
		return nil, err
	}
	return op, nil
}

var decoders = map[string]decodeFunc{
	AddTrack{}.Kind():                          decodeAs[AddTrack],
	AddTrackMedia{}.Kind():                     decodeAs[AddTrackMedia],
	UpdateTrackMedia{}.Kind():                  decodeAs[UpdateTrackMedia],
	DeleteTrackMedia{}.Kind():                  decodeAs[DeleteTrackMedia],
	DeleteTrack{}.Kind():                       decodeAs[DeleteTrack],
	AddFixedInstance{}.Kind():                  decodeAs[AddFixedInstance],
	AddDynamicInstance{}.Kind():                decodeAs[AddDynamicInstance],
	AddMixer{}.Kind():                          decodeAs[AddMixer],
	DeleteMixer{}.Kind():                       decodeAs[DeleteMixer],
	DeleteFixedInstance{}.Kind():               decodeAs[DeleteFixedInstance],
	DeleteDynamicInstance{}.Kind():             decodeAs[DeleteDynamicInstance],
	DeleteConnection{}.Kind():                  decodeAs[DeleteConnection],
	AddConnection{}.Kind():                     decodeAs[AddConnection],
	SetConnectionParameterValues{}.Kind():      decodeAs[SetConnectionParameterValues],
	SetFixedInstanceParameterValues{}.Kind():   decodeAs[SetFixedInstanceParameterValues],
	SetDynamicInstanceParameterValues{}.Kind(): decodeAs[SetDynamicInstanceParameterValues],
}

// Kinds lists every modification discriminant, sorted.
func Kinds() []string {
	return slices.Sorted(maps.Keys(decoders))
}

// Change carries a Modification across the wire, externally tagged by kind:
// {"add_track": {"track_id": "t1", "channels": "stereo"}}.
type Change struct {
	Modification
}

func (c Change) MarshalJSON() ([]byte, error) {
	if c.Modification == nil {
		return nil, fmt.Errorf("change: empty modification")
	}
	return json.Marshal(map[string]Modification{c.Kind(): c.Modification})
}

func (c *Change) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("change: %w", err)
	}
	op, err := decodeTagged(raw, json.Unmarshal)
	if err != nil {
		return err
	}
	c.Modification = op
	return nil
}

func (c Change) MarshalCBOR() ([]byte, error) {
	if c.Modification == nil {
		return nil, fmt.Errorf("change: empty modification")
	}
	return cbor.Marshal(map[string]Modification{c.Kind(): c.Modification})
}

func (c *Change) UnmarshalCBOR(data []byte) error {
	var raw map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("change: %w", err)
	}
	op, err := decodeTagged(raw, cbor.Unmarshal)
	if err != nil {
		return err
	}
	c.Modification = op
	return nil
}

func decodeTagged[R ~[]byte](raw map[string]R, unmarshal func([]byte, any) error) (Modification, error) {
	if len(raw) != 1 {
		return nil, fmt.Errorf("change: expected exactly one operation key, got %d", len(raw))
	}
	for kind, body := range raw {
		decode, ok := decoders[kind]
		if !ok {
			return nil, fmt.Errorf("change: unknown operation %q", kind)
		}
		op, err := decode(unmarshal, body)
		if err != nil {
			return nil, fmt.Errorf("change %s: %w", kind, err)
		}
		return op, nil
	}
	return nil, nil
}

// Changes wraps a list of modifications for encoding.
func Changes(ops []Modification) []Change {
	out := make([]Change, len(ops))
	for i, op := range ops {
		out[i] = Change{Modification: op}
	}
	return out
}

// Modifications unwraps decoded changes.
func Modifications(changes []Change) []Modification {
	out := make([]Modification, len(changes))
	for i, c := range changes {
		out[i] = c.Modification
	}
	return out
}
