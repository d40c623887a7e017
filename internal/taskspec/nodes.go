package taskspec

import (
	"fmt"
	"maps"

	"audiocloud/internal/ids"
	"audiocloud/internal/model"
)

// ChannelCatalog resolves a model to its input and output channel counts.
// model.Catalog satisfies it.
type ChannelCatalog interface {
	ChannelCounts(id ids.ModelID) (in, out int, ok bool)
}

// Node is implemented by the four node records.
type Node interface {
	Kind() NodeKind
	// Capacity returns the input and output channel counts of the node.
	Capacity(catalog ChannelCatalog) (in, out int, err error)
}

// errUnknownModel is reported by Capacity when the catalog has no entry.
type errUnknownModel struct{ id ids.ModelID }

func (e errUnknownModel) Error() string { return fmt.Sprintf("model %s does not exist", e.id) }

// TimeSegment is a [start, start+length) span in seconds.
type TimeSegment struct {
	Start  float64 `json:"start"`
	Length float64 `json:"length"`
}

// End returns start+length.
func (s TimeSegment) End() float64 { return s.Start + s.Length }

// TrackMediaFormat is the container format of a media object.
type TrackMediaFormat string

const (
	FormatWave    TrackMediaFormat = "wave"
	FormatMP3     TrackMediaFormat = "mp3"
	FormatFLAC    TrackMediaFormat = "flac"
	FormatWavPack TrackMediaFormat = "wavpack"
)

// TrackMedia places a slice of a media object on the task timeline.
type TrackMedia struct {
	Channels        MediaChannels     `json:"channels"`
	Format          TrackMediaFormat  `json:"format"`
	MediaSegment    TimeSegment       `json:"media_segment"`
	TimelineSegment TimeSegment       `json:"timeline_segment"`
	ObjectID        ids.MediaObjectID `json:"object_id"`
}

// TrackMediaUpdate is a partial TrackMedia; nil fields are left untouched.
type TrackMediaUpdate struct {
	Channels        *MediaChannels     `json:"channels,omitempty"`
	MediaSegment    *TimeSegment       `json:"media_segment,omitempty"`
	TimelineSegment *TimeSegment       `json:"timeline_segment,omitempty"`
	ObjectID        *ids.MediaObjectID `json:"object_id,omitempty"`
}

// Apply overwrites the fields set in u.
func (u TrackMediaUpdate) Apply(media *TrackMedia) {
	if u.Channels != nil {
		media.Channels = *u.Channels
	}
	if u.MediaSegment != nil {
		media.MediaSegment = *u.MediaSegment
	}
	if u.TimelineSegment != nil {
		media.TimelineSegment = *u.TimelineSegment
	}
	if u.ObjectID != nil {
		media.ObjectID = *u.ObjectID
	}
}

// TrackNode is a source of audio driven by media items.
type TrackNode struct {
	Channels MediaChannels                   `json:"channels"`
	Media    map[ids.TrackMediaID]TrackMedia `json:"media"`
}

func (TrackNode) Kind() NodeKind { return NodeTrack }

// Capacity reports no inputs; tracks are fed by media, not connections.
func (t TrackNode) Capacity(ChannelCatalog) (int, int, error) {
	return 0, t.Channels.NumChannels(), nil
}

func (t TrackNode) clone() TrackNode {
	media := maps.Clone(t.Media)
	if media == nil {
		media = map[ids.TrackMediaID]TrackMedia{}
	}
	return TrackNode{Channels: t.Channels, Media: media}
}

// MixerNode sums its inputs into its outputs. The counts are independent.
type MixerNode struct {
	InputChannels  int `json:"input_channels"`
	OutputChannels int `json:"output_channels"`
}

func (MixerNode) Kind() NodeKind { return NodeMixer }

func (m MixerNode) Capacity(ChannelCatalog) (int, int, error) {
	return m.InputChannels, m.OutputChannels, nil
}

// InstanceParameters maps a parameter to its per-channel values.
type InstanceParameters map[ids.ParameterID]model.MultiChannelValue

// Merge overwrites or inserts every key in values.
func (p InstanceParameters) Merge(values InstanceParameters) {
	for id, value := range values {
		p[id] = value.Clone()
	}
}

// Clone returns a deep copy; a nil map clones to an empty one.
func (p InstanceParameters) Clone() InstanceParameters {
	out := make(InstanceParameters, len(p))
	for id, value := range p {
		out[id] = value.Clone()
	}
	return out
}

// Equal compares parameter bags channel by channel.
func (p InstanceParameters) Equal(other InstanceParameters) bool {
	return maps.EqualFunc(p, other, model.MultiChannelValue.Equal)
}

// FixedInstanceNode is a physical unit. Wet is the dry/wet mix factor and only
// applies to units with equal input and output counts of at most two.
type FixedInstanceNode struct {
	InstanceID ids.FixedInstanceID `json:"instance_id"`
	Parameters InstanceParameters  `json:"parameters"`
	Wet        float64             `json:"wet"`
}

func (FixedInstanceNode) Kind() NodeKind { return NodeFixedInstance }

func (f FixedInstanceNode) Capacity(catalog ChannelCatalog) (int, int, error) {
	return resolveModel(catalog, f.InstanceID.ModelID())
}

// WetApplies reports whether the dry/wet factor is meaningful for the resolved model.
func (f FixedInstanceNode) WetApplies(catalog ChannelCatalog) bool {
	in, out, err := f.Capacity(catalog)
	return err == nil && in == out && in <= 2
}

func (f FixedInstanceNode) clone() FixedInstanceNode {
	f.Parameters = f.Parameters.Clone()
	return f
}

// DynamicInstanceNode is a software processor instantiated on demand.
type DynamicInstanceNode struct {
	ModelID    ids.ModelID        `json:"model_id"`
	Parameters InstanceParameters `json:"parameters"`
}

func (DynamicInstanceNode) Kind() NodeKind { return NodeDynamicInstance }

func (d DynamicInstanceNode) Capacity(catalog ChannelCatalog) (int, int, error) {
	return resolveModel(catalog, d.ModelID)
}

func (d DynamicInstanceNode) clone() DynamicInstanceNode {
	d.Parameters = d.Parameters.Clone()
	return d
}

func resolveModel(catalog ChannelCatalog, id ids.ModelID) (int, int, error) {
	if catalog == nil {
		return 0, 0, errUnknownModel{id: id}
	}
	in, out, ok := catalog.ChannelCounts(id)
	if !ok {
		return 0, 0, errUnknownModel{id: id}
	}
	return in, out, nil
}

// NodeConnection routes channels from a source pad to a destination pad.
type NodeConnection struct {
	From         NodePadID   `json:"from"`
	To           NodePadID   `json:"to"`
	FromChannels ChannelMask `json:"from_channels"`
	ToChannels   ChannelMask `json:"to_channels"`
	Volume       float64     `json:"volume"`
	Pan          float64     `json:"pan"`
}

// References reports whether either endpoint is pad.
func (c NodeConnection) References(pad NodePadID) bool {
	return c.From == pad || c.To == pad
}

// ConnectionValues is a partial update of a connection's gain and pan.
type ConnectionValues struct {
	Volume *float64 `json:"volume,omitempty"`
	Pan    *float64 `json:"pan,omitempty"`
}

// Apply overwrites the fields set in v.
func (v ConnectionValues) Apply(conn *NodeConnection) {
	if v.Volume != nil {
		conn.Volume = *v.Volume
	}
	if v.Pan != nil {
		conn.Pan = *v.Pan
	}
}
