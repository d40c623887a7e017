package taskspec

import (
	"cmp"
	"maps"
	"slices"

	"audiocloud/internal/ids"
)

// TaskSpec is the task graph aggregate.
type TaskSpec struct {
	Tracks      map[ids.TrackNodeID]TrackNode                     `json:"tracks"`
	Mixers      map[ids.MixerNodeID]MixerNode                     `json:"mixers"`
	Dynamic     map[ids.DynamicInstanceNodeID]DynamicInstanceNode `json:"dynamic"`
	Fixed       map[ids.FixedInstanceNodeID]FixedInstanceNode     `json:"fixed"`
	Connections map[ids.NodeConnectionID]NodeConnection           `json:"connections"`
}

// New returns an empty spec with every table allocated.
func New() *TaskSpec {
	s := &TaskSpec{}
	s.ensure()
	return s
}

func (s *TaskSpec) ensure() {
	if s.Tracks == nil {
		s.Tracks = map[ids.TrackNodeID]TrackNode{}
	}
	if s.Mixers == nil {
		s.Mixers = map[ids.MixerNodeID]MixerNode{}
	}
	if s.Dynamic == nil {
		s.Dynamic = map[ids.DynamicInstanceNodeID]DynamicInstanceNode{}
	}
	if s.Fixed == nil {
		s.Fixed = map[ids.FixedInstanceNodeID]FixedInstanceNode{}
	}
	if s.Connections == nil {
		s.Connections = map[ids.NodeConnectionID]NodeConnection{}
	}
}

// Clone returns a deep copy that shares no maps with s.
func (s *TaskSpec) Clone() *TaskSpec {
	out := &TaskSpec{
		Tracks:      make(map[ids.TrackNodeID]TrackNode, len(s.Tracks)),
		Mixers:      maps.Clone(s.Mixers),
		Dynamic:     make(map[ids.DynamicInstanceNodeID]DynamicInstanceNode, len(s.Dynamic)),
		Fixed:       make(map[ids.FixedInstanceNodeID]FixedInstanceNode, len(s.Fixed)),
		Connections: maps.Clone(s.Connections),
	}
	for id, track := range s.Tracks {
		out.Tracks[id] = track.clone()
	}
	for id, dyn := range s.Dynamic {
		out.Dynamic[id] = dyn.clone()
	}
	for id, fixed := range s.Fixed {
		out.Fixed[id] = fixed.clone()
	}
	out.ensure()
	return out
}

// Equal reports whether both specs describe the same graph. Nil and empty maps compare equal.
func (s *TaskSpec) Equal(other *TaskSpec) bool {
	return maps.EqualFunc(s.Tracks, other.Tracks, func(a, b TrackNode) bool {
		return a.Channels == b.Channels && maps.Equal(a.Media, b.Media)
	}) &&
		maps.Equal(s.Mixers, other.Mixers) &&
		maps.EqualFunc(s.Dynamic, other.Dynamic, func(a, b DynamicInstanceNode) bool {
			return a.ModelID == b.ModelID && a.Parameters.Equal(b.Parameters)
		}) &&
		maps.EqualFunc(s.Fixed, other.Fixed, func(a, b FixedInstanceNode) bool {
			return a.InstanceID == b.InstanceID && a.Wet == b.Wet && a.Parameters.Equal(b.Parameters)
		}) &&
		maps.Equal(s.Connections, other.Connections)
}

// IsEmpty reports whether no node of any kind is declared.
func (s *TaskSpec) IsEmpty() bool {
	return len(s.Tracks) == 0 && len(s.Mixers) == 0 && len(s.Dynamic) == 0 && len(s.Fixed) == 0
}

// Node looks up a node of any kind.
func (s *TaskSpec) Node(ref NodeRef) (Node, bool) {
	switch ref.Kind {
	case NodeTrack:
		n, ok := s.Tracks[ids.TrackNodeID(ref.ID)]
		return n, ok
	case NodeMixer:
		n, ok := s.Mixers[ids.MixerNodeID(ref.ID)]
		return n, ok
	case NodeFixedInstance:
		n, ok := s.Fixed[ids.FixedInstanceNodeID(ref.ID)]
		return n, ok
	case NodeDynamicInstance:
		n, ok := s.Dynamic[ids.DynamicInstanceNodeID(ref.ID)]
		return n, ok
	default:
		return nil, false
	}
}

func (s *TaskSpec) removeNode(ref NodeRef) {
	switch ref.Kind {
	case NodeTrack:
		delete(s.Tracks, ids.TrackNodeID(ref.ID))
	case NodeMixer:
		delete(s.Mixers, ids.MixerNodeID(ref.ID))
	case NodeFixedInstance:
		delete(s.Fixed, ids.FixedInstanceNodeID(ref.ID))
	case NodeDynamicInstance:
		delete(s.Dynamic, ids.DynamicInstanceNodeID(ref.ID))
	}
}

// ConnectionIDs returns every connection id in sorted order.
func (s *TaskSpec) ConnectionIDs() []ids.NodeConnectionID {
	return slices.Sorted(maps.Keys(s.Connections))
}

// ConnectionsOf returns the sorted ids of connections touching any pad of ref.
func (s *TaskSpec) ConnectionsOf(ref NodeRef) []ids.NodeConnectionID {
	var out []ids.NodeConnectionID
	for id, conn := range s.Connections {
		if conn.From.Node() == ref || conn.To.Node() == ref {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// IsConnected reports whether a connection runs from pad from to pad to.
func (s *TaskSpec) IsConnected(from, to NodePadID) bool {
	for _, conn := range s.Connections {
		if conn.From == from && conn.To == to {
			return true
		}
	}
	return false
}

// MediaObjectIDs returns the distinct media objects referenced by track media, sorted.
func (s *TaskSpec) MediaObjectIDs() []ids.MediaObjectID {
	seen := map[ids.MediaObjectID]struct{}{}
	for _, track := range s.Tracks {
		for _, media := range track.Media {
			seen[media.ObjectID] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// FixedInstanceIDs returns the physical instances the spec reserves, sorted.
func (s *TaskSpec) FixedInstanceIDs() []ids.FixedInstanceID {
	out := make([]ids.FixedInstanceID, 0, len(s.Fixed))
	for _, fixed := range s.Fixed {
		out = append(out, fixed.InstanceID)
	}
	slices.SortFunc(out, func(a, b ids.FixedInstanceID) int {
		return cmp.Compare(a.String(), b.String())
	})
	return out
}

// FixedInstanceNodeFor finds the node that reserves a physical instance.
func (s *TaskSpec) FixedInstanceNodeFor(instance ids.FixedInstanceID) (ids.FixedInstanceNodeID, bool) {
	for _, id := range slices.Sorted(maps.Keys(s.Fixed)) {
		if s.Fixed[id].InstanceID == instance {
			return id, true
		}
	}
	return "", false
}
