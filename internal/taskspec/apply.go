package taskspec

import (
	"fmt"

	"audiocloud/internal/ids"
)

type applyConfig struct {
	cycleCheck bool
	onSweep    func(pad NodePadID, removed []ids.NodeConnectionID)
}

// ApplyOption tunes a single Modify call.
type ApplyOption func(*applyConfig)

// WithCycleCheck makes AddConnection reject edges that would close a loop in the node graph.
func WithCycleCheck() ApplyOption {
	return func(c *applyConfig) { c.cycleCheck = true }
}

// WithSweepObserver is called once per swept pad with the removed connection ids.
func WithSweepObserver(fn func(pad NodePadID, removed []ids.NodeConnectionID)) ApplyOption {
	return func(c *applyConfig) { c.onSweep = fn }
}

func newApplyConfig(opts []ApplyOption) *applyConfig {
	cfg := &applyConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// Modify applies one operation. On error the spec is unchanged.
func (s *TaskSpec) Modify(op Modification, opts ...ApplyOption) error {
	if op == nil {
		return fmt.Errorf("modify: nil operation")
	}
	return op.apply(s, newApplyConfig(opts))
}

func (op AddTrack) apply(s *TaskSpec, _ *applyConfig) error {
	if _, ok := s.Tracks[op.TrackID]; ok {
		return nodeExists(NodeRef{Kind: NodeTrack, ID: string(op.TrackID)})
	}
	if !op.Channels.valid() {
		return &ModifyError{
			Type:    TrackMalformed,
			NodeID:  string(op.TrackID),
			Message: fmt.Sprintf("channels %q: expected mono or stereo", op.Channels),
		}
	}
	if s.Tracks == nil {
		s.Tracks = map[ids.TrackNodeID]TrackNode{}
	}
	s.Tracks[op.TrackID] = TrackNode{Channels: op.Channels, Media: map[ids.TrackMediaID]TrackMedia{}}
	return nil
}

func (op AddTrackMedia) apply(s *TaskSpec, _ *applyConfig) error {
	track, ok := s.Tracks[op.TrackID]
	if !ok {
		return nodeMissing(NodeRef{Kind: NodeTrack, ID: string(op.TrackID)})
	}
	if _, exists := track.Media[op.MediaID]; exists {
		return &ModifyError{Type: MediaExists, NodeID: string(op.TrackID), MediaID: string(op.MediaID)}
	}
	if track.Media == nil {
		track.Media = map[ids.TrackMediaID]TrackMedia{}
		s.Tracks[op.TrackID] = track
	}
	track.Media[op.MediaID] = op.Spec
	return nil
}

func (op UpdateTrackMedia) apply(s *TaskSpec, _ *applyConfig) error {
	track, ok := s.Tracks[op.TrackID]
	if !ok {
		return nodeMissing(NodeRef{Kind: NodeTrack, ID: string(op.TrackID)})
	}
	media, exists := track.Media[op.MediaID]
	if !exists {
		return &ModifyError{Type: MediaDoesNotExist, NodeID: string(op.TrackID), MediaID: string(op.MediaID)}
	}
	op.Update.Apply(&media)
	track.Media[op.MediaID] = media
	return nil
}

func (op DeleteTrackMedia) apply(s *TaskSpec, _ *applyConfig) error {
	track, ok := s.Tracks[op.TrackID]
	if !ok {
		return nodeMissing(NodeRef{Kind: NodeTrack, ID: string(op.TrackID)})
	}
	if _, exists := track.Media[op.MediaID]; !exists {
		return &ModifyError{Type: MediaDoesNotExist, NodeID: string(op.TrackID), MediaID: string(op.MediaID)}
	}
	delete(track.Media, op.MediaID)
	return nil
}

func (op DeleteTrack) apply(s *TaskSpec, cfg *applyConfig) error {
	return s.deleteNode(NodeRef{Kind: NodeTrack, ID: string(op.TrackID)}, cfg)
}

func (op AddFixedInstance) apply(s *TaskSpec, _ *applyConfig) error {
	if _, ok := s.Fixed[op.FixedID]; ok {
		return nodeExists(NodeRef{Kind: NodeFixedInstance, ID: string(op.FixedID)})
	}
	if s.Fixed == nil {
		s.Fixed = map[ids.FixedInstanceNodeID]FixedInstanceNode{}
	}
	s.Fixed[op.FixedID] = op.Spec.clone()
	return nil
}

func (op AddDynamicInstance) apply(s *TaskSpec, _ *applyConfig) error {
	if _, ok := s.Dynamic[op.DynamicID]; ok {
		return nodeExists(NodeRef{Kind: NodeDynamicInstance, ID: string(op.DynamicID)})
	}
	if s.Dynamic == nil {
		s.Dynamic = map[ids.DynamicInstanceNodeID]DynamicInstanceNode{}
	}
	s.Dynamic[op.DynamicID] = op.Spec.clone()
	return nil
}

func (op AddMixer) apply(s *TaskSpec, _ *applyConfig) error {
	if _, ok := s.Mixers[op.MixerID]; ok {
		return nodeExists(NodeRef{Kind: NodeMixer, ID: string(op.MixerID)})
	}
	if s.Mixers == nil {
		s.Mixers = map[ids.MixerNodeID]MixerNode{}
	}
	s.Mixers[op.MixerID] = op.Spec
	return nil
}

func (op DeleteMixer) apply(s *TaskSpec, cfg *applyConfig) error {
	return s.deleteNode(NodeRef{Kind: NodeMixer, ID: string(op.MixerID)}, cfg)
}

func (op DeleteFixedInstance) apply(s *TaskSpec, cfg *applyConfig) error {
	return s.deleteNode(NodeRef{Kind: NodeFixedInstance, ID: string(op.FixedID)}, cfg)
}

func (op DeleteDynamicInstance) apply(s *TaskSpec, cfg *applyConfig) error {
	return s.deleteNode(NodeRef{Kind: NodeDynamicInstance, ID: string(op.DynamicID)}, cfg)
}

// deleteNode removes a node of any kind and sweeps every pad it owned.
func (s *TaskSpec) deleteNode(ref NodeRef, cfg *applyConfig) error {
	if _, ok := s.Node(ref); !ok {
		return nodeMissing(ref)
	}
	s.removeNode(ref)
	for _, pad := range ref.Pads() {
		removed := s.DeleteConnectionsReferencing(pad)
		if cfg != nil && cfg.onSweep != nil && len(removed) > 0 {
			cfg.onSweep(pad, removed)
		}
	}
	return nil
}

func (op DeleteConnection) apply(s *TaskSpec, _ *applyConfig) error {
	if _, ok := s.Connections[op.ConnectionID]; !ok {
		return &ModifyError{Type: ConnectionDoesNotExist, ConnectionID: string(op.ConnectionID)}
	}
	delete(s.Connections, op.ConnectionID)
	return nil
}

func (op AddConnection) apply(s *TaskSpec, cfg *applyConfig) error {
	if _, ok := s.Connections[op.ConnectionID]; ok {
		return &ModifyError{Type: ConnectionExists, ConnectionID: string(op.ConnectionID)}
	}
	if !op.From.IsOutput() {
		return &ModifyError{
			Type:         ConnectionMalformed,
			ConnectionID: string(op.ConnectionID),
			Message:      fmt.Sprintf("from %q is not an output pad", op.From.String()),
		}
	}
	if !op.To.IsInput() {
		return &ModifyError{
			Type:         ConnectionMalformed,
			ConnectionID: string(op.ConnectionID),
			Message:      fmt.Sprintf("to %q is not an input pad", op.To.String()),
		}
	}
	if cfg.cycleCheck {
		if path, ok := s.pathBetween(op.To.Node(), op.From.Node()); ok {
			return &ModifyError{
				Type:         CycleDetected,
				ConnectionID: string(op.ConnectionID),
				Message:      "path " + formatPath(path),
			}
		}
	}
	if s.Connections == nil {
		s.Connections = map[ids.NodeConnectionID]NodeConnection{}
	}
	s.Connections[op.ConnectionID] = op.Connection()
	return nil
}

func (op SetConnectionParameterValues) apply(s *TaskSpec, _ *applyConfig) error {
	conn, ok := s.Connections[op.ConnectionID]
	if !ok {
		return &ModifyError{Type: ConnectionDoesNotExist, ConnectionID: string(op.ConnectionID)}
	}
	op.Values.Apply(&conn)
	s.Connections[op.ConnectionID] = conn
	return nil
}

func (op SetFixedInstanceParameterValues) apply(s *TaskSpec, _ *applyConfig) error {
	fixed, ok := s.Fixed[op.FixedID]
	if !ok {
		return nodeMissing(NodeRef{Kind: NodeFixedInstance, ID: string(op.FixedID)})
	}
	if fixed.Parameters == nil {
		fixed.Parameters = InstanceParameters{}
	}
	fixed.Parameters.Merge(op.Values)
	s.Fixed[op.FixedID] = fixed
	return nil
}

func (op SetDynamicInstanceParameterValues) apply(s *TaskSpec, _ *applyConfig) error {
	dynamic, ok := s.Dynamic[op.DynamicID]
	if !ok {
		return nodeMissing(NodeRef{Kind: NodeDynamicInstance, ID: string(op.DynamicID)})
	}
	if dynamic.Parameters == nil {
		dynamic.Parameters = InstanceParameters{}
	}
	dynamic.Parameters.Merge(op.Values)
	s.Dynamic[op.DynamicID] = dynamic
	return nil
}
