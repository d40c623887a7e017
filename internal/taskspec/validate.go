package taskspec

import (
	"errors"
	"fmt"

	"audiocloud/internal/ids"
)

// Validate checks the spec against a model catalog without modifying it.
// Connections are checked in id order so the first failure is deterministic.
func (s *TaskSpec) Validate(catalog ChannelCatalog) error {
	if s.IsEmpty() {
		return ErrNoNodes
	}
	for _, id := range s.ConnectionIDs() {
		if err := s.validateConnection(id, s.Connections[id], catalog); err != nil {
			return err
		}
	}
	return nil
}

func (s *TaskSpec) validateConnection(id ids.NodeConnectionID, conn NodeConnection, catalog ChannelCatalog) error {
	if !conn.From.IsOutput() {
		return inconsistent(id, "Connection %s flow from %s is not an output", id, conn.From)
	}
	if !conn.To.IsInput() {
		return inconsistent(id, "Connection %s flow to %s is not an input", id, conn.To)
	}
	if err := s.checkChannels(id, conn.From, conn.FromChannels, catalog); err != nil {
		return err
	}
	return s.checkChannels(id, conn.To, conn.ToChannels, catalog)
}

func (s *TaskSpec) checkChannels(id ids.NodeConnectionID, pad NodePadID, mask ChannelMask, catalog ChannelCatalog) error {
	ref := pad.Node()
	node, ok := s.Node(ref)
	if !ok {
		return inconsistent(id, "Connection %s references %s which does not exist", id, describeNode(ref))
	}
	in, out, err := node.Capacity(catalog)
	if err != nil {
		var unknown errUnknownModel
		if errors.As(err, &unknown) {
			return inconsistent(id, "Connection %s references %s which references model %s which does not exist",
				id, describeNode(ref), unknown.id)
		}
		return inconsistent(id, "Connection %s references %s: %v", id, describeNode(ref), err)
	}
	count := in
	if pad.IsOutput() {
		count = out
	}
	if !mask.IsSubsetOf(count) {
		return inconsistent(id, "Connection %s references %s which has channels that do not exist (%s of %d)",
			id, describeNode(ref), mask, count)
	}
	return nil
}

func describeNode(ref NodeRef) string {
	switch ref.Kind {
	case NodeFixedInstance:
		return "fixed instance labelled " + ref.ID
	case NodeDynamicInstance:
		return "dynamic instance labelled " + ref.ID
	default:
		return ref.String()
	}
}

func inconsistent(id ids.NodeConnectionID, format string, args ...any) error {
	return &ValidationError{ConnectionID: string(id), Message: fmt.Sprintf(format, args...)}
}
