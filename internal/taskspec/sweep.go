package taskspec

import (
	"slices"

	"audiocloud/internal/ids"
)

// DeleteConnectionsReferencing removes every connection whose source or
// destination is pad and returns the removed ids in sorted order.
func (s *TaskSpec) DeleteConnectionsReferencing(pad NodePadID) []ids.NodeConnectionID {
	var removed []ids.NodeConnectionID
	for id, conn := range s.Connections {
		if conn.References(pad) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(s.Connections, id)
	}
	slices.Sort(removed)
	return removed
}
