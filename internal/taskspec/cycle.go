package taskspec

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// adjacency maps each node to the nodes its outputs feed, in sorted order.
func (s *TaskSpec) adjacency() map[NodeRef][]NodeRef {
	adj := make(map[NodeRef][]NodeRef)
	for _, conn := range s.Connections {
		from, to := conn.From.Node(), conn.To.Node()
		if !slices.Contains(adj[from], to) {
			adj[from] = append(adj[from], to)
		}
	}
	for ref := range adj {
		slices.SortFunc(adj[ref], compareRefs)
	}
	return adj
}

func compareRefs(a, b NodeRef) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// pathBetween returns a node path from start to goal following existing
// connections. A node always reaches itself.
func (s *TaskSpec) pathBetween(start, goal NodeRef) ([]NodeRef, bool) {
	if start == goal {
		return []NodeRef{start}, true
	}
	adj := s.adjacency()
	visited := map[NodeRef]bool{start: true}
	parent := map[NodeRef]NodeRef{}
	stack := []NodeRef{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur
			if next == goal {
				path := []NodeRef{goal}
				for at := goal; at != start; {
					at = parent[at]
					path = append(path, at)
				}
				slices.Reverse(path)
				return path, true
			}
			stack = append(stack, next)
		}
	}
	return nil, false
}

// FindCycle returns one cycle in the node graph as a closed path, or nil.
func (s *TaskSpec) FindCycle() []NodeRef {
	const (
		white = iota
		gray
		black
	)
	adj := s.adjacency()
	nodes := make([]NodeRef, 0, len(adj))
	for ref := range adj {
		nodes = append(nodes, ref)
	}
	slices.SortFunc(nodes, compareRefs)

	color := map[NodeRef]int{}
	parent := map[NodeRef]NodeRef{}
	var cycle []NodeRef

	var dfs func(u NodeRef) bool
	dfs = func(u NodeRef) bool {
		color[u] = gray
		for _, v := range adj[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				slices.Reverse(cycle)
				return true
			}
		}
		color[u] = black
		return false
	}

	for _, ref := range nodes {
		if color[ref] == white && dfs(ref) {
			return cycle
		}
	}
	return nil
}

// ValidateAcyclic fails with ErrCycle when the connections form a loop.
func (s *TaskSpec) ValidateAcyclic() error {
	if cycle := s.FindCycle(); cycle != nil {
		return fmt.Errorf("%w: %s", ErrCycle, formatPath(cycle))
	}
	return nil
}

func formatPath(path []NodeRef) string {
	parts := make([]string, len(path))
	for i, ref := range path {
		parts[i] = ref.String()
	}
	return strings.Join(parts, " -> ")
}
