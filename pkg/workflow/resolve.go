package workflow

import (
	"fmt"
	"sort"
)

// SinkID resolves the graph's implicit output: the node no other node depends
// on. When several candidates exist (disconnected subgraphs, multiple output
// nodes) the one with the smallest id is chosen; a graph where every node is
// referenced by another fails with ErrNoSink.
func (g *Graph) SinkID() (string, error) {
	candidates := make(map[string]struct{}, len(g.Nodes))
	for id := range g.Nodes {
		candidates[id] = struct{}{}
	}
	for _, n := range g.Nodes {
		for _, dep := range n.Dependencies() {
			delete(candidates, dep.NodeID)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoSink
	}
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0], nil
}

// FindFrom walks the dependency graph depth-first upstream from the anchor
// node and returns the first node of concrete shape N, favouring the match
// topologically closest to the anchor. The anchor itself is eligible.
// Dependencies are followed in each node's declared slot order; references to
// nonexistent ids are skipped. A miss is reported as ErrNodeNotFound.
func FindFrom[N Node](g *Graph, anchor string) (string, N, error) {
	var zero N
	if _, ok := g.Nodes[anchor]; !ok {
		return "", zero, fmt.Errorf("anchor %q: %w", anchor, ErrNodeNotFound)
	}
	visited := make(map[string]struct{})
	if id, n, ok := findFrom[N](g, anchor, visited); ok {
		return id, n, nil
	}
	return "", zero, fmt.Errorf("no %T reachable from %q: %w", zero, anchor, ErrNodeNotFound)
}

func findFrom[N Node](g *Graph, id string, visited map[string]struct{}) (string, N, bool) {
	var zero N
	if _, seen := visited[id]; seen {
		return "", zero, false
	}
	visited[id] = struct{}{}
	n, ok := g.Nodes[id]
	if !ok {
		return "", zero, false
	}
	if typed, ok := n.(N); ok {
		return id, typed, true
	}
	for _, dep := range n.Dependencies() {
		if mid, m, ok := findFrom[N](g, dep.NodeID, visited); ok {
			return mid, m, true
		}
	}
	return "", zero, false
}

// Scan returns the first node of concrete shape N anywhere in the graph,
// visiting ids in sorted order. It trades the precision of FindFrom for
// availability on graphs whose sink is not connected to the wanted node.
func Scan[N Node](g *Graph) (string, N, error) {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if typed, ok := g.Nodes[id].(N); ok {
			return id, typed, nil
		}
	}
	var zero N
	return "", zero, fmt.Errorf("no %T in graph: %w", zero, ErrNodeNotFound)
}

// Find locates a node of shape N near an anchor: it walks upstream from the
// anchor (the computed sink when anchor is empty) and falls back to a global
// scan when the walk misses. This is the composed heuristic the parameter
// accessors are built on.
func Find[N Node](g *Graph, anchor string) (string, N, error) {
	if anchor == "" {
		sink, err := g.SinkID()
		if err != nil {
			// No usable sink; the global scan is still worth trying.
			return Scan[N](g)
		}
		anchor = sink
	}
	if id, n, err := FindFrom[N](g, anchor); err == nil {
		return id, n, nil
	}
	return Scan[N](g)
}
