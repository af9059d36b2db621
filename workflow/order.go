package workflow

// BuildOrder computes the execution order of a graph.
//
// Start nodes (no incoming edge) are taken in input order; from each a
// depth-first walk follows outgoing edges in declared order and appends a
// node the first time it is reached. Nodes never reached, such as members
// of a cycle with no entry point, are appended afterwards in input order.
//
// The result holds every node exactly once and terminates on cyclic
// graphs. It is not a full topological sort: a node with several parents
// may be placed before a parent reached later through another branch.
// Edges naming unknown nodes are ignored.
func BuildOrder(nodes []Node, edges []Edge) []Node {
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	adj := newAdjacency(edges)

	order := make([]Node, 0, len(nodes))
	visited := make(map[string]bool, len(nodes))

	var visit func(id string)
	visit = func(id string) {
		n, ok := byID[id]
		if !ok || visited[id] {
			return
		}
		visited[id] = true
		order = append(order, n)
		for _, next := range adj.out[id] {
			visit(next)
		}
	}

	for _, n := range nodes {
		if len(adj.in[n.ID]) == 0 {
			visit(n.ID)
		}
	}
	for _, n := range nodes {
		if !visited[n.ID] {
			visited[n.ID] = true
			order = append(order, n)
		}
	}
	return order
}
