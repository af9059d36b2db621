package workflow

import "fmt"

// Position is the editor canvas location of a node. The engine ignores it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is one unit of work in a workflow.
type Node struct {
	ID       string    `json:"id" yaml:"id" validate:"required"`
	Type     string    `json:"type" yaml:"type"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
	Params   Params    `json:"data,omitempty" yaml:"data,omitempty"`
}

// Kind returns the dispatch kind for the node's type discriminator.
func (n Node) Kind() Kind { return ParseKind(n.Type) }

// Edge is a directed data-flow connection: Target consumes Source's result.
type Edge struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source" validate:"required"`
	Target string `json:"target" yaml:"target" validate:"required"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Graph is a submitted workflow: nodes in author order and edges in
// declared order. Both orders are significant.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges []Edge `json:"edges" yaml:"edges" validate:"dive"`
}

// GraphError reports a structurally invalid graph. It is detected before a
// run is created, so no step ever leaves the waiting state.
type GraphError struct {
	Reason string
	NodeID string
	EdgeID string
}

func (e *GraphError) Error() string {
	return "workflow: invalid graph: " + e.Reason
}

// Validate checks that node ids are present and unique and that every edge
// endpoint names a node in the graph.
func (g *Graph) Validate() error {
	ids := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return &GraphError{Reason: fmt.Sprintf("node at index %d has no id", i)}
		}
		if _, dup := ids[n.ID]; dup {
			return &GraphError{Reason: fmt.Sprintf("duplicate node id %q", n.ID), NodeID: n.ID}
		}
		ids[n.ID] = struct{}{}
	}
	for i, e := range g.Edges {
		for _, end := range []string{e.Source, e.Target} {
			if _, ok := ids[end]; !ok {
				return &GraphError{
					Reason: fmt.Sprintf("edge %s references unknown node %q", edgeLabel(e, i), end),
					NodeID: end,
					EdgeID: e.ID,
				}
			}
		}
	}
	return nil
}

func edgeLabel(e Edge, i int) string {
	if e.ID != "" {
		return fmt.Sprintf("%q", e.ID)
	}
	return fmt.Sprintf("#%d", i)
}

// adjacency indexes edges by endpoint, preserving declared edge order.
type adjacency struct {
	out map[string][]string
	in  map[string][]string
}

func newAdjacency(edges []Edge) adjacency {
	a := adjacency{
		out: make(map[string][]string),
		in:  make(map[string][]string),
	}
	for _, e := range edges {
		a.out[e.Source] = append(a.out[e.Source], e.Target)
		a.in[e.Target] = append(a.in[e.Target], e.Source)
	}
	return a
}

// sources returns the upstream node ids of id in declared edge order.
func (a adjacency) sources(id string) []string { return a.in[id] }
