package glyph

import "sort"

// Presemantic is an addressable node in the hypergraph. The payload is
// an opaque map; stages use it to record why the node exists.
type Presemantic struct {
	ID      string         `json:"id"`
	Payload map[string]any `json:"payload"`
}

// HyperEdge connects a set of source nodes to a set of destination
// nodes. Membership is by node ID; the node itself need not exist yet.
type HyperEdge struct {
	Src  map[string]struct{}
	Dst  map[string]struct{}
	Meta map[string]any
}

// Hypergraph is the relational substrate a State grows during a run.
// Nodes are keyed by ID with last-write-wins semantics; edges
// accumulate in insertion order.
type Hypergraph struct {
	Nodes map[string]Presemantic
	Edges []HyperEdge
}

// NewHypergraph returns an empty hypergraph.
func NewHypergraph() *Hypergraph {
	return &Hypergraph{Nodes: make(map[string]Presemantic)}
}

// AddNode inserts or replaces the node under its ID.
func (h *Hypergraph) AddNode(node Presemantic) {
	h.Nodes[node.ID] = node
}

// AddEdge appends an edge from src IDs to dst IDs. The ID slices are
// copied into sets so the caller may reuse them; duplicates collapse.
func (h *Hypergraph) AddEdge(src, dst []string, meta map[string]any) {
	edge := HyperEdge{
		Src:  make(map[string]struct{}, len(src)),
		Dst:  make(map[string]struct{}, len(dst)),
		Meta: meta,
	}
	if edge.Meta == nil {
		edge.Meta = make(map[string]any)
	}
	for _, id := range src {
		edge.Src[id] = struct{}{}
	}
	for _, id := range dst {
		edge.Dst[id] = struct{}{}
	}
	h.Edges = append(h.Edges, edge)
}

// HypergraphSnapshot is the JSON-friendly projection of a Hypergraph.
// Edge endpoint sets flatten to sorted ID slices.
type HypergraphSnapshot struct {
	Nodes map[string]Presemantic `json:"nodes"`
	Edges []EdgeSnapshot         `json:"edges"`
}

// EdgeSnapshot is the serialized form of a HyperEdge.
type EdgeSnapshot struct {
	Src  []string       `json:"src"`
	Dst  []string       `json:"dst"`
	Meta map[string]any `json:"meta"`
}

// Snapshot copies the hypergraph into its serializable projection.
func (h *Hypergraph) Snapshot() HypergraphSnapshot {
	snap := HypergraphSnapshot{
		Nodes: make(map[string]Presemantic, len(h.Nodes)),
		Edges: make([]EdgeSnapshot, 0, len(h.Edges)),
	}
	for id, node := range h.Nodes {
		copied := Presemantic{ID: node.ID}
		if node.Payload != nil {
			copied.Payload = make(map[string]any, len(node.Payload))
			for k, v := range node.Payload {
				copied.Payload[k] = v
			}
		}
		snap.Nodes[id] = copied
	}
	for _, edge := range h.Edges {
		meta := make(map[string]any, len(edge.Meta))
		for k, v := range edge.Meta {
			meta[k] = v
		}
		snap.Edges = append(snap.Edges, EdgeSnapshot{
			Src:  sortedIDs(edge.Src),
			Dst:  sortedIDs(edge.Dst),
			Meta: meta,
		})
	}
	return snap
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
