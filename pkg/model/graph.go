package model

// Graph is the rendering boundary: nodes and edges in discovery order.
// It is the common data model for the console report, the JSON report and
// the web API.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
	}
}

// NodeType distinguishes discovered files from unresolved include targets
type NodeType string

const (
	NodeTypeFile     NodeType = "file"
	NodeTypeExternal NodeType = "external"
)

// Node represents a vertex in the dependency graph.
type Node struct {
	ID     string   `json:"id"`               // canonical identity, e.g. "util/strings.h"
	Label  string   `json:"label"`            // file name, e.g. "strings.h"
	Type   NodeType `json:"type"`             // "file" or "external"
	Parent string   `json:"parent,omitempty"` // top-level directory the file lives in
}

// Edge represents a directed include between two nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// AddNode appends a node to the graph.
func (g *Graph) AddNode(node *Node) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge appends an edge to the graph.
func (g *Graph) AddEdge(edge *Edge) {
	g.Edges = append(g.Edges, edge)
}
