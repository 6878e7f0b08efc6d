package graph

import (
	"fmt"
	"path"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// NodeKind distinguishes discovered files from unresolved include targets
type NodeKind string

const (
	KindFile     NodeKind = "file"
	KindExternal NodeKind = "external"
)

// ExternalPrefix marks identities of external nodes so they can never
// collide with a discovered file's relative path
const ExternalPrefix = "external:"

// FileNode represents a source file in the dependency graph
type FileNode struct {
	ID    string   // canonical identity, e.g. "util/math.h"
	Label string   // display label, the file name
	Kind  NodeKind // file or external
}

// FileGraph represents the file-level include graph.
//
// Nodes and edges keep insertion order, which makes every traversal (and
// therefore cycle enumeration) deterministic. Once built the graph is only
// read.
type FileGraph struct {
	nodes   []*FileNode
	ids     map[string]int // identity -> index into nodes
	succ    [][]int        // adjacency in insertion order
	edgeSet map[[2]int]struct{}
	edges   [][2]int
}

// NewFileGraph creates a new file dependency graph
func NewFileGraph() *FileGraph {
	return &FileGraph{
		ids:     make(map[string]int),
		edgeSet: make(map[[2]int]struct{}),
	}
}

// AddFile adds a discovered file. Adding a known identity is a no-op.
func (fg *FileGraph) AddFile(id string) int {
	return fg.addNode(id, path.Base(id), KindFile)
}

// AddExternal adds a node for an include target that matched no file
func (fg *FileGraph) AddExternal(target string) int {
	return fg.addNode(ExternalPrefix+target, target, KindExternal)
}

func (fg *FileGraph) addNode(id, label string, kind NodeKind) int {
	if idx, exists := fg.ids[id]; exists {
		return idx
	}
	idx := len(fg.nodes)
	fg.nodes = append(fg.nodes, &FileNode{ID: id, Label: label, Kind: kind})
	fg.ids[id] = idx
	fg.succ = append(fg.succ, nil)
	return idx
}

// AddDependency adds an edge from the includer to the included file.
// Inserting an existing edge has no effect. Both endpoints must exist.
func (fg *FileGraph) AddDependency(source, target string) error {
	from, ok := fg.ids[source]
	if !ok {
		return fmt.Errorf("unknown source node %q", source)
	}
	to, ok := fg.ids[target]
	if !ok {
		return fmt.Errorf("unknown target node %q", target)
	}

	key := [2]int{from, to}
	if _, exists := fg.edgeSet[key]; exists {
		return nil
	}
	fg.edgeSet[key] = struct{}{}
	fg.edges = append(fg.edges, key)
	fg.succ[from] = append(fg.succ[from], to)
	return nil
}

// HasDependency reports whether the edge source -> target exists
func (fg *FileGraph) HasDependency(source, target string) bool {
	from, ok := fg.ids[source]
	if !ok {
		return false
	}
	to, ok := fg.ids[target]
	if !ok {
		return false
	}
	_, exists := fg.edgeSet[[2]int{from, to}]
	return exists
}

// GetNode returns a file node by identity
func (fg *FileGraph) GetNode(id string) (*FileNode, bool) {
	idx, exists := fg.ids[id]
	if !exists {
		return nil, false
	}
	return fg.nodes[idx], true
}

// IndexOf returns the insertion index of a node
func (fg *FileGraph) IndexOf(id string) (int, bool) {
	idx, exists := fg.ids[id]
	return idx, exists
}

// NodeAt returns the node at an insertion index
func (fg *FileGraph) NodeAt(idx int) *FileNode {
	return fg.nodes[idx]
}

// Nodes returns all nodes in insertion order
func (fg *FileGraph) Nodes() []*FileNode {
	return append([]*FileNode(nil), fg.nodes...)
}

// Edges returns all dependency edges as [source, target] pairs in insertion order
func (fg *FileGraph) Edges() [][2]string {
	edges := make([][2]string, 0, len(fg.edges))
	for _, e := range fg.edges {
		edges = append(edges, [2]string{fg.nodes[e[0]].ID, fg.nodes[e[1]].ID})
	}
	return edges
}

// GetDependencies returns all files that the given file includes
func (fg *FileGraph) GetDependencies(id string) []string {
	idx, exists := fg.ids[id]
	if !exists {
		return nil
	}
	deps := make([]string, 0, len(fg.succ[idx]))
	for _, to := range fg.succ[idx] {
		deps = append(deps, fg.nodes[to].ID)
	}
	return deps
}

// NodeCount returns the number of nodes, isolated ones included
func (fg *FileGraph) NodeCount() int {
	return len(fg.nodes)
}

// EdgeCount returns the number of distinct edges
func (fg *FileGraph) EdgeCount() int {
	return len(fg.edges)
}

// Successors returns the indices a node has edges to, in insertion order.
// The returned slice must not be modified.
func (fg *FileGraph) Successors(idx int) []int {
	return fg.succ[idx]
}

// Directed returns a gonum view of the graph with node IDs equal to
// insertion indices. Self-loops are left out since simple graphs cannot
// hold them; use HasDependency for those.
func (fg *FileGraph) Directed() *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for i := range fg.nodes {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range fg.edges {
		if e[0] == e[1] {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(int64(e[0])), simple.Node(int64(e[1]))))
	}
	return g
}

// Components returns the groups of mutually dependent files: strongly
// connected components with more than one node, plus single files that
// include themselves. Members are in insertion order, and groups are
// ordered by their first member.
func (fg *FileGraph) Components() [][]string {
	var groups [][]int
	for _, scc := range topo.TarjanSCC(fg.Directed()) {
		if len(scc) == 1 {
			idx := int(scc[0].ID())
			if _, self := fg.edgeSet[[2]int{idx, idx}]; !self {
				continue
			}
		}
		members := make([]int, 0, len(scc))
		for _, n := range scc {
			members = append(members, int(n.ID()))
		}
		sort.Ints(members)
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	out := make([][]string, 0, len(groups))
	for _, members := range groups {
		ids := make([]string, len(members))
		for i, idx := range members {
			ids[i] = fg.nodes[idx].ID
		}
		out = append(out, ids)
	}
	return out
}

// FileDependency lists the resolved includes of a single file
type FileDependency struct {
	SourceFile   string   // identity of the includer
	Dependencies []string // identities of included files, in include order
	External     []string // unresolved targets kept as external nodes
}

// BuildFileGraph builds the include graph. Every file becomes a node, even
// without edges. Dependencies on identities outside the node set are
// dropped and counted.
func BuildFileGraph(files []string, fileDeps []*FileDependency) (*FileGraph, int) {
	fg := NewFileGraph()
	for _, id := range files {
		fg.AddFile(id)
	}

	dropped := 0
	for _, dep := range fileDeps {
		if _, ok := fg.ids[dep.SourceFile]; !ok {
			dropped += len(dep.Dependencies) + len(dep.External)
			continue
		}
		for _, target := range dep.Dependencies {
			if err := fg.AddDependency(dep.SourceFile, target); err != nil {
				dropped++
			}
		}
		for _, target := range dep.External {
			fg.AddExternal(target)
			_ = fg.AddDependency(dep.SourceFile, ExternalPrefix+target)
		}
	}

	return fg, dropped
}
