package lens

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ritzau/include-cycles/pkg/model"
)

// GraphDiff represents the difference between two graph states
type GraphDiff struct {
	AddedNodes    []model.Node `json:"addedNodes"`
	RemovedNodes  []string     `json:"removedNodes"`  // Node IDs
	ModifiedNodes []model.Node `json:"modifiedNodes"` // Nodes with changed properties
	AddedEdges    []model.Edge `json:"addedEdges"`
	RemovedEdges  []model.Edge `json:"removedEdges"`
	FullGraph     bool         `json:"fullGraph"` // True if this is a full graph, not a diff
}

// Empty reports whether nothing changed
func (d *GraphDiff) Empty() bool {
	return !d.FullGraph &&
		len(d.AddedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.ModifiedNodes) == 0 &&
		len(d.AddedEdges) == 0 &&
		len(d.RemovedEdges) == 0
}

// GraphSnapshot represents a cached graph state for diffing
type GraphSnapshot struct {
	Hash  string
	Nodes map[string]model.Node // nodeID -> node
	Edges map[model.Edge]bool
}

// CreateSnapshot creates a snapshot from graph data for diffing
func CreateSnapshot(graph *model.Graph) *GraphSnapshot {
	snapshot := &GraphSnapshot{
		Hash:  ComputeHash(graph),
		Nodes: make(map[string]model.Node, len(graph.Nodes)),
		Edges: make(map[model.Edge]bool, len(graph.Edges)),
	}

	for _, node := range graph.Nodes {
		snapshot.Nodes[node.ID] = *node
	}
	for _, edge := range graph.Edges {
		snapshot.Edges[*edge] = true
	}

	return snapshot
}

// ComputeHash hashes the graph's JSON form
func ComputeHash(graph *model.Graph) string {
	jsonData, err := json.Marshal(graph)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(jsonData)
	return fmt.Sprintf("%x", hash)
}

// ComputeDiff computes the difference between a snapshot and a new graph.
// Results are sorted by ID so equal inputs give equal diffs.
func ComputeDiff(oldSnapshot *GraphSnapshot, newGraph *model.Graph) *GraphDiff {
	// If no old snapshot, return full graph
	if oldSnapshot == nil {
		diff := &GraphDiff{FullGraph: true}
		for _, node := range newGraph.Nodes {
			diff.AddedNodes = append(diff.AddedNodes, *node)
		}
		for _, edge := range newGraph.Edges {
			diff.AddedEdges = append(diff.AddedEdges, *edge)
		}
		return diff
	}

	diff := &GraphDiff{
		AddedNodes:    make([]model.Node, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]model.Node, 0),
		AddedEdges:    make([]model.Edge, 0),
		RemovedEdges:  make([]model.Edge, 0),
	}
	if oldSnapshot.Hash != "" && oldSnapshot.Hash == ComputeHash(newGraph) {
		return diff
	}

	newSnapshot := CreateSnapshot(newGraph)

	// Find added and modified nodes
	for _, node := range newGraph.Nodes {
		if oldNode, exists := oldSnapshot.Nodes[node.ID]; exists {
			if oldNode != *node {
				diff.ModifiedNodes = append(diff.ModifiedNodes, *node)
			}
		} else {
			diff.AddedNodes = append(diff.AddedNodes, *node)
		}
	}

	// Find removed nodes
	for id := range oldSnapshot.Nodes {
		if _, exists := newSnapshot.Nodes[id]; !exists {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}

	// Find added and removed edges
	for _, edge := range newGraph.Edges {
		if !oldSnapshot.Edges[*edge] {
			diff.AddedEdges = append(diff.AddedEdges, *edge)
		}
	}
	for edge := range oldSnapshot.Edges {
		if !newSnapshot.Edges[edge] {
			diff.RemovedEdges = append(diff.RemovedEdges, edge)
		}
	}

	sort.Slice(diff.AddedNodes, func(i, j int) bool { return diff.AddedNodes[i].ID < diff.AddedNodes[j].ID })
	sort.Slice(diff.ModifiedNodes, func(i, j int) bool { return diff.ModifiedNodes[i].ID < diff.ModifiedNodes[j].ID })
	sort.Strings(diff.RemovedNodes)
	sortEdges(diff.AddedEdges)
	sortEdges(diff.RemovedEdges)

	return diff
}

func sortEdges(edges []model.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
}
