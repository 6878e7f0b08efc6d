package lens

import (
	"strings"

	"github.com/ritzau/include-cycles/pkg/model"
)

// distanceQueueNode represents a node in the BFS queue
type distanceQueueNode struct {
	nodeID   string
	distance int
}

// expandDirectories replaces selected directories with the files below them.
// For example, "util" becomes ["util/log.h", "util/strings.h", ...]. IDs that
// are graph nodes are kept as they are, and unknown IDs are dropped.
func expandDirectories(selectedNodes []string, graph *model.Graph) []string {
	nodes := make(map[string]bool, len(graph.Nodes))
	for _, node := range graph.Nodes {
		nodes[node.ID] = true
	}

	seen := make(map[string]bool)
	var expanded []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			expanded = append(expanded, id)
		}
	}

	for _, id := range selectedNodes {
		if nodes[id] {
			add(id)
			continue
		}
		prefix := strings.TrimSuffix(id, "/") + "/"
		for _, node := range graph.Nodes {
			if node.Type == model.NodeTypeFile && strings.HasPrefix(node.ID, prefix) {
				add(node.ID)
			}
		}
	}

	return expanded
}

// ComputeDistances calculates the shortest number of include hops, in either
// direction, from each node to the nearest selected node. Nodes that cannot
// be reached are absent from the map.
func ComputeDistances(graph *model.Graph, selectedNodes []string) map[string]int {
	distances := make(map[string]int)

	// Build adjacency list (undirected graph for distance computation)
	adjacency := buildAdjacencyList(graph)

	// Initialize BFS queue with selected nodes at distance 0
	queue := []distanceQueueNode{}
	for _, nodeID := range expandDirectories(selectedNodes, graph) {
		distances[nodeID] = 0
		queue = append(queue, distanceQueueNode{nodeID: nodeID, distance: 0})
	}

	// BFS traversal
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range adjacency[current.nodeID] {
			if _, exists := distances[neighbor]; !exists {
				newDistance := current.distance + 1
				distances[neighbor] = newDistance
				queue = append(queue, distanceQueueNode{nodeID: neighbor, distance: newDistance})
			}
		}
	}

	return distances
}

// buildAdjacencyList creates an undirected adjacency list from graph edges
func buildAdjacencyList(graph *model.Graph) map[string][]string {
	adjacency := make(map[string][]string)

	for _, edge := range graph.Edges {
		// Add both directions (undirected for distance computation)
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		adjacency[edge.Target] = append(adjacency[edge.Target], edge.Source)
	}

	return adjacency
}
