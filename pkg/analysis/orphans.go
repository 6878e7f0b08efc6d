package analysis

import (
	"path"

	"github.com/ritzau/include-cycles/pkg/graph"
)

// headerExts are the file extensions treated as headers
var headerExts = map[string]bool{
	".h":   true,
	".hh":  true,
	".hpp": true,
	".hxx": true,
	".inl": true,
}

// FindOrphanHeaders returns the headers no discovered file includes, in
// discovery order. Self-includes do not count.
func FindOrphanHeaders(fg *graph.FileGraph) []string {
	// Create a set of included files for fast lookup
	included := make(map[string]bool)
	for _, edge := range fg.Edges() {
		if edge[0] != edge[1] {
			included[edge[1]] = true
		}
	}

	var orphans []string
	for _, node := range fg.Nodes() {
		if node.Kind != graph.KindFile || !isHeader(node.ID) {
			continue
		}
		if !included[node.ID] {
			orphans = append(orphans, node.ID)
		}
	}

	return orphans
}

func isHeader(id string) bool {
	return headerExts[path.Ext(id)]
}
