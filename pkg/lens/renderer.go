package lens

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ritzau/include-cycles/pkg/model"
)

// ErrEmptySelection is returned when no selected ID names a file or directory
var ErrEmptySelection = errors.New("selection matches no file")

// RenderGraph returns the subgraph within focus.Depth include hops of the
// selection. Nodes and edges keep the order of rawGraph.
func RenderGraph(rawGraph *model.Graph, focus Focus) (*model.Graph, error) {
	distances := ComputeDistances(rawGraph, focus.Selected)
	if len(distances) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySelection, strings.Join(focus.Selected, ", "))
	}

	visible := make(map[string]bool, len(distances))
	rendered := model.NewGraph()
	for _, node := range rawGraph.Nodes {
		dist, reached := distances[node.ID]
		if !reached || dist > focus.Depth {
			continue
		}
		if focus.HideExternal && node.Type == model.NodeTypeExternal && dist > 0 {
			continue
		}
		visible[node.ID] = true
		rendered.AddNode(node)
	}

	for _, edge := range rawGraph.Edges {
		if visible[edge.Source] && visible[edge.Target] {
			rendered.AddEdge(edge)
		}
	}

	return rendered, nil
}
