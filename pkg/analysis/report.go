package analysis

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/ritzau/include-cycles/pkg/cycles"
	"github.com/ritzau/include-cycles/pkg/graph"
	"github.com/ritzau/include-cycles/pkg/includes"
	"github.com/ritzau/include-cycles/pkg/model"
	"github.com/ritzau/include-cycles/pkg/resolve"
)

// Report converts the result into the rendering boundary model
func (r *Result) Report() *model.Report {
	g := model.NewGraph()
	for _, node := range r.Graph.Nodes() {
		n := &model.Node{ID: node.ID, Label: node.Label, Type: model.NodeTypeFile}
		if node.Kind == graph.KindExternal {
			n.Type = model.NodeTypeExternal
		} else if dir := fileToDirectory(node.ID); dir != "." {
			n.Parent = dir
		}
		g.AddNode(n)
	}
	for _, edge := range r.Graph.Edges() {
		g.AddEdge(&model.Edge{Source: edge[0], Target: edge[1]})
	}

	issues := make([]model.Issue, 0, len(r.Issues))
	for _, err := range r.Issues {
		issues = append(issues, toIssue(r.Root, err))
	}

	components := r.Components
	if components == nil {
		components = [][]string{}
	}

	return &model.Report{
		Root:            r.Root,
		GeneratedAt:     time.Now(),
		Graph:           g,
		Cycles:          toCycles(r.Cycles),
		Components:      components,
		DirectoryDeps:   model.AggregateDirectoryDeps(r.CrossDirectory),
		DirectoryCycles: toCycles(r.DirectoryCycles),
		OrphanHeaders:   r.OrphanHeaders,
		Issues:          issues,
		Counts:          r.Counts(),
		Summary:         r.Summary(),
	}
}

func toCycles(found []cycles.FileCycle) []model.Cycle {
	out := make([]model.Cycle, 0, len(found))
	for _, c := range found {
		out = append(out, model.Cycle{Files: c.Files})
	}
	return out
}

// toIssue projects a typed issue onto its JSON form
func toIssue(root string, err error) model.Issue {
	var ee *includes.ExtractionError
	var amb *resolve.AmbiguousIdentity
	var un *resolve.UnresolvedIdentity

	switch {
	case errors.As(err, &ee):
		file := ee.Path
		if rel, relErr := filepath.Rel(root, ee.Path); relErr == nil {
			file = filepath.ToSlash(rel)
		}
		return model.Issue{Kind: model.IssueExtraction, File: file, Line: ee.Line, Message: ee.Err.Error()}
	case errors.As(err, &amb):
		return model.Issue{
			Kind:       model.IssueAmbiguous,
			File:       amb.Includer,
			Target:     amb.Target,
			Candidates: amb.Candidates,
			Message:    err.Error(),
		}
	case errors.As(err, &un):
		return model.Issue{Kind: model.IssueUnresolved, File: un.Includer, Target: un.Target, Message: err.Error()}
	}
	return model.Issue{Message: err.Error()}
}
