package analysis

import (
	"slices"

	"github.com/ritzau/include-cycles/pkg/model"
)

// FileDetails describes one file's place in the include graph
type FileDetails struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"` // "source", "header" or "external"
	Directory  string        `json:"directory"`
	Includes   []string      `json:"includes"`   // files this file includes
	IncludedBy []string      `json:"includedBy"` // files including this file
	Cycles     []model.Cycle `json:"cycles"`     // cycles this file is part of

	IncomingDirDeps []model.CrossDirectoryDep `json:"incomingDirDeps"` // files in other directories including this one
	OutgoingDirDeps []model.CrossDirectoryDep `json:"outgoingDirDeps"` // this file including files in other directories
}

// FileDetails returns the details of a file, or false if the identity is
// not a graph node
func (r *Result) FileDetails(id string) (*FileDetails, bool) {
	node, exists := r.Graph.GetNode(id)
	if !exists {
		return nil, false
	}

	details := &FileDetails{
		ID:              id,
		Type:            "source",
		Directory:       fileToDirectory(id),
		Includes:        r.Graph.GetDependencies(id),
		IncludedBy:      make([]string, 0),
		Cycles:          make([]model.Cycle, 0),
		IncomingDirDeps: make([]model.CrossDirectoryDep, 0),
		OutgoingDirDeps: make([]model.CrossDirectoryDep, 0),
	}
	switch {
	case isExternal(r.Graph, id):
		details.Type = "external"
		details.Directory = ""
	case isHeader(node.ID):
		details.Type = "header"
	}

	for _, edge := range r.Graph.Edges() {
		if edge[1] == id {
			details.IncludedBy = append(details.IncludedBy, edge[0])
		}
	}

	for _, c := range r.Cycles {
		if slices.Contains(c.Files, id) {
			details.Cycles = append(details.Cycles, model.Cycle{Files: c.Files})
		}
	}

	// Incoming: other directories depending on this file
	// Outgoing: this file depending on other directories
	for _, dep := range r.CrossDirectory {
		if dep.TargetFile == id {
			details.IncomingDirDeps = append(details.IncomingDirDeps, dep)
		}
		if dep.SourceFile == id {
			details.OutgoingDirDeps = append(details.OutgoingDirDeps, dep)
		}
	}

	return details, true
}
