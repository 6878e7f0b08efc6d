package model

import (
	"sort"
	"time"
)

// IssueKind classifies a non-fatal problem found during a run
type IssueKind string

const (
	IssueExtraction IssueKind = "extraction" // file could not be read or decoded
	IssueAmbiguous  IssueKind = "ambiguous"  // include matched several files
	IssueUnresolved IssueKind = "unresolved" // include matched no file
)

// Issue is the JSON projection of a per-file or per-include problem
type Issue struct {
	Kind       IssueKind `json:"kind"`
	File       string    `json:"file"`                 // file the issue was found in
	Line       int       `json:"line,omitempty"`       // line number, when known
	Target     string    `json:"target,omitempty"`     // include target as written
	Candidates []string  `json:"candidates,omitempty"` // matching files for ambiguous includes
	Message    string    `json:"message"`
}

// Cycle is an elementary cycle: each file includes the next, and the last
// includes the first
type Cycle struct {
	Files []string `json:"files"`
}

// Counts are the summary figures of a run
type Counts struct {
	Files      int `json:"files"`  // discovered files
	Nodes      int `json:"nodes"`  // graph nodes, isolated and external ones included
	Edges      int `json:"edges"`  // distinct include edges
	Cycles     int `json:"cycles"` // elementary cycles
	Components int `json:"components"`
	Issues     int `json:"issues"`
}

// CrossDirectoryDep is a file include that crosses top-level directories
type CrossDirectoryDep struct {
	SourceFile string `json:"sourceFile"` // e.g., "core/engine.cc"
	TargetFile string `json:"targetFile"` // e.g., "util/strings.h"
	SourceDir  string `json:"sourceDir"`  // e.g., "core"
	TargetDir  string `json:"targetDir"`  // e.g., "util"
}

// DirectoryDependency aggregates the file includes from one directory to another
type DirectoryDependency struct {
	From  string              `json:"from"`
	To    string              `json:"to"`
	Edges []CrossDirectoryDep `json:"edges"`
}

// Report is everything a run produces, ready for rendering
type Report struct {
	Root        string    `json:"root"`
	GeneratedAt time.Time `json:"generatedAt"`
	Graph       *Graph    `json:"graph"`
	Cycles      []Cycle   `json:"cycles"`
	// Components are groups of mutually dependent files
	Components      [][]string            `json:"components"`
	DirectoryDeps   []DirectoryDependency `json:"directoryDependencies"`
	DirectoryCycles []Cycle               `json:"directoryCycles"`
	OrphanHeaders   []string              `json:"orphanHeaders,omitempty"`
	Issues          []Issue               `json:"issues"`
	Counts          Counts                `json:"counts"`
	Summary         string                `json:"summary"`
}

// AggregateDirectoryDeps groups cross-directory includes by directory pair,
// ordered by source then target directory
func AggregateDirectoryDeps(crossDeps []CrossDirectoryDep) []DirectoryDependency {
	// Map to aggregate dependencies by directory pair
	depsByPair := make(map[[2]string]*DirectoryDependency)

	for _, dep := range crossDeps {
		key := [2]string{dep.SourceDir, dep.TargetDir}

		dirDep, exists := depsByPair[key]
		if !exists {
			dirDep = &DirectoryDependency{
				From: dep.SourceDir,
				To:   dep.TargetDir,
			}
			depsByPair[key] = dirDep
		}
		dirDep.Edges = append(dirDep.Edges, dep)
	}

	// Convert map to slice
	result := make([]DirectoryDependency, 0, len(depsByPair))
	for _, dirDep := range depsByPair {
		result = append(result, *dirDep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].From != result[j].From {
			return result[i].From < result[j].From
		}
		return result[i].To < result[j].To
	})

	return result
}
