package analysis

import (
	"strings"

	"github.com/ritzau/include-cycles/pkg/cycles"
	"github.com/ritzau/include-cycles/pkg/graph"
	"github.com/ritzau/include-cycles/pkg/model"
)

// FindCrossDirectoryDeps identifies includes whose endpoints live in
// different top-level directories. External targets are skipped.
func FindCrossDirectoryDeps(fg *graph.FileGraph) []model.CrossDirectoryDep {
	var crossDeps []model.CrossDirectoryDep

	for _, edge := range fg.Edges() {
		sourceFile := edge[0]
		targetFile := edge[1]
		if isExternal(fg, targetFile) {
			continue
		}

		sourceDir := fileToDirectory(sourceFile)
		targetDir := fileToDirectory(targetFile)

		// If directories differ, this is a cross-directory dependency
		if sourceDir != targetDir {
			crossDeps = append(crossDeps, model.CrossDirectoryDep{
				SourceFile: sourceFile,
				TargetFile: targetFile,
				SourceDir:  sourceDir,
				TargetDir:  targetDir,
			})
		}
	}

	return crossDeps
}

// DirectoryGraph collapses the file graph onto top-level directories.
// Directories appear in the order their first file was discovered.
func DirectoryGraph(fg *graph.FileGraph) *graph.FileGraph {
	dg := graph.NewFileGraph()
	for _, node := range fg.Nodes() {
		if node.Kind == graph.KindFile {
			dg.AddFile(fileToDirectory(node.ID))
		}
	}
	for _, dep := range FindCrossDirectoryDeps(fg) {
		// Both directories were added above
		_ = dg.AddDependency(dep.SourceDir, dep.TargetDir)
	}
	return dg
}

// FindDirectoryCycles returns the elementary cycles between top-level
// directories, i.e. layering violations
func FindDirectoryCycles(fg *graph.FileGraph) []cycles.FileCycle {
	return cycles.FindFileCycles(DirectoryGraph(fg))
}

// fileToDirectory returns the top-level directory of a file identity
// e.g., "util/strings.h" -> "util"
// e.g., "main.cc" -> "."
func fileToDirectory(id string) string {
	dir, _, found := strings.Cut(id, "/")
	if !found {
		return "."
	}
	return dir
}

func isExternal(fg *graph.FileGraph, id string) bool {
	node, ok := fg.GetNode(id)
	return ok && node.Kind == graph.KindExternal
}
