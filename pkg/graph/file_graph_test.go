package graph

import (
	"reflect"
	"testing"
)

func TestNewFileGraph(t *testing.T) {
	fg := NewFileGraph()
	if fg == nil {
		t.Fatal("NewFileGraph() returned nil")
	}

	if fg.NodeCount() != 0 || fg.EdgeCount() != 0 {
		t.Errorf("New graph should be empty, got %d nodes and %d edges", fg.NodeCount(), fg.EdgeCount())
	}
}

func TestAddFile(t *testing.T) {
	fg := NewFileGraph()

	first := fg.AddFile("util/math.h")
	again := fg.AddFile("util/math.h")

	if first != again {
		t.Errorf("AddFile should be idempotent, got indices %d and %d", first, again)
	}
	if fg.NodeCount() != 1 {
		t.Errorf("Expected 1 node, got %d", fg.NodeCount())
	}

	node, exists := fg.GetNode("util/math.h")
	if !exists {
		t.Fatal("File not found in graph")
	}
	if node.Label != "math.h" {
		t.Errorf("Expected label math.h, got %s", node.Label)
	}
	if node.Kind != KindFile {
		t.Errorf("Expected kind %s, got %s", KindFile, node.Kind)
	}
}

func TestAddExternal(t *testing.T) {
	fg := NewFileGraph()
	fg.AddFile("missing.h")
	fg.AddExternal("missing.h")

	if fg.NodeCount() != 2 {
		t.Fatalf("External node must not collide with a file, got %d nodes", fg.NodeCount())
	}

	node, exists := fg.GetNode(ExternalPrefix + "missing.h")
	if !exists {
		t.Fatal("External node not found")
	}
	if node.Kind != KindExternal || node.Label != "missing.h" {
		t.Errorf("Unexpected external node %+v", node)
	}
}

func TestFileAddDependency(t *testing.T) {
	fg := NewFileGraph()

	fg.AddFile("util/math.cc")
	fg.AddFile("util/strings.h")

	if err := fg.AddDependency("util/math.cc", "util/strings.h"); err != nil {
		t.Fatalf("Failed to add dependency: %v", err)
	}
	// Duplicate edges collapse
	if err := fg.AddDependency("util/math.cc", "util/strings.h"); err != nil {
		t.Fatalf("Failed to add duplicate dependency: %v", err)
	}

	edges := fg.Edges()
	if len(edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(edges))
	}
	if edges[0][0] != "util/math.cc" || edges[0][1] != "util/strings.h" {
		t.Errorf("Expected edge math.cc->strings.h, got %v", edges[0])
	}
	if !fg.HasDependency("util/math.cc", "util/strings.h") {
		t.Error("HasDependency should report the edge")
	}
	if fg.HasDependency("util/strings.h", "util/math.cc") {
		t.Error("Edges are directed")
	}
}

func TestAddDependencyUnknownNode(t *testing.T) {
	fg := NewFileGraph()
	fg.AddFile("a.h")

	if err := fg.AddDependency("a.h", "b.h"); err == nil {
		t.Error("Expected error for unknown target")
	}
	if err := fg.AddDependency("b.h", "a.h"); err == nil {
		t.Error("Expected error for unknown source")
	}
	if fg.EdgeCount() != 0 {
		t.Errorf("Expected no edges, got %d", fg.EdgeCount())
	}
}

func TestSelfDependency(t *testing.T) {
	fg := NewFileGraph()
	fg.AddFile("a.h")

	if err := fg.AddDependency("a.h", "a.h"); err != nil {
		t.Fatalf("Self-loops must be accepted: %v", err)
	}
	if fg.EdgeCount() != 1 {
		t.Errorf("Expected 1 edge, got %d", fg.EdgeCount())
	}

	// The gonum view leaves self-loops out
	if n := fg.Directed().Edges().Len(); n != 0 {
		t.Errorf("Expected no edges in gonum view, got %d", n)
	}
}

func TestSuccessorsKeepInsertionOrder(t *testing.T) {
	fg := NewFileGraph()
	for _, id := range []string{"main.cpp", "z.h", "a.h", "m.h"} {
		fg.AddFile(id)
	}
	for _, dep := range []string{"z.h", "a.h", "m.h"} {
		if err := fg.AddDependency("main.cpp", dep); err != nil {
			t.Fatal(err)
		}
	}

	if got := fg.GetDependencies("main.cpp"); !reflect.DeepEqual(got, []string{"z.h", "a.h", "m.h"}) {
		t.Errorf("GetDependencies() = %v", got)
	}
	if got := fg.Successors(0); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Successors(0) = %v", got)
	}
}

func TestComponents(t *testing.T) {
	fg := NewFileGraph()
	for _, id := range []string{"a.h", "b.h", "c.h", "d.h", "e.h", "f.h"} {
		fg.AddFile(id)
	}
	edges := [][2]string{
		{"a.h", "b.h"}, {"b.h", "c.h"}, {"c.h", "a.h"},
		{"c.h", "d.h"},
		{"e.h", "e.h"},
		{"f.h", "a.h"},
	}
	for _, e := range edges {
		if err := fg.AddDependency(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}

	want := [][]string{{"a.h", "b.h", "c.h"}, {"e.h"}}
	if got := fg.Components(); !reflect.DeepEqual(got, want) {
		t.Errorf("Components() = %v, want %v", got, want)
	}
}

func TestBuildFileGraph(t *testing.T) {
	files := []string{"main.cpp", "util/math.h", "util/strings.h", "lonely.h"}
	fileDeps := []*FileDependency{
		{
			SourceFile:   "main.cpp",
			Dependencies: []string{"util/math.h", "util/strings.h", "util/math.h"},
			External:     []string{"gone.h"},
		},
		{SourceFile: "util/math.h", Dependencies: []string{"broken.h"}},
		{SourceFile: "broken.h", Dependencies: []string{"util/math.h"}},
	}

	fg, dropped := BuildFileGraph(files, fileDeps)

	if fg.NodeCount() != 5 {
		t.Errorf("Expected 5 nodes (4 files + 1 external), got %d", fg.NodeCount())
	}
	if fg.EdgeCount() != 3 {
		t.Errorf("Expected 3 edges, got %d: %v", fg.EdgeCount(), fg.Edges())
	}
	if dropped != 2 {
		t.Errorf("Expected 2 dropped dependencies, got %d", dropped)
	}
	if _, exists := fg.GetNode("lonely.h"); !exists {
		t.Error("Files without edges must still be nodes")
	}
	if !fg.HasDependency("main.cpp", ExternalPrefix+"gone.h") {
		t.Error("Expected edge to external node")
	}
}
