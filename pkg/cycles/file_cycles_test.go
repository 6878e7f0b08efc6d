package cycles

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ritzau/include-cycles/pkg/graph"
)

func buildGraph(t *testing.T, files []string, edges [][2]string) *graph.FileGraph {
	t.Helper()
	fg := graph.NewFileGraph()
	for _, f := range files {
		fg.AddFile(f)
	}
	for _, e := range edges {
		if err := fg.AddDependency(e[0], e[1]); err != nil {
			t.Fatalf("AddDependency(%s, %s): %v", e[0], e[1], err)
		}
	}
	return fg
}

func TestFindFileCycles_NoCycles(t *testing.T) {
	// Simple acyclic dependency chain: A -> B -> C
	fg := buildGraph(t, []string{"a.cc", "b.h", "c.h"}, [][2]string{
		{"a.cc", "b.h"},
		{"b.h", "c.h"},
	})

	cycles := FindFileCycles(fg)

	if len(cycles) != 0 {
		t.Errorf("Expected no cycles, but found %d", len(cycles))
	}
}

func TestFindFileCycles_NoEdges(t *testing.T) {
	fg := buildGraph(t, []string{"a.h", "b.h", "c.h"}, nil)

	if cycles := FindFileCycles(fg); len(cycles) != 0 {
		t.Errorf("Expected no cycles, but found %v", cycles)
	}
}

func TestFindFileCycles_SelfInclude(t *testing.T) {
	fg := buildGraph(t, []string{"a.h", "b.h"}, [][2]string{
		{"a.h", "a.h"},
		{"a.h", "b.h"},
	})

	cycles := FindFileCycles(fg)

	want := []FileCycle{{Files: []string{"a.h"}}}
	if !reflect.DeepEqual(cycles, want) {
		t.Errorf("Expected %v, got %v", want, cycles)
	}
}

func TestFindFileCycles_SimpleCycle(t *testing.T) {
	// Simple cycle: A -> B -> A
	fg := buildGraph(t, []string{"a.h", "b.h"}, [][2]string{
		{"a.h", "b.h"},
		{"b.h", "a.h"},
	})

	cycles := FindFileCycles(fg)

	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(cycles))
	}
	// Cycles start at their earliest discovered member
	if !reflect.DeepEqual(cycles[0].Files, []string{"a.h", "b.h"}) {
		t.Errorf("Expected cycle [a.h b.h], got %v", cycles[0].Files)
	}
}

func TestFindFileCycles_ThreeNodeCycle(t *testing.T) {
	// Three-node cycle: A -> B -> C -> A
	fg := buildGraph(t, []string{"a.h", "b.h", "c.h"}, [][2]string{
		{"a.h", "b.h"},
		{"b.h", "c.h"},
		{"c.h", "a.h"},
	})

	cycles := FindFileCycles(fg)

	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(cycles))
	}
	if !reflect.DeepEqual(cycles[0].Files, []string{"a.h", "b.h", "c.h"}) {
		t.Errorf("Unexpected cycle %v", cycles[0].Files)
	}
}

func TestFindFileCycles_MultipleCycles(t *testing.T) {
	// Two separate cycles:
	// Cycle 1: A -> B -> A
	// Cycle 2: C -> D -> E -> C
	fg := buildGraph(t, []string{"a.h", "b.h", "c.h", "d.h", "e.h"}, [][2]string{
		{"a.h", "b.h"},
		{"b.h", "a.h"},
		{"c.h", "d.h"},
		{"d.h", "e.h"},
		{"e.h", "c.h"},
	})

	cycles := FindFileCycles(fg)

	want := []FileCycle{
		{Files: []string{"a.h", "b.h"}},
		{Files: []string{"c.h", "d.h", "e.h"}},
	}
	if !reflect.DeepEqual(cycles, want) {
		t.Errorf("Expected %v, got %v", want, cycles)
	}
}

func TestFindFileCycles_OverlappingCycles(t *testing.T) {
	// Component holding several circuits through shared nodes. The
	// old strongly connected component view reported a single group here.
	fg := buildGraph(t, []string{"a.h", "b.h", "c.h"}, [][2]string{
		{"a.h", "b.h"},
		{"b.h", "c.h"},
		{"c.h", "a.h"},
		{"a.h", "c.h"},
		{"c.h", "b.h"},
		{"b.h", "a.h"},
	})

	cycles := FindFileCycles(fg)

	want := []FileCycle{
		{Files: []string{"a.h", "b.h", "c.h"}},
		{Files: []string{"a.h", "b.h"}},
		{Files: []string{"a.h", "c.h"}},
		{Files: []string{"a.h", "c.h", "b.h"}},
		{Files: []string{"b.h", "c.h"}},
	}
	if !reflect.DeepEqual(cycles, want) {
		t.Errorf("Expected %v, got %v", want, cycles)
	}
	if err := VerifyAll(fg, cycles); err != nil {
		t.Errorf("VerifyAll() = %v", err)
	}
}

func TestFindFileCycles_CycleWithAcyclicParts(t *testing.T) {
	// A -> B -> C (acyclic)
	// D -> E -> D (cyclic)
	fg := buildGraph(t, []string{"a.cc", "b.h", "c.h", "d.h", "e.h"}, [][2]string{
		{"a.cc", "b.h"},
		{"b.h", "c.h"},
		{"d.h", "e.h"},
		{"e.h", "d.h"},
	})

	cycles := FindFileCycles(fg)

	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(cycles))
	}
	if len(cycles[0].Files) != 2 {
		t.Errorf("Expected cycle of length 2, got %d", len(cycles[0].Files))
	}
}

func TestFindFileCycles_Deterministic(t *testing.T) {
	files := []string{"a.h", "b.h", "c.h", "d.h"}
	var edges [][2]string
	for _, from := range files {
		for _, to := range files {
			if from != to {
				edges = append(edges, [2]string{from, to})
			}
		}
	}
	fg := buildGraph(t, files, edges)

	first := FindFileCycles(fg)
	second := FindFileCycles(fg)

	// Complete digraph on 4 nodes: 6 two-cycles, 8 three-cycles, 6 four-cycles
	if len(first) != 20 {
		t.Errorf("Expected 20 cycles, got %d", len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Repeated runs must produce identical cycle lists")
	}
}

func TestVerifyAll_Rejects(t *testing.T) {
	fg := buildGraph(t, []string{"a.h", "b.h", "c.h"}, [][2]string{
		{"a.h", "b.h"},
		{"b.h", "a.h"},
		{"b.h", "c.h"},
	})

	tests := []struct {
		name   string
		cycles []FileCycle
		want   error
	}{
		{"empty", []FileCycle{{}}, ErrEmptyCycle},
		{"unknown", []FileCycle{{Files: []string{"x.h"}}}, ErrUnknownNode},
		{"missing edge", []FileCycle{{Files: []string{"b.h", "c.h"}}}, ErrMissingEdge},
		{"repeated", []FileCycle{{Files: []string{"a.h", "b.h", "a.h", "b.h"}}}, ErrRepeatedNode},
		{"rotation", []FileCycle{
			{Files: []string{"a.h", "b.h"}},
			{Files: []string{"b.h", "a.h"}},
		}, ErrDuplicateCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyAll(fg, tt.cycles); !errors.Is(err, tt.want) {
				t.Errorf("VerifyAll() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRotationKey(t *testing.T) {
	a := RotationKey([]string{"b.h", "c.h", "a.h"})
	b := RotationKey([]string{"a.h", "b.h", "c.h"})
	reverse := RotationKey([]string{"a.h", "c.h", "b.h"})

	if a != b {
		t.Errorf("Rotations should share a key: %q vs %q", a, b)
	}
	if a == reverse {
		t.Error("A cycle and its reverse are different cycles")
	}
	if RotationKey(nil) != "" {
		t.Error("Empty cycle should have an empty key")
	}
}
