package cycles

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ritzau/include-cycles/pkg/graph"
)

var (
	ErrEmptyCycle     = errors.New("cycle has no nodes")
	ErrUnknownNode    = errors.New("cycle references unknown node")
	ErrRepeatedNode   = errors.New("cycle repeats a node")
	ErrMissingEdge    = errors.New("cycle uses a missing edge")
	ErrDuplicateCycle = errors.New("cycle reported twice")
)

// FileCycle represents a circular dependency between source files
type FileCycle struct {
	Files []string // identities in include order; the last includes the first
}

// FindFileCycles finds all elementary circular dependencies in the file
// dependency graph
func FindFileCycles(fg *graph.FileGraph) []FileCycle {
	cycles := make([]FileCycle, 0)
	for circuit := range Circuits(fg) {
		files := make([]string, len(circuit))
		for i, idx := range circuit {
			files[i] = fg.NodeAt(idx).ID
		}
		cycles = append(cycles, FileCycle{Files: files})
	}
	return cycles
}

// Verify checks that cycle is a closed elementary walk in g
func Verify(g Graph, cycle []int) error {
	if len(cycle) == 0 {
		return ErrEmptyCycle
	}
	seen := make(map[int]bool, len(cycle))
	for i, v := range cycle {
		if v < 0 || v >= g.NodeCount() {
			return fmt.Errorf("%w: %d", ErrUnknownNode, v)
		}
		if seen[v] {
			return fmt.Errorf("%w: %d", ErrRepeatedNode, v)
		}
		seen[v] = true

		next := cycle[(i+1)%len(cycle)]
		if !slices.Contains(g.Successors(v), next) {
			return fmt.Errorf("%w: %d -> %d", ErrMissingEdge, v, next)
		}
	}
	return nil
}

// VerifyAll checks every file cycle against the graph and rejects
// rotations of an already reported cycle
func VerifyAll(fg *graph.FileGraph, cycles []FileCycle) error {
	seen := make(map[string]bool, len(cycles))
	for _, c := range cycles {
		idx := make([]int, len(c.Files))
		for i, id := range c.Files {
			n, ok := fg.IndexOf(id)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownNode, id)
			}
			idx[i] = n
		}
		if err := Verify(fg, idx); err != nil {
			return fmt.Errorf("cycle %v: %w", c.Files, err)
		}

		key := RotationKey(c.Files)
		if seen[key] {
			return fmt.Errorf("%w: %v", ErrDuplicateCycle, c.Files)
		}
		seen[key] = true
	}
	return nil
}

// RotationKey returns a key shared by all rotations of a cycle: the
// rotation starting at the smallest identity, joined
func RotationKey(files []string) string {
	if len(files) == 0 {
		return ""
	}
	lo := 0
	for i, f := range files {
		if f < files[lo] {
			lo = i
		}
	}
	rotated := append(slices.Clone(files[lo:]), files[:lo]...)
	return strings.Join(rotated, "\x00")
}
