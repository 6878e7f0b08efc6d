package cycles

import (
	"iter"
	"slices"
)

// nodeState tracks a node during the search from one start node
type nodeState uint8

const (
	unvisited nodeState = iota // not reached yet from the current start
	onStack                    // on the current path
	blocked                    // backtracked through without closing a circuit
	available                  // unblocked after a circuit was found through a blocker
)

// circuitSearch holds the blocking-search state for one start node at a time
type circuitSearch struct {
	g        Graph
	start    int
	member   []bool // node belongs to the component being searched
	state    []nodeState
	blockers [][]int // nodes to unblock once the keyed node is unblocked
	stack    []int
	yield    func([]int) bool
	stopped  bool
}

// Circuits enumerates every elementary circuit of g. Each circuit starts
// at its lowest-index node, and circuits come out ordered by that node,
// then by search order, so the sequence is the same for the same graph.
// Breaking out of the range loop stops the search.
func Circuits(g Graph) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		n := g.NodeCount()
		if n == 0 {
			return
		}

		// Nodes in different components never share a circuit
		comp := make([]int, n)
		for id, scc := range newTarjanSCC(g, nil).findSCCs() {
			for _, v := range scc {
				comp[v] = id
			}
		}

		s := &circuitSearch{
			g:        g,
			member:   make([]bool, n),
			state:    make([]nodeState, n),
			blockers: make([][]int, n),
			yield:    yield,
		}

		for start := 0; start < n; start++ {
			// Component of start within the nodes not yet used as a start
			sub := newTarjanSCC(g, func(v int) bool {
				return v >= start && comp[v] == comp[start]
			}).componentOf(start)
			if len(sub) == 1 && !hasSelfLoop(g, start) {
				continue
			}

			s.reset(start, sub)
			s.circuit(start)
			s.clear(sub)
			if s.stopped {
				return
			}
		}
	}
}

func (s *circuitSearch) reset(start int, nodes []int) {
	s.start = start
	s.stack = s.stack[:0]
	for _, v := range nodes {
		s.member[v] = true
		s.state[v] = unvisited
		s.blockers[v] = nil
	}
}

func (s *circuitSearch) clear(nodes []int) {
	for _, v := range nodes {
		s.member[v] = false
	}
}

// circuit extends the path with v and reports whether any circuit back to
// the start was closed below it
func (s *circuitSearch) circuit(v int) bool {
	found := false
	s.stack = append(s.stack, v)
	s.state[v] = onStack

	for _, w := range s.g.Successors(v) {
		if !s.member[w] {
			continue
		}
		if w == s.start {
			if !s.yield(slices.Clone(s.stack)) {
				s.stopped = true
				return true
			}
			found = true
		} else if s.state[w] == unvisited || s.state[w] == available {
			if s.circuit(w) {
				found = true
			}
			if s.stopped {
				return true
			}
		}
	}

	s.stack = s.stack[:len(s.stack)-1]
	if found {
		s.unblock(v)
		return true
	}

	s.state[v] = blocked
	for _, w := range s.g.Successors(v) {
		if s.member[w] && !slices.Contains(s.blockers[w], v) {
			s.blockers[w] = append(s.blockers[w], v)
		}
	}
	return false
}

// unblock makes u available again and propagates to the nodes it blocked.
// Nodes on the current path are left alone.
func (s *circuitSearch) unblock(u int) {
	s.state[u] = available
	waiting := s.blockers[u]
	s.blockers[u] = nil
	for _, w := range waiting {
		if s.state[w] == blocked {
			s.unblock(w)
		}
	}
}
