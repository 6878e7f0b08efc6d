package cycles

// Graph is the read-only view the enumerator needs: nodes are the indices
// 0..NodeCount()-1 and Successors lists outgoing edges in a stable order
type Graph interface {
	NodeCount() int
	Successors(idx int) []int
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// restricted to nodes accepted by allowed
type tarjanSCC struct {
	graph   Graph
	allowed func(int) bool
	index   int
	stack   []int
	onStack []bool
	indices []int // -1 until visited
	lowLink []int
	sccs    [][]int
}

// newTarjanSCC creates a new Tarjan SCC finder. A nil allowed accepts every node.
func newTarjanSCC(g Graph, allowed func(int) bool) *tarjanSCC {
	n := g.NodeCount()
	if allowed == nil {
		allowed = func(int) bool { return true }
	}
	t := &tarjanSCC{
		graph:   g,
		allowed: allowed,
		onStack: make([]bool, n),
		indices: make([]int, n),
		lowLink: make([]int, n),
	}
	for i := range t.indices {
		t.indices[i] = -1
	}
	return t
}

// findSCCs returns every component, singletons included, in the order
// Tarjan completes them
func (t *tarjanSCC) findSCCs() [][]int {
	for v := 0; v < t.graph.NodeCount(); v++ {
		if t.allowed(v) && t.indices[v] < 0 {
			t.strongConnect(v)
		}
	}
	return t.sccs
}

// componentOf returns the component containing v. The search starts at v,
// so v's component is the last one completed.
func (t *tarjanSCC) componentOf(v int) []int {
	t.strongConnect(v)
	return t.sccs[len(t.sccs)-1]
}

// strongConnect performs the recursive Tarjan's algorithm
func (t *tarjanSCC) strongConnect(v int) {
	// Set the depth index for this node
	t.indices[v] = t.index
	t.lowLink[v] = t.index
	t.index++

	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.graph.Successors(v) {
		if !t.allowed(w) {
			continue
		}
		if t.indices[w] < 0 {
			// Successor has not yet been visited; recurse on it
			t.strongConnect(w)
			t.lowLink[v] = min(t.lowLink[v], t.lowLink[w])
		} else if t.onStack[w] {
			// Successor is on stack and hence in the current SCC
			t.lowLink[v] = min(t.lowLink[v], t.indices[w])
		}
	}

	// If v is a root node, pop the stack and create an SCC
	if t.lowLink[v] == t.indices[v] {
		var scc []int
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

// hasSelfLoop reports whether v has an edge to itself
func hasSelfLoop(g Graph, v int) bool {
	for _, w := range g.Successors(v) {
		if w == v {
			return true
		}
	}
	return false
}
