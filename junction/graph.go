package junction

import (
	"github.com/junctiontree/bayesnet/network"
	"github.com/junctiontree/bayesnet/variable"
)

// node is a vertex of the domain graph: one per network variable, linked to
// every other variable that shares a table with it (the graph a moral
// graph would produce, but built directly from table domains rather than
// from parent-marrying a DAG, since this module's networks are plain bags
// of tables).
type node struct {
	variable *variable.Variable
	links    map[*node]bool
}

func newNode(v *variable.Variable) *node {
	return &node{variable: v, links: make(map[*node]bool)}
}

// addLink connects two nodes; links are symmetric.
func (n *node) addLink(other *node) {
	n.links[other] = true
	other.links[n] = true
}

// removeLink disconnects two nodes.
func (n *node) removeLink(other *node) {
	delete(n.links, other)
	delete(other.links, n)
}

// isSimplicial reports whether every pair of n's neighbors is itself
// linked — the condition under which n can be eliminated from the graph
// without requiring any new (fill-in) edges.
func (n *node) isSimplicial() bool {
	neighbors := n.neighborSlice()
	for i := 0; i < len(neighbors); i++ {
		for j := i + 1; j < len(neighbors); j++ {
			if !neighbors[i].links[neighbors[j]] {
				return false
			}
		}
	}
	return true
}

// fillInCount returns the number of missing edges among n's neighbors —
// the number of fill-in edges eliminating n would require.
func (n *node) fillInCount() int {
	neighbors := n.neighborSlice()
	missing := 0
	for i := 0; i < len(neighbors); i++ {
		for j := i + 1; j < len(neighbors); j++ {
			if !neighbors[i].links[neighbors[j]] {
				missing++
			}
		}
	}
	return missing
}

// makeSimplicial adds the fill-in edges needed to make n simplicial: every
// pair of its neighbors becomes linked.
func (n *node) makeSimplicial() {
	neighbors := n.neighborSlice()
	for i := 0; i < len(neighbors); i++ {
		for j := i + 1; j < len(neighbors); j++ {
			if !neighbors[i].links[neighbors[j]] {
				neighbors[i].addLink(neighbors[j])
			}
		}
	}
}

// family returns n together with all of its neighbors.
func (n *node) family() map[*node]bool {
	f := make(map[*node]bool, len(n.links)+1)
	f[n] = true
	for nb := range n.links {
		f[nb] = true
	}
	return f
}

func (n *node) neighborSlice() []*node {
	out := make([]*node, 0, len(n.links))
	for nb := range n.links {
		out = append(out, nb)
	}
	return out
}

// isIsolated reports whether n has no links at all.
func (n *node) isIsolated() bool {
	return len(n.links) == 0
}

// domainGraph is the undirected graph over a network's variables used to
// drive simplicial elimination: two variables are linked exactly when some
// table in the network has both in its domain. Building the junction tree
// progressively removes nodes from a copy of this graph, so its node list
// is kept in the insertion order of network.Domain() to make elimination
// (isolated-node and minimum-fill-in tie-breaking) deterministic.
type domainGraph struct {
	order []*node
	byVar map[*variable.Variable]*node
}

func newDomainGraph(net *network.Network) *domainGraph {
	g := &domainGraph{byVar: make(map[*variable.Variable]*node)}
	for _, v := range net.Domain() {
		n := newNode(v)
		g.order = append(g.order, n)
		g.byVar[v] = n
	}
	for _, table := range net.Tables {
		dom := table.Domain
		for i := 0; i < len(dom); i++ {
			for j := i + 1; j < len(dom); j++ {
				g.byVar[dom[i]].addLink(g.byVar[dom[j]])
			}
		}
	}
	return g
}

// isolatedNode returns the first isolated node in insertion order, or nil
// if there is none.
func (g *domainGraph) isolatedNode() *node {
	for _, n := range g.order {
		if n.isIsolated() {
			return n
		}
	}
	return nil
}

// simplicialNode returns the first simplicial node in insertion order, or
// nil if there is none. A node with no remaining neighbors is trivially
// simplicial (there are no neighbor pairs to check), so a node that
// becomes isolated mid-elimination is picked up here like any other; the
// caller peels genuinely isolated nodes (ones the network never linked at
// all) separately up front purely to give them their own single-variable
// clique without running the pairwise check.
func (g *domainGraph) simplicialNode() *node {
	for _, n := range g.order {
		if n.isSimplicial() {
			return n
		}
	}
	return nil
}

// minimalFillInNode returns the node whose elimination requires the fewest
// fill-in edges, breaking ties by insertion order.
func (g *domainGraph) minimalFillInNode() *node {
	var best *node
	bestCount := -1
	for _, n := range g.order {
		count := n.fillInCount()
		if bestCount == -1 || count < bestCount {
			best = n
			bestCount = count
		}
	}
	return best
}

// removeNode deletes n from the graph, unlinking it from every neighbor.
func (g *domainGraph) removeNode(n *node) {
	for i, other := range g.order {
		if other == n {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	delete(g.byVar, n.variable)

	neighbors := n.neighborSlice()
	for _, nb := range neighbors {
		n.removeLink(nb)
	}
}

// size returns the number of nodes currently in the graph.
func (g *domainGraph) size() int {
	return len(g.order)
}
