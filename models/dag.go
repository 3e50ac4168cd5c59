package models

import (
	"fmt"
	"sort"
)

// dag is the directed-acyclic structure backing a BayesianNetwork: nodes are
// variable names, edges run parent -> child. It only carries the queries a
// BayesianNetwork actually needs (parent lookups for CPD validation,
// topological order for ancestral sampling, moralization for MoralGraph) —
// not a general-purpose graph API.
type dag struct {
	nodes    map[string]bool
	parents  map[string]map[string]bool
	children map[string]map[string]bool
}

func newDAG() *dag {
	return &dag{
		nodes:    make(map[string]bool),
		parents:  make(map[string]map[string]bool),
		children: make(map[string]map[string]bool),
	}
}

// newDAGFromEdges builds a dag from parent->child pairs, rejecting any edge
// that would close a cycle.
func newDAGFromEdges(edges [][2]string) (*dag, error) {
	d := newDAG()
	for _, e := range edges {
		if err := d.addEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *dag) addNode(name string) {
	if d.nodes[name] {
		return
	}
	d.nodes[name] = true
	d.parents[name] = make(map[string]bool)
	d.children[name] = make(map[string]bool)
}

func (d *dag) addEdge(parent, child string) error {
	d.addNode(parent)
	d.addNode(child)

	if d.isAncestor(child, parent) {
		return fmt.Errorf("models: edge %s -> %s would create a cycle", parent, child)
	}

	d.parents[child][parent] = true
	d.children[parent][child] = true
	return nil
}

// isAncestor reports whether start can reach target by following parent
// links, used to reject edges that would close a cycle.
func (d *dag) isAncestor(start, target string) bool {
	visited := make(map[string]bool)
	var walk func(node string) bool
	walk = func(node string) bool {
		if node == target {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for parent := range d.parents[node] {
			if walk(parent) {
				return true
			}
		}
		return false
	}
	return walk(start)
}

func (d *dag) nodeNames() []string {
	names := make([]string, 0, len(d.nodes))
	for n := range d.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (d *dag) edgeList() [][2]string {
	edges := make([][2]string, 0)
	for parent, children := range d.children {
		for child := range children {
			edges = append(edges, [2]string{parent, child})
		}
	}
	return edges
}

func (d *dag) parentsOf(node string) []string {
	parents := make([]string, 0, len(d.parents[node]))
	for p := range d.parents[node] {
		parents = append(parents, p)
	}
	sort.Strings(parents)
	return parents
}

// topologicalSort orders nodes so every parent precedes its children, via
// Kahn's algorithm with a sorted frontier for a deterministic result.
func (d *dag) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for node := range d.nodes {
		inDegree[node] = len(d.parents[node])
	}

	var queue []string
	for node, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		sort.Strings(queue)
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for child := range d.children[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(d.nodes) {
		return nil, fmt.Errorf("models: cycle detected in network")
	}
	return order, nil
}

func (d *dag) copy() *dag {
	c := newDAG()
	for node := range d.nodes {
		c.addNode(node)
	}
	for parent, children := range d.children {
		for child := range children {
			_ = c.addEdge(parent, child)
		}
	}
	return c
}

// MoralGraph is the undirected graph obtained from a BayesianNetwork's DAG
// by dropping edge direction and linking ("marrying") every pair of parents
// that share a child. This mirrors, over node names, the marrying step the
// junction-tree compiler's own domain graph performs internally over
// *variable.Variable pointers (see junction/graph.go's newDomainGraph) —
// exposed here as a standalone structural diagnostic.
type MoralGraph struct {
	edges map[string]map[string]bool
}

func newMoralGraph() *MoralGraph {
	return &MoralGraph{edges: make(map[string]map[string]bool)}
}

func (m *MoralGraph) link(a, b string) {
	if m.edges[a] == nil {
		m.edges[a] = make(map[string]bool)
	}
	if m.edges[b] == nil {
		m.edges[b] = make(map[string]bool)
	}
	m.edges[a][b] = true
	m.edges[b][a] = true
}

// HasEdge reports whether a and b are linked in the moral graph.
func (m *MoralGraph) HasEdge(a, b string) bool {
	return m.edges[a] != nil && m.edges[a][b]
}

func (d *dag) moralize() *MoralGraph {
	m := newMoralGraph()
	for parent, children := range d.children {
		for child := range children {
			m.link(parent, child)
		}
	}
	for child := range d.nodes {
		parents := d.parentsOf(child)
		for i := 0; i < len(parents); i++ {
			for j := i + 1; j < len(parents); j++ {
				m.link(parents[i], parents[j])
			}
		}
	}
	return m
}
