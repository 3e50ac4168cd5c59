// Package models provides an ergonomic, string-keyed front-end over the
// lower-level variable/factors/network/junction packages: build a network
// by naming nodes and edges the way a user would sketch a DAG, then compile
// it down to the engine's pointer-identity Variable/Table representation
// for exact inference.
package models

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/junctiontree/bayesnet/factors"
	"github.com/junctiontree/bayesnet/junction"
	"github.com/junctiontree/bayesnet/network"
	"github.com/junctiontree/bayesnet/variable"
)

// BayesianNetwork is a discrete Bayesian network named by string node
// labels: a DAG of named variables, each carrying a TabularCPD giving its
// distribution conditioned on its DAG parents.
type BayesianNetwork struct {
	dag       *dag
	CPDs      map[string]*factors.TabularCPD
	variables map[string]*variable.Variable
}

// NewBayesianNetwork creates a Bayesian Network with the given directed
// edges. Edges alone don't carry cardinality information; each node's
// Variable is created once its CPD is added via AddCPD.
func NewBayesianNetwork(edges [][2]string) (*BayesianNetwork, error) {
	d, err := newDAGFromEdges(edges)
	if err != nil {
		return nil, err
	}

	return &BayesianNetwork{
		dag:       d,
		CPDs:      make(map[string]*factors.TabularCPD),
		variables: make(map[string]*variable.Variable),
	}, nil
}

// AddCPD adds a discrete CPD to the network. cpd.Variable's symbol must
// name a node already present in the DAG (from an edge passed to
// NewBayesianNetwork), and
// cpd.Evidence must match that node's DAG parents exactly, as a set.
func (bn *BayesianNetwork) AddCPD(cpd *factors.TabularCPD) error {
	name := cpd.Variable.Symbol()

	found := false
	for _, node := range bn.dag.nodeNames() {
		if node == name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("models: variable %s not in network", name)
	}

	parents := bn.dag.parentsOf(name)
	sort.Strings(parents)
	evidenceNames := make([]string, len(cpd.Evidence))
	for i, e := range cpd.Evidence {
		evidenceNames[i] = e.Symbol()
	}
	sort.Strings(evidenceNames)

	if len(parents) != len(evidenceNames) {
		return fmt.Errorf("models: CPD evidence does not match parents for %s", name)
	}
	for i := range parents {
		if parents[i] != evidenceNames[i] {
			return fmt.Errorf("models: CPD evidence does not match parents for %s", name)
		}
	}

	bn.CPDs[name] = cpd
	bn.variables[name] = cpd.Variable
	for _, e := range cpd.Evidence {
		bn.variables[e.Symbol()] = e
	}

	return nil
}

// GetCPD returns the CPD for a named variable.
func (bn *BayesianNetwork) GetCPD(name string) (*factors.TabularCPD, error) {
	cpd, ok := bn.CPDs[name]
	if !ok {
		return nil, fmt.Errorf("models: no CPD found for variable %s", name)
	}
	return cpd, nil
}

// GetCPDs returns all CPDs in the network.
func (bn *BayesianNetwork) GetCPDs() []*factors.TabularCPD {
	cpds := make([]*factors.TabularCPD, 0, len(bn.CPDs))
	for _, cpd := range bn.CPDs {
		cpds = append(cpds, cpd)
	}
	return cpds
}

// Variable returns the *variable.Variable registered for a named node, or
// nil if no CPD mentioning it has been added yet.
func (bn *BayesianNetwork) Variable(name string) *variable.Variable {
	return bn.variables[name]
}

// Nodes returns all node names in the network.
func (bn *BayesianNetwork) Nodes() []string {
	return bn.dag.nodeNames()
}

// Edges returns all edges in the network.
func (bn *BayesianNetwork) Edges() [][2]string {
	return bn.dag.edgeList()
}

// MoralGraph returns the network's moral graph: the DAG's edges made
// undirected, with every pair of parents sharing a child linked directly.
// This is the same marrying step the junction-tree compiler's domain graph
// performs internally (two variables sharing a table's domain are linked),
// exposed here as a standalone structural diagnostic over node names.
func (bn *BayesianNetwork) MoralGraph() *MoralGraph {
	return bn.dag.moralize()
}

// CheckModel validates that every node has a CPD and every CPD's evidence
// matches the DAG structure.
func (bn *BayesianNetwork) CheckModel() error {
	for _, node := range bn.dag.nodeNames() {
		cpd, ok := bn.CPDs[node]
		if !ok {
			return fmt.Errorf("models: node %s has no CPD", node)
		}

		parents := bn.dag.parentsOf(node)
		sort.Strings(parents)
		evidenceNames := make([]string, len(cpd.Evidence))
		for i, e := range cpd.Evidence {
			evidenceNames[i] = e.Symbol()
		}
		sort.Strings(evidenceNames)

		if len(parents) != len(evidenceNames) {
			return fmt.Errorf("models: CPD evidence count mismatch for %s", node)
		}
		for i := range parents {
			if parents[i] != evidenceNames[i] {
				return fmt.Errorf("models: CPD evidence mismatch for %s", node)
			}
		}
	}
	return nil
}

// Compile converts the network's CPDs into a network.Network of joint
// tables, ready to be handed to junction.Compile for exact inference.
func (bn *BayesianNetwork) Compile() (*network.Network, error) {
	if err := bn.CheckModel(); err != nil {
		return nil, err
	}

	net := network.New()
	for _, node := range bn.dag.nodeNames() {
		table, err := bn.CPDs[node].ToTable()
		if err != nil {
			return nil, fmt.Errorf("models: compiling CPD for %s: %w", node, err)
		}
		net.AddTable(table)
	}
	return net, nil
}

// CompileJunctionTree compiles the network straight through to a
// junction.JunctionTree, ready for Marginals.
func (bn *BayesianNetwork) CompileJunctionTree() (*junction.JunctionTree, error) {
	net, err := bn.Compile()
	if err != nil {
		return nil, err
	}
	return junction.Compile(net)
}

// Sample is a single ancestral sample drawn from the network's joint
// distribution, one state per variable name.
type Sample map[string]int

// Simulate draws nSamples independent samples from the network's joint
// distribution by ancestral sampling in topological order: each node's
// state is drawn from its CPD conditioned on its already-sampled parents.
func (bn *BayesianNetwork) Simulate(nSamples int, seed int64) ([]Sample, error) {
	if err := bn.CheckModel(); err != nil {
		return nil, err
	}

	order, err := bn.dag.topologicalSort()
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewSource(seed))
	samples := make([]Sample, nSamples)

	for i := 0; i < nSamples; i++ {
		sample := make(Sample, len(order))
		for _, node := range order {
			cpd := bn.CPDs[node]

			evidence := make(map[*variable.Variable]int, len(cpd.Evidence))
			for _, parent := range cpd.Evidence {
				evidence[parent] = sample[parent.Symbol()]
			}

			row := 0
			stride := 1
			for j := len(cpd.Evidence) - 1; j >= 0; j-- {
				e := cpd.Evidence[j]
				row += evidence[e] * stride
				stride *= e.Cardinality()
			}

			sample[node] = sampleCategorical(cpd.Values[row], r)
		}
		samples[i] = sample
	}

	return samples, nil
}

func sampleCategorical(probs []float64, r *rand.Rand) int {
	u := r.Float64()
	cumSum := 0.0
	for i, p := range probs {
		cumSum += p
		if u <= cumSum {
			return i
		}
	}
	return len(probs) - 1
}

// Copy creates a deep copy of the Bayesian Network.
func (bn *BayesianNetwork) Copy() *BayesianNetwork {
	newBN := &BayesianNetwork{
		dag:       bn.dag.copy(),
		CPDs:      make(map[string]*factors.TabularCPD, len(bn.CPDs)),
		variables: make(map[string]*variable.Variable, len(bn.variables)),
	}
	for k, v := range bn.CPDs {
		newBN.CPDs[k] = v.Copy()
	}
	for k, v := range bn.variables {
		newBN.variables[k] = v
	}
	return newBN
}
