// Package inference computes exact marginal distributions for a compiled
// Bayesian network. Engine is the primary path (one junction-tree
// compilation per query, yielding every marginal); VariableElimination is a second, independent
// implementation — naive per-query elimination with no shared
// triangulation — kept as a cross-check oracle for tests rather than for
// its performance.
package inference

import (
	"fmt"

	"github.com/junctiontree/bayesnet/factors"
	"github.com/junctiontree/bayesnet/models"
	"github.com/junctiontree/bayesnet/network"
)

// VariableElimination computes marginals by repeatedly multiplying and
// summing out tables, one variable at a time, with no junction-tree
// structure reused between queries.
type VariableElimination struct {
	Model *models.BayesianNetwork
}

// NewVariableElimination validates model and wraps it for querying.
func NewVariableElimination(model *models.BayesianNetwork) (*VariableElimination, error) {
	if err := model.CheckModel(); err != nil {
		return nil, err
	}
	return &VariableElimination{Model: model}, nil
}

// Query returns the posterior marginal table of the named variable given
// hard evidence, by building the network's full table set, multiplying in
// evidence, and eliminating every other variable via network.Network's
// domain-bisection-free single-variable Marginal.
func (ve *VariableElimination) Query(name string, evidence map[string]int) (*factors.Table, error) {
	v := ve.Model.Variable(name)
	if v == nil {
		return nil, fmt.Errorf("inference: unknown variable %s", name)
	}

	net, err := ve.buildNetwork(evidence)
	if err != nil {
		return nil, err
	}

	return net.Marginal(v)
}

// QueryAll returns the posterior marginal of every variable in the network
// given hard evidence, via network.Network.Marginals (which shares one
// normalization constant across disconnected components, same as the
// junction-tree path).
func (ve *VariableElimination) QueryAll(evidence map[string]int) (map[string]*factors.Table, error) {
	net, err := ve.buildNetwork(evidence)
	if err != nil {
		return nil, err
	}

	marginals, err := net.Marginals()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*factors.Table, len(marginals))
	for _, m := range marginals {
		out[m.Domain[0].Symbol()] = m
	}
	return out, nil
}

func (ve *VariableElimination) buildNetwork(evidence map[string]int) (*network.Network, error) {
	net, err := ve.Model.Compile()
	if err != nil {
		return nil, err
	}

	for name, state := range evidence {
		v := ve.Model.Variable(name)
		if v == nil {
			return nil, fmt.Errorf("inference: unknown evidence variable %s", name)
		}
		table, err := factors.Evidence(v, state)
		if err != nil {
			return nil, fmt.Errorf("inference: evidence for %s: %w", name, err)
		}
		net.AddTable(table)
	}

	return net, nil
}
