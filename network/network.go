package network

import (
	"errors"
	"fmt"

	"github.com/junctiontree/bayesnet/factors"
	"github.com/junctiontree/bayesnet/variable"
)

// Network is a Bayesian network represented the way this module actually
// operates on one: a collection of probability tables. Variables and edges
// are never stored explicitly — two variables are connected exactly when
// some table's domain contains both of them.
type Network struct {
	Tables []*factors.Table

	// mass accumulates the scalar contribution of variables that were
	// marginalized while they were the sole remaining variable of their
	// table (see Marginalize): fully eliminating an isolated variable
	// removes its table from the network entirely, but the probability
	// mass it carried (its Table.Normalization) must still be folded into
	// whatever final normalization the caller reports.
	mass float64
}

// New builds an empty network.
func New() *Network {
	return &Network{mass: 1}
}

// AddTable adds t to the network.
func (n *Network) AddTable(t *factors.Table) {
	n.Tables = append(n.Tables, t)
}

// Domain returns the union of every table's domain: the full set of
// variables in the network's graph.
func (n *Network) Domain() variable.Domain {
	var out variable.Domain
	for _, t := range n.Tables {
		if out == nil {
			out = t.Domain.Copy()
			continue
		}
		out = out.Product(t.Domain)
	}
	return out
}

// TablesWith returns the tables whose domain contains any of vars, each
// listed at most once, in the order first encountered.
func (n *Network) TablesWith(vars ...*variable.Variable) []*factors.Table {
	seen := make(map[*factors.Table]bool)
	var out []*factors.Table
	for _, v := range vars {
		for _, t := range n.Tables {
			if seen[t] || !t.Domain.Contains(v) {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Copy returns a network sharing the same Table pointers (tables are
// treated as immutable) but with an independent Tables slice, so the copy
// can be mutated by AddTable/Marginalize without affecting the original.
func (n *Network) Copy() *Network {
	return &Network{
		Tables: append([]*factors.Table(nil), n.Tables...),
		mass:   n.mass,
	}
}

// Marginalize returns a new network with v summed out: the tables
// containing v are multiplied together and v is summed out of the
// product, replacing those tables with the (possibly smaller) result. If v
// is the only variable of that product — the case of a fully isolated
// variable being eliminated — there is no smaller table to replace them
// with; instead the product's total probability mass is folded into the
// network's running normalization and no replacement table is added.
func (n *Network) Marginalize(v *variable.Variable) (*Network, error) {
	relevant := n.TablesWith(v)
	if len(relevant) == 0 {
		return nil, fmt.Errorf("network: cannot marginalize %s: %w", v, ErrNotInGraph)
	}

	product := relevant[0]
	for _, t := range relevant[1:] {
		var err error
		product, err = product.Product(t)
		if err != nil {
			return nil, err
		}
	}

	out := n.Copy()
	out.Tables = withoutTables(out.Tables, relevant)

	reduced, err := product.Marginalize(v)
	if errors.Is(err, variable.ErrEmptyDomain) {
		out.mass *= product.Normalization
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	out.Tables = append(out.Tables, reduced)
	return out, nil
}

func withoutTables(tables, remove []*factors.Table) []*factors.Table {
	drop := make(map[*factors.Table]bool, len(remove))
	for _, t := range remove {
		drop[t] = true
	}
	out := make([]*factors.Table, 0, len(tables))
	for _, t := range tables {
		if !drop[t] {
			out = append(out, t)
		}
	}
	return out
}

// Marginal computes the marginal probability table of v, by marginalizing
// every other variable of the network's domain out and multiplying
// whatever tables remain.
func (n *Network) Marginal(v *variable.Variable) (*factors.Table, error) {
	current := n
	for _, other := range n.Domain() {
		if other == v {
			continue
		}
		reduced, err := current.Marginalize(other)
		if err != nil {
			return nil, err
		}
		current = reduced
	}

	if len(current.Tables) == 0 {
		return nil, fmt.Errorf("network: %w", ErrNotInGraph)
	}

	result := current.Tables[0]
	for _, t := range current.Tables[1:] {
		var err error
		result, err = result.Product(t)
		if err != nil {
			return nil, err
		}
	}

	return &factors.Table{
		Domain:        result.Domain,
		Values:        result.Values,
		Normalization: result.Normalization * current.mass,
	}, nil
}

// Marginals computes the marginal probability table of every variable in
// the network's domain. It is faster than calling Marginal for each
// variable individually: it recursively splits the domain in half,
// marginalizing away one half to get a smaller network to recurse on for
// the other half, so shared elimination work is not repeated per variable.
func (n *Network) Marginals() ([]*factors.Table, error) {
	domain := n.Domain()
	if len(domain) == 0 {
		return nil, fmt.Errorf("network: %w", ErrNoTables)
	}

	if len(domain) == 1 {
		m, err := n.Marginal(domain[0])
		if err != nil {
			return nil, err
		}
		return []*factors.Table{m}, nil
	}

	mid := len(domain) / 2
	halves := [2]variable.Domain{domain[mid:], domain[:mid]}

	var results []*factors.Table
	for _, toEliminate := range halves {
		sub := n
		for _, v := range toEliminate {
			reduced, err := sub.Marginalize(v)
			if err != nil {
				return nil, err
			}
			sub = reduced
		}
		subResults, err := sub.Marginals()
		if err != nil {
			return nil, err
		}
		results = append(results, subResults...)
	}
	return results, nil
}

// String renders every table in the network, mirroring the teacher's plain
// dump-everything String methods.
func (n *Network) String() string {
	out := ""
	for _, t := range n.Tables {
		out += t.String()
	}
	return out
}
