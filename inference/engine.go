package inference

import (
	"fmt"

	"github.com/junctiontree/bayesnet/factors"
	"github.com/junctiontree/bayesnet/junction"
	"github.com/junctiontree/bayesnet/models"
)

// Engine performs exact inference on a Bayesian network through a junction
// tree: NewEngine validates the model, and each Query or QuerySoft call
// compiles a fresh junction tree from the network's tables plus that call's
// evidence and reads every marginal off it. No compiled tree is kept
// between calls.
type Engine struct {
	Model *models.BayesianNetwork
}

// NewEngine validates model and wraps it for querying.
func NewEngine(model *models.BayesianNetwork) (*Engine, error) {
	if err := model.CheckModel(); err != nil {
		return nil, err
	}
	return &Engine{Model: model}, nil
}

// Query computes the posterior marginal of every variable in the network
// given hard evidence (a variable pinned to an observed state), returning
// one Table per variable name plus the shared normalization constant Z —
// the probability of the observed evidence. An empty evidence map returns
// the network's prior marginals with Z = 1.
func (e *Engine) Query(evidence map[string]int) (map[string]*factors.Table, float64, error) {
	net, err := e.Model.Compile()
	if err != nil {
		return nil, 0, err
	}

	for name, state := range evidence {
		v := e.Model.Variable(name)
		if v == nil {
			return nil, 0, fmt.Errorf("inference: unknown evidence variable %s", name)
		}
		table, err := factors.Evidence(v, state)
		if err != nil {
			return nil, 0, fmt.Errorf("inference: evidence for %s: %w", name, err)
		}
		net.AddTable(table)
	}

	jt, err := junction.Compile(net)
	if err != nil {
		return nil, 0, err
	}

	marginals, err := jt.Marginals()
	if err != nil {
		return nil, 0, err
	}

	z := 1.0
	out := make(map[string]*factors.Table, len(marginals))
	for _, m := range marginals {
		if len(m.Domain) != 1 {
			return nil, 0, fmt.Errorf("inference: expected single-variable marginal, got domain of size %d", len(m.Domain))
		}
		out[m.Domain[0].Symbol()] = m
		z = m.Normalization
	}

	return out, z, nil
}

// QuerySoft is like Query but applies soft (likelihood) evidence instead of
// pinning a variable to one observed state: likelihoods gives one
// unnormalized weight per state of the named variable.
func (e *Engine) QuerySoft(softEvidence map[string][]float64) (map[string]*factors.Table, float64, error) {
	net, err := e.Model.Compile()
	if err != nil {
		return nil, 0, err
	}

	for name, likelihoods := range softEvidence {
		v := e.Model.Variable(name)
		if v == nil {
			return nil, 0, fmt.Errorf("inference: unknown evidence variable %s", name)
		}
		table, err := factors.Likelihood(v, likelihoods)
		if err != nil {
			return nil, 0, fmt.Errorf("inference: likelihood for %s: %w", name, err)
		}
		net.AddTable(table)
	}

	jt, err := junction.Compile(net)
	if err != nil {
		return nil, 0, err
	}

	marginals, err := jt.Marginals()
	if err != nil {
		return nil, 0, err
	}

	z := 1.0
	out := make(map[string]*factors.Table, len(marginals))
	for _, m := range marginals {
		out[m.Domain[0].Symbol()] = m
		z = m.Normalization
	}

	return out, z, nil
}
