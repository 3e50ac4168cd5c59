package network

import (
	"math"
	"testing"

	"github.com/junctiontree/bayesnet/factors"
	"github.com/junctiontree/bayesnet/variable"
)

func approxEqual(t *testing.T, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("got %v, want %v (tol %v)", got, want, tol)
	}
}

// chainNetwork builds Rain -> GrassWet, a simple two-variable chain:
// P(Rain) and P(GrassWet | Rain).
func chainNetwork(t *testing.T) (*Network, *variable.Variable, *variable.Variable) {
	t.Helper()
	rain := variable.Binary("Rain")
	grassWet := variable.Binary("GrassWet")

	domRain, _ := variable.NewDomain(rain)
	rainTable, err := factors.New(domRain, []float64{0.8, 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	domJoint, _ := variable.NewDomain(rain, grassWet)
	grassTable, err := factors.New(domJoint, []float64{
		0.9, 0.1, // Rain=0: GrassWet=0,1
		0.2, 0.8, // Rain=1: GrassWet=0,1
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n := New()
	n.AddTable(rainTable)
	n.AddTable(grassTable)
	return n, rain, grassWet
}

func TestMarginalOfRootVariable(t *testing.T) {
	n, rain, _ := chainNetwork(t)
	m, err := n.Marginal(rain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approxEqual(t, m.Values[0], 0.8, 1e-9)
	approxEqual(t, m.Values[1], 0.2, 1e-9)
}

func TestMarginalOfChildVariable(t *testing.T) {
	n, _, grassWet := chainNetwork(t)
	m, err := n.Marginal(grassWet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// P(GrassWet=1) = 0.8*0.1 + 0.2*0.8 = 0.08+0.16 = 0.24
	approxEqual(t, m.Values[1], 0.24, 1e-9)
}

func TestMarginalsMatchesIndividualMarginal(t *testing.T) {
	n, rain, grassWet := chainNetwork(t)
	all, err := n.Marginals()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 marginals, got %d", len(all))
	}

	rainMarginal, _ := n.Marginal(rain)
	grassMarginal, _ := n.Marginal(grassWet)

	var foundRain, foundGrass bool
	for _, m := range all {
		if m.Domain.Contains(rain) {
			foundRain = true
			if !m.Equal(rainMarginal) {
				t.Fatalf("marginals()'s Rain table disagreed with Marginal(Rain)")
			}
		}
		if m.Domain.Contains(grassWet) {
			foundGrass = true
			if !m.Equal(grassMarginal) {
				t.Fatalf("marginals()'s GrassWet table disagreed with Marginal(GrassWet)")
			}
		}
	}
	if !foundRain || !foundGrass {
		t.Fatalf("expected both Rain and GrassWet marginals present")
	}
}

func TestMarginalizeIsolatedVariableFoldsMassInsteadOfEmptyDomain(t *testing.T) {
	a := variable.Binary("A")
	b := variable.Binary("B")

	domA, _ := variable.NewDomain(a)
	domB, _ := variable.NewDomain(b)
	tableA, _ := factors.New(domA, []float64{0.3, 0.7})
	tableB, _ := factors.New(domB, []float64{0.4, 0.6})

	n := New()
	n.AddTable(tableA)
	n.AddTable(tableB)

	reduced, err := n.Marginalize(b)
	if err != nil {
		t.Fatalf("unexpected error marginalizing isolated variable: %v", err)
	}
	if len(reduced.Tables) != 1 {
		t.Fatalf("expected B's table to be dropped entirely, got %d tables", len(reduced.Tables))
	}
	approxEqual(t, reduced.mass, 1.0, 1e-9)

	marginalA, err := reduced.Marginal(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approxEqual(t, marginalA.Values[0], 0.3, 1e-9)
}

func TestDisconnectedNetworkMarginalsAreIndependent(t *testing.T) {
	a := variable.Binary("A")
	b := variable.Binary("B")
	domA, _ := variable.NewDomain(a)
	domB, _ := variable.NewDomain(b)
	tableA, _ := factors.New(domA, []float64{0.1, 0.9})
	tableB, _ := factors.New(domB, []float64{0.6, 0.4})

	n := New()
	n.AddTable(tableA)
	n.AddTable(tableB)

	all, err := n.Marginals()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 marginals, got %d", len(all))
	}
	for _, m := range all {
		if m.Domain.Contains(a) {
			approxEqual(t, m.Values[1], 0.9, 1e-9)
		}
		if m.Domain.Contains(b) {
			approxEqual(t, m.Values[0], 0.6, 1e-9)
		}
	}
}
