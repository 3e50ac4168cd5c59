package models

import (
	"testing"

	"github.com/junctiontree/bayesnet/factors"
	"github.com/junctiontree/bayesnet/variable"
)

func TestBayesianNetworkCreation(t *testing.T) {
	edges := [][2]string{
		{"A", "C"},
		{"B", "C"},
	}

	bn, err := NewBayesianNetwork(edges)
	if err != nil {
		t.Errorf("Failed to create network: %v", err)
	}

	if len(bn.Nodes()) != 3 {
		t.Errorf("Expected 3 nodes, got %d", len(bn.Nodes()))
	}
}

func TestBayesianNetworkMoralGraphMarriesSharedParents(t *testing.T) {
	// A and B are both parents of C but unlinked in the DAG; moralizing
	// must add the A-B edge.
	edges := [][2]string{
		{"A", "C"},
		{"B", "C"},
	}

	bn, _ := NewBayesianNetwork(edges)
	moral := bn.MoralGraph()

	if !moral.HasEdge("A", "B") {
		t.Errorf("expected moral graph to marry parents A and B")
	}
	if !moral.HasEdge("A", "C") || !moral.HasEdge("B", "C") {
		t.Errorf("expected moral graph to keep the original DAG edges")
	}
}

func TestBayesianNetworkCPD(t *testing.T) {
	edges := [][2]string{
		{"A", "B"},
	}

	bn, _ := NewBayesianNetwork(edges)

	a := variable.Binary("A")
	cpdA, err := factors.NewTabularCPD(a, [][]float64{{0.6, 0.4}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bn.AddCPD(cpdA); err != nil {
		t.Errorf("Failed to add CPD: %v", err)
	}

	b := variable.Binary("B")
	cpdB, err := factors.NewTabularCPD(b, [][]float64{
		{0.8, 0.2}, // A=0
		{0.3, 0.7}, // A=1
	}, variable.Domain{a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bn.AddCPD(cpdB); err != nil {
		t.Errorf("Failed to add CPD: %v", err)
	}

	if err := bn.CheckModel(); err != nil {
		t.Errorf("Model check failed: %v", err)
	}
}

func TestBayesianNetworkAddCPDRejectsMismatchedEvidence(t *testing.T) {
	edges := [][2]string{{"A", "B"}}
	bn, _ := NewBayesianNetwork(edges)

	b := variable.Binary("B")
	// B's evidence should be {A}, but here it's given none.
	cpdB, err := factors.NewTabularCPD(b, [][]float64{{0.5, 0.5}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bn.AddCPD(cpdB); err == nil {
		t.Fatalf("expected error adding CPD with mismatched evidence")
	}
}

func TestBayesianNetworkSimulation(t *testing.T) {
	edges := [][2]string{
		{"A", "B"},
	}

	bn, _ := NewBayesianNetwork(edges)

	a := variable.Binary("A")
	cpdA, _ := factors.NewTabularCPD(a, [][]float64{{0.5, 0.5}}, nil)
	_ = bn.AddCPD(cpdA)

	b := variable.Binary("B")
	cpdB, _ := factors.NewTabularCPD(b, [][]float64{
		{0.8, 0.2},
		{0.3, 0.7},
	}, variable.Domain{a})
	_ = bn.AddCPD(cpdB)

	samples, err := bn.Simulate(100, 42)
	if err != nil {
		t.Errorf("Simulation failed: %v", err)
	}

	if len(samples) != 100 {
		t.Errorf("Expected 100 samples, got %d", len(samples))
	}

	for i, sample := range samples {
		if _, ok := sample["A"]; !ok {
			t.Errorf("Sample %d missing variable A", i)
		}
		if _, ok := sample["B"]; !ok {
			t.Errorf("Sample %d missing variable B", i)
		}
	}
}

func TestBayesianNetworkCompileAndMarginals(t *testing.T) {
	edges := [][2]string{{"A", "B"}}
	bn, _ := NewBayesianNetwork(edges)

	a := variable.Binary("A")
	cpdA, _ := factors.NewTabularCPD(a, [][]float64{{0.6, 0.4}}, nil)
	_ = bn.AddCPD(cpdA)

	b := variable.Binary("B")
	cpdB, _ := factors.NewTabularCPD(b, [][]float64{
		{0.9, 0.1},
		{0.2, 0.8},
	}, variable.Domain{a})
	_ = bn.AddCPD(cpdB)

	jt, err := bn.CompileJunctionTree()
	if err != nil {
		t.Fatalf("unexpected error compiling: %v", err)
	}

	marginals, err := jt.Marginals()
	if err != nil {
		t.Fatalf("unexpected error computing marginals: %v", err)
	}
	if len(marginals) != 2 {
		t.Fatalf("expected 2 marginals, got %d", len(marginals))
	}
}
