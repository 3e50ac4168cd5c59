// Command demo walks through compiling the fixture Bayesian networks into
// junction trees and reading off exact marginals.
package main

import (
	"fmt"

	"github.com/junctiontree/bayesnet/examples"
	"github.com/junctiontree/bayesnet/inference"
	"github.com/junctiontree/bayesnet/junction"
	"github.com/junctiontree/bayesnet/network"
)

func main() {
	fmt.Println("=== bayesnet: exact inference by junction tree ===")

	fmt.Println("Example 1: Student network, compiled and queried")
	studentExample()
	fmt.Println()

	fmt.Println("Example 2: Alarm network, simulated and queried")
	alarmExample()
	fmt.Println()

	fmt.Println("Example 3: Pyramid fixture (S1), soft evidence on F")
	pyramidExample()
	fmt.Println()

	fmt.Println("Example 4: Car-start fixture (S2), sequential hard evidence")
	carStartExample()
	fmt.Println()

	fmt.Println("Example 5: Disconnected pair (S3) and triangle+isolate (S4)")
	disconnectedAndTriangleExample()
}

func studentExample() {
	bn, err := examples.GetStudentModel()
	if err != nil {
		fmt.Printf("error creating model: %v\n", err)
		return
	}

	fmt.Printf("nodes: %v\n", bn.Nodes())
	fmt.Printf("edges: %v\n", bn.Edges())

	samples, err := bn.Simulate(5, 42)
	if err != nil {
		fmt.Printf("error simulating: %v\n", err)
		return
	}
	fmt.Printf("simulated %d samples, first: %v\n", len(samples), samples[0])

	engine, err := inference.NewEngine(bn)
	if err != nil {
		fmt.Printf("error building engine: %v\n", err)
		return
	}

	marginals, z, err := engine.Query(map[string]int{"Intelligence": 1})
	if err != nil {
		fmt.Printf("error querying: %v\n", err)
		return
	}

	letter := marginals["Letter"]
	fmt.Printf("P(Letter | Intelligence=high): weak=%.4f strong=%.4f (Z=%.4f)\n",
		letter.Values[0], letter.Values[1], z)
}

func alarmExample() {
	bn, err := examples.GetAlarmModel()
	if err != nil {
		fmt.Printf("error creating model: %v\n", err)
		return
	}

	fmt.Printf("nodes: %v\n", bn.Nodes())

	engine, err := inference.NewEngine(bn)
	if err != nil {
		fmt.Printf("error building engine: %v\n", err)
		return
	}

	marginals, z, err := engine.Query(map[string]int{"JohnCalls": 1, "MaryCalls": 1})
	if err != nil {
		fmt.Printf("error querying: %v\n", err)
		return
	}

	burglary := marginals["Burglary"]
	fmt.Printf("P(Burglary | JohnCalls=yes, MaryCalls=yes): no=%.4f yes=%.4f (Z=%.6f)\n",
		burglary.Values[0], burglary.Values[1], z)
}

func pyramidExample() {
	bn, err := examples.GetPyramidNetwork()
	if err != nil {
		fmt.Printf("error creating model: %v\n", err)
		return
	}

	engine, err := inference.NewEngine(bn)
	if err != nil {
		fmt.Printf("error building engine: %v\n", err)
		return
	}

	marginals, z, err := engine.QuerySoft(map[string][]float64{"F": {100, 15}})
	if err != nil {
		fmt.Printf("error querying: %v\n", err)
		return
	}

	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		m := marginals[name]
		fmt.Printf("P(%s) = %v\n", name, m.Values)
	}
	fmt.Printf("Z (P(evidence)) = %.6f\n", z)
}

func carStartExample() {
	bn, err := examples.GetCarStartNetwork()
	if err != nil {
		fmt.Printf("error creating model: %v\n", err)
		return
	}

	engine, err := inference.NewEngine(bn)
	if err != nil {
		fmt.Printf("error building engine: %v\n", err)
		return
	}

	marginals, _, err := engine.Query(map[string]int{"St": 0})
	if err != nil {
		fmt.Printf("error querying: %v\n", err)
		return
	}
	fmt.Printf("P(Fu | St=no) = %v\n", marginals["Fu"].Values)
	fmt.Printf("P(Sp | St=no) = %v\n", marginals["Sp"].Values)

	marginals, _, err = engine.Query(map[string]int{"St": 0, "Fm": 1})
	if err != nil {
		fmt.Printf("error querying: %v\n", err)
		return
	}
	fmt.Printf("P(Fu | St=no, Fm=half) = %v\n", marginals["Fu"].Values)
	fmt.Printf("P(Sp | St=no, Fm=half) = %v\n", marginals["Sp"].Values)
}

func disconnectedAndTriangleExample() {
	net, _, _ := examples.GetDisconnectedPairNetwork()
	report("disconnected pair", net)

	net2, _, _, _, _ := examples.GetTriangleIsolateNetwork()
	report("triangle+isolate", net2)
}

func report(label string, net *network.Network) {
	jt, err := junction.Compile(net)
	if err != nil {
		fmt.Printf("error compiling %s: %v\n", label, err)
		return
	}
	marginals, err := jt.Marginals()
	if err != nil {
		fmt.Printf("error computing %s marginals: %v\n", label, err)
		return
	}
	fmt.Printf("%s: %d marginals, %d cliques\n", label, len(marginals), len(jt.Cliques))
}
