package junction

import (
	"errors"
	"fmt"

	"github.com/junctiontree/bayesnet/factors"
	"github.com/junctiontree/bayesnet/network"
	"github.com/junctiontree/bayesnet/variable"
)

// Clique is a node of the junction tree: a maximal set of variables
// produced by eliminating one simplicial (or fill-in-completed) node of
// the domain graph, together with the network tables absorbed at that
// elimination step.
type Clique struct {
	Variables map[*variable.Variable]bool
	// Order lists the same variables as Variables in a deterministic
	// order (the domain graph's own node order at the time the clique
	// was built), so callers that must pick a canonical order — Marginals
	// picking each variable's one home clique, in particular — don't
	// depend on Go's randomized map iteration.
	Order  []*variable.Variable
	Tables []*factors.Table

	// ParentSeparator is the separator connecting this clique to its
	// parent (the clique eliminated later, closer to the tree's root).
	// nil if this clique is itself a root.
	ParentSeparator *Separator

	// ChildSeparators are the separators connecting this clique to its
	// children (cliques eliminated earlier, closer to the leaves).
	ChildSeparators []*Separator

	index int
}

func newClique(family map[*node]bool, graphOrder []*node) *Clique {
	variables := make(map[*variable.Variable]bool, len(family))
	order := make([]*variable.Variable, 0, len(family))
	for _, n := range graphOrder {
		if family[n] {
			variables[n.variable] = true
			order = append(order, n.variable)
		}
	}
	return &Clique{Variables: variables, Order: order}
}

func (c *Clique) contains(v *variable.Variable) bool { return c.Variables[v] }

// Separator is the edge of a junction tree: the shared variables between a
// clique and its parent, carrying the collect ("upbound") and distribute
// ("downbound") messages between them.
type Separator struct {
	Variables map[*variable.Variable]bool

	// ParentClique is the clique above the separator (closer to the
	// tree's root).
	ParentClique *Clique
	// ChildClique is the clique below the separator (the one that
	// produced it during elimination).
	ChildClique *Clique

	Upbound   *factors.Table
	Downbound *factors.Table

	index int
}

// JunctionTree is a compiled Bayesian network: a tree of Cliques linked by
// Separators, ready for the collect/distribute message-passing schedule
// that Fill runs and Marginals reads results from.
type JunctionTree struct {
	Cliques    []*Clique
	Separators []*Separator

	// subgraphRoots holds one representative variable per connected
	// component of the original network: either an isolated variable, or
	// the last variable eliminated in a component with no outgoing
	// separator. Marginals uses it to combine each component's
	// normalization into one shared constant across every output table,
	// without double-counting components that share no variables.
	subgraphRoots []*variable.Variable
}

// Compile triangulates net's domain graph by simplicial elimination (with
// minimum-fill-in tie-breaking when no simplicial node remains) and builds
// the resulting junction tree. It runs Fill before returning, so the
// result is immediately ready for Marginals.
func Compile(net *network.Network) (*JunctionTree, error) {
	if len(net.Tables) == 0 {
		return nil, fmt.Errorf("junction: %w", ErrEmptyNetwork)
	}

	graph := newDomainGraph(net)
	originalSize := graph.size()

	jt := &JunctionTree{}
	nodesRemoved := 0
	used := make(map[*factors.Table]bool)

	takeTables := func(vars []*variable.Variable) []*factors.Table {
		candidates := net.TablesWith(vars...)
		var out []*factors.Table
		for _, t := range candidates {
			if !used[t] {
				used[t] = true
				out = append(out, t)
			}
		}
		return out
	}

	for isolated := graph.isolatedNode(); isolated != nil; isolated = graph.isolatedNode() {
		clique := newClique(map[*node]bool{isolated: true}, graph.order)
		clique.index = -1
		clique.Tables = takeTables([]*variable.Variable{isolated.variable})
		jt.Cliques = append(jt.Cliques, clique)
		jt.subgraphRoots = append(jt.subgraphRoots, isolated.variable)
		graph.removeNode(isolated)
	}

	for graph.size() > 0 {
		simplicial := graph.simplicialNode()
		if simplicial == nil {
			simplicial = graph.minimalFillInNode()
			simplicial.makeSimplicial()
		}

		family := simplicial.family()
		clique := newClique(family, graph.order)
		jt.Cliques = append(jt.Cliques, clique)

		var eliminatedVars []*variable.Variable

		if len(family) < graph.size() {
			toRemove := make(map[*node]bool)
			toKeep := make(map[*node]bool)
			for n := range family {
				if isSubset(n.family(), family) {
					toRemove[n] = true
					nodesRemoved++
				} else {
					toKeep[n] = true
				}
			}
			for n := range toRemove {
				graph.removeNode(n)
				eliminatedVars = append(eliminatedVars, n.variable)
			}

			if len(toKeep) > 0 {
				separator := &Separator{Variables: make(map[*variable.Variable]bool, len(toKeep))}
				for n := range toKeep {
					separator.Variables[n.variable] = true
				}
				separator.index = nodesRemoved
				separator.ChildClique = clique
				clique.ParentSeparator = separator
				jt.Separators = append(jt.Separators, separator)
			} else {
				jt.subgraphRoots = append(jt.subgraphRoots, anyVariable(family))
			}
			clique.index = nodesRemoved
		} else {
			for n := range family {
				eliminatedVars = append(eliminatedVars, n.variable)
				graph.removeNode(n)
			}
			clique.index = originalSize
			jt.subgraphRoots = append(jt.subgraphRoots, anyVariable(family))
		}

		clique.Tables = takeTables(eliminatedVars)
	}

	if err := jt.linkSeparators(); err != nil {
		return nil, err
	}

	if err := jt.Fill(); err != nil {
		return nil, err
	}
	return jt, nil
}

// linkSeparators assigns each separator its parent clique — the lowest-
// index clique above it whose variable set satisfies the running
// intersection property. A separator left unmatched means triangulation
// produced a tree that doesn't actually satisfy running intersection, which
// should never happen for a correctly triangulated graph; ErrCompilationFailure
// surfaces that invariant violation instead of silently returning an
// incomplete tree.
func (jt *JunctionTree) linkSeparators() error {
	for _, separator := range jt.Separators {
		linked := false
		for _, clique := range jt.Cliques {
			if clique.index > separator.index && isSubsetVars(separator.Variables, clique.Variables) {
				separator.ParentClique = clique
				clique.ChildSeparators = append(clique.ChildSeparators, separator)
				linked = true
				break
			}
		}
		if !linked {
			return fmt.Errorf("junction: %w", ErrCompilationFailure)
		}
	}
	return nil
}

func isSubset(small, big map[*node]bool) bool {
	for n := range small {
		if !big[n] {
			return false
		}
	}
	return true
}

func isSubsetVars(small, big map[*variable.Variable]bool) bool {
	for v := range small {
		if !big[v] {
			return false
		}
	}
	return true
}

func anyVariable(family map[*node]bool) *variable.Variable {
	for n := range family {
		return n.variable
	}
	return nil
}

// product multiplies a nonempty list of tables together.
func product(tables []*factors.Table) (*factors.Table, error) {
	result := tables[0]
	for _, t := range tables[1:] {
		var err error
		result, err = result.Product(t)
		if err != nil {
			return nil, degenerateAsInconsistentEvidence(err)
		}
	}
	return result, nil
}

// marginalizeDown sums every variable of t's domain out except those kept.
func marginalizeDown(t *factors.Table, keep map[*variable.Variable]bool) (*factors.Table, error) {
	for _, v := range append(variable.Domain{}, t.Domain...) {
		if keep[v] {
			continue
		}
		reduced, err := t.Marginalize(v)
		if err != nil {
			return nil, degenerateAsInconsistentEvidence(err)
		}
		t = reduced
	}
	return t, nil
}

// degenerateAsInconsistentEvidence translates factors.ErrDegenerateFactor,
// raised when a product or marginalization collapses to all zeros, into this
// package's own ErrInconsistentEvidence: during message passing a zeroed-out
// table means the evidence supplied to the network admits no consistent
// joint assignment, which is a junction-tree-level condition distinct from
// an ordinary shape mismatch.
func degenerateAsInconsistentEvidence(err error) error {
	if errors.Is(err, factors.ErrDegenerateFactor) {
		return ErrInconsistentEvidence
	}
	return err
}

// Fill runs the two-pass message-passing schedule: collect propagates
// product-then-marginalize messages from the leaves up to the roots, and
// distribute propagates them back down. After Fill, every separator's
// Upbound and Downbound are populated and Marginals can read off exact
// per-variable marginals in one pass per variable. Fill returns
// ErrInconsistentEvidence if a message, or the product at a root clique,
// sums to zero.
func (jt *JunctionTree) Fill() error {
	if err := jt.collect(); err != nil {
		return err
	}
	return jt.distribute()
}

func (jt *JunctionTree) collect() error {
	for _, clique := range jt.Cliques {
		if clique.ParentSeparator == nil {
			continue
		}

		tables := append([]*factors.Table(nil), clique.Tables...)
		for _, sep := range clique.ChildSeparators {
			tables = append(tables, sep.Upbound)
		}
		if len(tables) == 0 {
			continue
		}

		merged, err := product(tables)
		if err != nil {
			return err
		}
		reduced, err := marginalizeDown(merged, clique.ParentSeparator.Variables)
		if err != nil {
			return err
		}
		clique.ParentSeparator.Upbound = reduced
	}
	return nil
}

func (jt *JunctionTree) distribute() error {
	for i := len(jt.Cliques) - 1; i >= 0; i-- {
		clique := jt.Cliques[i]

		base := append([]*factors.Table(nil), clique.Tables...)
		if clique.ParentSeparator != nil && clique.ParentSeparator.Downbound != nil {
			base = append(base, clique.ParentSeparator.Downbound)
		}

		// A root clique sends no message, so its tables and incoming collect
		// messages are multiplied once here to catch all-zero evidence there.
		if clique.ParentSeparator == nil {
			all := append([]*factors.Table(nil), base...)
			for _, sep := range clique.ChildSeparators {
				all = append(all, sep.Upbound)
			}
			if len(all) > 0 {
				if _, err := product(all); err != nil {
					return err
				}
			}
		}

		for _, separator := range clique.ChildSeparators {
			tables := append([]*factors.Table(nil), base...)
			for _, other := range clique.ChildSeparators {
				if other != separator {
					tables = append(tables, other.Upbound)
				}
			}
			if len(tables) == 0 {
				continue
			}

			merged, err := product(tables)
			if err != nil {
				return err
			}
			reduced, err := marginalizeDown(merged, separator.Variables)
			if err != nil {
				return err
			}
			separator.Downbound = reduced
		}
	}
	return nil
}

// Marginals returns the exact marginal probability table of every variable
// in the compiled network, each carrying the same shared Normalization: the
// product of every connected component's total probability mass, so that
// P(evidence) can be read off any one of them even when the network
// contains independent subgraphs (see subgraphRoots).
func (jt *JunctionTree) Marginals() ([]*factors.Table, error) {
	var marginals []*factors.Table
	seen := make(map[*variable.Variable]bool)

	for _, clique := range jt.Cliques {
		for _, v := range clique.Order {
			if seen[v] {
				continue
			}
			seen[v] = true

			tables := append([]*factors.Table(nil), clique.Tables...)
			if clique.ParentSeparator != nil && clique.ParentSeparator.Downbound != nil {
				tables = append(tables, clique.ParentSeparator.Downbound)
			}
			for _, sep := range clique.ChildSeparators {
				tables = append(tables, sep.Upbound)
			}
			if len(tables) == 0 {
				continue
			}

			merged, err := product(tables)
			if err != nil {
				return nil, err
			}
			reduced, err := marginalizeDown(merged, map[*variable.Variable]bool{v: true})
			if err != nil {
				return nil, err
			}
			marginals = append(marginals, reduced)
		}
	}

	isRoot := make(map[*variable.Variable]bool, len(jt.subgraphRoots))
	for _, v := range jt.subgraphRoots {
		isRoot[v] = true
	}

	z := 1.0
	for _, m := range marginals {
		if len(m.Domain) > 0 && isRoot[m.Domain[0]] {
			z *= m.Normalization
		}
	}
	// Re-stamp every marginal with the shared Z via a fresh Table rather
	// than mutating m.Normalization in place: these tables may alias the
	// network's own tables (e.g. an isolated variable with only one table
	// in its clique), and Marginals must not corrupt the network it was
	// compiled from.
	stamped := make([]*factors.Table, len(marginals))
	for i, m := range marginals {
		stamped[i] = &factors.Table{Domain: m.Domain, Values: m.Values, Normalization: z}
	}

	return stamped, nil
}
