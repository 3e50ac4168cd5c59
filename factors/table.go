package factors

import (
	"fmt"
	"math"
	"strings"

	"github.com/junctiontree/bayesnet/variable"
)

// equalityTolerance is the absolute tolerance used by Equal to compare
// normalizations and values, per the specification's §4.2 equality
// contract.
const equalityTolerance = 1e-5

// Table is a dense probability tensor over a Domain together with a
// normalization scalar. The invariant maintained by every constructor and
// every operation in this package is:
//
//	trueFactor[i] = Values[i] * Normalization
//
// Values are laid out row-major over Domain: the last axis (Domain[len-1])
// varies fastest. By convention Values sums to 1 ("normalized form"); the
// Unnormalize/Normalize pair lets callers move the scale in and out of
// Values explicitly without ever losing the true factor.
type Table struct {
	Domain        variable.Domain
	Values        []float64
	Normalization float64
}

// New builds a Table over domain from values, normalizing it: the raw sum z
// of values is divided out of Values and folded into Normalization. If
// values sums to zero the table cannot be normalized and New returns
// ErrDegenerateFactor.
func New(domain variable.Domain, values []float64) (*Table, error) {
	if len(values) != domain.Size() {
		return nil, fmt.Errorf("factors: %w (got %d, want %d for domain %v)",
			ErrShapeMismatch, len(values), domain.Size(), domain)
	}

	t := &Table{
		Domain:        domain,
		Values:        append([]float64(nil), values...),
		Normalization: 1,
	}
	if err := t.renormalize(); err != nil {
		return nil, err
	}
	return t, nil
}

// Uniform builds a normalized Table over domain with every assignment
// equally likely.
func Uniform(domain variable.Domain) *Table {
	values := make([]float64, domain.Size())
	for i := range values {
		values[i] = 1
	}
	t, _ := New(domain, values) // sum == size >= 1, never degenerate
	return t
}

// Evidence builds a single-variable 0/1 Table asserting that v was observed
// in state observedState.
func Evidence(v *variable.Variable, observedState int) (*Table, error) {
	values := make([]float64, v.Cardinality())
	if observedState < 0 || observedState >= v.Cardinality() {
		return nil, fmt.Errorf("factors: observed state %d out of range for %s (cardinality %d)",
			observedState, v, v.Cardinality())
	}
	values[observedState] = 1

	domain, err := variable.NewDomain(v)
	if err != nil {
		return nil, err
	}
	return New(domain, values)
}

// Likelihood builds a single-variable Table from a vector of non-negative
// likelihoods, one per state of v. Unlike Evidence, the vector need not be
// 0/1; this covers soft/virtual evidence (e.g. an unreliable sensor
// reading).
func Likelihood(v *variable.Variable, likelihoods []float64) (*Table, error) {
	if len(likelihoods) != v.Cardinality() {
		return nil, fmt.Errorf("factors: %w (got %d likelihoods, want %d)",
			ErrShapeMismatch, len(likelihoods), v.Cardinality())
	}
	domain, err := variable.NewDomain(v)
	if err != nil {
		return nil, err
	}
	return New(domain, likelihoods)
}

// renormalize divides the current sum of Values out of Values and folds it
// into Normalization, restoring the sum-to-one invariant. It mutates the
// receiver and is only ever called from a constructor or from an operation
// building a brand-new Table, never on a Table already handed to a caller.
func (t *Table) renormalize() error {
	z := sum(t.Values)
	if z == 0 {
		return fmt.Errorf("factors: %w", ErrDegenerateFactor)
	}
	for i := range t.Values {
		t.Values[i] /= z
	}
	t.Normalization *= z
	return nil
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// Normalize returns a new Table with the same trueFactor as t but with
// Values rescaled to sum to 1 and the removed scale folded into
// Normalization. Tables produced by New, Product, or Marginalize already
// satisfy this, so Normalize is a no-op on them; it matters after
// Unnormalize.
func (t *Table) Normalize() (*Table, error) {
	out := &Table{
		Domain:        t.Domain,
		Values:        append([]float64(nil), t.Values...),
		Normalization: t.Normalization,
	}
	z := sum(out.Values)
	if z == 0 {
		return nil, fmt.Errorf("factors: %w", ErrDegenerateFactor)
	}
	for i := range out.Values {
		out.Values[i] /= z
	}
	out.Normalization *= z
	return out, nil
}

// Unnormalize returns a new Table holding the true, unnormalized factor
// directly in Values (Values[i] = t.Values[i] * t.Normalization) with
// Normalization reset to 1. The trueFactor is unchanged; only how it is
// split between Values and Normalization changes.
func (t *Table) Unnormalize() *Table {
	out := &Table{
		Domain:        t.Domain,
		Values:        append([]float64(nil), t.Values...),
		Normalization: 1,
	}
	for i := range out.Values {
		out.Values[i] *= t.Normalization
	}
	return out
}

// Product computes C = A ⊗ B: the domain of C is the union of A's and B's
// domains (A's domain first, per Domain.Product), and every entry is the
// elementwise product of the two factors aligned through their index maps.
// The result is renormalized, with the removed scale folded into
// C.Normalization alongside A's and B's. Returns ErrDegenerateFactor if the
// unnormalized product sums to zero (inconsistent evidence).
func (a *Table) Product(b *Table) (*Table, error) {
	domain := a.Domain.Product(b.Domain)
	mapA := variable.Map(a.Domain, domain)
	mapB := variable.Map(b.Domain, domain)

	values := make([]float64, domain.Size())
	for i := range values {
		values[i] = a.Values[mapA[i]] * b.Values[mapB[i]]
	}

	z := sum(values)
	if z == 0 {
		return nil, fmt.Errorf("factors: %w", ErrDegenerateFactor)
	}
	for i := range values {
		values[i] /= z
	}

	return &Table{
		Domain:        domain,
		Values:        values,
		Normalization: a.Normalization * b.Normalization * z,
	}, nil
}

// Marginalize sums v out of the table, returning a new Table over
// Domain - v. Normalization is carried over unchanged: because Values
// already sums to 1 over the full domain, summing out one axis of an
// already-normalized table leaves a tensor that still sums to 1 over its
// smaller domain, so no rescaling is needed here (see Product for where
// rescaling happens). Returns variable.ErrUnknownVariable if v is not in
// the table's domain, variable.ErrEmptyDomain if v is the table's only
// variable, and ErrDegenerateFactor if the marginalized values happen to
// sum to zero (only reachable on a table previously put in unnormalized
// form via Unnormalize).
func (t *Table) Marginalize(v *variable.Variable) (*Table, error) {
	axis := t.Domain.IndexOf(v)
	if axis < 0 {
		return nil, fmt.Errorf("factors: cannot marginalize %s: %w", v, variable.ErrUnknownVariable)
	}

	newDomain, err := t.Domain.Minus(v)
	if err != nil {
		return nil, err
	}

	values := make([]float64, newDomain.Size())
	reduceMap := variable.Map(newDomain, t.Domain)
	for i, dst := range reduceMap {
		values[dst] += t.Values[i]
	}

	if sum(values) == 0 {
		return nil, fmt.Errorf("factors: %w", ErrDegenerateFactor)
	}

	return &Table{
		Domain:        newDomain,
		Values:        values,
		Normalization: t.Normalization,
	}, nil
}

// At returns the probability value (in normalized Values, not the true
// factor) for a full assignment of the table's domain, given as a map from
// variable to state.
func (t *Table) At(assignment map[*variable.Variable]int) (float64, error) {
	idx := 0
	stride := 1
	for i := len(t.Domain) - 1; i >= 0; i-- {
		v := t.Domain[i]
		state, ok := assignment[v]
		if !ok {
			return 0, fmt.Errorf("factors: missing assignment for variable %s", v)
		}
		if state < 0 || state >= v.Cardinality() {
			return 0, fmt.Errorf("factors: state %d out of range for %s", state, v)
		}
		idx += state * stride
		stride *= v.Cardinality()
	}
	return t.Values[idx], nil
}

// Equal reports whether t and other represent the same table: their
// domains are equal as sets, their normalizations agree within 1e-5, and
// their values agree within 1e-5 once other's domain order is aligned to
// t's via an index map.
func (t *Table) Equal(other *Table) bool {
	if !t.Domain.Equal(other.Domain) {
		return false
	}
	if math.Abs(t.Normalization-other.Normalization) > equalityTolerance {
		return false
	}

	aligned := variable.Map(t.Domain, other.Domain)
	for i, src := range aligned {
		if math.Abs(t.Values[src]-other.Values[i]) > equalityTolerance {
			return false
		}
	}
	return true
}

// String renders the table as a simple assignment -> probability listing,
// mirroring the teacher's plain Factor(...) dump.
func (t *Table) String() string {
	var sb strings.Builder
	names := make([]string, len(t.Domain))
	for i, v := range t.Domain {
		names[i] = v.Symbol()
	}
	fmt.Fprintf(&sb, "Table(%s)\n", strings.Join(names, ", "))

	cardinalities := t.Domain.Cardinalities()
	assignment := make([]int, len(t.Domain))
	for i, val := range t.Values {
		rem := i
		for axis := len(cardinalities) - 1; axis >= 0; axis-- {
			assignment[axis] = rem % cardinalities[axis]
			rem /= cardinalities[axis]
		}
		fmt.Fprintf(&sb, "  ")
		for axis, v := range t.Domain {
			fmt.Fprintf(&sb, "%s=%d ", v.Symbol(), assignment[axis])
		}
		fmt.Fprintf(&sb, "-> %.6f\n", val)
	}
	return sb.String()
}
