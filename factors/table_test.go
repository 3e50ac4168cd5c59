package factors

import (
	"errors"
	"math"
	"testing"

	"github.com/junctiontree/bayesnet/variable"
)

func approxEqual(t *testing.T, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("got %v, want %v (tol %v)", got, want, tol)
	}
}

func TestNewNormalizesAndRejectsShapeMismatch(t *testing.T) {
	a := variable.Binary("A")
	domain, _ := variable.NewDomain(a)

	tbl, err := New(domain, []float64{2, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approxEqual(t, tbl.Normalization, 4, 1e-9)
	approxEqual(t, tbl.Values[0], 0.5, 1e-9)
	approxEqual(t, tbl.Values[1], 0.5, 1e-9)

	if _, err := New(domain, []float64{1, 1, 1}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestNewRejectsAllZero(t *testing.T) {
	a := variable.Binary("A")
	domain, _ := variable.NewDomain(a)
	if _, err := New(domain, []float64{0, 0}); !errors.Is(err, ErrDegenerateFactor) {
		t.Fatalf("expected ErrDegenerateFactor, got %v", err)
	}
}

func TestUniformSumsToOne(t *testing.T) {
	a, b := variable.Binary("A"), variable.New("B", 3)
	domain, _ := variable.NewDomain(a, b)
	tbl := Uniform(domain)

	total := sum(tbl.Values)
	approxEqual(t, total, 1, 1e-9)
	for _, v := range tbl.Values {
		approxEqual(t, v, 1.0/6, 1e-9)
	}
}

func TestEvidencePinsObservedState(t *testing.T) {
	a := variable.New("A", 3)
	tbl, err := Evidence(a, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0, 1, 0}
	for i, v := range want {
		approxEqual(t, tbl.Values[i], v, 1e-9)
	}

	if _, err := Evidence(a, 5); err == nil {
		t.Fatalf("expected error for out-of-range state")
	}
}

func TestProductIndependentFactorsMatchesOuterProduct(t *testing.T) {
	a, b := variable.Binary("A"), variable.Binary("B")
	domA, _ := variable.NewDomain(a)
	domB, _ := variable.NewDomain(b)

	factorA, _ := New(domA, []float64{0.25, 0.75})
	factorB, _ := New(domB, []float64{0.4, 0.6})

	product, err := factorA.Product(factorB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[[2]int]float64{
		{0, 0}: 0.25 * 0.4,
		{0, 1}: 0.25 * 0.6,
		{1, 0}: 0.75 * 0.4,
		{1, 1}: 0.75 * 0.6,
	}
	for assign, p := range want {
		got, err := product.At(map[*variable.Variable]int{a: assign[0], b: assign[1]})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		approxEqual(t, got, p, 1e-9)
	}
	approxEqual(t, product.Normalization, 1, 1e-9)
}

func TestProductIsCommutativeUpToDomainOrder(t *testing.T) {
	a, b := variable.Binary("A"), variable.Binary("B")
	domA, _ := variable.NewDomain(a)
	domB, _ := variable.NewDomain(b)

	factorA, _ := New(domA, []float64{0.2, 0.8})
	factorB, _ := New(domB, []float64{0.9, 0.1})

	ab, err := factorA.Product(factorB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, err := factorB.Product(factorA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ab.Equal(ba) {
		t.Fatalf("expected A*B to equal B*A up to domain order")
	}
}

func TestProductDegenerateReturnsError(t *testing.T) {
	a := variable.Binary("A")
	domA, _ := variable.NewDomain(a)

	evidenceZero, _ := New(domA, []float64{1, 0})
	evidenceOne, _ := New(domA, []float64{0, 1})

	if _, err := evidenceZero.Product(evidenceOne); !errors.Is(err, ErrDegenerateFactor) {
		t.Fatalf("expected ErrDegenerateFactor for inconsistent evidence, got %v", err)
	}
}

func TestMarginalizeSumsOutAxis(t *testing.T) {
	a, b := variable.Binary("A"), variable.Binary("B")
	domain, _ := variable.NewDomain(a, b)
	tbl, _ := New(domain, []float64{0.1, 0.2, 0.3, 0.4})

	reduced, err := tbl.Marginalize(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reduced.Domain) != 1 || reduced.Domain[0] != a {
		t.Fatalf("expected domain (a,), got %v", reduced.Domain)
	}
	approxEqual(t, reduced.Values[0], 0.3, 1e-9)
	approxEqual(t, reduced.Values[1], 0.7, 1e-9)
}

func TestMarginalizeLastVariableReturnsEmptyDomainError(t *testing.T) {
	a := variable.Binary("A")
	domain, _ := variable.NewDomain(a)
	tbl, _ := New(domain, []float64{0.3, 0.7})

	if _, err := tbl.Marginalize(a); !errors.Is(err, variable.ErrEmptyDomain) {
		t.Fatalf("expected variable.ErrEmptyDomain, got %v", err)
	}
}

func TestMarginalizeUnknownVariable(t *testing.T) {
	a, b := variable.Binary("A"), variable.Binary("B")
	domain, _ := variable.NewDomain(a)
	tbl, _ := New(domain, []float64{0.3, 0.7})

	if _, err := tbl.Marginalize(b); !errors.Is(err, variable.ErrUnknownVariable) {
		t.Fatalf("expected variable.ErrUnknownVariable, got %v", err)
	}
}

func TestUnnormalizeThenNormalizeRoundTrips(t *testing.T) {
	a := variable.New("A", 3)
	domain, _ := variable.NewDomain(a)
	tbl, _ := New(domain, []float64{1, 2, 3})

	unnorm := tbl.Unnormalize()
	approxEqual(t, unnorm.Normalization, 1, 1e-9)
	approxEqual(t, sum(unnorm.Values), tbl.Normalization, 1e-9)

	renorm, err := unnorm.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !renorm.Equal(tbl) {
		t.Fatalf("expected round trip to recover original table")
	}
}

func TestEqualIsOrderIndependent(t *testing.T) {
	a, b := variable.Binary("A"), variable.Binary("B")
	domAB, _ := variable.NewDomain(a, b)
	domBA, _ := variable.NewDomain(b, a)

	tblAB, _ := New(domAB, []float64{0.1, 0.2, 0.3, 0.4})
	tblBA, _ := New(domBA, []float64{0.1, 0.3, 0.2, 0.4})

	if !tblAB.Equal(tblBA) {
		t.Fatalf("expected tables with reordered domains to compare equal")
	}
}
