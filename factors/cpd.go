package factors

import (
	"fmt"
	"strings"

	"github.com/junctiontree/bayesnet/variable"
)

// TabularCPD is a conditional probability distribution P(Variable | Evidence)
// in tabular form: one row of Variable.Cardinality() probabilities per joint
// assignment of Evidence, in row-major order over Evidence's own
// cardinalities.
type TabularCPD struct {
	Variable *variable.Variable
	Evidence variable.Domain
	// Values holds one row per joint evidence assignment (row-major over
	// Evidence), each row holding Variable.Cardinality() probabilities
	// that sum to 1.
	Values [][]float64
}

// NewTabularCPD validates and builds a TabularCPD. Each row of values must
// sum to 1 within a small tolerance and have exactly v.Cardinality()
// entries; there must be exactly one row per joint assignment of evidence.
func NewTabularCPD(v *variable.Variable, values [][]float64, evidence variable.Domain) (*TabularCPD, error) {
	expectedRows := 1
	for _, e := range evidence {
		expectedRows *= e.Cardinality()
	}

	if len(values) != expectedRows {
		return nil, fmt.Errorf("factors: CPD for %s has %d rows, expected %d", v, len(values), expectedRows)
	}

	for i, row := range values {
		if len(row) != v.Cardinality() {
			return nil, fmt.Errorf("factors: CPD for %s row %d has %d columns, expected %d",
				v, i, len(row), v.Cardinality())
		}
		z := sum(row)
		if z < 0.999 || z > 1.001 {
			return nil, fmt.Errorf("factors: CPD for %s row %d sums to %f, expected 1.0", v, i, z)
		}
	}

	return &TabularCPD{Variable: v, Evidence: evidence.Copy(), Values: values}, nil
}

// ToTable converts the CPD into the joint Table over (Evidence, Variable)
// that the junction-tree compiler consumes: Table(e1,...,ek,v) =
// P(v | e1,...,ek).
func (cpd *TabularCPD) ToTable() (*Table, error) {
	domain, err := variable.NewDomain(append(append(variable.Domain{}, cpd.Evidence...), cpd.Variable)...)
	if err != nil {
		return nil, err
	}

	values := make([]float64, domain.Size())
	varCard := cpd.Variable.Cardinality()
	for row, probs := range cpd.Values {
		for state, p := range probs {
			values[row*varCard+state] = p
		}
	}

	// Each row sums to 1, so the raw values sum to the number of evidence
	// rows rather than to 1. Values are divided by that sum and the sum is
	// kept in Normalization, so Values[i] * Normalization is still the
	// conditional probability P(v | e1,...,ek).
	z := sum(values)
	if z == 0 {
		return nil, fmt.Errorf("factors: %w", ErrDegenerateFactor)
	}
	scaled := make([]float64, len(values))
	for i, val := range values {
		scaled[i] = val / z
	}
	return &Table{Domain: domain, Values: scaled, Normalization: z}, nil
}

// GetValue returns P(Variable=state | evidence), where evidence maps each
// evidence variable to its observed state.
func (cpd *TabularCPD) GetValue(state int, evidence map[*variable.Variable]int) (float64, error) {
	if state < 0 || state >= cpd.Variable.Cardinality() {
		return 0, fmt.Errorf("factors: invalid state %d for %s", state, cpd.Variable)
	}

	row := 0
	stride := 1
	for i := len(cpd.Evidence) - 1; i >= 0; i-- {
		e := cpd.Evidence[i]
		val, ok := evidence[e]
		if !ok {
			return 0, fmt.Errorf("factors: missing evidence value for %s", e)
		}
		row += val * stride
		stride *= e.Cardinality()
	}

	return cpd.Values[row][state], nil
}

// String renders the CPD in "P(V | E1, E2, ...)" form.
func (cpd *TabularCPD) String() string {
	if len(cpd.Evidence) == 0 {
		return fmt.Sprintf("CPD(%s)", cpd.Variable.Symbol())
	}
	names := make([]string, len(cpd.Evidence))
	for i, e := range cpd.Evidence {
		names[i] = e.Symbol()
	}
	return fmt.Sprintf("CPD(%s | %s)", cpd.Variable.Symbol(), strings.Join(names, ", "))
}

// Copy returns a deep copy of the CPD.
func (cpd *TabularCPD) Copy() *TabularCPD {
	valuesCopy := make([][]float64, len(cpd.Values))
	for i, row := range cpd.Values {
		valuesCopy[i] = append([]float64(nil), row...)
	}
	return &TabularCPD{
		Variable: cpd.Variable,
		Evidence: cpd.Evidence.Copy(),
		Values:   valuesCopy,
	}
}
