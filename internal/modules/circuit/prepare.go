package circuit

import "github.com/aristath/plaquette/internal/domain"

// Preparation builds the basis-state preparation program for state, followed by
// a measurement of every qubit. The rightmost character of state is qubit 0.
func Preparation(state string) (Circuit, error) {
	n := len(state)
	if n == 0 {
		return Circuit{}, domain.Dataf("empty preparation state")
	}

	c := New(n)
	for q := 0; q < n; q++ {
		switch state[n-1-q] {
		case '1':
			c.Append("x", []int{q})
		case '0':
		default:
			return Circuit{}, domain.Dataf("invalid preparation state %q", state)
		}
	}
	c.MeasureAll()
	return c, nil
}
