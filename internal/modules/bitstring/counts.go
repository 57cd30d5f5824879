package bitstring

import (
	"sort"

	"github.com/aristath/plaquette/internal/domain"
)

// Counts is a measured count distribution keyed by bit-string.
// Bit-strings that were never observed are absent and count as zero.
type Counts map[string]int

// Get returns the count for state, zero if absent.
func (c Counts) Get(state string) int {
	return c[state]
}

// Total returns the number of recorded shots.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Probability returns count(state)/shots.
func (c Counts) Probability(state string, shots int) float64 {
	return float64(c[state]) / float64(shots)
}

// Vector returns count(state)/shots for each state in order.
func (c Counts) Vector(states []string, shots int) []float64 {
	vec := make([]float64, len(states))
	for i, state := range states {
		vec[i] = float64(c[state]) / float64(shots)
	}
	return vec
}

// Distribution converts the counts to a real-valued distribution.
func (c Counts) Distribution() Distribution {
	d := make(Distribution, len(c))
	for k, v := range c {
		d[k] = float64(v)
	}
	return d
}

// Validate checks that every key is a width-bit string, counts are non-negative,
// and the total does not exceed the shot budget.
func (c Counts) Validate(width, shots int) error {
	total := 0
	for _, key := range c.Keys() {
		n := c[key]
		if !IsValid(key, width) {
			return domain.Dataf("count key %q is not a %d-bit string", key, width)
		}
		if n < 0 {
			return domain.Dataf("count for %q is negative (%d)", key, n)
		}
		total += n
	}
	if total > shots {
		return domain.Dataf("counts total %d exceeds shot budget %d", total, shots)
	}
	return nil
}

// Keys returns the observed bit-strings sorted lexically.
func (c Counts) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Distribution is a real-valued count distribution, produced by readout correction.
// Values may be fractional and, for unconstrained estimators, negative.
type Distribution map[string]float64

// Get returns the value for state, zero if absent.
func (d Distribution) Get(state string) float64 {
	return d[state]
}

// Probability returns d[state]/shots.
func (d Distribution) Probability(state string, shots int) float64 {
	return d[state] / float64(shots)
}

// Total returns the summed mass of the distribution.
func (d Distribution) Total() float64 {
	total := 0.0
	for _, v := range d {
		total += v
	}
	return total
}
