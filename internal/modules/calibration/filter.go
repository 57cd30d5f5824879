package calibration

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/execution"
)

// FilterMethod selects how a Filter inverts the assignment matrix.
type FilterMethod string

const (
	// FilterLeastSquares finds the non-negative distribution with the raw total
	// whose predicted measurement is closest to the raw counts.
	FilterLeastSquares FilterMethod = "least_squares"
	// FilterPseudoInverse applies the inverse assignment matrix directly.
	FilterPseudoInverse FilterMethod = "pseudo_inverse"
)

const (
	leastSquaresMaxIter = 2000
	leastSquaresTol     = 1e-12
)

// Filter is a fitted readout-correction filter. It is produced once by
// FitFilter and never modified afterwards.
type Filter struct {
	labels  []string
	index   map[string]int
	method  FilterMethod
	assign  *mat.Dense // A[measured][prepared]
	inverse *mat.Dense
	gram    *mat.Dense // AᵀA, least squares only
	step    float64
}

// FitFilter builds a filter from one calibration count distribution per
// prepared basis state, in binary counting order.
func FitFilter(width int, results []bitstring.Counts, shots int, method FilterMethod) (*Filter, error) {
	if method == "" {
		method = FilterLeastSquares
	}
	if method != FilterLeastSquares && method != FilterPseudoInverse {
		return nil, domain.ConfigurationError{Field: "filter_method", Message: fmt.Sprintf("unknown method %q", method)}
	}
	if shots <= 0 {
		return nil, domain.ConfigurationError{Field: "shots", Message: "must be greater than 0"}
	}

	space, err := bitstring.NewSpace(width)
	if err != nil {
		return nil, err
	}
	if err := execution.CheckBatch(space.Size(), results); err != nil {
		return nil, err
	}

	labels := space.States()
	n := len(labels)
	assign := mat.NewDense(n, n, nil)
	for prepared, counts := range results {
		if err := counts.Validate(width, shots); err != nil {
			return nil, fmt.Errorf("calibration run for %s: %w", labels[prepared], err)
		}
		for measured, p := range counts.Vector(labels, shots) {
			assign.Set(measured, prepared, p)
		}
	}

	if cond := mat.Cond(assign, 2); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > MaxConditionNumber {
		return nil, domain.Numericalf("assignment matrix is singular or ill-conditioned (condition number %g)", cond)
	}
	var inv mat.Dense
	if err := inv.Inverse(assign); err != nil {
		return nil, domain.Numericalf("failed to invert assignment matrix: %v", err)
	}

	f := &Filter{
		labels:  labels,
		index:   make(map[string]int, n),
		method:  method,
		assign:  assign,
		inverse: &inv,
	}
	for i, l := range labels {
		f.index[l] = i
	}

	if method == FilterLeastSquares {
		var gram mat.Dense
		gram.Mul(assign.T(), assign)
		f.gram = &gram
		// The squared Frobenius norm bounds the largest eigenvalue of AᵀA.
		frob := mat.Norm(assign, 2)
		f.step = 1 / (frob * frob)
	}

	return f, nil
}

// Labels returns the state order of the filter.
func (f *Filter) Labels() []string {
	return append([]string(nil), f.labels...)
}

// Method returns the inversion method.
func (f *Filter) Method() FilterMethod {
	return f.method
}

// Assignment returns a copy of A[measured][prepared].
func (f *Filter) Assignment() [][]float64 {
	return rowsFromDense(f.assign)
}

// Apply corrects a raw count distribution. The result has the same total as the input.
func (f *Filter) Apply(raw bitstring.Counts) (bitstring.Distribution, error) {
	n := len(f.labels)
	b := mat.NewVecDense(n, nil)
	for _, key := range raw.Keys() {
		i, ok := f.index[key]
		if !ok {
			return nil, domain.Dataf("bit-string %q is not a filter label", key)
		}
		b.SetVec(i, float64(raw[key]))
	}

	x := mat.NewVecDense(n, nil)
	x.MulVec(f.inverse, b)

	if f.method == FilterLeastSquares {
		x = f.leastSquares(b, x)
	}

	out := make(bitstring.Distribution, n)
	for i, label := range f.labels {
		if v := x.AtVec(i); v != 0 {
			out[label] = v
		}
	}
	return out, nil
}

// leastSquares minimises |Ax - b|² over the simplex {x >= 0, Σx = Σb} by
// projected gradient descent, starting from the projected unconstrained solution.
func (f *Filter) leastSquares(b, start *mat.VecDense) *mat.VecDense {
	n := b.Len()
	total := mat.Sum(b)

	var atb mat.VecDense
	atb.MulVec(f.assign.T(), b)

	x := projectSimplex(start.RawVector().Data, total)
	grad := mat.NewVecDense(n, nil)
	next := make([]float64, n)

	for iter := 0; iter < leastSquaresMaxIter; iter++ {
		xv := mat.NewVecDense(n, x)
		grad.MulVec(f.gram, xv)
		grad.SubVec(grad, &atb)

		floats.AddScaledTo(next, x, -f.step, grad.RawVector().Data)
		next = projectSimplex(next, total)

		delta := floats.Distance(next, x, math.Inf(1))
		x, next = next, x
		if delta <= leastSquaresTol*math.Max(total, 1) {
			break
		}
	}

	return mat.NewVecDense(n, x)
}

// projectSimplex returns the Euclidean projection of v onto {x >= 0, Σx = total}.
func projectSimplex(v []float64, total float64) []float64 {
	out := make([]float64, len(v))
	if total <= 0 {
		return out
	}

	u := append([]float64(nil), v...)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))

	cum := 0.0
	theta := 0.0
	for i, ui := range u {
		cum += ui
		t := (cum - total) / float64(i+1)
		if ui-t > 0 {
			theta = t
		}
	}

	for i, vi := range v {
		out[i] = math.Max(vi-theta, 0)
	}
	return out
}
