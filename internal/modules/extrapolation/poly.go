// Package extrapolation estimates the zero-noise limit of an expectation value
// measured at several noise scale factors.
package extrapolation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/plaquette/internal/domain"
)

// DefaultOrder is the polynomial order of the reference configuration.
const DefaultOrder = 2

// Result is a zero-noise estimate.
type Result struct {
	Value float64 `json:"value"`
	// StdErr is nil when the fit is exact (as many points as parameters).
	StdErr *float64 `json:"std_err,omitempty"`
	// Coefficients in increasing degree; Coefficients[0] == Value.
	Coefficients []float64 `json:"coefficients"`
}

// Extrapolator fits values measured at scales and evaluates the fit at zero.
type Extrapolator interface {
	Extrapolate(scales, values []float64) (Result, error)
}

// Poly is a polynomial Extrapolator.
type Poly struct {
	Order int
}

// Extrapolate implements Extrapolator.
func (p Poly) Extrapolate(scales, values []float64) (Result, error) {
	return PolyFit(scales, values, p.Order)
}

// PolyFit fits a polynomial of the given order by least squares and returns its
// value at zero. It needs at least order+1 distinct scale factors.
func PolyFit(scales, values []float64, order int) (Result, error) {
	if order < 0 {
		return Result{}, domain.ConfigurationError{Field: "extrapolation_order", Message: "must not be negative"}
	}
	if len(scales) != len(values) {
		return Result{}, domain.Dataf("%d scale factors for %d values", len(scales), len(values))
	}
	for i := range scales {
		if math.IsNaN(scales[i]) || math.IsInf(scales[i], 0) || math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return Result{}, domain.Dataf("point %d (%g, %g) is not finite", i, scales[i], values[i])
		}
	}

	params := order + 1
	if d := distinct(scales); d < params {
		return Result{}, domain.InsufficientDataf("order %d needs %d distinct scale factors, got %d", order, params, d)
	}

	n := len(scales)
	x := mat.NewDense(n, params, nil)
	for i, s := range scales {
		pow := 1.0
		for j := 0; j < params; j++ {
			x.Set(i, j, pow)
			pow *= s
		}
	}
	y := mat.NewVecDense(n, append([]float64(nil), values...))

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return Result{}, domain.Numericalf("failed to solve polynomial fit: %v", err)
	}

	res := Result{
		Value:        beta.AtVec(0),
		Coefficients: make([]float64, params),
	}
	for j := range res.Coefficients {
		res.Coefficients[j] = beta.AtVec(j)
	}

	if n > params {
		stderr, err := interceptStdErr(x, y, &beta, n-params)
		if err != nil {
			return Result{}, err
		}
		res.StdErr = &stderr
	}
	return res, nil
}

// interceptStdErr returns sqrt(cov[0][0]) of the residual-scaled covariance
// inv(XᵀX)·SSR/dof.
func interceptStdErr(x *mat.Dense, y, beta *mat.VecDense, dof int) (float64, error) {
	var fitted, resid mat.VecDense
	fitted.MulVec(x, beta)
	resid.SubVec(y, &fitted)
	ssr := mat.Dot(&resid, &resid)

	var gram, inv mat.Dense
	gram.Mul(x.T(), x)
	if err := inv.Inverse(&gram); err != nil {
		return 0, domain.Numericalf("failed to compute fit covariance: %v", err)
	}
	return math.Sqrt(inv.At(0, 0) * ssr / float64(dof)), nil
}

func distinct(values []float64) int {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	count := 0
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			count++
		}
	}
	return count
}

// String formats a result for logs.
func (r Result) String() string {
	if r.StdErr == nil {
		return fmt.Sprintf("%g", r.Value)
	}
	return fmt.Sprintf("%g ± %g", r.Value, *r.StdErr)
}
