// Package readout applies readout-error correction to raw count distributions.
package readout

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/calibration"
)

// Mode selects the correction procedure of a run.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeMatrix Mode = "matrix"
	ModeFilter Mode = "filter"
)

// ParseMode validates a mode name. The empty string means ModeMatrix.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeMatrix, nil
	case ModeNone, ModeMatrix, ModeFilter:
		return Mode(s), nil
	}
	return "", domain.ConfigurationError{Field: "correction", Message: fmt.Sprintf("unknown mode %q (want none, matrix or filter)", s)}
}

// Corrector estimates the corrected probability of a single target state.
type Corrector interface {
	Correct(raw bitstring.Counts, target string, shots int) (float64, error)
}

// MatrixCorrector applies an inverted confusion matrix.
type MatrixCorrector struct {
	matrix *calibration.Matrix
}

// NewMatrixCorrector wraps m. A nil matrix behaves as the identity.
func NewMatrixCorrector(m *calibration.Matrix) *MatrixCorrector {
	return &MatrixCorrector{matrix: m}
}

// Correct returns row target of inv(M) applied to the normalized raw vector.
// The value is not clamped to [0, 1].
func (c *MatrixCorrector) Correct(raw bitstring.Counts, target string, shots int) (float64, error) {
	if shots <= 0 {
		return 0, domain.ConfigurationError{Field: "shots", Message: "must be greater than 0"}
	}
	if c.matrix == nil {
		return raw.Probability(target, shots), nil
	}

	row, ok := c.matrix.Index(target)
	if !ok {
		return 0, domain.Dataf("target %q is not a calibration state", target)
	}
	if err := raw.Validate(c.matrix.Width(), shots); err != nil {
		return 0, err
	}

	vec := mat.NewVecDense(c.matrix.Size(), raw.Vector(c.matrix.States(), shots))
	return mat.Dot(c.matrix.InverseRow(row), vec), nil
}

// Filter is a fitted correction filter, as produced by calibration.FitFilter.
type Filter interface {
	Apply(raw bitstring.Counts) (bitstring.Distribution, error)
}

// FilterCorrector applies a hardware-style correction filter.
type FilterCorrector struct {
	filter Filter
}

// NewFilterCorrector wraps f.
func NewFilterCorrector(f Filter) *FilterCorrector {
	return &FilterCorrector{filter: f}
}

// Distribution returns the corrected distribution of raw.
func (c *FilterCorrector) Distribution(raw bitstring.Counts) (bitstring.Distribution, error) {
	if c.filter == nil {
		return nil, domain.ConfigurationError{Field: "filter", Message: "filter correction requires a fitted filter"}
	}
	d, err := c.filter.Apply(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to apply correction filter: %w", err)
	}
	return d, nil
}

// Correct returns the corrected count of target divided by shots.
func (c *FilterCorrector) Correct(raw bitstring.Counts, target string, shots int) (float64, error) {
	if shots <= 0 {
		return 0, domain.ConfigurationError{Field: "shots", Message: "must be greater than 0"}
	}
	d, err := c.Distribution(raw)
	if err != nil {
		return 0, err
	}
	return d.Probability(target, shots), nil
}

// NoCorrection returns the raw normalized count.
type NoCorrection struct{}

// Correct returns count(target)/shots.
func (NoCorrection) Correct(raw bitstring.Counts, target string, shots int) (float64, error) {
	if shots <= 0 {
		return 0, domain.ConfigurationError{Field: "shots", Message: "must be greater than 0"}
	}
	return raw.Probability(target, shots), nil
}
