package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/extrapolation"
	"github.com/aristath/plaquette/internal/modules/folding"
	"github.com/aristath/plaquette/internal/modules/observables"
	"github.com/aristath/plaquette/internal/modules/readout"
	"github.com/aristath/plaquette/internal/modules/sweep"
)

// Options is the experiment configuration as it is written by users.
type Options struct {
	Links              int       `json:"links"`
	Shots              int       `json:"shots"`
	Times              []float64 `json:"times"`
	ZNE                bool      `json:"zne"`
	ScaleFactors       []float64 `json:"scale_factors,omitempty"`
	Replicas           int       `json:"replicas"`
	Correction         string    `json:"correction"`
	ExtrapolationOrder *int      `json:"extrapolation_order,omitempty"`
	FoldSeed           *int64    `json:"fold_seed,omitempty"`
	FoldSingleQubit    bool      `json:"fold_single_qubit,omitempty"`
	TargetState        string    `json:"target_state,omitempty"`
	SectorState        string    `json:"sector_state,omitempty"`
	Workers            int       `json:"workers,omitempty"`
}

// Config is a validated, immutable run configuration.
type Config struct {
	opts  Options
	mode  readout.Mode
	order int
	seed  int64
	codec *sweep.Codec
}

// NewConfig validates opts and fills in defaults. Every invalid field is
// reported in one ConfigurationErrors value.
func NewConfig(opts Options) (Config, error) {
	var errs domain.ConfigurationErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, domain.ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	qubits := observables.Qubits(opts.Links)
	if qubits == 0 {
		add("links", "%d is not a supported geometry (want 3 or 4)", opts.Links)
	}
	if opts.Shots <= 0 {
		add("shots", "must be greater than 0")
	}

	codec, err := sweep.NewCodec(opts.Times, opts.ScaleFactors, opts.ZNE, opts.Replicas)
	if err != nil {
		var cerrs domain.ConfigurationErrors
		if !errors.As(err, &cerrs) {
			return Config{}, err
		}
		errs = append(errs, cerrs...)
	}
	for i, t := range opts.Times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			add("times", "value %d is not finite", i)
		}
	}
	if opts.ZNE {
		for i, s := range opts.ScaleFactors {
			if math.IsNaN(s) || math.IsInf(s, 0) || s < 1 {
				add("scale_factors", "value %d (%g) must be a finite number >= 1", i, s)
			}
		}
	}

	mode, err := readout.ParseMode(opts.Correction)
	if err != nil {
		var cerr domain.ConfigurationError
		if !errors.As(err, &cerr) {
			return Config{}, err
		}
		errs = append(errs, cerr)
	}

	order := extrapolation.DefaultOrder
	if opts.ExtrapolationOrder != nil {
		order = *opts.ExtrapolationOrder
	}
	if order < 0 {
		add("extrapolation_order", "must not be negative")
	}

	seed := folding.DefaultSeed
	if opts.FoldSeed != nil {
		seed = *opts.FoldSeed
	}

	if qubits > 0 {
		if opts.TargetState != "" && !bitstring.IsValid(opts.TargetState, qubits) {
			add("target_state", "%q is not a %d-bit string", opts.TargetState, qubits)
		}
		if opts.SectorState != "" && !bitstring.IsValid(opts.SectorState, qubits) {
			add("sector_state", "%q is not a %d-bit string", opts.SectorState, qubits)
		}
	}
	if opts.Workers < 0 {
		add("workers", "must not be negative")
	}

	if err := errs.ErrorOrNil(); err != nil {
		return Config{}, err
	}

	normalized := opts
	normalized.Correction = string(mode)
	normalized.ExtrapolationOrder = &order
	normalized.FoldSeed = &seed
	normalized.Times = append([]float64(nil), opts.Times...)
	if opts.ZNE {
		normalized.ScaleFactors = append([]float64(nil), opts.ScaleFactors...)
	} else {
		normalized.ScaleFactors = nil
	}

	return Config{opts: normalized, mode: mode, order: order, seed: seed, codec: codec}, nil
}

// Options returns the normalized options, defaults filled in.
func (c Config) Options() Options {
	out := c.opts
	out.Times = append([]float64(nil), c.opts.Times...)
	out.ScaleFactors = append([]float64(nil), c.opts.ScaleFactors...)
	order, seed := c.order, c.seed
	out.ExtrapolationOrder = &order
	out.FoldSeed = &seed
	return out
}

// Links returns the plaquette geometry.
func (c Config) Links() int { return c.opts.Links }

// Qubits returns the register width of the geometry.
func (c Config) Qubits() int { return observables.Qubits(c.opts.Links) }

// Shots returns the shot budget per circuit.
func (c Config) Shots() int { return c.opts.Shots }

// Times returns a copy of the time values.
func (c Config) Times() []float64 { return append([]float64(nil), c.opts.Times...) }

// ZNE reports whether zero-noise extrapolation is enabled.
func (c Config) ZNE() bool { return c.opts.ZNE }

// ScaleFactors returns a copy of the scale factors, nil when ZNE is disabled.
func (c Config) ScaleFactors() []float64 { return append([]float64(nil), c.opts.ScaleFactors...) }

// Replicas returns the replica count.
func (c Config) Replicas() int { return c.opts.Replicas }

// Correction returns the readout correction mode.
func (c Config) Correction() readout.Mode { return c.mode }

// ExtrapolationOrder returns the polynomial order of the zero-noise fit.
func (c Config) ExtrapolationOrder() int { return c.order }

// FoldSeed returns the seed of the gate-folding permutation.
func (c Config) FoldSeed() int64 { return c.seed }

// FoldingOptions returns the folding options.
func (c Config) FoldingOptions() folding.Options {
	return folding.Options{FoldSingleQubit: c.opts.FoldSingleQubit}
}

// Workers returns the worker pool size; 0 selects the pool default.
func (c Config) Workers() int { return c.opts.Workers }

// Codec returns the sweep codec of the run.
func (c Config) Codec() *sweep.Codec { return c.codec }

// Reference resolves the reference states with lookup, applying the
// target_state and sector_state overrides. ok is false when no complete
// reference is known.
func (c Config) Reference(lookup func(links int) (observables.Reference, bool)) (observables.Reference, bool) {
	var ref observables.Reference
	if lookup != nil {
		ref, _ = lookup(c.opts.Links)
	}
	if c.opts.TargetState != "" {
		ref.Target = c.opts.TargetState
	}
	if c.opts.SectorState != "" {
		ref.Sector = c.opts.SectorState
	}
	return ref, ref.Target != "" && ref.Sector != ""
}
