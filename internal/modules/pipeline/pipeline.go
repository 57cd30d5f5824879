// Package pipeline drives the measurement reduction of a sweep: it decodes
// every executed circuit to its coordinate, applies readout correction, reduces
// the observables and, when enabled, extrapolates each channel to zero noise.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/calibration"
	"github.com/aristath/plaquette/internal/modules/execution"
	"github.com/aristath/plaquette/internal/modules/extrapolation"
	"github.com/aristath/plaquette/internal/modules/observables"
	"github.com/aristath/plaquette/internal/modules/readout"
	"github.com/aristath/plaquette/internal/modules/sweep"
	"github.com/aristath/plaquette/internal/workers"
)

// Deps are the read-only collaborators of a run.
type Deps struct {
	// Matrix is used in matrix mode. A nil matrix means identity correction.
	Matrix *calibration.Matrix
	// Filter is required in filter mode.
	Filter readout.Filter
	// Extrapolator defaults to a polynomial of the configured order.
	Extrapolator extrapolation.Extrapolator
	// References defaults to observables.References.
	References func(links int) (observables.Reference, bool)
}

// Pipeline reduces result batches for one configuration.
type Pipeline struct {
	cfg    Config
	matrix *readout.MatrixCorrector
	filter *readout.FilterCorrector
	extrap extrapolation.Extrapolator
	refs   func(links int) (observables.Reference, bool)
	pool   *workers.Pool
	log    zerolog.Logger
}

// New checks that deps fit cfg.
func New(cfg Config, deps Deps, log zerolog.Logger) (*Pipeline, error) {
	if cfg.codec == nil {
		return nil, domain.ConfigurationError{Field: "config", Message: "use NewConfig to build a configuration"}
	}

	p := &Pipeline{
		cfg:    cfg,
		extrap: deps.Extrapolator,
		refs:   deps.References,
		pool:   workers.NewPool(cfg.Workers()),
		log:    log.With().Str("component", "pipeline").Logger(),
	}
	if p.extrap == nil {
		p.extrap = extrapolation.Poly{Order: cfg.ExtrapolationOrder()}
	}
	if p.refs == nil {
		p.refs = observables.References
	}

	switch cfg.Correction() {
	case readout.ModeMatrix:
		if deps.Matrix == nil {
			p.log.Warn().Msg("No calibration matrix supplied, matrix correction is the identity")
		} else if deps.Matrix.Width() != cfg.Qubits() {
			return nil, domain.ConfigurationError{
				Field:   "calibration",
				Message: fmt.Sprintf("matrix covers %d qubits, geometry has %d", deps.Matrix.Width(), cfg.Qubits()),
			}
		}
		p.matrix = readout.NewMatrixCorrector(deps.Matrix)
	case readout.ModeFilter:
		if deps.Filter == nil {
			return nil, domain.ConfigurationError{Field: "filter", Message: "filter correction requires a fitted filter"}
		}
		p.filter = readout.NewFilterCorrector(deps.Filter)
	}

	return p, nil
}

// Config returns the configuration of the pipeline.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run reduces one result batch, in sweep order, into a table.
func (p *Pipeline) Run(ctx context.Context, results []bitstring.Counts) (*Table, error) {
	codec := p.cfg.Codec()
	if err := execution.CheckBatch(codec.Len(), results); err != nil {
		return nil, err
	}
	if err := codec.Verify(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coords := make([]sweep.Coordinate, codec.Len())
	if err := codec.Walk(func(i int, c sweep.Coordinate) error {
		coords[i] = c
		return nil
	}); err != nil {
		return nil, err
	}

	ref, ok := p.cfg.Reference(p.refs)
	if !ok {
		p.log.Warn().
			Int("links", p.cfg.Links()).
			Msg("No reference state for geometry, skipping reduction")
	}

	p.log.Info().
		Int("records", len(coords)).
		Str("correction", string(p.cfg.Correction())).
		Bool("zne", p.cfg.ZNE()).
		Int("workers", p.pool.Size()).
		Msg("Reducing sweep")

	records, err := workers.Map(p.pool, coords, func(i int, coord sweep.Coordinate) (Record, error) {
		if !ok {
			return SkippedRecord{Coord: coord, Reason: fmt.Sprintf("no reference state for %d links", p.cfg.Links())}, nil
		}
		rec, err := p.reduce(coord, results[i], ref)
		if err != nil {
			return nil, fmt.Errorf("record %d %s: %w", i, coord, err)
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}

	table := &Table{
		Mode:          p.cfg.Correction(),
		Extrapolating: p.cfg.ZNE(),
		Records:       records,
	}
	table.Summaries = summarize(table, coords)

	if p.cfg.ZNE() {
		table.Extrapolations, err = p.extrapolate(table)
		if err != nil {
			return nil, err
		}
	}

	p.log.Info().
		Int("records", len(table.Records)).
		Int("extrapolations", len(table.Extrapolations)).
		Msg("Sweep reduced")
	return table, nil
}

func (p *Pipeline) reduce(coord sweep.Coordinate, raw bitstring.Counts, ref observables.Reference) (Record, error) {
	shots := p.cfg.Shots()
	if err := raw.Validate(p.cfg.Qubits(), shots); err != nil {
		return nil, err
	}

	switch p.cfg.Correction() {
	case readout.ModeNone:
		original, err := readout.NoCorrection{}.Correct(raw, ref.Target, shots)
		if err != nil {
			return nil, err
		}
		return UncorrectedRecord{Coord: coord, Original: original}, nil

	case readout.ModeMatrix:
		corrected, err := p.matrix.Correct(raw, ref.Target, shots)
		if err != nil {
			return nil, err
		}
		return MatrixCorrectedRecord{
			Coord:     coord,
			Original:  raw.Probability(ref.Target, shots),
			Corrected: corrected,
		}, nil

	case readout.ModeFilter:
		corrected, err := p.filter.Distribution(raw)
		if err != nil {
			return nil, err
		}
		return FilterCorrectedRecord{
			Coord: coord,
			Observables: observables.Pair{
				Raw:       observables.Reduce(raw.Distribution(), ref, shots),
				Corrected: observables.Reduce(corrected, ref, shots),
			},
		}, nil
	}

	return nil, domain.Invariantf("unhandled correction mode %q", p.cfg.Correction())
}

// cell groups the replica values of one (time, scale) pair.
type cell struct {
	timeIndex, scaleIndex int
}

// collect returns the values of ch per cell, skipping records without it.
func collect(t *Table, ch Channel) map[cell][]float64 {
	out := make(map[cell][]float64)
	for _, rec := range t.Records {
		v, ok := rec.Value(ch)
		if !ok {
			continue
		}
		c := rec.Coordinate()
		k := cell{c.TimeIndex, c.ScaleIndex}
		out[k] = append(out[k], v)
	}
	return out
}

// summarize computes the replica mean and sample standard deviation of every
// channel per (time, scale) cell, in sweep order of the first replica.
func summarize(t *Table, coords []sweep.Coordinate) []Summary {
	var summaries []Summary
	for _, ch := range t.Channels() {
		values := collect(t, ch)
		for _, c := range coords {
			if c.Replica != 0 {
				break
			}
			vals := values[cell{c.TimeIndex, c.ScaleIndex}]
			if len(vals) == 0 {
				continue
			}
			s := Summary{
				TimeIndex:   c.TimeIndex,
				Time:        c.Time,
				ScaleFactor: c.ScaleFactor,
				Channel:     ch,
				N:           len(vals),
			}
			if len(vals) > 1 {
				s.Mean, s.StdDev = stat.MeanStdDev(vals, nil)
			} else {
				s.Mean = vals[0]
			}
			summaries = append(summaries, s)
		}
	}
	return summaries
}

// extrapolate fits every channel of every time value to zero noise, using the
// replica mean at each scale factor. Time values are independent and run on the pool.
func (p *Pipeline) extrapolate(t *Table) ([]Extrapolation, error) {
	codec := p.cfg.Codec()
	times := p.cfg.Times()
	scales := p.cfg.ScaleFactors()
	channels := t.Channels()

	values := make(map[Channel]map[cell][]float64, len(channels))
	for _, ch := range channels {
		values[ch] = collect(t, ch)
	}

	indices := make([]int, codec.NumTimes())
	for i := range indices {
		indices[i] = i
	}

	perTime, err := workers.Map(p.pool, indices, func(_ int, ti int) ([]Extrapolation, error) {
		rows := make([]Extrapolation, 0, len(channels))
		for _, ch := range channels {
			var xs, ys []float64
			for si, scale := range scales {
				vals := values[ch][cell{ti, si}]
				if len(vals) == 0 {
					continue
				}
				xs = append(xs, scale)
				ys = append(ys, stat.Mean(vals, nil))
			}

			row := Extrapolation{TimeIndex: ti, Time: times[ti], Channel: ch}
			res, err := p.extrap.Extrapolate(xs, ys)
			if err != nil {
				row.Err = fmt.Errorf("failed to extrapolate %s at time %g: %w", ch, times[ti], err)
				p.log.Warn().Err(row.Err).Int("time_index", ti).Msg("Extrapolation failed")
			} else {
				row.Value = res.Value
				row.StdErr = res.StdErr
			}
			rows = append(rows, row)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	var out []Extrapolation
	for _, rows := range perTime {
		out = append(out, rows...)
	}
	return out, nil
}
