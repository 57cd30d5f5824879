package pipeline

import (
	"github.com/aristath/plaquette/internal/modules/observables"
	"github.com/aristath/plaquette/internal/modules/sweep"
)

// Channel names one reduced quantity of a record.
type Channel string

const (
	ChannelOriginal                 Channel = "original"
	ChannelOutputCorrected          Channel = "output_corrected"
	ChannelGaussLaw                 Channel = "gauss_law"
	ChannelGaussLawCorrected        Channel = "gauss_law_corrected"
	ChannelSector2                  Channel = "sector_2"
	ChannelSector2Corrected         Channel = "sector_2_corrected"
	ChannelGaussLawSquared          Channel = "gauss_law_squared"
	ChannelGaussLawSquaredCorrected Channel = "gauss_law_squared_corrected"
)

// ProbabilityChannels are present on every reduced record.
var ProbabilityChannels = []Channel{ChannelOriginal, ChannelOutputCorrected}

// ObservableChannels are present only under filter correction.
var ObservableChannels = []Channel{
	ChannelGaussLaw, ChannelGaussLawCorrected,
	ChannelSector2, ChannelSector2Corrected,
	ChannelGaussLawSquared, ChannelGaussLawSquaredCorrected,
}

// Record is one row of pipeline output. The concrete type depends on the
// correction mode of the run.
type Record interface {
	Coordinate() sweep.Coordinate
	// Value returns the value of a channel, false when the record does not carry it.
	Value(ch Channel) (float64, bool)
}

// UncorrectedRecord is produced when correction is disabled. Its corrected
// value is the raw normalized count.
type UncorrectedRecord struct {
	Coord    sweep.Coordinate
	Original float64
}

func (r UncorrectedRecord) Coordinate() sweep.Coordinate { return r.Coord }

func (r UncorrectedRecord) Value(ch Channel) (float64, bool) {
	switch ch {
	case ChannelOriginal, ChannelOutputCorrected:
		return r.Original, true
	}
	return 0, false
}

// MatrixCorrectedRecord is produced by inverted-matrix correction.
type MatrixCorrectedRecord struct {
	Coord     sweep.Coordinate
	Original  float64
	Corrected float64
}

func (r MatrixCorrectedRecord) Coordinate() sweep.Coordinate { return r.Coord }

func (r MatrixCorrectedRecord) Value(ch Channel) (float64, bool) {
	switch ch {
	case ChannelOriginal:
		return r.Original, true
	case ChannelOutputCorrected:
		return r.Corrected, true
	}
	return 0, false
}

// FilterCorrectedRecord is produced by filter correction and carries every
// observable on both the raw and the corrected distribution.
type FilterCorrectedRecord struct {
	Coord       sweep.Coordinate
	Observables observables.Pair
}

func (r FilterCorrectedRecord) Coordinate() sweep.Coordinate { return r.Coord }

func (r FilterCorrectedRecord) Value(ch Channel) (float64, bool) {
	raw, cor := r.Observables.Raw, r.Observables.Corrected
	switch ch {
	case ChannelOriginal:
		return raw.Probability, true
	case ChannelOutputCorrected:
		return cor.Probability, true
	case ChannelGaussLaw:
		return raw.GaussLaw, true
	case ChannelGaussLawCorrected:
		return cor.GaussLaw, true
	case ChannelSector2:
		return raw.Sector2, true
	case ChannelSector2Corrected:
		return cor.Sector2, true
	case ChannelGaussLawSquared:
		return raw.GaussLawSquared, true
	case ChannelGaussLawSquaredCorrected:
		return cor.GaussLawSquared, true
	}
	return 0, false
}

// SkippedRecord marks a coordinate whose reduction could not run. It carries no values.
type SkippedRecord struct {
	Coord  sweep.Coordinate
	Reason string
}

func (r SkippedRecord) Coordinate() sweep.Coordinate { return r.Coord }

func (r SkippedRecord) Value(Channel) (float64, bool) { return 0, false }
