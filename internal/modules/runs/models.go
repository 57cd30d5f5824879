// Package runs persists reduced pipeline runs and exports them.
package runs

import (
	"errors"
	"time"

	"github.com/aristath/plaquette/internal/modules/pipeline"
	"github.com/aristath/plaquette/internal/modules/readout"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Run is the summary row of one stored reduction.
type Run struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	Options      pipeline.Options `json:"options"`
	RecordCount  int              `json:"record_count"`
	SkippedCount int              `json:"skipped_count"`
}

// Extrapolation is a stored zero-noise estimate. Value is nil when the fit
// failed, in which case Error holds the reason.
type Extrapolation struct {
	TimeIndex int              `json:"time_index"`
	Time      float64          `json:"time"`
	Channel   pipeline.Channel `json:"channel"`
	Value     *float64         `json:"value,omitempty"`
	StdErr    *float64         `json:"std_err,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// channelColumns maps every channel to its records column.
var channelColumns = []pipeline.Channel{
	pipeline.ChannelOriginal,
	pipeline.ChannelOutputCorrected,
	pipeline.ChannelGaussLaw,
	pipeline.ChannelGaussLawCorrected,
	pipeline.ChannelSector2,
	pipeline.ChannelSector2Corrected,
	pipeline.ChannelGaussLawSquared,
	pipeline.ChannelGaussLawSquaredCorrected,
}

// Columns returns the output columns of a stored run.
func (r Run) Columns() []string {
	t := pipeline.Table{Mode: readout.Mode(r.Options.Correction), Extrapolating: r.Options.ZNE}
	return t.Columns()
}
