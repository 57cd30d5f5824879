package pipeline

import (
	"github.com/aristath/plaquette/internal/modules/readout"
)

// Extrapolation is the zero-noise estimate of one channel at one time value.
// Err is set when this time value could not be extrapolated; other rows are
// unaffected.
type Extrapolation struct {
	TimeIndex int      `json:"time_index"`
	Time      float64  `json:"time"`
	Channel   Channel  `json:"channel"`
	Value     float64  `json:"value"`
	StdErr    *float64 `json:"std_err,omitempty"`
	Err       error    `json:"-"`
}

// Error returns the failure message, or "" for a successful fit.
func (e Extrapolation) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Summary aggregates one channel over the replicas of a (time, scale) cell.
type Summary struct {
	TimeIndex   int     `json:"time_index"`
	Time        float64 `json:"time"`
	ScaleFactor float64 `json:"scale_factor"`
	Channel     Channel `json:"channel"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	N           int     `json:"n"`
}

// Table is the output of one pipeline run. Records are in sweep order.
type Table struct {
	Mode           readout.Mode
	Extrapolating  bool
	Records        []Record
	Extrapolations []Extrapolation
	Summaries      []Summary
}

// Channels returns the channels carried by records of this table's mode.
func (t *Table) Channels() []Channel {
	channels := append([]Channel(nil), ProbabilityChannels...)
	if t.Mode == readout.ModeFilter {
		channels = append(channels, ObservableChannels...)
	}
	return channels
}

// Columns returns the flattened column names, in output order.
func (t *Table) Columns() []string {
	cols := []string{"replica", "time"}
	if t.Extrapolating {
		cols = append(cols, "scale_factor")
	}
	for _, ch := range t.Channels() {
		cols = append(cols, string(ch))
	}
	return cols
}

// Row is a record flattened for storage and export.
type Row struct {
	Index       int                 `json:"index"`
	Replica     int                 `json:"replica"`
	TimeIndex   int                 `json:"time_index"`
	Time        float64             `json:"time"`
	ScaleFactor *float64            `json:"scale_factor,omitempty"`
	Values      map[Channel]float64 `json:"values,omitempty"`
	Skipped     string              `json:"skipped,omitempty"`
}

// Cells returns the row in the order of columns. Absent values are nil.
func (r Row) Cells(columns []string) []interface{} {
	cells := make([]interface{}, len(columns))
	for i, col := range columns {
		switch col {
		case "replica":
			cells[i] = r.Replica
		case "time":
			cells[i] = r.Time
		case "scale_factor":
			if r.ScaleFactor != nil {
				cells[i] = *r.ScaleFactor
			}
		default:
			if v, ok := r.Values[Channel(col)]; ok {
				cells[i] = v
			}
		}
	}
	return cells
}

// Rows flattens every record.
func (t *Table) Rows() []Row {
	channels := t.Channels()
	rows := make([]Row, len(t.Records))
	for i, rec := range t.Records {
		coord := rec.Coordinate()
		row := Row{
			Index:     i,
			Replica:   coord.Replica,
			TimeIndex: coord.TimeIndex,
			Time:      coord.Time,
		}
		if coord.HasScale() {
			scale := coord.ScaleFactor
			row.ScaleFactor = &scale
		}
		if skipped, ok := rec.(SkippedRecord); ok {
			row.Skipped = skipped.Reason
		} else {
			row.Values = make(map[Channel]float64, len(channels))
			for _, ch := range channels {
				if v, ok := rec.Value(ch); ok {
					row.Values[ch] = v
				}
			}
		}
		rows[i] = row
	}
	return rows
}
