package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/plaquette/internal/modules/pipeline"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat validates an export format name. The empty string means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// Export is the complete, self-describing dump of one run.
type Export struct {
	Run            Run             `json:"run"`
	Columns        []string        `json:"columns"`
	Rows           []pipeline.Row  `json:"rows"`
	Extrapolations []Extrapolation `json:"extrapolations"`
}

// Export loads everything stored for a run.
func (r *Repository) Export(ctx context.Context, runID string) (*Export, error) {
	run, err := r.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := r.Records(ctx, runID)
	if err != nil {
		return nil, err
	}
	extrapolations, err := r.Extrapolations(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &Export{
		Run:            *run,
		Columns:        run.Columns(),
		Rows:           rows,
		Extrapolations: extrapolations,
	}, nil
}

// Encode writes e to w. Both formats use the JSON field names.
func (e *Export) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		if err := json.NewEncoder(w).Encode(e); err != nil {
			return fmt.Errorf("failed to encode export as json: %w", err)
		}
		return nil
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode export as msgpack: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// DecodeExport reads an export written by Encode.
func DecodeExport(r io.Reader, format Format) (*Export, error) {
	var e Export
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode json export: %w", err)
		}
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode msgpack export: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	return &e, nil
}
