package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/plaquette/internal/database"
	"github.com/aristath/plaquette/internal/modules/pipeline"
)

// Repository stores pipeline runs in the run store.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new run repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "runs").Logger(),
	}
}

// SaveRun stores a reduced table and its configuration in one transaction.
func (r *Repository) SaveRun(ctx context.Context, cfg pipeline.Config, table *pipeline.Table) (Run, error) {
	if table == nil {
		return Run{}, fmt.Errorf("cannot save a nil table")
	}

	opts := cfg.Options()
	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return Run{}, fmt.Errorf("failed to marshal run options: %w", err)
	}

	rows := table.Rows()
	run := Run{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Options:     opts,
		RecordCount: len(rows),
	}
	for _, row := range rows {
		if row.Skipped != "" {
			run.SkippedCount++
		}
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, created_at, links, shots, correction, zne, replicas, options_json, record_count, skipped_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.CreatedAt.Format(timeLayout), opts.Links, opts.Shots, opts.Correction,
			boolToInt(opts.ZNE), opts.Replicas, string(optionsJSON), run.RecordCount, run.SkippedCount)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		if err := insertRecords(ctx, tx, run.ID, rows); err != nil {
			return err
		}
		return insertExtrapolations(ctx, tx, run.ID, table.Extrapolations)
	})
	if err != nil {
		return Run{}, err
	}

	r.log.Info().
		Str("run_id", run.ID).
		Int("records", run.RecordCount).
		Int("extrapolations", len(table.Extrapolations)).
		Msg("Run saved")
	return run, nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, runID string, rows []pipeline.Row) error {
	cols := []string{"run_id", "idx", "replica", "time_index", "time", "scale_factor"}
	for _, ch := range channelColumns {
		cols = append(cols, string(ch))
	}
	cols = append(cols, "skipped")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO records (%s) VALUES (%s)", strings.Join(cols, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := []interface{}{runID, row.Index, row.Replica, row.TimeIndex, row.Time, nullFloat(row.ScaleFactor)}
		for _, ch := range channelColumns {
			if v, ok := row.Values[ch]; ok {
				args = append(args, v)
			} else {
				args = append(args, nil)
			}
		}
		args = append(args, nullString(row.Skipped))

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", row.Index, err)
		}
	}
	return nil
}

func insertExtrapolations(ctx context.Context, tx *sql.Tx, runID string, extrapolations []pipeline.Extrapolation) error {
	for _, e := range extrapolations {
		var value interface{}
		if e.Err == nil {
			value = e.Value
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO extrapolations (run_id, time_index, time, channel, value, std_err, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, e.TimeIndex, e.Time, string(e.Channel), value, nullFloat(e.StdErr), nullString(e.Error()))
		if err != nil {
			return fmt.Errorf("failed to insert extrapolation for %s at time %g: %w", e.Channel, e.Time, err)
		}
	}
	return nil
}

// GetRun returns one run, or ErrRunNotFound.
func (r *Repository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, options_json, record_count, skipped_count
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, created_at, options_json, record_count, skipped_count
		FROM runs ORDER BY created_at DESC, id
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Records returns the flattened records of a run in sweep order.
func (r *Repository) Records(ctx context.Context, runID string) ([]pipeline.Row, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	cols := []string{"idx", "replica", "time_index", "time", "scale_factor"}
	for _, ch := range channelColumns {
		cols = append(cols, string(ch))
	}
	cols = append(cols, "skipped")

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM records WHERE run_id = ? ORDER BY idx", strings.Join(cols, ", ")), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := []pipeline.Row{}
	for rows.Next() {
		var (
			row     pipeline.Row
			scale   sql.NullFloat64
			skipped sql.NullString
			values  = make([]sql.NullFloat64, len(channelColumns))
		)
		dest := []interface{}{&row.Index, &row.Replica, &row.TimeIndex, &row.Time, &scale}
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &skipped)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if scale.Valid {
			v := scale.Float64
			row.ScaleFactor = &v
		}
		row.Skipped = skipped.String
		for i, v := range values {
			if !v.Valid {
				continue
			}
			if row.Values == nil {
				row.Values = make(map[pipeline.Channel]float64)
			}
			row.Values[channelColumns[i]] = v.Float64
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

// Extrapolations returns the zero-noise estimates of a run ordered by time and channel.
func (r *Repository) Extrapolations(ctx context.Context, runID string) ([]Extrapolation, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT time_index, time, channel, value, std_err, error
		FROM extrapolations WHERE run_id = ?
		ORDER BY time_index, channel
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query extrapolations: %w", err)
	}
	defer rows.Close()

	out := []Extrapolation{}
	for rows.Next() {
		var (
			e             Extrapolation
			channel       string
			value, stdErr sql.NullFloat64
			message       sql.NullString
		)
		if err := rows.Scan(&e.TimeIndex, &e.Time, &channel, &value, &stdErr, &message); err != nil {
			return nil, fmt.Errorf("failed to scan extrapolation: %w", err)
		}
		e.Channel = pipeline.Channel(channel)
		if value.Valid {
			v := value.Float64
			e.Value = &v
		}
		if stdErr.Valid {
			v := stdErr.Float64
			e.StdErr = &v
		}
		e.Error = message.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate extrapolations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run         Run
		createdAt   string
		optionsJSON string
	)
	if err := s.Scan(&run.ID, &createdAt, &optionsJSON, &run.RecordCount, &run.SkippedCount); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t

	if err := json.Unmarshal([]byte(optionsJSON), &run.Options); err != nil {
		return nil, fmt.Errorf("invalid options for run %s: %w", run.ID, err)
	}
	return &run, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
