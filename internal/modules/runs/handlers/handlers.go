// Package handlers provides read-only HTTP handlers for stored pipeline runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/plaquette/internal/modules/pipeline"
	"github.com/aristath/plaquette/internal/modules/runs"
)

// Store is the subset of the run repository the handlers read from.
type Store interface {
	GetRun(ctx context.Context, id string) (*runs.Run, error)
	ListRuns(ctx context.Context, limit int) ([]runs.Run, error)
	Records(ctx context.Context, runID string) ([]pipeline.Row, error)
	Extrapolations(ctx context.Context, runID string) ([]runs.Extrapolation, error)
	Export(ctx context.Context, runID string) (*runs.Export, error)
}

// Handler handles run HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new runs handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "runs").Logger(),
	}
}

// HandleListRuns handles GET /api/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": list,
		"metadata": map[string]interface{}{
			"count":     len(list),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetRun handles GET /api/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err, "Failed to get run")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"run":     run,
			"columns": run.Columns(),
		},
	})
}

// HandleGetRecords handles GET /api/runs/{id}/records
func (h *Handler) HandleGetRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to get run")
		return
	}
	rows, err := h.store.Records(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to get records")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"columns": run.Columns(),
			"rows":    rows,
		},
		"metadata": map[string]interface{}{
			"count": len(rows),
		},
	})
}

// HandleGetExtrapolations handles GET /api/runs/{id}/extrapolations
func (h *Handler) HandleGetExtrapolations(w http.ResponseWriter, r *http.Request) {
	extrapolations, err := h.store.Extrapolations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err, "Failed to get extrapolations")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": extrapolations,
		"metadata": map[string]interface{}{
			"count": len(extrapolations),
		},
	})
}

// HandleExport handles GET /api/runs/{id}/export?format=json|msgpack
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := runs.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	export, err := h.store.Export(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to export run")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=\"run-"+id+"."+string(format)+"\"")
	w.WriteHeader(http.StatusOK)
	if err := export.Encode(w, format); err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to write export")
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, runs.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
