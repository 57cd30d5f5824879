package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aristath/plaquette/internal/database"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/pipeline"
	"github.com/aristath/plaquette/internal/modules/runs"
)

func setupRouter(t *testing.T) (*chi.Mux, string) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(database.Schema)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := runs.NewRepository(db, log)

	cfg, err := pipeline.NewConfig(pipeline.Options{
		Links: 3, Shots: 100, Times: []float64{0.5}, ZNE: true, ScaleFactors: []float64{1, 2}, Replicas: 1, Correction: "none",
	})
	require.NoError(t, err)
	p, err := pipeline.New(cfg, pipeline.Deps{}, log)
	require.NoError(t, err)
	table, err := p.Run(context.Background(), []bitstring.Counts{{"1111": 80, "0000": 20}, {"1111": 70, "0000": 30}})
	require.NoError(t, err)

	run, err := repo.SaveRun(context.Background(), cfg, table)
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(repo, log).RegisterRoutes(router)
	return router, run.ID
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleListRuns(t *testing.T) {
	router, id := setupRouter(t)

	w := get(t, router, "/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Data     []runs.Run             `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, id, body.Data[0].ID)
	assert.Equal(t, float64(1), body.Metadata["count"])

	w = get(t, router, "/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetRun(t *testing.T) {
	router, id := setupRouter(t)

	w := get(t, router, "/runs/"+id)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Run     runs.Run `json:"run"`
			Columns []string `json:"columns"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, id, body.Data.Run.ID)
	assert.Equal(t, 3, body.Data.Run.Options.Links)
	assert.Equal(t, []string{"replica", "time", "scale_factor", "original", "output_corrected"}, body.Data.Columns)

	w = get(t, router, "/runs/does-not-exist")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetRecords(t *testing.T) {
	router, id := setupRouter(t)

	w := get(t, router, "/runs/"+id+"/records")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Rows []pipeline.Row `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Rows, 2)
	assert.Equal(t, 0.8, body.Data.Rows[0].Values[pipeline.ChannelOriginal])
	require.NotNil(t, body.Data.Rows[1].ScaleFactor)
	assert.Equal(t, 2.0, *body.Data.Rows[1].ScaleFactor)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/runs/nope/records").Code)
}

func TestHandleGetExtrapolations(t *testing.T) {
	router, id := setupRouter(t)

	w := get(t, router, "/runs/"+id+"/extrapolations")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []runs.Extrapolation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// two scale factors cannot support the default quadratic fit
	require.Len(t, body.Data, 2)
	for _, e := range body.Data {
		assert.Nil(t, e.Value)
		assert.NotEmpty(t, e.Error)
	}
}

func TestHandleExport(t *testing.T) {
	router, id := setupRouter(t)

	for _, format := range []runs.Format{runs.FormatJSON, runs.FormatMsgpack} {
		t.Run(string(format), func(t *testing.T) {
			w := get(t, router, "/runs/"+id+"/export?format="+string(format))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, format.ContentType(), w.Header().Get("Content-Type"))
			assert.Contains(t, w.Header().Get("Content-Disposition"), id)

			export, err := runs.DecodeExport(bytes.NewReader(w.Body.Bytes()), format)
			require.NoError(t, err)
			assert.Equal(t, id, export.Run.ID)
			assert.Len(t, export.Rows, 2)
		})
	}

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/runs/"+id+"/export?format=xml").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/runs/nope/export").Code)
}

type failingStore struct{}

func (failingStore) GetRun(context.Context, string) (*runs.Run, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) ListRuns(context.Context, int) ([]runs.Run, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Records(context.Context, string) ([]pipeline.Row, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Extrapolations(context.Context, string) ([]runs.Extrapolation, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Export(context.Context, string) (*runs.Export, error) {
	return nil, errors.New("disk on fire")
}

func TestHandlers_StoreFailures(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(failingStore{}, zerolog.New(nil).Level(zerolog.Disabled)).RegisterRoutes(router)

	for _, path := range []string{"/runs", "/runs/x", "/runs/x/records", "/runs/x/extrapolations", "/runs/x/export"} {
		w := get(t, router, path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.NotContains(t, w.Body.String(), "disk on fire", path)
	}
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewRouter()
	assert.NotPanics(t, func() {
		NewHandler(failingStore{}, zerolog.Nop()).RegisterRoutes(router)
	})
}
