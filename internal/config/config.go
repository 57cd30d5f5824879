// Package config provides process configuration and experiment file loading.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/pipeline"
)

// Config holds application configuration
type Config struct {
	DataDir               string // Base directory for the run database and default input files (always absolute)
	LogLevel              string
	Port                  int // 0 disables the results API
	Workers               int // 0 keeps the experiment's own setting
	ExperimentPath        string
	ResultsPath           string
	CalibrationPath       string // calibration artifact, used by matrix mode when present
	CalibrationCountsPath string // raw calibration counts, fitted when no artifact is given
	DevMode               bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PLAQUETTE_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:               absDataDir,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		Port:                  getEnvAsInt("HTTP_PORT", 0),
		Workers:               getEnvAsInt("WORKERS", 0),
		ExperimentPath:        resolve(absDataDir, getEnv("EXPERIMENT_PATH", "experiment.json")),
		ResultsPath:           resolve(absDataDir, getEnv("RESULTS_PATH", "results.json")),
		CalibrationPath:       resolve(absDataDir, getEnv("CALIBRATION_PATH", "")),
		CalibrationCountsPath: resolve(absDataDir, getEnv("CALIBRATION_COUNTS_PATH", "")),
		DevMode:               getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath is where completed runs are stored.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "runs.db")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	var errs domain.ConfigurationErrors

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, domain.ConfigurationError{Field: "HTTP_PORT", Message: fmt.Sprintf("must be between 0 and 65535, got %d", c.Port)})
	}
	if c.Workers < 0 {
		errs = append(errs, domain.ConfigurationError{Field: "WORKERS", Message: fmt.Sprintf("must not be negative, got %d", c.Workers)})
	}
	if c.ExperimentPath == "" {
		errs = append(errs, domain.ConfigurationError{Field: "EXPERIMENT_PATH", Message: "is required"})
	}
	if c.ResultsPath == "" {
		errs = append(errs, domain.ConfigurationError{Field: "RESULTS_PATH", Message: "is required"})
	}

	return errs.ErrorOrNil()
}

// LoadExperiment reads experiment options from a JSON file. Unknown keys are
// rejected so a misspelled option never silently falls back to its default.
func LoadExperiment(path string) (pipeline.Options, error) {
	var opts pipeline.Options

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read experiment %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return opts, fmt.Errorf("failed to parse experiment %s: %w", path, domain.ConfigurationError{Field: "experiment", Message: err.Error()})
	}

	return opts, nil
}

// LoadCounts reads a batch of count dictionaries, one per executed circuit.
func LoadCounts(path string) ([]bitstring.Counts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read counts %s: %w", path, err)
	}

	var batch []bitstring.Counts
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse counts %s: %w", path, domain.Dataf("%v", err))
	}
	for i, counts := range batch {
		if counts == nil {
			return nil, fmt.Errorf("failed to parse counts %s: %w", path, domain.Dataf("entry %d is null", i))
		}
	}

	return batch, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
