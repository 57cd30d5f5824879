package di

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/aristath/plaquette/internal/config"
	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/calibration"
	"github.com/aristath/plaquette/internal/modules/circuit"
	"github.com/aristath/plaquette/internal/modules/execution"
	"github.com/aristath/plaquette/internal/modules/pipeline"
	"github.com/aristath/plaquette/internal/modules/readout"
	"github.com/aristath/plaquette/internal/modules/runs"
)

// recordedBuilder stands in for circuit synthesis when results were produced
// elsewhere. Replay only needs one program per sweep entry.
func recordedBuilder(qubits int) pipeline.CircuitBuilder {
	return pipeline.CircuitBuilderFunc(func(links int, time float64) (circuit.Circuit, error) {
		c := circuit.New(qubits)
		c.MeasureAll()
		return c, nil
	})
}

// LoadExperiment reads and validates the experiment options. A non-zero
// worker count from the environment overrides the file.
func LoadExperiment(cfg *config.Config) (pipeline.Config, error) {
	opts, err := config.LoadExperiment(cfg.ExperimentPath)
	if err != nil {
		return pipeline.Config{}, err
	}
	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	return pipeline.NewConfig(opts)
}

// LoadCalibration prepares the readout dependencies for the configured mode.
// Matrix mode prefers a saved artifact and otherwise builds one from recorded
// calibration counts, saving it when an artifact path is configured. Filter
// mode always fits from calibration counts.
func LoadCalibration(ctx context.Context, cfg *config.Config, pcfg pipeline.Config, log zerolog.Logger) (pipeline.Deps, error) {
	var deps pipeline.Deps

	switch pcfg.Correction() {
	case readout.ModeNone:
		return deps, nil

	case readout.ModeMatrix:
		if cfg.CalibrationPath != "" {
			m, err := calibration.Load(cfg.CalibrationPath)
			if err == nil {
				log.Info().Str("path", cfg.CalibrationPath).Int("states", m.Size()).Msg("Loaded calibration artifact")
				deps.Matrix = m
				return deps, nil
			}
			if !errors.Is(err, os.ErrNotExist) || cfg.CalibrationCountsPath == "" {
				return deps, err
			}
		}
		if cfg.CalibrationCountsPath == "" {
			return deps, nil
		}

		counts, err := config.LoadCounts(cfg.CalibrationCountsPath)
		if err != nil {
			return deps, err
		}
		builder, err := calibration.NewBuilder(pcfg.Qubits(), pcfg.Shots(), execution.NewReplay(counts), log)
		if err != nil {
			return deps, err
		}
		m, err := builder.Build(ctx)
		if err != nil {
			return deps, err
		}
		if cfg.CalibrationPath != "" {
			if err := m.Save(cfg.CalibrationPath); err != nil {
				return deps, err
			}
			log.Info().Str("path", cfg.CalibrationPath).Msg("Saved calibration artifact")
		}
		deps.Matrix = m
		return deps, nil

	case readout.ModeFilter:
		if cfg.CalibrationCountsPath == "" {
			return deps, domain.ConfigurationError{Field: "CALIBRATION_COUNTS_PATH", Message: "filter correction needs calibration counts"}
		}
		counts, err := config.LoadCounts(cfg.CalibrationCountsPath)
		if err != nil {
			return deps, err
		}
		f, err := calibration.FitFilter(pcfg.Qubits(), counts, pcfg.Shots(), calibration.FilterLeastSquares)
		if err != nil {
			return deps, err
		}
		deps.Filter = f
		return deps, nil
	}

	return deps, domain.ConfigurationError{Field: "correction", Message: fmt.Sprintf("unsupported mode %q", pcfg.Correction())}
}

// Reduce runs the whole offline reduction: experiment options, calibration,
// replay of the recorded results, the pipeline and finally persistence.
func Reduce(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) (runs.Run, *pipeline.Table, error) {
	pcfg, err := LoadExperiment(cfg)
	if err != nil {
		return runs.Run{}, nil, err
	}

	deps, err := LoadCalibration(ctx, cfg, pcfg, log)
	if err != nil {
		return runs.Run{}, nil, fmt.Errorf("failed to prepare calibration: %w", err)
	}

	recorded, err := config.LoadCounts(cfg.ResultsPath)
	if err != nil {
		return runs.Run{}, nil, err
	}
	results, err := pipeline.Execute(ctx, pcfg, recordedBuilder(pcfg.Qubits()), nil, execution.NewReplay(recorded))
	if err != nil {
		return runs.Run{}, nil, err
	}

	p, err := pipeline.New(pcfg, deps, log)
	if err != nil {
		return runs.Run{}, nil, err
	}
	table, err := p.Run(ctx, results)
	if err != nil {
		return runs.Run{}, nil, err
	}

	run, err := container.Runs.SaveRun(ctx, pcfg, table)
	if err != nil {
		return runs.Run{}, nil, err
	}
	return run, table, nil
}
