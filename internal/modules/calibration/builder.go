package calibration

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/circuit"
	"github.com/aristath/plaquette/internal/modules/execution"
)

// Builder measures every basis state of the register and assembles the
// inverted confusion matrix.
type Builder struct {
	space    *bitstring.Space
	shots    int
	executor execution.Executor
	log      zerolog.Logger
}

// NewBuilder creates a builder for a width-qubit register.
func NewBuilder(width, shots int, executor execution.Executor, log zerolog.Logger) (*Builder, error) {
	space, err := bitstring.NewSpace(width)
	if err != nil {
		return nil, err
	}
	if shots <= 0 {
		return nil, domain.ConfigurationError{Field: "shots", Message: "must be greater than 0"}
	}
	if executor == nil {
		return nil, domain.ConfigurationError{Field: "executor", Message: "an execution backend is required"}
	}
	return &Builder{
		space:    space,
		shots:    shots,
		executor: executor,
		log:      log.With().Str("component", "calibration_builder").Logger(),
	}, nil
}

// PreparationCircuits returns one preparation program per basis state, in
// binary counting order.
func (b *Builder) PreparationCircuits() ([]circuit.Circuit, error) {
	circuits := make([]circuit.Circuit, b.space.Size())
	for i, state := range b.space.States() {
		c, err := circuit.Preparation(state)
		if err != nil {
			return nil, fmt.Errorf("failed to build preparation circuit for %s: %w", state, err)
		}
		circuits[i] = c
	}
	return circuits, nil
}

// Build executes the preparation batch and inverts the resulting confusion matrix.
// A singular matrix is fatal.
func (b *Builder) Build(ctx context.Context) (*Matrix, error) {
	circuits, err := b.PreparationCircuits()
	if err != nil {
		return nil, err
	}

	b.log.Info().
		Int("qubits", b.space.Width()).
		Int("states", b.space.Size()).
		Int("shots", b.shots).
		Msg("Running calibration circuits")

	results, err := b.executor.Execute(ctx, circuits, b.shots)
	if err != nil {
		return nil, fmt.Errorf("failed to execute calibration circuits: %w", err)
	}

	m, err := MatrixFromCounts(b.space.Width(), b.shots, results)
	if err != nil {
		b.log.Error().Err(err).Msg("Calibration matrix rejected")
		return nil, err
	}

	b.log.Info().Int("states", m.Size()).Msg("Calibration matrix built")
	return m, nil
}

// MatrixFromCounts assembles and inverts the confusion matrix from one count
// distribution per prepared state, in binary counting order.
func MatrixFromCounts(width, shots int, results []bitstring.Counts) (*Matrix, error) {
	space, err := bitstring.NewSpace(width)
	if err != nil {
		return nil, err
	}
	if err := execution.CheckBatch(space.Size(), results); err != nil {
		return nil, err
	}

	states := space.States()
	rows := make([][]float64, len(states))
	for i, counts := range results {
		if err := counts.Validate(width, shots); err != nil {
			return nil, fmt.Errorf("calibration run for %s: %w", states[i], err)
		}
		rows[i] = counts.Vector(states, shots)
	}
	return NewMatrix(states, rows)
}
