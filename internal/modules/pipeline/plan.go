package pipeline

import (
	"context"
	"fmt"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/circuit"
	"github.com/aristath/plaquette/internal/modules/execution"
	"github.com/aristath/plaquette/internal/modules/folding"
	"github.com/aristath/plaquette/internal/modules/sweep"
)

// CircuitBuilder synthesizes the measured evolution circuit of a plaquette
// geometry at one time value.
type CircuitBuilder interface {
	Build(links int, time float64) (circuit.Circuit, error)
}

// CircuitBuilderFunc adapts a function to CircuitBuilder.
type CircuitBuilderFunc func(links int, time float64) (circuit.Circuit, error)

// Build calls f.
func (f CircuitBuilderFunc) Build(links int, time float64) (circuit.Circuit, error) {
	return f(links, time)
}

// PlanCircuits returns the programs of the sweep in linear index order. The
// base circuit of each time value is built once and folded to every scale
// factor when ZNE is enabled. A nil folder selects random local folding.
func PlanCircuits(cfg Config, builder CircuitBuilder, folder folding.Folder) ([]circuit.Circuit, error) {
	if builder == nil {
		return nil, domain.ConfigurationError{Field: "builder", Message: "a circuit builder is required"}
	}
	if folder == nil {
		folder = folding.RandomLocal{Options: cfg.FoldingOptions()}
	}

	codec := cfg.Codec()
	base := make(map[int]circuit.Circuit, codec.NumTimes())
	programs := make([]circuit.Circuit, 0, codec.Len())

	err := codec.Walk(func(i int, coord sweep.Coordinate) error {
		c, ok := base[coord.TimeIndex]
		if !ok {
			built, err := builder.Build(cfg.Links(), coord.Time)
			if err != nil {
				return fmt.Errorf("failed to build circuit for time %g: %w", coord.Time, err)
			}
			if built.NumQubits != cfg.Qubits() {
				return domain.ConfigurationError{
					Field:   "builder",
					Message: fmt.Sprintf("circuit has %d qubits, geometry has %d", built.NumQubits, cfg.Qubits()),
				}
			}
			base[coord.TimeIndex] = built
			c = built
		}

		if coord.HasScale() {
			folded, err := folder.Fold(c, coord.ScaleFactor, cfg.FoldSeed())
			if err != nil {
				return fmt.Errorf("failed to fold circuit %d %s: %w", i, coord, err)
			}
			programs = append(programs, folded)
			return nil
		}
		programs = append(programs, c.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return programs, nil
}

// Execute plans the sweep and runs it on executor in one batch.
func Execute(ctx context.Context, cfg Config, builder CircuitBuilder, folder folding.Folder, executor execution.Executor) ([]bitstring.Counts, error) {
	if executor == nil {
		return nil, domain.ConfigurationError{Field: "executor", Message: "an execution backend is required"}
	}
	programs, err := PlanCircuits(cfg, builder, folder)
	if err != nil {
		return nil, err
	}
	results, err := executor.Execute(ctx, programs, cfg.Shots())
	if err != nil {
		return nil, fmt.Errorf("failed to execute sweep: %w", err)
	}
	if err := execution.CheckBatch(len(programs), results); err != nil {
		return nil, err
	}
	return results, nil
}
