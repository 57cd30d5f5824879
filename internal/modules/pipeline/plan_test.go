package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/circuit"
	"github.com/aristath/plaquette/internal/modules/execution"
	"github.com/aristath/plaquette/internal/modules/folding"
)

// countingBuilder records how often each time value was synthesized.
type countingBuilder struct {
	calls map[float64]int
}

func (b *countingBuilder) Build(links int, time float64) (circuit.Circuit, error) {
	if b.calls == nil {
		b.calls = map[float64]int{}
	}
	b.calls[time]++
	c := circuit.New(links + 1)
	c.Append("rx", []int{0}, time).
		Append("cx", []int{0, 1}).
		Append("cx", []int{1, 2})
	c.MeasureAll()
	return c, nil
}

func TestPlanCircuits_WithoutZNE(t *testing.T) {
	cfg := mustConfig(t, Options{Links: 3, Shots: 100, Times: []float64{0.1, 0.2}, Replicas: 2})
	b := &countingBuilder{}

	programs, err := PlanCircuits(cfg, b, nil)
	require.NoError(t, err)
	require.Len(t, programs, 4)

	assert.Equal(t, map[float64]int{0.1: 1, 0.2: 1}, b.calls)
	// replica outermost: index 2 is time 0.1 again
	assert.Equal(t, 0.1, programs[2].Gates[0].Params[0])
	assert.Equal(t, 0.2, programs[3].Gates[0].Params[0])
	assert.Len(t, programs[0].Gates, 7)
}

func TestPlanCircuits_FoldsEveryScale(t *testing.T) {
	cfg := mustConfig(t, zneOptions())
	b := &countingBuilder{}

	programs, err := PlanCircuits(cfg, b, nil)
	require.NoError(t, err)
	require.Len(t, programs, 12)
	assert.Equal(t, map[float64]int{0.1: 1, 0.2: 1}, b.calls)

	// two cx gates folded k = round(2(λ-1)/2) times
	assert.Equal(t, 2, programs[0].CountOps()["cx"])
	assert.Equal(t, 6, programs[1].CountOps()["cx"])
	assert.Equal(t, 10, programs[2].CountOps()["cx"])
	assert.Equal(t, 1, programs[2].CountOps()["rx"])

	again, err := PlanCircuits(cfg, &countingBuilder{}, folding.RandomLocal{})
	require.NoError(t, err)
	assert.Equal(t, programs, again)
}

func TestPlanCircuits_Errors(t *testing.T) {
	cfg := mustConfig(t, zneOptions())

	_, err := PlanCircuits(cfg, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	wrongWidth := CircuitBuilderFunc(func(int, float64) (circuit.Circuit, error) {
		c := circuit.New(2)
		c.Append("cx", []int{0, 1})
		return c, nil
	})
	_, err = PlanCircuits(cfg, wrongWidth, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	failing := CircuitBuilderFunc(func(int, float64) (circuit.Circuit, error) {
		return circuit.Circuit{}, errors.New("synthesis failed")
	})
	_, err = PlanCircuits(cfg, failing, nil)
	assert.ErrorContains(t, err, "synthesis failed")
}

func TestExecute_RunsPlannedBatch(t *testing.T) {
	cfg := mustConfig(t, zneOptions())

	var submitted int
	exec := execution.ExecutorFunc(func(_ context.Context, programs []circuit.Circuit, shots int) ([]bitstring.Counts, error) {
		submitted = len(programs)
		assert.Equal(t, 1000, shots)
		return zneResults(), nil
	})

	results, err := Execute(context.Background(), cfg, &countingBuilder{}, nil, exec)
	require.NoError(t, err)
	assert.Equal(t, 12, submitted)

	p := mustPipeline(t, cfg, Deps{})
	table, err := p.Run(context.Background(), results)
	require.NoError(t, err)
	assert.Len(t, table.Records, 12)
}

func TestExecute_Errors(t *testing.T) {
	cfg := mustConfig(t, zneOptions())

	_, err := Execute(context.Background(), cfg, &countingBuilder{}, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	short := execution.ExecutorFunc(func(context.Context, []circuit.Circuit, int) ([]bitstring.Counts, error) {
		return zneResults()[:5], nil
	})
	_, err = Execute(context.Background(), cfg, &countingBuilder{}, nil, short)
	assert.True(t, errors.Is(err, domain.ErrData))
}

func TestPipeline_Config(t *testing.T) {
	cfg := mustConfig(t, zneOptions())
	p, err := New(cfg, Deps{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, cfg.Shots(), p.Config().Shots())
}
