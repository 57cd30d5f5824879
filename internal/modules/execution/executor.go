// Package execution defines the contract of the circuit-execution collaborator.
// Submitting to real hardware is outside this repository; Replay serves result
// batches that were recorded elsewhere so they can be reduced offline.
package execution

import (
	"context"
	"sync"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
	"github.com/aristath/plaquette/internal/modules/circuit"
)

// Executor runs a batch of programs and returns one count distribution per
// program, in submission order.
type Executor interface {
	Execute(ctx context.Context, programs []circuit.Circuit, shots int) ([]bitstring.Counts, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, programs []circuit.Circuit, shots int) ([]bitstring.Counts, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, programs []circuit.Circuit, shots int) ([]bitstring.Counts, error) {
	return f(ctx, programs, shots)
}

// CheckBatch verifies that a collaborator answered every submitted program.
func CheckBatch(submitted int, results []bitstring.Counts) error {
	if len(results) != submitted {
		return domain.Dataf("executor returned %d results for %d programs", len(results), submitted)
	}
	for i, r := range results {
		if r == nil {
			return domain.Dataf("executor returned no counts for program %d", i)
		}
	}
	return nil
}

// Replay is an Executor that answers each Execute call with the next recorded batch.
type Replay struct {
	mu      sync.Mutex
	batches [][]bitstring.Counts
}

// NewReplay queues recorded batches in the order they will be served.
func NewReplay(batches ...[]bitstring.Counts) *Replay {
	return &Replay{batches: batches}
}

// Push queues another batch.
func (r *Replay) Push(batch []bitstring.Counts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
}

// Pending returns the number of batches not yet served.
func (r *Replay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// Execute serves the next batch after checking it covers every program.
func (r *Replay) Execute(ctx context.Context, programs []circuit.Circuit, shots int) ([]bitstring.Counts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if len(r.batches) == 0 {
		r.mu.Unlock()
		return nil, domain.Dataf("no recorded batch left for %d programs", len(programs))
	}
	batch := r.batches[0]
	r.batches = r.batches[1:]
	r.mu.Unlock()

	if err := CheckBatch(len(programs), batch); err != nil {
		return nil, err
	}
	for i, counts := range batch {
		if counts.Total() > shots {
			return nil, domain.Dataf("program %d recorded %d shots, budget is %d", i, counts.Total(), shots)
		}
	}
	return batch, nil
}
