// Package workers runs independent indexed jobs on a fixed pool of goroutines
// and returns their results in input order.
package workers

import (
	"sync"
)

// DefaultWorkers is used when a pool is created with a non-positive size.
const DefaultWorkers = 10

// Pool manages a pool of worker goroutines for per-record reduction
type Pool struct {
	numWorkers int
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	return &Pool{
		numWorkers: numWorkers,
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.numWorkers
}

// Job is the unit of work: it receives the item and its position.
type Job[T, R any] func(index int, item T) (R, error)

// Map runs job over items in parallel.
//
// Results are written back by index, so the returned slice has the same order
// as items regardless of scheduling. Every job runs even if another fails; the
// error of the lowest failing index is returned together with the results.
func Map[T, R any](p *Pool, items []T, job Job[T, R]) ([]R, error) {
	numItems := len(items)
	if numItems == 0 {
		return []R{}, nil
	}

	// Create channels for work distribution and result collection
	jobs := make(chan jobItem[T], numItems)
	results := make(chan resultItem[R], numItems)

	var wg sync.WaitGroup
	numActualWorkers := p.numWorkers
	if numItems < numActualWorkers {
		numActualWorkers = numItems // Don't spawn more workers than items
	}

	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(jobs, results, job)
		}()
	}

	for idx, item := range items {
		jobs <- jobItem[T]{index: idx, item: item}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]R, numItems)
	errs := make([]error, numItems)
	for result := range results {
		out[result.index] = result.value
		errs[result.index] = result.err
	}

	for _, err := range errs {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// jobItem represents a single job
type jobItem[T any] struct {
	index int
	item  T
}

// resultItem represents the result of a job
type resultItem[R any] struct {
	index int
	value R
	err   error
}

func worker[T, R any](jobs <-chan jobItem[T], results chan<- resultItem[R], job Job[T, R]) {
	for j := range jobs {
		value, err := job(j.index, j.item)
		results <- resultItem[R]{index: j.index, value: value, err: err}
	}
}
