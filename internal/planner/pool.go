package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

const DefaultSolverWorkers = 2

// SolverPool bounds the number of LP solves running at once. A solve cannot
// be interrupted: when ctx ends first, Run returns ErrSolverTimeout and the
// abandoned solve keeps its slot until it finishes.
type SolverPool struct {
	sem *semaphore.Weighted
}

func NewSolverPool(workers int) *SolverPool {
	if workers <= 0 {
		workers = DefaultSolverWorkers
	}
	return &SolverPool{sem: semaphore.NewWeighted(int64(workers))}
}

type solveResult struct {
	x   []float64
	err error
}

// Run executes solve on a pool slot and waits for its result or ctx expiry.
func (p *SolverPool) Run(ctx context.Context, solve func() ([]float64, error)) ([]float64, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for solver slot: %v", ErrSolverTimeout, err)
	}

	done := make(chan solveResult, 1)
	go func() {
		defer p.sem.Release(1)
		done <- runGuarded(solve)
	}()

	select {
	case r := <-done:
		return r.x, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrSolverTimeout, ctx.Err())
	}
}

func runGuarded(solve func() ([]float64, error)) (r solveResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r = solveResult{err: fmt.Errorf("%w: %v", ErrSolverPanic, rec)}
		}
	}()
	x, err := solve()
	return solveResult{x: x, err: err}
}
