package planner

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSolverPoolReturnsResult(t *testing.T) {
	pool := NewSolverPool(1)
	x, err := pool.Run(context.Background(), func() ([]float64, error) { return []float64{1, 2}, nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(x) != 2 || x[1] != 2 {
		t.Fatalf("unexpected result %v", x)
	}
}

func TestSolverPoolTimeout(t *testing.T) {
	pool := NewSolverPool(1)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := pool.Run(ctx, func() ([]float64, error) {
		<-release
		return nil, nil
	})
	if !errors.Is(err, ErrSolverTimeout) {
		t.Fatalf("expected ErrSolverTimeout, got %v", err)
	}

	// The abandoned solve still holds the only slot.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if _, err := pool.Run(ctx2, func() ([]float64, error) { return nil, nil }); !errors.Is(err, ErrSolverTimeout) {
		t.Fatalf("expected ErrSolverTimeout while slot is busy, got %v", err)
	}
}

func TestSolverPoolRecoversPanic(t *testing.T) {
	pool := NewSolverPool(1)
	_, err := pool.Run(context.Background(), func() ([]float64, error) { panic("boom") })
	if !errors.Is(err, ErrSolverPanic) {
		t.Fatalf("expected ErrSolverPanic, got %v", err)
	}
	// slot is released after a panic
	if _, err := pool.Run(context.Background(), func() ([]float64, error) { return nil, nil }); err != nil {
		t.Fatalf("Run after panic: %v", err)
	}
}
