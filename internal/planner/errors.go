package planner

import (
	"errors"
	"fmt"

	"mcp-meal-plan/internal/models"
)

var (
	// ErrEmptyCatalog aliases models.ErrEmptyCatalog so callers of this
	// package can match it without importing models.
	ErrEmptyCatalog = models.ErrEmptyCatalog

	ErrSolverUnavailable = errors.New("optimizer: no LP solver configured")
	ErrSolverTimeout     = errors.New("optimizer: solve did not finish before deadline")
	ErrSolverPanic       = errors.New("optimizer: solver panicked")

	// ErrTerminationCapReached is reported in plan metadata, never returned,
	// when the greedy fill stopped at its entry cap below the lower bound.
	ErrTerminationCapReached = errors.New("greedy: termination cap reached before calorie lower bound")
	// ErrLowerBoundUnreachable is reported in plan metadata when the next
	// serving would overshoot the upper bound or adds no calories.
	ErrLowerBoundUnreachable = errors.New("greedy: calorie lower bound unreachable without exceeding upper bound")
)

// Solver status strings carried by InfeasibleError.
const (
	StatusInfeasible = "Infeasible"
	StatusUnbounded  = "Unbounded"
	StatusNotSolved  = "Not Solved"
)

// InfeasibleError is returned when the LP did not reach an optimal solution.
type InfeasibleError struct {
	Status string
	Err    error
}

func (e *InfeasibleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("optimizer did not find optimal solution: %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("optimizer did not find optimal solution: %s", e.Status)
}

func (e *InfeasibleError) Unwrap() error { return e.Err }
