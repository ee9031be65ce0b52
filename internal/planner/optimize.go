package planner

import (
	"context"
	"fmt"

	"mcp-meal-plan/internal/models"
)

const (
	DefaultMaxItems    = 10
	DefaultMaxServings = 5.0

	// servings at or below this are solver noise
	servingEpsilon = 1e-6
)

type OptimizeResult struct {
	Entries       []models.PlanEntry
	TotalCalories float64
}

// Optimizer chooses continuous servings with a linear program that keeps
// calories inside the tolerance band and minimizes weighted macro deviation.
type Optimizer struct {
	Solver      Solver
	Pool        *SolverPool
	MaxItems    int
	MaxServings float64
	Tolerance   float64

	// MaxCandidates caps the foods considered per solve; 0 means no cap.
	MaxCandidates int
}

func NewOptimizer(solver Solver, pool *SolverPool) *Optimizer {
	return &Optimizer{
		Solver:        solver,
		Pool:          pool,
		MaxItems:      DefaultMaxItems,
		MaxServings:   DefaultMaxServings,
		Tolerance:     DefaultTolerance,
		MaxCandidates: DefaultMaxCandidates,
	}
}

// Plan solves for servings. maxItems and tolerance override the optimizer's
// defaults when positive. Errors are ErrSolverUnavailable, *InfeasibleError,
// ErrSolverTimeout or ErrSolverPanic.
func (o *Optimizer) Plan(ctx context.Context, foods []models.FoodItem, targetKcal float64, macros models.MacroTargets, maxItems int, tolerance float64) (OptimizeResult, error) {
	if o == nil || o.Solver == nil {
		return OptimizeResult{}, ErrSolverUnavailable
	}
	if maxItems <= 0 {
		maxItems = o.MaxItems
	}
	if tolerance <= 0 {
		tolerance = o.Tolerance
	}
	maxServings := o.MaxServings
	if maxServings <= 0 {
		maxServings = DefaultMaxServings
	}

	foods = shortlist(foods, macros, o.MaxCandidates)
	prob, err := buildMealLP(foods, lpBounds{
		targetKcal:  targetKcal,
		macros:      macros,
		tolerance:   tolerance,
		maxItems:    float64(maxItems),
		maxServings: maxServings,
	})
	if err != nil {
		return OptimizeResult{}, err
	}

	solve := func() ([]float64, error) { return o.Solver.Solve(prob.c, prob.A, prob.b) }
	var x []float64
	if o.Pool != nil {
		x, err = o.Pool.Run(ctx, solve)
	} else {
		r := runGuarded(solve)
		x, err = r.x, r.err
	}
	if err != nil {
		return OptimizeResult{}, err
	}
	if len(x) < prob.n {
		return OptimizeResult{}, &InfeasibleError{Status: StatusNotSolved, Err: fmt.Errorf("solution has %d values, want at least %d", len(x), prob.n)}
	}

	var res OptimizeResult
	for i, v := range prob.servings(x) {
		if v <= servingEpsilon {
			continue
		}
		s := models.Round2(v)
		if s <= 0 {
			continue
		}
		res.Entries = append(res.Entries, models.NewPlanEntry(foods[i], s))
	}
	res.TotalCalories = models.SumCalories(res.Entries)
	return res, nil
}
