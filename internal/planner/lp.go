package planner

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"mcp-meal-plan/internal/models"
)

// Objective weights. Fat error costs most per gram because of its caloric
// density; the servings term keeps the plan from spreading over many
// near-zero items.
const (
	weightProtein  = 1.0
	weightCarb     = 0.5
	weightFat      = 2.0
	weightServings = 0.01
)

// Solver minimizes cᵀx subject to Ax = b, x ≥ 0.
type Solver interface {
	Solve(c []float64, A mat.Matrix, b []float64) ([]float64, error)
}

// SimplexSolver solves with gonum's simplex implementation.
type SimplexSolver struct {
	Tol float64
}

func (s SimplexSolver) Solve(c []float64, A mat.Matrix, b []float64) ([]float64, error) {
	_, x, err := lp.Simplex(c, A, b, s.Tol, nil)
	if err != nil {
		return nil, classifySimplexError(err)
	}
	return x, nil
}

func classifySimplexError(err error) error {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return &InfeasibleError{Status: StatusInfeasible, Err: err}
	case errors.Is(err, lp.ErrUnbounded):
		return &InfeasibleError{Status: StatusUnbounded, Err: err}
	default:
		return &InfeasibleError{Status: StatusNotSolved, Err: err}
	}
}

// mealLP is the serving-selection problem in standard form.
//
// Columns, for n foods:
//
//	[0, n)         servings x_i
//	n .. n+5       pos/neg deviation for protein, carb, fat
//	[n+6, 2n+6)    upper-bound slack u_i, x_i + u_i = maxServings
//	2n+6           calorie surplus over the lower bound
//	2n+7           calorie room under the upper bound
//	2n+8           unused servings under maxItems
//
// Rows: n upper bounds, calorie lower, calorie upper, protein, carb, fat,
// servings total. Every row owns a column no other row touches, so A has full
// row rank.
type mealLP struct {
	n int
	c []float64
	A *mat.Dense
	b []float64
}

type lpBounds struct {
	targetKcal  float64
	macros      models.MacroTargets
	tolerance   float64
	maxItems    float64
	maxServings float64
}

func buildMealLP(foods []models.FoodItem, bd lpBounds) (*mealLP, error) {
	n := len(foods)
	if n == 0 {
		return nil, ErrEmptyCatalog
	}
	if bd.maxItems <= 0 || bd.maxServings <= 0 {
		return nil, fmt.Errorf("optimizer: maxItems and maxServings must be positive (got %v, %v)", bd.maxItems, bd.maxServings)
	}

	devCol := n
	upperCol := n + 6
	lowSlack := 2*n + 6
	highSlack := 2*n + 7
	itemsSlack := 2*n + 8
	cols := 2*n + 9

	calLo, calHi := n, n+1
	protRow, carbRow, fatRow := n+2, n+3, n+4
	itemsRow := n + 5
	rows := n + 6

	c := make([]float64, cols)
	for i := 0; i < n; i++ {
		c[i] = weightServings
	}
	c[devCol], c[devCol+1] = weightProtein, weightProtein
	c[devCol+2], c[devCol+3] = weightCarb, weightCarb
	c[devCol+4], c[devCol+5] = weightFat, weightFat

	A := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)

	for i, f := range foods {
		A.Set(i, i, 1)
		A.Set(i, upperCol+i, 1)
		b[i] = bd.maxServings

		A.Set(calLo, i, f.Calories)
		A.Set(calHi, i, f.Calories)
		A.Set(protRow, i, f.ProteinG)
		A.Set(carbRow, i, f.CarbG)
		A.Set(fatRow, i, f.FatG)
		A.Set(itemsRow, i, 1)
	}

	A.Set(calLo, lowSlack, -1)
	b[calLo] = bd.targetKcal * (1 - bd.tolerance)
	A.Set(calHi, highSlack, 1)
	b[calHi] = bd.targetKcal * (1 + bd.tolerance)

	// sum - target = pos - neg  =>  sum - pos + neg = target
	for k, row := range []int{protRow, carbRow, fatRow} {
		A.Set(row, devCol+2*k, -1)
		A.Set(row, devCol+2*k+1, 1)
	}
	b[protRow] = bd.macros.ProteinG
	b[carbRow] = bd.macros.CarbG
	b[fatRow] = bd.macros.FatG

	A.Set(itemsRow, itemsSlack, 1)
	b[itemsRow] = bd.maxItems

	return &mealLP{n: n, c: c, A: A, b: b}, nil
}

// servings returns the first n entries of a solution vector.
func (m *mealLP) servings(x []float64) []float64 {
	return x[:m.n]
}
