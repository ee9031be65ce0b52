package planner

import (
	"math/rand"
	"sort"

	"mcp-meal-plan/internal/models"
)

const (
	DefaultTolerance  = 0.05
	DefaultGreedyCap  = 50
	defaultGreedySeed = 42
)

type GreedyResult struct {
	Entries       []models.PlanEntry
	TotalCalories float64
	// Partial is set when the fill stopped below the lower bound; Reason is
	// ErrTerminationCapReached or ErrLowerBoundUnreachable.
	Partial bool
	Reason  error
}

// Greedy fills a plan one serving at a time. Foods are shuffled with rng and
// then stably sorted by calories descending, so rng only decides the order of
// equal-calorie foods. A first pass adds each food once while the total stays
// within target*(1+tolerance) and stops once target*(1-tolerance) is reached.
// If the total is still short, single servings of the lowest-calorie food are
// appended until the lower bound is met, the upper bound would be crossed, or
// maxEntries entries exist.
//
// A nil rng uses a fixed seed. foods is not modified.
func Greedy(foods []models.FoodItem, targetKcal, tolerance float64, maxEntries int, rng *rand.Rand) (GreedyResult, error) {
	if len(foods) == 0 {
		return GreedyResult{}, ErrEmptyCatalog
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if maxEntries <= 0 {
		maxEntries = DefaultGreedyCap
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(defaultGreedySeed))
	}

	ordered := make([]models.FoodItem, len(foods))
	copy(ordered, foods)
	rng.Shuffle(len(ordered), func(i, j int) { ordered[i], ordered[j] = ordered[j], ordered[i] })
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Calories > ordered[j].Calories })

	lower := targetKcal * (1 - tolerance)
	upper := targetKcal * (1 + tolerance)

	var res GreedyResult
	add := func(f models.FoodItem) {
		res.Entries = append(res.Entries, models.NewPlanEntry(f, 1))
		res.TotalCalories += f.Calories
	}

	for _, f := range ordered {
		if res.TotalCalories >= lower || len(res.Entries) >= maxEntries {
			break
		}
		if res.TotalCalories+f.Calories <= upper {
			add(f)
		}
	}

	smallest := ordered[len(ordered)-1]
	for res.TotalCalories < lower {
		if len(res.Entries) >= maxEntries {
			res.Partial, res.Reason = true, ErrTerminationCapReached
			break
		}
		if smallest.Calories <= 0 || res.TotalCalories+smallest.Calories > upper {
			res.Partial, res.Reason = true, ErrLowerBoundUnreachable
			break
		}
		add(smallest)
	}
	return res, nil
}
