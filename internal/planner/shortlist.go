package planner

import (
	"math"
	"sort"

	"mcp-meal-plan/internal/models"
)

// DefaultMaxCandidates bounds how many foods reach the LP. The dense simplex
// slows steeply with the column count: a few hundred foods take seconds.
const DefaultMaxCandidates = 40

// macroShares splits the energy from protein, carbs and fat into fractions.
// All zero when the food has no macro energy.
func macroShares(protein, carb, fat float64) (p, c, f float64) {
	energy := protein*4 + carb*4 + fat*9
	if energy <= 0 {
		return 0, 0, 0
	}
	return protein * 4 / energy, carb * 4 / energy, fat * 9 / energy
}

// shortlist keeps at most limit foods for the optimizer, picking round-robin
// from five rankings: closeness to the target macro split, protein share,
// carb share, fat share and calories per serving. The result keeps catalog
// order. foods is returned unchanged when it already fits.
func shortlist(foods []models.FoodItem, macros models.MacroTargets, limit int) []models.FoodItem {
	if limit <= 0 || len(foods) <= limit {
		return foods
	}

	tp, tc, tf := macroShares(macros.ProteinG, macros.CarbG, macros.FatG)
	if tp+tc+tf == 0 {
		tp, tc, tf = 0.2, 0.5, 0.3
	}

	n := len(foods)
	ps := make([]float64, n)
	cs := make([]float64, n)
	fs := make([]float64, n)
	fit := make([]float64, n)
	for i, food := range foods {
		ps[i], cs[i], fs[i] = macroShares(food.ProteinG, food.CarbG, food.FatG)
		if ps[i]+cs[i]+fs[i] == 0 {
			fit[i] = math.Inf(1)
			continue
		}
		fit[i] = math.Abs(ps[i]-tp) + math.Abs(cs[i]-tc) + math.Abs(fs[i]-tf)
	}

	ranked := func(less func(a, b int) bool) []int {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })
		return idx
	}
	rankings := [][]int{
		ranked(func(a, b int) bool { return fit[a] < fit[b] }),
		ranked(func(a, b int) bool { return ps[a] > ps[b] }),
		ranked(func(a, b int) bool { return cs[a] > cs[b] }),
		ranked(func(a, b int) bool { return fs[a] > fs[b] }),
		ranked(func(a, b int) bool { return foods[a].Calories > foods[b].Calories }),
	}

	picked := make([]bool, n)
	chosen := make([]int, 0, limit)
	for depth := 0; len(chosen) < limit && depth < n; depth++ {
		for _, r := range rankings {
			if len(chosen) == limit {
				break
			}
			if i := r[depth]; !picked[i] {
				picked[i] = true
				chosen = append(chosen, i)
			}
		}
	}
	sort.Ints(chosen)

	out := make([]models.FoodItem, len(chosen))
	for k, i := range chosen {
		out[k] = foods[i]
	}
	return out
}
