package planner

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"mcp-meal-plan/internal/models"
	"mcp-meal-plan/internal/targets"
)

// randomCatalog builds n foods whose calories agree with their macros.
func randomCatalog(n int, seed int64) []models.FoodItem {
	rng := rand.New(rand.NewSource(seed))
	foods := make([]models.FoodItem, n)
	for i := range foods {
		p, c, f := rng.Float64()*40, rng.Float64()*80, rng.Float64()*30
		foods[i] = models.FoodItem{
			ID:       fmt.Sprintf("%03d", i),
			Name:     fmt.Sprintf("food %d", i),
			Calories: 4*p + 4*c + 9*f,
			ProteinG: p,
			CarbG:    c,
			FatG:     f,
			FiberG:   rng.Float64() * 10,
		}
	}
	return foods
}

func TestShortlistKeepsSmallCatalogs(t *testing.T) {
	foods := pantry()
	got := shortlist(foods, targets.MacrosFromCalories(2000).Macros(), DefaultMaxCandidates)
	if len(got) != len(foods) {
		t.Fatalf("expected all %d foods, got %d", len(foods), len(got))
	}
}

func TestShortlistCoversEachRanking(t *testing.T) {
	foods := randomCatalog(100, 5)
	foods[57] = models.FoodItem{ID: "057", Name: "egg white", Calories: 120, ProteinG: 30}
	foods[80] = models.FoodItem{ID: "080", Name: "trail mix", Calories: 5000, ProteinG: 100, CarbG: 500, FatG: 300}
	foods[12] = models.FoodItem{ID: "012", Name: "ghee", Calories: 900, FatG: 100}

	got := shortlist(foods, targets.MacrosFromCalories(2000).Macros(), 40)
	if len(got) != 40 {
		t.Fatalf("expected 40 candidates, got %d", len(got))
	}
	seen := map[string]bool{}
	for i, f := range got {
		if i > 0 && got[i-1].ID >= f.ID {
			t.Fatalf("catalog order lost at %d: %s after %s", i, f.ID, got[i-1].ID)
		}
		seen[f.ID] = true
	}
	for _, id := range []string{"057", "080", "012"} {
		if !seen[id] {
			t.Fatalf("expected food %s in shortlist", id)
		}
	}
}

func TestOptimizerLargeCatalog(t *testing.T) {
	const target = 2000.0
	foods := randomCatalog(600, 11)
	opt := NewOptimizer(SimplexSolver{}, NewSolverPool(1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := opt.Plan(ctx, foods, target, targets.MacrosFromCalories(target).Macros(), 10, 0.05)
	if err != nil {
		t.Fatalf("Plan over %d foods: %v", len(foods), err)
	}

	var drift float64
	for _, e := range res.Entries {
		drift += 0.005 * (e.Calories / e.Servings)
	}
	if res.TotalCalories < target*0.95-drift || res.TotalCalories > target*1.05+drift {
		t.Fatalf("total %v outside [%v, %v]", res.TotalCalories, target*0.95, target*1.05)
	}
	if len(res.Entries) > DefaultMaxCandidates {
		t.Fatalf("expected at most %d entries, got %d", DefaultMaxCandidates, len(res.Entries))
	}
}
