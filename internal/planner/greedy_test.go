package planner

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"mcp-meal-plan/internal/models"
)

func kcalFoods(kcals ...float64) []models.FoodItem {
	out := make([]models.FoodItem, len(kcals))
	for i, k := range kcals {
		out[i] = models.FoodItem{ID: fmt.Sprintf("f%d", i), Name: fmt.Sprintf("food %d", i), Calories: k, ProteinG: k / 20, CarbG: k / 10, FatG: k / 45, FiberG: 1}
	}
	return out
}

func TestGreedyFirstPass(t *testing.T) {
	res, err := Greedy(kcalFoods(100, 600, 300, 500, 200, 400), 2000, 0.05, 50, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if res.TotalCalories != 2000 {
		t.Fatalf("expected 2000 kcal, got %v", res.TotalCalories)
	}
	if res.Partial {
		t.Fatalf("did not expect a partial result")
	}
	want := []float64{600, 500, 400, 300, 200}
	if len(res.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(res.Entries))
	}
	for i, e := range res.Entries {
		if e.Calories != want[i] || e.Servings != 1 {
			t.Fatalf("entry %d: got %+v", i, e)
		}
	}
}

func TestGreedyFillsWithSmallest(t *testing.T) {
	res, err := Greedy(kcalFoods(300, 40), 1000, 0.05, 50, nil)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if res.TotalCalories != 980 {
		t.Fatalf("expected 980 kcal, got %v", res.TotalCalories)
	}
	if len(res.Entries) != 18 {
		t.Fatalf("expected 18 entries, got %d", len(res.Entries))
	}
	for _, e := range res.Entries[2:] {
		if e.Calories != 40 {
			t.Fatalf("fill should only use the smallest food, got %+v", e)
		}
	}
}

func TestGreedyTerminationCap(t *testing.T) {
	res, err := Greedy(kcalFoods(10), 2000, 0.05, 50, nil)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if !res.Partial || !errors.Is(res.Reason, ErrTerminationCapReached) {
		t.Fatalf("expected termination cap, got partial=%v reason=%v", res.Partial, res.Reason)
	}
	if len(res.Entries) != 50 || res.TotalCalories != 500 {
		t.Fatalf("expected 50 entries / 500 kcal, got %d / %v", len(res.Entries), res.TotalCalories)
	}
}

func TestGreedyZeroCalorieFoodTerminates(t *testing.T) {
	res, err := Greedy(kcalFoods(0), 2000, 0.05, 50, nil)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if !res.Partial {
		t.Fatalf("expected partial result")
	}
}

func TestGreedyNeverCrossesUpperBound(t *testing.T) {
	res, err := Greedy(kcalFoods(800), 1000, 0.05, 50, nil)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if res.TotalCalories != 800 {
		t.Fatalf("expected 800 kcal, got %v", res.TotalCalories)
	}
	if !res.Partial || !errors.Is(res.Reason, ErrLowerBoundUnreachable) {
		t.Fatalf("expected unreachable lower bound, got partial=%v reason=%v", res.Partial, res.Reason)
	}
}

func TestGreedyEmpty(t *testing.T) {
	if _, err := Greedy(nil, 2000, 0.05, 50, nil); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestGreedySeedIsReproducible(t *testing.T) {
	foods := kcalFoods(250, 250, 250, 250, 250, 250, 250, 250)
	a, _ := Greedy(foods, 1000, 0.05, 50, rand.New(rand.NewSource(7)))
	b, _ := Greedy(foods, 1000, 0.05, 50, rand.New(rand.NewSource(7)))
	if len(a.Entries) != len(b.Entries) {
		t.Fatalf("entry counts differ: %d vs %d", len(a.Entries), len(b.Entries))
	}
	for i := range a.Entries {
		if a.Entries[i].FoodID != b.Entries[i].FoodID {
			t.Fatalf("entry %d differs: %s vs %s", i, a.Entries[i].FoodID, b.Entries[i].FoodID)
		}
	}
	if foods[0].ID != "f0" || foods[7].ID != "f7" {
		t.Fatalf("input order was modified")
	}
}

func TestGreedyBandOrPartial(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for iter := 0; iter < 300; iter++ {
		n := 1 + rng.Intn(25)
		kcals := make([]float64, n)
		for i := range kcals {
			kcals[i] = float64(rng.Intn(900))
		}
		target := 1200 + float64(rng.Intn(2500))
		res, err := Greedy(kcalFoods(kcals...), target, 0.05, 50, rng)
		if err != nil {
			t.Fatalf("Greedy: %v", err)
		}
		if res.TotalCalories > target*1.05+1e-9 {
			t.Fatalf("iter %d: total %v above upper bound %v", iter, res.TotalCalories, target*1.05)
		}
		if !res.Partial && res.TotalCalories < target*0.95-1e-9 {
			t.Fatalf("iter %d: total %v below lower bound without partial flag", iter, res.TotalCalories)
		}
		if len(res.Entries) > 50 {
			t.Fatalf("iter %d: %d entries exceeds cap", iter, len(res.Entries))
		}
		if got := models.SumCalories(res.Entries); got != res.TotalCalories {
			t.Fatalf("iter %d: total %v does not match entries %v", iter, res.TotalCalories, got)
		}
	}
}
