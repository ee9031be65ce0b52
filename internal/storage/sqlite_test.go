package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mcp-meal-plan/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "meal-plan.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFoodsRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	foods := []models.FoodItem{
		{ID: "1", Name: "Oats", Calories: 150, ProteinG: 5, CarbG: 27, FatG: 2.5, FiberG: 4, Tags: []string{"all", "diabetic"}},
		{ID: "2", Name: "Apple", Calories: 95, CarbG: 25, FiberG: 4.4, Tags: []string{"all"}},
	}
	if err := s.UpsertFoods(ctx, foods); err != nil {
		t.Fatalf("UpsertFoods: %v", err)
	}
	foods[1].Calories = 100
	if err := s.UpsertFoods(ctx, foods[1:]); err != nil {
		t.Fatalf("UpsertFoods update: %v", err)
	}

	got, err := s.ListFoods(ctx)
	if err != nil {
		t.Fatalf("ListFoods: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 foods, got %d", len(got))
	}
	if got[0].ID != "1" || len(got[0].Tags) != 2 || !got[0].HasTag("diabetic") {
		t.Fatalf("unexpected first food %+v", got[0])
	}
	if got[1].Calories != 100 {
		t.Fatalf("expected updated calories, got %v", got[1].Calories)
	}

	if err := s.UpsertFoods(ctx, []models.FoodItem{{Name: "no id"}}); err == nil {
		t.Fatalf("expected error for food without id")
	}
}

func TestUsers(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	u := models.UserProfile{ID: "7", Name: "Sam", Age: 41, WeightKg: 80, HeightCm: 180,
		Gender: models.Male, ActivityLevel: models.Light, Goal: models.WeightLoss, Status: models.StatusDiabetes}
	if err := s.SaveUser(ctx, u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	got, err := s.GetUser(ctx, "7")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got != u {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, u)
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SaveUser(ctx, models.UserProfile{ID: "8", Age: 30, WeightKg: 60, HeightCm: 165, Gender: models.Female}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[1].Status != models.StatusNormal {
		t.Fatalf("unexpected users %+v", users)
	}
}

func TestPlansNewestFirst(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"p1", "p2", "p3"} {
		plan := &models.MealPlan{
			ID:            id,
			UserID:        "u1",
			TotalCalories: 2000 + float64(i),
			CreatedAt:     base.Add(time.Duration(i) * 1500 * time.Millisecond),
			Entries: []models.PlanEntry{
				{FoodID: "1", FoodName: "Oats", Servings: 2, Calories: 300},
				{FoodID: "2", FoodName: "Apple", Servings: 1.5, Calories: 142.5},
			},
			Meta: models.PlanMetadata{
				TargetCalories: 2100,
				ClinicalStatus: models.StatusNormal,
				StrategyUsed:   models.StrategyGreedy,
				TargetSource:   models.TargetFromFormula,
				Partial:        i == 2,
				Warning:        "w",
			},
		}
		if err := s.SavePlan(ctx, plan); err != nil {
			t.Fatalf("SavePlan: %v", err)
		}
	}
	if err := s.SavePlan(ctx, &models.MealPlan{ID: "other", UserID: "u2", CreatedAt: base}); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	plans, err := s.GetPlans(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("GetPlans: %v", err)
	}
	if len(plans) != 2 || plans[0].ID != "p3" || plans[1].ID != "p2" {
		t.Fatalf("unexpected order: %+v", plans)
	}
	if !plans[0].Meta.Partial || plans[1].Meta.Partial {
		t.Fatalf("partial flag not preserved")
	}
	if len(plans[0].Entries) != 2 || plans[0].Entries[1].Servings != 1.5 {
		t.Fatalf("entries not loaded: %+v", plans[0].Entries)
	}
	if !plans[0].CreatedAt.Equal(base.Add(3 * time.Second)) {
		t.Fatalf("unexpected created_at %v", plans[0].CreatedAt)
	}

	all, err := s.GetPlans(ctx, "", 10)
	if err != nil {
		t.Fatalf("GetPlans all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 plans, got %d", len(all))
	}
}
