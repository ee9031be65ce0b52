// internal/models/plan.go
package models

import (
	"math"
	"time"
)

// NutrientTarget holds daily targets. ProteinG*4 + CarbG*4 + FatG*9 equals
// Calories up to float rounding.
type NutrientTarget struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbG    float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

type MacroTargets struct {
	ProteinG float64 `json:"protein_g"`
	CarbG    float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

func (t NutrientTarget) Macros() MacroTargets {
	return MacroTargets{ProteinG: t.ProteinG, CarbG: t.CarbG, FatG: t.FatG}
}

type PlanEntry struct {
	FoodID   string  `json:"food_id"`
	FoodName string  `json:"food_name"`
	Servings float64 `json:"servings"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein"`
	CarbG    float64 `json:"carbs"`
	FatG     float64 `json:"fat"`
	FiberG   float64 `json:"fiber"`
}

// NewPlanEntry scales the per-serving nutrition of f by servings.
func NewPlanEntry(f FoodItem, servings float64) PlanEntry {
	return PlanEntry{
		FoodID:   f.ID,
		FoodName: f.Name,
		Servings: servings,
		Calories: f.Calories * servings,
		ProteinG: f.ProteinG * servings,
		CarbG:    f.CarbG * servings,
		FatG:     f.FatG * servings,
		FiberG:   f.FiberG * servings,
	}
}

type Strategy string

const (
	StrategyGreedy    Strategy = "greedy"
	StrategyOptimized Strategy = "opt"
)

type TargetSource string

const (
	TargetFromFormula   TargetSource = "formula"
	TargetFromPredictor TargetSource = "predictor"
)

type PlanMetadata struct {
	TargetCalories    int            `json:"user_calorie_target"`
	ClinicalStatus    ClinicalStatus `json:"clinical_status"`
	MacroTargets      MacroTargets   `json:"macro_targets"`
	StrategyUsed      Strategy       `json:"strategy_used"`
	TargetSource      TargetSource   `json:"target_source"`
	FallbackReason    string         `json:"fallback_reason,omitempty"`
	Partial           bool           `json:"partial"`
	Warning           string         `json:"warning,omitempty"`
	ActivityDefaulted bool           `json:"activity_defaulted,omitempty"`
	BMI               float64        `json:"bmi,omitempty"`
	BMICategory       string         `json:"bmi_category,omitempty"`
}

type MealPlan struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id,omitempty"`
	Entries       []PlanEntry  `json:"plan"`
	TotalCalories float64      `json:"total_calories"`
	Meta          PlanMetadata `json:"meta"`
	CreatedAt     time.Time    `json:"created_at"`
}

// SumCalories totals entry calories.
func SumCalories(entries []PlanEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Calories
	}
	return total
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
