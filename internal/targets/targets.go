// Package targets derives daily calorie and macro-nutrient targets from a
// user's biometric profile.
package targets

import (
	"fmt"
	"math"
	"strings"

	"mcp-meal-plan/internal/models"
)

const (
	proteinShare = 0.20
	carbShare    = 0.50
	fatShare     = 0.30

	kcalPerGramProtein = 4.0
	kcalPerGramCarb    = 4.0
	kcalPerGramFat     = 9.0

	goalAdjustmentKcal = 500.0
)

// activityMultipliers maps each activity level to its TDEE multiplier.
var activityMultipliers = map[models.ActivityLevel]float64{
	models.Sedentary:  1.2,
	models.Light:      1.375,
	models.Moderate:   1.55,
	models.Active:     1.725,
	models.VeryActive: 1.9,
}

// InvalidProfileError names the offending profile field.
type InvalidProfileError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid profile: %s=%v: %s", e.Field, e.Value, e.Reason)
}

type Result struct {
	Target models.NutrientTarget
	BMR    float64
	TDEE   float64
	// ActivityDefaulted is set when the activity level was not recognized and
	// the sedentary multiplier was used instead.
	ActivityDefaulted bool
}

// Compute returns the calorie and macro targets for p.
//
// BMR uses Mifflin-St Jeor, TDEE scales it by the activity multiplier and the
// goal shifts it by ±500 kcal. An unrecognized activity level falls back to
// the sedentary multiplier (1.2) and sets Result.ActivityDefaulted; an
// unrecognized gender or goal, or a non-positive age, weight or height, fails
// with *InvalidProfileError.
func Compute(p models.UserProfile) (Result, error) {
	if err := validateNumbers(p); err != nil {
		return Result{}, err
	}
	gender, err := ParseGender(string(p.Gender))
	if err != nil {
		return Result{}, err
	}
	goal, err := ParseGoal(string(p.Goal))
	if err != nil {
		return Result{}, err
	}
	level, known := ParseActivityLevel(string(p.ActivityLevel))

	bmr := BMR(p.WeightKg, p.HeightCm, p.Age, gender)
	tdee := bmr * activityMultipliers[level]

	cal := tdee
	switch goal {
	case models.WeightLoss:
		cal -= goalAdjustmentKcal
	case models.WeightGain:
		cal += goalAdjustmentKcal
	}
	if cal < 0 {
		return Result{}, &InvalidProfileError{Field: "goal", Value: goal, Reason: "calorie target would be negative"}
	}

	return Result{
		Target:            MacrosFromCalories(cal),
		BMR:               bmr,
		TDEE:              tdee,
		ActivityDefaulted: !known,
	}, nil
}

// BMR is the Mifflin-St Jeor basal metabolic rate.
func BMR(weightKg, heightCm, age float64, gender models.Gender) float64 {
	base := 10*weightKg + 6.25*heightCm - 5*age
	if gender == models.Male {
		return base + 5
	}
	return base - 161
}

// MacrosFromCalories splits kcal 20/50/30 into protein, carb and fat grams.
func MacrosFromCalories(kcal float64) models.NutrientTarget {
	return models.NutrientTarget{
		Calories: kcal,
		ProteinG: kcal * proteinShare / kcalPerGramProtein,
		CarbG:    kcal * carbShare / kcalPerGramCarb,
		FatG:     kcal * fatShare / kcalPerGramFat,
	}
}

func validateNumbers(p models.UserProfile) error {
	checks := []struct {
		field string
		value float64
	}{
		{"age", p.Age},
		{"weight_kg", p.WeightKg},
		{"height_cm", p.HeightCm},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value <= 0 {
			return &InvalidProfileError{Field: c.field, Value: c.value, Reason: "must be positive"}
		}
	}
	return nil
}

func ParseGender(s string) (models.Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return models.Male, nil
	case "female", "f":
		return models.Female, nil
	}
	return "", &InvalidProfileError{Field: "gender", Value: s, Reason: "expected male or female"}
}

func ParseGoal(s string) (models.Goal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weight_loss", "lose":
		return models.WeightLoss, nil
	case "maintain", "maintenance":
		return models.Maintain, nil
	case "weight_gain", "gain":
		return models.WeightGain, nil
	}
	return "", &InvalidProfileError{Field: "goal", Value: s, Reason: "expected weight_loss, maintain or weight_gain"}
}

// ParseActivityLevel normalizes s. The second return is false when s was not
// recognized, in which case Sedentary is returned.
func ParseActivityLevel(s string) (models.ActivityLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sedentary":
		return models.Sedentary, true
	case "light", "lightly_active":
		return models.Light, true
	case "moderate", "moderately_active":
		return models.Moderate, true
	case "active":
		return models.Active, true
	case "very_active":
		return models.VeryActive, true
	}
	return models.Sedentary, false
}
