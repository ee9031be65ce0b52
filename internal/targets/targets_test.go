package targets

import (
	"errors"
	"math"
	"testing"

	"mcp-meal-plan/internal/models"
)

func baseProfile() models.UserProfile {
	return models.UserProfile{
		Age:           30,
		WeightKg:      70,
		HeightCm:      175,
		Gender:        models.Male,
		ActivityLevel: models.Moderate,
		Goal:          models.Maintain,
	}
}

func TestComputeMaintainMale(t *testing.T) {
	res, err := Compute(baseProfile())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if math.Abs(res.BMR-1648.75) > 1e-9 {
		t.Fatalf("expected BMR 1648.75, got %v", res.BMR)
	}
	if math.Abs(res.TDEE-2555.5625) > 1e-9 {
		t.Fatalf("expected TDEE 2555.5625, got %v", res.TDEE)
	}
	if got := math.Round(res.Target.Calories); got != 2556 {
		t.Fatalf("expected ~2556 kcal, got %v", res.Target.Calories)
	}
	if res.ActivityDefaulted {
		t.Fatalf("moderate should be a known activity level")
	}
}

func TestComputeWeightLoss(t *testing.T) {
	p := baseProfile()
	p.Goal = models.WeightLoss
	res, err := Compute(p)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := math.Round(res.Target.Calories); got != 2056 {
		t.Fatalf("expected ~2056 kcal, got %v", res.Target.Calories)
	}
}

func TestGoalAdjustmentIsExactly500(t *testing.T) {
	profiles := []models.UserProfile{
		baseProfile(),
		{Age: 55, WeightKg: 82.5, HeightCm: 160, Gender: models.Female, ActivityLevel: models.Sedentary},
		{Age: 19, WeightKg: 60, HeightCm: 190, Gender: models.Male, ActivityLevel: models.VeryActive},
		{Age: 40, WeightKg: 95, HeightCm: 170, Gender: models.Female, ActivityLevel: models.Light},
	}
	for _, p := range profiles {
		p.Goal = models.Maintain
		m, err := Compute(p)
		if err != nil {
			t.Fatalf("maintain: %v", err)
		}
		p.Goal = models.WeightLoss
		l, err := Compute(p)
		if err != nil {
			t.Fatalf("loss: %v", err)
		}
		p.Goal = models.WeightGain
		g, err := Compute(p)
		if err != nil {
			t.Fatalf("gain: %v", err)
		}
		if d := m.Target.Calories - l.Target.Calories; math.Abs(d-500) > 1e-9 {
			t.Fatalf("loss delta = %v, want 500", d)
		}
		if d := g.Target.Calories - m.Target.Calories; math.Abs(d-500) > 1e-9 {
			t.Fatalf("gain delta = %v, want 500", d)
		}
	}
}

func TestMacrosMatchCalories(t *testing.T) {
	for _, kcal := range []float64{0, 1200, 1648.75, 2555.5625, 3999.9} {
		m := MacrosFromCalories(kcal)
		sum := m.ProteinG*4 + m.CarbG*4 + m.FatG*9
		if math.Abs(sum-kcal) > 1e-6 {
			t.Fatalf("macros for %v sum to %v", kcal, sum)
		}
	}
}

func TestFemaleOffset(t *testing.T) {
	male := BMR(70, 175, 30, models.Male)
	female := BMR(70, 175, 30, models.Female)
	if male-female != 166 {
		t.Fatalf("expected 166 kcal gap between male and female BMR, got %v", male-female)
	}
}

func TestUnknownActivityUsesSedentary(t *testing.T) {
	p := baseProfile()
	p.ActivityLevel = "couch"
	res, err := Compute(p)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !res.ActivityDefaulted {
		t.Fatalf("expected ActivityDefaulted")
	}
	if math.Abs(res.TDEE-1648.75*1.2) > 1e-9 {
		t.Fatalf("expected sedentary multiplier, got TDEE %v", res.TDEE)
	}
}

func TestInvalidProfile(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*models.UserProfile)
		field string
	}{
		{"zero age", func(p *models.UserProfile) { p.Age = 0 }, "age"},
		{"negative weight", func(p *models.UserProfile) { p.WeightKg = -1 }, "weight_kg"},
		{"nan height", func(p *models.UserProfile) { p.HeightCm = math.NaN() }, "height_cm"},
		{"bad gender", func(p *models.UserProfile) { p.Gender = "x" }, "gender"},
		{"bad goal", func(p *models.UserProfile) { p.Goal = "bulk" }, "goal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := baseProfile()
			tc.edit(&p)
			_, err := Compute(p)
			var ipe *InvalidProfileError
			if !errors.As(err, &ipe) {
				t.Fatalf("expected InvalidProfileError, got %v", err)
			}
			if ipe.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, ipe.Field)
			}
		})
	}
}

func TestBMI(t *testing.T) {
	bmi, err := BMI(70, 175)
	if err != nil {
		t.Fatalf("BMI: %v", err)
	}
	if bmi != 22.86 {
		t.Fatalf("expected 22.86, got %v", bmi)
	}
	if got := BMICategory(bmi); got != "Normal weight" {
		t.Fatalf("unexpected category %q", got)
	}
	if _, err := BMI(0, 175); err == nil {
		t.Fatalf("expected error for zero weight")
	}
}
