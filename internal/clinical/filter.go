// Package clinical narrows a food catalog according to a user's resolved
// clinical status.
package clinical

import (
	"errors"
	"fmt"

	"mcp-meal-plan/internal/models"
)

// ErrNoPolicy is returned for a status that has no configured policy.
var ErrNoPolicy = errors.New("no clinical policy configured for status")

// Filter maps each non-normal status to a Policy. Normal is always the
// identity. A nil Prediabetes policy is an error at Apply time, never an
// implicit default.
type Filter struct {
	Diabetes    Policy
	Prediabetes Policy
}

func NewFilter(diabetes, prediabetes Policy) *Filter {
	return &Filter{Diabetes: diabetes, Prediabetes: prediabetes}
}

// PolicyFor returns the policy applied for status.
func (f *Filter) PolicyFor(status models.ClinicalStatus) (Policy, error) {
	switch status {
	case models.StatusNormal, "":
		return Passthrough, nil
	case models.StatusDiabetes:
		if f.Diabetes == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoPolicy, status)
		}
		return f.Diabetes, nil
	case models.StatusPrediabetes:
		if f.Prediabetes == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoPolicy, status)
		}
		return f.Prediabetes, nil
	}
	return nil, fmt.Errorf("unknown clinical status %q", status)
}

// Apply returns the foods eligible under status as a new slice; foods is not
// modified. It fails with models.ErrEmptyCatalog when nothing is left.
func (f *Filter) Apply(foods []models.FoodItem, status models.ClinicalStatus) ([]models.FoodItem, error) {
	policy, err := f.PolicyFor(status)
	if err != nil {
		return nil, err
	}
	out := make([]models.FoodItem, 0, len(foods))
	for _, food := range foods {
		if policy.Allows(food) {
			out = append(out, food)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w (status %s, policy %s, %d candidates)", models.ErrEmptyCatalog, statusLabel(status), policy.Name(), len(foods))
	}
	return out, nil
}

func statusLabel(s models.ClinicalStatus) string {
	if s == "" {
		return string(models.StatusNormal)
	}
	return string(s)
}
