// internal/models/food.go
package models

import (
	"sort"
	"strings"
)

// FoodItem is one catalog row. Nutrition values are per serving.
type FoodItem struct {
	ID       string   `json:"food_id"`
	Name     string   `json:"food_name"`
	Calories float64  `json:"calories"`
	ProteinG float64  `json:"protein"`
	CarbG    float64  `json:"carbs"`
	FatG     float64  `json:"fat"`
	FiberG   float64  `json:"fiber"`
	Tags     []string `json:"suitable_for"`
}

// HasTag reports whether the item carries any of the given suitability tags.
func (f FoodItem) HasTag(tags ...string) bool {
	for _, have := range f.Tags {
		for _, want := range tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// ParseTags normalizes a free-form "suitable_for" value ("Diabetic; all")
// into a sorted, de-duplicated, lower-case tag set. An empty value means "all".
func ParseTags(raw string) []string {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == ' ' || r == '\t'
	})
	seen := make(map[string]bool, len(fields))
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		tags = append(tags, f)
	}
	if len(tags) == 0 {
		return []string{"all"}
	}
	sort.Strings(tags)
	return tags
}
