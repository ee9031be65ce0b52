package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mcp-meal-plan/internal/models"
)

// column aliases accepted in a foods CSV header
var csvColumns = map[string][]string{
	"id":       {"food_id", "id"},
	"name":     {"food_name", "name"},
	"calories": {"calories", "kcal"},
	"protein":  {"protein", "protein_g"},
	"carbs":    {"g_carbs", "carbs", "carb_g", "carbs_g"},
	"fat":      {"fat", "fat_g"},
	"fiber":    {"fiber", "fiber_g"},
	"tags":     {"suitable_for", "tags"},
}

// ReadCSV parses a foods table with a header row. Missing numeric columns
// and unparsable cells read as 0, a missing suitability column reads as
// "all". Only the name column is required.
func ReadCSV(r io.Reader) ([]models.FoodItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	idx := make(map[string]int, len(csvColumns))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for key, aliases := range csvColumns {
			if _, seen := idx[key]; seen {
				continue
			}
			for _, a := range aliases {
				if h == a {
					idx[key] = i
				}
			}
		}
	}
	if _, ok := idx["name"]; !ok {
		return nil, fmt.Errorf("csv header has no food_name column")
	}

	var foods []models.FoodItem
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		cell := func(key string) string {
			i, ok := idx[key]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		foods = append(foods, models.FoodItem{
			ID:       cell("id"),
			Name:     cell("name"),
			Calories: number(cell("calories")),
			ProteinG: number(cell("protein")),
			CarbG:    number(cell("carbs")),
			FatG:     number(cell("fat")),
			FiberG:   number(cell("fiber")),
			Tags:     models.ParseTags(cell("tags")),
		})
	}
	return foods, nil
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
