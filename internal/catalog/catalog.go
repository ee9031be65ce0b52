// Package catalog holds the immutable food table the planner reads from.
package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"mcp-meal-plan/internal/models"
)

// Catalog is a read-only snapshot. Callers must not modify the slice returned
// by Foods.
type Catalog struct {
	foods    []models.FoodItem
	byID     map[string]int
	loadedAt time.Time
}

// New normalizes foods into a snapshot. Non-finite or negative nutrition
// values become 0, names are trimmed and empty tag sets become {"all"}.
// Rows without a name are dropped; an empty ID is replaced by the row number.
func New(foods []models.FoodItem) *Catalog {
	c := &Catalog{
		foods:    make([]models.FoodItem, 0, len(foods)),
		byID:     make(map[string]int, len(foods)),
		loadedAt: time.Now().UTC(),
	}
	for i, f := range foods {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			continue
		}
		f.ID = strings.TrimSpace(f.ID)
		if f.ID == "" {
			f.ID = fmt.Sprintf("%d", i+1)
		}
		if _, dup := c.byID[f.ID]; dup {
			continue
		}
		f.Calories = clean(f.Calories)
		f.ProteinG = clean(f.ProteinG)
		f.CarbG = clean(f.CarbG)
		f.FatG = clean(f.FatG)
		f.FiberG = clean(f.FiberG)
		f.Tags = models.ParseTags(strings.Join(f.Tags, ","))
		c.byID[f.ID] = len(c.foods)
		c.foods = append(c.foods, f)
	}
	return c
}

func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func (c *Catalog) Foods() []models.FoodItem { return c.foods }

func (c *Catalog) Len() int { return len(c.foods) }

func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

func (c *Catalog) Get(id string) (models.FoodItem, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.FoodItem{}, false
	}
	return c.foods[i], true
}

// Source produces the full food list for a reload.
type Source interface {
	ListFoods(ctx context.Context) ([]models.FoodItem, error)
}

// Store publishes the current snapshot. Reload builds a complete new Catalog
// before swapping it in, so readers see either the old or the new table.
type Store struct {
	src     Source
	current atomic.Pointer[Catalog]
}

func NewStore(src Source) *Store {
	s := &Store{src: src}
	s.current.Store(New(nil))
	return s
}

func (s *Store) Current() *Catalog { return s.current.Load() }

// Reload replaces the snapshot with the source's contents. On error the
// previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (*Catalog, error) {
	foods, err := s.src.ListFoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	next := New(foods)
	s.current.Store(next)
	return next, nil
}
