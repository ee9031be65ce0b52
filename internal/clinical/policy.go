package clinical

import (
	"fmt"
	"strings"

	"mcp-meal-plan/internal/models"
)

// Policy decides whether a single food is suitable. Policies are stateless so
// applying one twice narrows exactly as much as applying it once.
type Policy interface {
	Name() string
	Allows(food models.FoodItem) bool
}

const (
	PolicyName        = "name"
	PolicyTag         = "tag"
	PolicyPassthrough = "passthrough"
)

var DefaultBannedTerms = []string{"sweet", "sugar", "dessert", "candy", "soft drink", "juice", "white rice"}

const DefaultMinFiberG = 2.0

// NamePolicy rejects foods whose name contains a banned term and foods with
// less fiber than MinFiberG.
type NamePolicy struct {
	BannedTerms []string
	MinFiberG   float64
}

func NewNamePolicy(terms []string, minFiber float64) *NamePolicy {
	if len(terms) == 0 {
		terms = DefaultBannedTerms
	}
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	return &NamePolicy{BannedTerms: lowered, MinFiberG: minFiber}
}

func (p *NamePolicy) Name() string { return PolicyName }

func (p *NamePolicy) Allows(food models.FoodItem) bool {
	name := strings.ToLower(food.Name)
	for _, term := range p.BannedTerms {
		if strings.Contains(name, term) {
			return false
		}
	}
	return food.FiberG >= p.MinFiberG
}

// TagPolicy keeps foods tagged with any of Accept.
type TagPolicy struct {
	Accept []string
}

func NewTagPolicy() *TagPolicy {
	return &TagPolicy{Accept: []string{"diabetic", "all"}}
}

func (p *TagPolicy) Name() string { return PolicyTag }

func (p *TagPolicy) Allows(food models.FoodItem) bool {
	return food.HasTag(p.Accept...)
}

type passthrough struct{}

func (passthrough) Name() string { return PolicyPassthrough }
func (passthrough) Allows(models.FoodItem) bool { return true }

// Passthrough allows every food.
var Passthrough Policy = passthrough{}

// PolicyByName builds one of the named policies. Banned terms and the fiber
// floor only apply to the name policy.
func PolicyByName(name string, bannedTerms []string, minFiber float64) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyName:
		return NewNamePolicy(bannedTerms, minFiber), nil
	case PolicyTag:
		return NewTagPolicy(), nil
	case PolicyPassthrough:
		return Passthrough, nil
	}
	return nil, fmt.Errorf("unknown clinical policy %q (want %s, %s or %s)", name, PolicyName, PolicyTag, PolicyPassthrough)
}
