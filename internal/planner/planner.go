// Package planner turns a user profile, a clinical status and a food catalog
// into a daily meal plan, either greedily or by linear programming.
package planner

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"mcp-meal-plan/internal/clinical"
	"mcp-meal-plan/internal/logger"
	"mcp-meal-plan/internal/models"
	"mcp-meal-plan/internal/targets"
)

// Mode selects the planning strategy.
//
//	auto   -> optimizer, falling back to greedy on any optimizer error
//	greedy -> greedy only
//	opt    -> optimizer only, errors propagate
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeGreedy Mode = "greedy"
	ModeOpt    Mode = "opt"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeGreedy:
		return ModeGreedy, nil
	case ModeOpt:
		return ModeOpt, nil
	}
	return "", fmt.Errorf("unknown planning mode %q (want auto, greedy or opt)", s)
}

// Predictor supplies a calorie target in place of the Mifflin-St Jeor
// estimate.
type Predictor interface {
	Predict(ctx context.Context, profile models.UserProfile) (float64, error)
}

type Options struct {
	Mode      Mode
	Tolerance float64
	MaxItems  int
	GreedyCap int
	Seed      int64
}

func DefaultOptions() Options {
	return Options{
		Mode:      ModeAuto,
		Tolerance: DefaultTolerance,
		MaxItems:  DefaultMaxItems,
		GreedyCap: DefaultGreedyCap,
		Seed:      defaultGreedySeed,
	}
}

// Request is one planning call. Zero-valued fields take the planner defaults.
type Request struct {
	Profile   models.UserProfile
	Status    models.ClinicalStatus
	Foods     []models.FoodItem
	Mode      Mode
	Tolerance float64
	MaxItems  int
	// Rand orders equal-calorie foods in the greedy pass. When nil a source
	// seeded with Options.Seed is created for this call.
	Rand *rand.Rand
}

// Planner holds no per-call state and is safe for concurrent use.
type Planner struct {
	filter    *clinical.Filter
	optimizer *Optimizer
	predictor Predictor
	opts      Options
	log       *logger.Logger
}

type Option func(*Planner)

func WithPredictor(p Predictor) Option {
	return func(pl *Planner) { pl.predictor = p }
}

func WithLogger(l *logger.Logger) Option {
	return func(pl *Planner) { pl.log = l }
}

func New(filter *clinical.Filter, optimizer *Optimizer, opts Options, options ...Option) *Planner {
	def := DefaultOptions()
	if opts.Mode == "" {
		opts.Mode = def.Mode
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = def.MaxItems
	}
	if opts.GreedyCap <= 0 {
		opts.GreedyCap = def.GreedyCap
	}
	p := &Planner{
		filter:    filter,
		optimizer: optimizer,
		opts:      opts,
		log:       logger.Nop(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Targets resolves the calorie and macro targets for profile.
func (p *Planner) Targets(ctx context.Context, profile models.UserProfile) (targets.Result, models.TargetSource, error) {
	res, err := targets.Compute(profile)
	if err != nil {
		return targets.Result{}, "", err
	}
	if p.predictor == nil {
		return res, models.TargetFromFormula, nil
	}
	kcal, err := p.predictor.Predict(ctx, profile)
	if err != nil || kcal <= 0 || math.IsNaN(kcal) || math.IsInf(kcal, 0) {
		p.log.Warn("calorie predictor unusable, using formula target", "error", err, "predicted", kcal)
		return res, models.TargetFromFormula, nil
	}
	res.Target = targets.MacrosFromCalories(kcal)
	return res, models.TargetFromPredictor, nil
}

// Generate runs one complete planning call.
func (p *Planner) Generate(ctx context.Context, req Request) (*models.MealPlan, error) {
	mode := req.Mode
	if mode == "" {
		mode = p.opts.Mode
	}
	tolerance := req.Tolerance
	if tolerance <= 0 {
		tolerance = p.opts.Tolerance
	}
	maxItems := req.MaxItems
	if maxItems <= 0 {
		maxItems = p.opts.MaxItems
	}
	status := req.Status
	if status == "" {
		status = models.StatusNormal
	}

	tres, source, err := p.Targets(ctx, req.Profile)
	if err != nil {
		return nil, err
	}
	target := tres.Target

	eligible, err := p.filter.Apply(req.Foods, status)
	if err != nil {
		return nil, err
	}

	plan := &models.MealPlan{
		ID:        uuid.NewString(),
		UserID:    req.Profile.ID,
		CreatedAt: time.Now().UTC(),
		Meta: models.PlanMetadata{
			TargetCalories:    int(math.Round(target.Calories)),
			ClinicalStatus:    status,
			MacroTargets:      target.Macros(),
			TargetSource:      source,
			ActivityDefaulted: tres.ActivityDefaulted,
		},
	}
	if bmi, err := targets.BMI(req.Profile.WeightKg, req.Profile.HeightCm); err == nil {
		plan.Meta.BMI = bmi
		plan.Meta.BMICategory = targets.BMICategory(bmi)
	}

	log := p.log.With("mode", mode, "status", status, "eligible", len(eligible), "target_kcal", plan.Meta.TargetCalories)

	switch mode {
	case ModeGreedy:
		err = p.runGreedy(plan, eligible, target.Calories, tolerance, req.Rand)
	case ModeOpt:
		err = p.runOptimizer(ctx, plan, eligible, target, maxItems, tolerance)
	case ModeAuto:
		if optErr := p.runOptimizer(ctx, plan, eligible, target, maxItems, tolerance); optErr != nil {
			log.Info("optimizer failed, falling back to greedy", "error", optErr)
			plan.Meta.FallbackReason = optErr.Error()
			err = p.runGreedy(plan, eligible, target.Calories, tolerance, req.Rand)
		}
	default:
		return nil, fmt.Errorf("unknown planning mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	log.Debug("plan generated", "strategy", plan.Meta.StrategyUsed, "entries", len(plan.Entries), "total_kcal", plan.TotalCalories, "partial", plan.Meta.Partial)
	return plan, nil
}

func (p *Planner) runGreedy(plan *models.MealPlan, foods []models.FoodItem, kcal, tolerance float64, rng *rand.Rand) error {
	if rng == nil {
		rng = rand.New(rand.NewSource(p.opts.Seed))
	}
	res, err := Greedy(foods, kcal, tolerance, p.opts.GreedyCap, rng)
	if err != nil {
		return err
	}
	plan.Entries = res.Entries
	plan.TotalCalories = res.TotalCalories
	plan.Meta.StrategyUsed = models.StrategyGreedy
	plan.Meta.Partial = res.Partial
	if res.Reason != nil {
		plan.Meta.Warning = res.Reason.Error()
	}
	return nil
}

func (p *Planner) runOptimizer(ctx context.Context, plan *models.MealPlan, foods []models.FoodItem, target models.NutrientTarget, maxItems int, tolerance float64) error {
	res, err := p.optimizer.Plan(ctx, foods, target.Calories, target.Macros(), maxItems, tolerance)
	if err != nil {
		return err
	}
	plan.Entries = res.Entries
	plan.TotalCalories = res.TotalCalories
	plan.Meta.StrategyUsed = models.StrategyOptimized
	return nil
}
