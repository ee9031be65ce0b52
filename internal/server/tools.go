// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"golang.org/x/sync/errgroup"

	"mcp-meal-plan/internal/catalog"
	"mcp-meal-plan/internal/models"
	"mcp-meal-plan/internal/planner"
	"mcp-meal-plan/internal/storage"
	"mcp-meal-plan/internal/targets"
)

var errInvalidParams = errors.New("invalid parameters")

type GeneratePlanParams struct {
	UserID         string              `json:"user_id,omitempty" description:"Stored user to plan for"`
	Profile        *models.UserProfile `json:"profile,omitempty" description:"Inline user profile, used when user_id is empty"`
	ClinicalStatus string              `json:"clinical_status,omitempty" description:"normal, prediabetes or diabetes (defaults to the profile's status)"`
	Mode           string              `json:"mode,omitempty" description:"auto, greedy or opt"`
	Tolerance      float64             `json:"tolerance,omitempty" description:"Calorie tolerance as a fraction of the target"`
	MaxItems       int                 `json:"max_items,omitempty" description:"Maximum distinct foods in an optimized plan"`
	Seed           *int64              `json:"seed,omitempty" description:"Seed for greedy tie ordering"`
	Save           bool                `json:"save,omitempty" description:"Persist the plan"`
}

type ComputeTargetsParams struct {
	Profile models.UserProfile `json:"profile" description:"User profile"`
}

type FilterFoodsParams struct {
	ClinicalStatus string `json:"clinical_status" description:"normal, prediabetes or diabetes"`
	Limit          int    `json:"limit,omitempty" description:"Maximum number of foods to return"`
}

type ListFoodsParams struct {
	Tag   string `json:"tag,omitempty" description:"Only foods carrying this suitability tag"`
	Limit int    `json:"limit,omitempty" description:"Maximum number of foods to return"`
}

type GetFoodParams struct {
	FoodID string `json:"food_id" description:"Catalog id of the food"`
}

type AddFoodParams struct {
	Foods []models.FoodItem `json:"foods" description:"Foods to insert or update"`
}

type SaveUserParams struct {
	Profile models.UserProfile `json:"profile" description:"User profile to store"`
}

type GetPlansParams struct {
	UserID string `json:"user_id,omitempty" description:"Only plans for this user"`
	Limit  int    `json:"limit,omitempty" description:"Maximum number of plans to return"`
}

type PlanAllUsersParams struct {
	Mode string `json:"mode,omitempty" description:"auto, greedy or opt"`
	Save bool   `json:"save,omitempty" description:"Persist every generated plan"`
}

// UserPlanSummary is one row of a batch run.
type UserPlanSummary struct {
	UserID         string                `json:"user_id"`
	Name           string                `json:"name,omitempty"`
	ClinicalStatus models.ClinicalStatus `json:"clinical_status,omitempty"`
	TargetCalories int                   `json:"user_calorie_target,omitempty"`
	TotalCalories  float64               `json:"total_calories,omitempty"`
	Strategy       models.Strategy       `json:"strategy_used,omitempty"`
	Items          int                   `json:"items"`
	PlanID         string                `json:"plan_id,omitempty"`
	Error          string                `json:"error,omitempty"`
}

func (s *MealPlanServer) registerTools() {
	s.tools = map[string]toolHandler{
		"generate_meal_plan": s.handleGeneratePlan,
		"compute_targets":    s.handleComputeTargets,
		"filter_foods":       s.handleFilterFoods,
		"list_foods":         s.handleListFoods,
		"get_food":           s.handleGetFood,
		"add_food":           s.handleAddFood,
		"reload_catalog":     s.handleReloadCatalog,
		"save_user":          s.handleSaveUser,
		"get_plans":          s.handleGetPlans,
		"plan_all_users":     s.handlePlanAllUsers,
	}

	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	s.log.Info("registered tools", "tools", names)
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal arguments: %v", errInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	return nil
}

func parseStatus(raw string) (models.ClinicalStatus, error) {
	if raw == "" {
		return "", nil
	}
	status := models.ClinicalStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown clinical status %q", errInvalidParams, raw)
	}
	return status, nil
}

// handleGeneratePlan builds a meal plan for a stored or inline profile
func (s *MealPlanServer) handleGeneratePlan(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GeneratePlanParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	var profile models.UserProfile
	switch {
	case params.UserID != "":
		u, err := s.storage.GetUser(ctx, params.UserID)
		if err != nil {
			return nil, err
		}
		profile = u
	case params.Profile != nil:
		profile = *params.Profile
	default:
		return nil, fmt.Errorf("%w: user_id or profile is required", errInvalidParams)
	}

	status, err := parseStatus(params.ClinicalStatus)
	if err != nil {
		return nil, err
	}
	if status == "" {
		if status, err = parseStatus(string(profile.Status)); err != nil {
			return nil, err
		}
	}

	var mode planner.Mode
	if params.Mode != "" {
		if mode, err = planner.ParseMode(params.Mode); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
	}

	preq := planner.Request{
		Profile:   profile,
		Status:    status,
		Foods:     s.catalogs.Current().Foods(),
		Mode:      mode,
		Tolerance: params.Tolerance,
		MaxItems:  params.MaxItems,
	}
	if params.Seed != nil {
		preq.Rand = rand.New(rand.NewSource(*params.Seed))
	}

	plan, err := s.generate(ctx, preq)
	if err != nil {
		return nil, err
	}

	if params.Save {
		if err := s.storage.SavePlan(ctx, plan); err != nil {
			return nil, fmt.Errorf("failed to save plan: %w", err)
		}
	}

	return s.createJSONResponse(plan)
}

// generate runs one planning call under the configured solve timeout.
func (s *MealPlanServer) generate(ctx context.Context, req planner.Request) (*models.MealPlan, error) {
	if timeout := s.config.Planner.SolveTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.planner.Generate(ctx, req)
}

func (s *MealPlanServer) handleComputeTargets(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ComputeTargetsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	res, source, err := s.planner.Targets(ctx, params.Profile)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"target":             res.Target,
		"bmr":                models.Round2(res.BMR),
		"tdee":               models.Round2(res.TDEE),
		"target_source":      source,
		"activity_defaulted": res.ActivityDefaulted,
	}
	if bmi, err := targets.BMI(params.Profile.WeightKg, params.Profile.HeightCm); err == nil {
		result["bmi"] = bmi
		result["bmi_category"] = targets.BMICategory(bmi)
	}
	return s.createJSONResponse(result)
}

func (s *MealPlanServer) handleFilterFoods(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params FilterFoodsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	status, err := parseStatus(params.ClinicalStatus)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = models.StatusNormal
	}

	foods, err := s.filter.Apply(s.catalogs.Current().Foods(), status)
	if err != nil {
		return nil, err
	}
	total := len(foods)
	if params.Limit > 0 && params.Limit < len(foods) {
		foods = foods[:params.Limit]
	}

	return s.createJSONResponse(map[string]interface{}{
		"clinical_status": status,
		"total":           total,
		"foods":           foods,
	})
}

func (s *MealPlanServer) handleListFoods(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ListFoodsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	snap := s.catalogs.Current()
	foods := snap.Foods()
	if params.Tag != "" {
		tag := strings.ToLower(strings.TrimSpace(params.Tag))
		matched := make([]models.FoodItem, 0, len(foods))
		for _, f := range foods {
			if f.HasTag(tag) {
				matched = append(matched, f)
			}
		}
		foods = matched
	}
	total := len(foods)
	if params.Limit > 0 && params.Limit < len(foods) {
		foods = foods[:params.Limit]
	}

	return s.createJSONResponse(map[string]interface{}{
		"total":     total,
		"loaded_at": snap.LoadedAt(),
		"foods":     foods,
	})
}

func (s *MealPlanServer) handleGetFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.FoodID == "" {
		return nil, fmt.Errorf("%w: food_id is required", errInvalidParams)
	}

	food, ok := s.catalogs.Current().Get(params.FoodID)
	if !ok {
		return nil, fmt.Errorf("food %q: %w", params.FoodID, storage.ErrNotFound)
	}
	return s.createJSONResponse(food)
}

// handleAddFood upserts foods and swaps in a fresh catalog snapshot
func (s *MealPlanServer) handleAddFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AddFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if len(params.Foods) == 0 {
		return nil, fmt.Errorf("%w: at least one food is required", errInvalidParams)
	}
	for i, f := range params.Foods {
		if strings.TrimSpace(f.ID) == "" || strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("%w: food %d needs food_id and food_name", errInvalidParams, i)
		}
	}

	if err := s.storage.UpsertFoods(ctx, catalog.New(params.Foods).Foods()); err != nil {
		return nil, fmt.Errorf("failed to store foods: %w", err)
	}
	snap, err := s.catalogs.Reload(ctx)
	if err != nil {
		return nil, err
	}

	return s.createJSONResponse(map[string]interface{}{
		"added":       len(params.Foods),
		"total_foods": snap.Len(),
	})
}

func (s *MealPlanServer) handleReloadCatalog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	snap, err := s.catalogs.Reload(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("catalog reloaded", "foods", snap.Len())
	return s.createJSONResponse(map[string]interface{}{
		"total_foods": snap.Len(),
		"loaded_at":   snap.LoadedAt(),
	})
}

func (s *MealPlanServer) handleSaveUser(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SaveUserParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	profile := params.Profile
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: user_id is required", errInvalidParams)
	}
	if profile.Status != "" && !profile.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown clinical status %q", errInvalidParams, profile.Status)
	}
	// reject profiles that could never be planned for
	if _, err := targets.Compute(profile); err != nil {
		return nil, err
	}

	if err := s.storage.SaveUser(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return s.createJSONResponse(map[string]interface{}{
		"saved":   true,
		"user_id": profile.ID,
	})
}

func (s *MealPlanServer) handleGetPlans(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetPlansParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	// Set defaults
	if params.Limit <= 0 {
		params.Limit = 20
	}

	plans, err := s.storage.GetPlans(ctx, params.UserID, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get plans: %w", err)
	}

	return s.createJSONResponse(map[string]interface{}{
		"plans": plans,
		"count": len(plans),
	})
}

// handlePlanAllUsers generates a plan for every stored user. A failing user
// is reported in its summary row and does not stop the batch.
func (s *MealPlanServer) handlePlanAllUsers(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params PlanAllUsersParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	var mode planner.Mode
	if params.Mode != "" {
		m, err := planner.ParseMode(params.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
		mode = m
	}

	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	foods := s.catalogs.Current().Foods()
	summaries := make([]UserPlanSummary, len(users))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.config.Planner.BatchWorkers))
	for i, u := range users {
		i, u := i, u // per-iteration copies; module targets Go 1.22+ loop semantics
		g.Go(func() error {
			summaries[i] = s.planUser(gctx, u, foods, mode, params.Save)
			if summaries[i].Error != "" {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	s.log.Info("batch planning finished", "users", len(users), "failed", failed)
	return s.createJSONResponse(map[string]interface{}{
		"users":   len(users),
		"failed":  failed,
		"results": summaries,
	})
}

func (s *MealPlanServer) planUser(ctx context.Context, u models.UserProfile, foods []models.FoodItem, mode planner.Mode, save bool) UserPlanSummary {
	row := UserPlanSummary{UserID: u.ID, Name: u.Name, ClinicalStatus: u.Status}

	plan, err := s.generate(ctx, planner.Request{
		Profile: u,
		Status:  u.Status,
		Foods:   foods,
		Mode:    mode,
	})
	if err != nil {
		row.Error = err.Error()
		return row
	}
	if save {
		if err := s.storage.SavePlan(ctx, plan); err != nil {
			row.Error = fmt.Sprintf("failed to save plan: %v", err)
			return row
		}
		row.PlanID = plan.ID
	}

	row.ClinicalStatus = plan.Meta.ClinicalStatus
	row.TargetCalories = plan.Meta.TargetCalories
	row.TotalCalories = models.Round2(plan.TotalCalories)
	row.Strategy = plan.Meta.StrategyUsed
	row.Items = len(plan.Entries)
	return row
}
