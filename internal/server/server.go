// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-meal-plan/internal/catalog"
	"mcp-meal-plan/internal/clinical"
	"mcp-meal-plan/internal/config"
	"mcp-meal-plan/internal/logger"
	"mcp-meal-plan/internal/models"
	"mcp-meal-plan/internal/planner"
	"mcp-meal-plan/internal/predict"
	"mcp-meal-plan/internal/storage"
	"mcp-meal-plan/internal/targets"
)

const Version = "1.0.0"

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

// MealPlanServer answers MCP tool calls over plain HTTP. Requests and results
// use the go-mcp protocol types; dispatch is by tool name.
type MealPlanServer struct {
	httpServer *http.Server
	storage    *storage.SQLiteStorage
	catalogs   *catalog.Store
	filter     *clinical.Filter
	planner    *planner.Planner
	tools      map[string]toolHandler
	config     *config.Config
	log        *logger.Logger
}

func NewMealPlanServer(cfg *config.Config, log *logger.Logger) (*MealPlanServer, error) {
	if log == nil {
		log = logger.Nop()
	}

	stor, err := storage.NewSQLiteStorage(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s, err := newMealPlanServer(cfg, stor, log)
	if err != nil {
		stor.Close()
		return nil, err
	}
	return s, nil
}

func newMealPlanServer(cfg *config.Config, stor *storage.SQLiteStorage, log *logger.Logger) (*MealPlanServer, error) {
	ctx := context.Background()

	if cfg.Server.FoodsCSV != "" {
		if err := importFoodsCSV(ctx, stor, cfg.Server.FoodsCSV); err != nil {
			return nil, err
		}
	}

	catalogs := catalog.NewStore(stor)
	snap, err := catalogs.Reload(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("catalog loaded", "foods", snap.Len())

	filter, err := buildFilter(cfg.Clinical)
	if err != nil {
		return nil, err
	}

	mode, err := planner.ParseMode(cfg.Planner.Mode)
	if err != nil {
		return nil, err
	}

	opt := planner.NewOptimizer(planner.SimplexSolver{Tol: 1e-10}, planner.NewSolverPool(cfg.Planner.SolverWorkers))
	opt.MaxServings = cfg.Planner.MaxServings
	opt.MaxCandidates = cfg.Planner.MaxCandidates

	var options []planner.Option
	options = append(options, planner.WithLogger(log.With("component", "planner")))
	if cfg.Predictor.URL != "" {
		options = append(options, planner.WithPredictor(predict.NewClient(cfg.Predictor.URL, cfg.Predictor.APIKey, cfg.Predictor.Timeout)))
		log.Info("calorie predictor enabled", "url", cfg.Predictor.URL)
	}

	pl := planner.New(filter, opt, planner.Options{
		Mode:      mode,
		Tolerance: cfg.Planner.Tolerance,
		MaxItems:  cfg.Planner.MaxItems,
		GreedyCap: cfg.Planner.GreedyCap,
		Seed:      cfg.Planner.Seed,
	}, options...)

	mealServer := &MealPlanServer{
		storage:  stor,
		catalogs: catalogs,
		filter:   filter,
		planner:  pl,
		config:   cfg,
		log:      log,
	}

	mealServer.registerTools()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", mealServer.handleHealth)
	mux.HandleFunc("/", mealServer.handleHTTP)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	mealServer.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return mealServer, nil
}

func buildFilter(cfg config.ClinicalConfig) (*clinical.Filter, error) {
	diabetes, err := clinical.PolicyByName(cfg.DiabetesPolicy, cfg.BannedTerms, cfg.MinFiberG)
	if err != nil {
		return nil, fmt.Errorf("diabetes policy: %w", err)
	}
	prediabetes, err := clinical.PolicyByName(cfg.PrediabetesPolicy, cfg.BannedTerms, cfg.MinFiberG)
	if err != nil {
		return nil, fmt.Errorf("prediabetes policy: %w", err)
	}
	return clinical.NewFilter(diabetes, prediabetes), nil
}

func importFoodsCSV(ctx context.Context, stor *storage.SQLiteStorage, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open foods csv: %w", err)
	}
	defer f.Close()

	foods, err := catalog.ReadCSV(f)
	if err != nil {
		return err
	}
	// normalize ids and values the same way the catalog does before storing
	return stor.UpsertFoods(ctx, catalog.New(foods).Foods())
}

func (s *MealPlanServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"message": "meal plan server is running",
		"foods":   s.catalogs.Current().Len(),
	})
}

func (s *MealPlanServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		s.log.Warn("tool call failed", "tool", request.Name, "error", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.log.Error("failed to encode response", "tool", request.Name, "error", err)
	}
}

// httpStatus maps planning errors onto response codes: caller mistakes are
// 4xx, solver outcomes 422, everything else 500.
func httpStatus(err error) int {
	var ipe *targets.InvalidProfileError
	var infeasible *planner.InfeasibleError
	switch {
	case errors.Is(err, errInvalidParams), errors.As(err, &ipe),
		errors.Is(err, models.ErrEmptyCatalog), errors.Is(err, clinical.ErrNoPolicy):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &infeasible), errors.Is(err, planner.ErrSolverUnavailable),
		errors.Is(err, planner.ErrSolverTimeout), errors.Is(err, planner.ErrSolverPanic):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *MealPlanServer) Start(ctx context.Context) error {
	s.log.Info("starting meal plan server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *MealPlanServer) Stop() error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(context.Background())
	}
	if s.storage != nil {
		s.storage.Close()
	}
	return err
}

func (s *MealPlanServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
