// Package config loads service settings from defaults, an optional YAML
// file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Planner   PlannerConfig   `yaml:"planner"`
	Clinical  ClinicalConfig  `yaml:"clinical"`
	Predictor PredictorConfig `yaml:"predictor"`
}

type ServerConfig struct {
	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	// FoodsCSV is imported into the database at startup when set.
	FoodsCSV string `yaml:"foods_csv"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

type PlannerConfig struct {
	Mode          string        `yaml:"mode"`
	Tolerance     float64       `yaml:"tolerance"`
	MaxItems      int           `yaml:"max_items"`
	MaxServings   float64       `yaml:"max_servings"`
	MaxCandidates int           `yaml:"max_candidates"`
	GreedyCap     int           `yaml:"greedy_cap"`
	Seed          int64         `yaml:"seed"`
	SolverWorkers int           `yaml:"solver_workers"`
	SolveTimeout  time.Duration `yaml:"solve_timeout"`
	BatchWorkers  int           `yaml:"batch_workers"`
}

type ClinicalConfig struct {
	DiabetesPolicy    string   `yaml:"diabetes_policy"`
	PrediabetesPolicy string   `yaml:"prediabetes_policy"`
	BannedTerms       []string `yaml:"banned_terms"`
	MinFiberG         float64  `yaml:"min_fiber_g"`
}

type PredictorConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Transport: "http",
			Host:      "0.0.0.0",
			Port:      8012,
			DBPath:    "/data/meal-plan.db",
		},
		Log: LogConfig{Mode: "dev"},
		Planner: PlannerConfig{
			Mode:          "auto",
			Tolerance:     0.05,
			MaxItems:      10,
			MaxServings:   5,
			MaxCandidates: 40,
			GreedyCap:     50,
			Seed:          42,
			SolverWorkers: 2,
			SolveTimeout:  10 * time.Second,
			BatchWorkers:  4,
		},
		Clinical: ClinicalConfig{
			DiabetesPolicy:    "name",
			PrediabetesPolicy: "passthrough",
			BannedTerms:       []string{"sweet", "sugar", "dessert", "candy", "soft drink", "juice", "white rice"},
			MinFiberG:         2,
		},
		Predictor: PredictorConfig{Timeout: 10 * time.Second},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *float64) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}
	integer := func(name string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = i
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	str("MEAL_PLAN_DB_PATH", &cfg.Server.DBPath)
	str("MEAL_PLAN_FOODS_CSV", &cfg.Server.FoodsCSV)
	str("MEAL_PLAN_LOG_MODE", &cfg.Log.Mode)
	str("MEAL_PLAN_MODE", &cfg.Planner.Mode)
	num("MEAL_PLAN_TOLERANCE", &cfg.Planner.Tolerance)
	integer("MEAL_PLAN_MAX_ITEMS", &cfg.Planner.MaxItems)
	integer("MEAL_PLAN_MAX_CANDIDATES", &cfg.Planner.MaxCandidates)
	integer("MEAL_PLAN_SOLVER_WORKERS", &cfg.Planner.SolverWorkers)
	dur("MEAL_PLAN_SOLVE_TIMEOUT", &cfg.Planner.SolveTimeout)
	str("MEAL_PLAN_DIABETES_POLICY", &cfg.Clinical.DiabetesPolicy)
	str("MEAL_PLAN_PREDIABETES_POLICY", &cfg.Clinical.PrediabetesPolicy)
	str("PREDICTOR_URL", &cfg.Predictor.URL)
	str("PREDICTOR_API_KEY", &cfg.Predictor.APIKey)
	dur("PREDICTOR_TIMEOUT", &cfg.Predictor.Timeout)

	return errors.Join(errs...)
}

func (c Config) Validate() error {
	switch {
	case c.Planner.Tolerance <= 0 || c.Planner.Tolerance >= 1:
		return fmt.Errorf("planner.tolerance must be in (0, 1), got %v", c.Planner.Tolerance)
	case c.Planner.MaxItems <= 0:
		return fmt.Errorf("planner.max_items must be positive, got %d", c.Planner.MaxItems)
	case c.Planner.MaxServings <= 0:
		return fmt.Errorf("planner.max_servings must be positive, got %v", c.Planner.MaxServings)
	case c.Planner.MaxCandidates < 0:
		return fmt.Errorf("planner.max_candidates must not be negative, got %d", c.Planner.MaxCandidates)
	case c.Clinical.PrediabetesPolicy == "":
		return fmt.Errorf("clinical.prediabetes_policy must be set explicitly")
	case c.Clinical.DiabetesPolicy == "":
		return fmt.Errorf("clinical.diabetes_policy must be set")
	}
	return nil
}
