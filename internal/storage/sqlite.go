// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mcp-meal-plan/internal/models"
)

var ErrNotFound = errors.New("not found")

// fixed-width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// batch planning saves from several goroutines; sqlite takes one writer
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS foods (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        calories REAL NOT NULL,
        protein_g REAL NOT NULL,
        carb_g REAL NOT NULL,
        fat_g REAL NOT NULL,
        fiber_g REAL NOT NULL,
        tags TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        age REAL NOT NULL,
        weight_kg REAL NOT NULL,
        height_cm REAL NOT NULL,
        gender TEXT NOT NULL,
        activity_level TEXT NOT NULL,
        goal TEXT NOT NULL,
        clinical_status TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS plans (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        total_calories REAL NOT NULL,
        target_calories INTEGER NOT NULL,
        clinical_status TEXT NOT NULL,
        strategy TEXT NOT NULL,
        target_source TEXT NOT NULL,
        protein_target REAL NOT NULL,
        carb_target REAL NOT NULL,
        fat_target REAL NOT NULL,
        fallback_reason TEXT NOT NULL,
        partial INTEGER NOT NULL,
        warning TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS plan_entries (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        plan_id TEXT NOT NULL,
        food_id TEXT NOT NULL,
        food_name TEXT NOT NULL,
        servings REAL NOT NULL,
        calories REAL NOT NULL,
        protein_g REAL NOT NULL,
        carb_g REAL NOT NULL,
        fat_g REAL NOT NULL,
        fiber_g REAL NOT NULL,
        FOREIGN KEY (plan_id) REFERENCES plans(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_plans_user_created ON plans(user_id, created_at);
    CREATE INDEX IF NOT EXISTS idx_plan_entries_plan_id ON plan_entries(plan_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// UpsertFoods inserts or replaces foods in one transaction.
func (s *SQLiteStorage) UpsertFoods(ctx context.Context, foods []models.FoodItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO foods (id, name, calories, protein_g, carb_g, fat_g, fiber_g, tags)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name, calories = excluded.calories,
            protein_g = excluded.protein_g, carb_g = excluded.carb_g,
            fat_g = excluded.fat_g, fiber_g = excluded.fiber_g, tags = excluded.tags
    `
	for _, f := range foods {
		if f.ID == "" {
			return fmt.Errorf("food %q has no id", f.Name)
		}
		_, err = tx.ExecContext(ctx, query,
			f.ID, f.Name, f.Calories, f.ProteinG, f.CarbG, f.FatG, f.FiberG,
			strings.Join(f.Tags, ","))
		if err != nil {
			return fmt.Errorf("failed to upsert food %s: %w", f.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) ListFoods(ctx context.Context) ([]models.FoodItem, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, name, calories, protein_g, carb_g, fat_g, fiber_g, tags
        FROM foods
        ORDER BY rowid
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	var foods []models.FoodItem
	for rows.Next() {
		var f models.FoodItem
		var tags string
		if err := rows.Scan(&f.ID, &f.Name, &f.Calories, &f.ProteinG, &f.CarbG, &f.FatG, &f.FiberG, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		f.Tags = models.ParseTags(tags)
		foods = append(foods, f)
	}
	return foods, rows.Err()
}

func (s *SQLiteStorage) SaveUser(ctx context.Context, u models.UserProfile) error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	status := u.Status
	if status == "" {
		status = models.StatusNormal
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO users (id, name, age, weight_kg, height_cm, gender, activity_level, goal, clinical_status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name, age = excluded.age, weight_kg = excluded.weight_kg,
            height_cm = excluded.height_cm, gender = excluded.gender,
            activity_level = excluded.activity_level, goal = excluded.goal,
            clinical_status = excluded.clinical_status
    `, u.ID, u.Name, u.Age, u.WeightKg, u.HeightCm, string(u.Gender),
		string(u.ActivityLevel), string(u.Goal), string(status))
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", u.ID, err)
	}
	return nil
}

const userColumns = `id, name, age, weight_kg, height_cm, gender, activity_level, goal, clinical_status`

func scanUser(sc interface{ Scan(...any) error }) (models.UserProfile, error) {
	var u models.UserProfile
	var gender, activity, goal, status string
	err := sc.Scan(&u.ID, &u.Name, &u.Age, &u.WeightKg, &u.HeightCm, &gender, &activity, &goal, &status)
	u.Gender = models.Gender(gender)
	u.ActivityLevel = models.ActivityLevel(activity)
	u.Goal = models.Goal(goal)
	u.Status = models.ClinicalStatus(status)
	return u, err
}

func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (models.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return u, nil
}

func (s *SQLiteStorage) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.UserProfile
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStorage) SavePlan(ctx context.Context, plan *models.MealPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	m := plan.Meta
	partial := 0
	if m.Partial {
		partial = 1
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO plans (id, user_id, total_calories, target_calories, clinical_status, strategy,
            target_source, protein_target, carb_target, fat_target, fallback_reason, partial, warning, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, plan.ID, plan.UserID, plan.TotalCalories, m.TargetCalories, string(m.ClinicalStatus),
		string(m.StrategyUsed), string(m.TargetSource), m.MacroTargets.ProteinG, m.MacroTargets.CarbG,
		m.MacroTargets.FatG, m.FallbackReason, partial, m.Warning, plan.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	entryQuery := `
        INSERT INTO plan_entries (plan_id, food_id, food_name, servings, calories, protein_g, carb_g, fat_g, fiber_g)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	for _, e := range plan.Entries {
		_, err = tx.ExecContext(ctx, entryQuery,
			plan.ID, e.FoodID, e.FoodName, e.Servings, e.Calories, e.ProteinG, e.CarbG, e.FatG, e.FiberG)
		if err != nil {
			return fmt.Errorf("failed to insert plan entry: %w", err)
		}
	}

	return tx.Commit()
}

// GetPlans returns the newest plans first. An empty userID matches all users.
func (s *SQLiteStorage) GetPlans(ctx context.Context, userID string, limit int) ([]*models.MealPlan, error) {
	query := `
        SELECT id, user_id, total_calories, target_calories, clinical_status, strategy, target_source,
            protein_target, carb_target, fat_target, fallback_reason, partial, warning, created_at
        FROM plans
        WHERE 1=1
    `
	args := []interface{}{}

	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.MealPlan
	for rows.Next() {
		p := &models.MealPlan{}
		var status, strategy, source, createdAt string
		var partial int
		err := rows.Scan(&p.ID, &p.UserID, &p.TotalCalories, &p.Meta.TargetCalories, &status, &strategy, &source,
			&p.Meta.MacroTargets.ProteinG, &p.Meta.MacroTargets.CarbG, &p.Meta.MacroTargets.FatG,
			&p.Meta.FallbackReason, &partial, &p.Meta.Warning, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		p.Meta.ClinicalStatus = models.ClinicalStatus(status)
		p.Meta.StrategyUsed = models.Strategy(strategy)
		p.Meta.TargetSource = models.TargetSource(source)
		p.Meta.Partial = partial != 0
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, p := range plans {
		if err := s.loadEntriesForPlan(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to load entries for plan %s: %w", p.ID, err)
		}
	}
	return plans, nil
}

func (s *SQLiteStorage) loadEntriesForPlan(ctx context.Context, plan *models.MealPlan) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT food_id, food_name, servings, calories, protein_g, carb_g, fat_g, fiber_g
        FROM plan_entries
        WHERE plan_id = ?
        ORDER BY id
    `, plan.ID)
	if err != nil {
		return fmt.Errorf("failed to query plan entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PlanEntry
	for rows.Next() {
		var e models.PlanEntry
		if err := rows.Scan(&e.FoodID, &e.FoodName, &e.Servings, &e.Calories, &e.ProteinG, &e.CarbG, &e.FatG, &e.FiberG); err != nil {
			return fmt.Errorf("failed to scan plan entry: %w", err)
		}
		entries = append(entries, e)
	}
	plan.Entries = entries
	return rows.Err()
}
