package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mcp-meal-plan/internal/models"
)

func TestFeaturesFor(t *testing.T) {
	f := FeaturesFor(models.UserProfile{Age: 30, HeightCm: 175, WeightKg: 70, ActivityLevel: "moderately_active", Goal: models.WeightGain})
	if f.ActivityLevelEncoded != 2 || f.GoalBinary != 1 {
		t.Fatalf("unexpected features %+v", f)
	}
	f = FeaturesFor(models.UserProfile{ActivityLevel: models.VeryActive, Goal: models.WeightLoss})
	if f.ActivityLevelEncoded != 4 || f.GoalBinary != 0 {
		t.Fatalf("unexpected features %+v", f)
	}
}

func TestPredict(t *testing.T) {
	var gotAuth string
	var gotArgs Features
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Method string `json:"method"`
			Params struct {
				Name      string   `json:"name"`
				Arguments Features `json:"arguments"`
			} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method != "tools/call" || req.Params.Name != DefaultTool {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		gotArgs = req.Params.Arguments
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]interface{}{
				"content": []map[string]interface{}{{"type": "text", "text": `{"calories": 2310.5}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	kcal, err := c.Predict(context.Background(), models.UserProfile{Age: 30, HeightCm: 175, WeightKg: 70, ActivityLevel: models.Light})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if kcal != 2310.5 {
		t.Fatalf("expected 2310.5, got %v", kcal)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotArgs.WeightKg != 70 || gotArgs.ActivityLevelEncoded != 1 {
		t.Fatalf("unexpected arguments %+v", gotArgs)
	}
}

func TestPredictHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", time.Second).Predict(context.Background(), models.UserProfile{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParsePrediction(t *testing.T) {
	if v, err := parsePrediction(" 1999.5 "); err != nil || v != 1999.5 {
		t.Fatalf("bare number: %v %v", v, err)
	}
	if _, err := parsePrediction(`{"kcal": 1}`); err == nil {
		t.Fatalf("expected error for missing calories")
	}
}
