// Package predict calls a remote calorie-prediction model through an MCP
// tool proxy.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mcp-meal-plan/internal/models"
	"mcp-meal-plan/internal/targets"
)

const DefaultTool = "predict_calories"

// Features is the model's input row.
type Features struct {
	Age                  float64 `json:"age"`
	HeightCm             float64 `json:"height_cm"`
	WeightKg             float64 `json:"weight_kg"`
	ActivityLevelEncoded int     `json:"activity_level_encoded"`
	GoalBinary           int     `json:"goal_binary"`
}

var activityCodes = map[models.ActivityLevel]int{
	models.Sedentary:  0,
	models.Light:      1,
	models.Moderate:   2,
	models.Active:     3,
	models.VeryActive: 4,
}

func FeaturesFor(p models.UserProfile) Features {
	level, _ := targets.ParseActivityLevel(string(p.ActivityLevel))
	goal, _ := targets.ParseGoal(string(p.Goal))
	f := Features{
		Age:                  p.Age,
		HeightCm:             p.HeightCm,
		WeightKg:             p.WeightKg,
		ActivityLevelEncoded: activityCodes[level],
	}
	if goal == models.WeightGain {
		f.GoalBinary = 1
	}
	return f
}

type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	tool       string
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        strings.TrimRight(url, "/"),
		apiKey:     apiKey,
		tool:       DefaultTool,
	}
}

// Predict returns the model's daily calorie estimate for p.
func (c *Client) Predict(ctx context.Context, p models.UserProfile) (float64, error) {
	text, err := c.callTool(ctx, FeaturesFor(p))
	if err != nil {
		return 0, err
	}
	return parsePrediction(text)
}

func (c *Client) callTool(ctx context.Context, args interface{}) (string, error) {
	requestData := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      c.tool,
			"arguments": args,
		},
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("request failed with status %d and couldn't read body: %v", resp.StatusCode, err)
		}
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var rpc struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if rpc.Error != nil {
		return "", fmt.Errorf("predictor error: %s", rpc.Error.Message)
	}
	if len(rpc.Result.Content) == 0 {
		return "", fmt.Errorf("unexpected response format")
	}
	if rpc.Result.IsError {
		return "", fmt.Errorf("predictor error: %s", rpc.Result.Content[0].Text)
	}
	return rpc.Result.Content[0].Text, nil
}

// parsePrediction accepts a bare number or {"calories": n}.
func parsePrediction(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v, nil
	}
	var body struct {
		Calories *float64 `json:"calories"`
	}
	if err := json.Unmarshal([]byte(text), &body); err != nil || body.Calories == nil {
		return 0, fmt.Errorf("unparsable prediction %q", text)
	}
	return *body.Calories, nil
}
