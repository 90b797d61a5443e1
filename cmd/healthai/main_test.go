// Copyright 2024 HealthAI Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/your-org/healthai-assistant/internal/config"
	"github.com/your-org/healthai-assistant/internal/domain"
)

const productJSON = `{"status": 1, "product": {"product_name": "Oat Drink", "brands": "Oatly", "nutrition_grades": "b",
  "nutriments": {"energy-kcal_100g": 46, "sugars_100g": 4}}}`

func chatResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"model":   "gpt-4o",
		"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		"usage":   map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
	return string(body)
}

// newTestEnv starts mock model and catalog servers and writes a config
// pointing at them.
func newTestEnv(t *testing.T, reply string) (configPath string, prompts *[]string) {
	t.Helper()
	for _, key := range []string{"CONFIG_PATH", "OPENAI_API_KEY", "OPENAI_ENDPOINT", "LOG_LEVEL", "LOG_OUTPUT", "OPENFOODFACTS_URL"} {
		t.Setenv(key, "")
	}

	var mu sync.Mutex
	var seen []string
	openaiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, string(body))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse(reply)))
	}))
	t.Cleanup(openaiServer.Close)

	catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/00000000") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(productJSON))
	}))
	t.Cleanup(catalogServer.Close)

	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
openai:
  api_key: "sk-test1234567890"  # pragma: allowlist secret
  endpoint: "%s/v1"
catalog:
  base_url: "%s/api/v2/product/"
  max_retries: 0
logging:
  level: error
  output: stderr
feedback:
  file_path: "%s"
`, openaiServer.URL, catalogServer.URL, filepath.Join(dir, "feedback.jsonl"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath, &seen
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "scan", "image", "coach", "report"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))

	scan, _, err := root.Find([]string{"scan"})
	require.NoError(t, err)
	for _, flag := range []string{"age", "gender", "weight", "height", "allergies", "goals"} {
		assert.NotNil(t, scan.Flags().Lookup(flag), flag)
	}
}

func TestScanCommand(t *testing.T) {
	configPath, prompts := newTestEnv(t, "## Verdict\nFine in moderation.")

	out, err := execute(t, "--config", configPath, "scan", "7394376616037", "--age", "41", "--gender", "male", "--allergies", "gluten")
	require.NoError(t, err)

	var result domain.BarcodeAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotNil(t, result.Product)
	assert.Equal(t, "Oat Drink", result.Product.Name)
	assert.Equal(t, "## Verdict\nFine in moderation.", result.Analysis)
	assert.True(t, strings.HasPrefix(result.Recommendation, "RECOMMENDED"))
	assert.Equal(t, "OpenFoodFacts + AI Analysis", result.Source)

	require.Len(t, *prompts, 1)
	assert.Contains(t, (*prompts)[0], "41 year old male")
	assert.Contains(t, (*prompts)[0], "gpt-4.1-mini")
}

func TestScanCommand_NotFoundSkipsModel(t *testing.T) {
	configPath, prompts := newTestEnv(t, "unused")

	out, err := execute(t, "--config", configPath, "scan", "00000000")
	require.NoError(t, err)

	var result domain.BarcodeAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "UNKNOWN - Product information unavailable", result.Recommendation)
	assert.Empty(t, *prompts)
}

func TestScanCommand_IncompleteProfile(t *testing.T) {
	configPath, _ := newTestEnv(t, "unused")
	_, err := execute(t, "--config", configPath, "scan", "7394376616037", "--allergies", "gluten")
	assert.Error(t, err)
}

func TestCoachCommand(t *testing.T) {
	reply := "Summary: Likely dehydration.\n\nPossible Causes:\n- Low water intake\n\nTips:\n- Drink water\n\nUrgency: Low"
	configPath, _ := newTestEnv(t, reply)

	out, err := execute(t, "--config", configPath, "coach", "I get headaches in the afternoon")
	require.NoError(t, err)

	var advice domain.CoachingAdvice
	require.NoError(t, json.Unmarshal([]byte(out), &advice))
	assert.Equal(t, "Likely dehydration.", advice.Summary)
	assert.Equal(t, []string{"Drink water"}, advice.Tips)
	assert.Equal(t, domain.UrgencyLow, advice.Urgency)
}

func TestImageCommand(t *testing.T) {
	reply := "```json\n{\"food_items\": [{\"name\": \"toast\", \"calories_kcal\": 120, \"confidence\": 0.8}], \"sources\": [\"vision\"]}\n```"
	configPath, prompts := newTestEnv(t, reply)

	imagePath := filepath.Join(t.TempDir(), "meal.png")
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 16)...)
	require.NoError(t, os.WriteFile(imagePath, png, 0600))

	out, err := execute(t, "--config", configPath, "image", imagePath)
	require.NoError(t, err)

	var result domain.NutritionAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.FoodItems, 1)
	assert.Equal(t, 120.0, result.TotalCalories)
	assert.Contains(t, (*prompts)[0], "data:image/png;base64,")
}

func TestReportCommand(t *testing.T) {
	configPath, _ := newTestEnv(t, "# Weekly Report\nGood week.")

	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "metrics.json")
	require.NoError(t, os.WriteFile(metricsPath, []byte(`{"steps": 8000}`), 0600))

	out, err := execute(t, "--config", configPath, "report", "--user", "u1", "--period", "weekly", "--metrics", metricsPath)
	require.NoError(t, err)
	var single map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &single))
	assert.Equal(t, "# Weekly Report\nGood week.", single["report"])

	batchPath := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(batchPath, []byte(`[{"user_id": "a", "report_type": "weekly"}, {"user_id": "b", "report_type": "monthly"}]`), 0600))
	out, err = execute(t, "--config", configPath, "report", "--batch", batchPath)
	require.NoError(t, err)
	var reports []string
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	assert.Len(t, reports, 2)

	_, err = execute(t, "--config", configPath, "report", "--user", "u1")
	assert.Error(t, err)
}

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &config.Config{Logging: config.LoggingConfig{Level: tt.level, Format: "json", Output: "stderr"}}
			logger, level, err := initializeLogger(cfg)
			require.NoError(t, err)
			assert.NotNil(t, logger)
			assert.Equal(t, tt.expected, level.Level())
		})
	}

	logPath := filepath.Join(t.TempDir(), "healthai.log")
	logger, _, err := initializeLogger(&config.Config{Logging: config.LoggingConfig{Level: "info", Format: "text", Output: logPath}})
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestProfileFlags(t *testing.T) {
	var pf profileFlags
	assert.Nil(t, pf.profile())

	pf.age = 30
	pf.gender = "female"
	pf.weight = 60.5
	p := pf.profile()
	require.NotNil(t, p)
	assert.True(t, p.IsValid())
	assert.Equal(t, 60.5, *p.Weight)
	assert.Nil(t, p.Height)
}
