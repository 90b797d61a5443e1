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

package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/your-org/healthai-assistant/internal/domain"
)

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	trailingFence = regexp.MustCompile("\r?\n?```$")
)

// StripCodeFence removes a leading ```label fence and a trailing ``` fence.
func StripCodeFence(reply string) string {
	s := strings.TrimSpace(reply)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// nutritionDocument mirrors the schema requested from the backend. Pointers
// distinguish a missing key from a zero value.
type nutritionDocument struct {
	FoodItems     *[]domain.FoodItem `json:"food_items"`
	TotalCalories *float64           `json:"total_estimated_calories_kcal"`
	Sources       []string           `json:"sources"`
}

// Nutrition decodes a food-image reply.
func Nutrition(reply string) Outcome[domain.NutritionAnalysis] {
	body := StripCodeFence(reply)
	if body == "" {
		return useFallback[domain.NutritionAnalysis](ErrEmptyReply)
	}

	var doc nutritionDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return useFallback[domain.NutritionAnalysis](fmt.Errorf("decode nutrition reply: %w", err))
	}
	if doc.FoodItems == nil {
		return useFallback[domain.NutritionAnalysis](fmt.Errorf("schema mismatch: food_items missing"))
	}

	items := *doc.FoodItems
	var sum float64
	for i := range items {
		items[i].Confidence = clamp(items[i].Confidence, 0, 1)
		sum += items[i].CaloriesKcal
	}
	if items == nil {
		items = []domain.FoodItem{}
	}

	result := domain.NutritionAnalysis{
		FoodItems:     items,
		TotalCalories: sum,
		Sources:       doc.Sources,
	}
	if doc.TotalCalories != nil {
		result.TotalCalories = *doc.TotalCalories
	}
	if result.Sources == nil {
		result.Sources = []string{}
	}
	return ok(result)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
