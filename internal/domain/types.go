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

// Package domain holds the request-scoped values that flow through the
// analysis pipeline.
package domain

// UseCase selects one of the analysis flows.
type UseCase string

const (
	UseCaseBarcode   UseCase = "barcode"
	UseCaseFoodImage UseCase = "food_image"
	UseCaseCoaching  UseCase = "coaching"
	UseCaseReport    UseCase = "report"
)

// UseCases lists every flow in a stable order.
var UseCases = []UseCase{UseCaseBarcode, UseCaseFoodImage, UseCaseCoaching, UseCaseReport}

// Valid reports whether u names a known flow.
func (u UseCase) Valid() bool {
	for _, known := range UseCases {
		if u == known {
			return true
		}
	}
	return false
}

// Job is a single analysis request. Only the payload fields of its use
// case are read.
type Job struct {
	UseCase UseCase
	Profile *Profile

	Barcode string

	Image     []byte
	MediaType string

	Message string

	Report ReportRequest
}

// ReportRequest is the payload of a report job.
type ReportRequest struct {
	UserID  string         `json:"user_id"`
	Period  string         `json:"report_type"`
	Metrics map[string]any `json:"metrics"`
	Profile *Profile       `json:"profile,omitempty"`
}

// Nutrition holds per-100g values. Absent values stay nil.
type Nutrition struct {
	EnergyKcal    *float64 `json:"energy_kcal_100g"`
	Proteins      *float64 `json:"proteins_100g"`
	Carbohydrates *float64 `json:"carbohydrates_100g"`
	Sugars        *float64 `json:"sugars_100g"`
	Fat           *float64 `json:"fat_100g"`
	SaturatedFat  *float64 `json:"saturated_fat_100g"`
	Fiber         *float64 `json:"fiber_100g"`
	Salt          *float64 `json:"salt_100g"`
	Sodium        *float64 `json:"sodium_100g"`
}

// QualityScores are the catalog's grading of a product.
type QualityScores struct {
	NutriScore string `json:"nutri_score"`
	NovaGroup  *int   `json:"nova_group"`
	EcoScore   string `json:"eco_score"`
}

// ProductInfo is a normalised catalog record.
type ProductInfo struct {
	Name        string        `json:"name"`
	Brand       string        `json:"brand"`
	Categories  string        `json:"categories"`
	Ingredients string        `json:"ingredients"`
	Barcode     string        `json:"barcode"`
	URL         string        `json:"openfoodfacts_url"`
	Nutrition   Nutrition     `json:"nutrition_per_100g"`
	Quality     QualityScores `json:"quality_scores"`
	Additives   []string      `json:"additives"`
	Allergens   []string      `json:"allergens"`
	Labels      []string      `json:"labels"`
}

// BarcodeAnalysis is the result of a scanned-product analysis.
type BarcodeAnalysis struct {
	Product        ProductInfo `json:"product"`
	Analysis       string      `json:"analysis"`
	Recommendation string      `json:"recommendation"`
	Source         string      `json:"source"`
}

type Macros struct {
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbG    float64 `json:"carb_g"`
}

type Micros struct {
	SodiumMg float64 `json:"sodium_mg"`
	FiberG   float64 `json:"fiber_g"`
}

// FoodItem is one dish or ingredient recognised in an image.
type FoodItem struct {
	Name         string  `json:"name"`
	ServingSizeG float64 `json:"serving_size_g"`
	CaloriesKcal float64 `json:"calories_kcal"`
	Macros       Macros  `json:"macros"`
	Micros       Micros  `json:"micros"`
	Confidence   float64 `json:"confidence"`
}

// NutritionAnalysis is the breakdown of a food image.
type NutritionAnalysis struct {
	FoodItems     []FoodItem `json:"food_items"`
	TotalCalories float64    `json:"total_estimated_calories_kcal"`
	Sources       []string   `json:"sources"`
}

// Urgency levels understood by clients.
const (
	UrgencyNone   = "none"
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// CoachingAdvice is a structured coaching reply.
type CoachingAdvice struct {
	Summary        string   `json:"summary"`
	PossibleCauses []string `json:"possible_causes"`
	Tips           []string `json:"tips"`
	Urgency        string   `json:"urgency"`
}

// Result is the outcome of Job. Exactly one payload matching UseCase is set.
type Result struct {
	UseCase   UseCase            `json:"use_case"`
	Barcode   *BarcodeAnalysis   `json:"barcode,omitempty"`
	Nutrition *NutritionAnalysis `json:"nutrition,omitempty"`
	Coaching  *CoachingAdvice    `json:"coaching,omitempty"`
	Report    string             `json:"report,omitempty"`
	Fallback  bool               `json:"fallback"`
}

// Outcome labels how a result was produced.
type Outcome string

const (
	OutcomeExtracted        Outcome = "extracted"
	OutcomeFallback         Outcome = "fallback"
	OutcomeGenerationFailed Outcome = "generation_failed"
	OutcomeNotFound         Outcome = "not_found"
)
