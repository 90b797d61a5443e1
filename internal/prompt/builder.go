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

// Package prompt renders backend prompts for each analysis flow. Every
// builder is a pure function of its inputs.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/your-org/healthai-assistant/internal/domain"
)

// Section labels the coaching reply is parsed against.
const (
	LabelSummary = "Summary:"
	LabelCauses  = "Possible Causes:"
	LabelTips    = "Tips:"
	LabelUrgency = "Urgency:"
)

const profileUnavailable = "Profile not available - provide general guidance"

// Media is an attachment sent alongside the user prompt.
type Media struct {
	Data      []byte
	MediaType string
}

// Spec is a backend-ready prompt.
type Spec struct {
	UseCase domain.UseCase
	System  string
	User    string
	Media   *Media
}

// Build renders the prompt for a job. Product facts for barcode jobs come
// from the catalog, so callers use Barcode directly for that flow.
func Build(job domain.Job) Spec {
	switch job.UseCase {
	case domain.UseCaseFoodImage:
		return FoodImage(job.Profile, job.Image, job.MediaType)
	case domain.UseCaseCoaching:
		return Coaching(job.Profile, job.Message)
	case domain.UseCaseReport:
		req := job.Report
		if req.Profile == nil {
			req.Profile = job.Profile
		}
		return Report(req)
	default:
		return Spec{UseCase: job.UseCase, System: SystemPrompt(job.UseCase)}
	}
}

// Barcode renders the scanned-product prompt.
func Barcode(profile domain.Profile, product domain.ProductInfo) Spec {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Analyze this scanned food product for a %s year old %s with:\n",
		profile.SafeAge(), profile.SafeGender()))
	writeMeasurements(&b, profile)
	b.WriteString(fmt.Sprintf("Health conditions: %s\n", profile.SafeHealthConditions()))
	b.WriteString(fmt.Sprintf("Dietary preference: %s\n", profile.SafeDietaryPreferences()))
	b.WriteString(fmt.Sprintf("Allergies: %s\n", profile.SafeAllergies()))
	b.WriteString(fmt.Sprintf("Health goals: %s\n\n", profile.SafeHealthGoals()))

	b.WriteString("Scanned Product Information:\n")
	b.WriteString(fmt.Sprintf("Name: %s\n", product.Name))
	b.WriteString(fmt.Sprintf("Brand: %s\n", product.Brand))
	b.WriteString(fmt.Sprintf("Categories: %s\n", product.Categories))
	b.WriteString(fmt.Sprintf("Ingredients: %s\n\n", product.Ingredients))

	b.WriteString("Nutrition per 100g:\n")
	n := product.Nutrition
	writeNutrient(&b, "Energy", n.EnergyKcal, " kcal")
	writeNutrient(&b, "Protein", n.Proteins, "g")
	writeNutrient(&b, "Carbohydrates", n.Carbohydrates, "g")
	writeNutrient(&b, "Sugars", n.Sugars, "g")
	writeNutrient(&b, "Fat", n.Fat, "g")
	writeNutrient(&b, "Saturated fat", n.SaturatedFat, "g")
	writeNutrient(&b, "Fiber", n.Fiber, "g")
	writeNutrient(&b, "Salt", n.Salt, "g")

	b.WriteString("\nQuality Indicators:\n")
	b.WriteString(fmt.Sprintf("Nutri-score: %s\n", product.Quality.NutriScore))
	nova := "Not available"
	if product.Quality.NovaGroup != nil {
		nova = fmt.Sprintf("%d", *product.Quality.NovaGroup)
	}
	b.WriteString(fmt.Sprintf("NOVA group: %s\n", nova))
	b.WriteString(fmt.Sprintf("Eco-score: %s\n", product.Quality.EcoScore))
	if len(product.Allergens) > 0 {
		b.WriteString(fmt.Sprintf("Declared allergens: %s\n", strings.Join(product.Allergens, ", ")))
	}

	b.WriteString("\nPlease provide a comprehensive analysis including:\n")
	b.WriteString("1. Nutritional overview and quality assessment\n")
	b.WriteString("2. Health considerations for this user's conditions and goals\n")
	b.WriteString("3. Portion size recommendations\n")
	b.WriteString("4. Key benefits or concerns\n")
	b.WriteString("\nKeep the response under 400 words and format it in markdown.")

	return Spec{
		UseCase: domain.UseCaseBarcode,
		System:  SystemPrompt(domain.UseCaseBarcode),
		User:    b.String(),
	}
}

// FoodImage renders the image-analysis prompt. The JSON shape described
// here is the contract the nutrition extractor decodes.
func FoodImage(profile *domain.Profile, image []byte, mediaType string) Spec {
	var b strings.Builder

	b.WriteString("Analyze the food in this image.\n\n")
	writeProfile(&b, profile, "No user profile provided - estimate for a generic adult")

	b.WriteString("Respond with a single JSON object and nothing else, using exactly this structure:\n")
	b.WriteString(`{
  "food_items": [
    {
      "name": "string",
      "serving_size_g": number,
      "calories_kcal": number,
      "macros": {"protein_g": number, "fat_g": number, "carb_g": number},
      "micros": {"sodium_mg": number, "fiber_g": number},
      "confidence": number between 0 and 1
    }
  ],
  "total_estimated_calories_kcal": number,
  "sources": ["string"]
}`)
	b.WriteString("\n\nAll numeric fields must be JSON numbers, not strings. ")
	b.WriteString("confidence expresses how sure you are of the identification.")

	return Spec{
		UseCase: domain.UseCaseFoodImage,
		System:  SystemPrompt(domain.UseCaseFoodImage),
		User:    b.String(),
		Media:   &Media{Data: image, MediaType: mediaType},
	}
}

// Coaching renders the health-coaching prompt with its reply template.
func Coaching(profile *domain.Profile, message string) Spec {
	var b strings.Builder

	writeProfile(&b, profile, profileUnavailable)
	b.WriteString("USER MESSAGE:\n")
	b.WriteString(message)
	b.WriteString("\n\n")

	b.WriteString("Reply using exactly this format, separating sections with a blank line:\n\n")
	b.WriteString(LabelSummary + " [one or two sentences summarising the situation]\n\n")
	b.WriteString(LabelCauses + "\n- [first likely cause]\n- [second likely cause]\n\n")
	b.WriteString(LabelTips + "\n- [first tip]\n- [second tip]\n- [third tip]\n\n")
	b.WriteString(LabelUrgency + " [none/low/medium/high]")

	return Spec{
		UseCase: domain.UseCaseCoaching,
		System:  SystemPrompt(domain.UseCaseCoaching),
		User:    b.String(),
	}
}

// Report renders the periodic health report prompt.
func Report(req domain.ReportRequest) Spec {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Generate a %s health report for user %s.\n\n", req.Period, req.UserID))
	writeProfile(&b, req.Profile, profileUnavailable)
	b.WriteString("HEALTH METRICS FOR THIS PERIOD:\n")
	b.WriteString(renderMetrics(req.Metrics))
	b.WriteString("\n\n")
	b.WriteString("Compare each metric with typical values for people of the same age, sex and activity level, ")
	b.WriteString("and say clearly where the user is above or below those norms.\n")
	b.WriteString("Write a comprehensive, encouraging and actionable report in markdown.")

	return Spec{
		UseCase: domain.UseCaseReport,
		System:  SystemPrompt(domain.UseCaseReport),
		User:    b.String(),
	}
}

func writeProfile(b *strings.Builder, profile *domain.Profile, absent string) {
	b.WriteString("USER PROFILE:\n")
	if profile == nil {
		b.WriteString(absent)
		b.WriteString("\n\n")
		return
	}
	b.WriteString(fmt.Sprintf("Age: %s\n", profile.SafeAge()))
	b.WriteString(fmt.Sprintf("Gender: %s\n", profile.SafeGender()))
	writeMeasurements(b, *profile)
	b.WriteString(fmt.Sprintf("Health conditions: %s\n", profile.SafeHealthConditions()))
	b.WriteString(fmt.Sprintf("Dietary preference: %s\n", profile.SafeDietaryPreferences()))
	b.WriteString(fmt.Sprintf("Allergies: %s\n", profile.SafeAllergies()))
	b.WriteString(fmt.Sprintf("Health goals: %s\n", profile.SafeHealthGoals()))
	b.WriteString(fmt.Sprintf("Activity level: %s\n\n", profile.SafeActivityLevel()))
}

func writeMeasurements(b *strings.Builder, profile domain.Profile) {
	if weight, height, ok := profile.BodyMeasurements(); ok {
		b.WriteString(fmt.Sprintf("Weight: %skg\n", weight))
		b.WriteString(fmt.Sprintf("Height: %scm\n", height))
	}
}

func writeNutrient(b *strings.Builder, label string, value *float64, unit string) {
	if value == nil {
		return
	}
	b.WriteString(fmt.Sprintf("%s: %s%s\n", label, domain.FormatNumber(*value), unit))
}

// renderMetrics serialises metrics with sorted keys so the prompt is stable.
func renderMetrics(metrics map[string]any) string {
	if len(metrics) == 0 {
		return "{}"
	}
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", metrics)
	}
	return string(data)
}
