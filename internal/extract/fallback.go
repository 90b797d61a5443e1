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
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/your-org/healthai-assistant/internal/domain"
)

// Stock content used when a reply cannot be used at all.
const (
	UnavailableNarrative = "Unable to generate detailed analysis at this time. Please consult with a nutritionist for personalized advice."

	fallbackSummary = "I understand you have some health concerns. Here's some general guidance."
	fallbackCause   = "Various factors could contribute to how you're feeling"

	FallbackSource = "AI Analysis Unavailable"
)

var fallbackTips = []string{
	"Consider speaking with a healthcare professional",
	"Maintain a balanced diet and stay hydrated",
	"Get adequate sleep and manage stress levels",
}

// FallbackNutrition is an empty breakdown with zero totals.
func FallbackNutrition() domain.NutritionAnalysis {
	return domain.NutritionAnalysis{
		FoodItems:     []domain.FoodItem{},
		TotalCalories: 0,
		Sources:       []string{},
	}
}

// FallbackCoaching is generic advice with medium urgency.
func FallbackCoaching() domain.CoachingAdvice {
	return domain.CoachingAdvice{
		Summary:        fallbackSummary,
		PossibleCauses: []string{fallbackCause},
		Tips:           append([]string(nil), fallbackTips...),
		Urgency:        domain.UrgencyMedium,
	}
}

// FallbackReport is an encouraging placeholder report for period.
func FallbackReport(period string) string {
	var b strings.Builder
	b.WriteString("# ")
	if title := capitalize(strings.TrimSpace(period)); title != "" {
		b.WriteString(title)
		b.WriteString(" ")
	}
	b.WriteString("Health Report\n\n")
	b.WriteString("## Summary\n")
	b.WriteString("Thank you for tracking your health metrics! We're currently processing your data and will have a detailed report available soon.\n\n")
	b.WriteString("## General Recommendations\n")
	b.WriteString("- Continue tracking your daily habits\n")
	b.WriteString("- Maintain a balanced diet with plenty of vegetables\n")
	b.WriteString("- Aim for regular physical activity\n")
	b.WriteString("- Prioritize quality sleep\n")
	b.WriteString("- Stay hydrated throughout the day\n\n")
	b.WriteString("## Next Steps\n")
	b.WriteString("Keep up the great work with your health journey!")
	return b.String()
}

// FallbackBarcode is used when a scan could not be processed at all. It
// carries no catalog facts.
func FallbackBarcode(barcode string) domain.BarcodeAnalysis {
	return domain.BarcodeAnalysis{
		Product: domain.ProductInfo{
			Name:        "Unknown Product",
			Brand:       "Unknown Brand",
			Categories:  "Unknown",
			Ingredients: "Not available",
			Barcode:     barcode,
			URL:         "https://world.openfoodfacts.org/product/" + barcode,
			Quality:     domain.QualityScores{NutriScore: "Not available", EcoScore: "Not available"},
			Additives:   []string{},
			Allergens:   []string{},
			Labels:      []string{},
		},
		Analysis:       UnavailableNarrative,
		Recommendation: "REVIEW - Unable to determine recommendation. Consult nutritional information.",
		Source:         FallbackSource,
	}
}

// Fallback builds the fallback result for a job's use case.
func Fallback(job domain.Job) domain.Result {
	result := domain.Result{UseCase: job.UseCase, Fallback: true}
	switch job.UseCase {
	case domain.UseCaseBarcode:
		b := FallbackBarcode(job.Barcode)
		result.Barcode = &b
	case domain.UseCaseFoodImage:
		n := FallbackNutrition()
		result.Nutrition = &n
	case domain.UseCaseCoaching:
		c := FallbackCoaching()
		result.Coaching = &c
	default:
		result.Report = FallbackReport(job.Report.Period)
	}
	return result
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
