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

package catalog

import (
	"strings"

	"github.com/your-org/healthai-assistant/internal/domain"
)

// Verdict is the rule-based recommendation class of a product.
type Verdict string

const (
	VerdictRecommended Verdict = "RECOMMENDED"
	VerdictCaution     Verdict = "CAUTION"
	VerdictAvoid       Verdict = "AVOID"
	VerdictReview      Verdict = "REVIEW"
	VerdictUnknown     Verdict = "UNKNOWN"
)

// Sources reported with a barcode analysis.
const (
	SourceAnalysed = "OpenFoodFacts + AI Analysis"
	SourceNotFound = "OpenFoodFacts - Product Not Found"
)

const (
	notFoundNarrative = "Product not found in OpenFoodFacts database. This could mean the product is not yet catalogued or the barcode was scanned incorrectly."
	notFoundPageURL   = "https://world.openfoodfacts.org/cgi/product_jqm2.pl?code="
)

var recommendations = map[Verdict]string{
	VerdictRecommended: "RECOMMENDED - This product has good nutritional quality.",
	VerdictCaution:     "CAUTION - Moderate nutritional quality. Consider portion sizes.",
	VerdictAvoid:       "AVOID - Poor nutritional quality. Look for healthier alternatives.",
	VerdictReview:      "REVIEW - Nutritional information incomplete. Check ingredients carefully.",
	VerdictUnknown:     "UNKNOWN - Product information unavailable",
}

const missingGradeRecommendation = "REVIEW - Unable to determine recommendation. Consult nutritional information."

// Classify maps a nutri-score grade onto a verdict.
func Classify(grade string) Verdict {
	switch strings.ToLower(strings.TrimSpace(grade)) {
	case "a", "b":
		return VerdictRecommended
	case "c":
		return VerdictCaution
	case "d", "e":
		return VerdictAvoid
	default:
		return VerdictReview
	}
}

// Recommendation returns the recommendation text for a nutri-score grade.
func Recommendation(grade string) string {
	if strings.TrimSpace(grade) == "" {
		return missingGradeRecommendation
	}
	return recommendations[Classify(grade)]
}

// NotFound is the analysis returned when the catalog has no usable record.
func NotFound(barcode string) domain.BarcodeAnalysis {
	return domain.BarcodeAnalysis{
		Product: domain.ProductInfo{
			Name:        "Product Not Found",
			Brand:       "Unknown",
			Categories:  "Unknown",
			Ingredients: notAvailable,
			Barcode:     barcode,
			URL:         notFoundPageURL + barcode,
			Quality:     domain.QualityScores{NutriScore: notAvailable, EcoScore: notAvailable},
			Additives:   []string{},
			Allergens:   []string{},
			Labels:      []string{},
		},
		Analysis:       notFoundNarrative,
		Recommendation: recommendations[VerdictUnknown],
		Source:         SourceNotFound,
	}
}
