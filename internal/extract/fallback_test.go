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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/healthai-assistant/internal/domain"
)

func TestFallback_PerUseCase(t *testing.T) {
	tests := []struct {
		job   domain.Job
		check func(t *testing.T, r domain.Result)
	}{
		{
			job: domain.Job{UseCase: domain.UseCaseBarcode, Barcode: "12345678"},
			check: func(t *testing.T, r domain.Result) {
				require.NotNil(t, r.Barcode)
				assert.Equal(t, "12345678", r.Barcode.Product.Barcode)
				assert.Equal(t, UnavailableNarrative, r.Barcode.Analysis)
				assert.True(t, strings.HasPrefix(r.Barcode.Recommendation, "REVIEW"))
				assert.NotNil(t, r.Barcode.Product.Allergens)
			},
		},
		{
			job: domain.Job{UseCase: domain.UseCaseFoodImage},
			check: func(t *testing.T, r domain.Result) {
				require.NotNil(t, r.Nutrition)
				assert.Equal(t, 0.0, r.Nutrition.TotalCalories)
				assert.NotNil(t, r.Nutrition.FoodItems)
				assert.Empty(t, r.Nutrition.FoodItems)
			},
		},
		{
			job: domain.Job{UseCase: domain.UseCaseCoaching},
			check: func(t *testing.T, r domain.Result) {
				require.NotNil(t, r.Coaching)
				assert.NotEmpty(t, r.Coaching.Summary)
				assert.Len(t, r.Coaching.PossibleCauses, 1)
				assert.Len(t, r.Coaching.Tips, 3)
				assert.Equal(t, "medium", r.Coaching.Urgency)
			},
		},
		{
			job: domain.Job{UseCase: domain.UseCaseReport, Report: domain.ReportRequest{Period: "weekly"}},
			check: func(t *testing.T, r domain.Result) {
				assert.True(t, strings.HasPrefix(r.Report, "# Weekly Health Report\n\n## Summary\n"))
				assert.Contains(t, r.Report, "## Next Steps")
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.job.UseCase), func(t *testing.T) {
			r := Fallback(tt.job)
			assert.True(t, r.Fallback)
			assert.Equal(t, tt.job.UseCase, r.UseCase)
			tt.check(t, r)
			assert.Equal(t, r, Fallback(tt.job))
		})
	}
}

func TestFallbackReport_Title(t *testing.T) {
	assert.True(t, strings.HasPrefix(FallbackReport("MONTHLY"), "# Monthly Health Report"))
	assert.True(t, strings.HasPrefix(FallbackReport(""), "# Health Report"))
}

func TestFallbackCoaching_IsIndependentCopy(t *testing.T) {
	a := FallbackCoaching()
	a.Tips[0] = "changed"
	assert.NotEqual(t, "changed", FallbackCoaching().Tips[0])
}
