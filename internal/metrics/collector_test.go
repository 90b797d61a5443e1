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

package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/healthai-assistant/internal/domain"
)

func TestRecord_CountsOutcomes(t *testing.T) {
	mc := NewMetricsCollector(zaptest.NewLogger(t), nil)

	mc.Record(domain.UseCaseCoaching, domain.OutcomeExtracted, 100*time.Millisecond)
	mc.Record(domain.UseCaseCoaching, domain.OutcomeFallback, 300*time.Millisecond)
	mc.Record(domain.UseCaseBarcode, domain.OutcomeNotFound, 10*time.Millisecond)
	mc.Record(domain.UseCaseBarcode, domain.OutcomeGenerationFailed, 30*time.Millisecond)

	snap := mc.GetMetrics()
	coaching := snap.ByUseCase[domain.UseCaseCoaching]
	assert.Equal(t, int64(2), coaching.Total)
	assert.Equal(t, int64(1), coaching.Extracted)
	assert.Equal(t, int64(1), coaching.Fallback)
	assert.InDelta(t, 0.5, coaching.DegradedRate, 1e-9)
	assert.InDelta(t, 200, coaching.AvgLatencyMs, 1e-9)

	barcode := snap.ByUseCase[domain.UseCaseBarcode]
	assert.Equal(t, int64(1), barcode.NotFound)
	assert.Equal(t, int64(1), barcode.GenerationFailed)
	assert.InDelta(t, 0.5, barcode.DegradedRate, 1e-9)
}

func TestRecord_AlertsOnDegradation(t *testing.T) {
	var mu sync.Mutex
	var alerts []string
	mc := NewMetricsCollector(zaptest.NewLogger(t), func(alertType, _ string, metadata map[string]any) {
		mu.Lock()
		defer mu.Unlock()
		alerts = append(alerts, alertType)
		assert.Equal(t, "food_image", metadata["use_case"])
	})
	mc.SetAlerting(AlertingConfig{DegradedRateThreshold: 0.5, MinSamples: 4})

	for i := 0; i < 3; i++ {
		mc.Record(domain.UseCaseFoodImage, domain.OutcomeFallback, time.Millisecond)
	}
	assert.Empty(t, alerts)
	require.NoError(t, mc.HealthCheck(context.Background()))

	mc.Record(domain.UseCaseFoodImage, domain.OutcomeExtracted, time.Millisecond)
	assert.Equal(t, []string{"DEGRADED_RESULTS"}, alerts)
	assert.Error(t, mc.HealthCheck(context.Background()))
}

func TestResetMetrics(t *testing.T) {
	mc := NewMetricsCollector(nil, nil)
	mc.Record(domain.UseCaseReport, domain.OutcomeExtracted, time.Millisecond)
	mc.ResetMetrics()
	assert.Empty(t, mc.GetMetrics().ByUseCase)
}

func TestRecord_Concurrent(t *testing.T) {
	mc := NewMetricsCollector(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mc.Record(domain.UseCaseReport, domain.OutcomeExtracted, time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), mc.GetMetrics().ByUseCase[domain.UseCaseReport].Total)
}
