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

// Package metrics tracks analysis outcomes per use case and raises alerts
// when degradation crosses configured thresholds.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/domain"
)

// UseCaseMetrics tracks the outcomes of one analysis flow
type UseCaseMetrics struct {
	Total            int64   `json:"total"`
	Extracted        int64   `json:"extracted"`
	Fallback         int64   `json:"fallback"`
	GenerationFailed int64   `json:"generation_failed"`
	NotFound         int64   `json:"not_found"`
	DegradedRate     float64 `json:"degraded_rate"`
	AvgLatencyMs     float64 `json:"average_latency_ms"`
}

// AlertingConfig defines thresholds for alerting
type AlertingConfig struct {
	DegradedRateThreshold float64 `json:"degraded_rate_threshold"`
	MinSamples            int64   `json:"min_samples"`
	LatencyThresholdMs    float64 `json:"latency_threshold_ms"`
}

// AlertFunc receives alerts raised by the collector.
type AlertFunc func(alertType, message string, metadata map[string]any)

// MetricsCollector aggregates analysis outcomes. It is safe for concurrent use.
type MetricsCollector struct {
	mu            sync.RWMutex
	byUseCase     map[domain.UseCase]*UseCaseMetrics
	alerting      AlertingConfig
	lastReset     time.Time
	logger        *zap.Logger
	alertCallback AlertFunc
}

// NewMetricsCollector creates a collector. A nil alertCallback only logs.
func NewMetricsCollector(logger *zap.Logger, alertCallback AlertFunc) *MetricsCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	mc := &MetricsCollector{
		alerting: AlertingConfig{
			DegradedRateThreshold: 0.25,
			MinSamples:            10,
			LatencyThresholdMs:    30000,
		},
		logger:        logger,
		alertCallback: alertCallback,
	}
	mc.reset()
	return mc
}

// SetAlerting replaces the alert thresholds.
func (mc *MetricsCollector) SetAlerting(cfg AlertingConfig) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.alerting = cfg
}

// Record counts one analysis. Fallback and generation failures both count
// as degraded; a not-found product does not.
func (mc *MetricsCollector) Record(uc domain.UseCase, outcome domain.Outcome, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m, ok := mc.byUseCase[uc]
	if !ok {
		m = &UseCaseMetrics{}
		mc.byUseCase[uc] = m
	}

	m.Total++
	switch outcome {
	case domain.OutcomeExtracted:
		m.Extracted++
	case domain.OutcomeFallback:
		m.Fallback++
	case domain.OutcomeGenerationFailed:
		m.GenerationFailed++
	case domain.OutcomeNotFound:
		m.NotFound++
	}

	latency := float64(duration.Milliseconds())
	m.AvgLatencyMs = (m.AvgLatencyMs*float64(m.Total-1) + latency) / float64(m.Total)
	m.DegradedRate = float64(m.Fallback+m.GenerationFailed) / float64(m.Total)

	if m.Total >= mc.alerting.MinSamples && m.DegradedRate > mc.alerting.DegradedRateThreshold {
		mc.triggerAlert("DEGRADED_RESULTS", fmt.Sprintf("%s fallback rate exceeded threshold", uc), map[string]any{
			"use_case":  string(uc),
			"rate":      m.DegradedRate,
			"threshold": mc.alerting.DegradedRateThreshold,
		})
	}
	if mc.alerting.LatencyThresholdMs > 0 && m.AvgLatencyMs > mc.alerting.LatencyThresholdMs {
		mc.triggerAlert("LATENCY_HIGH", fmt.Sprintf("%s average latency exceeded threshold", uc), map[string]any{
			"use_case":     string(uc),
			"average_ms":   m.AvgLatencyMs,
			"threshold_ms": mc.alerting.LatencyThresholdMs,
		})
	}
}

// Snapshot is a copy of the collected metrics.
type Snapshot struct {
	ByUseCase map[domain.UseCase]UseCaseMetrics `json:"by_use_case"`
	Alerting  AlertingConfig                    `json:"alerting_config"`
	Since     time.Time                         `json:"since"`
}

// GetMetrics returns a snapshot of the collected metrics
func (mc *MetricsCollector) GetMetrics() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := Snapshot{
		ByUseCase: make(map[domain.UseCase]UseCaseMetrics, len(mc.byUseCase)),
		Alerting:  mc.alerting,
		Since:     mc.lastReset,
	}
	for uc, m := range mc.byUseCase {
		out.ByUseCase[uc] = *m
	}
	return out
}

// ResetMetrics clears all counters
func (mc *MetricsCollector) ResetMetrics() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.reset()
	mc.logger.Info("Analysis metrics reset")
}

func (mc *MetricsCollector) reset() {
	mc.byUseCase = make(map[domain.UseCase]*UseCaseMetrics)
	mc.lastReset = time.Now()
}

// triggerAlert must be called with mc.mu held.
func (mc *MetricsCollector) triggerAlert(alertType, message string, metadata map[string]any) {
	mc.logger.Warn("Metrics alert",
		zap.String("alert_type", alertType),
		zap.String("message", message),
		zap.Any("metadata", metadata))
	if mc.alertCallback != nil {
		mc.alertCallback(alertType, message, metadata)
	}
}

// HealthCheck reports unhealthy when any use case is above the degraded
// threshold with enough samples.
func (mc *MetricsCollector) HealthCheck(_ context.Context) error {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	for uc, m := range mc.byUseCase {
		if m.Total >= mc.alerting.MinSamples && m.DegradedRate > mc.alerting.DegradedRateThreshold {
			return fmt.Errorf("%s degraded rate %.2f above %.2f", uc, m.DegradedRate, mc.alerting.DegradedRateThreshold)
		}
	}
	return nil
}
