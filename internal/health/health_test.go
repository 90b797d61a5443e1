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

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/resilience"
)

func staticChecker(status string) Checker {
	return CheckerFunc(func(context.Context) CheckResult {
		return CheckResult{Status: status}
	})
}

func TestManager_Check(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]string
		expected string
	}{
		{"no dependencies", nil, StatusHealthy},
		{"all healthy", map[string]string{"a": StatusHealthy, "b": StatusHealthy}, StatusHealthy},
		{"one degraded", map[string]string{"a": StatusHealthy, "b": StatusDegraded}, StatusDegraded},
		{"unhealthy wins", map[string]string{"a": StatusDegraded, "b": StatusUnhealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewManager("healthai", "1.0.0", zap.NewNop())
			for name, status := range tt.statuses {
				manager.Register(name, staticChecker(status))
			}

			report := manager.Check(context.Background())
			if report.Status != tt.expected {
				t.Errorf("Expected status %s, got %s", tt.expected, report.Status)
			}
			if len(report.Dependencies) != len(tt.statuses) {
				t.Errorf("Expected %d dependencies, got %d", len(tt.statuses), len(report.Dependencies))
			}
			if report.Service != "healthai" {
				t.Errorf("Expected service healthai, got %s", report.Service)
			}
		})
	}
}

func TestManager_Timeout(t *testing.T) {
	manager := NewManager("healthai", "1.0.0", nil)
	manager.SetTimeout(20 * time.Millisecond)
	manager.Register("slow", ExternalServiceChecker("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	report := manager.Check(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("Expected a timed out dependency to be degraded, got %s", report.Status)
	}
}

func TestExternalServiceChecker(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"healthy", nil, StatusHealthy},
		{"temporary", errors.New("dial tcp: connection refused"), StatusDegraded},
		{"hard failure", errors.New("unexpected status 403"), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExternalServiceChecker("catalog", func(context.Context) error { return tt.err }).Check(context.Background())
			if result.Status != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result.Status)
			}
			if tt.err != nil && result.Error == "" {
				t.Error("Expected error message to be set")
			}
		})
	}
}

func TestBreakerChecker(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "openai",
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	}, zap.NewNop())
	checker := BreakerChecker(cb)

	if got := checker.Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("Expected closed breaker to be healthy, got %s", got)
	}

	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("boom") })

	result := checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("Expected open breaker to be degraded, got %s", result.Status)
	}
	if result.Metadata["state"] != "open" {
		t.Errorf("Expected state metadata open, got %v", result.Metadata["state"])
	}
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		status       string
		expectedCode int
	}{
		{"healthy", StatusHealthy, http.StatusOK},
		{"degraded", StatusDegraded, http.StatusOK},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewManager("healthai", "1.0.0", zap.NewNop())
			manager.Register("dep", staticChecker(tt.status))

			router := gin.New()
			router.GET("/health", manager.Handler())

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.expectedCode {
				t.Errorf("Expected code %d, got %d", tt.expectedCode, w.Code)
			}
			var report Report
			if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
				t.Fatalf("Failed to decode report: %v", err)
			}
			if report.Status != tt.status {
				t.Errorf("Expected status %s, got %s", tt.status, report.Status)
			}
		})
	}
}
