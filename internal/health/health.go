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

// Package health reports the readiness of the analysis service and its
// dependencies.
package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/resilience"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
	// DefaultTimeout bounds a whole round of checks
	DefaultTimeout = 5 * time.Second
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Status    string         `json:"status"`
	Latency   time.Duration  `json:"latency"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Report is the body served by the health endpoint.
type Report struct {
	Status       string                 `json:"status"`
	Service      string                 `json:"service"`
	Version      string                 `json:"version"`
	Environment  string                 `json:"environment"`
	Uptime       string                 `json:"uptime"`
	Dependencies map[string]CheckResult `json:"dependencies"`
	Runtime      map[string]any         `json:"runtime"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Checker probes one dependency.
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) CheckResult

// Check implements Checker
func (f CheckerFunc) Check(ctx context.Context) CheckResult {
	return f(ctx)
}

// Manager runs registered checkers and folds them into one status.
type Manager struct {
	serviceName string
	version     string
	startTime   time.Time
	names       []string
	checkers    map[string]Checker
	timeout     time.Duration
	logger      *zap.Logger
}

// NewManager creates a new health check manager
func NewManager(serviceName, version string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		checkers:    make(map[string]Checker),
		timeout:     DefaultTimeout,
		logger:      logger,
	}
}

// SetTimeout sets the timeout for a round of checks
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.timeout = timeout
}

// Register adds a named checker. Registering a name twice replaces it.
func (m *Manager) Register(name string, checker Checker) {
	if _, exists := m.checkers[name]; !exists {
		m.names = append(m.names, name)
		sort.Strings(m.names)
	}
	m.checkers[name] = checker
}

// Check runs every checker and aggregates. One unhealthy dependency makes
// the service unhealthy; a degraded one only degrades it.
func (m *Manager) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	deps := make(map[string]CheckResult, len(m.checkers))
	overall := StatusHealthy

	for _, name := range m.names {
		start := time.Now()
		result := m.checkers[name].Check(ctx)
		result.Latency = time.Since(start)
		result.Timestamp = time.Now()
		deps[name] = result

		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall != StatusUnhealthy {
				overall = StatusDegraded
			}
		}
		if result.Status != StatusHealthy {
			m.logger.Warn("Dependency check not healthy",
				zap.String("dependency", name),
				zap.String("status", result.Status),
				zap.String("error", result.Error))
		}
	}

	return Report{
		Status:       overall,
		Service:      m.serviceName,
		Version:      m.version,
		Environment:  environment(),
		Uptime:       time.Since(m.startTime).Round(time.Second).String(),
		Dependencies: deps,
		Runtime:      runtimeInfo(),
		Timestamp:    time.Now(),
	}
}

// Handler serves the report; unhealthy maps to 503, degraded stays 200.
func (m *Manager) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := m.Check(c.Request.Context())
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}

// ExternalServiceChecker wraps a ping. Transient network failures report
// degraded rather than unhealthy.
func ExternalServiceChecker(name string, ping func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			status := StatusUnhealthy
			if isTemporaryError(err) {
				status = StatusDegraded
			}
			return CheckResult{
				Status:   status,
				Error:    fmt.Sprintf("%s check failed: %v", name, err),
				Metadata: map[string]any{"service": name},
			}
		}
		return CheckResult{Status: StatusHealthy, Metadata: map[string]any{"service": name}}
	})
}

// BreakerChecker reports an open generation breaker as degraded: requests
// still complete with fallback content.
func BreakerChecker(cb *resilience.CircuitBreaker) Checker {
	return CheckerFunc(func(_ context.Context) CheckResult {
		stats := cb.Stats()
		status := StatusHealthy
		switch cb.State() {
		case resilience.CircuitOpen, resilience.CircuitHalfOpen:
			status = StatusDegraded
		}
		return CheckResult{
			Status: status,
			Metadata: map[string]any{
				"breaker":              stats.Name,
				"state":                stats.State,
				"consecutive_failures": stats.Failures,
				"rejected":             stats.Rejected,
			},
		}
	})
}

// ErrorChecker maps a non-nil error to degraded.
func ErrorChecker(check func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		if err := check(ctx); err != nil {
			return CheckResult{Status: StatusDegraded, Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy}
	})
}

func runtimeInfo() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return map[string]any{
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"memory_alloc": mem.Alloc,
		"gc_runs":      mem.NumGC,
	}
}

func environment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "unknown"
}

func isTemporaryError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"connection refused",
		"temporary failure",
		"network is unreachable",
		"context deadline exceeded",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
