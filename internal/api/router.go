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

// Package api exposes the analysis service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/feedback"
	"github.com/your-org/healthai-assistant/internal/metrics"
)

const (
	HeaderAnalysisID = "X-Analysis-ID"
	HeaderRequestID  = "X-Request-ID"

	DefaultMaxImageBytes = 5 << 20
	DefaultMaxBatchSize  = 50
	DefaultBatchTimeout  = 5 * time.Minute
)

// Analyzer is the analysis surface the handlers drive.
type Analyzer interface {
	AnalyzeBarcode(ctx context.Context, barcode string, profile domain.Profile) domain.BarcodeAnalysis
	LookupBarcode(ctx context.Context, barcode string) domain.BarcodeAnalysis
	AnalyzeImage(ctx context.Context, image []byte, mediaType string, profile *domain.Profile) domain.NutritionAnalysis
	Advise(ctx context.Context, message string, profile *domain.Profile) domain.CoachingAdvice
	GenerateReport(ctx context.Context, req domain.ReportRequest) string
	GenerateReports(ctx context.Context, reqs []domain.ReportRequest) []string
}

// FeedbackStore persists ratings.
type FeedbackStore interface {
	Record(f feedback.Feedback) (feedback.Feedback, error)
}

// MetricsSource serves the outcome counters.
type MetricsSource interface {
	GetMetrics() metrics.Snapshot
}

// Config holds the request limits enforced by the handlers.
type Config struct {
	ServiceName   string
	MaxImageBytes int64
	MaxBatchSize  int
	BatchTimeout  time.Duration
}

// Dependencies wires the router. Feedback, Metrics and Health may be nil;
// their routes are then not registered.
type Dependencies struct {
	Analyzer Analyzer
	Feedback FeedbackStore
	Metrics  MetricsSource
	Health   gin.HandlerFunc
}

// Server holds handler state.
type Server struct {
	deps   Dependencies
	cfg    Config
	logger *zap.Logger
}

// NewRouter builds the gin engine with CORS, tracing, request ids and
// access logging in front of the /api/v1 routes.
func NewRouter(deps Dependencies, cfg Config, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "healthai"
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	s := &Server{deps: deps, cfg: cfg, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "X-Requested-With", HeaderRequestID},
		ExposeHeaders:   []string{HeaderAnalysisID, HeaderRequestID},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(requestID())
	router.Use(accessLog(logger))
	router.MaxMultipartMemory = cfg.MaxImageBytes + 1<<20

	if deps.Health != nil {
		router.GET("/health", deps.Health)
	}
	if deps.Metrics != nil {
		router.GET("/metrics", func(c *gin.Context) {
			c.JSON(http.StatusOK, deps.Metrics.GetMetrics())
		})
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/barcode/scan", s.scanBarcode)
		v1.GET("/barcode/lookup/:barcode", s.lookupBarcode)
		v1.POST("/food/analyze", s.analyzeFood)
		v1.POST("/coach/advice", s.coachAdvice)
		v1.POST("/reports/generate", s.generateReport)
		v1.POST("/reports/batch", s.generateReports)
		if deps.Feedback != nil {
			v1.POST("/feedback", s.recordFeedback)
		}
	}

	return router
}
