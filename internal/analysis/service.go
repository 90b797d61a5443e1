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

// Package analysis orchestrates the analysis flows: profile normalisation,
// prompt rendering, generation, extraction and fallback. Every operation is
// total and returns a fully populated result.
package analysis

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/batch"
	"github.com/your-org/healthai-assistant/internal/catalog"
	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/extract"
	"github.com/your-org/healthai-assistant/internal/prompt"
)

var tracer = otel.Tracer("github.com/your-org/healthai-assistant/internal/analysis")

// ProductLookup finds catalog facts for a barcode, or nil.
type ProductLookup interface {
	Lookup(ctx context.Context, barcode string) *domain.ProductInfo
}

// Generator produces a raw reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, spec prompt.Spec) (string, error)
}

// Recorder receives one observation per completed analysis.
type Recorder interface {
	Record(uc domain.UseCase, outcome domain.Outcome, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Record(domain.UseCase, domain.Outcome, time.Duration) {}

// Option customises a Service.
type Option func(*Service)

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithBatchLimit bounds the number of concurrently running batch jobs.
func WithBatchLimit(n int) Option {
	return func(s *Service) { s.batchLimit = n }
}

// Service runs the analysis flows.
type Service struct {
	catalog    ProductLookup
	generator  Generator
	recorder   Recorder
	batchLimit int
	logger     *zap.Logger
}

// NewService creates a Service.
func NewService(lookup ProductLookup, generator Generator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		catalog:   lookup,
		generator: generator,
		recorder:  nopRecorder{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeBarcode looks the product up and analyses it for profile.
func (s *Service) AnalyzeBarcode(ctx context.Context, barcode string, profile domain.Profile) domain.BarcodeAnalysis {
	result, _ := s.analyzeBarcode(ctx, barcode, profile)
	return result
}

// LookupBarcode analyses a product for the basic profile.
func (s *Service) LookupBarcode(ctx context.Context, barcode string) domain.BarcodeAnalysis {
	return s.AnalyzeBarcode(ctx, barcode, domain.BasicProfile())
}

func (s *Service) analyzeBarcode(ctx context.Context, barcode string, profile domain.Profile) (domain.BarcodeAnalysis, bool) {
	ctx, span, done := s.begin(ctx, domain.UseCaseBarcode)
	defer span.End()
	span.SetAttributes(attribute.String("barcode", barcode))

	product := s.catalog.Lookup(ctx, barcode)
	if product == nil {
		done(domain.OutcomeNotFound)
		return catalog.NotFound(barcode), false
	}

	result := domain.BarcodeAnalysis{
		Product:        *product,
		Recommendation: catalog.Recommendation(product.Quality.NutriScore),
		Source:         catalog.SourceAnalysed,
	}

	reply, err := s.generator.Generate(ctx, prompt.Barcode(profile, *product))
	if err != nil {
		result.Analysis = extract.UnavailableNarrative
		done(domain.OutcomeGenerationFailed)
		return result, true
	}

	narrative, fallback := extract.Text(reply).OrElse(func() string { return extract.UnavailableNarrative })
	result.Analysis = narrative
	done(outcomeOf(fallback))
	return result, fallback
}

// AnalyzeImage estimates the nutrition of the food in an image.
func (s *Service) AnalyzeImage(ctx context.Context, image []byte, mediaType string, profile *domain.Profile) domain.NutritionAnalysis {
	result, _ := s.analyzeImage(ctx, image, mediaType, profile)
	return result
}

func (s *Service) analyzeImage(ctx context.Context, image []byte, mediaType string, profile *domain.Profile) (domain.NutritionAnalysis, bool) {
	ctx, span, done := s.begin(ctx, domain.UseCaseFoodImage)
	defer span.End()
	span.SetAttributes(attribute.Int("image_bytes", len(image)))

	if len(image) == 0 {
		done(domain.OutcomeFallback)
		return extract.FallbackNutrition(), true
	}

	reply, err := s.generator.Generate(ctx, prompt.FoodImage(profile, image, mediaType))
	if err != nil {
		done(domain.OutcomeGenerationFailed)
		return extract.FallbackNutrition(), true
	}

	out := extract.Nutrition(reply)
	if out.UseFallback() {
		s.logger.Warn("Nutrition reply did not match schema",
			zap.String("strategy", extract.StrategyFor(domain.UseCaseFoodImage).String()),
			zap.Error(out.Err))
	}
	result, fallback := out.OrElse(extract.FallbackNutrition)
	done(outcomeOf(fallback))
	return result, fallback
}

// Advise answers a free-text health question.
func (s *Service) Advise(ctx context.Context, message string, profile *domain.Profile) domain.CoachingAdvice {
	result, _ := s.advise(ctx, message, profile)
	return result
}

func (s *Service) advise(ctx context.Context, message string, profile *domain.Profile) (domain.CoachingAdvice, bool) {
	ctx, span, done := s.begin(ctx, domain.UseCaseCoaching)
	defer span.End()

	reply, err := s.generator.Generate(ctx, prompt.Coaching(profile, message))
	if err != nil {
		done(domain.OutcomeGenerationFailed)
		return extract.FallbackCoaching(), true
	}

	result, fallback := extract.Coaching(reply).OrElse(extract.FallbackCoaching)
	done(outcomeOf(fallback))
	return result, fallback
}

// GenerateReport writes a markdown health report for the period.
func (s *Service) GenerateReport(ctx context.Context, req domain.ReportRequest) string {
	result, _ := s.generateReport(ctx, req)
	return result
}

func (s *Service) generateReport(ctx context.Context, req domain.ReportRequest) (string, bool) {
	ctx, span, done := s.begin(ctx, domain.UseCaseReport)
	defer span.End()
	span.SetAttributes(attribute.String("report_type", req.Period), attribute.Int("metrics", len(req.Metrics)))

	fallback := func() string { return extract.FallbackReport(req.Period) }

	reply, err := s.generator.Generate(ctx, prompt.Report(req))
	if err != nil {
		done(domain.OutcomeGenerationFailed)
		return fallback(), true
	}

	report, usedFallback := extract.Text(reply).OrElse(fallback)
	done(outcomeOf(usedFallback))
	return report, usedFallback
}

// GenerateReports writes one report per request, concurrently. The result
// matches reqs in length and order.
func (s *Service) GenerateReports(ctx context.Context, reqs []domain.ReportRequest) []string {
	jobs := make([]domain.Job, len(reqs))
	for i, req := range reqs {
		jobs[i] = domain.Job{UseCase: domain.UseCaseReport, Profile: req.Profile, Report: req}
	}

	results := s.AnalyzeBatch(ctx, jobs)
	reports := make([]string, len(results))
	for i, r := range results {
		reports[i] = r.Report
	}
	return reports
}

// Analyze runs a single job of any use case.
func (s *Service) Analyze(ctx context.Context, job domain.Job) domain.Result {
	result, err := s.analyze(ctx, job)
	if err != nil {
		s.logger.Warn("Unroutable analysis job", zap.Error(err))
		return extract.Fallback(job)
	}
	return result
}

// AnalyzeBatch runs jobs concurrently. Jobs are detached from ctx's
// cancellation: a caller that stops waiting abandons them but does not stop
// them.
func (s *Service) AnalyzeBatch(ctx context.Context, jobs []domain.Job) []domain.Result {
	ctx = context.WithoutCancel(ctx)
	coordinator := batch.NewCoordinator[domain.Job, domain.Result](s.batchLimit, s.logger)

	start := time.Now()
	results := coordinator.Run(ctx, jobs, s.analyze, extract.Fallback)
	s.logger.Info("Batch completed",
		zap.Int("jobs", len(jobs)),
		zap.Duration("duration", time.Since(start)))
	return results
}

func (s *Service) analyze(ctx context.Context, job domain.Job) (domain.Result, error) {
	result := domain.Result{UseCase: job.UseCase}

	switch job.UseCase {
	case domain.UseCaseBarcode:
		profile := domain.BasicProfile()
		if job.Profile != nil {
			profile = *job.Profile
		}
		r, fallback := s.analyzeBarcode(ctx, job.Barcode, profile)
		result.Barcode, result.Fallback = &r, fallback
	case domain.UseCaseFoodImage:
		r, fallback := s.analyzeImage(ctx, job.Image, job.MediaType, job.Profile)
		result.Nutrition, result.Fallback = &r, fallback
	case domain.UseCaseCoaching:
		r, fallback := s.advise(ctx, job.Message, job.Profile)
		result.Coaching, result.Fallback = &r, fallback
	case domain.UseCaseReport:
		req := job.Report
		if req.Profile == nil {
			req.Profile = job.Profile
		}
		result.Report, result.Fallback = s.generateReport(ctx, req)
	default:
		return domain.Result{}, fmt.Errorf("unknown use case %q", job.UseCase)
	}
	return result, nil
}

// begin starts the span of one analysis and returns a func recording its
// outcome.
func (s *Service) begin(ctx context.Context, uc domain.UseCase) (context.Context, trace.Span, func(domain.Outcome)) {
	ctx, span := tracer.Start(ctx, "analysis."+string(uc))
	span.SetAttributes(attribute.String("strategy", extract.StrategyFor(uc).String()))
	start := time.Now()

	return ctx, span, func(outcome domain.Outcome) {
		duration := time.Since(start)
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		s.recorder.Record(uc, outcome, duration)
		s.logger.Info("Analysis completed",
			zap.String("use_case", string(uc)),
			zap.String("outcome", string(outcome)),
			zap.Duration("duration", duration))
	}
}

func outcomeOf(fallback bool) domain.Outcome {
	if fallback {
		return domain.OutcomeFallback
	}
	return domain.OutcomeExtracted
}
