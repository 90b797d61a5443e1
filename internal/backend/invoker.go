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

package backend

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/prompt"
	"github.com/your-org/healthai-assistant/internal/resilience"
)

var tracer = otel.Tracer("github.com/your-org/healthai-assistant/internal/backend")

// InvokerConfig configures an Invoker.
type InvokerConfig struct {
	Sampling map[domain.UseCase]Sampling
	Timeout  time.Duration
	Breaker  resilience.CircuitBreakerConfig
}

// Invoker applies use-case sampling, a per-call timeout and a circuit
// breaker around a Provider.
type Invoker struct {
	provider Provider
	sampling map[domain.UseCase]Sampling
	timeout  time.Duration
	breaker  *resilience.CircuitBreaker
	logger   *zap.Logger
}

// NewInvoker creates an invoker. Use cases missing from cfg.Sampling fall
// back to DefaultSampling.
func NewInvoker(provider Provider, cfg InvokerConfig, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	sampling := DefaultSampling()
	for uc, s := range cfg.Sampling {
		sampling[uc] = s
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = resilience.DefaultCircuitBreakerConfig(provider.Name())
	}
	return &Invoker{
		provider: provider,
		sampling: sampling,
		timeout:  cfg.Timeout,
		breaker:  resilience.NewCircuitBreaker(cfg.Breaker, logger),
		logger:   logger,
	}
}

// SamplingFor returns the settings used for a use case.
func (i *Invoker) SamplingFor(uc domain.UseCase) Sampling {
	return i.sampling[uc]
}

// Breaker exposes the circuit breaker for health reporting.
func (i *Invoker) Breaker() *resilience.CircuitBreaker {
	return i.breaker
}

// Generate sends spec to the provider. Every failure is reported as
// ErrGenerationFailed, wrapping the cause.
func (i *Invoker) Generate(ctx context.Context, spec prompt.Spec) (string, error) {
	sampling := i.SamplingFor(spec.UseCase)
	if spec.Media != nil {
		media := *spec.Media
		media.MediaType = NormaliseMediaType(media.MediaType)
		spec.Media = &media
	}

	ctx, span := tracer.Start(ctx, "backend.Generate")
	span.SetAttributes(
		attribute.String("use_case", string(spec.UseCase)),
		attribute.String("provider", i.provider.Name()),
		attribute.String("model", sampling.Model),
		attribute.Float64("temperature", float64(sampling.Temperature)),
	)
	defer span.End()

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	var reply string
	err := i.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		reply, err = i.provider.Complete(ctx, spec, sampling)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		i.logger.Warn("Generation failed",
			zap.String("use_case", string(spec.UseCase)),
			zap.String("provider", i.provider.Name()),
			zap.String("model", sampling.Model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	i.logger.Debug("Generation completed",
		zap.String("use_case", string(spec.UseCase)),
		zap.String("model", sampling.Model),
		zap.Int("reply_chars", len(reply)),
		zap.Duration("duration", time.Since(start)))
	return reply, nil
}
