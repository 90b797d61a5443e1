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

// Package backend sends rendered prompts to a generative model and hands
// back the raw reply text.
package backend

import (
	"context"
	"errors"
	"mime"
	"strings"

	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/prompt"
)

// ErrGenerationFailed is the single failure reported to callers, whatever
// went wrong on the way to the model.
var ErrGenerationFailed = errors.New("generation failed")

// Sampling is the per-use-case generation configuration.
type Sampling struct {
	Model       string  `mapstructure:"model" json:"model"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
}

// DefaultSampling returns the baseline settings. Randomness rises from the
// nutrition flows through coaching to reports.
func DefaultSampling() map[domain.UseCase]Sampling {
	return map[domain.UseCase]Sampling{
		domain.UseCaseBarcode:   {Model: "gpt-4.1-mini", Temperature: 0.1, MaxTokens: 1000},
		domain.UseCaseFoodImage: {Model: "gpt-4o", Temperature: 0.2, MaxTokens: 1000},
		domain.UseCaseCoaching:  {Model: "gpt-4.1-mini", Temperature: 0.5, MaxTokens: 800},
		domain.UseCaseReport:    {Model: "gpt-4o", Temperature: 0.6, MaxTokens: 2000},
	}
}

// Provider is one concrete model API.
type Provider interface {
	Name() string
	Complete(ctx context.Context, spec prompt.Spec, sampling Sampling) (string, error)
}

// NormaliseMediaType reduces a declared media type to one the vision APIs
// accept, defaulting to image/jpeg.
func NormaliseMediaType(declared string) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(declared))
	}
	switch mediaType {
	case "image/png", "image/gif", "image/webp", "image/jpeg":
		return mediaType
	case "image/jpg":
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}
