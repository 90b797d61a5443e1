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
	"encoding/base64"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/your-org/healthai-assistant/internal/prompt"
)

// DefaultAnthropicModel is used for every use case unless overridden.
const DefaultAnthropicModel = "claude-3-5-sonnet-20241022"

// AnthropicProvider completes prompts with the Anthropic messages API. The
// OpenAI model names in Sampling are replaced by a single Claude model.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a provider. baseURL may be empty.
func NewAnthropicProvider(apiKey, baseURL, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Complete(ctx context.Context, spec prompt.Spec, sampling Sampling) (string, error) {
	var content []anthropic.MessageContent
	if spec.Media != nil {
		content = append(content, anthropic.NewImageMessageContent(
			anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64,
				spec.Media.MediaType,
				base64.StdEncoding.EncodeToString(spec.Media.Data),
			),
		))
	}
	content = append(content, anthropic.NewTextMessageContent(spec.User))

	maxTokens := sampling.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := sampling.Temperature
	// The messages API caps temperature at 1.
	if temperature > 1 {
		temperature = 1
	}

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(p.model),
		System:      spec.System,
		Messages:    []anthropic.Message{{Role: anthropic.RoleUser, Content: content}},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	return resp.GetFirstContentText(), nil
}
