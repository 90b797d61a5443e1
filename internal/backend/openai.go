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

	internalopenai "github.com/your-org/healthai-assistant/internal/openai"
	"github.com/your-org/healthai-assistant/internal/prompt"
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req internalopenai.ChatCompletionRequest) (*internalopenai.ChatCompletionResponse, error)
}

// OpenAIProvider completes prompts with the OpenAI chat API.
type OpenAIProvider struct {
	client chatCompleter
}

// NewOpenAIProvider wraps an OpenAI client.
func NewOpenAIProvider(client *internalopenai.Client) *OpenAIProvider {
	return &OpenAIProvider{client: client}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Complete(ctx context.Context, spec prompt.Spec, sampling Sampling) (string, error) {
	req := internalopenai.ChatCompletionRequest{
		System:      spec.System,
		User:        spec.User,
		Model:       sampling.Model,
		MaxTokens:   sampling.MaxTokens,
		Temperature: sampling.Temperature,
	}
	if spec.Media != nil {
		req.Image = &internalopenai.Image{Data: spec.Media.Data, MediaType: spec.Media.MediaType}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
