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

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testAPIKey = "sk-test1234567890abcdef" // pragma: allowlist secret

func createMockChatResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig(testAPIKey)
	cfg.BaseURL = server.URL + "/v1"
	c := NewClientWithConfig(cfg, zaptest.NewLogger(t))
	c.retryDelay = time.Millisecond
	return c
}

func TestNewClient(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name      string
		apiKey    string
		expectErr bool
	}{
		{"empty key", "", true},
		{"wrong prefix", "pk-123", true},
		{"valid key", testAPIKey, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.apiKey, "", logger)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultModel, client.model)
		})
	}
}

func TestCreateChatCompletion_TextOnly(t *testing.T) {
	var captured openai.ChatCompletionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(createMockChatResponse("This is a test response")))
	})

	resp, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		System:      "be brief",
		User:        "Hello",
		MaxTokens:   100,
		Temperature: 0.1,
		Model:       "gpt-4.1-mini",
	})
	require.NoError(t, err)

	assert.Equal(t, "This is a test response", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4.1-mini", captured.Model)
	assert.Equal(t, 100, captured.MaxTokens)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, captured.Messages[0].Role)
	assert.Equal(t, "Hello", captured.Messages[1].Content)
}

func TestCreateChatCompletion_WithImage(t *testing.T) {
	var raw string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(createMockChatResponse(`{"food_items": []}`)))
	})

	_, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		User:  "what is this",
		Image: &Image{Data: []byte("abc"), MediaType: "image/png"},
	})
	require.NoError(t, err)

	assert.Contains(t, raw, "data:image/png;base64,YWJj")
	assert.Contains(t, raw, `"image_url"`)
	assert.Contains(t, raw, `"model":"gpt-4o"`)
}

func TestCreateChatCompletion_RetriesRateLimit(t *testing.T) {
	var attempts int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "Rate limit exceeded", "type": "rate_limit_exceeded"}}`))
			return
		}
		_, _ = w.Write([]byte(createMockChatResponse("ok")))
	})

	resp, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestCreateChatCompletion_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		response   string
		retryable  bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error": {"message": "Invalid API key", "type": "invalid_request_error"}}`, false},
		{"rate limit", http.StatusTooManyRequests, `{"error": {"message": "Rate limit exceeded", "type": "rate_limit_exceeded"}}`, true},
		{"server error", http.StatusInternalServerError, `{"error": {"message": "boom", "type": "server_error"}}`, true},
		{"bad request", http.StatusBadRequest, `{"error": {"message": "Bad request", "type": "invalid_request_error"}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			})

			_, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{User: "hi"})
			require.Error(t, err)

			if tt.retryable {
				assert.Contains(t, err.Error(), "exhausted all retry attempts")
				var retryErr *RetryableError
				assert.True(t, errors.As(err, &retryErr))
				assert.Equal(t, int32(MaxRetries), atomic.LoadInt32(&attempts))
			} else {
				assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
			}
		})
	}
}

func TestCreateChatCompletion_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	_, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{User: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestCreateChatCompletion_ContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(createMockChatResponse("late")))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.CreateChatCompletion(ctx, ChatCompletionRequest{User: "hi"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "context deadline exceeded"))
}
