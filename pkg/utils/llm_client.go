package utils

import (
	"context"
	"fmt"
	"net/http"
)

// LLMProvider represents the type of LLM provider
type LLMProvider string

const (
	// OpenAI provider
	OpenAI LLMProvider = "openai"
	// Anthropic provider
	Anthropic LLMProvider = "anthropic"
	// Generic provider for custom OpenAI-compatible APIs
	Generic LLMProvider = "generic"
)

// LLMClient provides a unified interface for interacting with different LLM providers
type LLMClient struct {
	httpClient *HTTPClient
	provider   LLMProvider
	apiKey     string
	baseURL    string
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMRequest represents a request to an LLM
type LLMRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// LLMResponse represents a normalized response from an LLM
type LLMResponse struct {
	Model   string `json:"model,omitempty"`
	Content string `json:"content"`

	// Usage is token accounting when the provider reports it
	Usage Usage `json:"usage,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewLLMClient creates a new LLM client
func NewLLMClient(provider LLMProvider, apiKey, baseURL string) *LLMClient {
	client := &LLMClient{
		httpClient: NewHTTPClient(),
		provider:   provider,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}

	if client.baseURL == "" {
		switch provider {
		case OpenAI:
			client.baseURL = "https://api.openai.com/v1"
		case Anthropic:
			client.baseURL = "https://api.anthropic.com/v1"
		}
	}

	return client
}

// Complete sends a completion request to the LLM
func (c *LLMClient) Complete(ctx context.Context, request LLMRequest) (*LLMResponse, error) {
	switch c.provider {
	case OpenAI, Generic:
		return c.completeOpenAI(ctx, request)
	case Anthropic:
		return c.completeAnthropic(ctx, request)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", c.provider)
	}
}

// completeOpenAI sends a chat completion request to an OpenAI-compatible API
func (c *LLMClient) completeOpenAI(ctx context.Context, request LLMRequest) (*LLMResponse, error) {
	messages := request.Messages
	if request.System != "" {
		messages = append([]Message{{Role: "system", Content: request.System}}, messages...)
	}

	body := map[string]interface{}{
		"model":    request.Model,
		"messages": messages,
	}
	if request.Temperature > 0 {
		body["temperature"] = request.Temperature
	}
	if request.MaxTokens > 0 {
		body["max_tokens"] = request.MaxTokens
	}

	resp, err := c.httpClient.Do(ctx, &HTTPRequest{
		URL:    c.baseURL + "/chat/completions",
		Method: http.MethodPost,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
		},
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion request returned status %d: %s", resp.StatusCode, string(resp.RawBody))
	}

	var parsed struct {
		Model   string `json:"model"`
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := resp.DecodeJSON(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("completion response contained no choices")
	}

	return &LLMResponse{
		Model:   parsed.Model,
		Content: parsed.Choices[0].Message.Content,
		Usage:   parsed.Usage,
	}, nil
}

// completeAnthropic sends a messages request to the Anthropic API
func (c *LLMClient) completeAnthropic(ctx context.Context, request LLMRequest) (*LLMResponse, error) {
	maxTokens := request.MaxTokens
	if maxTokens == 0 {
		// The messages API requires max_tokens
		maxTokens = 4096
	}

	body := map[string]interface{}{
		"model":      request.Model,
		"messages":   request.Messages,
		"max_tokens": maxTokens,
	}
	if request.System != "" {
		body["system"] = request.System
	}
	if request.Temperature > 0 {
		body["temperature"] = request.Temperature
	}

	resp, err := c.httpClient.Do(ctx, &HTTPRequest{
		URL:    c.baseURL + "/messages",
		Method: http.MethodPost,
		Headers: map[string]string{
			"x-api-key":         c.apiKey,
			"anthropic-version": "2023-06-01",
		},
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("messages request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("messages request returned status %d: %s", resp.StatusCode, string(resp.RawBody))
	}

	var parsed struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := resp.DecodeJSON(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode messages response: %w", err)
	}

	var content string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return nil, fmt.Errorf("messages response contained no text content")
	}

	return &LLMResponse{
		Model:   parsed.Model,
		Content: content,
		Usage: Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}
