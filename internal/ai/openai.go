// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"net/http"
)

// openAIProvider implements Provider using the OpenAI chat completions API
// (POST /v1/chat/completions). Mistral reuses it.
type openAIProvider struct {
	name   string
	config ProviderConfig
	client *http.Client
}

func newOpenAI(cfg ProviderConfig) *openAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &openAIProvider{name: "openai", config: cfg, client: newHTTPClient()}
}

func (p *openAIProvider) Name() string { return p.name }

// Generate sends a chat completion with the fast model.
func (p *openAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return p.Complete(ctx, Request{System: systemPrompt, User: userPrompt})
}

// Complete sends a chat completion honouring the tier and JSON mode.
func (p *openAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	body := openAIRequest{
		Model: p.config.model(req.Tier),
		Messages: []openAIMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens: p.config.maxTokens(),
	}
	if req.JSON {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	var result openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + p.config.APIKey}
	if err := postJSON(ctx, p.client, p.name, p.config.BaseURL+"/chat/completions", headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", p.name)
	}
	return result.Choices[0].Message.Content, nil
}

// --- OpenAI-compatible request/response types ---

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}
