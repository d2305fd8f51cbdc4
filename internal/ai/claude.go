// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// claudeProvider implements Provider using the Anthropic Messages API
// (POST /v1/messages).
type claudeProvider struct {
	config ProviderConfig
	client *http.Client
}

func newClaude(cfg ProviderConfig) *claudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	return &claudeProvider{config: cfg, client: newHTTPClient()}
}

func (p *claudeProvider) Name() string { return "claude" }

// Generate sends a message with the fast model.
func (p *claudeProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return p.Complete(ctx, Request{System: systemPrompt, User: userPrompt})
}

// Complete sends a message honouring the tier. The Messages API has no JSON
// mode; JSON requests prefill the answer with "[" or "{" instead.
func (p *claudeProvider) Complete(ctx context.Context, req Request) (string, error) {
	body := claudeRequest{
		Model:     p.config.model(req.Tier),
		MaxTokens: p.config.maxTokens(),
		System:    req.System,
		Messages:  []claudeMessage{{Role: "user", Content: req.User}},
	}
	prefill := ""
	if req.JSON {
		prefill = jsonPrefill(req.User)
		body.Messages = append(body.Messages, claudeMessage{Role: "assistant", Content: prefill})
	}

	headers := map[string]string{
		"x-api-key":         p.config.APIKey,
		"anthropic-version": "2023-06-01",
	}
	var result claudeResponse
	if err := postJSON(ctx, p.client, "claude", p.config.BaseURL+"/v1/messages", headers, body, &result); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("claude: no text content in response")
	}
	return prefill + sb.String(), nil
}

// jsonPrefill guesses whether the prompt asks for an array or an object.
func jsonPrefill(prompt string) string {
	if strings.Contains(strings.ToLower(prompt), "array") {
		return "["
	}
	return "{"
}

// --- Anthropic Messages API types ---

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeResponse struct {
	Content []claudeContentBlock `json:"content"`
}
