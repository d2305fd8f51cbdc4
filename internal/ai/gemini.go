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

// geminiProvider implements Provider using the Gemini REST API
// (POST /v1beta/models/{model}:generateContent).
type geminiProvider struct {
	config ProviderConfig
	client *http.Client
}

func newGemini(cfg ProviderConfig) *geminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	return &geminiProvider{config: cfg, client: newHTTPClient()}
}

func (p *geminiProvider) Name() string { return "gemini" }

// Generate sends a generateContent request with the fast model.
func (p *geminiProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return p.Complete(ctx, Request{System: systemPrompt, User: userPrompt})
}

// Complete sends a generateContent request honouring the tier and JSON mode.
func (p *geminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.User}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			MaxOutputTokens: p.config.maxTokens(),
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSON {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.config.BaseURL, p.config.model(req.Tier))
	headers := map[string]string{"x-goog-api-key": p.config.APIKey}

	var result geminiResponse
	if err := postJSON(ctx, p.client, "gemini", url, headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 {
		if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini: prompt blocked (%s)", result.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini: no candidates returned")
	}

	// Long answers may be split across several parts.
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: no text in response")
	}
	return sb.String(), nil
}

// --- Gemini API types ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int    `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}
