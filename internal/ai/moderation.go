// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// ModerationResult contains the outcome of a prompt safety check.
type ModerationResult struct {
	Safe       bool     // true if the prompt passes moderation
	Categories []string // flagged category names, sorted (empty when safe)
}

// Reason is a short human-readable summary for the editor chat log.
func (m *ModerationResult) Reason() string {
	if m == nil || m.Safe {
		return ""
	}
	if len(m.Categories) == 0 {
		return "instrução recusada pela moderação"
	}
	return "instrução recusada pela moderação: " + strings.Join(m.Categories, ", ")
}

// Moderator checks free-text instructions before they reach a provider.
type Moderator interface {
	CheckSafety(ctx context.Context, text string) (*ModerationResult, error)
}

func newModerationClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// flaggedCategories turns a category map into sorted display names.
// "hate/threatening" becomes "hate (threatening)".
func flaggedCategories(cats map[string]bool) []string {
	var out []string
	for cat, flagged := range cats {
		if !flagged {
			continue
		}
		display := cat
		if before, after, ok := strings.Cut(cat, "/"); ok {
			display = before + " (" + after + ")"
		}
		out = append(out, strings.ReplaceAll(display, "_", " "))
	}
	sort.Strings(out)
	return out
}

// --- OpenAI Moderation (free endpoint) ---

type openAIModerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newOpenAIModerator(apiKey, baseURL string) *openAIModerator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIModerator{apiKey: apiKey, baseURL: baseURL, client: newModerationClient()}
}

func (m *openAIModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	body := moderationRequest{Model: "omni-moderation-latest", Input: text}
	headers := map[string]string{"Authorization": "Bearer " + m.apiKey}

	var result openAIModResponse
	if err := postJSON(ctx, m.client, "openai moderation", m.baseURL+"/moderations", headers, body, &result); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 || !result.Results[0].Flagged {
		return &ModerationResult{Safe: true}, nil
	}
	return &ModerationResult{Categories: flaggedCategories(result.Results[0].Categories)}, nil
}

// --- Mistral Moderation (paid, fallback) ---

type mistralModerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newMistralModerator(apiKey, baseURL string) *mistralModerator {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai"
	}
	return &mistralModerator{apiKey: apiKey, baseURL: baseURL, client: newModerationClient()}
}

func (m *mistralModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	body := moderationRequest{Model: "mistral-moderation-latest", Input: text}
	headers := map[string]string{"Authorization": "Bearer " + m.apiKey}

	var result mistralModResponse
	if err := postJSON(ctx, m.client, "mistral moderation", m.baseURL+"/v1/moderations", headers, body, &result); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return &ModerationResult{Safe: true}, nil
	}
	// Mistral has no top-level flag; any flagged category fails the check.
	flagged := flaggedCategories(result.Results[0].Categories)
	return &ModerationResult{Safe: len(flagged) == 0, Categories: flagged}, nil
}

// --- Fallback ---

// fallbackModerator uses primary and switches to secondary for good once
// primary rejects its credentials (project-scoped OpenAI keys cannot call
// the moderation endpoint). Other errors fall through per call.
type fallbackModerator struct {
	primary, secondary Moderator

	mu       sync.Mutex
	disabled bool
}

func newFallbackModerator(primary, secondary Moderator) *fallbackModerator {
	return &fallbackModerator{primary: primary, secondary: secondary}
}

func (f *fallbackModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	f.mu.Lock()
	skip := f.disabled
	f.mu.Unlock()

	if !skip {
		res, err := f.primary.CheckSafety(ctx, text)
		if err == nil {
			return res, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsAuth() {
			slog.Warn("primary moderator rejected credentials, using fallback", "error", err)
			f.mu.Lock()
			f.disabled = true
			f.mu.Unlock()
		} else {
			slog.Warn("primary moderator failed, trying fallback", "error", err)
		}
	}
	return f.secondary.CheckSafety(ctx, text)
}

// --- Request/Response types ---

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIModResponse struct {
	Results []openAIModResult `json:"results"`
}

type openAIModResult struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}

type mistralModResponse struct {
	Results []mistralModResult `json:"results"`
}

type mistralModResult struct {
	Categories map[string]bool `json:"categories"`
}
