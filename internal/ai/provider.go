// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai provides a unified interface over the LLM providers used to
// write and rewrite sites (Gemini, OpenAI, Claude, Mistral). Each provider
// implements Provider; the Registry selects the active one by name and the
// Studio builds the site-specific prompts on top of it.
package ai

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider defines the interface that all AI providers must implement.
type Provider interface {
	// Generate sends a prompt and returns the generated text.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
}

// Tier selects between a provider's fast model and its stronger one.
type Tier int

const (
	TierFast Tier = iota
	TierPro
)

// Request is a single completion with per-call options.
type Request struct {
	System string
	User   string
	Tier   Tier
	// JSON asks the provider for a JSON-only response where supported.
	JSON bool
}

// Completer is implemented by providers that honour Request options.
// Providers without it are called through Generate.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// DefaultMaxTokens leaves room for a complete landing page.
const DefaultMaxTokens = 16384

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey string
	Model  string
	// ModelPro is used for TierPro requests; empty falls back to Model.
	ModelPro  string
	BaseURL   string
	MaxTokens int
}

func (c ProviderConfig) model(t Tier) string {
	if t == TierPro && c.ModelPro != "" {
		return c.ModelPro
	}
	return c.Model
}

func (c ProviderConfig) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}

// Registry manages available AI providers and selects the active one.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	active    string
	moderator Moderator // nil when no moderation API is available
}

// NewRegistry creates a registry with a provider for every config that has
// an API key. OpenAI's free moderation endpoint is preferred for prompt
// checks, with Mistral's as a fallback.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		active:    active,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case "openai":
			r.providers[name] = newOpenAI(cfg)
		case "gemini":
			r.providers[name] = newGemini(cfg)
		case "claude":
			r.providers[name] = newClaude(cfg)
		case "mistral":
			r.providers[name] = newMistral(cfg)
		}
	}

	var mods []Moderator
	if c := configs["openai"]; c.APIKey != "" {
		mods = append(mods, newOpenAIModerator(c.APIKey, c.BaseURL))
	}
	if c := configs["mistral"]; c.APIKey != "" {
		mods = append(mods, newMistralModerator(c.APIKey, mistralAPIRoot(c.BaseURL)))
	}
	switch len(mods) {
	case 0:
	case 1:
		r.moderator = mods[0]
	default:
		r.moderator = newFallbackModerator(mods[0], mods[1])
	}

	return r
}

// Generate calls the active provider with default options.
func (r *Registry) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return r.Complete(ctx, Request{System: systemPrompt, User: userPrompt})
}

// Complete calls the active provider, honouring req options when the
// provider supports them.
func (r *Registry) Complete(ctx context.Context, req Request) (string, error) {
	p, err := r.Active()
	if err != nil {
		return "", err
	}
	if c, ok := p.(Completer); ok {
		return c.Complete(ctx, req)
	}
	return p.Generate(ctx, req.System, req.User)
}

// Active returns the currently active provider.
func (r *Registry) Active() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.active]
	if !ok {
		return nil, fmt.Errorf("ai: no provider configured for %q", r.active)
	}
	return p, nil
}

// SetActive switches the active provider at runtime.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("ai: provider %q is not available (no API key?)", name)
	}
	r.active = name
	return nil
}

// ActiveName returns the name of the currently active provider.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Available returns the sorted names of all configured providers.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// SetModerator replaces the prompt moderator; nil disables moderation.
func (r *Registry) SetModerator(m Moderator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moderator = m
}

// CheckPrompt runs free text through the moderation API. Without a
// moderator every prompt is considered safe.
func (r *Registry) CheckPrompt(ctx context.Context, prompt string) (*ModerationResult, error) {
	r.mu.RLock()
	m := r.moderator
	r.mu.RUnlock()

	if m == nil {
		return &ModerationResult{Safe: true}, nil
	}
	return m.CheckSafety(ctx, prompt)
}

// HasProvider checks whether a named provider is configured.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}
