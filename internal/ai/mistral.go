// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import "strings"

// newMistral returns an OpenAI-compatible provider pointed at Mistral.
func newMistral(cfg ProviderConfig) *openAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	return &openAIProvider{name: "mistral", config: cfg, client: newHTTPClient()}
}

// mistralAPIRoot strips the /v1 suffix the chat endpoint needs, since the
// moderation endpoint path carries its own version.
func mistralAPIRoot(baseURL string) string {
	return strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
}
