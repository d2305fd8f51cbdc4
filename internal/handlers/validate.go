// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Validation limits for admin inputs.
const (
	maxNameLen        = 200
	maxSlugLen        = 100
	maxIndustryLen    = 100
	maxScopeLen       = 2_000
	maxBlueprintLen   = 10_000
	maxInstructionLen = 4_000
	minPasswordLen    = 8
	maxTrialHours     = 24 * 365 * 5
)

// validateClient checks client form inputs and returns the first error found.
func validateClient(name, slug, industry, scope string, trialHours int, paymentLink string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Nome é obrigatório."
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Nome muito longo (máx. 200 caracteres)."
	}
	if utf8.RuneCountInString(slug) > maxSlugLen {
		return "Slug muito longo (máx. 100 caracteres)."
	}
	if utf8.RuneCountInString(industry) > maxIndustryLen {
		return "Segmento muito longo (máx. 100 caracteres)."
	}
	if utf8.RuneCountInString(scope) > maxScopeLen {
		return "Escopo muito longo (máx. 2.000 caracteres)."
	}
	if trialHours < 0 || trialHours > maxTrialHours {
		return "Período de teste inválido."
	}
	if paymentLink != "" && !isHTTPURL(paymentLink) {
		return "Link de pagamento deve ser uma URL http(s)."
	}
	return ""
}

// validatePortalAccess checks portal credentials set by the admin.
func validatePortalAccess(email, password string) string {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return "E-mail inválido."
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return "A senha deve ter ao menos 8 caracteres."
	}
	return ""
}

// validateSkeleton checks a skeleton generation request.
func validateSkeleton(name, blueprint string) string {
	if strings.TrimSpace(name) == "" {
		return "Nome é obrigatório."
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Nome muito longo (máx. 200 caracteres)."
	}
	blueprint = strings.TrimSpace(blueprint)
	if blueprint == "" {
		return "Descreva a estrutura do esqueleto."
	}
	if utf8.RuneCountInString(blueprint) > maxBlueprintLen {
		return "Estrutura muito longa (máx. 10.000 caracteres)."
	}
	return ""
}

// isHTTPURL reports whether s is an absolute http or https URL.
func isHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
