// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"sitefoundry/internal/theme"
)

// Template binds a skeleton to a niche and a brand archetype with a
// concrete theme. SkeletonID is a weak reference; deleting the skeleton
// leaves the template in place.
type Template struct {
	ID          uuid.UUID    `json:"id"`
	SkeletonID  uuid.UUID    `json:"skeletonId"`
	Niche       string       `json:"niche"`
	Archetype   string       `json:"archetype"`
	StyleConfig theme.Config `json:"styleConfig"`
	PreviewHTML string       `json:"previewHtml"`
	Approved    bool         `json:"approved"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// MatchesNiche compares niches case-insensitively.
func (t *Template) MatchesNiche(niche string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Niche), strings.TrimSpace(niche))
}

// BrandArchetype is an AI-suggested brand direction for a niche.
type BrandArchetype struct {
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	StyleSuggestion theme.Config `json:"styleSuggestion"`
}
