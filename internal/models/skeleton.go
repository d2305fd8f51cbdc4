// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Skeleton is a niche-agnostic grayscale wireframe with placeholder tokens
// such as {{NAME}} and {{PHONE}}. Only approved skeletons feed templates.
type Skeleton struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	HTML      string    `json:"html"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Placeholders are the tokens skeleton prompts ask the model to use.
var Placeholders = []string{"{{NAME}}", "{{PHONE}}", "{{ABOUT_TEXT}}", "{{SERVICE_LIST}}", "{{REVIEWS}}"}
