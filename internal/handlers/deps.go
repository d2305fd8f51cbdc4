// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the HTTP surfaces: the public gateway, the
// admin area with its JSON API, the visual editor and the client portal.
package handlers

import (
	"context"

	"github.com/google/uuid"

	"sitefoundry/internal/ai"
	"sitefoundry/internal/models"
)

// ClientStore is the client persistence used by the handlers.
type ClientStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindBySlugOrID(ctx context.Context, key string) (*models.Client, error)
	FindByEmail(ctx context.Context, email string) (*models.Client, error)
	List(ctx context.Context) ([]models.Client, error)
	Upsert(ctx context.Context, c *models.Client) error
	SetPayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error
	SetPortalAccess(ctx context.Context, id uuid.UUID, email, password string) error
	CheckPassword(c *models.Client, password string) bool
	Delete(ctx context.Context, id uuid.UUID) error
}

// SkeletonStore is the skeleton persistence used by the handlers.
type SkeletonStore interface {
	List(ctx context.Context) ([]models.Skeleton, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Skeleton, error)
	Upsert(ctx context.Context, sk *models.Skeleton) error
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TemplateStore is the template persistence used by the handlers.
type TemplateStore interface {
	List(ctx context.Context) ([]models.Template, error)
	ListApproved(ctx context.Context) ([]models.Template, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	Upsert(ctx context.Context, t *models.Template) error
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingStore holds the global settings edited from the admin.
type SettingStore interface {
	Get(ctx context.Context, key, fallback string) (string, error)
	Set(ctx context.Context, key, value string) error
	Trial(ctx context.Context, def models.TrialSettings) (models.TrialSettings, error)
	SetTrial(ctx context.Context, t models.TrialSettings) error
}

// Designer is the AI work started directly from the admin.
type Designer interface {
	GenerateSite(ctx context.Context, b ai.Brief) (string, error)
	GenerateSkeleton(ctx context.Context, blueprint string) (string, error)
	SuggestArchetypes(ctx context.Context, niche string) ([]models.BrandArchetype, error)
}

// Providers switches the active AI provider.
type Providers interface {
	ActiveName() string
	SetActive(name string) error
}

// Capturer renders a document to a PNG screenshot.
type Capturer interface {
	Capture(ctx context.Context, doc string) ([]byte, error)
}
