// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"sitefoundry/internal/ai"
	"sitefoundry/internal/models"
	"sitefoundry/internal/slug"
)

// TemplateFinder lists approved templates for a niche.
type TemplateFinder interface {
	ListApprovedByNiche(ctx context.Context, niche string) ([]models.Template, error)
}

// SkeletonFinder loads a skeleton. A missing skeleton is nil, nil.
type SkeletonFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Skeleton, error)
}

// Designer is the subset of ai.Studio the builder needs.
type Designer interface {
	GenerateSite(ctx context.Context, b ai.Brief) (string, error)
	PickBestTemplate(ctx context.Context, lead *models.Lead, candidates []models.Template) (*models.Template, error)
	AssembleFromTemplate(ctx context.Context, tpl *models.Template, skel *models.Skeleton, lead *models.Lead) (string, error)
}

// SiteBuilder builds clients from leads, assembling from an approved
// template of the lead's niche when one exists and generating from
// scratch otherwise.
type SiteBuilder struct {
	Templates TemplateFinder
	Skeletons SkeletonFinder
	Designer  Designer

	// TrialHours returns the default trial for new clients.
	TrialHours func(ctx context.Context) int
}

// Build implements Builder. id becomes the client id; its first four
// characters disambiguate the slug.
func (b *SiteBuilder) Build(ctx context.Context, id string, lead models.Lead) (*models.Client, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		clientID = uuid.New()
	}
	niche := lead.Niche()

	html, tpl, err := b.fromTemplate(ctx, niche, &lead)
	if err != nil {
		return nil, err
	}
	if html == "" {
		html, err = b.Designer.GenerateSite(ctx, ai.Brief{Name: lead.Name, Industry: niche, Lead: &lead})
		if err != nil {
			return nil, fmt.Errorf("build %q: %w", lead.Name, err)
		}
	}

	c := &models.Client{
		ID:            clientID,
		Name:          strings.TrimSpace(lead.Name),
		Slug:          slug.WithSuffix(lead.Name, clientID.String()[:4]),
		Industry:      niche,
		Scope:         lead.Summary,
		Status:        models.ClientStatusApproved,
		PaymentStatus: models.PaymentPending,
		SiteContent:   html,
		Lead:          &lead,
	}
	if b.TrialHours != nil {
		c.TrialHours = b.TrialHours(ctx)
	}
	if tpl != nil {
		c.Theme = tpl.StyleConfig.Clone()
		tplID := tpl.ID
		c.TemplateID = &tplID
	}
	return c, nil
}

// fromTemplate returns an assembled page and the template used, or an
// empty page when the niche has no usable template.
func (b *SiteBuilder) fromTemplate(ctx context.Context, niche string, lead *models.Lead) (string, *models.Template, error) {
	if b.Templates == nil {
		return "", nil, nil
	}
	candidates, err := b.Templates.ListApprovedByNiche(ctx, niche)
	if err != nil {
		return "", nil, fmt.Errorf("build %q: %w", lead.Name, err)
	}
	if len(candidates) == 0 {
		return "", nil, nil
	}

	tpl, err := b.Designer.PickBestTemplate(ctx, lead, candidates)
	if err != nil {
		return "", nil, fmt.Errorf("build %q: %w", lead.Name, err)
	}
	skel, err := b.Skeletons.FindByID(ctx, tpl.SkeletonID)
	if err != nil {
		return "", nil, fmt.Errorf("build %q: %w", lead.Name, err)
	}
	if skel == nil {
		slog.Warn("template skeleton missing, generating from scratch",
			"template_id", tpl.ID, "skeleton_id", tpl.SkeletonID)
		return "", nil, nil
	}

	html, err := b.Designer.AssembleFromTemplate(ctx, tpl, skel, lead)
	if err != nil {
		return "", nil, fmt.Errorf("build %q: %w", lead.Name, err)
	}
	return html, tpl, nil
}

// HasTemplateMatch reports whether any approved template fits the lead's
// niche. The queue view shows it as a hint.
func HasTemplateMatch(lead models.Lead, templates []models.Template) bool {
	niche := lead.Niche()
	for i := range templates {
		if templates[i].Approved && templates[i].MatchesNiche(niche) {
			return true
		}
	}
	return false
}
