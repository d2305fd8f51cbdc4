// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package queue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"sitefoundry/internal/ai"
	"sitefoundry/internal/models"
	"sitefoundry/internal/theme"
)

type fakeTemplates struct {
	byNiche map[string][]models.Template
	asked   []string
}

func (f *fakeTemplates) ListApprovedByNiche(ctx context.Context, niche string) ([]models.Template, error) {
	f.asked = append(f.asked, niche)
	return f.byNiche[niche], nil
}

type fakeSkeletons map[uuid.UUID]*models.Skeleton

func (f fakeSkeletons) FindByID(ctx context.Context, id uuid.UUID) (*models.Skeleton, error) {
	return f[id], nil
}

type fakeDesigner struct {
	generated []ai.Brief
	assembled []*models.Template
	err       error
}

func (d *fakeDesigner) GenerateSite(ctx context.Context, b ai.Brief) (string, error) {
	d.generated = append(d.generated, b)
	return "<html>gerado</html>", d.err
}

func (d *fakeDesigner) PickBestTemplate(ctx context.Context, lead *models.Lead, candidates []models.Template) (*models.Template, error) {
	return &candidates[len(candidates)-1], nil
}

func (d *fakeDesigner) AssembleFromTemplate(ctx context.Context, tpl *models.Template, skel *models.Skeleton, lead *models.Lead) (string, error) {
	d.assembled = append(d.assembled, tpl)
	return "<html>" + skel.Name + "</html>", d.err
}

func TestSiteBuilderFromTemplate(t *testing.T) {
	skel := &models.Skeleton{ID: uuid.New(), Name: "classico"}
	tpl := models.Template{
		ID:          uuid.New(),
		SkeletonID:  skel.ID,
		Niche:       "padaria",
		Archetype:   "Premium",
		StyleConfig: theme.Config{PrimaryColor: "#c2410c"},
		Approved:    true,
	}
	templates := &fakeTemplates{byNiche: map[string][]models.Template{"padaria": {tpl}}}
	designer := &fakeDesigner{}
	b := &SiteBuilder{
		Templates:  templates,
		Skeletons:  fakeSkeletons{skel.ID: skel},
		Designer:   designer,
		TrialHours: func(context.Context) int { return 168 },
	}

	id := uuid.New()
	lead := models.Lead{Name: "Padaria São João", Categories: []string{"Padaria"}, Summary: "Pães artesanais"}
	c, err := b.Build(context.Background(), id.String(), lead)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if templates.asked[0] != "padaria" {
		t.Errorf("niche = %q, want lowercased first category", templates.asked[0])
	}
	if c.ID != id || c.SiteContent != "<html>classico</html>" {
		t.Errorf("client = %+v", c)
	}
	if !strings.HasPrefix(c.Slug, "padaria-sao-joao-") || !strings.HasSuffix(c.Slug, id.String()[:4]) {
		t.Errorf("slug = %q", c.Slug)
	}
	if c.Status != models.ClientStatusApproved || c.PaymentStatus != models.PaymentPending || c.TrialHours != 168 {
		t.Errorf("status/payment/trial = %s/%s/%d", c.Status, c.PaymentStatus, c.TrialHours)
	}
	if c.TemplateID == nil || *c.TemplateID != tpl.ID || c.Theme.PrimaryColor != "#c2410c" {
		t.Errorf("template binding = %v %+v", c.TemplateID, c.Theme)
	}
	if c.Industry != "padaria" || c.Scope != "Pães artesanais" || c.Lead == nil {
		t.Errorf("lead fields not carried: %+v", c)
	}
	if len(designer.generated) != 0 {
		t.Error("GenerateSite should not run when a template matches")
	}
}

func TestSiteBuilderFallsBackToGeneration(t *testing.T) {
	orphan := models.Template{ID: uuid.New(), SkeletonID: uuid.New(), Niche: "geral", Approved: true}

	tests := []struct {
		name      string
		templates map[string][]models.Template
	}{
		{name: "no template for niche", templates: nil},
		{name: "template skeleton deleted", templates: map[string][]models.Template{"geral": {orphan}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			designer := &fakeDesigner{}
			b := &SiteBuilder{
				Templates: &fakeTemplates{byNiche: tt.templates},
				Skeletons: fakeSkeletons{},
				Designer:  designer,
			}
			c, err := b.Build(context.Background(), uuid.NewString(), models.Lead{Name: "Sem Categoria"})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if c.SiteContent != "<html>gerado</html>" || c.TemplateID != nil {
				t.Errorf("client = %+v", c)
			}
			if len(designer.generated) != 1 || designer.generated[0].Industry != models.DefaultNiche {
				t.Errorf("generated = %+v", designer.generated)
			}
		})
	}
}

func TestSiteBuilderError(t *testing.T) {
	b := &SiteBuilder{Designer: &fakeDesigner{err: errors.New("quota")}}
	if _, err := b.Build(context.Background(), "not-a-uuid", models.Lead{Name: "X"}); err == nil {
		t.Error("designer error should fail the build")
	}
}

func TestHasTemplateMatch(t *testing.T) {
	templates := []models.Template{
		{Niche: "Padaria", Approved: true},
		{Niche: "oficina", Approved: false},
	}
	tests := []struct {
		lead models.Lead
		want bool
	}{
		{models.Lead{Categories: []string{"padaria"}}, true},
		{models.Lead{Categories: []string{"Oficina"}}, false},
		{models.Lead{Industry: "PADARIA"}, true},
		{models.Lead{}, false},
	}
	for _, tt := range tests {
		if got := HasTemplateMatch(tt.lead, templates); got != tt.want {
			t.Errorf("HasTemplateMatch(%+v) = %v, want %v", tt.lead, got, tt.want)
		}
	}
}
