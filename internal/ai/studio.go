// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"sitefoundry/internal/models"
	"sitefoundry/internal/theme"
)

// ArchetypeCount is how many brand directions are requested per niche.
const ArchetypeCount = 5

var (
	// ErrEmptyResponse is returned when a provider answers with no usable text.
	ErrEmptyResponse = errors.New("ai: empty response")
	// ErrNoCandidates is returned by PickBestTemplate with nothing to pick.
	ErrNoCandidates = errors.New("ai: no template candidates")
)

// RejectedError is returned when moderation refuses an instruction.
type RejectedError struct {
	Result *ModerationResult
}

func (e *RejectedError) Error() string { return e.Result.Reason() }

// PromptChecker is implemented by generators that can moderate free text.
type PromptChecker interface {
	CheckPrompt(ctx context.Context, prompt string) (*ModerationResult, error)
}

// Studio turns leads, skeletons and instructions into pages.
type Studio struct {
	gen     Completer
	checker PromptChecker
	strict  *bluemonday.Policy
}

// NewStudio creates a studio over gen. When gen also implements
// PromptChecker, editor instructions are moderated.
func NewStudio(gen Completer) *Studio {
	s := &Studio{gen: gen, strict: bluemonday.StrictPolicy()}
	if c, ok := gen.(PromptChecker); ok {
		s.checker = c
	}
	return s
}

// Brief is the input for generating a site from scratch.
type Brief struct {
	Name     string
	Industry string
	Lead     *models.Lead
}

// GenerateSite writes a complete page for a business.
func (s *Studio) GenerateSite(ctx context.Context, b Brief) (string, error) {
	prompt := fmt.Sprintf(generatePrompt, b.Name, b.Industry)
	if b.Lead != nil {
		prompt += fmt.Sprintf(generateLeadSuffix, leadJSON(b.Lead))
	}
	return s.page(ctx, "generate site", Request{System: designerSystem, User: prompt})
}

// EditSite applies a free-text instruction to doc.
func (s *Studio) EditSite(ctx context.Context, doc, instruction string) (string, error) {
	if err := s.moderate(ctx, instruction); err != nil {
		return "", err
	}
	return s.page(ctx, "edit site", Request{
		System: designerSystem,
		User:   fmt.Sprintf(editPrompt, instruction, doc),
	})
}

// FixResponsiveness asks for a mobile layout pass over doc.
func (s *Studio) FixResponsiveness(ctx context.Context, doc string) (string, error) {
	return s.page(ctx, "fix responsiveness", Request{
		System: designerSystem,
		User:   fmt.Sprintf(fixResponsivePrompt, doc),
	})
}

// GenerateSkeleton writes a grayscale wireframe following blueprint.
func (s *Studio) GenerateSkeleton(ctx context.Context, blueprint string) (string, error) {
	prompt := fmt.Sprintf(skeletonPrompt, blueprint, strings.Join(models.Placeholders, ", "))
	return s.page(ctx, "generate skeleton", Request{System: designerSystem, User: prompt})
}

// SuggestArchetypes asks for brand directions for a niche. A malformed
// answer yields an empty slice, not an error.
func (s *Studio) SuggestArchetypes(ctx context.Context, niche string) ([]models.BrandArchetype, error) {
	out, err := s.gen.Complete(ctx, Request{
		System: archetypesSystem,
		User:   fmt.Sprintf(archetypesPrompt, niche, ArchetypeCount),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest archetypes: %w", err)
	}

	var raw []models.BrandArchetype
	if err := json.Unmarshal([]byte(CleanResponse(out)), &raw); err != nil {
		slog.Warn("ai: archetypes response is not a JSON array", "niche", niche, "error", err)
		return []models.BrandArchetype{}, nil
	}

	archetypes := make([]models.BrandArchetype, 0, len(raw))
	for _, a := range raw {
		a = s.sanitizeArchetype(a)
		if a.Name == "" {
			continue
		}
		archetypes = append(archetypes, a)
		if len(archetypes) == ArchetypeCount {
			break
		}
	}
	return archetypes, nil
}

func (s *Studio) sanitizeArchetype(a models.BrandArchetype) models.BrandArchetype {
	clean := func(v string) string {
		return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(v)))
	}
	a.Name = clean(a.Name)
	a.Description = clean(a.Description)

	st := a.StyleSuggestion
	st.PrimaryColor = clean(st.PrimaryColor)
	st.SecondaryColor = clean(st.SecondaryColor)
	st.BackgroundColor = clean(st.BackgroundColor)
	st.SurfaceColor = clean(st.SurfaceColor)
	st.TextColor = clean(st.TextColor)
	st.FontFamily = clean(st.FontFamily)
	st.ImageOverrides = nil
	a.StyleSuggestion = st
	return a
}

// PickBestTemplate returns the candidate the model names, or the first
// candidate when the answer matches none or the call fails.
func (s *Studio) PickBestTemplate(ctx context.Context, lead *models.Lead, candidates []models.Template) (*models.Template, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if len(candidates) == 1 {
		return &candidates[0], nil
	}

	var list strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&list, "%s: %s\n", c.ID, c.Archetype)
	}
	out, err := s.gen.Complete(ctx, Request{User: fmt.Sprintf(pickTemplatePrompt, leadJSON(lead), list.String())})
	if err != nil {
		slog.Warn("ai: template pick failed, using first candidate", "error", err)
		return &candidates[0], nil
	}

	answer := CleanResponse(out)
	for i := range candidates {
		if strings.Contains(answer, candidates[i].ID.String()) {
			return &candidates[i], nil
		}
	}
	return &candidates[0], nil
}

// AssembleFromTemplate fills a skeleton with the lead's content in the
// template's style. It uses the stronger model tier.
func (s *Studio) AssembleFromTemplate(ctx context.Context, tpl *models.Template, skel *models.Skeleton, lead *models.Lead) (string, error) {
	style, err := json.Marshal(tpl.StyleConfig)
	if err != nil {
		return "", fmt.Errorf("assemble: %w", err)
	}
	prompt := fmt.Sprintf(assemblePrompt, skel.HTML, leadJSON(lead), tpl.Archetype, style)
	return s.page(ctx, "assemble", Request{System: designerSystem, User: prompt, Tier: TierPro})
}

func (s *Studio) page(ctx context.Context, op string, req Request) (string, error) {
	out, err := s.gen.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	page := CleanResponse(out)
	if page == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return page, nil
}

// moderate rejects unsafe instructions. Moderation outages are logged and
// the instruction goes through; providers have their own filters.
func (s *Studio) moderate(ctx context.Context, text string) error {
	if s.checker == nil {
		return nil
	}
	res, err := s.checker.CheckPrompt(ctx, text)
	if err != nil {
		slog.Warn("ai: moderation unavailable", "error", err)
		return nil
	}
	if !res.Safe {
		return &RejectedError{Result: res}
	}
	return nil
}

func leadJSON(l *models.Lead) string {
	if l == nil {
		return "{}"
	}
	b, err := json.Marshal(l)
	if err != nil {
		return "{}"
	}
	return string(b)
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:html|json)?(.*?)```")
	fenceRe       = regexp.MustCompile("```(?:html|json)?")
)

// CleanResponse returns the contents of the first fenced code block when
// there is one, otherwise the text with any stray fences removed. The
// result is trimmed.
func CleanResponse(text string) string {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// ThemeFromArchetype returns the archetype's style as a theme.
func ThemeFromArchetype(a models.BrandArchetype) theme.Config {
	return a.StyleSuggestion.Clone()
}
