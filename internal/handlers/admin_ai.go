// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"sitefoundry/internal/ai"
	"sitefoundry/internal/models"
	"sitefoundry/internal/store"
)

// writeAIError reports a failed generation. Provider details stay in the
// log.
func writeAIError(w http.ResponseWriter, op string, err error) {
	var rejected *ai.RejectedError
	if errors.As(err, &rejected) {
		writeError(w, http.StatusUnprocessableEntity, "Pedido recusado pela moderação: "+rejected.Error())
		return
	}
	slog.Error("ai request failed", "op", op, "error", err)
	writeError(w, http.StatusBadGateway, "O provedor de IA não respondeu. Tente novamente.")
}

// ClientGenerate writes the client's site from scratch with the active
// provider, using the lead dossier when there is one.
func (a *Admin) ClientGenerate(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadClient(w, r, true)
	if !ok {
		return
	}

	industry := c.Industry
	if industry == "" && c.Lead != nil {
		industry = c.Lead.Niche()
	}
	html, err := a.designer.GenerateSite(r.Context(), ai.Brief{Name: c.Name, Industry: industry, Lead: c.Lead})
	if err != nil {
		writeAIError(w, "generate site", err)
		return
	}

	c.SiteContent = html
	c.Status = models.ClientStatusGenerated
	if err := a.clients.Upsert(r.Context(), c); err != nil {
		serverError(w, "save generated site failed", err)
		return
	}
	a.pageCache.InvalidateClient(r.Context(), c.ID)

	slog.Info("client site generated", "id", c.ID, "bytes", len(html))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Site gerado."})
}

// --- Studio: skeletons ---

// SkeletonCreate generates a skeleton from a blueprint:
// {"name": "...", "blueprint": "..."}.
func (a *Admin) SkeletonCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Blueprint string `json:"blueprint"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateSkeleton(req.Name, req.Blueprint); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	html, err := a.designer.GenerateSkeleton(r.Context(), strings.TrimSpace(req.Blueprint))
	if err != nil {
		writeAIError(w, "generate skeleton", err)
		return
	}

	sk := &models.Skeleton{Name: strings.TrimSpace(req.Name), HTML: html}
	if err := a.skeletons.Upsert(r.Context(), sk); err != nil {
		serverError(w, "save skeleton failed", err)
		return
	}
	slog.Info("skeleton generated", "id", sk.ID, "name", sk.Name)
	writeJSON(w, http.StatusCreated, sk)
}

// SkeletonApprove toggles approval: {"approved": true}.
func (a *Admin) SkeletonApprove(w http.ResponseWriter, r *http.Request) {
	a.approve(w, r, "skeleton", a.skeletons.SetApproved)
}

// SkeletonDelete removes a skeleton. Templates built on it keep their own
// copy of the markup.
func (a *Admin) SkeletonDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido.")
		return
	}
	if err := a.skeletons.Delete(r.Context(), id); err != nil {
		serverError(w, "delete skeleton failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Studio: templates ---

// Archetypes suggests brand directions for ?niche=.
func (a *Admin) Archetypes(w http.ResponseWriter, r *http.Request) {
	niche := strings.TrimSpace(r.URL.Query().Get("niche"))
	if niche == "" || utf8.RuneCountInString(niche) > maxIndustryLen {
		writeError(w, http.StatusBadRequest, "Informe o nicho.")
		return
	}
	items, err := a.designer.SuggestArchetypes(r.Context(), niche)
	if err != nil {
		writeAIError(w, "suggest archetypes", err)
		return
	}
	if items == nil {
		items = []models.BrandArchetype{}
	}
	writeJSON(w, http.StatusOK, items)
}

// TemplateCreate builds a template from an approved skeleton and a chosen
// archetype: {"skeletonId": "...", "niche": "...", "archetype": {...}}.
func (a *Admin) TemplateCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SkeletonID string                `json:"skeletonId"`
		Niche      string                `json:"niche"`
		Archetype  models.BrandArchetype `json:"archetype"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	skID, err := uuid.Parse(req.SkeletonID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Escolha um esqueleto.")
		return
	}
	niche := strings.ToLower(strings.TrimSpace(req.Niche))
	if niche == "" || utf8.RuneCountInString(niche) > maxIndustryLen {
		writeError(w, http.StatusBadRequest, "Informe o nicho.")
		return
	}
	if strings.TrimSpace(req.Archetype.Name) == "" {
		writeError(w, http.StatusBadRequest, "Escolha um arquétipo.")
		return
	}

	sk, err := a.skeletons.FindByID(r.Context(), skID)
	if err != nil {
		serverError(w, "find skeleton failed", err)
		return
	}
	if sk == nil {
		writeError(w, http.StatusNotFound, "Esqueleto não encontrado.")
		return
	}
	if !sk.Approved {
		writeError(w, http.StatusConflict, "Aprove o esqueleto antes de criar templates.")
		return
	}

	t := &models.Template{
		SkeletonID:  sk.ID,
		Niche:       niche,
		Archetype:   strings.TrimSpace(req.Archetype.Name),
		StyleConfig: ai.ThemeFromArchetype(req.Archetype),
		PreviewHTML: sk.HTML,
	}
	if err := a.templates.Upsert(r.Context(), t); err != nil {
		serverError(w, "save template failed", err)
		return
	}
	slog.Info("template created", "id", t.ID, "niche", t.Niche, "archetype", t.Archetype)
	writeJSON(w, http.StatusCreated, t)
}

// TemplateApprove toggles approval: {"approved": true}. Only approved
// templates are offered to mass generation.
func (a *Admin) TemplateApprove(w http.ResponseWriter, r *http.Request) {
	a.approve(w, r, "template", a.templates.SetApproved)
}

// TemplateDelete removes a template. Clients built from it are unaffected.
func (a *Admin) TemplateDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido.")
		return
	}
	if err := a.templates.Delete(r.Context(), id); err != nil {
		serverError(w, "delete template failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Admin) approve(w http.ResponseWriter, r *http.Request, kind string, set func(ctx context.Context, id uuid.UUID, approved bool) error) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido.")
		return
	}
	var req struct {
		Approved bool `json:"approved"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := set(r.Context(), id, req.Approved)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Registro não encontrado.")
		return
	}
	if err != nil {
		serverError(w, "set "+kind+" approval failed", err)
		return
	}
	slog.Info(kind+" approval changed", "id", id, "approved", req.Approved)
	writeJSON(w, http.StatusOK, map[string]bool{"approved": req.Approved})
}

// --- AI provider ---

// SetProvider switches the active AI provider and remembers the choice:
// {"provider": "claude"}.
func (a *Admin) SetProvider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.providers.SetActive(req.Provider); err != nil {
		writeError(w, http.StatusBadRequest, "Provedor indisponível (chave de API ausente?).")
		return
	}
	if err := a.settings.Set(r.Context(), models.SettingAIProvider, req.Provider); err != nil {
		serverError(w, "save ai provider failed", err)
		return
	}
	slog.Info("ai provider changed", "provider", req.Provider)
	writeJSON(w, http.StatusOK, map[string]string{"provider": req.Provider})
}
