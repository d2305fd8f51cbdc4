// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitefoundry/internal/blob"
	"sitefoundry/internal/cache"
	"sitefoundry/internal/editor"
	"sitefoundry/internal/inject"
	"sitefoundry/internal/markdown"
	"sitefoundry/internal/models"
	"sitefoundry/internal/paywall"
	"sitefoundry/internal/render"
	"sitefoundry/internal/slug"
	"sitefoundry/internal/storage"
	"sitefoundry/internal/store"
	"sitefoundry/internal/theme"
)

// AIProviderInfo holds display information about a configured AI provider.
// Used by the Settings page to show which providers are available.
type AIProviderInfo struct {
	Name      string // "openai", "gemini", "claude", "mistral"
	Label     string // Human-friendly label
	HasKey    bool   // Whether an API key is configured
	Active    bool   // Set at render time from the registry
	Model     string // Configured model name
	KeyEnvVar string // Environment variable name for the key
}

// AdminOptions carries the plain configuration the admin handlers need.
type AdminOptions struct {
	// BaseHost is the host client subdomains hang off.
	BaseHost string
	// DefaultTrial applies when no trial default is stored in settings.
	DefaultTrial models.TrialSettings
	// Providers lists the AI providers for the settings page. API keys are
	// never part of it.
	Providers []AIProviderInfo
}

// Admin groups the admin pages and the JSON API behind them.
type Admin struct {
	renderer  *render.Renderer
	clients   ClientStore
	skeletons SkeletonStore
	templates TemplateStore
	settings  SettingStore
	channels  *blob.Channels
	pageCache *cache.PageCache
	editors   *editor.Manager
	designer  Designer
	providers Providers
	capturer  Capturer
	storage   *storage.Client
	opts      AdminOptions
	now       func() time.Time
}

// NewAdmin creates a new Admin handler group. capturer and storageClient
// may be nil when no browser or bucket is available.
func NewAdmin(renderer *render.Renderer, clients ClientStore, skeletons SkeletonStore, templates TemplateStore, settings SettingStore,
	channels *blob.Channels, pageCache *cache.PageCache, editors *editor.Manager, designer Designer, providers Providers,
	capturer Capturer, storageClient *storage.Client, opts AdminOptions) *Admin {
	return &Admin{
		renderer:  renderer,
		clients:   clients,
		skeletons: skeletons,
		templates: templates,
		settings:  settings,
		channels:  channels,
		pageCache: pageCache,
		editors:   editors,
		designer:  designer,
		providers: providers,
		capturer:  capturer,
		storage:   storageClient,
		opts:      opts,
		now:       time.Now,
	}
}

// clientRow is one line of the dashboard.
type clientRow struct {
	Client *models.Client
	Trial  paywall.Status
	Banner string
	URL    string
}

func (a *Admin) trialOf(c *models.Client) paywall.Status {
	return paywall.Evaluate(a.now(), c.CreatedAt, float64(c.TrialHours), c.PaymentStatus)
}

// siteURL is the gateway path of a client's site.
func siteURL(c *models.Client) string {
	return "/s/" + c.Address()
}

// Dashboard renders the client list with trial state.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	clients, err := a.clients.List(r.Context())
	if err != nil {
		slog.Error("list clients failed", "error", err)
	}

	rows := make([]clientRow, 0, len(clients))
	for i := range clients {
		c := &clients[i]
		st := a.trialOf(c)
		rows = append(rows, clientRow{Client: c, Trial: st, Banner: paywall.Banner(st), URL: siteURL(c)})
	}

	a.renderer.Page(w, r, "dashboard", &render.PageData{
		Title:   "Clientes",
		Section: "clients",
		Data:    map[string]any{"Clients": rows},
	})
}

// ClientPage renders one client with its lead dossier.
func (a *Admin) ClientPage(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadClient(w, r, false)
	if !ok {
		return
	}

	var dossier template.HTML
	if c.Lead != nil {
		out, err := markdown.DossierHTML(c.Lead)
		if err != nil {
			slog.Warn("render dossier failed", "client", c.ID, "error", err)
		}
		dossier = template.HTML(out)
	}

	st := a.trialOf(c)
	a.renderer.Page(w, r, "client", &render.PageData{
		Title:   c.Name,
		Section: "clients",
		Data: map[string]any{
			"Client":     c,
			"URL":        siteURL(c),
			"Trial":      st,
			"Banner":     paywall.Banner(st),
			"Dossier":    dossier,
			"HasStorage": a.storage != nil,
		},
	})
}

// ClientPreview shows the client site as visitors see it, without the
// paywall.
func (a *Admin) ClientPreview(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadClient(w, r, false)
	if !ok {
		return
	}
	doc := inject.Document(c.SiteContent, c.Theme, inject.Options{
		Mode:  inject.ModeReadonly,
		Phone: c.Phone(),
	})
	a.preview(w, r, "client:"+c.ID.String(), c.Name, "/admin/clients/"+c.ID.String(), doc)
}

// SkeletonPreview shows a skeleton desaturated, as studio mode does.
func (a *Admin) SkeletonPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	sk, err := a.skeletons.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find skeleton failed", "id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if sk == nil {
		http.NotFound(w, r)
		return
	}
	doc := inject.Document(sk.HTML, theme.Config{}, inject.Options{
		Mode:      inject.ModeReadonly,
		Grayscale: true,
	})
	a.preview(w, r, "skeleton:"+sk.ID.String(), sk.Name, "/admin/studio", doc)
}

// TemplatePreview shows a template with its style applied.
func (a *Admin) TemplatePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	t, err := a.templates.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find template failed", "id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if t == nil {
		http.NotFound(w, r)
		return
	}
	doc := inject.Document(t.PreviewHTML, t.StyleConfig, inject.Options{Mode: inject.ModeReadonly})
	a.preview(w, r, "template:"+t.ID.String(), t.Niche+" · "+t.Archetype, "/admin/studio", doc)
}

func (a *Admin) preview(w http.ResponseWriter, r *http.Request, source, title, back, doc string) {
	data := map[string]any{"Back": back}
	if doc != "" {
		ref, view, err := mount(r.Context(), a.channels, source, []byte(doc))
		if err != nil {
			slog.Error("publish preview failed", "source", source, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data["Ref"] = ref
		data["View"] = view
	}
	w.Header().Set("Cache-Control", "no-store")
	a.renderer.Page(w, r, "preview", &render.PageData{Title: title, Section: "clients", Data: data})
}

// StudioPage lists skeletons and templates.
func (a *Admin) StudioPage(w http.ResponseWriter, r *http.Request) {
	skeletons, err := a.skeletons.List(r.Context())
	if err != nil {
		slog.Error("list skeletons failed", "error", err)
	}
	templates, err := a.templates.List(r.Context())
	if err != nil {
		slog.Error("list templates failed", "error", err)
	}
	a.renderer.Page(w, r, "studio", &render.PageData{
		Title:   "Estúdio",
		Section: "studio",
		Data: map[string]any{
			"Skeletons": skeletons,
			"Templates": templates,
		},
	})
}

// SettingsPage renders the trial defaults, AI provider and environment.
func (a *Admin) SettingsPage(w http.ResponseWriter, r *http.Request) {
	trial, err := a.settings.Trial(r.Context(), a.opts.DefaultTrial)
	if err != nil {
		slog.Error("load trial settings failed", "error", err)
		trial = a.opts.DefaultTrial
	}

	active := ""
	if a.providers != nil {
		active = a.providers.ActiveName()
	}
	providers := make([]AIProviderInfo, len(a.opts.Providers))
	for i, p := range a.opts.Providers {
		p.Active = p.Name == active
		providers[i] = p
	}

	hasBrowser := false
	if b, ok := a.capturer.(interface{ Browser() (string, error) }); ok {
		_, err := b.Browser()
		hasBrowser = err == nil
	}

	a.renderer.Page(w, r, "settings", &render.PageData{
		Title:   "Configurações",
		Section: "settings",
		Data: map[string]any{
			"Trial":          trial,
			"Providers":      providers,
			"BaseHost":       a.opts.BaseHost,
			"HasStorage":     a.storage != nil,
			"HasBrowser":     hasBrowser,
			"EditorSessions": a.editors.Len(),
			"Views":          a.channels.Len(),
		},
	})
}

// --- Clients API ---

// clientRequest is the editable part of a client.
type clientRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Industry    string `json:"industry"`
	Scope       string `json:"scope"`
	TrialHours  *int   `json:"trialHours"`
	PaymentLink string `json:"paymentLink"`
}

func (req *clientRequest) trim() {
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	req.Industry = strings.TrimSpace(req.Industry)
	req.Scope = strings.TrimSpace(req.Scope)
	req.PaymentLink = strings.TrimSpace(req.PaymentLink)
}

// ClientCreate creates a client with the current default trial.
func (a *Admin) ClientCreate(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.trim()

	trialHours, err := a.defaultTrialHours(r.Context())
	if err != nil {
		serverError(w, "load trial settings failed", err)
		return
	}
	if req.TrialHours != nil {
		trialHours = *req.TrialHours
	}
	if msg := validateClient(req.Name, req.Slug, req.Industry, req.Scope, trialHours, req.PaymentLink); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c := &models.Client{
		ID:            uuid.New(),
		Name:          req.Name,
		Industry:      req.Industry,
		Scope:         req.Scope,
		Status:        models.ClientStatusDraft,
		PaymentStatus: models.PaymentPending,
		TrialHours:    trialHours,
		PaymentLink:   req.PaymentLink,
	}
	if err := a.assignSlug(r.Context(), c, req.Slug); err != nil {
		serverError(w, "assign slug failed", err)
		return
	}
	if err := a.clients.Upsert(r.Context(), c); err != nil {
		serverError(w, "create client failed", err)
		return
	}

	slog.Info("client created", "id", c.ID, "slug", c.Slug, "trial_hours", c.TrialHours)
	writeJSON(w, http.StatusCreated, c)
}

// ClientUpdate edits a client's data. Site content and theme belong to
// the editor and are left untouched.
func (a *Admin) ClientUpdate(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadClient(w, r, true)
	if !ok {
		return
	}
	var req clientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.trim()

	trialHours := c.TrialHours
	if req.TrialHours != nil {
		trialHours = *req.TrialHours
	}
	if msg := validateClient(req.Name, req.Slug, req.Industry, req.Scope, trialHours, req.PaymentLink); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c.Name = req.Name
	c.Industry = req.Industry
	c.Scope = req.Scope
	c.TrialHours = trialHours
	c.PaymentLink = req.PaymentLink
	if req.Slug != c.Slug {
		if err := a.assignSlug(r.Context(), c, req.Slug); err != nil {
			serverError(w, "assign slug failed", err)
			return
		}
	}

	if err := a.clients.Upsert(r.Context(), c); err != nil {
		serverError(w, "update client failed", err)
		return
	}
	a.pageCache.InvalidateClient(r.Context(), c.ID)
	writeJSON(w, http.StatusOK, c)
}

// ClientDelete removes a client and its cached pages.
func (a *Admin) ClientDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido.")
		return
	}
	if err := a.clients.Delete(r.Context(), id); err != nil {
		serverError(w, "delete client failed", err)
		return
	}
	a.pageCache.InvalidateClient(r.Context(), id)
	slog.Info("client deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// clientExport is the downloadable bundle of one client.
type clientExport struct {
	ExportedAt time.Time        `json:"exportedAt"`
	Client     *models.Client   `json:"client"`
	Template   *models.Template `json:"template,omitempty"`
}

// ClientExport downloads the client, with its template when it has one,
// as JSON. The password hash is never included.
func (a *Admin) ClientExport(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadClient(w, r, true)
	if !ok {
		return
	}
	out := clientExport{ExportedAt: a.now().UTC(), Client: c}
	if c.TemplateID != nil {
		t, err := a.templates.FindByID(r.Context(), *c.TemplateID)
		if err != nil {
			slog.Warn("export template lookup failed", "template", *c.TemplateID, "error", err)
		}
		out.Template = t
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="cliente-%s.json"`, c.Address()))
	writeJSON(w, http.StatusOK, out)
}

// ClientPayment marks a client paid or pending: {"status": "paid"}.
func (a *Admin) ClientPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido.")
		return
	}
	var req struct {
		Status models.PaymentStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status != models.PaymentPaid && req.Status != models.PaymentPending {
		writeError(w, http.StatusBadRequest, "Situação de pagamento inválida.")
		return
	}

	err := a.clients.SetPayment(r.Context(), id, req.Status)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Cliente não encontrado.")
		return
	}
	if err != nil {
		serverError(w, "set payment failed", err)
		return
	}
	slog.Info("client payment updated", "id", id, "status", req.Status)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Pagamento atualizado."})
}

// ClientPortal sets the portal e-mail and password of a client.
func (a *Admin) ClientPortal(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido.")
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if msg := validatePortalAccess(req.Email, req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	other, err := a.clients.FindByEmail(r.Context(), req.Email)
	if err != nil {
		serverError(w, "find client by email failed", err)
		return
	}
	if other != nil && other.ID != id {
		writeError(w, http.StatusConflict, "E-mail já usado por outro cliente.")
		return
	}

	err = a.clients.SetPortalAccess(r.Context(), id, req.Email, req.Password)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Cliente não encontrado.")
		return
	}
	if err != nil {
		serverError(w, "set portal access failed", err)
		return
	}
	slog.Info("client portal access set", "id", id, "email", req.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Acesso ao portal definido."})
}

// --- Settings API ---

// SettingsTrial stores the default trial: {"value": 7, "unit": "days"}.
func (a *Admin) SettingsTrial(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value int    `json:"value"`
		Unit  string `json:"unit"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	unit, err := models.ParseTrialUnit(body.Unit)
	if err != nil || body.Value < 0 {
		writeError(w, http.StatusBadRequest, "Período de teste inválido.")
		return
	}
	req := models.TrialSettings{Value: body.Value, Unit: unit}
	if req.Hours() > maxTrialHours {
		writeError(w, http.StatusBadRequest, "Período de teste muito longo.")
		return
	}

	if err := a.settings.SetTrial(r.Context(), req); err != nil {
		serverError(w, "save trial settings failed", err)
		return
	}
	slog.Info("trial defaults updated", "value", req.Value, "unit", req.Unit)
	writeJSON(w, http.StatusOK, req)
}

// CacheFlush drops every cached site document.
func (a *Admin) CacheFlush(w http.ResponseWriter, r *http.Request) {
	n := a.pageCache.InvalidateAll(r.Context())
	slog.Info("page cache flushed", "deleted", n)
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": n,
		"message": fmt.Sprintf("%d página(s) removida(s) do cache.", n),
	})
}

// --- helpers ---

// defaultTrialHours is the trial handed to a new client.
func (a *Admin) defaultTrialHours(ctx context.Context) (int, error) {
	t, err := a.settings.Trial(ctx, a.opts.DefaultTrial)
	if err != nil {
		return 0, err
	}
	return paywall.DefaultTrial(t.Value, t.Unit), nil
}

// assignSlug sets the slug and subdomain of c from want, falling back to
// its name. A slug taken by another client gets a short suffix.
func (a *Admin) assignSlug(ctx context.Context, c *models.Client, want string) error {
	s := slug.Generate(want)
	if strings.TrimSpace(want) == "" {
		s = slug.Generate(c.Name)
	}
	other, err := a.clients.FindBySlugOrID(ctx, s)
	if err != nil {
		return err
	}
	if other != nil && other.ID != c.ID {
		s = slug.WithSuffix(s, c.ID.String()[:4])
	}
	c.Slug = s
	c.Subdomain = slug.Subdomain(s, a.opts.BaseHost)
	return nil
}

// loadClient resolves {id}. api selects JSON or plain error responses.
func (a *Admin) loadClient(w http.ResponseWriter, r *http.Request, api bool) (*models.Client, bool) {
	id, ok := urlID(r)
	if !ok {
		if api {
			writeError(w, http.StatusBadRequest, "ID inválido.")
		} else {
			http.NotFound(w, r)
		}
		return nil, false
	}
	c, err := a.clients.FindByID(r.Context(), id)
	if err != nil {
		if api {
			serverError(w, "find client failed", err)
		} else {
			slog.Error("find client failed", "id", id, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return nil, false
	}
	if c == nil {
		if api {
			writeError(w, http.StatusNotFound, "Cliente não encontrado.")
		} else {
			http.NotFound(w, r)
		}
		return nil, false
	}
	return c, true
}
