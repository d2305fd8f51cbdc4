// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sitefoundry/internal/blob"
	"sitefoundry/internal/cache"
	"sitefoundry/internal/inject"
	"sitefoundry/internal/models"
	"sitefoundry/internal/paywall"
	"sitefoundry/internal/render"
	"sitefoundry/internal/slug"
)

// Public groups the gateway handlers: the shell page for a client's site,
// the blob documents it frames and the view teardown beacon. The paywall is
// evaluated on every request; only the injected document is cached.
type Public struct {
	renderer  *render.Renderer
	clients   ClientStore
	channels  *blob.Channels
	pageCache *cache.PageCache
	baseHost  string
	now       func() time.Time
}

// NewPublic creates a new Public handler group. baseHost is the host that
// client subdomains hang off, e.g. "sites.agencia.com.br".
func NewPublic(renderer *render.Renderer, clients ClientStore, channels *blob.Channels, pageCache *cache.PageCache, baseHost string) *Public {
	return &Public{
		renderer:  renderer,
		clients:   clients,
		channels:  channels,
		pageCache: pageCache,
		baseHost:  baseHost,
		now:       time.Now,
	}
}

// Root serves a site addressed by subdomain or by ?site=<slug|id>. Anything
// else goes to the admin.
func (p *Public) Root(w http.ResponseWriter, r *http.Request) {
	key := slug.FromHost(r.Host, p.baseHost)
	if key == "" {
		key = strings.TrimSpace(r.URL.Query().Get("site"))
	}
	if key == "" {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	p.serveSite(w, r, key)
}

// Site serves /s/{slug}.
func (p *Public) Site(w http.ResponseWriter, r *http.Request) {
	p.serveSite(w, r, chi.URLParam(r, "slug"))
}

func (p *Public) serveSite(w http.ResponseWriter, r *http.Request, key string) {
	ctx := r.Context()

	c, err := p.clients.FindBySlugOrID(ctx, key)
	if err != nil {
		slog.Error("find client failed", "key", key, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}

	st := paywall.Evaluate(p.now(), c.CreatedAt, float64(c.TrialHours), c.PaymentStatus)
	if st.Blocked {
		renderBlock(p.renderer, w, r, c, st)
		return
	}

	doc := p.document(ctx, c)
	data := map[string]any{"Banner": paywall.Banner(st)}
	if doc != nil {
		ref, view, err := mount(ctx, p.channels, "client:"+c.ID.String(), doc)
		if err != nil {
			slog.Error("publish site failed", "client", c.ID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data["Ref"] = ref
		data["View"] = view
	}

	w.Header().Set("Cache-Control", "no-store")
	p.renderer.Page(w, r, "gateway", &render.PageData{Title: c.Name, Data: data})
}

// document returns the readonly document of a client, or nil when the
// site is still empty.
func (p *Public) document(ctx context.Context, c *models.Client) []byte {
	key := cache.SiteKey(c.ID, c.UpdatedAt)
	if cached, ok := p.pageCache.Get(ctx, key); ok {
		return cached
	}
	doc := inject.Document(c.SiteContent, c.Theme, inject.Options{
		Mode:  inject.ModeReadonly,
		Phone: c.Phone(),
	})
	if doc == "" {
		return nil
	}
	p.pageCache.Set(ctx, key, []byte(doc))
	return []byte(doc)
}

// Blob serves a published document. Expired or released refs are gone.
func (p *Public) Blob(w http.ResponseWriter, r *http.Request) {
	ref := blob.Ref(chi.URLParam(r, "ref"))
	if !ref.Valid() {
		http.NotFound(w, r)
		return
	}
	data, ok, err := p.channels.Serve(r.Context(), ref)
	if err != nil {
		slog.Error("serve blob failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// CloseView releases a view when its page is left.
func (p *Public) CloseView(w http.ResponseWriter, r *http.Request) {
	id := blob.ViewID(chi.URLParam(r, "view"))
	if !id.Valid() {
		http.NotFound(w, r)
		return
	}
	p.channels.Close(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// mount opens a view for source and publishes doc into it.
func mount(ctx context.Context, channels *blob.Channels, source string, doc []byte) (blob.Ref, blob.ViewID, error) {
	ch := channels.Open(source)
	ref, err := ch.Publish(ctx, doc)
	if err != nil {
		channels.Close(ctx, ch.ID)
		return "", "", err
	}
	return ref, ch.ID, nil
}

// renderBlock shows the suspended-site screen with status 402.
func renderBlock(renderer *render.Renderer, w http.ResponseWriter, r *http.Request, c *models.Client, st paywall.Status) {
	w.Header().Set("Cache-Control", "no-store")
	renderer.PageStatus(w, r, http.StatusPaymentRequired, "block", &render.PageData{
		Title: "Site suspenso",
		Data: map[string]any{
			"Name":        c.Name,
			"PaymentLink": c.PaymentLink,
			"DaysOverdue": st.DaysOverdue,
		},
	})
}
