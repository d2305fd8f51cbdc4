// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sitefoundry/internal/editor"
	"sitefoundry/internal/middleware"
	"sitefoundry/internal/models"
	"sitefoundry/internal/paywall"
	"sitefoundry/internal/render"
	"sitefoundry/internal/session"
)

// Portal groups the client-facing handlers: login, the site overview and
// the entry into the editor for the client's own site.
type Portal struct {
	renderer *render.Renderer
	sessions *session.Store
	clients  ClientStore
	editor   *Editor
	now      func() time.Time
}

// NewPortal creates a new Portal handler group.
func NewPortal(renderer *render.Renderer, sessions *session.Store, clients ClientStore, ed *Editor) *Portal {
	return &Portal{
		renderer: renderer,
		sessions: sessions,
		clients:  clients,
		editor:   ed,
		now:      time.Now,
	}
}

// LoginPage renders the portal login form.
func (p *Portal) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromCtx(r.Context()).IsClient() {
		http.Redirect(w, r, "/portal", http.StatusSeeOther)
		return
	}
	p.renderer.Page(w, r, "login", &render.PageData{
		Title: "Portal do cliente",
		Data:  map[string]any{"Action": middleware.PortalLoginPath},
	})
}

// LoginSubmit checks the e-mail and password set by the agency.
func (p *Portal) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")

	c, err := p.clients.FindByEmail(r.Context(), email)
	if err != nil {
		slog.Error("find client by email failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if c == nil || !p.clients.CheckPassword(c, password) {
		slog.Warn("portal login failed", "email", email)
		p.renderer.PageStatus(w, r, http.StatusUnauthorized, "login", &render.PageData{
			Title: "Portal do cliente",
			Data: map[string]any{
				"Action": middleware.PortalLoginPath,
				"Email":  email,
				"Error":  "E-mail ou senha inválidos.",
			},
		})
		return
	}

	_, err = p.sessions.Create(r.Context(), w, &session.Data{
		Role:      models.RoleClient,
		Email:     c.Email,
		ClientID:  c.ID,
		TwoFADone: true,
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	slog.Info("portal login", "client", c.ID)
	http.Redirect(w, r, "/portal", http.StatusSeeOther)
}

// Logout ends the portal session.
func (p *Portal) Logout(w http.ResponseWriter, r *http.Request) {
	if err := p.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	http.Redirect(w, r, middleware.PortalLoginPath, http.StatusSeeOther)
}

// current loads the signed-in client. A client deleted under a live
// session is logged out.
func (p *Portal) current(w http.ResponseWriter, r *http.Request) (*models.Client, bool) {
	sess := middleware.SessionFromCtx(r.Context())
	c, err := p.clients.FindByID(r.Context(), sess.ClientID)
	if err != nil {
		slog.Error("find portal client failed", "client", sess.ClientID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if c == nil {
		p.Logout(w, r)
		return nil, false
	}
	return c, true
}

// Home shows the client's site link and subscription state.
func (p *Portal) Home(w http.ResponseWriter, r *http.Request) {
	c, ok := p.current(w, r)
	if !ok {
		return
	}
	st := paywall.Evaluate(p.now(), c.CreatedAt, float64(c.TrialHours), c.PaymentStatus)
	p.renderer.Page(w, r, "portal", &render.PageData{
		Title: c.Name,
		Data: map[string]any{
			"Client": c,
			"URL":    siteURL(c),
			"Trial":  st,
			"Banner": paywall.Banner(st),
		},
	})
}

// OpenEditor starts an editing session on the client's own site. A
// blocked site cannot be edited until it is paid.
func (p *Portal) OpenEditor(w http.ResponseWriter, r *http.Request) {
	c, ok := p.current(w, r)
	if !ok {
		return
	}
	st := paywall.Evaluate(p.now(), c.CreatedAt, float64(c.TrialHours), c.PaymentStatus)
	if st.Blocked {
		renderBlock(p.renderer, w, r, c, st)
		return
	}

	s, err := p.editor.Open(r.Context(), editor.Target{Kind: editor.KindClient, ID: c.ID})
	if err != nil {
		slog.Error("open portal editor failed", "client", c.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	slog.Info("portal editor opened", "client", c.ID, "session", s.ID)
	http.Redirect(w, r, "/portal/editor/"+s.ID, http.StatusSeeOther)
}
