// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains. Routes
// fall into three surfaces: the public site gateway, the operator admin
// area and the client portal, each with its own middleware stack.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sitefoundry/internal/handlers"
	"sitefoundry/internal/middleware"
	"sitefoundry/internal/session"
	"sitefoundry/web"
)

// Handlers groups the handler sets mounted by New.
type Handlers struct {
	Admin  *handlers.Admin
	Auth   *handlers.Auth
	Public *handlers.Public
	Editor *handlers.Editor
	Portal *handlers.Portal
	Queue  *handlers.Queue
}

// Options tune the middleware stacks.
type Options struct {
	SecureCookies bool
	// LoginLimiter throttles the password endpoints. Nil disables it.
	LoginLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessionStore *session.Store, h Handlers, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessionStore))

	r.Get("/health", healthHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Public gateway. Blob refs are unguessable and single-purpose, so
	// the close beacon carries no CSRF token.
	r.Get("/", h.Public.Root)
	r.Get("/s/{slug}", h.Public.Site)
	r.Get("/blob/{ref}", h.Public.Blob)
	r.Post("/blob/views/{view}/close", h.Public.CloseView)

	limited := func(fn http.HandlerFunc) http.Handler {
		if opts.LoginLimiter == nil {
			return fn
		}
		return opts.LoginLimiter.Middleware(fn)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NewCSRF(opts.SecureCookies))

		r.Get("/login", h.Auth.LoginPage)
		r.Method(http.MethodPost, "/login", limited(h.Auth.LoginSubmit))
		r.Post("/logout", h.Auth.Logout)

		// Password accepted, second factor outstanding.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePending2FA)
			r.Get("/2fa/setup", h.Auth.TwoFASetupPage)
			r.Get("/2fa/verify", h.Auth.TwoFAVerifyPage)
			r.Method(http.MethodPost, "/2fa/verify", limited(h.Auth.TwoFAVerifySubmit))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/", h.Admin.Dashboard)
			r.Get("/clients/{id}", h.Admin.ClientPage)
			r.Get("/clients/{id}/preview", h.Admin.ClientPreview)
			r.Get("/clients/{id}/snapshot.png", h.Admin.Snapshot)
			r.Get("/skeletons/{id}/preview", h.Admin.SkeletonPreview)
			r.Get("/templates/{id}/preview", h.Admin.TemplatePreview)
			r.Get("/studio", h.Admin.StudioPage)
			r.Get("/settings", h.Admin.SettingsPage)
			r.Get("/queue", h.Queue.Page)

			r.Route("/editor/{sid}", func(r chi.Router) {
				editorRoutes(r, h.Editor)
			})

			r.Route("/api", func(r chi.Router) {
				r.Route("/clients", func(r chi.Router) {
					r.Post("/", h.Admin.ClientCreate)
					r.Put("/{id}", h.Admin.ClientUpdate)
					r.Delete("/{id}", h.Admin.ClientDelete)
					r.Get("/{id}/export", h.Admin.ClientExport)
					r.Post("/{id}/payment", h.Admin.ClientPayment)
					r.Post("/{id}/portal", h.Admin.ClientPortal)
					r.Post("/{id}/generate", h.Admin.ClientGenerate)
					r.Post("/{id}/snapshot", h.Admin.SnapshotUpload)
				})

				r.Route("/skeletons", func(r chi.Router) {
					r.Post("/", h.Admin.SkeletonCreate)
					r.Post("/{id}/approve", h.Admin.SkeletonApprove)
					r.Delete("/{id}", h.Admin.SkeletonDelete)
				})

				r.Route("/templates", func(r chi.Router) {
					r.Post("/", h.Admin.TemplateCreate)
					r.Post("/{id}/approve", h.Admin.TemplateApprove)
					r.Delete("/{id}", h.Admin.TemplateDelete)
				})

				r.Get("/archetypes", h.Admin.Archetypes)
				r.Post("/settings/ai", h.Admin.SetProvider)
				r.Post("/settings/trial", h.Admin.SettingsTrial)
				r.Post("/cache/flush", h.Admin.CacheFlush)
				r.Post("/editor", h.Editor.OpenAPI)

				r.Route("/queue", func(r chi.Router) {
					r.Get("/", h.Queue.State)
					r.Post("/import", h.Queue.Import)
					r.Post("/select", h.Queue.Select)
					r.Post("/start", h.Queue.Start)
					r.Post("/pause", h.Queue.Pause)
					r.Post("/clear", h.Queue.Clear)
					r.Delete("/{id}", h.Queue.Remove)
				})
			})
		})
	})

	r.Route("/portal", func(r chi.Router) {
		r.Use(middleware.NewCSRF(opts.SecureCookies))

		r.Get("/login", h.Portal.LoginPage)
		r.Method(http.MethodPost, "/login", limited(h.Portal.LoginSubmit))
		r.Post("/logout", h.Portal.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireClient)
			r.Get("/", h.Portal.Home)
			r.Post("/editor", h.Portal.OpenEditor)
			r.Route("/editor/{sid}", func(r chi.Router) {
				editorRoutes(r, h.Editor)
			})
		})
	})

	return r
}

// editorRoutes mounts one editing session. Both surfaces share it; the
// handlers check that the caller owns the session target.
func editorRoutes(r chi.Router, ed *handlers.Editor) {
	r.Get("/", ed.Page)
	r.Get("/document", ed.Document)
	r.Get("/state", ed.State)
	r.Get("/ws", ed.Socket)
	r.Post("/message", ed.Message)
	r.Post("/select", ed.Select)
	r.Post("/theme", ed.Theme)
	r.Post("/image", ed.Image)
	r.Post("/undo", ed.Undo)
	r.Post("/redo", ed.Redo)
	r.Post("/ai-edit", ed.AIEdit)
	r.Post("/fix-responsive", ed.FixResponsive)
	r.Post("/save", ed.Save)
	r.Post("/close", ed.Close)
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
