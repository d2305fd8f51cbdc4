// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"sitefoundry/internal/middleware"
	"sitefoundry/internal/models"
	"sitefoundry/internal/paywall"
	"sitefoundry/internal/session"
)

func adminSession() *session.Data {
	return &session.Data{Role: models.RoleAdmin, Email: "ops@agencia.test", TwoFADone: true}
}

func requestWithSession(target string, sess *session.Data) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if sess != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
	}
	return req
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	rn, err := New(false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rn
}

func TestNew(t *testing.T) {
	for _, dev := range []bool{true, false} {
		rn, err := New(dev)
		if err != nil {
			t.Fatalf("New(devMode=%v): %v", dev, err)
		}
		for _, name := range []string{
			"dashboard", "client", "queue", "studio", "settings", "preview",
			"login", "2fa_setup", "2fa_verify", "gateway", "block", "editor", "portal",
		} {
			if !rn.Has(name) {
				t.Errorf("template %q not parsed", name)
			}
		}
		if rn.Has("base") {
			t.Error("base.html should not be registered as a page")
		}
	}
}

func TestPageAdminLayout(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	r := requestWithSession("/admin", adminSession())

	rn.Page(w, r, "dashboard", &PageData{
		Title:   "Clientes",
		Section: "clients",
		Data:    map[string]any{"Clients": []any{}},
		Flashes: []Flash{{Type: "success", Message: "Cliente criado"}},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{
		"<title>Clientes · SiteFoundry</title>",
		"ops@agencia.test",
		"Cliente criado",
		"Nenhum cliente ainda.",
		"bg-gray-900 text-white",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestPageDevBadge(t *testing.T) {
	rn, err := New(true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w := httptest.NewRecorder()
	rn.Page(w, requestWithSession("/admin/settings", adminSession()), "studio", &PageData{Title: "Estúdio", Section: "studio"})
	if !strings.Contains(w.Body.String(), ">dev</span>") {
		t.Error("dev badge missing in dev mode")
	}
}

func TestPageCSRFToken(t *testing.T) {
	rn := newRenderer(t)

	var token string
	h := middleware.NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = middleware.CSRFTokenFromCtx(r.Context())
		rn.Page(w, r, "login", &PageData{Title: "Entrar", Data: map[string]any{"Action": "/admin/login"}})
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/login", nil))

	if token == "" {
		t.Fatal("no CSRF token in context")
	}
	body := w.Body.String()
	if !strings.Contains(body, `name="csrf_token" value="`+token+`"`) {
		t.Error("login form does not carry the CSRF token")
	}
	if !strings.Contains(body, `action="/admin/login"`) {
		t.Error("login form action missing")
	}
}

func TestGatewayShell(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	rn.Page(w, httptest.NewRequest(http.MethodGet, "/s/padaria", nil), "gateway", &PageData{
		Title: "Padaria Sol",
		Data: map[string]any{
			"Banner": "Período de teste: restam 3 dias",
			"Ref":    "0123456789abcdef0123456789abcdef",
			"View":   "fedcba9876543210fedcba9876543210",
		},
	})

	body := w.Body.String()
	for _, want := range []string{
		`src="/blob/0123456789abcdef0123456789abcdef"`,
		"Período de teste: restam 3 dias",
		`var view = "fedcba9876543210fedcba9876543210";`,
		"sendBeacon",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("gateway missing %q:\n%s", want, body)
		}
	}
}

func TestGatewayShellEmptySite(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	rn.Page(w, httptest.NewRequest(http.MethodGet, "/", nil), "gateway", &PageData{Title: "Oficina"})
	if !strings.Contains(w.Body.String(), "Site em construção.") {
		t.Error("empty site placeholder missing")
	}
	if strings.Contains(w.Body.String(), "<iframe") {
		t.Error("empty site should not mount a frame")
	}
}

func TestBlockScreen(t *testing.T) {
	rn := newRenderer(t)

	tests := []struct {
		name string
		link string
		want string
	}{
		{"with payment link", "https://pay.example/abc", `href="https://pay.example/abc"`},
		{"without payment link", "", "Entre em contato com a agência"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			rn.PageStatus(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusPaymentRequired, "block", &PageData{
				Title: "Site suspenso",
				Data:  map[string]any{"Name": "Padaria Sol", "PaymentLink": tt.link, "DaysOverdue": int64(2)},
			})
			if w.Code != http.StatusPaymentRequired {
				t.Errorf("status = %d, want 402", w.Code)
			}
			body := w.Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
			if !strings.Contains(body, "há 2 dia(s)") {
				t.Error("overdue days missing")
			}
		})
	}
}

func TestEditorConfigIsJSON(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	cfg := map[string]any{"base": "/admin/editor/abc", "back": "</script><script>alert(1)</script>"}
	rn.Page(w, requestWithSession("/admin/editor/abc", adminSession()), "editor", &PageData{
		Title: "Editor",
		Data:  map[string]any{"Config": cfg, "Back": "/admin", "Fonts": []string{"Inter"}},
	})
	body := w.Body.String()
	if !strings.Contains(body, `"base":"/admin/editor/abc"`) {
		t.Errorf("editor config not embedded as JSON:\n%s", body)
	}
	if strings.Contains(body, "</script><script>alert(1)") {
		t.Error("script context not escaped")
	}
}

func TestPageTrustedHTML(t *testing.T) {
	rn := newRenderer(t)
	c := models.Client{ID: uuid.New(), Name: "Oficina", CreatedAt: time.Now()}
	w := httptest.NewRecorder()
	rn.Page(w, requestWithSession("/admin/clients/x", adminSession()), "client", &PageData{
		Title:   c.Name,
		Section: "clients",
		Data: map[string]any{
			"Client":  c,
			"URL":     "http://oficina.localhost",
			"Dossier": template.HTML("<h1>Oficina</h1>"),
			"Trial":   paywall.Status{},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `<div class="dossier"><h1>Oficina</h1></div>`) {
		t.Error("sanitised dossier should render as markup")
	}
}

func TestPageUnknownTemplate(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	rn.Page(w, httptest.NewRequest(http.MethodGet, "/", nil), "nope", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestPageSessionFromContext(t *testing.T) {
	rn := newRenderer(t)
	sess := adminSession()
	ctx := context.WithValue(context.Background(), middleware.SessionKey, sess)
	r := httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx)
	data := &PageData{Title: "Fila", Section: "queue", Data: map[string]any{}}

	w := httptest.NewRecorder()
	rn.Page(w, r, "queue", data)
	if data.Session != sess {
		t.Error("session not taken from context")
	}
	if !strings.Contains(w.Body.String(), "Fila vazia.") {
		t.Error("empty queue message missing")
	}
}
