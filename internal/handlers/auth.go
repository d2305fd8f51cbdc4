// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"sitefoundry/internal/middleware"
	"sitefoundry/internal/models"
	"sitefoundry/internal/render"
	"sitefoundry/internal/session"
)

// totpIssuer is shown in authenticator apps.
const totpIssuer = "SiteFoundry"

// AdminCredentials is the single agency operator configured in the
// environment.
type AdminCredentials struct {
	Email    string
	Password string
	// TwoFA requires a TOTP code after the password.
	TwoFA bool
	// TOTPSecret pins the TOTP secret. When empty the operator enrols on
	// first login and the secret is kept in the settings table.
	TOTPSecret string
}

// Auth groups the admin authentication handlers.
type Auth struct {
	renderer *render.Renderer
	sessions *session.Store
	settings SettingStore
	creds    AdminCredentials
}

// NewAuth creates a new Auth handler group.
func NewAuth(renderer *render.Renderer, sessions *session.Store, settings SettingStore, creds AdminCredentials) *Auth {
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	return &Auth{
		renderer: renderer,
		sessions: sessions,
		settings: settings,
		creds:    creds,
	}
}

// LoginPage renders the login form.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromCtx(r.Context()).IsAdmin() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "login", &render.PageData{
		Title: "Entrar",
		Data:  map[string]any{"Action": middleware.AdminLoginPath},
	})
}

// LoginSubmit checks the operator credentials and starts a session. With
// 2FA on, the session stays pending until a TOTP code is verified.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.creds.Email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.creds.Password)) == 1
	if !emailOK || !passOK || a.creds.Password == "" {
		slog.Warn("admin login failed", "email", email)
		a.renderer.PageStatus(w, r, http.StatusUnauthorized, "login", &render.PageData{
			Title: "Entrar",
			Data: map[string]any{
				"Action": middleware.AdminLoginPath,
				"Email":  email,
				"Error":  "E-mail ou senha inválidos.",
			},
		})
		return
	}

	_, err := a.sessions.Create(r.Context(), w, &session.Data{
		Role:      models.RoleAdmin,
		Email:     a.creds.Email,
		TwoFADone: !a.creds.TwoFA,
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if !a.creds.TwoFA {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	_, enrolled, err := a.secret(r.Context())
	if err != nil {
		slog.Error("load totp secret failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if enrolled {
		http.Redirect(w, r, middleware.AdminVerifyPath, http.StatusSeeOther)
	} else {
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
	}
}

// TwoFASetupPage generates a TOTP secret and displays the QR code.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	_, enrolled, err := a.secret(r.Context())
	if err != nil {
		slog.Error("load totp secret failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if enrolled {
		http.Redirect(w, r, middleware.AdminVerifyPath, http.StatusSeeOther)
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: a.creds.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := a.settings.Set(r.Context(), models.SettingAdminTOTPSecret, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.renderSetup(w, r, key.Secret(), "")
}

// TwoFAVerifyPage renders the TOTP code entry form.
func (a *Auth) TwoFAVerifyPage(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "2fa_verify", &render.PageData{
		Title: "Verificação em duas etapas",
	})
}

// TwoFAVerifySubmit validates the TOTP code and completes authentication.
// The first valid code after setup also completes enrolment.
func (a *Auth) TwoFAVerifySubmit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	secret, enrolled, err := a.secret(r.Context())
	if err != nil {
		slog.Error("load totp secret failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if secret == "" {
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
		return
	}

	code := strings.TrimSpace(r.FormValue("code"))
	if !totp.Validate(code, secret) {
		slog.Warn("admin 2fa code rejected", "email", sess.Email)
		if !enrolled {
			a.renderSetup(w, r, secret, "Código inválido. Tente novamente.")
			return
		}
		a.renderer.PageStatus(w, r, http.StatusUnauthorized, "2fa_verify", &render.PageData{
			Title: "Verificação em duas etapas",
			Data:  map[string]any{"Error": "Código inválido. Tente novamente."},
		})
		return
	}

	if !enrolled {
		if err := a.settings.Set(r.Context(), models.SettingAdminTOTPEnabled, "true"); err != nil {
			slog.Error("enable totp failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		slog.Info("admin 2fa enrolled", "email", sess.Email)
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Logout destroys the session and redirects to the login page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	http.Redirect(w, r, middleware.AdminLoginPath, http.StatusSeeOther)
}

// secret returns the TOTP secret in use and whether enrolment is
// complete. A pinned secret is always enrolled.
func (a *Auth) secret(ctx context.Context) (string, bool, error) {
	if a.creds.TOTPSecret != "" {
		return a.creds.TOTPSecret, true, nil
	}
	secret, err := a.settings.Get(ctx, models.SettingAdminTOTPSecret, "")
	if err != nil {
		return "", false, err
	}
	enabled, err := a.settings.Get(ctx, models.SettingAdminTOTPEnabled, "false")
	if err != nil {
		return "", false, err
	}
	return secret, secret != "" && enabled == "true", nil
}

func (a *Auth) renderSetup(w http.ResponseWriter, r *http.Request, secret, errMsg string) {
	otpURL := fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s",
		totpIssuer, url.PathEscape(a.creds.Email), secret, totpIssuer)
	qrPNG, err := qrcode.Encode(otpURL, qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if errMsg != "" {
		status = http.StatusUnauthorized
	}
	a.renderer.PageStatus(w, r, status, "2fa_setup", &render.PageData{
		Title: "Configurar verificação em duas etapas",
		Data: map[string]any{
			"Error":  errMsg,
			"QRCode": base64.StdEncoding.EncodeToString(qrPNG),
			"Secret": secret,
		},
	})
}
