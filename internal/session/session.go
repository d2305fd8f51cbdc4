// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session provides Valkey-backed HTTP session management.
// Sessions are identified by a secure cookie and stored as JSON in Valkey
// with automatic TTL expiry.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sitefoundry/internal/models"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "sf_session"

	// AdminTTL bounds an operator session.
	AdminTTL = 12 * time.Hour
	// ClientTTL bounds a portal session. Business owners sign in rarely
	// and mostly from their own phone.
	ClientTTL = 7 * 24 * time.Hour

	keyPrefix = "session:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Data holds the session payload stored in Valkey. Admins have no
// ClientID; portal sessions are bound to exactly one client.
type Data struct {
	Role      models.Role `json:"role"`
	Email     string      `json:"email"`
	ClientID  uuid.UUID   `json:"client_id,omitempty"`
	TwoFADone bool        `json:"two_fa_done"`
	CreatedAt time.Time   `json:"created_at"`
}

// IsAdmin reports whether the session belongs to a fully signed-in admin.
func (d *Data) IsAdmin() bool {
	return d != nil && d.Role == models.RoleAdmin && d.TwoFADone
}

// IsClient reports whether the session belongs to a portal client.
func (d *Data) IsClient() bool {
	return d != nil && d.Role == models.RoleClient && d.ClientID != uuid.Nil
}

// TTL returns the lifetime of a session with this role.
func (d *Data) TTL() time.Duration {
	if d.Role == models.RoleClient {
		return ClientTTL
	}
	return AdminTTL
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	secure bool
}

// NewStore creates a session store backed by the given Valkey client.
// secure marks the cookie Secure; enable it behind TLS.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{client: client, secure: secure}
}

// Create generates a new session, stores it in Valkey, and sets the
// session cookie on the response. Returns the session ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}
	data.CreatedAt = time.Now()
	if err := s.save(ctx, "session create", id, data); err != nil {
		return "", err
	}
	s.setCookie(w, id, int(data.TTL().Seconds()))
	return id, nil
}

// Get retrieves session data using the session ID from the request
// cookie. Returns nil if no valid session exists.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	id, ok := cookieID(r)
	if !ok {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Update replaces the session data under the same ID and restarts its
// TTL. The cookie is left alone.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	id, ok := cookieID(r)
	if !ok {
		return errors.New("session update: no cookie")
	}
	return s.save(ctx, "session update", id, data)
}

// Destroy removes the session from Valkey and clears the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, ok := cookieID(r)
	if !ok {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	s.setCookie(w, "", -1)
	return nil
}

func (s *Store) save(ctx context.Context, op, id string, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, payload, data.TTL()).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) setCookie(w http.ResponseWriter, id string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func cookieID(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
