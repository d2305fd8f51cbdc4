// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all sitefoundry
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sitefoundry/internal/models"
	"sitefoundry/internal/theme"
)

// ErrNotFound is returned by writes that target a missing row.
var ErrNotFound = errors.New("store: not found")

const clientColumns = `id, name, slug, industry, scope, status, payment_status, site_content,
	subdomain, trial_hours, payment_link, lead_data, theme_config, email, password_hash,
	template_id, created_at, updated_at`

// ClientStore handles all client-related database operations.
type ClientStore struct {
	db *sql.DB
}

// NewClientStore creates a new ClientStore with the given database connection.
func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	c := &models.Client{}
	var lead, cfg []byte
	var tplID uuid.NullUUID
	if err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Industry, &c.Scope, &c.Status, &c.PaymentStatus,
		&c.SiteContent, &c.Subdomain, &c.TrialHours, &c.PaymentLink, &lead, &cfg,
		&c.Email, &c.PasswordHash, &tplID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(lead) > 0 && string(lead) != "null" {
		c.Lead = &models.Lead{}
		if err := json.Unmarshal(lead, c.Lead); err != nil {
			return nil, fmt.Errorf("decode lead_data: %w", err)
		}
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &c.Theme); err != nil {
			return nil, fmt.Errorf("decode theme_config: %w", err)
		}
	}
	if tplID.Valid {
		id := tplID.UUID
		c.TemplateID = &id
	}
	return c, nil
}

func (s *ClientStore) findOne(ctx context.Context, op, where string, arg any) (*models.Client, error) {
	c, err := scanClient(s.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE `+where+` ORDER BY created_at DESC LIMIT 1`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// FindByID retrieves a client by its UUID. Returns nil if not found.
func (s *ClientStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	return s.findOne(ctx, "find client by id", "id = $1", id)
}

// FindBySlug retrieves the newest client with the given slug. Returns nil if
// not found.
func (s *ClientStore) FindBySlug(ctx context.Context, slug string) (*models.Client, error) {
	if slug == "" {
		return nil, nil
	}
	return s.findOne(ctx, "find client by slug", "slug = $1", slug)
}

// FindBySlugOrID resolves a public site address: a slug first, then a
// client id.
func (s *ClientStore) FindBySlugOrID(ctx context.Context, key string) (*models.Client, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	c, err := s.FindBySlug(ctx, key)
	if c != nil || err != nil {
		return c, err
	}
	id, err := uuid.Parse(key)
	if err != nil {
		return nil, nil
	}
	return s.FindByID(ctx, id)
}

// FindByEmail retrieves a client by portal email, case-insensitively.
// Returns nil if not found.
func (s *ClientStore) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	return s.findOne(ctx, "find client by email", "lower(email) = lower($1)", email)
}

// List returns all clients, newest first.
func (s *ClientStore) List(ctx context.Context) ([]models.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// Upsert inserts the client or overwrites every column of an existing row
// with the same id. A nil id is assigned a new one. Last write wins.
func (s *ClientStore) Upsert(ctx context.Context, c *models.Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	var lead []byte
	if c.Lead != nil {
		b, err := json.Marshal(c.Lead)
		if err != nil {
			return fmt.Errorf("encode lead_data: %w", err)
		}
		lead = b
	}
	cfg, err := json.Marshal(c.Theme)
	if err != nil {
		return fmt.Errorf("encode theme_config: %w", err)
	}
	var tplID uuid.NullUUID
	if c.TemplateID != nil {
		tplID = uuid.NullUUID{UUID: *c.TemplateID, Valid: true}
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO clients (id, name, slug, industry, scope, status, payment_status, site_content,
			subdomain, trial_hours, payment_link, lead_data, theme_config, email, password_hash, template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, slug = EXCLUDED.slug, industry = EXCLUDED.industry,
			scope = EXCLUDED.scope, status = EXCLUDED.status, payment_status = EXCLUDED.payment_status,
			site_content = EXCLUDED.site_content, subdomain = EXCLUDED.subdomain,
			trial_hours = EXCLUDED.trial_hours, payment_link = EXCLUDED.payment_link,
			lead_data = EXCLUDED.lead_data, theme_config = EXCLUDED.theme_config,
			email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
			template_id = EXCLUDED.template_id, updated_at = NOW()
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Slug, c.Industry, c.Scope, c.Status, c.PaymentStatus, c.SiteContent,
		c.Subdomain, c.TrialHours, c.PaymentLink, lead, cfg, strings.TrimSpace(c.Email),
		c.PasswordHash, tplID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert client: %w", err)
	}
	return nil
}

// SaveSite stores an edited page and its theme. It is the editor's save
// path for clients.
func (s *ClientStore) SaveSite(ctx context.Context, id uuid.UUID, html string, cfg theme.Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode theme_config: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE clients SET site_content = $1, theme_config = $2, updated_at = NOW() WHERE id = $3
	`, html, b, id)
	if err != nil {
		return fmt.Errorf("save client site: %w", err)
	}
	return requireRow(res, "save client site")
}

// SetPayment marks a client paid or pending.
func (s *ClientStore) SetPayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE clients SET payment_status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	return requireRow(res, "set payment status")
}

// SetPortalAccess stores the portal email and a bcrypt hash of password.
func (s *ClientStore) SetPortalAccess(ctx context.Context, id uuid.UUID, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE clients SET email = $1, password_hash = $2, updated_at = NOW() WHERE id = $3
	`, strings.TrimSpace(email), string(hash), id)
	if err != nil {
		return fmt.Errorf("set portal access: %w", err)
	}
	return requireRow(res, "set portal access")
}

// CheckPassword verifies a plaintext password against the client's stored hash.
func (s *ClientStore) CheckPassword(c *models.Client, password string) bool {
	if c == nil || c.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}

// Delete removes a client by ID.
func (s *ClientStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}

// Fingerprints returns the duplicate-detection key of every client that
// has one.
func (s *ClientStore) Fingerprints(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, lead_data FROM clients`)
	if err != nil {
		return nil, fmt.Errorf("client fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		lead := models.Lead{Name: name}
		if len(raw) > 0 {
			// A lead that fails to decode still fingerprints by name.
			_ = json.Unmarshal(raw, &lead)
			if lead.Name == "" {
				lead.Name = name
			}
		}
		if fp := lead.Fingerprint(); fp != "" {
			out[fp] = true
		}
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
