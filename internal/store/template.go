// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sitefoundry/internal/models"
	"sitefoundry/internal/theme"
)

const templateColumns = `id, skeleton_id, niche, archetype, style_config, preview_html, approved, created_at, updated_at`

// TemplateStore handles all template-related database operations.
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new TemplateStore with the given database connection.
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplate(row rowScanner) (*models.Template, error) {
	t := &models.Template{}
	var cfg []byte
	if err := row.Scan(
		&t.ID, &t.SkeletonID, &t.Niche, &t.Archetype, &cfg,
		&t.PreviewHTML, &t.Approved, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &t.StyleConfig); err != nil {
			return nil, fmt.Errorf("decode style_config: %w", err)
		}
	}
	return t, nil
}

func (s *TemplateStore) list(ctx context.Context, op, where string, args ...any) ([]models.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM templates `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// List returns all templates, newest first.
func (s *TemplateStore) List(ctx context.Context) ([]models.Template, error) {
	return s.list(ctx, "list templates", "")
}

// ListApproved returns approved templates, newest first.
func (s *TemplateStore) ListApproved(ctx context.Context) ([]models.Template, error) {
	return s.list(ctx, "list approved templates", "WHERE approved")
}

// ListApprovedByNiche returns approved templates whose niche matches,
// ignoring case.
func (s *TemplateStore) ListApprovedByNiche(ctx context.Context, niche string) ([]models.Template, error) {
	return s.list(ctx, "list templates by niche",
		"WHERE approved AND lower(niche) = lower($1)", strings.TrimSpace(niche))
}

// FindByID retrieves a template by its UUID. Returns nil if not found.
func (s *TemplateStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by id: %w", err)
	}
	return t, nil
}

// Upsert inserts or overwrites a template. A nil id is assigned a new one.
func (s *TemplateStore) Upsert(ctx context.Context, t *models.Template) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cfg, err := json.Marshal(t.StyleConfig)
	if err != nil {
		return fmt.Errorf("encode style_config: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO templates (id, skeleton_id, niche, archetype, style_config, preview_html, approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			skeleton_id = EXCLUDED.skeleton_id, niche = EXCLUDED.niche,
			archetype = EXCLUDED.archetype, style_config = EXCLUDED.style_config,
			preview_html = EXCLUDED.preview_html, approved = EXCLUDED.approved,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`, t.ID, t.SkeletonID, t.Niche, t.Archetype, cfg, t.PreviewHTML, t.Approved,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}

// SaveHTML stores an edited preview and its style.
func (s *TemplateStore) SaveHTML(ctx context.Context, id uuid.UUID, html string, cfg theme.Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode style_config: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates SET preview_html = $1, style_config = $2, updated_at = NOW() WHERE id = $3
	`, html, b, id)
	if err != nil {
		return fmt.Errorf("save template html: %w", err)
	}
	return requireRow(res, "save template html")
}

// SetApproved flips the approval flag.
func (s *TemplateStore) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates SET approved = $1, updated_at = NOW() WHERE id = $2
	`, approved, id)
	if err != nil {
		return fmt.Errorf("approve template: %w", err)
	}
	return requireRow(res, "approve template")
}

// Delete removes a template by ID.
func (s *TemplateStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
