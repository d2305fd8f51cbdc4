// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sitefoundry/internal/models"
)

// SkeletonStore handles wireframe persistence.
type SkeletonStore struct {
	db *sql.DB
}

// NewSkeletonStore creates a new SkeletonStore with the given database connection.
func NewSkeletonStore(db *sql.DB) *SkeletonStore {
	return &SkeletonStore{db: db}
}

func (s *SkeletonStore) list(ctx context.Context, op, where string) ([]models.Skeleton, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, html, approved, created_at, updated_at
		FROM skeletons `+where+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Skeleton
	for rows.Next() {
		var sk models.Skeleton
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.HTML, &sk.Approved, &sk.CreatedAt, &sk.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan skeleton: %w", err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// List returns all skeletons, newest first.
func (s *SkeletonStore) List(ctx context.Context) ([]models.Skeleton, error) {
	return s.list(ctx, "list skeletons", "")
}

// ListApproved returns approved skeletons, newest first.
func (s *SkeletonStore) ListApproved(ctx context.Context) ([]models.Skeleton, error) {
	return s.list(ctx, "list approved skeletons", "WHERE approved")
}

// FindByID retrieves a skeleton by its UUID. Returns nil if not found.
func (s *SkeletonStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Skeleton, error) {
	sk := &models.Skeleton{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, html, approved, created_at, updated_at
		FROM skeletons WHERE id = $1
	`, id).Scan(&sk.ID, &sk.Name, &sk.HTML, &sk.Approved, &sk.CreatedAt, &sk.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find skeleton by id: %w", err)
	}
	return sk, nil
}

// Upsert inserts or overwrites a skeleton. A nil id is assigned a new one.
func (s *SkeletonStore) Upsert(ctx context.Context, sk *models.Skeleton) error {
	if sk.ID == uuid.Nil {
		sk.ID = uuid.New()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO skeletons (id, name, html, approved)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, html = EXCLUDED.html, approved = EXCLUDED.approved, updated_at = NOW()
		RETURNING created_at, updated_at
	`, sk.ID, sk.Name, sk.HTML, sk.Approved).Scan(&sk.CreatedAt, &sk.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert skeleton: %w", err)
	}
	return nil
}

// SaveHTML replaces the skeleton markup.
func (s *SkeletonStore) SaveHTML(ctx context.Context, id uuid.UUID, html string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE skeletons SET html = $1, updated_at = NOW() WHERE id = $2
	`, html, id)
	if err != nil {
		return fmt.Errorf("save skeleton html: %w", err)
	}
	return requireRow(res, "save skeleton html")
}

// SetApproved flips the approval flag.
func (s *SkeletonStore) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE skeletons SET approved = $1, updated_at = NOW() WHERE id = $2
	`, approved, id)
	if err != nil {
		return fmt.Errorf("approve skeleton: %w", err)
	}
	return requireRow(res, "approve skeleton")
}

// Delete removes a skeleton. Templates that reference it are kept.
func (s *SkeletonStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM skeletons WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete skeleton: %w", err)
	}
	return nil
}
