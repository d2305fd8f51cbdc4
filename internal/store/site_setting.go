// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sitefoundry/internal/models"
)

// SiteSettingStore manages global settings in the database.
type SiteSettingStore struct {
	db *sql.DB
}

// NewSiteSettingStore returns a new SiteSettingStore backed by the given database.
func NewSiteSettingStore(db *sql.DB) *SiteSettingStore {
	return &SiteSettingStore{db: db}
}

// All returns every setting as a convenience map.
func (s *SiteSettingStore) All(ctx context.Context) (models.SiteSettings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	settings := make(models.SiteSettings)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// Get returns a single setting by key, or the fallback if not found or empty.
func (s *SiteSettingStore) Get(ctx context.Context, key, fallback string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM site_settings WHERE key = $1`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("get setting %s: %w", key, err)
	}
	if val == "" {
		return fallback, nil
	}
	return val, nil
}

// Set upserts a single setting.
func (s *SiteSettingStore) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// SetMany upserts several settings in a single transaction.
func (s *SiteSettingStore) SetMany(ctx context.Context, settings map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO site_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare setting upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for k, v := range settings {
		if _, err := stmt.ExecContext(ctx, k, v, now); err != nil {
			return fmt.Errorf("set setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Trial returns the stored trial defaults. Missing or unparsable values
// fall back to def field by field.
func (s *SiteSettingStore) Trial(ctx context.Context, def models.TrialSettings) (models.TrialSettings, error) {
	all, err := s.All(ctx)
	if err != nil {
		return def, err
	}
	out := def
	if v, err := strconv.Atoi(all.Get(models.SettingTrialValue, "")); err == nil && v >= 0 {
		out.Value = v
	}
	if u, err := models.ParseTrialUnit(all.Get(models.SettingTrialUnit, "")); err == nil {
		out.Unit = u
	}
	return out, nil
}

// SetTrial stores new trial defaults. Existing clients keep their own
// trial hours.
func (s *SiteSettingStore) SetTrial(ctx context.Context, t models.TrialSettings) error {
	if t.Value < 0 {
		return fmt.Errorf("set trial: negative value %d", t.Value)
	}
	if _, err := models.ParseTrialUnit(string(t.Unit)); err != nil {
		return fmt.Errorf("set trial: %w", err)
	}
	return s.SetMany(ctx, map[string]string{
		models.SettingTrialValue: strconv.Itoa(t.Value),
		models.SettingTrialUnit:  string(t.Unit),
	})
}
