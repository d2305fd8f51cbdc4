// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"time"
)

// SiteSetting represents a single configuration key-value pair.
type SiteSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SiteSettings is a convenience map for accessing settings by key.
type SiteSettings map[string]string

// Get returns the value for a key, or the fallback if the key doesn't exist.
func (s SiteSettings) Get(key, fallback string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Setting keys persisted in the settings table.
const (
	SettingTrialValue = "trial_default_value"
	SettingTrialUnit  = "trial_default_unit"

	// SettingAIProvider remembers the provider chosen in the admin.
	SettingAIProvider = "ai_provider"

	// SettingAdminTOTPSecret holds the operator's enrolled TOTP secret when
	// none is configured in the environment. It only counts once
	// SettingAdminTOTPEnabled is "true".
	SettingAdminTOTPSecret  = "admin_totp_secret"
	SettingAdminTOTPEnabled = "admin_totp_enabled"
)

// TrialUnit is the unit the default trial length is expressed in.
type TrialUnit string

const (
	TrialHours TrialUnit = "hours"
	TrialDays  TrialUnit = "days"
)

// ParseTrialUnit validates a unit from config or a form.
func ParseTrialUnit(s string) (TrialUnit, error) {
	switch u := TrialUnit(s); u {
	case TrialHours, TrialDays:
		return u, nil
	}
	return "", fmt.Errorf("unknown trial unit %q", s)
}

// TrialSettings is the default trial handed to newly created clients.
type TrialSettings struct {
	Value int       `json:"defaultTrialValue"`
	Unit  TrialUnit `json:"defaultTrialUnit"`
}

// Hours converts the setting into the trial length stored on a client.
func (t TrialSettings) Hours() int {
	if t.Unit == TrialDays {
		return t.Value * 24
	}
	return t.Value
}
