// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"

	"sitefoundry/internal/theme"
)

// ClientStatus tracks where a client's site is in the production pipeline.
type ClientStatus string

const (
	ClientStatusDraft      ClientStatus = "draft"
	ClientStatusGenerating ClientStatus = "generating"
	ClientStatusGenerated  ClientStatus = "generated"
	ClientStatusApproved   ClientStatus = "approved"
)

// PaymentStatus is the commercial state used by the trial gate.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Client is a small business the agency builds a site for. SiteContent
// and Theme are stored side by side; the theme is applied at render time
// and never baked into the HTML.
type Client struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Industry      string        `json:"industry"`
	Scope         string        `json:"scope"`
	Status        ClientStatus  `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	SiteContent   string        `json:"siteContent,omitempty"`
	Subdomain     string        `json:"subdomain,omitempty"`
	TrialHours    int           `json:"trialHours"`
	PaymentLink   string        `json:"paymentLink,omitempty"`
	Lead          *Lead         `json:"leadData,omitempty"`
	Theme         theme.Config  `json:"themeConfig"`
	Email         string        `json:"email,omitempty"`
	PasswordHash  string        `json:"-"` // Never serialize the hash
	TemplateID    *uuid.UUID    `json:"templateId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Phone returns the lead's phone number, or "" when there is no lead.
func (c *Client) Phone() string {
	if c.Lead == nil {
		return ""
	}
	return c.Lead.PhoneNumber
}

// Address is the public lookup key: the slug, falling back to the id.
func (c *Client) Address() string {
	if c.Slug != "" {
		return c.Slug
	}
	return c.ID.String()
}

// HasPortalAccess reports whether the client can log into the portal.
func (c *Client) HasPortalAccess() bool {
	return c.Email != "" && c.PasswordHash != ""
}
