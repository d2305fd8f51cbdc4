// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"strings"
)

// DefaultNiche is used when a lead carries no category or industry.
const DefaultNiche = "geral"

// BlueprintSection is one section the lead research suggests for the site.
type BlueprintSection struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	UXStrategy       string `json:"uxStrategy"`
	VisualSuggestion string `json:"visualSuggestion"`
}

// Lead is the business dossier produced by the scraping/research step and
// imported as JSON, one file per business.
type Lead struct {
	ID             string             `json:"id,omitempty"`
	CampaignID     string             `json:"campaignId,omitempty"`
	Name           string             `json:"name"`
	Industry       string             `json:"industry,omitempty"`
	Address        string             `json:"address,omitempty"`
	PhoneNumber    string             `json:"phoneNumber,omitempty"`
	PlaceURI       string             `json:"placeUri,omitempty"`
	Website        string             `json:"website,omitempty"`
	OpeningHours   StringList         `json:"openingHours,omitempty"`
	BusinessStatus string             `json:"businessStatus,omitempty"`
	PriceLevel     string             `json:"priceLevel,omitempty"`
	Amenities      []string           `json:"amenities,omitempty"`
	Rating         *float64           `json:"rating,omitempty"`
	ReviewCount    int                `json:"reviewCount,omitempty"`
	TopReviews     []string           `json:"topReviews,omitempty"`
	Categories     []string           `json:"categories,omitempty"`
	Summary        string             `json:"summary,omitempty"`
	PhotoAnalysis  string             `json:"photoAnalysis,omitempty"`
	SEOKeywords    []string           `json:"seoKeywords,omitempty"`
	Blueprint      []BlueprintSection `json:"blueprint,omitempty"`
	ServiceTags    []string           `json:"serviceTags,omitempty"`
	CreatedAt      string             `json:"createdAt,omitempty"`
}

// Niche is the lowercased first category, then the industry, then
// DefaultNiche. Templates are matched against it.
func (l *Lead) Niche() string {
	for _, c := range l.Categories {
		if c = strings.TrimSpace(c); c != "" {
			return strings.ToLower(c)
		}
	}
	if s := strings.TrimSpace(l.Industry); s != "" {
		return strings.ToLower(s)
	}
	return DefaultNiche
}

// Fingerprint identifies a business across imports: the digits of its
// phone number, else its lowercased trimmed name.
func (l *Lead) Fingerprint() string {
	var digits strings.Builder
	for _, r := range l.PhoneNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() > 0 {
		return digits.String()
	}
	return strings.ToLower(strings.TrimSpace(l.Name))
}

// IsOpen reports whether the research marked the business as operating.
func (l *Lead) IsOpen() bool {
	return strings.Contains(l.BusinessStatus, "Aberto") || l.BusinessStatus == "OPERATIONAL"
}

// StringList accepts either a JSON string or an array of strings. Lead
// files disagree on the shape of openingHours.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*s = nil
		} else {
			*s = StringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}
