// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package theme holds the visual configuration layered over a site's raw
// HTML at render time: color tokens, the main font family, and a map of
// image sources to replace. It never touches the HTML itself; the inject
// package reads it when building a document.
package theme

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// DefaultFont is the font the editor falls back to when none is chosen.
const DefaultFont = "Inter"

// Fonts lists the Google Fonts families offered by the editor.
var Fonts = []string{
	"Inter", "Roboto", "Open Sans", "Lato", "Montserrat",
	"Poppins", "Playfair Display", "Merriweather", "Nunito", "Raleway",
	"Oswald", "Space Grotesk",
}

// Config is a site's theme. Every field is optional; an empty value means
// the document's own styling is left alone.
type Config struct {
	PrimaryColor    string            `json:"primaryColor,omitempty"`
	SecondaryColor  string            `json:"secondaryColor,omitempty"`
	BackgroundColor string            `json:"backgroundColor,omitempty"`
	SurfaceColor    string            `json:"surfaceColor,omitempty"`
	TextColor       string            `json:"textColor,omitempty"`
	FontFamily      string            `json:"fontFamily,omitempty"`
	ImageOverrides  map[string]string `json:"imageOverrides,omitempty"`
}

// Field names a single settable theme value.
type Field string

const (
	FieldPrimary    Field = "primaryColor"
	FieldSecondary  Field = "secondaryColor"
	FieldBackground Field = "backgroundColor"
	FieldSurface    Field = "surfaceColor"
	FieldText       Field = "textColor"
	FieldFont       Field = "fontFamily"
)

// ParseField validates a field name coming from a request body.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldPrimary, FieldSecondary, FieldBackground, FieldSurface, FieldText, FieldFont:
		return f, nil
	}
	return "", fmt.Errorf("theme: unknown field %q", s)
}

// Set assigns one field in place.
func (c *Config) Set(f Field, value string) error {
	value = strings.TrimSpace(value)
	switch f {
	case FieldPrimary:
		c.PrimaryColor = value
	case FieldSecondary:
		c.SecondaryColor = value
	case FieldBackground:
		c.BackgroundColor = value
	case FieldSurface:
		c.SurfaceColor = value
	case FieldText:
		c.TextColor = value
	case FieldFont:
		c.FontFamily = value
	default:
		return fmt.Errorf("theme: unknown field %q", f)
	}
	return nil
}

// Get returns the current value of a field.
func (c Config) Get(f Field) string {
	switch f {
	case FieldPrimary:
		return c.PrimaryColor
	case FieldSecondary:
		return c.SecondaryColor
	case FieldBackground:
		return c.BackgroundColor
	case FieldSurface:
		return c.SurfaceColor
	case FieldText:
		return c.TextColor
	case FieldFont:
		return c.FontFamily
	}
	return ""
}

// SetImageOverride maps an original image source to its replacement.
// A blank replacement is stored but ignored when the document is built.
func (c *Config) SetImageOverride(original, replacement string) {
	if original == "" {
		return
	}
	if c.ImageOverrides == nil {
		c.ImageOverrides = make(map[string]string)
	}
	c.ImageOverrides[original] = replacement
}

// Clone returns a deep copy, so callers can mutate the overrides map
// without affecting the source.
func (c Config) Clone() Config {
	out := c
	if c.ImageOverrides != nil {
		out.ImageOverrides = maps.Clone(c.ImageOverrides)
	}
	return out
}

// Equal reports whether two configs set the same fields and overrides.
// A nil and an empty override map are equal.
func (c Config) Equal(o Config) bool {
	return c.PrimaryColor == o.PrimaryColor && c.SecondaryColor == o.SecondaryColor &&
		c.BackgroundColor == o.BackgroundColor && c.SurfaceColor == o.SurfaceColor &&
		c.TextColor == o.TextColor && c.FontFamily == o.FontFamily &&
		maps.Equal(c.ImageOverrides, o.ImageOverrides)
}

// IsZero reports whether no field and no override is set.
func (c Config) IsZero() bool {
	return c.PrimaryColor == "" && c.SecondaryColor == "" && c.BackgroundColor == "" &&
		c.SurfaceColor == "" && c.TextColor == "" && c.FontFamily == "" &&
		len(c.ImageOverrides) == 0
}

// Override is one active image replacement.
type Override struct {
	Original    string
	Replacement string
}

// ActiveOverrides returns the overrides whose replacement is non-blank,
// longest original first. Ties are broken lexically so output is stable.
func (c Config) ActiveOverrides() []Override {
	var out []Override
	for orig, repl := range c.ImageOverrides {
		if orig == "" || strings.TrimSpace(repl) == "" {
			continue
		}
		out = append(out, Override{Original: orig, Replacement: repl})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Original) != len(out[j].Original) {
			return len(out[i].Original) > len(out[j].Original)
		}
		return out[i].Original < out[j].Original
	})
	return out
}

// WithDefaultFont returns a copy whose font falls back to DefaultFont.
// The editor renders with it; the public site does not.
func (c Config) WithDefaultFont() Config {
	out := c.Clone()
	if out.FontFamily == "" {
		out.FontFamily = DefaultFont
	}
	return out
}

// OriginalOf maps a src seen in a rendered page back to the key used in
// ImageOverrides. A src that is itself a replacement resolves to the
// original it replaced; anything else is returned unchanged.
func (c Config) OriginalOf(src string) string {
	if _, ok := c.ImageOverrides[src]; ok {
		return src
	}
	for orig, repl := range c.ImageOverrides {
		if repl != "" && repl == src {
			return orig
		}
	}
	return src
}
