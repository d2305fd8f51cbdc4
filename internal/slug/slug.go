// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives public site addresses from business names and maps
// request hosts back to them.
package slug

import (
	"net"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultToken is returned when a name has no usable characters left.
const DefaultToken = "projeto"

var (
	// whitespace runs become a single hyphen.
	whitespace = regexp.MustCompile(`\s+`)
	// nonWord matches anything outside [a-z0-9_-].
	nonWord = regexp.MustCompile(`[^a-z0-9_-]+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate creates a URL-friendly slug from a business name.
// Example: "Açaí & Cia!!" → "acai-cia"
func Generate(s string) string {
	result := strings.ToLower(stripMarks(s))
	result = strings.TrimSpace(result)
	result = whitespace.ReplaceAllString(result, "-")
	result = nonWord.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if result == "" {
		return DefaultToken
	}
	return result
}

// stripMarks decomposes s and drops combining marks, so "ç" becomes "c".
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// WithSuffix appends a short disambiguator, used by mass generation where
// many leads share a name.
func WithSuffix(s, suffix string) string {
	suffix = strings.Trim(Generate(suffix), "-")
	if suffix == DefaultToken || suffix == "" {
		return Generate(s)
	}
	return Generate(s) + "-" + suffix
}

// Subdomain builds the public host for a slug under the given host, with
// any port and a leading "www." removed.
func Subdomain(slug, host string) string {
	return slug + "." + baseHost(host)
}

// FromHost returns the slug addressed by requestHost when it is a direct
// subdomain of base, or "" otherwise. "www" is never a slug.
func FromHost(requestHost, base string) string {
	h := baseHost(requestHost)
	b := baseHost(base)
	if b == "" || !strings.HasSuffix(h, "."+b) {
		return ""
	}
	label := strings.TrimSuffix(h, "."+b)
	if label == "" || label == "www" || strings.Contains(label, ".") {
		return ""
	}
	return label
}

func baseHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}
