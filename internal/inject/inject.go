// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package inject builds the final HTML document shown in every site frame:
// admin preview, public gateway, and the visual editor. It layers the
// viewport/CDN head block, a behaviour script, the theme CSS variables, the
// font link, and image source overrides on top of a raw AI-generated page.
//
// The transform is textual and permissive. AI output has no guaranteed
// structure, so every anchor tag is optional and a missing one degrades to
// an append rather than an error.
package inject

import (
	"regexp"
	"strings"

	"sitefoundry/internal/theme"
)

// Mode selects the behaviour script injected before </body>.
type Mode int

const (
	// ModeReadonly is used by the admin preview and the public gateway.
	ModeReadonly Mode = iota
	// ModeEditable is used by the visual editor and studio mode.
	ModeEditable
)

// Options controls the variant of the injected document.
type Options struct {
	Mode Mode

	// Phone is the lead's raw phone number. Readonly documents redirect
	// form submissions to a WhatsApp link built from its digits.
	Phone string

	// Token and Revision are stamped on every message the editable document
	// posts, so the editor can discard stale or foreign messages.
	Token    string
	Revision int

	// TextEditing turns on contenteditable for leaf text elements.
	TextEditing bool

	// Grayscale renders the page desaturated (skeleton previews).
	Grayscale bool
}

const (
	// Doctype is prepended when the document does not start with one.
	Doctype = "<!DOCTYPE html>"

	markerBegin = "<!-- sitefoundry:begin -->"
	markerEnd   = "<!-- sitefoundry:end -->"
)

var (
	headOpenRe  = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)
	headCloseRe = regexp.MustCompile(`(?i)</head\s*>`)
	bodyCloseRe = regexp.MustCompile(`(?i)</body\s*>`)
	htmlOpenRe  = regexp.MustCompile(`(?i)<html(\s[^>]*)?>`)
	doctypeRe   = regexp.MustCompile(`(?i)<!doctype[^>]*>`)
	injectedRe  = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(markerBegin) + `.*?` + regexp.QuoteMeta(markerEnd))
)

// Document returns raw with all runtime layers applied. It never fails;
// blank input yields an empty string and the caller shows a placeholder.
func Document(raw string, cfg theme.Config, opts Options) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc := EnsureDoctype(raw)
	doc = insertHead(doc, wrap(headBlock(opts)))
	doc = insertBeforeBodyClose(doc, wrap(behaviorScript(opts)))
	doc = insertBeforeHeadClose(doc, wrap(fontLink(cfg.FontFamily)+themeStyle(cfg)))
	doc = ReplaceImages(doc, cfg.ActiveOverrides())
	return doc
}

// EnsureDoctype prepends the HTML5 doctype unless the trimmed document
// already starts with one. Applying it twice is a no-op.
func EnsureDoctype(doc string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(doc)), "<!doctype html>") {
		return doc
	}
	return Doctype + "\n" + doc
}

// Strip removes every block Document injected and reverts image overrides,
// recovering the raw page from a document serialized by the editor frame.
// Overrides are reverted textually, so a replacement URL that also appeared
// verbatim in the original page is reverted too.
func Strip(doc string, cfg theme.Config) string {
	doc = injectedRe.ReplaceAllString(doc, "")
	overrides := cfg.ActiveOverrides()
	reverse := make([]theme.Override, 0, len(overrides))
	for _, o := range overrides {
		reverse = append(reverse, theme.Override{Original: o.Replacement, Replacement: o.Original})
	}
	sortLongestFirst(reverse)
	return strings.TrimSpace(ReplaceImages(doc, reverse))
}

func wrap(block string) string {
	if block == "" {
		return ""
	}
	return markerBegin + block + markerEnd
}

// insertHead places block right after the opening <head> tag. Without a
// head, one is synthesized after <html>, or after the doctype when even
// <html> is missing.
func insertHead(doc, block string) string {
	if loc := headOpenRe.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + block + doc[loc[1]:]
	}
	head := "<head>" + block + "</head>"
	if loc := htmlOpenRe.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + head + doc[loc[1]:]
	}
	if loc := doctypeRe.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + "\n" + head + doc[loc[1]:]
	}
	return head + doc
}

// insertBeforeHeadClose places block before the first </head>. A head
// left open gets the block right after the head block, so parsers keep it
// inside <head> and Strip can still find both markers.
func insertBeforeHeadClose(doc, block string) string {
	if block == "" {
		return doc
	}
	if loc := headCloseRe.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + block + doc[loc[0]:]
	}
	if loc := headOpenRe.FindStringIndex(doc); loc != nil {
		at := loc[1]
		if strings.HasPrefix(doc[at:], markerBegin) {
			if end := strings.Index(doc[at:], markerEnd); end >= 0 {
				at += end + len(markerEnd)
			}
		}
		return doc[:at] + block + doc[at:]
	}
	return insertBeforeBodyClose(doc, block)
}

// insertBeforeBodyClose places block before the last </body>, appending
// when there is none.
func insertBeforeBodyClose(doc, block string) string {
	if block == "" {
		return doc
	}
	locs := bodyCloseRe.FindAllStringIndex(doc, -1)
	if len(locs) == 0 {
		return doc + block
	}
	at := locs[len(locs)-1][0]
	return doc[:at] + block + doc[at:]
}

// DigitsOnly strips everything but ASCII digits from a phone number.
func DigitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
