// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown renders the lead dossier shown next to a client in the
// admin: the research JSON is laid out as Markdown, converted with goldmark
// and sanitised with bluemonday, since every field came from scraping.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"sitefoundry/internal/models"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// policy keeps formatting and links but nothing executable. Highlighted
// code uses inline styles, so style attributes survive on spans and pre.
var policy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").OnElements("span", "pre")
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4")
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}()

// ToHTML converts Markdown source into sanitised HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// Dossier lays out a lead as Markdown. Empty fields are omitted.
func Dossier(l *models.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(l.Name))

	var facts []string
	add := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			facts = append(facts, fmt.Sprintf("| %s | %s |", label, escapeCell(v)))
		}
	}
	add("Nicho", l.Niche())
	add("Endereço", l.Address)
	add("Telefone", l.PhoneNumber)
	add("Site atual", l.Website)
	add("Situação", l.BusinessStatus)
	add("Preço", l.PriceLevel)
	if l.Rating != nil {
		add("Avaliação", fmt.Sprintf("%.1f (%d avaliações)", *l.Rating, l.ReviewCount))
	}
	add("Google Maps", l.PlaceURI)
	if len(facts) > 0 {
		b.WriteString("| Campo | Valor |\n|---|---|\n")
		b.WriteString(strings.Join(facts, "\n"))
		b.WriteString("\n\n")
	}

	section(&b, "Resumo", l.Summary)
	section(&b, "Análise das fotos", l.PhotoAnalysis)
	list(&b, "Horário", l.OpeningHours)
	list(&b, "Categorias", l.Categories)
	list(&b, "Serviços", l.ServiceTags)
	list(&b, "Comodidades", l.Amenities)
	list(&b, "Palavras-chave SEO", l.SEOKeywords)

	if len(l.TopReviews) > 0 {
		b.WriteString("## Avaliações em destaque\n\n")
		for _, r := range l.TopReviews {
			if r = strings.TrimSpace(r); r != "" {
				fmt.Fprintf(&b, "> %s\n\n", escape(strings.ReplaceAll(r, "\n", " ")))
			}
		}
	}

	if len(l.Blueprint) > 0 {
		b.WriteString("## Estrutura sugerida\n\n")
		for i, s := range l.Blueprint {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, escape(s.Title))
			if s.Description != "" {
				fmt.Fprintf(&b, "%s\n\n", escape(s.Description))
			}
			if s.UXStrategy != "" {
				fmt.Fprintf(&b, "- **UX:** %s\n", escape(s.UXStrategy))
			}
			if s.VisualSuggestion != "" {
				fmt.Fprintf(&b, "- **Visual:** %s\n", escape(s.VisualSuggestion))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// DossierHTML renders the lead dossier as sanitised HTML.
func DossierHTML(l *models.Lead) (string, error) {
	return ToHTML(Dossier(l))
}

func section(b *strings.Builder, title, body string) {
	if body = strings.TrimSpace(body); body != "" {
		fmt.Fprintf(b, "## %s\n\n%s\n\n", title, escape(body))
	}
}

func list(b *strings.Builder, title string, items []string) {
	var kept []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, "- "+escape(it))
		}
	}
	if len(kept) > 0 {
		fmt.Fprintf(b, "## %s\n\n%s\n\n", title, strings.Join(kept, "\n"))
	}
}

// escape neutralises the Markdown characters scraped text most often
// trips over. Raw HTML is dropped by the renderer anyway.
var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "#", `\#`, "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

func escape(s string) string { return mdEscaper.Replace(s) }

func escapeCell(s string) string {
	return strings.ReplaceAll(escape(s), "|", `\|`)
}
