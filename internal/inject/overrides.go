// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package inject

import (
	"sort"
	"strings"

	"sitefoundry/internal/theme"
)

// ReplaceImages rewrites every bounded literal occurrence of each override's
// original source across the whole document: src attributes, inline
// background-image urls, and any other text carrying the same string.
//
// An occurrence counts only when the characters on both sides are not part
// of a URL (quotes, parentheses, whitespace, '=', '<', '>', ',' or the
// document edges), so "a.jpg" never rewrites the tail of "photo-a.jpg" or
// the head of "a.jpg?w=640". A short original that stands alone elsewhere
// in the page text is still rewritten; originals are expected to be full
// URLs.
//
// Overrides are keyed by decoded attribute values, while a page serialized
// by the browser writes '&' as "&amp;" inside attributes. Both spellings of
// an original are rewritten, the escaped one to the escaped replacement.
func ReplaceImages(doc string, overrides []theme.Override) string {
	for _, o := range overrides {
		if esc := attrEscaper.Replace(o.Original); esc != o.Original {
			doc = replaceBounded(doc, esc, attrEscaper.Replace(o.Replacement))
		}
		doc = replaceBounded(doc, o.Original, o.Replacement)
	}
	return doc
}

var attrEscaper = strings.NewReplacer("&", "&amp;")

func replaceBounded(s, old, repl string) string {
	if old == "" || !strings.Contains(s, old) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for {
		j := strings.Index(s[i:], old)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(old)
		if isBoundary(s, start-1, false) && isBoundary(s, end, true) {
			b.WriteString(s[i:start])
			b.WriteString(repl)
			i = end
			continue
		}
		// Not bounded: keep one byte and keep scanning so an overlapping
		// bounded match right after it is still found.
		b.WriteString(s[i : start+1])
		i = start + 1
	}
	b.WriteString(s[i:])
	return b.String()
}

// isBoundary reports whether position i in s (which may be out of range)
// delimits a URL token. trailing allows '&' and ';' so entity-quoted urls
// such as url(&quot;x.jpg&quot;) still match.
func isBoundary(s string, i int, trailing bool) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	switch s[i] {
	case '"', '\'', '`', '(', ')', ' ', '\t', '\n', '\r', '\f', '=', '<', '>', ',':
		return true
	case ';':
		return true
	case '&':
		return trailing
	}
	return false
}

func sortLongestFirst(o []theme.Override) {
	sort.SliceStable(o, func(i, j int) bool {
		return len(o[i].Original) > len(o[j].Original)
	})
}
