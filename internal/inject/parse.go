// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package inject

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Image is one <img> found in a page, as listed in the editor media panel.
type Image struct {
	ID  string `json:"id"`
	Src string `json:"src"`
}

// Images lists every <img> in document order. The raw src attribute is
// returned so it matches the literal used as an override key.
func Images(doc string) []Image {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil
	}

	var out []Image
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			img := Image{ID: attr(n, "id"), Src: attr(n, "src")}
			if img.ID == "" {
				img.ID = fmt.Sprintf("img-%d", len(out))
			}
			out = append(out, img)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// optionalEnd lists elements whose end tag may legally be omitted.
var optionalEnd = map[atom.Atom]bool{
	atom.P: true, atom.Li: true, atom.Dt: true, atom.Dd: true,
	atom.Tr: true, atom.Td: true, atom.Th: true, atom.Thead: true,
	atom.Tbody: true, atom.Tfoot: true, atom.Option: true, atom.Optgroup: true,
	atom.Colgroup: true, atom.Caption: true, atom.Rt: true, atom.Rp: true,
	atom.Html: true, atom.Head: true, atom.Body: true,
}

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Source: true, atom.Track: true,
	atom.Wbr: true,
}

// CheckWellFormed runs a lightweight structural check over AI output and
// returns human-readable problems. Browsers repair all of these, so callers
// log the result and keep the document.
func CheckWellFormed(doc string) []string {
	if strings.TrimSpace(doc) == "" {
		return []string{"document is empty"}
	}

	var problems []string
	seen := map[atom.Atom]bool{}
	var stack []string

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				problems = append(problems, "tokenizer: "+err.Error())
			}
			break
		}

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			seen[a] = true
			if !voidElements[a] {
				stack = append(stack, string(name))
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			seen[atom.Lookup(name)] = true
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			idx := lastIndex(stack, tag)
			if idx < 0 {
				problems = append(problems, "unexpected </"+tag+">")
				continue
			}
			for _, open := range stack[idx+1:] {
				if !optionalEnd[atom.Lookup([]byte(open))] {
					problems = append(problems, "<"+open+"> closed implicitly by </"+tag+">")
				}
			}
			stack = stack[:idx]
		}
	}

	for _, open := range stack {
		if !optionalEnd[atom.Lookup([]byte(open))] {
			problems = append(problems, "<"+open+"> never closed")
		}
	}
	for _, a := range []atom.Atom{atom.Html, atom.Head, atom.Body} {
		if !seen[a] {
			problems = append(problems, "missing <"+a.String()+">")
		}
	}
	return problems
}

func lastIndex(stack []string, tag string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return i
		}
	}
	return -1
}
