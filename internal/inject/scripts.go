// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package inject

import (
	"fmt"
	"html"
	"strings"

	"sitefoundry/internal/theme"
)

// TailwindCDN is the CSS framework loader every generated site relies on.
const TailwindCDN = "https://cdn.tailwindcss.com"

// DebounceMillis is how long the editable document waits after the last
// keystroke before posting a CONTENT_UPDATE.
const DebounceMillis = 800

// EditableTags are the elements that become contenteditable when they hold
// text and no child elements.
var EditableTags = []string{"h1", "h2", "h3", "h4", "h5", "h6", "p", "span", "li", "a", "button", "strong", "td"}

const headBase = `
<meta name="viewport" content="width=device-width, initial-scale=1.0, maximum-scale=1.0, user-scalable=no">
<script src="` + TailwindCDN + `"></script>
<script>
tailwind.config = {
  theme: {
    extend: {
      colors: {
        primary: 'var(--primary)',
        secondary: 'var(--secondary)',
        surface: 'var(--surface)',
      }
    }
  }
}
</script>
`

const editorChrome = `
<style>
[contenteditable="true"] { outline: none; transition: background-color 0.2s; cursor: text; }
[contenteditable="true"]:focus { outline: none; background-color: rgba(234, 88, 12, 0.1); border-bottom: 2px solid #ea580c; }
img { transition: filter 0.2s, outline 0.2s; cursor: pointer; }
img:hover { filter: brightness(0.9); outline: 4px solid #3b82f6; outline-offset: -4px; }
body { padding-bottom: 200px; -webkit-tap-highlight-color: transparent; }
::-webkit-scrollbar { width: 4px; }
::-webkit-scrollbar-thumb { background: #cbd5e1; border-radius: 2px; }
</style>
`

const grayscaleStyle = `
<style>html { filter: grayscale(1); }</style>
`

func headBlock(opts Options) string {
	block := headBase
	if opts.Mode == ModeEditable {
		block += editorChrome
	}
	if opts.Grayscale {
		block += grayscaleStyle
	}
	return block
}

func behaviorScript(opts Options) string {
	if opts.Mode == ModeEditable {
		return editableScript(opts)
	}
	return readonlyScript(DigitsOnly(opts.Phone))
}

// readonlyScript opens external links in a new tab and turns form submits
// into a WhatsApp deep link. It uses addEventListener so the page's own
// scripts (mobile menus and the like) keep working.
func readonlyScript(phone string) string {
	return `
<script>
window.addEventListener('load', function () {
  var links = document.getElementsByTagName('a');
  for (var i = 0; i < links.length; i++) {
    var href = links[i].getAttribute('href') || '';
    if (/^https?:/i.test(href) || href.indexOf('wa.me') === 0) {
      links[i].setAttribute('target', '_blank');
    }
  }
  var phone = '` + phone + `';
  var forms = document.getElementsByTagName('form');
  for (var j = 0; j < forms.length; j++) {
    forms[j].addEventListener('submit', function (e) {
      e.preventDefault();
      if (phone) window.open('https://wa.me/55' + phone, '_blank');
    });
  }
});
</script>
`
}

// editableScript wires the editor affordances. Every message carries the
// session token and document revision; serialize() drops the nodes this
// package and the CSS framework added so CONTENT_UPDATE holds page markup.
func editableScript(opts Options) string {
	tags := "'" + strings.Join(EditableTags, "', '") + "'"
	return fmt.Sprintf(`
<script>
(function () {
  var TOKEN = '%s', REVISION = %d, TEXT_EDITING = %t;
  var baseline = new Set(document.head ? Array.prototype.slice.call(document.head.children) : []);
  function post(msg) {
    msg.token = TOKEN;
    msg.revision = REVISION;
    window.parent.postMessage(msg, window.location.origin);
  }
  document.querySelectorAll('a').forEach(function (a) {
    a.addEventListener('click', function (e) { e.preventDefault(); });
  });
  if (TEXT_EDITING) {
    [%s].forEach(function (tag) {
      document.querySelectorAll(tag).forEach(function (el) {
        if (el.innerText && el.innerText.trim().length > 0 && el.children.length === 0) {
          el.setAttribute('contenteditable', 'true');
          el.setAttribute('spellcheck', 'false');
          el.setAttribute('data-sf-edit', '');
        }
      });
    });
  }
  document.querySelectorAll('img').forEach(function (img) {
    img.addEventListener('click', function (e) {
      e.preventDefault();
      e.stopPropagation();
      post({ type: 'IMAGE_CLICK', src: img.getAttribute('src') });
    });
  });
  document.addEventListener('paste', function (e) {
    e.preventDefault();
    var text = (e.clipboardData || window.clipboardData).getData('text/plain');
    document.execCommand('insertText', false, text);
  });
  function serialize() {
    var live = document.head ? Array.prototype.slice.call(document.head.children) : [];
    var clone = document.documentElement.cloneNode(true);
    var head = clone.querySelector('head');
    if (head) {
      for (var i = live.length - 1; i >= 0; i--) {
        if (!baseline.has(live[i]) && head.children[i]) head.removeChild(head.children[i]);
      }
    }
    clone.querySelectorAll('[data-sf-edit]').forEach(function (el) {
      el.removeAttribute('contenteditable');
      el.removeAttribute('spellcheck');
      el.removeAttribute('data-sf-edit');
    });
    return '<!DOCTYPE html>\n' + clone.outerHTML;
  }
  var timer;
  document.body.addEventListener('input', function () {
    clearTimeout(timer);
    timer = setTimeout(function () {
      post({ type: 'CONTENT_UPDATE', html: serialize() });
    }, %d);
  });
})();
</script>
`, jsSafe(opts.Token), opts.Revision, opts.TextEditing, tags, DebounceMillis)
}

// FontURL returns the Google Fonts stylesheet URL for a family.
func FontURL(family string) string {
	return "https://fonts.googleapis.com/css2?family=" +
		strings.ReplaceAll(strings.TrimSpace(family), " ", "+") +
		":wght@300;400;600;700&display=swap"
}

func fontLink(family string) string {
	if strings.TrimSpace(family) == "" {
		return ""
	}
	return "\n" + `<link rel="stylesheet" href="` + html.EscapeString(FontURL(family)) + `">`
}

// themeStyle renders the :root variable block. A line is emitted only for
// fields that are set; every value is forced with !important so it wins
// over inline styles in the generated markup.
func themeStyle(cfg theme.Config) string {
	var vars strings.Builder
	line := func(name, value string) {
		if v := cssValue(value); v != "" {
			fmt.Fprintf(&vars, "  %s: %s !important;\n", name, v)
		}
	}
	line("--primary", cfg.PrimaryColor)
	line("--secondary", cfg.SecondaryColor)
	line("--bg", cfg.BackgroundColor)
	line("--surface", cfg.SurfaceColor)
	line("--text", cfg.TextColor)
	if f := cssValue(strings.ReplaceAll(cfg.FontFamily, "'", "")); f != "" {
		line("--font-main", "'"+f+"', sans-serif")
	}

	var b strings.Builder
	b.WriteString("\n<style>\n:root {\n")
	b.WriteString(vars.String())
	b.WriteString("}\n")
	b.WriteString(`html, body { overflow-x: hidden; -webkit-overflow-scrolling: touch; min-height: 100%; margin: 0; padding: 0; }
`)
	if cfg.PrimaryColor != "" {
		b.WriteString(".bg-primary { background-color: var(--primary) !important; }\n")
		b.WriteString(".text-primary { color: var(--primary) !important; }\n")
	}
	if cfg.SurfaceColor != "" {
		b.WriteString(".bg-surface { background-color: var(--surface) !important; }\n")
	}
	var body []string
	if cfg.BackgroundColor != "" {
		body = append(body, "background-color: var(--bg) !important;")
	}
	if cfg.TextColor != "" {
		body = append(body, "color: var(--text) !important;")
	}
	if cfg.FontFamily != "" {
		body = append(body, "font-family: var(--font-main) !important;")
	}
	if len(body) > 0 {
		b.WriteString("body { " + strings.Join(body, " ") + " }\n")
	}
	b.WriteString("</style>\n")
	return b.String()
}

// cssValue drops characters that could close the declaration or the
// surrounding style element.
func cssValue(v string) string {
	v = strings.TrimSpace(v)
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ';', '{', '}', '\\', '\n', '\r':
			return -1
		}
		return r
	}, v)
}

// jsSafe keeps only characters valid in a hex/uuid token.
func jsSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
			return r
		}
		return -1
	}, s)
}
