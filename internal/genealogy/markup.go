package genealogy

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// LineBreak joins the lines of a main paragraph.
const LineBreak = "<br>"

var (
	anchorPattern   = regexp.MustCompile(`(?is)<a\s[^>]*>.*?</a>`)
	mdLinkPattern   = regexp.MustCompile(`\[([^\[\]\n]+)\]\(([^()\s]+)\)`)
	breakTagPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	spaceRunPattern = regexp.MustCompile(`\s+`)

	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// PreserveLinks turns a prose fragment into safe markup. Free text is escaped;
// existing entities are decoded first so nothing is escaped twice. If the
// fragment already contains anchor elements, each plain anchor with a safe
// href is kept verbatim, any other is escaped as text, and no further
// rewriting happens. Otherwise every [label](url) with a safe URL becomes an
// anchor that opens in a new tab.
func PreserveLinks(fragment string) string {
	if anchorPattern.MatchString(fragment) {
		return replaceMatches(fragment, anchorPattern, func(s string, _ []int) string {
			if plainAnchor(s) {
				return s
			}
			return escapeText(s)
		})
	}
	return replaceMatches(fragment, mdLinkPattern, func(s string, loc []int) string {
		label, target := fragment[loc[2]:loc[3]], fragment[loc[4]:loc[5]]
		if !safeLinkURL(target) {
			return escapeText(s)
		}
		return `<a href="` + html.EscapeString(html.UnescapeString(target)) +
			`" target="_blank" rel="noopener noreferrer">` + escapeText(label) + `</a>`
	})
}

// replaceMatches escapes the text between matches of re and substitutes each
// match with repl(matchText, submatchIndexes).
func replaceMatches(s string, re *regexp.Regexp, repl func(string, []int) string) string {
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(escapeText(s[last:loc[0]]))
		b.WriteString(repl(s[loc[0]:loc[1]], loc))
		last = loc[1]
	}
	b.WriteString(escapeText(s[last:]))
	return b.String()
}

func escapeText(s string) string {
	return textEscaper.Replace(html.UnescapeString(s))
}

var anchorAttrs = map[string]bool{
	"href":   true,
	"target": true,
	"rel":    true,
	"title":  true,
}

// plainAnchor reports whether s is exactly one <a> element with a safe href,
// no attributes outside anchorAttrs and nothing but text inside.
func plainAnchor(s string) bool {
	z := html.NewTokenizer(strings.NewReader(s))
	if z.Next() != html.StartTagToken {
		return false
	}
	start := z.Token()
	if start.Data != "a" {
		return false
	}
	hasHref := false
	for _, attr := range start.Attr {
		if !anchorAttrs[attr.Key] {
			return false
		}
		if attr.Key == "href" {
			if hasHref || !safeLinkURL(attr.Val) {
				return false
			}
			hasHref = true
		}
	}
	if !hasHref {
		return false
	}

	for {
		switch z.Next() {
		case html.TextToken:
		case html.EndTagToken:
			if z.Token().Data != "a" {
				return false
			}
			return z.Next() == html.ErrorToken && z.Err() == io.EOF
		default:
			return false
		}
	}
}

// safeLinkURL accepts http, https, mailto and relative URLs. Leading and
// trailing control characters and spaces are ignored by browsers, so they are
// stripped before the scheme is read.
func safeLinkURL(raw string) bool {
	v := strings.TrimFunc(html.UnescapeString(raw), func(r rune) bool { return r <= ' ' })
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}

func emphasize(name string) string {
	return "<b>" + escapeText(name) + "</b>"
}

// proseLine renders one main-paragraph line. Literal break tags in the text
// are kept as line breaks.
func proseLine(line string) string {
	parts := breakTagPattern.Split(line, -1)
	for i, part := range parts {
		parts[i] = PreserveLinks(strings.TrimSpace(part))
	}
	return strings.Join(parts, LineBreak)
}

// FlattenText joins lines and break tags into single spaces and collapses
// whitespace runs.
func FlattenText(s string) string {
	s = breakTagPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRunPattern.ReplaceAllString(s, " "))
}

func flattenBlock(lines []string) string {
	return PreserveLinks(FlattenText(strings.Join(lines, "\n")))
}
