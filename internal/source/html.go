package source

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var htmlSpaceRun = regexp.MustCompile(`\s+`)

var htmlBlockElements = map[string]bool{
	"p": true, "div": true, "li": true, "blockquote": true, "section": true,
	"article": true, "tr": true, "td": true, "ul": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// HTMLLoader handles HTML files, including sheets this service rendered
// earlier. Block elements become paragraphs, <br> becomes a line break,
// ordered list items get their number back, bold stays **bold** and anchors
// become [label](url).
type HTMLLoader struct{}

func (l *HTMLLoader) Load(r io.Reader, filename string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}

	var b strings.Builder
	writeHTMLText(&b, root)
	return tidyLines(b.String()), nil
}

func writeHTMLText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(htmlSpaceRun.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head", "nav", "footer":
			return
		case "br":
			b.WriteString("\n")
			return
		case "b", "strong":
			if label := textContent(n); label != "" {
				b.WriteString("**" + label + "**")
			}
			return
		case "a":
			label := textContent(n)
			if href := attr(n, "href"); href != "" && label != "" {
				fmt.Fprintf(b, "[%s](%s)", label, href)
			} else {
				b.WriteString(label)
			}
			return
		case "ol":
			start := 1
			if v, err := strconv.Atoi(attr(n, "start")); err == nil {
				start = v
			}
			next := start
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode || c.Data != "li" {
					continue
				}
				if v, err := strconv.Atoi(attr(c, "value")); err == nil {
					next = v
				}
				fmt.Fprintf(b, "\n\n%d. ", next)
				writeChildren(b, c)
				next++
			}
			b.WriteString("\n\n")
			return
		}
		if htmlBlockElements[n.Data] {
			b.WriteString("\n\n")
			writeChildren(b, n)
			b.WriteString("\n\n")
			return
		}
	}
	writeChildren(b, n)
}

func writeChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeHTMLText(b, c)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(htmlSpaceRun.ReplaceAllString(buf.String(), " "))
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
