package source

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownLoader handles Markdown files using goldmark. The document is
// re-emitted as text: list items keep their original markers, strong
// emphasis stays **bold** and links stay [label](url).
type MarkdownLoader struct{}

func (l *MarkdownLoader) Load(r io.Reader, filename string) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	w := &markdownWriter{src: src}
	w.blocks(doc, "\n\n")
	return strings.TrimSpace(w.b.String()), nil
}

type markdownWriter struct {
	src []byte
	b   strings.Builder
}

func (w *markdownWriter) blocks(parent ast.Node, sep string) {
	first := true
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*ast.ThematicBreak); ok {
			continue
		}
		if !first {
			w.b.WriteString(sep)
		}
		first = false
		w.block(n)
	}
}

func (w *markdownWriter) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.List:
		sep := "\n\n"
		if node.IsTight {
			sep = "\n"
		}
		i := 0
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			if i > 0 {
				w.b.WriteString(sep)
			}
			w.b.WriteString(listMarker(node, item, i, w.src))
			w.b.WriteByte(' ')
			w.blocks(item, sep)
			i++
		}
	case *ast.Blockquote:
		w.blocks(node, "\n\n")
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(w.src))
		}
		w.b.WriteString(strings.TrimRight(buf.String(), "\n"))
	default:
		w.inlines(n)
	}
}

func (w *markdownWriter) inlines(parent ast.Node) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			w.b.Write(node.Segment.Value(w.src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				w.b.WriteByte('\n')
			}
		case *ast.String:
			w.b.Write(node.Value)
		case *ast.Emphasis:
			if node.Level >= 2 {
				w.b.WriteString("**")
				w.inlines(node)
				w.b.WriteString("**")
			} else {
				w.inlines(node)
			}
		case *ast.Link:
			w.b.WriteByte('[')
			w.inlines(node)
			w.b.WriteString("](")
			w.b.Write(node.Destination)
			w.b.WriteByte(')')
		case *ast.AutoLink:
			fmt.Fprintf(&w.b, "[%s](%s)", node.Label(w.src), node.URL(w.src))
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				w.b.Write(seg.Value(w.src))
			}
		default:
			w.inlines(n)
		}
	}
}

// listMarker recovers the marker as written in the source so that entry
// numbers survive even when they are not consecutive.
func listMarker(list *ast.List, item ast.Node, index int, src []byte) string {
	if first := item.FirstChild(); first != nil && first.Lines().Len() > 0 {
		start := first.Lines().At(0).Start
		lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
		if m := strings.TrimLeft(string(src[lineStart:start]), "> \t"); strings.TrimSpace(m) != "" {
			return strings.TrimSpace(m)
		}
	}
	if list.IsOrdered() {
		return fmt.Sprintf("%d%c", list.Start+index, list.Marker)
	}
	return string(list.Marker)
}
