package render

import (
	"fmt"
	"io"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/dgallion1/sheetgen/internal/genealogy"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// PDFOptions controls the PDF layout. Zero values select defaults.
type PDFOptions struct {
	PageSize   string  // fpdf size name, "A4" by default
	FontFamily string  // core font, "Times" by default
	FontSize   float64 // body size in points, 11 by default
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.PageSize == "" {
		o.PageSize = "A4"
	}
	if o.FontFamily == "" {
		o.FontFamily = "Times"
	}
	if o.FontSize <= 0 {
		o.FontSize = 11
	}
	return o
}

const (
	marginMM    = 20.0
	subIndentMM = 10.0
)

// encodeText converts s to Windows-1252, the encoding of the core fonts.
// Characters outside it become '?'.
func encodeText(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return string(out)
}

// PDF writes doc as a printable legacy sheet.
func PDF(w io.Writer, doc *genealogy.Document, opts PDFOptions) error {
	if doc == nil {
		doc = &genealogy.Document{}
	}
	opts = opts.withDefaults()
	lh := opts.FontSize * 0.5

	pdf := fpdf.New("P", "mm", opts.PageSize, "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	if doc.GenerationTitle != "" {
		pdf.SetTitle(doc.GenerationTitle, true)
	}
	pdf.AddPage()

	if doc.GenerationTitle != "" {
		pdf.SetFont(opts.FontFamily, "B", opts.FontSize+5)
		pdf.MultiCell(0, lh*1.6, encodeText(doc.GenerationTitle), "", "C", false)
		pdf.Ln(lh)
	}

	if len(doc.Persons) == 0 {
		pdf.SetFont(opts.FontFamily, "I", opts.FontSize)
		pdf.Write(lh, EmptyNotice)
	}

	for _, p := range doc.Persons {
		pdf.SetLeftMargin(marginMM)
		pdf.SetX(marginMM)
		pdf.SetFont(opts.FontFamily, "B", opts.FontSize)
		pdf.Write(lh, encodeText(p.Number+". "))
		pdf.SetFontStyle("")
		writeMarkup(pdf, p.MainParagraph, lh)
		pdf.Ln(lh * 1.5)

		pdf.SetLeftMargin(marginMM + subIndentMM)
		for _, sub := range p.SubParagraphs {
			pdf.SetX(marginMM + subIndentMM)
			writeMarkup(pdf, sub, lh)
			pdf.Ln(lh * 1.5)
		}
		pdf.SetLeftMargin(marginMM)
		pdf.Ln(lh * 0.5)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func writeMarkup(pdf *fpdf.Fpdf, fragment string, lh float64) {
	for _, r := range markupRuns(fragment) {
		switch {
		case r.Break:
			pdf.Ln(lh)
			continue
		case r.Bold:
			pdf.SetFontStyle("B")
		default:
			pdf.SetFontStyle("")
		}
		text := encodeText(r.Text)
		if r.Href != "" {
			pdf.SetTextColor(0, 0, 160)
			pdf.WriteLinkString(lh, text, r.Href)
			pdf.SetTextColor(0, 0, 0)
			continue
		}
		pdf.Write(lh, text)
	}
	pdf.SetFontStyle("")
}

// run is a stretch of markup text with uniform styling, or a line break.
type run struct {
	Text  string
	Bold  bool
	Href  string
	Break bool
}

// markupRuns tokenizes a markup fragment produced by the genealogy parser.
// Unknown tags are dropped and their text kept.
func markupRuns(fragment string) []run {
	var runs []run
	bold := 0
	href := ""

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return runs
		case html.TextToken:
			text := string(z.Text())
			if text == "" {
				continue
			}
			if n := len(runs); n > 0 && !runs[n-1].Break && runs[n-1].Bold == (bold > 0) && runs[n-1].Href == href {
				runs[n-1].Text += text
				continue
			}
			runs = append(runs, run{Text: text, Bold: bold > 0, Href: href})
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "b", "strong":
				if tt == html.StartTagToken {
					bold++
				}
			case "br":
				runs = append(runs, run{Break: true})
			case "a":
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" {
						href = string(val)
					}
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "b", "strong":
				if bold > 0 {
					bold--
				}
			case "a":
				href = ""
			}
		}
	}
}
