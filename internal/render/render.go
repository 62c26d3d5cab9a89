// Package render lays a parsed genealogy document out as a legacy sheet, either
// as an HTML page or as a PDF.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/sheetgen/internal/genealogy"
)

// EmptyNotice is shown in place of persons when nothing was extracted.
const EmptyNotice = "No data extracted"

// Format is an output format.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "html" or "pdf", case-insensitively. Empty means HTML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html", "htm":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported render format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/html; charset=utf-8"
}

// Render writes doc in the given format with default PDF options.
func Render(w io.Writer, doc *genealogy.Document, f Format) error {
	switch f {
	case FormatPDF:
		return PDF(w, doc, PDFOptions{})
	case FormatHTML:
		return HTML(w, doc)
	}
	return fmt.Errorf("unsupported render format %q", f)
}
