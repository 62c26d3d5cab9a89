package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"github.com/dgallion1/sheetgen/internal/genealogy"
)

//go:embed templates/sheet.html.tmpl
var sheetSource string

// Person markup fragments are already escaped by the genealogy parser and are
// inserted as-is. Every other field goes through html/template escaping.
var sheetTemplate = template.Must(template.New("sheet").Funcs(template.FuncMap{
	"markup": func(s string) template.HTML { return template.HTML(s) },
}).Parse(sheetSource))

type sheetData struct {
	*genealogy.Document
	EmptyNotice string
}

// HTML writes doc as a standalone legacy-sheet page.
func HTML(w io.Writer, doc *genealogy.Document) error {
	if doc == nil {
		doc = &genealogy.Document{}
	}
	if err := sheetTemplate.Execute(w, sheetData{Document: doc, EmptyNotice: EmptyNotice}); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
