package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/sheetgen/internal/genealogy"
	"github.com/dgallion1/sheetgen/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Extract person entries from a text document",
	Long: `Extract the generation title and numbered person entries from a
.txt, .md, .html, .pdf or .docx file. Use "-" to read plain text from stdin.

Examples:
  sheetgen parse sheet.txt
  sheetgen parse -o yaml sheet.docx
  pdftotext sheet.pdf - | sheetgen parse -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		doc, err := loadDocument(args[0], source.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if doc.Empty() {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: no data extracted")
		}
		return writeOutput(cmd.OutOrStdout(), doc)
	},
}

// loadDocument produces a document from a path. JSON files are read as a
// previously extracted document and rebuilt from raw text; everything else
// goes through the matching source loader and the parser.
func loadDocument(path string, opts source.Options, stdin io.Reader) (*genealogy.Document, error) {
	if path == "-" {
		doc, err := genealogy.ParseReader(stdin)
		if err != nil {
			return nil, fmt.Errorf("parse stdin: %w", err)
		}
		return doc, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var in genealogy.Document
		if err := json.NewDecoder(f).Decode(&in); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return in.Rebuild(), nil
	}

	loader, err := source.ForFile(path, opts)
	if err != nil {
		return nil, err
	}
	text, err := loader.Load(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	doc, err := genealogy.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}
