package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/sheetgen/internal/render"
	"github.com/dgallion1/sheetgen/internal/source"
)

var (
	renderFormat string
	renderOut    string
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render extracted entries as an HTML or PDF sheet",
	Long: `Render a genealogy sheet. The input is any file "parse" accepts, or a
JSON document previously printed by "parse -o json".

Examples:
  sheetgen render sheet.txt --out sheet.html
  sheetgen render entries.json --format pdf --out sheet.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(renderFormat)
		if err != nil {
			return err
		}
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

		var buf bytes.Buffer
		if err := render.Render(&buf, doc, format); err != nil {
			return err
		}
		if renderOut == "" || renderOut == "-" {
			_, err := buf.WriteTo(cmd.OutOrStdout())
			return err
		}
		if err := os.WriteFile(renderOut, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", renderOut, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d persons to %s\n", len(doc.Persons), renderOut)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderFormat, "format", "html", "output format: html or pdf")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output file (default: stdout)")
}
