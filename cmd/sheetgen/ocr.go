package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/sheetgen/internal/genealogy"
	"github.com/dgallion1/sheetgen/internal/ocr"
)

var ocrTextOnly bool

var ocrCmd = &cobra.Command{
	Use:   "ocr <image>",
	Short: "Recognize a scanned sheet and extract person entries",
	Long: `Run OCR on a scanned genealogy sheet and extract its person entries.
Progress is reported on stderr.

The provider comes from the config file or OCR_PROVIDER. Tesseract requires
a binary built with -tags ocr.

Examples:
  sheetgen ocr page-012.tiff
  sheetgen ocr --text page-012.png > page-012.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cmd.ErrOrStderr(), cfg)
		if err != nil {
			return err
		}

		image, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		recognizer, err := ocr.New(ctx, ocrConfig(cfg), log)
		if err != nil {
			return err
		}
		if c, ok := recognizer.(io.Closer); ok {
			defer c.Close()
		}

		if cfg.OCRTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.OCRTimeout)
			defer cancel()
		}

		start := time.Now()
		text, err := recognizer.Recognize(ctx, image, progressPrinter(cmd.ErrOrStderr()))
		if err != nil {
			return fmt.Errorf("recognize %s: %w", args[0], err)
		}
		log.Info("recognized image", "file", args[0], "provider", recognizer.Name(),
			"chars", len(text), "elapsed", time.Since(start))

		if ocrTextOnly {
			_, err := io.WriteString(cmd.OutOrStdout(), text)
			return err
		}

		doc, err := genealogy.Parse(text)
		if err != nil {
			return err
		}
		if doc.Empty() {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: no data extracted")
		}
		return writeOutput(cmd.OutOrStdout(), doc)
	},
}

func init() {
	ocrCmd.Flags().BoolVar(&ocrTextOnly, "text", false, "print the recognized text instead of parsed entries")
}

// progressPrinter reports each phase change and every tenth of progress.
func progressPrinter(w io.Writer) ocr.ProgressFunc {
	var (
		phase string
		step  = -1
	)
	return func(p ocr.Progress) {
		s := int(p.Fraction * 10)
		if p.Phase == phase && s == step {
			return
		}
		phase, step = p.Phase, s
		fmt.Fprintf(w, "%s: %3.0f%%\n", p.Phase, p.Fraction*100)
	}
}
