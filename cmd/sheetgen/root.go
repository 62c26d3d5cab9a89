package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/sheetgen/internal/config"
	"github.com/dgallion1/sheetgen/internal/ocr"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sheetgen",
	Short: "Turn OCR text of genealogy sheets into numbered person records",
	Long: `Sheetgen reads scanned or typed genealogy sheets and extracts the
generation title and every numbered person entry.

Input can be an image (recognized with Tesseract or Google Document AI),
or a text, Markdown, HTML, PDF or DOCX file. Results are printed as JSON
or YAML, or rendered back into an HTML or PDF sheet.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case "json", "yaml":
			return nil
		default:
			return fmt.Errorf("unknown output format %q (want json or yaml)", outputFormat)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: $SHEETGEN_CONFIG)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "json", "output format: json or yaml",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(ocrCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(stateCmd)
}

// loadConfig reads --config, or $SHEETGEN_CONFIG when the flag is unset.
func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv("SHEETGEN_CONFIG")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger writes JSON logs to w at the configured level.
func newLogger(w io.Writer, cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func ocrConfig(cfg config.Config) ocr.Config {
	return ocr.Config{
		Provider:   cfg.OCRProvider,
		Language:   cfg.OCRLanguage,
		MaxRetries: cfg.OCRMaxRetries,
		RetryDelay: time.Second,
		DocumentAI: ocr.DocumentAIConfig{
			ProjectID:       cfg.DocumentAIProjectID,
			Location:        cfg.DocumentAILocation,
			ProcessorID:     cfg.DocumentAIProcessorID,
			CredentialsFile: cfg.GoogleCredentials,
		},
	}
}

// writeOutput encodes v to w in the --output format.
func writeOutput(w io.Writer, v any) error {
	switch outputFormat {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
