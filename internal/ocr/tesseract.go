//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text locally through gosseract. Install Tesseract and
// the language data for OCR_LANGUAGE, then build with -tags ocr.
type Tesseract struct {
	languages []string
}

// NewTesseract returns a recognizer for the "+" separated language list,
// e.g. "eng+swe". An empty list uses Tesseract's default.
func NewTesseract(language string) (*Tesseract, error) {
	t := &Tesseract{}
	for _, lang := range strings.Split(language, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			t.languages = append(t.languages, lang)
		}
	}
	return t, nil
}

func (t *Tesseract) Name() string { return ProviderTesseract }

func (t *Tesseract) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// A client per call: gosseract clients are not safe for concurrent use.
	progress.report(PhaseLoadingModel, 0)
	client := gosseract.NewClient()
	defer client.Close()
	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return "", fmt.Errorf("set language: %w", err)
		}
	}
	progress.report(PhaseLoadingModel, 1)

	progress.report(PhaseInitializing, 0)
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	progress.report(PhaseInitializing, 1)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	progress.report(PhaseRecognizing, 0)
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	progress.report(PhaseRecognizing, 1)

	return strings.TrimSpace(text), nil
}
