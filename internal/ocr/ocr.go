// Package ocr recognizes the text of scanned genealogy sheets.
//
// Two engines are available: Tesseract (local, requires the "ocr" build tag)
// and Google Document AI (remote). Both report progress through a callback so
// callers can show which phase a long recognition is in.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrOCRNotEnabled is returned by the Tesseract recognizer when the binary was
// built without the "ocr" build tag.
var ErrOCRNotEnabled = errors.New("tesseract OCR not enabled; build with -tags ocr")

// Recognition phases, in the order a recognizer reports them.
const (
	PhaseLoadingModel = "loading language model"
	PhaseInitializing = "initializing api"
	PhaseRecognizing  = "recognizing text"
)

// Provider names accepted by New.
const (
	ProviderTesseract  = "tesseract"
	ProviderDocumentAI = "documentai"
)

// Progress is one progress event. Fraction runs from 0 to 1 within a phase.
type Progress struct {
	Phase    string  `json:"phase"`
	Fraction float64 `json:"fraction"`
}

// ProgressFunc receives progress events synchronously on the recognizing
// goroutine. A nil ProgressFunc discards them.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(phase string, fraction float64) {
	if f != nil {
		f(Progress{Phase: phase, Fraction: fraction})
	}
}

// Recognizer extracts text from a scanned image.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, image []byte, progress ProgressFunc) (string, error)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	Code    string
	Message string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (%s): %s", e.Code, truncate(e.Message, 200))
}

// Config selects and configures a recognizer.
type Config struct {
	Provider   string
	Language   string
	MaxRetries int
	RetryDelay time.Duration
	DocumentAI DocumentAIConfig
}

// New builds the recognizer named by cfg.Provider, wrapped with retries when
// cfg.MaxRetries is positive.
func New(ctx context.Context, cfg Config, log *slog.Logger) (Recognizer, error) {
	var (
		r   Recognizer
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderTesseract:
		r, err = NewTesseract(cfg.Language)
	case ProviderDocumentAI:
		r, err = NewDocumentAI(ctx, cfg.DocumentAI)
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries > 0 {
		r = WithRetry(r, uint(cfg.MaxRetries)+1, cfg.RetryDelay, log)
	}
	return r, nil
}

// DetectMIMEType sniffs the image format. TIFF, the usual scanner output, is
// not covered by http.DetectContentType.
func DetectMIMEType(image []byte) string {
	if len(image) >= 4 {
		head := string(image[:4])
		if head == "II*\x00" || head == "MM\x00*" {
			return "image/tiff"
		}
	}
	return http.DetectContentType(image)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
