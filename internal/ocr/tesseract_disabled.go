//go:build !ocr

package ocr

import "context"

// Tesseract is unavailable in builds without the "ocr" tag.
type Tesseract struct{}

// NewTesseract returns ErrOCRNotEnabled. Build with -tags ocr for local OCR.
func NewTesseract(language string) (*Tesseract, error) {
	return nil, ErrOCRNotEnabled
}

func (t *Tesseract) Name() string { return ProviderTesseract }

func (t *Tesseract) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (string, error) {
	return "", ErrOCRNotEnabled
}
