package source

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextLoader handles plain text, typically an OCR export. Files that are not
// valid UTF-8 are decoded as Windows-1252, which older OCR tools write.
type TextLoader struct{}

func (l *TextLoader) Load(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decode windows-1252: %w", err)
		}
		data = decoded
	}
	return string(data), nil
}
