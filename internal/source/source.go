// Package source turns uploaded files into the plain text blob that the
// genealogy pipeline segments. Loaders keep the structure the pipeline relies
// on: numbered markers at line starts, blank lines between paragraphs, bold
// names as **…** and links as [label](url).
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Loader reads a file and returns its text.
type Loader interface {
	Load(r io.Reader, filename string) (string, error)
}

// Options tune individual loaders.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can read.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate loader for a filename.
func ForFile(filename string, opts Options) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextLoader{}, nil
	case ".md", ".markdown":
		return &MarkdownLoader{}, nil
	case ".html", ".htm":
		return &HTMLLoader{}, nil
	case ".pdf":
		return &PDFLoader{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXLoader{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// tidyLines trims every line and collapses runs of blank lines into one.
func tidyLines(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(out) > 0 {
				blank = true
			}
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
