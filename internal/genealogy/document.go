// Package genealogy turns the OCR text of a legacy genealogy sheet into an
// ordered list of numbered person records.
//
// The pipeline is a pure function of its input: Parse normalizes the text,
// extracts the generation title once, splits the text into marker-delimited
// spans and decomposes each span into a name, a main paragraph and indented
// sub-paragraphs. Markup fragments on the resulting records are HTML-safe.
package genealogy

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrMalformedInput is returned when the pipeline is handed something that is
// not usable text.
var ErrMalformedInput = errors.New("malformed input")

// Document is the result of one extraction run.
type Document struct {
	GenerationTitle string   `json:"generation_title" yaml:"generation_title"`
	Persons         []Person `json:"persons" yaml:"persons"`
}

// Empty reports whether no person entries were found.
func (d *Document) Empty() bool {
	return d == nil || len(d.Persons) == 0
}

// Person is a single numbered entry. RawText is the source of truth; the
// other fields are derived from it by ParseEntry and are never set otherwise.
type Person struct {
	Number        string   `json:"number" yaml:"number"`
	Name          string   `json:"name" yaml:"name"`
	RawText       string   `json:"raw_text" yaml:"raw_text"`
	MainParagraph string   `json:"main_paragraph" yaml:"main_paragraph"`
	SubParagraphs []string `json:"sub_paragraphs" yaml:"sub_paragraphs"`
}

// Parse runs the full pipeline with the default rules.
func Parse(text string) (*Document, error) {
	return std.Parse(text)
}

// ParseBytes is Parse for a byte slice. A nil slice is malformed input.
func ParseBytes(data []byte) (*Document, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil text", ErrMalformedInput)
	}
	return std.Parse(string(data))
}

// ParseReader reads all of r and parses it.
func ParseReader(r io.Reader) (*Document, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrMalformedInput)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return std.Parse(string(data))
}

// Parse runs the full pipeline: normalize, extract the generation title,
// segment, and parse every entry in order of appearance.
func (p *Parser) Parse(text string) (*Document, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrMalformedInput)
	}
	text = Normalize(text)

	doc := &Document{
		GenerationTitle: ExtractGenerationTitle(text),
		Persons:         []Person{},
	}
	for _, seg := range Segment(text) {
		doc.Persons = append(doc.Persons, p.ParseEntry(seg.Raw))
	}
	return doc, nil
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize converts all line endings to \n and composes the text to NFC so
// that decomposed Nordic letters (A + ring) match the name patterns.
func Normalize(text string) string {
	return norm.NFC.String(lineEndings.Replace(text))
}

// Rebuild returns a copy of d whose persons are re-derived from RawText.
// Everything else a caller may have set on a person is discarded.
func (d *Document) Rebuild() *Document {
	out := &Document{Persons: []Person{}}
	if d == nil {
		return out
	}
	out.GenerationTitle = d.GenerationTitle
	for _, p := range d.Persons {
		out.Persons = append(out.Persons, ParseEntry(p.RawText))
	}
	return out
}
